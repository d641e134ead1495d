package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"session-auth-demo/cache"
	"session-auth-demo/gate"
	"session-auth-demo/models"
	"session-auth-demo/registry"
	"session-auth-demo/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStore = errors.New("store unavailable")

// fakeSessions records calls instead of touching a store.
type fakeSessions struct {
	established []int
	destroyed   int
	err         error
}

func (f *fakeSessions) Establish(ctx context.Context, w http.ResponseWriter, userID int) (*session.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.established = append(f.established, userID)
	return &session.Session{ID: "new", Data: models.SessionData{UserID: &userID}}, nil
}

func (f *fakeSessions) Destroy(ctx context.Context, w http.ResponseWriter, sess *session.Session) error {
	f.destroyed++
	return f.err
}

// brokenRegistry fails every call.
type brokenRegistry struct{}

func (brokenRegistry) FindByEmailAndPassword(context.Context, string, string) (*models.User, error) {
	return nil, errStore
}
func (brokenRegistry) FindByID(context.Context, int) (*models.User, error) { return nil, errStore }
func (brokenRegistry) InsertIfEmailUnique(context.Context, string, string, string) (*models.User, error) {
	return nil, errStore
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func serve(h HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, location, rec.Header().Get("Location"))
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name     string
		form     url.Values
		location string
		session  []int
	}{
		{"valid credentials", url.Values{"email": {"alex@gmail.com"}, "password": {"secret"}}, "/home", []int{1}},
		{"email is case-insensitive", url.Values{"email": {"Max@Gmail.com"}, "password": {"secret"}}, "/home", []int{2}},
		{"wrong password", url.Values{"email": {"alex@gmail.com"}, "password": {"nope"}}, "/login", nil},
		{"unknown email", url.Values{"email": {"who@gmail.com"}, "password": {"secret"}}, "/login", nil},
		{"missing password", url.Values{"email": {"alex@gmail.com"}}, "/login", nil},
		{"missing email", url.Values{"password": {"secret"}}, "/login", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &fakeSessions{}
			h := NewAuthHandler(sessions, registry.NewMemoryRegistry(models.DefaultUsers()...), time.Second)

			rec := serve(h.Login, postForm("/login", tt.form))
			assertRedirect(t, rec, tt.location)
			assert.Equal(t, tt.session, sessions.established)
		})
	}
}

func TestLogin_RegistryFailure(t *testing.T) {
	sessions := &fakeSessions{}
	h := NewAuthHandler(sessions, brokenRegistry{}, time.Second)

	rec := serve(h.Login, postForm("/login", url.Values{"email": {"alex@gmail.com"}, "password": {"secret"}}))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, sessions.established)
}

func TestLogin_SessionStoreFailure(t *testing.T) {
	h := NewAuthHandler(&fakeSessions{err: errStore}, registry.NewMemoryRegistry(models.DefaultUsers()...), time.Second)

	rec := serve(h.Login, postForm("/login", url.Values{"email": {"alex@gmail.com"}, "password": {"secret"}}))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))
}

func TestRegister(t *testing.T) {
	users := registry.NewMemoryRegistry(models.DefaultUsers()...)
	sessions := &fakeSessions{}
	h := NewAuthHandler(sessions, users, time.Second)

	rec := serve(h.Register, postForm("/register", url.Values{
		"name": {"Zed"}, "email": {"zed@example.com"}, "password": {"pw"},
	}))
	assertRedirect(t, rec, "/home")
	assert.Equal(t, []int{4}, sessions.established)

	u, err := users.FindByID(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "Zed", u.Name)
}

func TestRegister_Rejected(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
	}{
		{"duplicate email", url.Values{"name": {"A"}, "email": {"alex@gmail.com"}, "password": {"pw"}}},
		{"duplicate email other case", url.Values{"name": {"A"}, "email": {"ALEX@gmail.com"}, "password": {"pw"}}},
		{"missing name", url.Values{"email": {"new@example.com"}, "password": {"pw"}}},
		{"missing email", url.Values{"name": {"A"}, "password": {"pw"}}},
		{"missing password", url.Values{"name": {"A"}, "email": {"new@example.com"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := registry.NewMemoryRegistry(models.DefaultUsers()...)
			sessions := &fakeSessions{}
			h := NewAuthHandler(sessions, users, time.Second)

			rec := serve(h.Register, postForm("/register", tt.form))
			assertRedirect(t, rec, "/register")
			assert.Empty(t, sessions.established)
			assert.Equal(t, 3, users.Len())
		})
	}
}

func TestRegister_RegistryFailure(t *testing.T) {
	h := NewAuthHandler(&fakeSessions{}, brokenRegistry{}, time.Second)

	rec := serve(h.Register, postForm("/register", url.Values{"name": {"A"}, "email": {"a@b.c"}, "password": {"pw"}}))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLogout(t *testing.T) {
	sessions := &fakeSessions{}
	h := NewAuthHandler(sessions, registry.NewMemoryRegistry(), time.Second)

	rec := serve(h.Logout, httptest.NewRequest(http.MethodPost, "/logout", nil))
	assertRedirect(t, rec, "/login")
	assert.Equal(t, 1, sessions.destroyed)
}

func TestLogout_DestroyFailureStillRedirects(t *testing.T) {
	sessions := &fakeSessions{err: errStore}
	h := NewAuthHandler(sessions, registry.NewMemoryRegistry(), time.Second)

	rec := serve(h.Logout, httptest.NewRequest(http.MethodPost, "/logout", nil))
	assertRedirect(t, rec, "/login")
	assert.Equal(t, 1, sessions.destroyed)
}

// withSession runs h behind the real session and user middleware.
func withSession(t *testing.T, h HandlerFunc, userID *int) *httptest.ResponseRecorder {
	t.Helper()
	store := cache.NewMemoryStore()
	manager := session.NewManager(store, session.Options{CookieName: "sid", Secret: "s", TTL: time.Hour})
	users := registry.NewMemoryRegistry(models.DefaultUsers()...)
	mw := gate.NewMiddleware(manager, users, time.Second, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if userID != nil {
		setRec := httptest.NewRecorder()
		_, err := manager.Establish(context.Background(), setRec, *userID)
		require.NoError(t, err)
		for _, c := range setRec.Result().Cookies() {
			req.AddCookie(c)
		}
	}

	rec := httptest.NewRecorder()
	mw.LoadSession(mw.ResolveCurrentUser(h)).ServeHTTP(rec, req)
	return rec
}

func TestIndex(t *testing.T) {
	h := NewAuthHandler(&fakeSessions{}, registry.NewMemoryRegistry(), time.Second)

	t.Run("anonymous", func(t *testing.T) {
		rec := withSession(t, h.Index, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
		body := rec.Body.String()
		assert.Contains(t, body, "<h1>Welcome!</h1>")
		assert.Contains(t, body, "href='/login'")
		assert.Contains(t, body, "href='/register'")
		assert.NotContains(t, body, "/logout")
	})

	t.Run("signed in", func(t *testing.T) {
		id := 1
		rec := withSession(t, h.Index, &id)
		body := rec.Body.String()
		assert.Contains(t, body, "<h1>Welcome Alex!</h1>")
		assert.Contains(t, body, "action='/logout'")
		assert.NotContains(t, body, "href='/register'")
	})

	t.Run("dangling user id", func(t *testing.T) {
		id := 50
		rec := withSession(t, h.Index, &id)
		assert.Contains(t, rec.Body.String(), "<h1>Welcome!</h1>")
	})
}

func TestHome(t *testing.T) {
	h := NewAuthHandler(&fakeSessions{}, registry.NewMemoryRegistry(), time.Second)

	id := 3
	rec := withSession(t, h.Home, &id)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Name: Hagard")
	assert.Contains(t, rec.Body.String(), "Email: hagard@gmail.com")
}

func TestPagesEscapeUserInput(t *testing.T) {
	rec := httptest.NewRecorder()
	writeHTML(context.Background(), rec, homePage, &models.User{Name: "<script>x</script>", Email: "x@example.com"})
	assert.NotContains(t, rec.Body.String(), "<script>")
	assert.Contains(t, rec.Body.String(), "&lt;script&gt;")
}

func TestHome_WithoutUserIsServerError(t *testing.T) {
	h := NewAuthHandler(&fakeSessions{}, registry.NewMemoryRegistry(), time.Second)

	rec := serve(h.Home, httptest.NewRequest(http.MethodGet, "/home", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))
}

func TestParseLogin(t *testing.T) {
	req, err := parseLogin(postForm("/login", url.Values{"email": {" Alex@gmail.com "}, "password": {"secret"}}))
	require.NoError(t, err)
	assert.Equal(t, "Alex@gmail.com", req.Email)
	assert.Equal(t, "secret", req.Password)

	_, err = parseLogin(postForm("/login", url.Values{"email": {"alex@gmail.com"}}))
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = parseLogin(postForm("/login", url.Values{"email": {"   "}, "password": {"secret"}}))
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestParseRegister(t *testing.T) {
	req, err := parseRegister(postForm("/register", url.Values{"name": {"Zed"}, "email": {"zed@example.com"}, "password": {"pw"}}))
	require.NoError(t, err)
	assert.Equal(t, "Zed", req.Name)

	for _, missing := range []string{"name", "email", "password"} {
		form := url.Values{"name": {"Zed"}, "email": {"zed@example.com"}, "password": {"pw"}}
		form.Del(missing)
		_, err := parseRegister(postForm("/register", form))
		assert.ErrorIs(t, err, models.ErrInvalidInput, missing)
	}
}

func TestForms(t *testing.T) {
	h := NewAuthHandler(&fakeSessions{}, registry.NewMemoryRegistry(), time.Second)

	rec := serve(h.LoginForm, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "action='/login'")

	rec = serve(h.RegisterForm, httptest.NewRequest(http.MethodGet, "/register", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "name='name'")
}

func TestTestData(t *testing.T) {
	rec := serve(TestData, httptest.NewRequest(http.MethodGet, "/api/test-data", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"text":"Hello from server!"}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	rec := serve(Health, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestInternalError_APIGetsJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	internalError(context.Background(), rec, httptest.NewRequest(http.MethodGet, "/api/test-data", nil), "boom", errStore)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}
