package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"session-auth-demo/cache"
	"session-auth-demo/logger"
	"session-auth-demo/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const keyPrefix = "session:"

// Session is the session attached to one request. A zero ID means the
// request carried no usable session.
type Session struct {
	ID   string
	Data models.SessionData
}

// UserID returns the user the session names, if any.
func (s *Session) UserID() (int, bool) {
	if s == nil || !s.Data.Authenticated() {
		return 0, false
	}
	return *s.Data.UserID, true
}

// Manager issues, loads and destroys sessions. The cookie carries an HS256
// token whose jti is the session id; the session data lives in the store.
type Manager struct {
	store      cache.Store
	cookieName string
	secure     bool
	secret     []byte
	ttl        time.Duration
}

// Options configures the session cookie and server-side expiry.
type Options struct {
	CookieName string
	Secure     bool
	Secret     string
	TTL        time.Duration
}

// NewManager creates a manager storing session data in store.
func NewManager(store cache.Store, opts Options) *Manager {
	return &Manager{
		store:      store,
		cookieName: opts.CookieName,
		secure:     opts.Secure,
		secret:     []byte(opts.Secret),
		ttl:        opts.TTL,
	}
}

// Load returns the session for r. A missing cookie, a token that fails
// verification or an unknown id all yield an empty session and no error.
// Only a store failure is returned as an error.
func (m *Manager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return &Session{}, nil
	}

	id, err := m.parseToken(cookie.Value)
	if err != nil {
		logger.Debug("Ignoring invalid session cookie", zap.Error(err))
		return &Session{}, nil
	}

	raw, err := m.store.Get(ctx, keyPrefix+id)
	if errors.Is(err, cache.ErrCacheMiss) {
		return &Session{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var data models.SessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		logger.Warn("Discarding malformed session data", zap.String("session_id", id), zap.Error(err))
		return &Session{}, nil
	}

	return &Session{ID: id, Data: data}, nil
}

// Establish starts a new session naming userID and sets the cookie on w.
func (m *Manager) Establish(ctx context.Context, w http.ResponseWriter, userID int) (*Session, error) {
	sess := &Session{
		ID:   uuid.NewString(),
		Data: models.SessionData{UserID: &userID},
	}

	raw, err := json.Marshal(sess.Data)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, keyPrefix+sess.ID, raw, m.ttl); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	token, err := m.signToken(sess.ID)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	http.SetCookie(w, m.cookie(token))
	return sess, nil
}

// Destroy removes the session from the store and clears the cookie. The
// cookie is cleared even when the store delete fails.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	expired := m.cookie("")
	expired.MaxAge = -1
	expired.Expires = time.Unix(0, 0)
	http.SetCookie(w, expired)

	if sess == nil || sess.ID == "" {
		return nil
	}
	if err := m.store.Delete(ctx, keyPrefix+sess.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (m *Manager) cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (m *Manager) signToken(id string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:       id,
		IssuedAt: jwt.NewNumericDate(time.Now()),
	})
	return token.SignedString(m.secret)
}

func (m *Manager) parseToken(value string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(value, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.ID == "" {
		return "", errors.New("session token has no id")
	}
	return claims.ID, nil
}
