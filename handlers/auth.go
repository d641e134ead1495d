package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"session-auth-demo/gate"
	"session-auth-demo/models"
	"session-auth-demo/registry"
	"session-auth-demo/session"

	"go.uber.org/zap"
)

// Sessions is the part of the session manager the handlers need.
type Sessions interface {
	Establish(ctx context.Context, w http.ResponseWriter, userID int) (*session.Session, error)
	Destroy(ctx context.Context, w http.ResponseWriter, sess *session.Session) error
}

// AuthHandler serves the pages and form posts of the demo app.
type AuthHandler struct {
	sessions Sessions
	users    registry.Registry
	timeout  time.Duration
}

// NewAuthHandler creates the handler. timeout bounds each store and registry call.
func NewAuthHandler(sessions Sessions, users registry.Registry, timeout time.Duration) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		users:    users,
		timeout:  timeout,
	}
}

// Index handles GET / - greets the current user, if any
func (h *AuthHandler) Index(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	user := gate.UserFromContext(ctx)
	if user != nil {
		logRequest(ctx, "debug", "Landing page", zap.Int("user_id", user.ID))
	} else {
		logRequest(ctx, "debug", "Landing page")
	}
	writeHTML(ctx, w, indexPage, user)
}

// Home handles GET /home. It is only routed behind an authentication gate,
// so a missing user fails to render and becomes a 500.
func (h *AuthHandler) Home(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	writeHTML(ctx, w, homePage, gate.UserFromContext(ctx))
}

// LoginForm handles GET /login
func (h *AuthHandler) LoginForm(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	writeHTML(ctx, w, loginPage, nil)
}

// RegisterForm handles GET /register
func (h *AuthHandler) RegisterForm(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	writeHTML(ctx, w, registerPage, nil)
}

// Login handles POST /login. Any failure sends the user back to the form
// without saying what was wrong.
func (h *AuthHandler) Login(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	req, err := parseLogin(r)
	logRequest(ctx, "info", "Login request", zap.String("email", req.Email))
	if errors.Is(err, models.ErrInvalidInput) {
		logRequest(ctx, "info", "Invalid login form", zap.Error(err))
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	lookupCtx, cancel := context.WithTimeout(ctx, h.timeout)
	user, err := h.users.FindByEmailAndPassword(lookupCtx, req.Email, req.Password)
	cancel()
	if errors.Is(err, models.ErrNotFound) {
		logRequest(ctx, "info", "Invalid credentials", zap.String("email", req.Email))
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	if err != nil {
		internalError(ctx, w, r, "User lookup failed", err)
		return
	}

	if err := h.establish(ctx, w, user.ID); err != nil {
		internalError(ctx, w, r, "Failed to create session", err)
		return
	}

	logRequest(ctx, "info", "Login successful", zap.Int("user_id", user.ID))
	http.Redirect(w, r, "/home", http.StatusFound)
}

// Register handles POST /register
func (h *AuthHandler) Register(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	req, err := parseRegister(r)
	logRequest(ctx, "info", "Register request", zap.String("email", req.Email))
	if errors.Is(err, models.ErrInvalidInput) {
		logRequest(ctx, "info", "Invalid registration form", zap.Error(err))
		http.Redirect(w, r, "/register", http.StatusFound)
		return
	}

	insertCtx, cancel := context.WithTimeout(ctx, h.timeout)
	user, err := h.users.InsertIfEmailUnique(insertCtx, req.Name, req.Email, req.Password)
	cancel()
	if errors.Is(err, models.ErrDuplicateEmail) {
		logRequest(ctx, "info", "Email already registered", zap.String("email", req.Email))
		http.Redirect(w, r, "/register", http.StatusFound)
		return
	}
	if err != nil {
		internalError(ctx, w, r, "Failed to create user", err)
		return
	}

	if err := h.establish(ctx, w, user.ID); err != nil {
		internalError(ctx, w, r, "Failed to create session", err)
		return
	}

	logRequest(ctx, "info", "User registered", zap.Int("user_id", user.ID))
	http.Redirect(w, r, "/home", http.StatusFound)
}

// Logout handles POST /logout. The cookie is cleared and the user sent to
// the login page even if the store could not delete the session.
func (h *AuthHandler) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	sess := gate.SessionFromContext(ctx)

	destroyCtx, cancel := context.WithTimeout(ctx, h.timeout)
	err := h.sessions.Destroy(destroyCtx, w, sess)
	cancel()
	if err != nil {
		logRequest(ctx, "error", "Failed to destroy session", zap.Error(err))
	} else {
		logRequest(ctx, "info", "Logged out")
	}

	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *AuthHandler) establish(ctx context.Context, w http.ResponseWriter, userID int) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	_, err := h.sessions.Establish(ctx, w, userID)
	return err
}

// parseLogin reads the login form. Missing fields give models.ErrInvalidInput.
func parseLogin(r *http.Request) (models.LoginRequest, error) {
	if err := r.ParseForm(); err != nil {
		return models.LoginRequest{}, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	req := models.LoginRequest{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	if req.Email == "" || req.Password == "" {
		return req, fmt.Errorf("%w: email and password are required", models.ErrInvalidInput)
	}
	return req, nil
}

// parseRegister reads the registration form. Missing fields give
// models.ErrInvalidInput.
func parseRegister(r *http.Request) (models.RegisterRequest, error) {
	if err := r.ParseForm(); err != nil {
		return models.RegisterRequest{}, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	req := models.RegisterRequest{
		Name:     strings.TrimSpace(r.PostFormValue("name")),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return req, fmt.Errorf("%w: name, email and password are required", models.ErrInvalidInput)
	}
	return req, nil
}
