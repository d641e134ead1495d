package gate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"session-auth-demo/logger"
	"session-auth-demo/models"
	"session-auth-demo/registry"
	"session-auth-demo/session"

	"go.uber.org/zap"
)

// SessionLoader loads the session attached to a request.
type SessionLoader interface {
	Load(ctx context.Context, r *http.Request) (*session.Session, error)
}

// Middleware runs the per-request pipeline: load the session, resolve the
// current user, then apply a route's gate.
type Middleware struct {
	sessions SessionLoader
	users    registry.Registry
	timeout  time.Duration
	metrics  *Metrics
}

// NewMiddleware builds the pipeline. Each store or registry lookup is bounded
// by timeout; metrics may be nil.
func NewMiddleware(sessions SessionLoader, users registry.Registry, timeout time.Duration, metrics *Metrics) *Middleware {
	return &Middleware{
		sessions: sessions,
		users:    users,
		timeout:  timeout,
		metrics:  metrics,
	}
}

type stateKey struct{}

// StateFromContext returns the authentication state stored by LoadSession.
// Requests that never passed through LoadSession are anonymous.
func StateFromContext(ctx context.Context) State {
	if s, ok := ctx.Value(stateKey{}).(*State); ok {
		return *s
	}
	return State{}
}

// UserFromContext returns the resolved user, or nil.
func UserFromContext(ctx context.Context) *models.User {
	return StateFromContext(ctx).User
}

// SessionFromContext returns the loaded session, or nil.
func SessionFromContext(ctx context.Context) *session.Session {
	return StateFromContext(ctx).Session
}

func stateFrom(ctx context.Context) (*State, bool) {
	s, ok := ctx.Value(stateKey{}).(*State)
	return s, ok
}

// LoadSession attaches the request's session to its context. A request
// without a valid session gets an empty one; a store failure ends the
// request with 500.
func (m *Middleware) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), m.timeout)
		sess, err := m.sessions.Load(ctx, r)
		cancel()
		if err != nil {
			m.metrics.observeFailure("session")
			logger.Error("Session store lookup failed", zap.String("path", r.URL.Path), zap.Error(err))
			writeFailure(w, r)
			return
		}

		state := &State{Session: sess}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), stateKey{}, state)))
	})
}

// ResolveCurrentUser looks up the user named by the session. A user id with
// no matching user leaves the request anonymous. Registry failures end the
// request with 500.
func (m *Middleware) ResolveCurrentUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state, ok := stateFrom(r.Context())
		if !ok || state.Resolved {
			next.ServeHTTP(w, r)
			return
		}

		id, hasUser := state.Session.UserID()
		if !hasUser {
			state.Resolved = true
			next.ServeHTTP(w, r)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), m.timeout)
		user, err := m.users.FindByID(ctx, id)
		cancel()
		switch {
		case errors.Is(err, models.ErrNotFound):
			logger.Debug("Session names an unknown user", zap.Int("user_id", id))
		case err != nil:
			m.metrics.observeFailure("user")
			logger.Error("User lookup failed", zap.Int("user_id", id), zap.Error(err))
			writeFailure(w, r)
			return
		}

		state.User = user
		state.Resolved = true
		next.ServeHTTP(w, r)
	})
}

// Guard applies g before next and carries out its decision.
func (m *Middleware) Guard(g Gate, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := g.Decide(StateFromContext(r.Context()))
		m.metrics.observeDecision(g.Name, d.Outcome)

		switch d.Outcome {
		case Allow:
			next.ServeHTTP(w, r)
		case Redirect:
			http.Redirect(w, r, d.Location, http.StatusFound)
		case Reject:
			writeJSON(w, d.Status, d.Body)
		default:
			logger.Error("Gate returned an unknown outcome", zap.String("gate", g.Name), zap.Int("outcome", int(d.Outcome)))
			writeFailure(w, r)
		}
	})
}

// writeFailure answers a request whose lookups failed. API clients get JSON.
func writeFailure(w http.ResponseWriter, r *http.Request) {
	if IsAPIRequest(r) {
		writeJSON(w, http.StatusInternalServerError, models.NewInternalServerError())
		return
	}
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// IsAPIRequest reports whether r targets the JSON API.
func IsAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to write response", zap.Error(err))
	}
}
