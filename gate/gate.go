package gate

import (
	"net/http"

	"session-auth-demo/models"
	"session-auth-demo/session"
)

// Outcome is what a gate decided for one request.
type Outcome int

const (
	Allow Outcome = iota
	Redirect
	Reject
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	case Reject:
		return "reject"
	default:
		return "unknown"
	}
}

// Decision is a gate's verdict. Location is set for Redirect; Status and
// Body are set for Reject.
type Decision struct {
	Outcome  Outcome
	Location string
	Status   int
	Body     any
}

// AllowRequest lets the request through to its handler.
func AllowRequest() Decision {
	return Decision{Outcome: Allow}
}

// RedirectTo sends the client to location with 302 Found.
func RedirectTo(location string) Decision {
	return Decision{Outcome: Redirect, Location: location}
}

// RejectWith ends the request with status and a JSON body.
func RejectWith(status int, body any) Decision {
	return Decision{Outcome: Reject, Status: status, Body: body}
}

// State is the authentication state of a request as seen by gates.
type State struct {
	Session *session.Session
	// User is the resolved user; nil when the session names no user or
	// names one that no longer exists.
	User     *models.User
	Resolved bool
}

// Authenticated reports whether the request belongs to a known user. Before
// resolution a userId in the session is enough; after it, the user must exist.
func (s State) Authenticated() bool {
	if _, ok := s.Session.UserID(); !ok {
		return false
	}
	return !s.Resolved || s.User != nil
}

// Gate decides whether a request may reach its handler. Decide must not
// modify the state.
type Gate struct {
	Name   string
	Decide func(State) Decision
}

// RequireUnauthenticated sends signed-in users to destination.
func RequireUnauthenticated(destination string) Gate {
	return Gate{
		Name: "require_unauthenticated",
		Decide: func(s State) Decision {
			if s.Authenticated() {
				return RedirectTo(destination)
			}
			return AllowRequest()
		},
	}
}

// RequireAuthenticated sends anonymous requests to loginPath.
func RequireAuthenticated(loginPath string) Gate {
	return Gate{
		Name: "require_authenticated",
		Decide: func(s State) Decision {
			if !s.Authenticated() {
				return RedirectTo(loginPath)
			}
			return AllowRequest()
		},
	}
}

// RequireAuthenticatedOrFail rejects anonymous requests with 401.
func RequireAuthenticatedOrFail() Gate {
	return Gate{
		Name: "require_authenticated_or_fail",
		Decide: func(s State) Decision {
			if !s.Authenticated() {
				return RejectWith(http.StatusUnauthorized, models.NewUnauthorizedError())
			}
			return AllowRequest()
		},
	}
}
