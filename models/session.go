package models

// SessionData is the server-side state behind a session cookie. A nil
// UserID is the same as having no session at all.
type SessionData struct {
	UserID *int `json:"userId,omitempty"`
}

// Authenticated reports whether the session names a user.
func (s SessionData) Authenticated() bool {
	return s.UserID != nil
}
