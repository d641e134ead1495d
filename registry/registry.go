package registry

import (
	"context"
	"crypto/subtle"
	"strings"

	"session-auth-demo/models"
)

// Registry is the set of known users. Emails are compared lower-cased.
type Registry interface {
	// FindByEmailAndPassword returns models.ErrNotFound when no user has
	// that email or the password does not match.
	FindByEmailAndPassword(ctx context.Context, email, password string) (*models.User, error)
	// FindByID returns models.ErrNotFound for an unknown id.
	FindByID(ctx context.Context, id int) (*models.User, error)
	// InsertIfEmailUnique creates a user with the next id, or returns
	// models.ErrDuplicateEmail. The check and the insert are one atomic step.
	InsertIfEmailUnique(ctx context.Context, name, email, password string) (*models.User, error)
}

// VerifyPassword reports whether the submitted password matches the stored one.
// This is the only place passwords are compared.
func VerifyPassword(stored, submitted string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) == 1
}

// NormalizeEmail is applied to every email before it is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
