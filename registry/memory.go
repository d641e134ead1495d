package registry

import (
	"context"
	"sync"

	"session-auth-demo/models"
)

// MemoryRegistry keeps users in process memory. Contents are lost on restart.
type MemoryRegistry struct {
	mu    sync.RWMutex
	users []models.User
}

// NewMemoryRegistry returns a registry holding users. New users get ids after
// the highest seeded id.
func NewMemoryRegistry(users ...models.User) *MemoryRegistry {
	r := &MemoryRegistry{users: make([]models.User, 0, len(users))}
	for _, u := range users {
		u.Email = NormalizeEmail(u.Email)
		r.users = append(r.users, u)
	}
	return r
}

// FindByEmailAndPassword scans for a matching email and password.
func (r *MemoryRegistry) FindByEmailAndPassword(ctx context.Context, email, password string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	email = NormalizeEmail(email)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email && VerifyPassword(u.Password, password) {
			found := u
			return &found, nil
		}
	}
	return nil, models.ErrNotFound
}

// FindByID returns a copy of the user with id.
func (r *MemoryRegistry) FindByID(ctx context.Context, id int) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.ID == id {
			found := u
			return &found, nil
		}
	}
	return nil, models.ErrNotFound
}

// InsertIfEmailUnique checks and appends under the write lock.
func (r *MemoryRegistry) InsertIfEmailUnique(ctx context.Context, name, email, password string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	email = NormalizeEmail(email)

	r.mu.Lock()
	defer r.mu.Unlock()

	nextID := 1
	for _, u := range r.users {
		if u.Email == email {
			return nil, models.ErrDuplicateEmail
		}
		if u.ID >= nextID {
			nextID = u.ID + 1
		}
	}

	u := models.User{ID: nextID, Name: name, Email: email, Password: password}
	r.users = append(r.users, u)
	return &u, nil
}

// Len returns the number of registered users.
func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
