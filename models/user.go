package models

// User is a registered account. Users are created by registration and are
// never updated or deleted.
type User struct {
	ID    int    `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
	// Stored and compared as given; omitted from JSON
	Password string `json:"-" db:"password"`
}

// LoginRequest holds the submitted login form.
type LoginRequest struct {
	Email    string
	Password string
}

// RegisterRequest holds the submitted registration form.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
}

// DefaultUsers returns the accounts every fresh registry starts with.
func DefaultUsers() []User {
	return []User{
		{ID: 1, Name: "Alex", Email: "alex@gmail.com", Password: "secret"},
		{ID: 2, Name: "Max", Email: "max@gmail.com", Password: "secret"},
		{ID: 3, Name: "Hagard", Email: "hagard@gmail.com", Password: "secret"},
	}
}
