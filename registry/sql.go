package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"session-auth-demo/config"
	"session-auth-demo/logger"
	"session-auth-demo/models"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLRegistry stores users in the users table created by the database
// migrations. Email uniqueness is enforced by the table's UNIQUE constraint.
type SQLRegistry struct {
	db *sqlx.DB
}

// NewSQLRegistry uses db, which must already be migrated.
func NewSQLRegistry(db *sqlx.DB) *SQLRegistry {
	return &SQLRegistry{db: db}
}

// FindByEmailAndPassword loads the user by email and checks the password in Go.
func (r *SQLRegistry) FindByEmailAndPassword(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	query := r.db.Rebind(`SELECT id, name, email, password FROM users WHERE email = ?`)
	err := r.db.GetContext(ctx, &user, query, NormalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	if !VerifyPassword(user.Password, password) {
		return nil, models.ErrNotFound
	}
	return &user, nil
}

// FindByID loads one user by primary key.
func (r *SQLRegistry) FindByID(ctx context.Context, id int) (*models.User, error) {
	var user models.User
	query := r.db.Rebind(`SELECT id, name, email, password FROM users WHERE id = ?`)
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// InsertIfEmailUnique relies on the UNIQUE constraint for atomicity.
func (r *SQLRegistry) InsertIfEmailUnique(ctx context.Context, name, email, password string) (*models.User, error) {
	user := models.User{Name: name, Email: NormalizeEmail(email), Password: password}

	id, err := r.insert(ctx, user)
	if isUniqueViolation(err) {
		return nil, models.ErrDuplicateEmail
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	user.ID = id
	return &user, nil
}

func (r *SQLRegistry) insert(ctx context.Context, user models.User) (int, error) {
	if r.db.DriverName() == config.UserStorePostgres {
		var id int
		err := r.db.QueryRowxContext(ctx,
			`INSERT INTO users (name, email, password) VALUES ($1, $2, $3) RETURNING id`,
			user.Name, user.Email, user.Password,
		).Scan(&id)
		return id, err
	}

	res, err := r.db.NamedExecContext(ctx,
		`INSERT INTO users (name, email, password) VALUES (:name, :email, :password)`, user)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return int(id), err
}

// Seed inserts users with their fixed ids when the table is empty.
func (r *SQLRegistry) Seed(ctx context.Context, users []models.User) error {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`); err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	for _, u := range users {
		u.Email = NormalizeEmail(u.Email)
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO users (id, name, email, password) VALUES (:id, :name, :email, :password)`, u); err != nil {
			return fmt.Errorf("seed user %d: %w", u.ID, err)
		}
	}

	if r.db.DriverName() == config.UserStorePostgres {
		// explicit ids do not advance the SERIAL sequence
		if _, err := tx.ExecContext(ctx,
			`SELECT setval(pg_get_serial_sequence('users', 'id'), (SELECT MAX(id) FROM users))`); err != nil {
			return fmt.Errorf("reset id sequence: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}

	logger.Info("Seeded user registry", zap.Int("users", len(users)))
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
