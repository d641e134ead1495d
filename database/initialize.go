package database

import (
	"context"
	"embed"
	"fmt"
	"sync"

	"session-auth-demo/config"
	"session-auth-demo/logger"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*/*.sql
var migrationsFS embed.FS

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

// InitializeDatabase opens the SQL user store named by cfg.UserStore and
// brings its schema up to date.
func InitializeDatabase(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	if !cfg.UsesSQLRegistry() {
		return nil, fmt.Errorf("user store %q is not a SQL database", cfg.UserStore)
	}

	db, err := Open(ctx, cfg.UserStore, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		logger.Error("Error while running migration", zap.Error(err))
		return nil, err
	}

	logger.Info("Database initialized successfully", zap.String("driver", cfg.UserStore))
	return db, nil
}

// Open connects with one of the registered drivers and checks the connection.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if driver == config.UserStoreSQLite {
		// one writer at a time; also keeps ":memory:" databases on a single connection
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// Migrate applies every pending migration for the connection's driver.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	dialect := db.DriverName()

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db.DB, "migrations/"+dialect); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
