package main

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"session-auth-demo/config"
	"session-auth-demo/database"
	"session-auth-demo/logger"
	"session-auth-demo/server"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrationName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// cfg is loaded once before any command runs.
var cfg *config.Config

func main() {
	rootCmd := &cobra.Command{
		Use:   "session-auth-demo",
		Short: "Session cookie authentication demo server",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}
			return logger.Init(logger.LoggerConfig{
				Level:       cfg.LogLevel,
				Development: !cfg.InProduction(),
				CallerKey:   "file",
				TimeKey:     "timestamp",
				CallerSkip:  1,
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	start := startCmd()
	rootCmd.RunE = start.RunE
	rootCmd.Flags().AddFlagSet(start.Flags())

	rootCmd.AddCommand(
		start,
		migrateCmd(),
		createMigrationCmd(),
	)

	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func startCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				cfg.Port = port
			}
			if err := server.StartServer(cfg); err != nil {
				logger.Error("Server stopped with error", zap.Error(err))
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides PORT)")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations for the configured USER_STORE",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.InitializeDatabase(context.Background(), cfg)
			if err != nil {
				return err
			}
			return db.Close()
		},
	}
}

func createMigrationCmd() *cobra.Command {
	var (
		name string
		dir  string
	)

	cmd := &cobra.Command{
		Use:   "create-migration",
		Short: "Create an empty SQL migration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !migrationName.MatchString(name) {
				return fmt.Errorf("migration name must be alphanumeric or underscore, got %q", name)
			}
			return goose.Create(nil, dir, name, "sql")
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Migration name (alphanum+underscore only)")
	cmd.Flags().StringVar(&dir, "dir", "./database/migrations/sqlite3", "Target directory for the new .sql file")
	return cmd
}
