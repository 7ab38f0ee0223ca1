// Package cli provides common initialization used by the bilancio commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"bilancio/internal/auth"
	"bilancio/internal/config"
	"bilancio/internal/log"
	"bilancio/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile(paths ...string) {
	_ = godotenv.Load(paths...)
}

// SetupLogger initializes structured logging at the configured level and
// sets it as the default logger.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UserService opens the users database and returns the auth service on top
// of it, plus a function closing the database.
func UserService(cfg *config.Config, logger *log.Logger) (*auth.Service, func() error, error) {
	db, err := storage.OpenSQLite(cfg.UsersDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open users database: %w", err)
	}
	return auth.NewService(storage.NewSQLiteUsers(db), logger), db.Close, nil
}

// Credentials resolves the login from flags, falling back to
// BILANCIO_EMAIL and BILANCIO_PASSWORD.
func Credentials(email, password string) (string, string) {
	if email == "" {
		email = os.Getenv("BILANCIO_EMAIL")
	}
	if password == "" {
		password = os.Getenv("BILANCIO_PASSWORD")
	}
	return email, password
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
