// Package cli provides common initialization shared by cmd/spendwise and
// cmd/spendwise-cli.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"spendwise/internal/auth"
	"spendwise/internal/config"
	"spendwise/internal/core"
	applog "spendwise/internal/log"
	"spendwise/internal/storage"
	"spendwise/internal/store/memory"
)

// SetupLogger builds the application logger from the configured level and
// format and installs it as the slog default.
func SetupLogger(cfg *config.Config, w io.Writer) *applog.Logger {
	if w == nil {
		w = os.Stdout
	}
	level, _ := applog.ParseLevel(cfg.LogLevel)
	format, _ := applog.ParseFormat(cfg.LogFormat)
	logger := applog.New(applog.Config{
		Level:     level,
		Component: applog.ComponentApp,
		Format:    format,
		Output:    w,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// InitUserStore opens the configured credential store. The returned close
// function is never nil.
func InitUserStore(cfg *config.Config, logger *applog.Logger) (auth.Repository, func() error, error) {
	switch cfg.UserStore {
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize SQLite user store at %s: %w", cfg.SQLiteDBPath, err)
		}
		logger.Info("Using SQLite user store", applog.FieldPath, cfg.SQLiteDBPath)
		return repo, repo.Close, nil
	default:
		logger.Info("Using in-memory user store")
		return auth.NewMemoryRepository(), func() error { return nil }, nil
	}
}

// SeedCategories returns the categories every new session ledger starts with.
// Without a seed file these are core.DefaultCategories.
func SeedCategories(cfg *config.Config) ([]core.Category, error) {
	cats, err := memory.LoadCategories(cfg.CategorySeedFile)
	if err != nil {
		return nil, fmt.Errorf("load category seed: %w", err)
	}
	return cats, nil
}
