package db

import (
	"errors"
	"fmt"

	"github.com/ninouGx/run-sous-bpm/internal/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrate applies all pending migrations. Already being at the latest
// version is not an error.
func Migrate(cfg config.Config) error {
	m, err := migrate.New(cfg.MigrationsURL, cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
