// internal/storage/init.go
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationPath = "migrations"

func runMigrations(ctx context.Context, db *sql.DB) error {
	const op = "storage.migrations"

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err := goose.UpContext(ctx, db, migrationPath)
	if err != nil && !errors.Is(err, goose.ErrNoNextVersion) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Migrate applies pending migrations against dsn without opening a record
// backend. Used by the migrate command.
func Migrate(ctx context.Context, dsn string) error {
	const op = "storage.Migrate"

	p, err := NewPostgres(ctx, dsn)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return p.Close()
}
