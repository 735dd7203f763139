package main

import (
	"context"
	"errors"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"photocurate/internal/storage"
)

func newMigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply postgres migrations for the record store",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.Storage.DatabaseURL == "" {
				return errors.New("migrate: storage.database_url (DATABASE_URL) is not set")
			}
			if err := storage.Migrate(ctx, cfg.Storage.DatabaseURL); err != nil {
				return fmt.Errorf("failed to migrate: %w", err)
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
}
