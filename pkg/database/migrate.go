package database

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// MigrateUp applies every pending migration
func (db *DB) MigrateUp(ctx context.Context) error {
	return db.migrate(ctx, func(p *goose.Provider) error {
		_, err := p.Up(ctx)
		return err
	})
}

// MigrateDown rolls back the most recent migration
func (db *DB) MigrateDown(ctx context.Context) error {
	return db.migrate(ctx, func(p *goose.Provider) error {
		_, err := p.Down(ctx)
		return err
	})
}

// MigrationStatus describes a single migration and whether it is applied
type MigrationStatus struct {
	Version int64
	Source  string
	Applied bool
}

// MigrateStatus lists known migrations
func (db *DB) MigrateStatus(ctx context.Context) ([]MigrationStatus, error) {
	var out []MigrationStatus
	err := db.migrate(ctx, func(p *goose.Provider) error {
		statuses, err := p.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			out = append(out, MigrationStatus{
				Version: s.Source.Version,
				Source:  s.Source.Path,
				Applied: s.State == goose.StateApplied,
			})
		}
		return nil
	})
	return out, err
}

func (db *DB) migrate(ctx context.Context, fn func(*goose.Provider) error) error {
	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	defer sqlDB.Close()

	provider, err := NewMigrationProvider(sqlDB)
	if err != nil {
		return err
	}

	if err := fn(provider); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
