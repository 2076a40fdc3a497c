package db

import (
	"context"
	"fmt"

	"github.com/geocoder89/familytree/internal/db/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

func configureGoose() error {
	goose.SetBaseFS(migrations.FS)
	return goose.SetDialect("postgres")
}

// Migrate applies the embedded migrations through a database/sql view of
// the pool.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if err := configureGoose(); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	conn := stdlib.OpenDBFromPool(pool)
	defer conn.Close()

	if err := goose.UpContext(ctx, conn, "."); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// MigrationStatus logs the applied/pending state of every migration.
func MigrationStatus(ctx context.Context, pool *pgxpool.Pool) error {
	if err := configureGoose(); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	conn := stdlib.OpenDBFromPool(pool)
	defer conn.Close()

	return goose.StatusContext(ctx, conn, ".")
}
