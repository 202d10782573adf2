package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goose "github.com/pressly/goose/v3"

	"github.com/samandr77/microservices/account/migrations"

	_ "github.com/jackc/pgx/v5/stdlib" //nolint:blank-imports
)

const (
	pingAttempts = 10
	pingInterval = 500 * time.Millisecond
)

// ConnectToPostgres opens a pool and waits until the database answers,
// which lets the service start alongside its database container.
func ConnectToPostgres(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	err = waitReady(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

func waitReady(ctx context.Context, pool *pgxpool.Pool) error {
	var err error

	for attempt := 1; attempt <= pingAttempts; attempt++ {
		err = pool.Ping(ctx)
		if err == nil {
			return nil
		}

		slog.DebugContext(ctx, "postgres is not ready", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for postgres: %w", ctx.Err())
		case <-time.After(pingInterval):
		}
	}

	return fmt.Errorf("ping postgres after %d attempts: %w", pingAttempts, err)
}

// UpMigrations applies the embedded schema migrations that are not applied
// yet.
func UpMigrations(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migrations connection: %w", err)
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	for _, r := range results {
		slog.InfoContext(ctx, "migration applied", "version", r.Source.Version, "duration_ms", r.Duration.Milliseconds())
	}

	return nil
}
