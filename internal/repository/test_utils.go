package repository

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/samandr77/microservices/account/pkg/postgres"
)

const testDSNEnv = "TEST_POSTGRES_DSN"

var (
	sharedPool    *pgxpool.Pool
	sharedPoolErr error
	sharedOnce    sync.Once
)

// SetupTestDatabase returns a migrated pool with an empty accounts table.
// Tests are skipped unless TEST_POSTGRES_DSN points at a disposable database.
func SetupTestDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv(testDSNEnv)
	if dsn == "" {
		t.Skip(testDSNEnv + " is not set")
	}

	sharedOnce.Do(func() {
		ctx := context.Background()

		sharedPoolErr = postgres.UpMigrations(ctx, dsn)
		if sharedPoolErr != nil {
			return
		}

		sharedPool, sharedPoolErr = postgres.ConnectToPostgres(ctx, dsn, 4)
	})

	require.NoError(t, sharedPoolErr)

	truncate(t, sharedPool)

	return sharedPool
}

func truncate(t *testing.T, db *pgxpool.Pool) {
	t.Helper()

	_, err := db.Exec(context.Background(), "TRUNCATE TABLE accounts")
	require.NoError(t, err)
}
