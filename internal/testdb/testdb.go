// Package testdb starts one PostgreSQL container per test binary and hands
// out a migrated, emptied database to each test.
package testdb

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/SirPen9uin/shop-api/db"
	"github.com/SirPen9uin/shop-api/pkg/database"
)

const truncateAll = "TRUNCATE users, shops, categories, parameters RESTART IDENTITY CASCADE"

type instance struct {
	container *postgres.PostgresContainer
	url       string
	db        database.DB
}

var (
	once     sync.Once
	shared   *instance
	startErr error
)

// Logger returns the development logger used by database tests.
func Logger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func start() {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("shop"),
		postgres.WithUsername("shop"),
		postgres.WithPassword("shop"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		startErr = err
		return
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		startErr = err
		return
	}

	logger := Logger()
	if err := database.NewMigrationService(logger, db.Migrations(), nil).Migrate(url); err != nil {
		startErr = err
		return
	}

	conn, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		startErr = err
		return
	}

	shared = &instance{
		container: container,
		url:       url,
		db:        database.NewDatabaseInstance(conn, logger),
	}
}

// New returns a handle to an empty, migrated database. It skips the test in
// short mode or when no container runtime is available.
func New(t *testing.T) database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	once.Do(start)
	require.NoError(t, startErr, "failed to start postgres container")

	_, err := shared.db.ExecContext(context.Background(), truncateAll)
	require.NoError(t, err, "failed to truncate tables")

	return shared.db
}

// URL returns the connection URL of the shared database.
func URL(t *testing.T) string {
	t.Helper()
	New(t)
	return shared.url
}

// Shutdown terminates the container. Call it from TestMain after m.Run.
func Shutdown() {
	if shared == nil {
		return
	}
	_ = shared.db.Close()
	_ = shared.container.Terminate(context.Background())
}
