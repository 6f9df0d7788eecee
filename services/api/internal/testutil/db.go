package testutil

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/migrations"
)

const testDBLockID int64 = 801234568

var (
	containerOnce sync.Once
	containerDSN  string
	containerErr  error
)

// NewTestPool connects to TEST_DATABASE_URL, or to a throwaway Postgres
// container when it is unset. The test is skipped when neither is available.
// The pool holds an advisory lock until the test ends so packages sharing a
// database do not interleave.
func NewTestPool(t *testing.T) (*pgxpool.Pool, string) {
	t.Helper()
	dsn := testDSN(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}
	cfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("skipping Postgres integration tests: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
	})

	lockTestDB(t, pool)

	return pool, dsn
}

func testDSN(t *testing.T) string {
	t.Helper()
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		return dsn
	}
	containerOnce.Do(func() {
		containerDSN, containerErr = startPostgres(context.Background())
	})
	if containerErr != nil {
		t.Skipf("skipping Postgres integration tests: %v", containerErr)
	}
	return containerDSN
}

func startPostgres(ctx context.Context) (dsn string, err error) {
	defer func() {
		// testcontainers panics when no Docker host can be found.
		if r := recover(); r != nil {
			err = fmt.Errorf("start postgres container: %v", r)
		}
	}()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_PASSWORD": "escrow", "POSTGRES_USER": "escrow", "POSTGRES_DB": "escrow"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start postgres container: %w", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return "", fmt.Errorf("container port: %w", err)
	}
	return fmt.Sprintf("postgres://escrow:escrow@%s:%s/escrow?sslmode=disable", host, port.Port()), nil
}

func ApplyMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	if err := migrations.Apply(ctx, dsn, zerolog.Nop()); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}
}

func TruncateAll(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(ctx, `TRUNCATE order_audit, orders, users CASCADE`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

func InsertUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool, id, role string) {
	t.Helper()
	if _, err := pool.Exec(ctx, `INSERT INTO users (id, role) VALUES ($1, $2)`, id, role); err != nil {
		t.Fatalf("insert user: %v", err)
	}
}

func lockTestDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire lock conn: %v", err)
	}
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, testDBLockID); err != nil {
		conn.Release()
		t.Fatalf("acquire test lock: %v", err)
	}

	t.Cleanup(func() {
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, testDBLockID)
		conn.Release()
	})
}
