// Package testhelpers provides shared fixtures for integration tests.
package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// WarehouseTestImage is the stock PostgreSQL image used as a stand-in warehouse.
const WarehouseTestImage = "postgres:16-alpine"

const (
	testUser     = "milkyway"
	testPassword = "test_password"
	testDatabase = "analytics"
)

// sampleSchema mirrors the sample data the CLI loads: one activity table with
// an id column, a timestamp and an event type, plus a table with no id-like
// column for the manual-entry path.
const sampleSchema = `
CREATE SCHEMA sessions;
CREATE TABLE sessions.user_activity (
	id          bigserial PRIMARY KEY,
	user_id     text NOT NULL,
	event_time  timestamptz NOT NULL,
	event_type  text NOT NULL,
	amount      numeric(10,2)
);
INSERT INTO sessions.user_activity (user_id, event_time, event_type, amount) VALUES
	('u1', '2025-01-03 10:00:00+00', 'login', NULL),
	('u2', '2025-01-05 11:00:00+00', 'purchase', 19.99),
	('u1', '2025-02-01 09:30:00+00', 'purchase', 5.00);
CREATE TABLE sessions.lookup (
	label text,
	logged date
);
`

// TestDB holds a shared warehouse container and connection pool.
type TestDB struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
	ConnStr   string
	Host      string
	Port      int
	User      string
	Password  string
	Database  string
}

// ConfigMap returns the adapter config map for the container.
func (db *TestDB) ConfigMap() map[string]any {
	return map[string]any{
		"host":     db.Host,
		"port":     db.Port,
		"user":     db.User,
		"password": db.Password,
		"database": db.Database,
		"ssl_mode": "disable",
	}
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a shared PostgreSQL container for integration tests.
// The container is created once and reused across all tests in the run.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        WarehouseTestImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       testDatabase,
			"POSTGRES_USER":     testUser,
			"POSTGRES_PASSWORD": testPassword,
		},
		// postgres restarts once after init; the second ready line is the real one
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		testUser, testPassword, host, port.Port(), testDatabase)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		return nil, fmt.Errorf("database never became reachable: %w", err)
	}

	if _, err := pool.Exec(ctx, sampleSchema); err != nil {
		return nil, fmt.Errorf("failed to load sample schema: %w", err)
	}

	return &TestDB{
		Container: container,
		Pool:      pool,
		ConnStr:   connStr,
		Host:      host,
		Port:      port.Int(),
		User:      testUser,
		Password:  testPassword,
		Database:  testDatabase,
	}, nil
}
