package clickhouse

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a ClickHouse container and returns a connection.
// Returns a cleanup function that must be called when done.
func setupTestDB(t *testing.T) (*Conn, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "clickhouse/clickhouse-server:24.1-alpine",
		ExposedPorts: []string{"9000/tcp", "8123/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Application: Ready for connections").
				WithStartupTimeout(60*time.Second),
			wait.ForListeningPort("9000/tcp"),
		),
		Env: map[string]string{
			"CLICKHOUSE_DB":       "test",
			"CLICKHOUSE_USER":     "default",
			"CLICKHOUSE_PASSWORD": "",
		},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	dsn := fmt.Sprintf("clickhouse://%s:%s/test", host, port.Port())

	conn, err := NewConn(ctx, dsn)
	require.NoError(t, err)

	runMigrations(t, conn)

	cleanup := func() {
		conn.Close()
		_ = container.Terminate(ctx)
	}

	return conn, cleanup
}

// runMigrations creates the archive schema directly; the embedded migration
// file is the authoritative copy and mirrors this statement.
func runMigrations(t *testing.T, conn *Conn) {
	t.Helper()
	ctx := context.Background()

	err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS token_signals (
			token_address       String,
			computed_at         UInt64,
			symbol              String,
			name                String,
			signal_type         String,
			confidence          UInt8,
			combined_score      UInt8,
			smart_money_score   UInt8,
			momentum_score      UInt8,
			pattern_score       UInt8,
			smart_money_count   UInt16,
			whale_count         UInt16,
			smart_money_buying  Bool,
			smart_money_selling Bool,
			volume_trend        String,
			volume_ratio        Float64,
			buy_pressure        Float64,
			net_pressure        Float64,
			price_momentum_24h  Float64,
			rsi                 Float64,
			trend_direction     String,
			current_price       Float64
		) ENGINE = MergeTree()
		ORDER BY (token_address, computed_at)
		SETTINGS index_granularity = 8192
	`)
	require.NoError(t, err)
}
