// Package testutils provides a mock ClickHouse connection and a client
// wrapper for unit tests that must not reach a real server.
package testutils

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// TestClient satisfies clickhouse.Client around an arbitrary connection.
type TestClient struct {
	conn driver.Conn
}

// NewTestClient creates a client with a provided connection for testing purposes.
func NewTestClient(conn driver.Conn) *TestClient {
	return &TestClient{conn: conn}
}

func (c *TestClient) Conn() driver.Conn {
	return c.conn
}

func (c *TestClient) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *TestClient) Close() error {
	return c.conn.Close()
}
