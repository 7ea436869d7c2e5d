package clickhouse

import (
	"errors"
	"net"
	"testing"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ava-labs/auditlog/pkg/clickhouse/testutils"
	"github.com/ava-labs/auditlog/pkg/utils"
)

// testLogger creates a test logger for use in tests
func testLogger(t *testing.T) *zap.SugaredLogger {
	logger, err := utils.NewSugaredLogger(true)
	require.NoError(t, err)
	return logger
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Hosts)
	assert.Equal(t, 60, cfg.MaxExecutionTime)
	assert.Equal(t, 10, cfg.BlockBufferSize)
	assert.Equal(t, 10240, cfg.MaxCompressionBuffer)
	assert.NotEmpty(t, cfg.ClientName)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("CLICKHOUSE_HOSTS", "ch-1:9000,ch-2:9000")
	t.Setenv("CLICKHOUSE_DATABASE", "audit")
	t.Setenv("CLICKHOUSE_DEBUG", "true")
	t.Setenv("CLICKHOUSE_MAX_OPEN_CONNS", "12")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"ch-1:9000", "ch-2:9000"}, cfg.Hosts)
	assert.Equal(t, "audit", cfg.Database)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 12, cfg.MaxOpenConns)
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("CLICKHOUSE_MAX_OPEN_CONNS", "many")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse clickhouse config")
}

func TestNew_InvalidPort(t *testing.T) {
	cfg := Config{
		Hosts:       []string{"invalid:99999"},
		Database:    "test",
		Username:    "test",
		Password:    "test",
		Debug:       true,
		DialTimeout: 1,
	}

	client, err := New(cfg, testLogger(t))

	var addrErr *net.AddrError
	require.ErrorAs(t, err, &addrErr)
	require.Equal(t, "invalid port", addrErr.Err)
	assert.Nil(t, client)
}

func TestNew_ConnectionRefused(t *testing.T) {
	cfg := Config{
		Hosts:       []string{"127.0.0.1:1"},
		Database:    "test",
		Username:    "test",
		Password:    "test",
		DialTimeout: 1,
	}

	client, err := New(cfg, testLogger(t))

	var netErr *net.OpError
	require.ErrorAs(t, err, &netErr)
	assert.Nil(t, client)
}

func TestTestClient_SatisfiesClient(t *testing.T) {
	mockConn := &testutils.MockConn{}
	mockConn.On("Ping", t.Context()).Return(nil)
	mockConn.On("Close").Return(nil)

	var c Client = testutils.NewTestClient(mockConn)
	assert.Equal(t, mockConn, c.Conn())
	require.NoError(t, c.Ping(t.Context()))
	require.NoError(t, c.Close())
	mockConn.AssertExpectations(t)
}

func TestTestClient_PingException(t *testing.T) {
	exception := &clickhouse.Exception{Code: 516, Message: "Authentication failed"}
	mockConn := &testutils.MockConn{}
	mockConn.On("Ping", t.Context()).Return(exception)

	err := testutils.NewTestClient(mockConn).Ping(t.Context())

	var ex *clickhouse.Exception
	require.True(t, errors.As(err, &ex))
	assert.Equal(t, int32(516), ex.Code)
	mockConn.AssertExpectations(t)
}
