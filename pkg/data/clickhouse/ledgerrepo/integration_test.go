//go:build integration
// +build integration

package ledgerrepo

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/auditlog/pkg/clickhouse"
	"github.com/ava-labs/auditlog/pkg/identity"
	"github.com/ava-labs/auditlog/pkg/ledger"
	"github.com/ava-labs/auditlog/pkg/utils"
)

var testClient clickhouse.Client

// TestMain connects to the ClickHouse instance described by pkg/clickhouse/.env.test.
// Integration tests require a running ClickHouse instance.
func TestMain(m *testing.M) {
	if _, currentFile, _, ok := runtime.Caller(0); ok {
		envPath := filepath.Join(filepath.Dir(currentFile), "..", "..", "..", "clickhouse", ".env.test")
		if err := godotenv.Load(envPath); err != nil {
			log.Printf("integration: could not load %s: %v (using defaults)", envPath, err)
		}
	}

	cfg, err := clickhouse.Load()
	if err != nil {
		log.Fatalf("integration: %v", err)
	}
	cfg.DialTimeout = 5

	sugar, err := utils.NewSugaredLogger(true)
	if err != nil {
		log.Fatalf("integration: failed to create logger: %v", err)
	}
	testClient, err = clickhouse.New(cfg, sugar)
	if err != nil {
		log.Fatalf("integration: failed to open ClickHouse connection: %v", err)
	}

	code := m.Run()
	_ = testClient.Close()
	os.Exit(code)
}

func TestIntegration_AppendFetchRoundTrip(t *testing.T) {
	ctx := context.Background()
	table := fmt.Sprintf("audit_log_it_%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_ = testClient.Conn().Exec(context.Background(), fmt.Sprintf("DROP TABLE IF EXISTS default.%s", table))
	})

	r, err := NewResolver(testClient, "default")
	require.NoError(t, err)
	store, err := r.ResolveStore(ctx, table)
	require.NoError(t, err)

	signer, err := identity.GenerateKeySigner()
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		receipt, err := store.Append(ctx, signer, ledger.AppendRequest{Verb: "CREATE", RefID: fmt.Sprintf("ref-%d", i)})
		require.NoError(t, err)
		require.Equal(t, uint64(i), *receipt.Index)
	}

	total, err := store.TotalCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), total)

	entry, err := store.GetEntry(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "ref-2", entry.RefID)
	assert.Equal(t, signer.Address(), entry.Actor)

	_, err = store.GetEntry(ctx, 3)
	require.ErrorIs(t, err, ledger.ErrOutOfRange)
}
