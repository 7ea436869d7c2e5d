package deploy_test

import (
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ava-labs/libevm/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/auditlog/pkg/deploy"
	"github.com/ava-labs/auditlog/pkg/identity"
	"github.com/ava-labs/auditlog/pkg/ledger"
	"github.com/ava-labs/auditlog/pkg/ledger/evm"
	"github.com/ava-labs/auditlog/pkg/ledger/evm/evmtest"
)

const testChainID = 43112

func TestDeploy_ThenAppend(t *testing.T) {
	backend := evmtest.NewBackend(testChainID)
	signer, err := identity.GenerateKeySigner()
	require.NoError(t, err)

	res, err := deploy.Deploy(t.Context(), backend, big.NewInt(testChainID), signer, []byte{0x60, 0x80, 0x60, 0x40}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, common.Address{}, res.Address)
	assert.Equal(t, signer.Address(), res.Deployer)
	assert.Equal(t, 1, backend.Sent())

	store, err := evm.NewStore(res.Address, backend, big.NewInt(testChainID))
	require.NoError(t, err)
	_, err = store.Append(t.Context(), signer, ledger.AppendRequest{Verb: "CREATE"})
	require.NoError(t, err)
	total, err := store.TotalCount(t.Context())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
}

func TestDeploy_Validation(t *testing.T) {
	backend := evmtest.NewBackend(testChainID)
	signer, err := identity.GenerateKeySigner()
	require.NoError(t, err)

	_, err = deploy.Deploy(t.Context(), backend, big.NewInt(testChainID), nil, []byte{0x60}, nil)
	require.ErrorIs(t, err, ledger.ErrConfiguration)

	_, err = deploy.Deploy(t.Context(), backend, big.NewInt(testChainID), signer, nil, nil)
	require.ErrorIs(t, err, ledger.ErrConfiguration)
	assert.Zero(t, backend.Sent())
}

func TestReadBytecode(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    []byte
		wantErr bool
	}{
		{name: "solc output", content: "60806040\n", want: []byte{0x60, 0x80, 0x60, 0x40}},
		{name: "prefixed", content: "0x6080", want: []byte{0x60, 0x80}},
		{name: "odd length", content: "608", wantErr: true},
		{name: "not hex", content: "zz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".bin")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			got, err := deploy.ReadBytecode(path)
			if tt.wantErr {
				require.ErrorIs(t, err, ledger.ErrConfiguration)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := deploy.ReadBytecode(filepath.Join(dir, "missing.bin"))
	require.ErrorIs(t, err, ledger.ErrConfiguration)
}

type fakeBalances struct {
	wei *big.Int
	err error
}

func (f fakeBalances) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return f.wei, f.err
}

func TestBalance(t *testing.T) {
	oneAndHalf, _ := new(big.Int).SetString("1500000000000000000", 10)

	got, err := deploy.Balance(t.Context(), fakeBalances{wei: oneAndHalf}, common.Address{})
	require.NoError(t, err)
	assert.Equal(t, "1.5000", got)

	_, err = deploy.Balance(t.Context(), fakeBalances{err: errors.New("down")}, common.Address{})
	require.ErrorIs(t, err, ledger.ErrTransport)

	assert.Equal(t, "0.0000", deploy.FormatBalance(nil))
}

func TestWriteRecord(t *testing.T) {
	old := deploy.Now
	deploy.Now = func() time.Time { return time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC) }
	t.Cleanup(func() { deploy.Now = old })

	dir := filepath.Join(t.TempDir(), "artifacts", "deployments")
	rec := deploy.NewRecord("avalanche-fuji", "0x5FbDB2315678afecb367f032d93F642f64180aa3", "ledger")

	path, err := deploy.WriteRecord(dir, rec)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "avalanche-fuji.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{
  "network": "avalanche-fuji",
  "address": "0x5FbDB2315678afecb367f032d93F642f64180aa3",
  "deployer": "ledger",
  "timestamp": "2024-05-01T12:30:00Z"
}`, string(data))

	back, err := deploy.ReadRecord(path)
	require.NoError(t, err)
	assert.Equal(t, rec, back)

	_, err = deploy.WriteRecord(dir, deploy.Record{})
	require.Error(t, err)
}

func TestUpsertEnv(t *testing.T) {
	tests := []struct {
		name     string
		existing *string
		want     string
	}{
		{name: "missing file", existing: nil, want: "AUDIT_LOG_ADDRESS=0xabc\n"},
		{name: "empty file", existing: ptr(""), want: "AUDIT_LOG_ADDRESS=0xabc\n"},
		{
			name:     "keeps other lines",
			existing: ptr("RPC_URL=http://localhost:9650\n# comment\n"),
			want:     "RPC_URL=http://localhost:9650\n# comment\nAUDIT_LOG_ADDRESS=0xabc\n",
		},
		{
			name:     "replaces every earlier entry",
			existing: ptr("AUDIT_LOG_ADDRESS=0x1\nA=1\nAUDIT_LOG_ADDRESS=0x2\n"),
			want:     "A=1\nAUDIT_LOG_ADDRESS=0xabc\n",
		},
		{
			name:     "similar key untouched",
			existing: ptr("AUDIT_LOG_ADDRESS_OLD=0x1"),
			want:     "AUDIT_LOG_ADDRESS_OLD=0x1\nAUDIT_LOG_ADDRESS=0xabc\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "dir", ".env")
			if tt.existing != nil {
				require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
				require.NoError(t, os.WriteFile(path, []byte(*tt.existing), 0o644))
			}

			require.NoError(t, deploy.UpsertEnv(path, deploy.AddressEnvKey, "0xabc"))

			got, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestResolveEnvPath(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(deploy.EnvPathEnvKey, "")

	assert.Equal(t, "explicit.env", deploy.ResolveEnvPath("explicit.env"))
	assert.Empty(t, deploy.ResolveEnvPath(""))

	require.NoError(t, os.WriteFile(".env", nil, 0o644))
	assert.Equal(t, ".env", deploy.ResolveEnvPath(""))

	t.Setenv(deploy.EnvPathEnvKey, "/etc/auditlog.env")
	assert.Equal(t, "/etc/auditlog.env", deploy.ResolveEnvPath(""))
}

func ptr(s string) *string { return &s }
