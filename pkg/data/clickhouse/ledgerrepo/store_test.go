package ledgerrepo

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ava-labs/libevm/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/auditlog/pkg/clickhouse/testutils"
	"github.com/ava-labs/auditlog/pkg/identity"
	"github.com/ava-labs/auditlog/pkg/ledger"
)

// fakeRepository keeps rows in memory and can be told to fail.
type fakeRepository struct {
	mu      sync.Mutex
	rows    []EntryRow
	failErr error
}

func (f *fakeRepository) Initialize(context.Context) error { return nil }

func (f *fakeRepository) Insert(_ context.Context, row *EntryRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	if row.Index != uint64(len(f.rows)) {
		return errors.New("index gap")
	}
	f.rows = append(f.rows, *row)
	return nil
}

func (f *fakeRepository) Count(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return 0, f.failErr
	}
	return uint64(len(f.rows)), nil
}

func (f *fakeRepository) Get(_ context.Context, index uint64) (*EntryRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	if index >= uint64(len(f.rows)) {
		return nil, ErrNotFound
	}
	row := f.rows[index]
	return &row, nil
}

func TestStore_AppendAndGet(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	fixed := time.Unix(1_700_000_000, 0)
	repo := &fakeRepository{}
	s := NewStore(repo, WithClock(func() time.Time { return fixed }))
	signer, err := identity.GenerateKeySigner()
	require.NoError(t, err)

	hash := common.HexToHash("0x" + strings.Repeat("cd", 32))
	receipt, err := s.Append(ctx, signer, ledger.AppendRequest{Verb: "CREATE", PayloadHash: hash, RefID: "ref-1"})
	require.NoError(t, err)
	require.NotNil(t, receipt.Index)
	assert.Equal(t, uint64(0), *receipt.Index)
	assert.NotEmpty(t, receipt.TxnHash)

	require.Len(t, repo.rows, 1)
	assert.Equal(t, strings.ToLower(signer.Address().Hex()), repo.rows[0].Actor)
	assert.Len(t, repo.rows[0].Signature, 2+130)

	entry, err := s.GetEntry(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, ledger.LogEntry{
		Index:       0,
		Actor:       signer.Address(),
		PayloadHash: hash,
		Verb:        "CREATE",
		RefID:       "ref-1",
		Timestamp:   uint64(fixed.Unix()),
	}, *entry)
}

func TestStore_ConcurrentAppendsAreGapFree(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	repo := &fakeRepository{}
	s := NewStore(repo)
	signer, err := identity.GenerateKeySigner()
	require.NoError(t, err)

	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Append(ctx, signer, ledger.AppendRequest{Verb: "EVENT"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	total, err := s.TotalCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(n), total)
}

func TestStore_GetEntryOutOfRange(t *testing.T) {
	t.Parallel()
	s := NewStore(&fakeRepository{})

	_, err := s.GetEntry(t.Context(), 0)
	var oor *ledger.OutOfRangeError
	require.True(t, errors.As(err, &oor))
	assert.Equal(t, uint64(0), oor.Total)
}

func TestStore_RepositoryFailureIsTransport(t *testing.T) {
	t.Parallel()
	repo := &fakeRepository{failErr: errors.New("connection reset")}
	s := NewStore(repo)
	signer, err := identity.GenerateKeySigner()
	require.NoError(t, err)

	_, err = s.Append(t.Context(), signer, ledger.AppendRequest{Verb: "CREATE"})
	require.ErrorIs(t, err, ledger.ErrTransport)

	_, err = s.TotalCount(t.Context())
	require.ErrorIs(t, err, ledger.ErrTransport)

	_, err = s.GetEntry(t.Context(), 0)
	require.ErrorIs(t, err, ledger.ErrTransport)
}

func TestStore_MalformedRowIsTransport(t *testing.T) {
	t.Parallel()
	repo := &fakeRepository{rows: []EntryRow{{Index: 0, Actor: "bogus", PayloadHash: "0x00"}}}
	s := NewStore(repo)

	_, err := s.GetEntry(t.Context(), 0)
	require.ErrorIs(t, err, ledger.ErrTransport)
}

func TestValidIdentifier(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"audit_log", true},
		{"_ledger2", true},
		{"AuditLog", true},
		{"", false},
		{"2fast", false},
		{"audit-log", false},
		{"audit_log; DROP TABLE x", false},
		{strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidIdentifier(tt.name))
		})
	}
}

func TestResolver_ResolveStore(t *testing.T) {
	t.Parallel()
	mockConn := &testutils.MockConn{}
	mockConn.On("Exec", mock.Anything, mock.MatchedBy(isCreateTable)).Return(nil).Once()

	r, err := NewResolver(testutils.NewTestClient(mockConn), "default")
	require.NoError(t, err)

	a, err := r.ResolveStore(t.Context(), "audit_log")
	require.NoError(t, err)
	b, err := r.ResolveStore(t.Context(), "audit_log")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = r.ResolveStore(t.Context(), "audit-log")
	require.ErrorIs(t, err, ledger.ErrConfiguration)
	mockConn.AssertExpectations(t)
}

func TestNewResolver_InvalidDatabase(t *testing.T) {
	t.Parallel()
	_, err := NewResolver(testutils.NewTestClient(&testutils.MockConn{}), "bad name")
	require.ErrorIs(t, err, ledger.ErrConfiguration)
}

func TestResolver_CreateTableFailure(t *testing.T) {
	t.Parallel()
	mockConn := &testutils.MockConn{}
	mockConn.On("Exec", mock.Anything, mock.MatchedBy(isCreateTable)).Return(errors.New("readonly"))

	r, err := NewResolver(testutils.NewTestClient(mockConn), "default")
	require.NoError(t, err)

	_, err = r.ResolveStore(t.Context(), "audit_log")
	require.ErrorIs(t, err, ledger.ErrTransport)
}
