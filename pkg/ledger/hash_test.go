package ledger_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/ava-labs/libevm/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/auditlog/pkg/identity"
	"github.com/ava-labs/auditlog/pkg/ledger"
)

func TestParsePayloadHash(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		want           common.Hash
		wantConstraint string
	}{
		{
			name:  "zero hash",
			input: "0x" + strings.Repeat("00", 32),
			want:  common.Hash{},
		},
		{
			name:  "mixed case",
			input: "0x" + strings.Repeat("aB", 32),
			want:  common.BytesToHash(common.FromHex(strings.Repeat("ab", 32))),
		},
		{
			name:           "missing prefix",
			input:          strings.Repeat("aa", 33),
			wantConstraint: ledger.ConstraintPrefix,
		},
		{
			name:           "too short",
			input:          "0xdeadbeef",
			wantConstraint: ledger.ConstraintLength,
		},
		{
			name:           "too long",
			input:          "0x" + strings.Repeat("aa", 33),
			wantConstraint: ledger.ConstraintLength,
		},
		{
			name:           "empty",
			input:          "",
			wantConstraint: ledger.ConstraintPrefix,
		},
		{
			name:           "not hex",
			input:          "0x" + strings.Repeat("zz", 32),
			wantConstraint: ledger.ConstraintHex,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ledger.ParsePayloadHash(tt.input)
			if tt.wantConstraint != "" {
				require.ErrorIs(t, err, ledger.ErrValidation)
				var verr *ledger.ValidationError
				require.True(t, errors.As(err, &verr))
				assert.Equal(t, "payload_hash", verr.Field)
				assert.Equal(t, tt.wantConstraint, verr.Constraint)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAppendDigest_DistinguishesFields(t *testing.T) {
	a := ledger.AppendRequest{Verb: "AB", RefID: "C"}
	b := ledger.AppendRequest{Verb: "A", RefID: "BC"}
	assert.NotEqual(t, ledger.AppendDigest(a), ledger.AppendDigest(b))
	assert.Len(t, ledger.AppendDigest(a), 32)
}

func TestAuthenticate(t *testing.T) {
	signer, err := identity.GenerateKeySigner()
	require.NoError(t, err)

	actor, sig, err := ledger.Authenticate(signer, ledger.AppendRequest{Verb: "CREATE", RefID: "ref-1"})
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), actor)
	assert.Len(t, sig, 65)

	_, _, err = ledger.Authenticate(nil, ledger.AppendRequest{})
	require.ErrorIs(t, err, ledger.ErrConfiguration)
}

func TestOutOfRangeError(t *testing.T) {
	err := error(&ledger.OutOfRangeError{Index: 2, Total: 2})
	require.ErrorIs(t, err, ledger.ErrOutOfRange)
	assert.NotErrorIs(t, err, ledger.ErrValidation)
	assert.Equal(t, "index 2 out of range (total 2)", err.Error())
}

// FuzzParsePayloadHash checks that parsing never panics and that accepted inputs
// always have the canonical shape.
// Run with: go test -fuzz=FuzzParsePayloadHash -fuzztime=30s ./pkg/ledger/
func FuzzParsePayloadHash(f *testing.F) {
	f.Add("")
	f.Add("0x")
	f.Add("0xdeadbeef")
	f.Add("0x" + strings.Repeat("0", 64))
	f.Add("0X" + strings.Repeat("f", 64))
	f.Add("0x" + strings.Repeat("g", 64))

	f.Fuzz(func(t *testing.T, input string) {
		h, err := ledger.ParsePayloadHash(input)
		if err != nil {
			require.ErrorIs(t, err, ledger.ErrValidation)
			return
		}
		require.Len(t, input, 66)
		require.Equal(t, strings.ToLower(input), h.Hex())
	})
}
