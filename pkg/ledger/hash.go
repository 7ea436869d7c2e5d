package ledger

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/ava-labs/libevm/common"
	"github.com/ava-labs/libevm/common/hexutil"
	"github.com/ava-labs/libevm/crypto"
)

const (
	payloadHashField = "payload_hash"
	// 0x + 64 hex characters
	payloadHashLen = 2 + 2*common.HashLength

	appendDomain = "auditlog.append.v1"
)

// ParsePayloadHash converts a 0x-prefixed 64-hex-character string into a hash.
// Any other shape fails with a *ValidationError naming the violated constraint.
func ParsePayloadHash(s string) (common.Hash, error) {
	if !strings.HasPrefix(s, "0x") {
		return common.Hash{}, &ValidationError{
			Field:      payloadHashField,
			Constraint: ConstraintPrefix,
			Msg:        "must be a 0x-prefixed hex string",
		}
	}
	if len(s) != payloadHashLen {
		return common.Hash{}, &ValidationError{
			Field:      payloadHashField,
			Constraint: ConstraintLength,
			Msg:        fmt.Sprintf("must represent 32 bytes (64 hex chars), got %d chars", len(s)-2),
		}
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, &ValidationError{
			Field:      payloadHashField,
			Constraint: ConstraintHex,
			Msg:        err.Error(),
		}
	}
	return common.BytesToHash(b), nil
}

// AppendDigest is the hash a signer signs to authorize req on an in-process store.
// Variable-length fields are length-prefixed so distinct requests never collide.
func AppendDigest(req AppendRequest) []byte {
	return crypto.Keccak256(
		[]byte(appendDomain),
		lengthPrefixed(req.Verb),
		req.PayloadHash.Bytes(),
		lengthPrefixed(req.RefID),
	)
}

// RecoverActor returns the address whose key produced sig over digest.
func RecoverActor(digest, sig []byte) (common.Address, error) {
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Authenticate has signer sign the digest of req and returns the recovered actor
// together with the signature.
func Authenticate(signer Signer, req AppendRequest) (common.Address, []byte, error) {
	if signer == nil {
		return common.Address{}, nil, fmt.Errorf("%w: no signer", ErrConfiguration)
	}
	digest := AppendDigest(req)
	sig, err := signer.SignHash(digest)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("%w: sign append: %v", ErrTransport, err)
	}
	actor, err := RecoverActor(digest, sig)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return actor, sig, nil
}

func lengthPrefixed(s string) []byte {
	b := make([]byte, 4+len(s))
	binary.BigEndian.PutUint32(b, uint32(len(s)))
	copy(b[4:], s)
	return b
}
