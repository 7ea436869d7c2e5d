package identity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/ava-labs/libevm/accounts/keystore"

	"github.com/ava-labs/auditlog/pkg/ledger"
)

// KeystoreResolver loads signing identities from encrypted keystore files.
// An alias "ledger" resolves to <dir>/ledger.json.
type KeystoreResolver struct {
	dir        string
	passphrase string
}

// NewKeystoreResolver creates a resolver reading keystore v3 files from dir.
func NewKeystoreResolver(dir, passphrase string) *KeystoreResolver {
	return &KeystoreResolver{dir: dir, passphrase: passphrase}
}

// ResolveIdentity decrypts the keystore file for alias.
func (r *KeystoreResolver) ResolveIdentity(_ context.Context, alias string) (ledger.Signer, error) {
	if alias == "" {
		return nil, fmt.Errorf("%w: empty account alias", ledger.ErrConfiguration)
	}
	if filepath.Base(alias) != alias {
		return nil, fmt.Errorf("%w: invalid account alias %q", ledger.ErrConfiguration, alias)
	}
	if r.dir == "" {
		return nil, fmt.Errorf("%w: keystore directory not configured", ledger.ErrConfiguration)
	}

	path := filepath.Join(r.dir, alias+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: no keystore for account alias %q", ledger.ErrConfiguration, alias)
		}
		return nil, fmt.Errorf("%w: read keystore %s: %v", ledger.ErrConfiguration, path, err)
	}

	key, err := keystore.DecryptKey(data, r.passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: decrypt keystore for %q: %v", ledger.ErrConfiguration, alias, err)
	}
	return NewKeySigner(key.PrivateKey), nil
}

// StaticResolver resolves aliases registered in-process.
type StaticResolver struct {
	mu      sync.RWMutex
	signers map[string]ledger.Signer
}

func NewStaticResolver() *StaticResolver {
	return &StaticResolver{signers: make(map[string]ledger.Signer)}
}

// Add registers signer under alias, replacing any previous registration.
func (r *StaticResolver) Add(alias string, signer ledger.Signer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signers[alias] = signer
}

func (r *StaticResolver) ResolveIdentity(_ context.Context, alias string) (ledger.Signer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.signers[alias]
	if !ok {
		return nil, fmt.Errorf("%w: unknown account alias %q", ledger.ErrConfiguration, alias)
	}
	return s, nil
}
