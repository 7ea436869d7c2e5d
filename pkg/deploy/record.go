package deploy

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// AddressEnvKey is the env entry that points clients at the contract.
	AddressEnvKey = "AUDIT_LOG_ADDRESS"
	// EnvPathEnvKey overrides which .env file a deployment updates.
	EnvPathEnvKey = "AUDIT_LOG_ENV_PATH"
	// DefaultRecordDir is where deployment records are written.
	DefaultRecordDir = "artifacts/deployments"
)

// Now is the clock used for deployment record timestamps.
var Now = func() time.Time { return time.Now().UTC() }

// Record is the JSON document written for each deployment.
type Record struct {
	Network   string `json:"network"`
	Address   string `json:"address"`
	Deployer  string `json:"deployer"`
	Timestamp string `json:"timestamp"`
}

// NewRecord stamps a deployment record with the current UTC time.
func NewRecord(network, address, deployer string) Record {
	return Record{
		Network:   network,
		Address:   address,
		Deployer:  deployer,
		Timestamp: Now().Format(time.RFC3339),
	}
}

// WriteRecord writes rec to <dir>/<network>.json and returns the path.
func WriteRecord(dir string, rec Record) (string, error) {
	if rec.Network == "" {
		return "", errors.New("deployment record has no network")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal deployment record: %w", err)
	}
	path := filepath.Join(dir, rec.Network+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// ReadRecord loads a record written by WriteRecord.
func ReadRecord(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return rec, nil
}

// UpsertEnv sets key=value in the env file at path. Earlier lines for key are
// dropped, every other line is kept in place and the new entry goes last.
// Missing parent directories are created.
func UpsertEnv(path, key, value string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}

	var lines []string
	existing, err := os.ReadFile(path)
	switch {
	case err == nil && len(existing) > 0:
		prefix := key + "="
		for _, line := range strings.Split(strings.TrimRight(string(existing), "\n"), "\n") {
			if strings.HasPrefix(line, prefix) {
				continue
			}
			lines = append(lines, line)
		}
	case err != nil && !os.IsNotExist(err):
		return fmt.Errorf("read %s: %w", path, err)
	}

	lines = append(lines, key+"="+value)
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644)
}

// ResolveEnvPath picks the env file a deployment should update: explicit if
// set, then $AUDIT_LOG_ENV_PATH, then ./.env if it exists. An empty result
// means no file should be touched.
func ResolveEnvPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv(EnvPathEnvKey); p != "" {
		return p
	}
	if _, err := os.Stat(".env"); err == nil {
		return ".env"
	}
	return ""
}
