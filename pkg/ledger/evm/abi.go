package evm

import (
	_ "embed"
	"fmt"
	"math/big"
	"strings"

	"github.com/ava-labs/libevm/accounts/abi"
	"github.com/ava-labs/libevm/common"
)

const (
	MethodWriteLog  = "writeLog"
	MethodTotalLogs = "totalLogs"
	MethodGetLog    = "getLog"
	EventLogWritten = "LogWritten"
)

// ABIJSON is the ABI of the AuditLog contract (contracts/AuditLog.sol).
//
//go:embed AuditLog.abi.json
var ABIJSON string

// ParseABI parses the embedded AuditLog ABI.
func ParseABI() (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(ABIJSON))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse audit log abi: %w", err)
	}
	return parsed, nil
}

// EntryTuple mirrors the AuditLog.LogEntry struct returned by getLog.
type EntryTuple struct {
	Actor       common.Address `abi:"actor"`
	PayloadHash [32]byte       `abi:"payloadHash"`
	Verb        string         `abi:"verb"`
	Timestamp   *big.Int       `abi:"timestamp"`
	RefID       string         `abi:"refId"`
}

// LogWritten is the decoded LogWritten event. Indexed fields are resolved by
// name, so Index and Actor must keep their names.
type LogWritten struct {
	Index       *big.Int
	Actor       common.Address
	PayloadHash [32]byte `abi:"payloadHash"`
	Verb        string   `abi:"verb"`
	RefID       string   `abi:"refId"`
	Timestamp   *big.Int `abi:"timestamp"`
}
