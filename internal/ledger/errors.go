package ledger

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/docverify/internal/common"
)

// InvalidContractError reports an unusable contract configuration.
type InvalidContractError struct {
	Reason string
}

func (e *InvalidContractError) Error() string {
	return "invalid contract: " + e.Reason
}

func (e *InvalidContractError) Unwrap() error { return common.ErrInvalidContract }

// NoCompatibleFunctionError is returned when none of the registration
// candidates exists on the contract.
type NoCompatibleFunctionError struct {
	Available []string
}

func (e *NoCompatibleFunctionError) Error() string {
	return fmt.Sprintf("no compatible registration function found in contract. Available functions: %s",
		strings.Join(e.Available, ", "))
}

func (e *NoCompatibleFunctionError) Unwrap() error { return common.ErrNoCompatibleFunction }

// LedgerCallError wraps a failed contract call, transaction or receipt.
type LedgerCallError struct {
	Method string
	Err    error
}

func (e *LedgerCallError) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("ledger call failed: %v", e.Err)
	}
	return fmt.Sprintf("ledger call %s failed: %v", e.Method, e.Err)
}

func (e *LedgerCallError) Unwrap() []error {
	if e.Err == nil {
		return []error{common.ErrLedgerCall}
	}
	return []error{common.ErrLedgerCall, e.Err}
}
