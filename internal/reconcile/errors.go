package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrLockTimeout means the per-key lock could not be acquired within the
	// configured wait. Nothing was changed; the caller should retry later.
	ErrLockTimeout = errors.New("reconcile: lock acquisition timed out")

	// ErrNoBalance means the employee has no inventory row. Provisioning
	// happens on first contact, outside this engine.
	ErrNoBalance = errors.New("reconcile: no inventory balance for employee")

	// ErrSaleNotFound means the referenced ledger row does not exist, either
	// never committed or already replaced by a later upload.
	ErrSaleNotFound = errors.New("reconcile: sale row not found")

	// ErrNegativeBalance is returned by stores when an adjustment would drive
	// a counter below zero. The engine's running-balance check makes this
	// unreachable in normal operation; a store surfacing it indicates the
	// invariant was about to break and the transaction must roll back.
	ErrNegativeBalance = errors.New("reconcile: adjustment would make balance negative")
)

// RevertError is a data-integrity alarm: the compensating revert of a
// previously committed batch could not be applied. The transaction is rolled
// back, so no partial revert survives, but the condition is not retryable and
// must be surfaced loudly.
type RevertError struct {
	Key Key
	Err error
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("reconcile: revert failed for %s: %v", e.Key, e.Err)
}

func (e *RevertError) Unwrap() error { return e.Err }
