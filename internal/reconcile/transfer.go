package reconcile

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidQuantity rejects zero or negative transfer amounts.
var ErrInvalidQuantity = errors.New("reconcile: quantity must be positive")

// Admin stock movements run through the same store so every counter change is
// journaled and the non-negativity check applies at the point of adjustment.

// AddBackofficeStock increases a central counter by qty.
func (e *Engine) AddBackofficeStock(ctx context.Context, c Counter, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	return e.store.WithinTx(ctx, func(tx Tx) error {
		if err := tx.AdjustBackoffice(ctx, c, qty); err != nil {
			return fmt.Errorf("add backoffice %s: %w", c, err)
		}
		return tx.AppendJournal(ctx, &JournalEntry{
			Counter: c,
			Delta:   qty,
			Reason:  ReasonTransfer,
			Source:  "backoffice-add",
		})
	})
}

// TransferBackoffice moves qty of a counter from central stock to an
// employee, journaling both sides.
func (e *Engine) TransferBackoffice(ctx context.Context, employeeID int, c Counter, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	return e.store.WithinTx(ctx, func(tx Tx) error {
		if err := tx.AdjustBackoffice(ctx, c, -qty); err != nil {
			return fmt.Errorf("debit backoffice %s: %w", c, err)
		}
		if err := tx.AppendJournal(ctx, &JournalEntry{
			Counter: c,
			Delta:   -qty,
			Reason:  ReasonTransfer,
			Source:  "backoffice",
		}); err != nil {
			return err
		}
		if err := tx.AdjustBalance(ctx, employeeID, c, qty); err != nil {
			return fmt.Errorf("credit employee %d %s: %w", employeeID, c, err)
		}
		if err := tx.AppendJournal(ctx, &JournalEntry{
			EmployeeID: &employeeID,
			Counter:    c,
			Delta:      qty,
			Reason:     ReasonTransfer,
			Source:     "backoffice",
		}); err != nil {
			return err
		}
		return tx.TouchBalance(ctx, employeeID)
	})
}

// TransferBetween moves qty of a counter from one employee to another.
func (e *Engine) TransferBetween(ctx context.Context, fromID, toID int, c Counter, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if fromID == toID {
		return errors.New("reconcile: transfer to self")
	}
	return e.store.WithinTx(ctx, func(tx Tx) error {
		if err := tx.AdjustBalance(ctx, fromID, c, -qty); err != nil {
			return fmt.Errorf("debit employee %d %s: %w", fromID, c, err)
		}
		if err := tx.AppendJournal(ctx, &JournalEntry{
			EmployeeID: &fromID,
			Counter:    c,
			Delta:      -qty,
			Reason:     ReasonTransfer,
			Source:     fmt.Sprintf("transfer-to:%d", toID),
		}); err != nil {
			return err
		}
		if err := tx.AdjustBalance(ctx, toID, c, qty); err != nil {
			return fmt.Errorf("credit employee %d %s: %w", toID, c, err)
		}
		if err := tx.AppendJournal(ctx, &JournalEntry{
			EmployeeID: &toID,
			Counter:    c,
			Delta:      qty,
			Reason:     ReasonTransfer,
			Source:     fmt.Sprintf("transfer-from:%d", fromID),
		}); err != nil {
			return err
		}
		if err := tx.TouchBalance(ctx, fromID); err != nil {
			return err
		}
		return tx.TouchBalance(ctx, toID)
	})
}
