// Package reconcile applies uploaded sale batches to the inventory ledger.
//
// One upload per (employee, date) key is live at a time: re-uploading replaces
// the previous batch after an exact compensating revert, so repeated uploads
// of the same file leave counters unchanged. Every counter movement is paired
// with an append-only journal entry, which is what the revert is computed from.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"teleshop-backend/internal/lock"
)

const defaultLockWait = 15 * time.Second

type Engine struct {
	store    Store
	locker   lock.KeyLocker
	lockWait time.Duration
}

// NewEngine builds an engine over store, serialized by locker. lockWait <= 0
// selects the default bounded wait.
func NewEngine(store Store, locker lock.KeyLocker, lockWait time.Duration) *Engine {
	if lockWait <= 0 {
		lockWait = defaultLockWait
	}
	return &Engine{store: store, locker: locker, lockWait: lockWait}
}

// ApplyBatch replaces the live batch under key with entries, in one
// transaction: acquire the key lock, revert whatever the previous upload did,
// then apply the new rows in input order against a running balance.
//
// Row-level rejections (duplicates, insufficient stock, unknown kinds) are
// collected into the result and never abort the batch. An empty entries slice
// is the documented way to cancel a day's upload: the revert runs and nothing
// is re-applied.
func (e *Engine) ApplyBatch(ctx context.Context, key Key, entries []LineItem) (BatchResult, error) {
	var result BatchResult

	h, err := e.locker.Acquire(ctx, key.String(), e.lockWait)
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			return result, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
		return result, fmt.Errorf("acquire lock for %s: %w", key, err)
	}
	defer func() {
		if relErr := e.locker.Release(ctx, h); relErr != nil {
			log.Printf("[Reconcile] release lock %s: %v", key, relErr)
		}
	}()

	err = e.store.WithinTx(ctx, func(tx Tx) error {
		if _, err := e.revertLive(ctx, tx, key); err != nil {
			return &RevertError{Key: key, Err: err}
		}

		bal, err := tx.Balance(ctx, key.EmployeeID)
		if err != nil {
			return fmt.Errorf("read balance: %w", err)
		}

		seen := make(map[string]bool)
		for i, item := range entries {
			counter, known := item.Kind.Counter()
			if !known {
				result.record(Skip{Row: i, Kind: item.Kind, Reason: SkipInvalidItemKind})
				continue
			}

			// Duplicate policy applies only to identified unit rows; the
			// first occurrence claims the identifier even if it later fails
			// the stock check.
			if item.Kind.UnitCounted() && item.Unit.HasIdentifier() {
				id := item.Unit.Identifier
				if seen[id] {
					result.record(Skip{Row: i, Kind: item.Kind, Reason: SkipDuplicateInBatch, Identifier: id})
					continue
				}
				seen[id] = true

				prior, err := tx.FindLiveIdentifier(ctx, id, key)
				if err != nil {
					return fmt.Errorf("duplicate lookup for %s: %w", id, err)
				}
				if prior != nil {
					result.record(Skip{
						Row: i, Kind: item.Kind, Reason: SkipDuplicateGlobal, Identifier: id,
						ConflictEmployeeID: prior.EmployeeID, ConflictDate: prior.ReportDate,
					})
					continue
				}
			}

			// Check against the running balance, not the snapshot from the
			// start of the batch: several rows may drain the same counter.
			deduct := item.deduction()
			if available := bal.Get(counter); available < deduct {
				result.record(Skip{
					Row: i, Kind: item.Kind, Reason: SkipInsufficientStock,
					Identifier: item.Unit.Identifier, Available: available, Requested: deduct,
				})
				continue
			}

			sale := &SaleLineItem{
				EmployeeID:    key.EmployeeID,
				ReportDate:    key.ReportDate,
				Kind:          item.Kind,
				Identifier:    item.Unit.Identifier,
				Quantity:      deduct,
				ContactNumber: item.ContactNumber,
				Amount:        item.Amount,
				Notes:         item.Notes,
			}
			if err := tx.InsertSale(ctx, sale); err != nil {
				return fmt.Errorf("insert sale row %d: %w", i, err)
			}
			// A zero deduction moves nothing, so it gets no journal entry
			// either; the ledger row alone records it.
			if deduct > 0 {
				if err := tx.AdjustBalance(ctx, key.EmployeeID, counter, -deduct); err != nil {
					return fmt.Errorf("deduct %d %s: %w", deduct, counter, err)
				}
				bal.Add(counter, -deduct)

				emp := key.EmployeeID
				if err := tx.AppendJournal(ctx, &JournalEntry{
					EmployeeID: &emp,
					Counter:    counter,
					Delta:      -deduct,
					Reason:     ReasonSale,
					Source:     "upload",
					SourceRef:  &sale.ID,
				}); err != nil {
					return fmt.Errorf("journal sale %d: %w", sale.ID, err)
				}
			}

			result.Inserted++
		}

		return tx.TouchBalance(ctx, key.EmployeeID)
	})
	if err != nil {
		return BatchResult{}, err
	}
	return result, nil
}

// Revert undoes and deletes the live batch under key, returning how many
// ledger rows were removed. Balances return to their pre-batch values.
func (e *Engine) Revert(ctx context.Context, key Key) (int, error) {
	h, err := e.locker.Acquire(ctx, key.String(), e.lockWait)
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			return 0, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
		return 0, fmt.Errorf("acquire lock for %s: %w", key, err)
	}
	defer func() {
		if relErr := e.locker.Release(ctx, h); relErr != nil {
			log.Printf("[Reconcile] release lock %s: %v", key, relErr)
		}
	}()

	var deleted int
	err = e.store.WithinTx(ctx, func(tx Tx) error {
		n, err := e.revertLive(ctx, tx, key)
		if err != nil {
			return &RevertError{Key: key, Err: err}
		}
		deleted = n
		if n == 0 {
			return nil
		}
		return tx.TouchBalance(ctx, key.EmployeeID)
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// DeleteSale removes one committed ledger row and adds its exact deduction
// back, derived from the row's sale journal entries (falling back to the row
// itself when it has no coverage). Returns the removed row.
//
// This is the surgical sibling of Revert: one bad row goes, the rest of the
// day's batch stays live.
func (e *Engine) DeleteSale(ctx context.Context, saleID int64) (*SaleLineItem, error) {
	row, err := e.store.GetSale(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("look up sale %d: %w", saleID, err)
	}
	if row == nil {
		return nil, ErrSaleNotFound
	}
	key := row.Key()

	h, err := e.locker.Acquire(ctx, key.String(), e.lockWait)
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
		return nil, fmt.Errorf("acquire lock for %s: %w", key, err)
	}
	defer func() {
		if relErr := e.locker.Release(ctx, h); relErr != nil {
			log.Printf("[Reconcile] release lock %s: %v", key, relErr)
		}
	}()

	err = e.store.WithinTx(ctx, func(tx Tx) error {
		// Re-read under the lock: a concurrent re-upload may have replaced
		// the batch and with it this row.
		cur, err := tx.GetSale(ctx, saleID)
		if err != nil {
			return fmt.Errorf("re-read sale %d: %w", saleID, err)
		}
		if cur == nil {
			return ErrSaleNotFound
		}
		row = cur

		journal, err := tx.SaleJournal(ctx, []int64{saleID})
		if err != nil {
			return fmt.Errorf("read sale journal: %w", err)
		}
		totals := make(map[Counter]int)
		for _, entry := range journal {
			delta := entry.Delta
			if delta < 0 {
				delta = -delta
			}
			totals[entry.Counter] += delta
		}
		if len(totals) == 0 {
			if counter, known := cur.Kind.Counter(); known {
				totals[counter] = cur.deduction()
			}
		}

		emp := key.EmployeeID
		source := "delete_sale:" + strconv.FormatInt(saleID, 10)
		for _, counter := range Counters {
			total := totals[counter]
			if total == 0 {
				continue
			}
			if err := tx.AdjustBalance(ctx, emp, counter, total); err != nil {
				return fmt.Errorf("add back %d %s: %w", total, counter, err)
			}
			if err := tx.AppendJournal(ctx, &JournalEntry{
				EmployeeID: &emp,
				Counter:    counter,
				Delta:      total,
				Reason:     ReasonRevert,
				Source:     source,
			}); err != nil {
				return fmt.Errorf("journal delete of sale %d: %w", saleID, err)
			}
		}

		if _, err := tx.DeleteSale(ctx, saleID); err != nil {
			return fmt.Errorf("delete sale %d: %w", saleID, err)
		}
		return tx.TouchBalance(ctx, emp)
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// revertLive computes and applies the compensating revert for the live batch
// under key, then deletes its rows. Returns the number of rows deleted.
//
// The revert is derived from durable state only: sale-reason journal entries
// whose source_ref is a live row under the key. Rows that have no journal
// coverage (an interrupted earlier apply) fall back to the row's own
// deduction, so the revert stays exact across process restarts.
func (e *Engine) revertLive(ctx context.Context, tx Tx, key Key) (int, error) {
	live, err := tx.LiveSales(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("list live sales: %w", err)
	}
	if len(live) == 0 {
		return 0, nil
	}

	ids := make([]int64, len(live))
	for i, s := range live {
		ids[i] = s.ID
	}

	journal, err := tx.SaleJournal(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("read sale journal: %w", err)
	}

	totals := make(map[Counter]int)
	covered := make(map[int64]bool)
	for _, entry := range journal {
		if entry.Reason != ReasonSale || entry.SourceRef == nil {
			continue
		}
		delta := entry.Delta
		if delta < 0 {
			delta = -delta
		}
		totals[entry.Counter] += delta
		covered[*entry.SourceRef] = true
	}
	for _, s := range live {
		if covered[s.ID] {
			continue
		}
		if counter, known := s.Kind.Counter(); known {
			totals[counter] += s.deduction()
		}
	}

	source := "delete_sales:" + joinIDs(ids)
	emp := key.EmployeeID
	for _, counter := range Counters {
		total := totals[counter]
		if total == 0 {
			continue
		}
		if err := tx.AdjustBalance(ctx, key.EmployeeID, counter, total); err != nil {
			return 0, fmt.Errorf("add back %d %s: %w", total, counter, err)
		}
		if err := tx.AppendJournal(ctx, &JournalEntry{
			EmployeeID: &emp,
			Counter:    counter,
			Delta:      total,
			Reason:     ReasonRevert,
			Source:     source,
		}); err != nil {
			return 0, fmt.Errorf("journal revert of %s: %w", counter, err)
		}
	}

	deleted, err := tx.DeleteSales(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("delete sales: %w", err)
	}
	return deleted, nil
}

// Balance reads an employee's current counters.
func (e *Engine) Balance(ctx context.Context, employeeID int) (Balance, error) {
	return e.store.Balance(ctx, employeeID)
}

// Backoffice reads the central stock counters.
func (e *Engine) Backoffice(ctx context.Context) (map[Counter]int, error) {
	return e.store.Backoffice(ctx)
}

// ListSales returns the live ledger rows for key in insertion order.
func (e *Engine) ListSales(ctx context.Context, key Key) ([]SaleLineItem, error) {
	return e.store.ListSales(ctx, key)
}

// SoldIdentifiers extracts the subscriber numbers committed under key, sorted,
// for collaborators that track physical SIM stock.
func (e *Engine) SoldIdentifiers(ctx context.Context, key Key) ([]string, error) {
	sales, err := e.store.ListSales(ctx, key)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, s := range sales {
		if s.Kind.UnitCounted() && s.Identifier != "" {
			out = append(out, s.Identifier)
		}
	}
	sort.Strings(out)
	return out, nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
