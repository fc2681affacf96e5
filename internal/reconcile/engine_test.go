package reconcile_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teleshop-backend/internal/lock"
	"teleshop-backend/internal/reconcile"
)

func newTestEngine() (*reconcile.Engine, *reconcile.MemStore) {
	store := reconcile.NewMemStore()
	engine := reconcile.NewEngine(store, lock.NewLocalLocker(), 2*time.Second)
	return engine, store
}

func simRow(identifier string) reconcile.LineItem {
	return reconcile.LineItem{
		Kind:   reconcile.ItemSIM,
		Unit:   reconcile.UnitRef{Identifier: identifier},
		Amount: decimal.NewFromInt(0),
	}
}

func credit50Row(count int) reconcile.LineItem {
	return reconcile.LineItem{
		Kind:          reconcile.ItemCredit50,
		Credit50Count: count,
		Amount:        decimal.NewFromInt(int64(count) * 50),
	}
}

func keyFor(employee int) reconcile.Key {
	return reconcile.Key{EmployeeID: employee, ReportDate: "2025-03-01"}
}

// journalSum totals all journal deltas for one employee and counter, which by
// the conservation law must equal current minus initial.
func journalSum(store *reconcile.MemStore, employee int, c reconcile.Counter) int {
	total := 0
	for _, e := range store.Journal() {
		if e.EmployeeID != nil && *e.EmployeeID == employee && e.Counter == c {
			total += e.Delta
		}
	}
	return total
}

func TestApplyBatchDeductsAndJournals(t *testing.T) {
	engine, store := newTestEngine()
	store.SetBalance(1, reconcile.Balance{SIM: 10, Swap: 5, Credit50: 4, Credit100: 2})
	key := keyFor(1)

	res, err := engine.ApplyBatch(context.Background(), key, []reconcile.LineItem{
		simRow("123456789"),
		{Kind: reconcile.ItemSwap, Unit: reconcile.UnitRef{Identifier: "987654321"}},
		credit50Row(2),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Inserted)
	assert.Empty(t, res.Skips)

	bal, err := engine.Balance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 9, bal.SIM)
	assert.Equal(t, 4, bal.Swap)
	assert.Equal(t, 2, bal.Credit50)
	assert.Equal(t, 2, bal.Credit100)

	sales, err := engine.ListSales(context.Background(), key)
	require.NoError(t, err)
	require.Len(t, sales, 3)
	assert.Equal(t, "123456789", sales[0].Identifier)
	assert.Equal(t, 2, sales[2].Quantity)

	// Conservation: initial + journal sum == current, per counter.
	assert.Equal(t, 10+journalSum(store, 1, reconcile.CounterSIM), bal.SIM)
	assert.Equal(t, 4+journalSum(store, 1, reconcile.CounterCredit50), bal.Credit50)
}

func TestReuploadIsIdempotent(t *testing.T) {
	engine, store := newTestEngine()
	store.SetBalance(1, reconcile.Balance{SIM: 10})
	key := keyFor(1)
	batch := []reconcile.LineItem{simRow("111111111"), simRow("222222222")}

	first, err := engine.ApplyBatch(context.Background(), key, batch)
	require.NoError(t, err)
	balAfterFirst, err := engine.Balance(context.Background(), 1)
	require.NoError(t, err)

	second, err := engine.ApplyBatch(context.Background(), key, batch)
	require.NoError(t, err)
	balAfterSecond, err := engine.Balance(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, first.Inserted, second.Inserted)
	assert.Equal(t, balAfterFirst.SIM, balAfterSecond.SIM)
	assert.Equal(t, 8, balAfterSecond.SIM)

	// Conservation survives the revert-then-apply cycle.
	assert.Equal(t, 10+journalSum(store, 1, reconcile.CounterSIM), balAfterSecond.SIM)
}

func TestDuplicateInBatchFirstWins(t *testing.T) {
	engine, store := newTestEngine()
	store.SetBalance(1, reconcile.Balance{SIM: 10})
	key := keyFor(1)
	batch := []reconcile.LineItem{simRow("123456789"), simRow("123456789")}

	res, err := engine.ApplyBatch(context.Background(), key, batch)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.SkippedDuplicates)

	bal, err := engine.Balance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 9, bal.SIM)

	// Identical re-upload: same result, not 8.
	res, err = engine.ApplyBatch(context.Background(), key, batch)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.SkippedDuplicates)
	bal, err = engine.Balance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 9, bal.SIM)
}

func TestDuplicateAcrossKeysReportsConflict(t *testing.T) {
	engine, store := newTestEngine()
	store.SetBalance(1, reconcile.Balance{SIM: 5})
	store.SetBalance(2, reconcile.Balance{SIM: 5})

	_, err := engine.ApplyBatch(context.Background(), keyFor(1), []reconcile.LineItem{simRow("555000111")})
	require.NoError(t, err)

	res, err := engine.ApplyBatch(context.Background(), keyFor(2), []reconcile.LineItem{simRow("555000111")})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 1, res.SkippedDuplicates)
	require.Len(t, res.Skips, 1)
	assert.Equal(t, reconcile.SkipDuplicateGlobal, res.Skips[0].Reason)
	assert.Equal(t, 1, res.Skips[0].ConflictEmployeeID)
	assert.Equal(t, "2025-03-01", res.Skips[0].ConflictDate)

	bal, err := engine.Balance(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 5, bal.SIM)
}

func TestReuploadNotBlockedByOwnPreviousBatch(t *testing.T) {
	// The cross-record check must ignore rows of the batch being replaced.
	engine, store := newTestEngine()
	store.SetBalance(1, reconcile.Balance{SIM: 5})
	key := keyFor(1)
	batch := []reconcile.LineItem{simRow("777000999")}

	_, err := engine.ApplyBatch(context.Background(), key, batch)
	require.NoError(t, err)
	res, err := engine.ApplyBatch(context.Background(), key, batch)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 0, res.SkippedDuplicates)
}

func TestInsufficientStockSkipsRowNotBatch(t *testing.T) {
	engine, store := newTestEngine()
	store.SetBalance(1, reconcile.Balance{SIM: 1, Credit50: 2})
	key := keyFor(1)

	res, err := engine.ApplyBatch(context.Background(), key, []reconcile.LineItem{
		credit50Row(3),      // insufficient: 2 < 3
		simRow("123456789"), // still applies
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.SkippedInsufficient)
	require.Len(t, res.Skips, 1)
	assert.Equal(t, 2, res.Skips[0].Available)
	assert.Equal(t, 3, res.Skips[0].Requested)

	bal, err := engine.Balance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, bal.Credit50)
	assert.Equal(t, 0, bal.SIM)
}

func TestInsufficiencyUsesRunningBalance(t *testing.T) {
	// Three rows drain the same counter; the snapshot at batch start would
	// have let all four through.
	engine, store := newTestEngine()
	store.SetBalance(1, reconcile.Balance{SIM: 3})

	res, err := engine.ApplyBatch(context.Background(), keyFor(1), []reconcile.LineItem{
		simRow("100000001"), simRow("100000002"), simRow("100000003"), simRow("100000004"),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Inserted)
	assert.Equal(t, 1, res.SkippedInsufficient)

	bal, err := engine.Balance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, bal.SIM)
}

func TestQuantityRowsDeductParsedQuantity(t *testing.T) {
	// A unit-counted row whose identifier failed parser validation arrives as
	// a plain quantity and deducts that many units.
	engine, store := newTestEngine()
	store.SetBalance(1, reconcile.Balance{Swap: 5})

	res, err := engine.ApplyBatch(context.Background(), keyFor(1), []reconcile.LineItem{
		{Kind: reconcile.ItemSwap, Unit: reconcile.UnitRef{Quantity: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)

	bal, err := engine.Balance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, bal.Swap)
}

func TestUnknownKindSkipped(t *testing.T) {
	engine, store := newTestEngine()
	store.SetBalance(1, reconcile.Balance{SIM: 5})

	res, err := engine.ApplyBatch(context.Background(), keyFor(1), []reconcile.LineItem{
		{Kind: reconcile.ItemOther, Unit: reconcile.UnitRef{Quantity: 1}},
		{Kind: reconcile.ParseItemKind("recharge"), Unit: reconcile.UnitRef{Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 2, res.SkippedInvalid)
}

func TestEmptyBatchCancelsUpload(t *testing.T) {
	engine, store := newTestEngine()
	store.SetBalance(1, reconcile.Balance{SIM: 10, Credit100: 3})
	key := keyFor(1)

	_, err := engine.ApplyBatch(context.Background(), key, []reconcile.LineItem{
		simRow("123456789"),
		{Kind: reconcile.ItemCredit100, Credit100Count: 2},
	})
	require.NoError(t, err)

	res, err := engine.ApplyBatch(context.Background(), key, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Inserted)

	bal, err := engine.Balance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 10, bal.SIM)
	assert.Equal(t, 3, bal.Credit100)

	sales, err := engine.ListSales(context.Background(), key)
	require.NoError(t, err)
	assert.Empty(t, sales)
}

func TestRevertDeletesAndRestores(t *testing.T) {
	engine, store := newTestEngine()
	store.SetBalance(1, reconcile.Balance{SIM: 10})
	key := keyFor(1)

	_, err := engine.ApplyBatch(context.Background(), key, []reconcile.LineItem{
		simRow("111111111"), simRow("222222222"),
	})
	require.NoError(t, err)

	deleted, err := engine.Revert(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	bal, err := engine.Balance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 10, bal.SIM)

	// Reverting an already-empty key is a no-op.
	deleted, err = engine.Revert(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestDeleteSingleSaleRestoresStock(t *testing.T) {
	engine, store := newTestEngine()
	store.SetBalance(1, reconcile.Balance{SIM: 10, Credit50: 5})
	key := keyFor(1)

	_, err := engine.ApplyBatch(context.Background(), key, []reconcile.LineItem{
		simRow("111111111"),
		credit50Row(3),
	})
	require.NoError(t, err)

	sales, err := engine.ListSales(context.Background(), key)
	require.NoError(t, err)
	require.Len(t, sales, 2)

	row, err := engine.DeleteSale(context.Background(), sales[1].ID)
	require.NoError(t, err)
	assert.Equal(t, reconcile.ItemCredit50, row.Kind)
	assert.Equal(t, 3, row.Quantity)

	// The credit deduction comes back; the SIM row stays live.
	bal, err := engine.Balance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 9, bal.SIM)
	assert.Equal(t, 5, bal.Credit50)

	remaining, err := engine.ListSales(context.Background(), key)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "111111111", remaining[0].Identifier)

	assert.Equal(t, 10+journalSum(store, 1, reconcile.CounterSIM), bal.SIM)
	assert.Equal(t, 5+journalSum(store, 1, reconcile.CounterCredit50), bal.Credit50)

	// Deleting the same row twice, or a row that never existed, fails cleanly.
	_, err = engine.DeleteSale(context.Background(), sales[1].ID)
	assert.ErrorIs(t, err, reconcile.ErrSaleNotFound)
	_, err = engine.DeleteSale(context.Background(), 99999)
	assert.ErrorIs(t, err, reconcile.ErrSaleNotFound)
}

func TestDeleteSaleWithoutJournalFallsBackToRow(t *testing.T) {
	// A row committed without journal coverage still restores its own
	// deduction when deleted.
	engine, store := newTestEngine()
	store.SetBalance(1, reconcile.Balance{Swap: 4})

	var saleID int64
	err := store.WithinTx(context.Background(), func(tx reconcile.Tx) error {
		s := &reconcile.SaleLineItem{
			EmployeeID: 1, ReportDate: "2025-03-01", Kind: reconcile.ItemSwap, Identifier: "123456789", Quantity: 1,
		}
		if err := tx.InsertSale(context.Background(), s); err != nil {
			return err
		}
		saleID = s.ID
		return tx.AdjustBalance(context.Background(), 1, reconcile.CounterSwap, -1)
	})
	require.NoError(t, err)

	_, err = engine.DeleteSale(context.Background(), saleID)
	require.NoError(t, err)

	bal, err := engine.Balance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 4, bal.Swap)
}

func TestZeroDeductionRowWritesNoJournalEntry(t *testing.T) {
	// An accepted row that moves nothing keeps its ledger row but must not
	// pad the journal with zero deltas.
	engine, store := newTestEngine()
	store.SetBalance(1, reconcile.Balance{Swap: 5})
	key := keyFor(1)

	res, err := engine.ApplyBatch(context.Background(), key, []reconcile.LineItem{
		{Kind: reconcile.ItemSwap, Unit: reconcile.UnitRef{Quantity: 0}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)

	for _, e := range store.Journal() {
		assert.NotZero(t, e.Delta)
	}

	bal, err := engine.Balance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 5, bal.Swap)
}

func TestRevertFallsBackToLedgerRows(t *testing.T) {
	// Rows committed without journal coverage (interrupted apply on an older
	// build) must still revert exactly, derived from the rows themselves.
	engine, store := newTestEngine()
	store.SetBalance(1, reconcile.Balance{SIM: 8})
	key := keyFor(1)

	err := store.WithinTx(context.Background(), func(tx reconcile.Tx) error {
		if err := tx.InsertSale(context.Background(), &reconcile.SaleLineItem{
			EmployeeID: 1, ReportDate: key.ReportDate, Kind: reconcile.ItemSIM, Identifier: "999000111", Quantity: 1,
		}); err != nil {
			return err
		}
		return tx.AdjustBalance(context.Background(), 1, reconcile.CounterSIM, -1)
	})
	require.NoError(t, err)

	res, err := engine.ApplyBatch(context.Background(), key, []reconcile.LineItem{simRow("999000222")})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)

	bal, err := engine.Balance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 7, bal.SIM)
}

func TestUnprovisionedEmployeeFails(t *testing.T) {
	engine, _ := newTestEngine()
	_, err := engine.ApplyBatch(context.Background(), keyFor(42), []reconcile.LineItem{simRow("123456789")})
	require.Error(t, err)
	assert.ErrorIs(t, err, reconcile.ErrNoBalance)
}

func TestLockTimeoutLeavesStateUntouched(t *testing.T) {
	store := reconcile.NewMemStore()
	store.SetBalance(1, reconcile.Balance{SIM: 5})
	locker := lock.NewLocalLocker()
	engine := reconcile.NewEngine(store, locker, 50*time.Millisecond)
	key := keyFor(1)

	h, err := locker.Acquire(context.Background(), key.String(), time.Second)
	require.NoError(t, err)
	defer locker.Release(context.Background(), h)

	_, err = engine.ApplyBatch(context.Background(), key, []reconcile.LineItem{simRow("123456789")})
	assert.ErrorIs(t, err, reconcile.ErrLockTimeout)

	bal, err := store.Balance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 5, bal.SIM)
}

func TestConcurrentSameKeySerializes(t *testing.T) {
	engine, store := newTestEngine()
	store.SetBalance(1, reconcile.Balance{SIM: 10})
	key := keyFor(1)
	batch := []reconcile.LineItem{simRow("123456789"), simRow("123456780")}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.ApplyBatch(context.Background(), key, batch)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Whatever the interleaving, the final state is one sequential order of
	// the same batch, i.e. a single application.
	bal, err := engine.Balance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 8, bal.SIM)

	sales, err := engine.ListSales(context.Background(), key)
	require.NoError(t, err)
	assert.Len(t, sales, 2)
	assert.Equal(t, 10+journalSum(store, 1, reconcile.CounterSIM), bal.SIM)
}

func TestConcurrentDistinctKeysProceed(t *testing.T) {
	engine, store := newTestEngine()
	store.SetBalance(1, reconcile.Balance{SIM: 4})
	store.SetBalance(2, reconcile.Balance{SIM: 4})

	var wg sync.WaitGroup
	for _, emp := range []int{1, 2} {
		wg.Add(1)
		go func(emp int) {
			defer wg.Done()
			ids := map[int]string{1: "100000001", 2: "200000002"}
			_, err := engine.ApplyBatch(context.Background(), keyFor(emp), []reconcile.LineItem{simRow(ids[emp])})
			assert.NoError(t, err)
		}(emp)
	}
	wg.Wait()

	for _, emp := range []int{1, 2} {
		bal, err := engine.Balance(context.Background(), emp)
		require.NoError(t, err)
		assert.Equal(t, 3, bal.SIM)
	}
}

func TestBackofficeTransfer(t *testing.T) {
	engine, store := newTestEngine()
	store.Provision(1)
	require.NoError(t, engine.AddBackofficeStock(context.Background(), reconcile.CounterSIM, 20))

	require.NoError(t, engine.TransferBackoffice(context.Background(), 1, reconcile.CounterSIM, 5))

	bal, err := engine.Balance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 5, bal.SIM)

	central, err := store.Backoffice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 15, central[reconcile.CounterSIM])

	// More than remains must be rejected, not clamped.
	err = engine.TransferBackoffice(context.Background(), 1, reconcile.CounterSIM, 16)
	assert.ErrorIs(t, err, reconcile.ErrNegativeBalance)
	central, err = store.Backoffice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 15, central[reconcile.CounterSIM])
}

func TestTransferBetweenEmployees(t *testing.T) {
	engine, store := newTestEngine()
	store.SetBalance(1, reconcile.Balance{Credit100: 6})
	store.Provision(2)

	require.NoError(t, engine.TransferBetween(context.Background(), 1, 2, reconcile.CounterCredit100, 4))

	from, err := engine.Balance(context.Background(), 1)
	require.NoError(t, err)
	to, err := engine.Balance(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, from.Credit100)
	assert.Equal(t, 4, to.Credit100)

	err = engine.TransferBetween(context.Background(), 1, 2, reconcile.CounterCredit100, 3)
	assert.ErrorIs(t, err, reconcile.ErrNegativeBalance)

	err = engine.TransferBetween(context.Background(), 1, 2, reconcile.CounterCredit100, 0)
	assert.ErrorIs(t, err, reconcile.ErrInvalidQuantity)
}
