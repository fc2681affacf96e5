package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"teleshop-backend/internal/cache"
	"teleshop-backend/internal/models"
	"teleshop-backend/internal/reconcile"
	"teleshop-backend/internal/repositories"
)

// summaryTTL bounds how stale the chain-wide summary may get when the
// invalidation after a write is missed (for example a crashed pod).
const summaryTTL = 5 * time.Minute

// StockService serves stock reads and routes all admin stock movements
// through the reconciliation engine so they stay journaled.
type StockService struct {
	engine        *reconcile.Engine
	inventoryRepo *repositories.InventoryRepository
	staffRepo     *repositories.StaffRepository
	journalRepo   *repositories.JournalRepository
}

func NewStockService(
	engine *reconcile.Engine,
	inventoryRepo *repositories.InventoryRepository,
	staffRepo *repositories.StaffRepository,
	journalRepo *repositories.JournalRepository,
) *StockService {
	return &StockService{
		engine:        engine,
		inventoryRepo: inventoryRepo,
		staffRepo:     staffRepo,
		journalRepo:   journalRepo,
	}
}

// Balance returns one employee's counters.
func (s *StockService) Balance(ctx context.Context, staffID int) (reconcile.Balance, error) {
	return s.engine.Balance(ctx, staffID)
}

// ListAll returns every employee's counters, going to the cache first.
func (s *StockService) ListAll(ctx context.Context) ([]models.StaffStock, error) {
	if data, ok := cache.Get(ctx, cache.StockListKey); ok {
		var out []models.StaffStock
		if err := json.Unmarshal(data, &out); err == nil {
			return out, nil
		}
	}

	out, err := s.inventoryRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(out); err == nil {
		cache.Set(ctx, cache.StockListKey, data, summaryTTL)
	}
	return out, nil
}

// Summary returns the chain-wide aggregate, cached. Slightly stale reads are
// acceptable here; writes go through the engine and invalidate.
func (s *StockService) Summary(ctx context.Context) (*models.StockSummary, error) {
	if data, ok := cache.Get(ctx, cache.StockSummaryKey); ok {
		var out models.StockSummary
		if err := json.Unmarshal(data, &out); err == nil {
			return &out, nil
		}
	}

	out, err := s.inventoryRepo.Summary(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(out); err == nil {
		cache.Set(ctx, cache.StockSummaryKey, data, summaryTTL)
	}
	return out, nil
}

// Backoffice returns the central stock counters.
func (s *StockService) Backoffice(ctx context.Context) (map[reconcile.Counter]int, error) {
	return s.engine.Backoffice(ctx)
}

// AddBackoffice injects qty of an item into central stock (admin).
func (s *StockService) AddBackoffice(ctx context.Context, item string, qty int) error {
	counter, err := parseCounter(item)
	if err != nil {
		return err
	}
	if err := s.engine.AddBackofficeStock(ctx, counter, qty); err != nil {
		return err
	}
	cache.InvalidateStock(ctx)
	return nil
}

// Transfer moves stock per req. FromStaffID zero means the backoffice is the
// source. Insufficient source stock surfaces as ErrNegativeBalance.
func (s *StockService) Transfer(ctx context.Context, req models.TransferRequest) error {
	counter, err := parseCounter(req.Item)
	if err != nil {
		return err
	}
	if req.ToStaffID <= 0 {
		return errors.New("transfer target required")
	}

	if req.FromStaffID == 0 {
		err = s.engine.TransferBackoffice(ctx, req.ToStaffID, counter, req.Quantity)
	} else {
		err = s.engine.TransferBetween(ctx, req.FromStaffID, req.ToStaffID, counter, req.Quantity)
	}
	if err != nil {
		return err
	}
	cache.InvalidateStock(ctx)
	return nil
}

// ListSales returns one employee's live ledger rows for a day.
func (s *StockService) ListSales(ctx context.Context, key reconcile.Key) ([]reconcile.SaleLineItem, error) {
	return s.engine.ListSales(ctx, key)
}

// History returns an employee's recent journal entries.
func (s *StockService) History(ctx context.Context, staffID, limit int) ([]reconcile.JournalEntry, error) {
	return s.journalRepo.ByEmployee(ctx, staffID, limit)
}

// Check compares an employee's counters with the journal's net deltas. A
// mismatch means a counter moved without its journal entry, which the engine
// never does on its own.
func (s *StockService) Check(ctx context.Context, staffID int) (map[reconcile.Counter][2]int, bool, error) {
	bal, err := s.engine.Balance(ctx, staffID)
	if err != nil {
		return nil, false, err
	}
	nets, err := s.journalRepo.NetDelta(ctx, staffID)
	if err != nil {
		return nil, false, err
	}

	out := make(map[reconcile.Counter][2]int, len(reconcile.Counters))
	consistent := true
	for _, c := range reconcile.Counters {
		out[c] = [2]int{bal.Get(c), nets[c]}
	}
	// The journal tracks movements only; employees provisioned with non-zero
	// openings would need an opening entry to make these equal. Provisioning
	// always starts at zero, so equality is the invariant.
	for _, c := range reconcile.Counters {
		if out[c][0] != out[c][1] {
			consistent = false
		}
	}
	return out, consistent, nil
}

func parseCounter(item string) (reconcile.Counter, error) {
	kind := reconcile.ParseItemKind(item)
	counter, ok := kind.Counter()
	if !ok {
		return "", fmt.Errorf("unknown stock item %q", item)
	}
	return counter, nil
}
