package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"teleshop-backend/internal/cache"
	"teleshop-backend/internal/models"
	"teleshop-backend/internal/repositories"
)

// SimBatchService fronts the physical SIM tracker. The tracker is advisory:
// the sales ledger stays authoritative even when a sold SIM was never
// imported here.
type SimBatchService struct {
	simRepo *repositories.SimBatchRepository
}

func NewSimBatchService(simRepo *repositories.SimBatchRepository) *SimBatchService {
	return &SimBatchService{simRepo: simRepo}
}

// Transfer moves in-stock SIMs selected by carton, box or gsm to a location.
func (s *SimBatchService) Transfer(ctx context.Context, by, value, toLocation string) (*models.SimTransferResult, error) {
	if value == "" || toLocation == "" {
		return nil, errors.New("selector value and target location required")
	}
	res, err := s.simRepo.Transfer(ctx, by, value, toLocation)
	if err != nil {
		return nil, err
	}
	if res.Moved == 0 {
		return nil, fmt.Errorf("no in-stock SIMs match %s %q", by, value)
	}
	cache.Invalidate(ctx, cache.SimStatusKey)
	return res, nil
}

// Status looks up one tracked SIM.
func (s *SimBatchService) Status(ctx context.Context, gsmNumber string) (*models.SimBatch, error) {
	if gsmNumber == "" {
		return nil, errors.New("gsm number required")
	}
	return s.simRepo.Status(ctx, gsmNumber)
}

// StatusCounts summarizes the tracker, cached alongside the stock keys.
func (s *SimBatchService) StatusCounts(ctx context.Context) (map[string]int, error) {
	if data, ok := cache.Get(ctx, cache.SimStatusKey); ok {
		var out map[string]int
		if err := json.Unmarshal(data, &out); err == nil {
			return out, nil
		}
	}

	out, err := s.simRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(out); err == nil {
		cache.Set(ctx, cache.SimStatusKey, data, summaryTTL)
	}
	return out, nil
}
