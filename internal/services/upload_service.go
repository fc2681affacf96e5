package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"teleshop-backend/internal/archive"
	"teleshop-backend/internal/cache"
	"teleshop-backend/internal/excel"
	"teleshop-backend/internal/metrics"
	"teleshop-backend/internal/reconcile"
	"teleshop-backend/internal/repositories"
	"teleshop-backend/internal/timeutil"
)

// ErrTooManyRows rejects workbooks above the configured row cap before any
// state is touched.
var ErrTooManyRows = errors.New("upload exceeds the row limit")

// UploadReport is what the uploader gets back: the engine's batch result plus
// parser-level skips and the bookkeeping done around the batch.
type UploadReport struct {
	StaffID    int                   `json:"staff_id"`
	ReportDate string                `json:"report_date"`
	Result     reconcile.BatchResult `json:"result"`
	RowErrors  []string              `json:"row_errors,omitempty"`
	DailyRegs  int                   `json:"daily_regs"`
	SimsMarked int                   `json:"sims_marked_sold"`
	ArchiveKey string                `json:"archive_key,omitempty"`
	Cancelled  bool                  `json:"cancelled,omitempty"`
}

// UploadService owns the full life of a sales upload: parse, apply through
// the reconciliation engine, then the best-effort bookkeeping around it.
type UploadService struct {
	engine    *reconcile.Engine
	staffRepo *repositories.StaffRepository
	dailyRepo *repositories.DailyRepository
	simRepo   *repositories.SimBatchRepository
	archiver  *archive.Archiver
	maxRows   int
}

func NewUploadService(
	engine *reconcile.Engine,
	staffRepo *repositories.StaffRepository,
	dailyRepo *repositories.DailyRepository,
	simRepo *repositories.SimBatchRepository,
	archiver *archive.Archiver,
	maxRows int,
) *UploadService {
	if maxRows <= 0 {
		maxRows = 500
	}
	return &UploadService{
		engine:    engine,
		staffRepo: staffRepo,
		dailyRepo: dailyRepo,
		simRepo:   simRepo,
		archiver:  archiver,
		maxRows:   maxRows,
	}
}

// ApplyWorkbook ingests one sales workbook for (username, date).
//
// The reconciliation itself is atomic inside the engine. Everything after the
// commit (marking tracked SIMs sold, daily registrations and totals, the
// archive copy) is best-effort: failures there are logged, never unwound,
// because the ledger has already moved.
func (s *UploadService) ApplyWorkbook(ctx context.Context, username, rawDate string, fileBytes []byte) (*UploadReport, error) {
	date, err := timeutil.NormalizeDate(rawDate)
	if err != nil {
		return nil, err
	}

	staffID, err := s.staffRepo.Ensure(ctx, username, "")
	if err != nil {
		return nil, fmt.Errorf("ensure staff %q: %w", username, err)
	}
	key := reconcile.Key{EmployeeID: staffID, ReportDate: date}

	parsed, err := excel.ParseSales(bytes.NewReader(fileBytes))
	if err != nil {
		return nil, err
	}
	if len(parsed.Entries) > s.maxRows {
		return nil, fmt.Errorf("%w: %d rows, limit %d", ErrTooManyRows, len(parsed.Entries), s.maxRows)
	}

	report := &UploadReport{
		StaffID:    staffID,
		ReportDate: date,
		RowErrors:  parsed.RowErrors,
		DailyRegs:  parsed.DailyRegs,
	}

	// A workbook that parses to nothing cancels the day's upload: the live
	// batch is reverted and no new rows are written.
	if len(parsed.Entries) == 0 {
		deleted, err := s.engine.Revert(ctx, key)
		if err != nil {
			return nil, err
		}
		report.Cancelled = true
		report.Result.Inserted = 0
		if deleted > 0 {
			metrics.BatchesReverted.Inc()
		}
		if err := s.dailyRepo.DeleteReg(ctx, staffID, date); err != nil {
			log.Printf("[Upload] clear regs for %s: %v", key, err)
		}
		cache.InvalidateStock(ctx)
		return report, nil
	}

	start := time.Now()
	result, err := s.engine.ApplyBatch(ctx, key, parsed.Entries)
	metrics.BatchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, reconcile.ErrLockTimeout) {
			metrics.LockTimeouts.Inc()
		}
		return nil, err
	}
	report.Result = result

	metrics.BatchesApplied.Inc()
	metrics.RowsInserted.Add(float64(result.Inserted))
	for _, skip := range result.Skips {
		metrics.RowsSkipped.WithLabelValues(string(skip.Reason)).Inc()
	}

	s.afterCommit(ctx, key, parsed, fileBytes, report)
	cache.InvalidateStock(ctx)
	return report, nil
}

// afterCommit performs the bookkeeping that rides on a committed batch.
func (s *UploadService) afterCommit(ctx context.Context, key reconcile.Key, parsed *excel.SalesParse, fileBytes []byte, report *UploadReport) {
	// Tracked physical SIMs whose numbers were just sold
	if sold, err := s.engine.SoldIdentifiers(ctx, key); err != nil {
		log.Printf("[Upload] list sold identifiers for %s: %v", key, err)
	} else if marked, err := s.simRepo.MarkSold(ctx, sold); err != nil {
		log.Printf("[Upload] mark sims sold for %s: %v", key, err)
	} else {
		report.SimsMarked = marked
	}

	// Daily registrations: the workbook's figure replaces the previous one,
	// absent means absent
	if parsed.DailyRegs > 0 {
		if err := s.dailyRepo.UpsertReg(ctx, key.EmployeeID, key.ReportDate, parsed.DailyRegs); err != nil {
			log.Printf("[Upload] upsert regs for %s: %v", key, err)
		}
	} else if err := s.dailyRepo.DeleteReg(ctx, key.EmployeeID, key.ReportDate); err != nil {
		log.Printf("[Upload] clear regs for %s: %v", key, err)
	}

	// Day total from the committed amounts
	total := decimal.Zero
	for _, e := range parsed.Entries {
		total = total.Add(e.Amount)
	}
	if err := s.dailyRepo.UpsertTotal(ctx, key.ReportDate, nil, total); err != nil {
		log.Printf("[Upload] upsert daily total for %s: %v", key, err)
	}

	// Retain the original workbook
	if archiveKey, err := s.archiver.StoreUpload(ctx, key.EmployeeID, key.ReportDate, fileBytes); err != nil {
		log.Printf("[Upload] archive for %s: %v", key, err)
	} else {
		report.ArchiveKey = archiveKey
	}
}

// RevertDay undoes an employee's upload for a day (admin operation). Returns
// how many ledger rows were removed.
func (s *UploadService) RevertDay(ctx context.Context, staffID int, rawDate string) (int, error) {
	date, err := timeutil.NormalizeDate(rawDate)
	if err != nil {
		return 0, err
	}
	key := reconcile.Key{EmployeeID: staffID, ReportDate: date}

	deleted, err := s.engine.Revert(ctx, key)
	if err != nil {
		if errors.Is(err, reconcile.ErrLockTimeout) {
			metrics.LockTimeouts.Inc()
		}
		return 0, err
	}
	if deleted > 0 {
		metrics.BatchesReverted.Inc()
		cache.InvalidateStock(ctx)
	}
	if err := s.dailyRepo.DeleteReg(ctx, staffID, date); err != nil {
		log.Printf("[Upload] clear regs for %s: %v", key, err)
	}
	return deleted, nil
}

// DeleteSale removes one ledger row and restores its stock (admin operation),
// returning the removed row.
func (s *UploadService) DeleteSale(ctx context.Context, saleID int64) (*reconcile.SaleLineItem, error) {
	row, err := s.engine.DeleteSale(ctx, saleID)
	if err != nil {
		if errors.Is(err, reconcile.ErrLockTimeout) {
			metrics.LockTimeouts.Inc()
		}
		return nil, err
	}
	cache.InvalidateStock(ctx)
	return row, nil
}

// ImportPickup parses and imports a pickup-list workbook into the SIM tracker.
func (s *UploadService) ImportPickup(ctx context.Context, fileBytes []byte, location string) (*PickupOutcome, error) {
	rows, err := excel.ParsePickup(bytes.NewReader(fileBytes))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("pickup list has no usable rows")
	}
	if location == "" {
		location = "warehouse"
	}
	res, err := s.simRepo.ImportPickup(ctx, rows, location)
	if err != nil {
		return nil, err
	}
	cache.Invalidate(ctx, cache.SimStatusKey)
	return &PickupOutcome{Parsed: len(rows), Inserted: res.Inserted, Duplicates: res.Duplicates}, nil
}

type PickupOutcome struct {
	Parsed     int `json:"parsed"`
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
}
