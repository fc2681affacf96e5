package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"teleshop-backend/internal/models"
)

type SimBatchRepository struct {
	DB *pgxpool.Pool
}

func NewSimBatchRepository(db *pgxpool.Pool) *SimBatchRepository {
	return &SimBatchRepository{DB: db}
}

// ImportPickup inserts a pickup list in one transaction. GSM numbers already
// tracked are counted as duplicates, not errors; re-importing the same list
// is a no-op.
func (r *SimBatchRepository) ImportPickup(ctx context.Context, rows []models.PickupRow, location string) (*models.PickupImportResult, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin pickup import: %w", err)
	}
	defer tx.Rollback(ctx)

	res := &models.PickupImportResult{}
	for _, row := range rows {
		tag, err := tx.Exec(ctx,
			`INSERT INTO sim_batches (carton_no, box_no, gsm_number, iccid, sim_type, current_location)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (gsm_number) DO NOTHING`,
			row.CartonNo, row.BoxNo, row.GSMNumber, row.ICCID, row.SimType, location,
		)
		if err != nil {
			return nil, fmt.Errorf("insert sim %s: %w", row.GSMNumber, err)
		}
		if tag.RowsAffected() == 0 {
			res.Duplicates++
		} else {
			res.Inserted++
		}
	}
	return res, tx.Commit(ctx)
}

// transferField whitelists the columns a location transfer may select by.
func transferField(by string) (string, error) {
	switch by {
	case "carton", "carton_no":
		return "carton_no", nil
	case "box", "box_no":
		return "box_no", nil
	case "gsm", "gsm_number":
		return "gsm_number", nil
	}
	return "", fmt.Errorf("unknown transfer selector %q", by)
}

// Transfer moves every in-stock SIM matching (by, value) to a new location
// and stamps date_sent.
func (r *SimBatchRepository) Transfer(ctx context.Context, by, value, toLocation string) (*models.SimTransferResult, error) {
	col, err := transferField(by)
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx,
		fmt.Sprintf(`UPDATE sim_batches
		 SET current_location = $1, status = $2, date_sent = NOW()
		 WHERE %s = $3 AND status = $4
		 RETURNING gsm_number`, col),
		toLocation, models.SimStatusSent, value, models.SimStatusInStock,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := &models.SimTransferResult{}
	for rows.Next() {
		var gsm string
		if err := rows.Scan(&gsm); err != nil {
			return nil, err
		}
		res.GSMs = append(res.GSMs, gsm)
	}
	res.Moved = len(res.GSMs)
	return res, rows.Err()
}

// MarkSold flips tracked SIMs to sold after a batch commits. Numbers not in
// the tracker are ignored; the sales ledger is authoritative either way.
func (r *SimBatchRepository) MarkSold(ctx context.Context, gsmNumbers []string) (int, error) {
	if len(gsmNumbers) == 0 {
		return 0, nil
	}
	tag, err := r.DB.Exec(ctx,
		`UPDATE sim_batches SET status = $1 WHERE gsm_number = ANY($2) AND status <> $1`,
		models.SimStatusSold, gsmNumbers,
	)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// Status looks up one tracked SIM by GSM number; nil when untracked.
func (r *SimBatchRepository) Status(ctx context.Context, gsmNumber string) (*models.SimBatch, error) {
	var b models.SimBatch
	err := r.DB.QueryRow(ctx,
		`SELECT id, carton_no, box_no, gsm_number, iccid, sim_type,
		        current_location, status, note, date_added, date_sent
		 FROM sim_batches WHERE gsm_number = $1`,
		gsmNumber,
	).Scan(&b.ID, &b.CartonNo, &b.BoxNo, &b.GSMNumber, &b.ICCID, &b.SimType,
		&b.CurrentLocation, &b.Status, &b.Note, &b.DateAdded, &b.DateSent)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CountByStatus summarizes the tracker for the stock overview.
func (r *SimBatchRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT status, COUNT(*) FROM sim_batches GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}
