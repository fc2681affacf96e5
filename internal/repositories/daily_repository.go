package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"teleshop-backend/internal/models"
)

// DailyRepository stores per-day registration counts and recorded sales
// totals. Both follow the same replacement rule as the sales ledger: a
// re-upload for the same day overwrites what the previous one wrote.
type DailyRepository struct {
	DB *pgxpool.Pool
}

func NewDailyRepository(db *pgxpool.Pool) *DailyRepository {
	return &DailyRepository{DB: db}
}

func (r *DailyRepository) UpsertReg(ctx context.Context, staffID int, date string, regCount int) error {
	_, err := r.DB.Exec(ctx,
		`INSERT INTO daily_regs (staff_id, date, reg_count)
		 VALUES ($1, $2::date, $3)
		 ON CONFLICT (staff_id, date) DO UPDATE SET reg_count = EXCLUDED.reg_count`,
		staffID, date, regCount,
	)
	return err
}

// DeleteReg clears a day's registration row, used when a re-upload carries no
// registration figure any more.
func (r *DailyRepository) DeleteReg(ctx context.Context, staffID int, date string) error {
	_, err := r.DB.Exec(ctx,
		`DELETE FROM daily_regs WHERE staff_id = $1 AND date = $2::date`, staffID, date)
	return err
}

// RegTotalsBetween aggregates registrations per staff over a date range.
func (r *DailyRepository) RegTotalsBetween(ctx context.Context, from, to string) ([]models.RegTotal, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT st.id, st.username, st.name, COALESCE(SUM(dr.reg_count), 0)
		 FROM daily_regs dr
		 JOIN staff st ON st.id = dr.staff_id
		 WHERE dr.date BETWEEN $1::date AND $2::date
		 GROUP BY st.id, st.username, st.name
		 ORDER BY st.username`,
		from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RegTotal
	for rows.Next() {
		var t models.RegTotal
		if err := rows.Scan(&t.StaffID, &t.Username, &t.Name, &t.TotalRegs); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpsertTotal records a day's sales total for a shop (nil = chain-wide),
// replacing any earlier figure for the same day and shop.
func (r *DailyRepository) UpsertTotal(ctx context.Context, date string, shopID *int, amount decimal.Decimal) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin daily total: %w", err)
	}
	defer tx.Rollback(ctx)

	// No partial-unique index over the nullable shop column, so replace by
	// delete-then-insert inside the transaction.
	if _, err := tx.Exec(ctx,
		`DELETE FROM daily_totals WHERE date = $1::date AND shop_id IS NOT DISTINCT FROM $2`,
		date, shopID,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO daily_totals (date, shop_id, total_amount) VALUES ($1::date, $2, $3)`,
		date, shopID, amount,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// TotalsBetween lists recorded totals in a date range, oldest first.
func (r *DailyRepository) TotalsBetween(ctx context.Context, from, to string) ([]models.DailyTotal, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, date::text, shop_id, total_amount, created_at
		 FROM daily_totals
		 WHERE date BETWEEN $1::date AND $2::date
		 ORDER BY date, shop_id NULLS FIRST`,
		from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DailyTotal
	for rows.Next() {
		var t models.DailyTotal
		if err := rows.Scan(&t.ID, &t.Date, &t.ShopID, &t.TotalAmount, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
