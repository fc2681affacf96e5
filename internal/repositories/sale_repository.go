package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"teleshop-backend/internal/models"
	"teleshop-backend/internal/reconcile"
)

type SaleRepository struct {
	DB *pgxpool.Pool
}

func NewSaleRepository(db *pgxpool.Pool) *SaleRepository {
	return &SaleRepository{DB: db}
}

// AllByDate lists every employee's ledger rows for one report date, joined
// with staff identity. Feeds the daily report.
func (r *SaleRepository) AllByDate(ctx context.Context, date string) ([]models.SaleWithStaff, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT s.id, s.staff_id, s.report_date::text, s.item_kind, COALESCE(s.identifier, ''),
		        s.quantity, s.contact_number, s.amount, s.notes, s.created_at,
		        st.username, st.name
		 FROM sales s
		 JOIN staff st ON st.id = s.staff_id
		 WHERE s.report_date = $1::date
		 ORDER BY st.username, s.id`,
		date,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SaleWithStaff
	for rows.Next() {
		var s models.SaleWithStaff
		var kind string
		err := rows.Scan(&s.ID, &s.EmployeeID, &s.ReportDate, &kind, &s.Identifier,
			&s.Quantity, &s.ContactNumber, &s.Amount, &s.Notes, &s.CreatedAt,
			&s.Username, &s.Name)
		if err != nil {
			return nil, err
		}
		s.Kind = reconcile.ItemKind(kind)
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountsByStaffBetween returns per-(staff, date) unit-sale counts over a date
// range, merged with the registration counts recorded for the same days. The
// full outer join keeps days that have only sales or only registrations.
func (r *SaleRepository) CountsByStaffBetween(ctx context.Context, from, to string) ([]models.StaffDayCounts, error) {
	rows, err := r.DB.Query(ctx,
		`WITH sold AS (
		     SELECT staff_id, report_date,
		            COUNT(*) FILTER (WHERE item_kind = $3) AS sim_count,
		            COUNT(*) FILTER (WHERE item_kind = $4) AS swap_count
		     FROM sales
		     WHERE report_date BETWEEN $1::date AND $2::date
		     GROUP BY staff_id, report_date
		 ), regs AS (
		     SELECT staff_id, date AS report_date, reg_count
		     FROM daily_regs
		     WHERE date BETWEEN $1::date AND $2::date
		 )
		 SELECT st.username,
		        COALESCE(sold.report_date, regs.report_date)::text,
		        COALESCE(sold.sim_count, 0),
		        COALESCE(sold.swap_count, 0),
		        COALESCE(regs.reg_count, 0)
		 FROM sold
		 FULL OUTER JOIN regs
		   ON regs.staff_id = sold.staff_id AND regs.report_date = sold.report_date
		 JOIN staff st ON st.id = COALESCE(sold.staff_id, regs.staff_id)
		 ORDER BY 2, st.username`,
		from, to, string(reconcile.ItemSIM), string(reconcile.ItemSwap),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StaffDayCounts
	for rows.Next() {
		var c models.StaffDayCounts
		if err := rows.Scan(&c.Username, &c.ReportDate, &c.SimCount, &c.SwapCount, &c.RegCount); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
