package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"teleshop-backend/internal/models"
)

// BorrowRepository stores each admin's personal borrow ledger. The records
// live outside the inventory counters entirely.
type BorrowRepository struct {
	DB *pgxpool.Pool
}

func NewBorrowRepository(db *pgxpool.Pool) *BorrowRepository {
	return &BorrowRepository{DB: db}
}

func (r *BorrowRepository) Add(ctx context.Context, b *models.Borrow) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO borrow_list (admin_id, person_name, amount, date, note)
		 VALUES ($1, $2, $3, $4::date, $5)
		 RETURNING id, created_at`,
		b.AdminID, b.PersonName, b.Amount, b.Date, b.Note,
	).Scan(&b.ID, &b.CreatedAt)
}

const borrowColumns = `id, admin_id, person_name, amount, date::text, note, created_at`

// ListForAdmin returns an admin's records, newest first.
func (r *BorrowRepository) ListForAdmin(ctx context.Context, adminID int) ([]models.Borrow, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+borrowColumns+` FROM borrow_list
		 WHERE admin_id = $1
		 ORDER BY date DESC, id DESC`,
		adminID,
	)
	if err != nil {
		return nil, err
	}
	return scanBorrows(rows)
}

// ListBetween restricts an admin's records to a date range, newest first.
func (r *BorrowRepository) ListBetween(ctx context.Context, adminID int, from, to string) ([]models.Borrow, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+borrowColumns+` FROM borrow_list
		 WHERE admin_id = $1 AND date BETWEEN $2::date AND $3::date
		 ORDER BY date DESC, id DESC`,
		adminID, from, to,
	)
	if err != nil {
		return nil, err
	}
	return scanBorrows(rows)
}

func scanBorrows(rows pgx.Rows) ([]models.Borrow, error) {
	defer rows.Close()

	var out []models.Borrow
	for rows.Next() {
		var b models.Borrow
		if err := rows.Scan(&b.ID, &b.AdminID, &b.PersonName, &b.Amount, &b.Date, &b.Note, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
