package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"teleshop-backend/internal/models"
)

// InventoryRepository serves the read side of stock: listings and aggregates.
// All writes go through the reconcile store so they stay journaled.
type InventoryRepository struct {
	DB *pgxpool.Pool
}

func NewInventoryRepository(db *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{DB: db}
}

// ListAll returns every employee's counters with identity, ordered by
// username.
func (r *InventoryRepository) ListAll(ctx context.Context) ([]models.StaffStock, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT st.id, st.username, st.name,
		        i.sim, i.swap, i.credit_50, i.credit_100, i.updated_at
		 FROM inventory i
		 JOIN staff st ON st.id = i.staff_id
		 ORDER BY st.username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StaffStock
	for rows.Next() {
		var s models.StaffStock
		err := rows.Scan(&s.StaffID, &s.Username, &s.Name,
			&s.SIM, &s.Swap, &s.Credit50, &s.Credit100, &s.UpdatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Summary sums all employee counters chain-wide. The result is cached by the
// stock service; dirty reads here are fine.
func (r *InventoryRepository) Summary(ctx context.Context) (*models.StockSummary, error) {
	var s models.StockSummary
	err := r.DB.QueryRow(ctx,
		`SELECT COALESCE(SUM(sim), 0), COALESCE(SUM(swap), 0),
		        COALESCE(SUM(credit_50), 0), COALESCE(SUM(credit_100), 0)
		 FROM inventory`,
	).Scan(&s.SIM, &s.Swap, &s.Credit50, &s.Credit100)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
