package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"teleshop-backend/internal/reconcile"
)

// JournalRepository reads the append-only inventory journal. Nothing here
// writes: journal entries are appended only inside reconcile transactions.
type JournalRepository struct {
	DB *pgxpool.Pool
}

func NewJournalRepository(db *pgxpool.Pool) *JournalRepository {
	return &JournalRepository{DB: db}
}

const journalColumns = `id, staff_id, item, delta, reason, source, source_ref, created_at`

func scanJournal(rows pgx.Rows) ([]reconcile.JournalEntry, error) {
	defer rows.Close()

	var out []reconcile.JournalEntry
	for rows.Next() {
		var e reconcile.JournalEntry
		var item string
		if err := rows.Scan(&e.ID, &e.EmployeeID, &item, &e.Delta, &e.Reason,
			&e.Source, &e.SourceRef, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Counter = reconcile.Counter(item)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ByEmployee returns an employee's most recent journal entries, newest first.
func (r *JournalRepository) ByEmployee(ctx context.Context, employeeID, limit int) ([]reconcile.JournalEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.Query(ctx,
		`SELECT `+journalColumns+` FROM inventory_journal
		 WHERE staff_id = $1 ORDER BY id DESC LIMIT $2`,
		employeeID, limit,
	)
	if err != nil {
		return nil, err
	}
	return scanJournal(rows)
}

// Recent returns the latest entries across all holders, newest first.
func (r *JournalRepository) Recent(ctx context.Context, limit int) ([]reconcile.JournalEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.Query(ctx,
		`SELECT `+journalColumns+` FROM inventory_journal ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return scanJournal(rows)
}

// NetDelta sums an employee's journal deltas per counter. With the recorded
// initial balance it reproduces the current counters; the reconcile check
// endpoint compares the two.
func (r *JournalRepository) NetDelta(ctx context.Context, employeeID int) (map[reconcile.Counter]int, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT item, COALESCE(SUM(delta), 0) FROM inventory_journal
		 WHERE staff_id = $1 GROUP BY item`,
		employeeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[reconcile.Counter]int)
	for rows.Next() {
		var item string
		var sum int
		if err := rows.Scan(&item, &sum); err != nil {
			return nil, err
		}
		out[reconcile.Counter(item)] = sum
	}
	return out, rows.Err()
}
