package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"teleshop-backend/internal/reconcile"
)

// ReconcileRepository is the production reconcile.Store: every WithinTx maps
// to one database transaction, so the revert-then-apply cycle commits or rolls
// back as a whole.
type ReconcileRepository struct {
	DB *pgxpool.Pool
}

func NewReconcileRepository(db *pgxpool.Pool) *ReconcileRepository {
	return &ReconcileRepository{DB: db}
}

// counterColumn whitelists inventory column names; counters come from parsed
// item kinds but the SQL is built by concatenation, so keep the gate here.
func counterColumn(c reconcile.Counter) (string, error) {
	switch c {
	case reconcile.CounterSIM, reconcile.CounterSwap, reconcile.CounterCredit50, reconcile.CounterCredit100:
		return string(c), nil
	}
	return "", fmt.Errorf("unknown inventory counter %q", c)
}

func (r *ReconcileRepository) WithinTx(ctx context.Context, fn func(tx reconcile.Tx) error) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reconcile tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&reconcileTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ReconcileRepository) Balance(ctx context.Context, employeeID int) (reconcile.Balance, error) {
	return scanBalance(ctx, r.DB, employeeID)
}

func (r *ReconcileRepository) ListSales(ctx context.Context, key reconcile.Key) ([]reconcile.SaleLineItem, error) {
	return querySales(ctx, r.DB, key)
}

func (r *ReconcileRepository) GetSale(ctx context.Context, id int64) (*reconcile.SaleLineItem, error) {
	return getSale(ctx, r.DB, id)
}

func (r *ReconcileRepository) Backoffice(ctx context.Context) (map[reconcile.Counter]int, error) {
	rows, err := r.DB.Query(ctx, `SELECT item, quantity FROM backoffice_stock ORDER BY item`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[reconcile.Counter]int)
	for rows.Next() {
		var item string
		var qty int
		if err := rows.Scan(&item, &qty); err != nil {
			return nil, err
		}
		out[reconcile.Counter(item)] = qty
	}
	return out, rows.Err()
}

// querier is the subset of pgxpool.Pool and pgx.Tx the scans need.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanBalance(ctx context.Context, q querier, employeeID int) (reconcile.Balance, error) {
	var b reconcile.Balance
	err := q.QueryRow(ctx,
		`SELECT sim, swap, credit_50, credit_100, updated_at FROM inventory WHERE staff_id = $1`,
		employeeID,
	).Scan(&b.SIM, &b.Swap, &b.Credit50, &b.Credit100, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return reconcile.Balance{}, reconcile.ErrNoBalance
	}
	if err != nil {
		return reconcile.Balance{}, err
	}
	return b, nil
}

const saleColumns = `id, staff_id, report_date::text, item_kind, COALESCE(identifier, ''),
	quantity, contact_number, amount, notes, created_at`

func scanSale(row pgx.Row) (reconcile.SaleLineItem, error) {
	var s reconcile.SaleLineItem
	var kind string
	err := row.Scan(&s.ID, &s.EmployeeID, &s.ReportDate, &kind, &s.Identifier,
		&s.Quantity, &s.ContactNumber, &s.Amount, &s.Notes, &s.CreatedAt)
	if err != nil {
		return s, err
	}
	s.Kind = reconcile.ItemKind(kind)
	return s, nil
}

func querySales(ctx context.Context, q querier, key reconcile.Key) ([]reconcile.SaleLineItem, error) {
	rows, err := q.Query(ctx,
		`SELECT `+saleColumns+` FROM sales WHERE staff_id = $1 AND report_date = $2::date ORDER BY id`,
		key.EmployeeID, key.ReportDate,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reconcile.SaleLineItem
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func getSale(ctx context.Context, q querier, id int64) (*reconcile.SaleLineItem, error) {
	s, err := scanSale(q.QueryRow(ctx,
		`SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

type reconcileTx struct {
	tx pgx.Tx
}

func (t *reconcileTx) Balance(ctx context.Context, employeeID int) (reconcile.Balance, error) {
	return scanBalance(ctx, t.tx, employeeID)
}

func (t *reconcileTx) AdjustBalance(ctx context.Context, employeeID int, c reconcile.Counter, delta int) error {
	col, err := counterColumn(c)
	if err != nil {
		return err
	}

	// Reject (never clamp) at the point of adjustment: the WHERE clause
	// refuses an update that would go negative, the CHECK constraint backs
	// it up.
	tag, err := t.tx.Exec(ctx,
		fmt.Sprintf(`UPDATE inventory SET %s = %s + $1 WHERE staff_id = $2 AND %s + $1 >= 0`, col, col, col),
		delta, employeeID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := t.tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM inventory WHERE staff_id = $1)`, employeeID,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return reconcile.ErrNoBalance
		}
		return reconcile.ErrNegativeBalance
	}
	return nil
}

func (t *reconcileTx) AdjustBackoffice(ctx context.Context, c reconcile.Counter, delta int) error {
	col, err := counterColumn(c)
	if err != nil {
		return err
	}

	if delta >= 0 {
		_, err := t.tx.Exec(ctx,
			`INSERT INTO backoffice_stock (item, quantity) VALUES ($1, $2)
			 ON CONFLICT (item) DO UPDATE SET quantity = backoffice_stock.quantity + $2`,
			col, delta,
		)
		return err
	}

	tag, err := t.tx.Exec(ctx,
		`UPDATE backoffice_stock SET quantity = quantity + $1 WHERE item = $2 AND quantity + $1 >= 0`,
		delta, col,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return reconcile.ErrNegativeBalance
	}
	return nil
}

func (t *reconcileTx) TouchBalance(ctx context.Context, employeeID int) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE inventory SET updated_at = NOW() WHERE staff_id = $1`, employeeID)
	return err
}

func (t *reconcileTx) LiveSales(ctx context.Context, key reconcile.Key) ([]reconcile.SaleLineItem, error) {
	return querySales(ctx, t.tx, key)
}

func (t *reconcileTx) DeleteSales(ctx context.Context, key reconcile.Key) (int, error) {
	tag, err := t.tx.Exec(ctx,
		`DELETE FROM sales WHERE staff_id = $1 AND report_date = $2::date`,
		key.EmployeeID, key.ReportDate,
	)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (t *reconcileTx) GetSale(ctx context.Context, id int64) (*reconcile.SaleLineItem, error) {
	return getSale(ctx, t.tx, id)
}

func (t *reconcileTx) DeleteSale(ctx context.Context, id int64) (bool, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *reconcileTx) InsertSale(ctx context.Context, s *reconcile.SaleLineItem) error {
	return t.tx.QueryRow(ctx,
		`INSERT INTO sales (staff_id, report_date, item_kind, identifier, quantity, contact_number, amount, notes)
		 VALUES ($1, $2::date, $3, NULLIF($4, ''), $5, $6, $7, $8)
		 RETURNING id, created_at`,
		s.EmployeeID, s.ReportDate, string(s.Kind), s.Identifier, s.Quantity,
		s.ContactNumber, s.Amount, s.Notes,
	).Scan(&s.ID, &s.CreatedAt)
}

func (t *reconcileTx) AppendJournal(ctx context.Context, e *reconcile.JournalEntry) error {
	return t.tx.QueryRow(ctx,
		`INSERT INTO inventory_journal (staff_id, item, delta, reason, source, source_ref)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		e.EmployeeID, string(e.Counter), e.Delta, e.Reason, e.Source, e.SourceRef,
	).Scan(&e.ID, &e.CreatedAt)
}

func (t *reconcileTx) SaleJournal(ctx context.Context, saleIDs []int64) ([]reconcile.JournalEntry, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT id, staff_id, item, delta, reason, source, source_ref, created_at
		 FROM inventory_journal
		 WHERE reason = $1 AND source_ref = ANY($2)`,
		reconcile.ReasonSale, saleIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reconcile.JournalEntry
	for rows.Next() {
		var e reconcile.JournalEntry
		var item string
		if err := rows.Scan(&e.ID, &e.EmployeeID, &item, &e.Delta, &e.Reason, &e.Source, &e.SourceRef, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Counter = reconcile.Counter(item)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (t *reconcileTx) FindLiveIdentifier(ctx context.Context, identifier string, exclude reconcile.Key) (*reconcile.SaleLineItem, error) {
	s, err := scanSale(t.tx.QueryRow(ctx,
		`SELECT `+saleColumns+` FROM sales
		 WHERE identifier = $1 AND item_kind IN ($2, $3)
		   AND NOT (staff_id = $4 AND report_date = $5::date)
		 LIMIT 1`,
		identifier, string(reconcile.ItemSIM), string(reconcile.ItemSwap),
		exclude.EmployeeID, exclude.ReportDate,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
