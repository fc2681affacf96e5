package reconcile

import "context"

// Store is the durable state the engine reconciles against. All mutation runs
// inside WithinTx; the callback either commits as a whole or leaves no trace.
type Store interface {
	// WithinTx runs fn inside a single transaction. A non-nil error from fn
	// rolls everything back and is returned unchanged.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	// Balance reads an employee's counters outside any transaction.
	// Returns ErrNoBalance if the employee was never provisioned.
	Balance(ctx context.Context, employeeID int) (Balance, error)

	// ListSales returns the live ledger rows for a key, in insertion order.
	ListSales(ctx context.Context, key Key) ([]SaleLineItem, error)

	// GetSale returns one live ledger row by id, or nil when it does not
	// exist.
	GetSale(ctx context.Context, id int64) (*SaleLineItem, error)

	// Backoffice reads the central stock counters.
	Backoffice(ctx context.Context) (map[Counter]int, error)
}

// Tx is one open reconciliation transaction.
type Tx interface {
	// Balance reads counters as of this transaction.
	Balance(ctx context.Context, employeeID int) (Balance, error)

	// AdjustBalance adds delta (may be negative) to one counter. It must
	// reject with ErrNegativeBalance rather than clamp when the result would
	// go below zero, and ErrNoBalance when the row is missing.
	AdjustBalance(ctx context.Context, employeeID int, c Counter, delta int) error

	// AdjustBackoffice adds delta to a central (chain-level) counter, with
	// the same non-negativity contract.
	AdjustBackoffice(ctx context.Context, c Counter, delta int) error

	// TouchBalance bumps the employee's updated_at stamp.
	TouchBalance(ctx context.Context, employeeID int) error

	// LiveSales returns the live ledger rows under key, in insertion order.
	LiveSales(ctx context.Context, key Key) ([]SaleLineItem, error)

	// DeleteSales tombstones the live rows under key, returning how many.
	DeleteSales(ctx context.Context, key Key) (int, error)

	// GetSale returns one live ledger row by id as of this transaction, or
	// nil when it does not exist.
	GetSale(ctx context.Context, id int64) (*SaleLineItem, error)

	// DeleteSale removes a single ledger row, reporting whether it existed.
	DeleteSale(ctx context.Context, id int64) (bool, error)

	// InsertSale appends a ledger row and fills in its ID and CreatedAt.
	InsertSale(ctx context.Context, s *SaleLineItem) error

	// AppendJournal appends an immutable delta record.
	AppendJournal(ctx context.Context, e *JournalEntry) error

	// SaleJournal returns all sale-reason journal entries whose source_ref is
	// one of the given ledger row ids.
	SaleJournal(ctx context.Context, saleIDs []int64) ([]JournalEntry, error)

	// FindLiveIdentifier looks up a live ledger row of a unit-counted kind
	// carrying the identifier, ignoring rows under exclude (they are about to
	// be replaced). Returns nil when the identifier is unsold.
	FindLiveIdentifier(ctx context.Context, identifier string, exclude Key) (*SaleLineItem, error)
}
