package reconcile

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ItemKind classifies a sale line-item.
type ItemKind string

const (
	ItemSIM       ItemKind = "SIM"
	ItemSwap      ItemKind = "SWAP"
	ItemCredit50  ItemKind = "CREDIT50"
	ItemCredit100 ItemKind = "CREDIT100"
	ItemOther     ItemKind = "OTHER"
)

// ParseItemKind normalizes the spellings seen in uploaded workbooks
// ("sim_card", "credit-50", ...) into a canonical kind.
func ParseItemKind(s string) ItemKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sim", "simcard", "sim_card":
		return ItemSIM
	case "swap":
		return ItemSwap
	case "credit50", "credit_50", "credit-50":
		return ItemCredit50
	case "credit100", "credit_100", "credit-100":
		return ItemCredit100
	default:
		return ItemOther
	}
}

// UnitCounted reports whether each row of this kind represents exactly one
// physical unit, normally identified by a subscriber number.
func (k ItemKind) UnitCounted() bool {
	return k == ItemSIM || k == ItemSwap
}

// Counter is an inventory column name on the balance row.
type Counter string

const (
	CounterSIM       Counter = "sim"
	CounterSwap      Counter = "swap"
	CounterCredit50  Counter = "credit_50"
	CounterCredit100 Counter = "credit_100"
)

// Counter maps an item kind to the inventory counter it deducts from.
// The second return is false for kinds that carry no stock (OTHER).
func (k ItemKind) Counter() (Counter, bool) {
	switch k {
	case ItemSIM:
		return CounterSIM, true
	case ItemSwap:
		return CounterSwap, true
	case ItemCredit50:
		return CounterCredit50, true
	case ItemCredit100:
		return CounterCredit100, true
	default:
		return "", false
	}
}

// Counters lists every inventory counter, in balance-row order.
var Counters = []Counter{CounterSIM, CounterSwap, CounterCredit50, CounterCredit100}

// Key identifies the unit of locking and of last-upload-wins replacement:
// one employee's upload for one report date.
type Key struct {
	EmployeeID int
	ReportDate string // normalized "2006-01-02"
}

func (k Key) String() string {
	return fmt.Sprintf("%d@%s", k.EmployeeID, k.ReportDate)
}

// Balance is one employee's inventory counters.
type Balance struct {
	SIM       int       `json:"sim"`
	Swap      int       `json:"swap"`
	Credit50  int       `json:"credit_50"`
	Credit100 int       `json:"credit_100"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b Balance) Get(c Counter) int {
	switch c {
	case CounterSIM:
		return b.SIM
	case CounterSwap:
		return b.Swap
	case CounterCredit50:
		return b.Credit50
	case CounterCredit100:
		return b.Credit100
	}
	return 0
}

func (b *Balance) Add(c Counter, delta int) {
	switch c {
	case CounterSIM:
		b.SIM += delta
	case CounterSwap:
		b.Swap += delta
	case CounterCredit50:
		b.Credit50 += delta
	case CounterCredit100:
		b.Credit100 += delta
	}
}

// UnitRef is the tagged identifier-or-quantity carried by a row. The upload
// parser decides which side is set; the engine never guesses from the shape
// of the raw cell. Identifier wins when both are present.
type UnitRef struct {
	Identifier string `json:"identifier,omitempty"`
	Quantity   int    `json:"quantity,omitempty"`
}

// HasIdentifier reports whether the row carries a well-formed subscriber number.
func (u UnitRef) HasIdentifier() bool { return u.Identifier != "" }

// LineItem is one parsed row of an uploaded batch, as handed over by the
// spreadsheet collaborator.
type LineItem struct {
	Kind           ItemKind        `json:"item_kind"`
	Unit           UnitRef         `json:"unit"`
	Credit50Count  int             `json:"credit50_count,omitempty"`
	Credit100Count int             `json:"credit100_count,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	ContactNumber  string          `json:"contact_number,omitempty"`
	Notes          string          `json:"notes,omitempty"`
}

// deduction resolves how many units this row takes from its counter.
// Unit-counted kinds take exactly 1 per identified row, otherwise the parsed
// quantity; credit kinds take their explicit sub-count.
func (li LineItem) deduction() int {
	switch {
	case li.Kind == ItemCredit50:
		return li.Credit50Count
	case li.Kind == ItemCredit100:
		return li.Credit100Count
	case li.Kind.UnitCounted() && li.Unit.HasIdentifier():
		return 1
	default:
		return li.Unit.Quantity
	}
}

// SaleLineItem is a committed ledger row. Rows are never updated in place:
// the next upload for the same key deletes and replaces them.
type SaleLineItem struct {
	ID            int64           `json:"id"`
	EmployeeID    int             `json:"employee_id"`
	ReportDate    string          `json:"report_date"`
	Kind          ItemKind        `json:"item_kind"`
	Identifier    string          `json:"identifier,omitempty"`
	Quantity      int             `json:"quantity"`
	ContactNumber string          `json:"contact_number,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (s SaleLineItem) Key() Key {
	return Key{EmployeeID: s.EmployeeID, ReportDate: s.ReportDate}
}

// deduction mirrors LineItem.deduction for an already-committed row; used when
// the journal is missing entries for a row and the revert has to be derived
// from the ledger itself.
func (s SaleLineItem) deduction() int {
	if s.Kind.UnitCounted() && s.Identifier != "" {
		return 1
	}
	return s.Quantity
}

// Journal entry reasons.
const (
	ReasonSale     = "sale"
	ReasonRevert   = "revert"
	ReasonTransfer = "admin-transfer"
)

// JournalEntry is one immutable inventory delta. EmployeeID is nil for the
// backoffice side of a transfer. SourceRef links sale entries to the ledger
// row that caused them.
type JournalEntry struct {
	ID         int64     `json:"id"`
	EmployeeID *int      `json:"employee_id,omitempty"`
	Counter    Counter   `json:"counter"`
	Delta      int       `json:"delta"`
	Reason     string    `json:"reason"`
	Source     string    `json:"source"`
	SourceRef  *int64    `json:"source_ref,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// SkipReason classifies a row-level rejection. Skips are data returned to the
// caller, never errors.
type SkipReason string

const (
	SkipDuplicateInBatch  SkipReason = "duplicate-in-batch"
	SkipDuplicateGlobal   SkipReason = "duplicate-global"
	SkipInsufficientStock SkipReason = "insufficient-stock"
	SkipInvalidItemKind   SkipReason = "invalid-item-kind"
)

// Skip describes one rejected row, with enough context for the caller to
// explain it to the uploader.
type Skip struct {
	Row        int        `json:"row"`
	Kind       ItemKind   `json:"item_kind"`
	Reason     SkipReason `json:"reason"`
	Identifier string     `json:"identifier,omitempty"`
	Available  int        `json:"available,omitempty"`
	Requested  int        `json:"requested,omitempty"`
	// For duplicate-global: where the identifier was first sold.
	ConflictEmployeeID int    `json:"conflict_employee_id,omitempty"`
	ConflictDate       string `json:"conflict_date,omitempty"`
}

// BatchResult summarizes one ApplyBatch call.
type BatchResult struct {
	Inserted            int    `json:"inserted"`
	SkippedDuplicates   int    `json:"skipped_duplicates"`
	SkippedInsufficient int    `json:"skipped_insufficient"`
	SkippedInvalid      int    `json:"skipped_invalid"`
	Skips               []Skip `json:"skips,omitempty"`
}

func (r *BatchResult) record(s Skip) {
	switch s.Reason {
	case SkipDuplicateInBatch, SkipDuplicateGlobal:
		r.SkippedDuplicates++
	case SkipInsufficientStock:
		r.SkippedInsufficient++
	case SkipInvalidItemKind:
		r.SkippedInvalid++
	}
	r.Skips = append(r.Skips, s)
}
