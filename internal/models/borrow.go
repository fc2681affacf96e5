package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Borrow is one money-lent record in an admin's personal borrow ledger.
type Borrow struct {
	ID         int64           `json:"id"`
	AdminID    int             `json:"admin_id"`
	PersonName string          `json:"person_name"`
	Amount     decimal.Decimal `json:"amount"`
	Date       string          `json:"date"`
	Note       string          `json:"note,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// BorrowSummary is one person's outstanding total across a borrow ledger.
type BorrowSummary struct {
	PersonName string          `json:"person_name"`
	Total      decimal.Decimal `json:"total"`
}

// SummarizeBorrows totals the records per person, sorted by name.
func SummarizeBorrows(rows []Borrow) []BorrowSummary {
	totals := make(map[string]decimal.Decimal)
	for _, b := range rows {
		totals[b.PersonName] = totals[b.PersonName].Add(b.Amount)
	}

	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]BorrowSummary, 0, len(names))
	for _, name := range names {
		out = append(out, BorrowSummary{PersonName: name, Total: totals[name]})
	}
	return out
}
