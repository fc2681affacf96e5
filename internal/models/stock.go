package models

import (
	"teleshop-backend/internal/reconcile"
)

// StaffStock is one employee's balance with identity attached, for listings.
type StaffStock struct {
	StaffID  int    `json:"staff_id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	reconcile.Balance
}

// StockSummary is the chain-wide aggregate of all employee counters. Reads
// are lock-free and may be slightly stale; the cache layer relies on that.
type StockSummary struct {
	SIM       int `json:"sim"`
	Swap      int `json:"swap"`
	Credit50  int `json:"credit_50"`
	Credit100 int `json:"credit_100"`
}

// SaleWithStaff is a ledger row joined with the selling employee, for the
// date-wide listings that feed reports.
type SaleWithStaff struct {
	reconcile.SaleLineItem
	Username string `json:"username"`
	Name     string `json:"name"`
}

// TransferRequest moves stock between holders. From == 0 means backoffice.
type TransferRequest struct {
	FromStaffID int    `json:"from_staff_id"`
	ToStaffID   int    `json:"to_staff_id"`
	Item        string `json:"item"`
	Quantity    int    `json:"quantity"`
}
