package models

import "time"

// SIM batch lifecycle statuses.
const (
	SimStatusInStock = "in_stock"
	SimStatusSent    = "sent"
	SimStatusSold    = "sold"
)

// SimBatch is one physical SIM card tracked from pickup to sale.
type SimBatch struct {
	ID              int64      `json:"id"`
	CartonNo        string     `json:"carton_no,omitempty"`
	BoxNo           string     `json:"box_no,omitempty"`
	GSMNumber       string     `json:"gsm_number"`
	ICCID           string     `json:"iccid,omitempty"`
	SimType         string     `json:"sim_type,omitempty"`
	CurrentLocation string     `json:"current_location"`
	Status          string     `json:"status"`
	Note            string     `json:"note,omitempty"`
	DateAdded       time.Time  `json:"date_added"`
	DateSent        *time.Time `json:"date_sent,omitempty"`
}

// PickupRow is one parsed row of a pickup-list workbook.
type PickupRow struct {
	CartonNo  string `json:"carton_no,omitempty"`
	BoxNo     string `json:"box_no,omitempty"`
	GSMNumber string `json:"gsm_number"`
	ICCID     string `json:"iccid,omitempty"`
	SimType   string `json:"sim_type,omitempty"`
}

// PickupImportResult summarizes a pickup-list import.
type PickupImportResult struct {
	Inserted   int      `json:"inserted"`
	Duplicates int      `json:"duplicates"`
	Errors     []string `json:"errors,omitempty"`
}

// SimTransferResult reports a location transfer of tracked SIMs.
type SimTransferResult struct {
	Moved int      `json:"moved"`
	GSMs  []string `json:"gsms"`
}
