package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyReg is one employee's registration count for a day. Re-uploads
// replace the row (last-upload-wins).
type DailyReg struct {
	StaffID   int       `json:"staff_id"`
	Date      string    `json:"date"`
	RegCount  int       `json:"reg_count"`
	CreatedAt time.Time `json:"created_at"`
}

// RegTotal aggregates registrations per staff over a date range.
type RegTotal struct {
	StaffID   int    `json:"staff_id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	TotalRegs int    `json:"total_regs"`
}

// DailyTotal is a recorded per-shop (or chain-wide, ShopID nil) sales total
// for a day.
type DailyTotal struct {
	ID          int64           `json:"id"`
	Date        string          `json:"date"`
	ShopID      *int            `json:"shop_id,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
}

// StaffDayCounts is one (staff, date) row of the range report: unit sales and
// registrations.
type StaffDayCounts struct {
	Username   string `json:"username"`
	ReportDate string `json:"report_date"`
	SimCount   int    `json:"sim_count"`
	SwapCount  int    `json:"swap_count"`
	RegCount   int    `json:"reg_count"`
}
