package excel

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"teleshop-backend/internal/models"
)

var reportColumns = []string{"Employee", "Item", "GSM Number", "Qty", "Amount", "Contact", "Notes"}

// DailyReport renders the day's ledger as a workbook, one row per committed
// sale, with a totals row at the bottom.
func DailyReport(date string, sales []models.SaleWithStaff) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sales " + date
	f.SetSheetName("Sheet1", sheet)

	for i, name := range reportColumns {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, col+"1", name); err != nil {
			return nil, err
		}
	}

	total := decimal.Zero
	for i, s := range sales {
		rowNum := i + 2
		values := []interface{}{
			s.Username,
			string(s.Kind),
			s.Identifier,
			s.Quantity,
			s.Amount.InexactFloat64(),
			s.ContactNumber,
			s.Notes,
		}
		for j, v := range values {
			col, err := excelize.ColumnNumberToName(j + 1)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, rowNum), v); err != nil {
				return nil, err
			}
		}
		total = total.Add(s.Amount)
	}

	totalRow := len(sales) + 3
	if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", totalRow), "TOTAL"); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(sheet, fmt.Sprintf("E%d", totalRow), total.InexactFloat64()); err != nil {
		return nil, err
	}

	return f.WriteToBuffer()
}
