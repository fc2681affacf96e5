package excel_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"teleshop-backend/internal/excel"
	"teleshop-backend/internal/reconcile"
)

// buildWorkbook writes header + rows to an in-memory xlsx.
func buildWorkbook(t *testing.T, header []string, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range header {
		col, err := excelize.ColumnNumberToName(i + 1)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue("Sheet1", col+"1", name))
	}
	for r, row := range rows {
		for c, v := range row {
			col, err := excelize.ColumnNumberToName(c + 1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", fmt.Sprintf("%s%d", col, r+2), v))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

var salesHeader = []string{"item_code", "Number", "Recharge", "credit_50", "credit_100", "Notes", "contact_number"}

func decimalFrom(n int) decimal.Decimal { return decimal.NewFromInt(int64(n)) }

func TestParseSalesSimRows(t *testing.T) {
	buf := buildWorkbook(t, salesHeader, [][]interface{}{
		{"sim", "123456789", 5000, "", "", "REG: 12", "07701112233"},
		{"swap", "987654321", "", "", "", "", ""},
	})

	parsed, err := excel.ParseSales(buf)
	require.NoError(t, err)
	assert.Empty(t, parsed.RowErrors)
	assert.Equal(t, 12, parsed.DailyRegs)

	require.Len(t, parsed.Entries, 2)
	first := parsed.Entries[0]
	assert.Equal(t, reconcile.ItemSIM, first.Kind)
	assert.Equal(t, "123456789", first.Unit.Identifier)
	assert.True(t, first.Amount.Equal(decimalFrom(5000)))
	assert.Equal(t, "07701112233", first.ContactNumber)

	assert.Equal(t, reconcile.ItemSwap, parsed.Entries[1].Kind)
	assert.Equal(t, "987654321", parsed.Entries[1].Unit.Identifier)
}

func TestParseSalesRejectsMalformedGSM(t *testing.T) {
	buf := buildWorkbook(t, salesHeader, [][]interface{}{
		{"sim", "12345", "", "", "", "", ""},       // too short
		{"sim", "", "", "", "", "", ""},            // missing
		{"sim", "123456789", "", "", "", "", ""},   // good
		{"sim", "1234567890", "", "", "", "", ""},  // too long
	})

	parsed, err := excel.ParseSales(buf)
	require.NoError(t, err)
	require.Len(t, parsed.Entries, 1)
	assert.Equal(t, "123456789", parsed.Entries[0].Unit.Identifier)
	assert.Len(t, parsed.RowErrors, 3)
}

func TestParseSalesStripsFloatArtifacts(t *testing.T) {
	// Spreadsheets routinely store numbers as floats; "123456789.0" must
	// still count as a well-formed GSM.
	buf := buildWorkbook(t, salesHeader, [][]interface{}{
		{"sim", "123456789.0", "", "", "", "", ""},
	})

	parsed, err := excel.ParseSales(buf)
	require.NoError(t, err)
	require.Len(t, parsed.Entries, 1)
	assert.Equal(t, "123456789", parsed.Entries[0].Unit.Identifier)
}

func TestParseSalesCreditColumnsSplitOff(t *testing.T) {
	buf := buildWorkbook(t, salesHeader, [][]interface{}{
		{"sim", "123456789", "", 3, 2, "", ""},
	})

	parsed, err := excel.ParseSales(buf)
	require.NoError(t, err)
	require.Len(t, parsed.Entries, 3)
	assert.Equal(t, reconcile.ItemSIM, parsed.Entries[0].Kind)
	assert.Equal(t, reconcile.ItemCredit50, parsed.Entries[1].Kind)
	assert.Equal(t, 3, parsed.Entries[1].Credit50Count)
	assert.Equal(t, reconcile.ItemCredit100, parsed.Entries[2].Kind)
	assert.Equal(t, 2, parsed.Entries[2].Credit100Count)
}

func TestParseSalesExplicitCreditItemCode(t *testing.T) {
	buf := buildWorkbook(t, salesHeader, [][]interface{}{
		{"credit_50", 4, "", "", "", "", ""}, // count in the Number column
		{"credit100", "", "", "", 6, "", ""}, // count in the credit column
	})

	parsed, err := excel.ParseSales(buf)
	require.NoError(t, err)
	require.Len(t, parsed.Entries, 2)
	assert.Equal(t, 4, parsed.Entries[0].Credit50Count)
	assert.Equal(t, 6, parsed.Entries[1].Credit100Count)
}

func TestParseSalesUnknownItemCodePassedThrough(t *testing.T) {
	buf := buildWorkbook(t, salesHeader, [][]interface{}{
		{"router", 2, 15000, "", "", "", ""},
	})

	parsed, err := excel.ParseSales(buf)
	require.NoError(t, err)
	require.Len(t, parsed.Entries, 1)
	assert.Equal(t, reconcile.ItemOther, parsed.Entries[0].Kind)
	assert.Equal(t, 2, parsed.Entries[0].Unit.Quantity)
}

func TestParseSalesBlankRowsDropped(t *testing.T) {
	buf := buildWorkbook(t, salesHeader, [][]interface{}{
		{"", "", "", "", "", "", ""},
		{"sim", "123456789", "", "", "", "", ""},
	})

	parsed, err := excel.ParseSales(buf)
	require.NoError(t, err)
	assert.Len(t, parsed.Entries, 1)
}

func TestParseSalesMissingNumberColumn(t *testing.T) {
	buf := buildWorkbook(t, []string{"item_code", "Recharge"}, [][]interface{}{
		{"sim", 1000},
	})

	_, err := excel.ParseSales(buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Number column")
}

func TestParsePickup(t *testing.T) {
	buf := buildWorkbook(t,
		[]string{"Carton #", "Box #", "GSM Number", "ICCID", "Type"},
		[][]interface{}{
			{"C1", "B1", "750111222", "8996403001", "prepaid"},
			{"C1", "B1", "", "8996403002", "prepaid"}, // no GSM: dropped
			{"C1", "B2", "750111333.0", "", ""},
		})

	rows, err := excel.ParsePickup(buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "750111222", rows[0].GSMNumber)
	assert.Equal(t, "C1", rows[0].CartonNo)
	assert.Equal(t, "750111333", rows[1].GSMNumber)
}
