// Package excel parses uploaded workbooks into tagged line-items and renders
// report workbooks. All identifier-or-quantity disambiguation happens here;
// downstream code never inspects raw cells.
package excel

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"teleshop-backend/internal/models"
	"teleshop-backend/internal/reconcile"
)

// gsmLength is the required length of a digits-only subscriber number.
const gsmLength = 9

var digitsRe = regexp.MustCompile(`\D`)

// SalesParse is the outcome of parsing one sales workbook. RowErrors are
// parser-level skips (malformed GSM, missing values); they are reported to the
// uploader alongside the engine's own skips.
type SalesParse struct {
	Entries   []reconcile.LineItem
	RowErrors []string
	DailyRegs int
}

// column aliases, lowercased. Workbooks come from several shops with slightly
// different templates.
var (
	numberAliases   = []string{"number", "qty", "quantity"}
	rechargeAliases = []string{"recharge", "amount", "recharge_amount"}
	itemAliases     = []string{"item_code", "item code", "item", "code"}
	gsmAliases      = []string{"gsm number", "gsm_number", "gsm", "msisdn"}
	credit50Aliases = []string{"credit50", "credit_50", "credit-50"}
	c100Aliases     = []string{"credit100", "credit_100", "credit-100"}
	notesAliases    = []string{"notes", "remark", "remarks"}
	contactAliases  = []string{"contact_number", "contact number", "contact", "phone number", "phone"}

	cartonAliases = []string{"carton #", "carton", "carton_no", "carton no"}
	boxAliases    = []string{"box #", "box", "box_no", "box no"}
	iccidAliases  = []string{"iccid", "iccid number", "iccid_no"}
	simTypeAlias  = []string{"type", "sim type", "sim_type"}
)

// header maps lowercased column names to their index in the header row.
type header map[string]int

func newHeader(row []string) header {
	h := make(header, len(row))
	for i, name := range row {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, ok := h[name]; !ok {
			h[name] = i
		}
	}
	return h
}

func (h header) find(aliases []string) (int, bool) {
	for _, a := range aliases {
		if i, ok := h[a]; ok {
			return i, true
		}
	}
	return 0, false
}

// cell returns the trimmed cell under the aliased column, stripping the ".0"
// float artifact spreadsheets put on numeric cells.
func cell(row []string, h header, aliases []string) string {
	i, ok := h.find(aliases)
	if !ok || i >= len(row) {
		return ""
	}
	s := strings.TrimSpace(row[i])
	if strings.HasSuffix(s, ".0") && isDigits(s[:len(s)-2]) {
		s = s[:len(s)-2]
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// cleanGSM strips everything but digits. Returns "" when nothing remains.
func cleanGSM(s string) string {
	return digitsRe.ReplaceAllString(s, "")
}

func parseCount(s string) int {
	if !isDigits(s) {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}

func firstSheetRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

// ParseSales parses a sales workbook into tagged line-items.
//
// The Number column doubles as the GSM column for SIM and SWAP rows (the
// template the shops actually use); a dedicated GSM column wins when present.
// SIM/SWAP rows require a digits-only number of exactly nine digits. Credit
// columns may ride on any row; they are split off into their own entries so
// each entry moves exactly one counter.
func ParseSales(r io.Reader) (*SalesParse, error) {
	rows, err := firstSheetRows(r)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("workbook is empty")
	}

	h := newHeader(rows[0])
	if _, ok := h.find(numberAliases); !ok {
		return nil, fmt.Errorf("missing Number column (carries GSM numbers)")
	}

	out := &SalesParse{DailyRegs: extractRegs(rows, h)}
	for idx, row := range rows[1:] {
		rowNum := idx + 2 // 1-based with header row

		itemCode := cell(row, h, itemAliases)
		kind := reconcile.ParseItemKind(itemCode)
		amount := parseAmount(cell(row, h, rechargeAliases))
		credit50 := parseCount(cell(row, h, credit50Aliases))
		credit100 := parseCount(cell(row, h, c100Aliases))
		notes := cell(row, h, notesAliases)
		contact := cell(row, h, contactAliases)

		numberCell := cell(row, h, numberAliases)
		gsm := cleanGSM(cell(row, h, gsmAliases))
		if gsm == "" {
			gsm = cleanGSM(numberCell)
		}

		primary := false
		switch {
		case kind.UnitCounted():
			if gsm == "" {
				out.RowErrors = append(out.RowErrors,
					fmt.Sprintf("row %d skipped: missing GSM number", rowNum))
				continue
			}
			if len(gsm) != gsmLength {
				out.RowErrors = append(out.RowErrors,
					fmt.Sprintf("row %d skipped: GSM %q must be exactly %d digits", rowNum, gsm, gsmLength))
				continue
			}
			out.Entries = append(out.Entries, reconcile.LineItem{
				Kind:          kind,
				Unit:          reconcile.UnitRef{Identifier: gsm},
				Amount:        amount,
				ContactNumber: contact,
				Notes:         notes,
			})
			primary = true

		case kind == reconcile.ItemCredit50 || kind == reconcile.ItemCredit100:
			// Explicit credit item code: the count lives in the credit column,
			// or in the Number column as a quantity, defaulting to one card.
			count := credit50 + credit100
			if count == 0 {
				count = parseCount(numberCell)
			}
			if count == 0 {
				count = 1
			}
			li := reconcile.LineItem{
				Kind:          kind,
				Amount:        amount,
				ContactNumber: contact,
				Notes:         notes,
			}
			if kind == reconcile.ItemCredit50 {
				li.Credit50Count = count
				credit50 = 0
			} else {
				li.Credit100Count = count
				credit100 = 0
			}
			out.Entries = append(out.Entries, li)
			primary = true

		case itemCode != "":
			// Unrecognized item code: hand it to the engine, which reports it
			// as an invalid-kind skip with its row index intact.
			out.Entries = append(out.Entries, reconcile.LineItem{
				Kind:          reconcile.ItemOther,
				Unit:          reconcile.UnitRef{Quantity: parseCount(numberCell)},
				Amount:        amount,
				ContactNumber: contact,
				Notes:         notes,
			})
			primary = true
		}

		// Credit counts riding on another row become entries of their own.
		if credit50 > 0 {
			li := reconcile.LineItem{Kind: reconcile.ItemCredit50, Credit50Count: credit50}
			if !primary {
				li.Amount, li.ContactNumber, li.Notes = amount, contact, notes
				primary = true
			}
			out.Entries = append(out.Entries, li)
		}
		if credit100 > 0 {
			li := reconcile.LineItem{Kind: reconcile.ItemCredit100, Credit100Count: credit100}
			if !primary {
				li.Amount, li.ContactNumber, li.Notes = amount, contact, notes
			}
			out.Entries = append(out.Entries, li)
		}
		// Rows with no item code and no credits are blank filler; drop them.
	}
	return out, nil
}

func parseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

var regsRe = regexp.MustCompile(`(\d+)`)

// extractRegs pulls the daily registration count from the first Notes cell
// ("REG : 10", "Daily 15"). Zero when absent.
func extractRegs(rows [][]string, h header) int {
	i, ok := h.find(notesAliases)
	if !ok {
		return 0
	}
	for _, row := range rows[1:] {
		if i >= len(row) {
			return 0
		}
		note := strings.TrimSpace(row[i])
		if note == "" {
			return 0
		}
		if m := regsRe.FindString(note); m != "" {
			n, _ := strconv.Atoi(m)
			return n
		}
		return 0
	}
	return 0
}

// ParsePickup parses a pickup-list workbook. Rows without a GSM number are
// dropped; everything else is passed through as-is for the batch import.
func ParsePickup(r io.Reader) ([]models.PickupRow, error) {
	rows, err := firstSheetRows(r)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("workbook is empty")
	}

	h := newHeader(rows[0])
	var out []models.PickupRow
	for _, row := range rows[1:] {
		gsm := cleanGSM(cell(row, h, gsmAliases))
		if gsm == "" {
			gsm = cleanGSM(cell(row, h, numberAliases))
		}
		if gsm == "" {
			continue
		}
		out = append(out, models.PickupRow{
			CartonNo:  cell(row, h, cartonAliases),
			BoxNo:     cell(row, h, boxAliases),
			GSMNumber: gsm,
			ICCID:     cell(row, h, iccidAliases),
			SimType:   cell(row, h, simTypeAlias),
		})
	}
	return out, nil
}
