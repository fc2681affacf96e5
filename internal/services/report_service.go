package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/shopspring/decimal"

	"teleshop-backend/internal/excel"
	"teleshop-backend/internal/models"
	"teleshop-backend/internal/repositories"
	"teleshop-backend/internal/timeutil"
)

// ReportService renders the day's ledger as a workbook or a printable PDF,
// and serves the range aggregates the admins ask for.
type ReportService struct {
	saleRepo  *repositories.SaleRepository
	dailyRepo *repositories.DailyRepository
}

func NewReportService(saleRepo *repositories.SaleRepository, dailyRepo *repositories.DailyRepository) *ReportService {
	return &ReportService{saleRepo: saleRepo, dailyRepo: dailyRepo}
}

// DailyWorkbook renders the xlsx daily sales report.
func (s *ReportService) DailyWorkbook(ctx context.Context, rawDate string) (*bytes.Buffer, string, error) {
	date, err := timeutil.NormalizeDate(rawDate)
	if err != nil {
		return nil, "", err
	}
	sales, err := s.saleRepo.AllByDate(ctx, date)
	if err != nil {
		return nil, "", err
	}
	buf, err := excel.DailyReport(date, sales)
	if err != nil {
		return nil, "", err
	}
	return buf, fmt.Sprintf("sales-%s.xlsx", date), nil
}

// DailyPDF renders the printable daily summary: per-employee totals and the
// grand total, one line per committed sale below.
func (s *ReportService) DailyPDF(ctx context.Context, rawDate string) (*bytes.Buffer, string, error) {
	date, err := timeutil.NormalizeDate(rawDate)
	if err != nil {
		return nil, "", err
	}
	sales, err := s.saleRepo.AllByDate(ctx, date)
	if err != nil {
		return nil, "", err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, "Daily Sales Report  "+date, "", 1, "C", false, 0, "")
	pdf.Ln(2)

	header := []struct {
		label string
		width float64
	}{
		{"Employee", 35}, {"Item", 25}, {"GSM", 32}, {"Qty", 14}, {"Amount", 28}, {"Notes", 56},
	}
	pdf.SetFont("Arial", "B", 9)
	for _, h := range header {
		pdf.CellFormat(h.width, 7, h.label, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	total := decimal.Zero
	perEmployee := make(map[string]decimal.Decimal)
	for _, row := range sales {
		cells := []string{
			row.Username,
			string(row.Kind),
			row.Identifier,
			fmt.Sprintf("%d", row.Quantity),
			row.Amount.StringFixed(2),
			truncate(row.Notes, 40),
		}
		for i, c := range cells {
			pdf.CellFormat(header[i].width, 6, c, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
		total = total.Add(row.Amount)
		perEmployee[row.Username] = perEmployee[row.Username].Add(row.Amount)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 7, "Per-employee totals", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	for _, row := range sales {
		amount, ok := perEmployee[row.Username]
		if !ok {
			continue
		}
		pdf.CellFormat(0, 6, fmt.Sprintf("%s: %s", row.Username, amount.StringFixed(2)), "", 1, "L", false, 0, "")
		delete(perEmployee, row.Username)
	}
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 8, "TOTAL: "+total.StringFixed(2), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("render pdf: %w", err)
	}
	return &buf, fmt.Sprintf("sales-%s.pdf", date), nil
}

// SalesByDate lists the committed ledger rows for a day with staff identity.
func (s *ReportService) SalesByDate(ctx context.Context, rawDate string) ([]models.SaleWithStaff, error) {
	date, err := timeutil.NormalizeDate(rawDate)
	if err != nil {
		return nil, err
	}
	return s.saleRepo.AllByDate(ctx, date)
}

// RangeCounts returns per-(staff, date) sim/swap/reg counts across a range.
func (s *ReportService) RangeCounts(ctx context.Context, rawFrom, rawTo string) ([]models.StaffDayCounts, error) {
	from, to, err := normalizeRange(rawFrom, rawTo)
	if err != nil {
		return nil, err
	}
	return s.saleRepo.CountsByStaffBetween(ctx, from, to)
}

// RegTotals aggregates registrations per staff across a range.
func (s *ReportService) RegTotals(ctx context.Context, rawFrom, rawTo string) ([]models.RegTotal, error) {
	from, to, err := normalizeRange(rawFrom, rawTo)
	if err != nil {
		return nil, err
	}
	return s.dailyRepo.RegTotalsBetween(ctx, from, to)
}

// DailyTotals lists the recorded day totals across a range.
func (s *ReportService) DailyTotals(ctx context.Context, rawFrom, rawTo string) ([]models.DailyTotal, error) {
	from, to, err := normalizeRange(rawFrom, rawTo)
	if err != nil {
		return nil, err
	}
	return s.dailyRepo.TotalsBetween(ctx, from, to)
}

func normalizeRange(rawFrom, rawTo string) (string, string, error) {
	from, err := timeutil.NormalizeDate(rawFrom)
	if err != nil {
		return "", "", fmt.Errorf("from: %w", err)
	}
	to, err := timeutil.NormalizeDate(rawTo)
	if err != nil {
		return "", "", fmt.Errorf("to: %w", err)
	}
	if from > to {
		from, to = to, from
	}
	return from, to, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
