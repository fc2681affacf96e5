package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"teleshop-backend/internal/reconcile"
	"teleshop-backend/internal/services"
	"teleshop-backend/internal/timeutil"
	"teleshop-backend/pkg/utils"
)

type ReportHandler struct {
	Service *services.ReportService
	Stock   *services.StockService
}

func NewReportHandler(service *services.ReportService, stock *services.StockService) *ReportHandler {
	return &ReportHandler{Service: service, Stock: stock}
}

func dateParam(r *http.Request) string {
	if d := r.URL.Query().Get("date"); d != "" {
		return d
	}
	return timeutil.Today()
}

// SalesByDate lists the committed ledger rows for a day
func (h *ReportHandler) SalesByDate(w http.ResponseWriter, r *http.Request) {
	out, err := h.Service.SalesByDate(r.Context(), dateParam(r))
	if err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, out)
}

// SalesByStaffDate lists one employee's rows for a day
func (h *ReportHandler) SalesByStaffDate(w http.ResponseWriter, r *http.Request) {
	staffID, err := strconv.Atoi(mux.Vars(r)["staff_id"])
	if err != nil || staffID <= 0 {
		utils.Error(w, http.StatusBadRequest, "invalid staff id")
		return
	}
	date, err := timeutil.NormalizeDate(dateParam(r))
	if err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	sales, err := h.Stock.ListSales(r.Context(), reconcile.Key{EmployeeID: staffID, ReportDate: date})
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, sales)
}

// DailyWorkbook streams the day's sales as an xlsx attachment
func (h *ReportHandler) DailyWorkbook(w http.ResponseWriter, r *http.Request) {
	buf, name, err := h.Service.DailyWorkbook(r.Context(), dateParam(r))
	if err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Write(buf.Bytes())
}

// DailyPDF streams the printable daily summary
func (h *ReportHandler) DailyPDF(w http.ResponseWriter, r *http.Request) {
	buf, name, err := h.Service.DailyPDF(r.Context(), dateParam(r))
	if err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Write(buf.Bytes())
}

func rangeParams(r *http.Request) (string, string) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from == "" {
		from = timeutil.Today()
	}
	if to == "" {
		to = timeutil.Today()
	}
	return from, to
}

// RangeCounts returns per-(staff, day) sim/swap/reg counts over ?from=&to=
func (h *ReportHandler) RangeCounts(w http.ResponseWriter, r *http.Request) {
	from, to := rangeParams(r)
	out, err := h.Service.RangeCounts(r.Context(), from, to)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, out)
}

// RegTotals returns per-staff registration totals over ?from=&to=
func (h *ReportHandler) RegTotals(w http.ResponseWriter, r *http.Request) {
	from, to := rangeParams(r)
	out, err := h.Service.RegTotals(r.Context(), from, to)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, out)
}

// DailyTotals returns recorded day totals over ?from=&to=
func (h *ReportHandler) DailyTotals(w http.ResponseWriter, r *http.Request) {
	from, to := rangeParams(r)
	out, err := h.Service.DailyTotals(r.Context(), from, to)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, out)
}
