package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"teleshop-backend/internal/middleware"
	"teleshop-backend/internal/models"
	"teleshop-backend/internal/repositories"
	"teleshop-backend/internal/timeutil"
	"teleshop-backend/pkg/utils"
)

// BorrowHandler exposes an admin's personal borrow ledger. Every route is
// scoped to the calling admin; one admin never sees another's records.
type BorrowHandler struct {
	Repo *repositories.BorrowRepository
}

func NewBorrowHandler(repo *repositories.BorrowRepository) *BorrowHandler {
	return &BorrowHandler{Repo: repo}
}

// Add records money lent to a person. Date defaults to today.
func (h *BorrowHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PersonName string          `json:"person_name"`
		Amount     decimal.Decimal `json:"amount"`
		Date       string          `json:"date"`
		Note       string          `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PersonName == "" {
		utils.Error(w, http.StatusBadRequest, "person_name is required")
		return
	}
	if !req.Amount.IsPositive() {
		utils.Error(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	date := req.Date
	if date == "" {
		date = timeutil.Today()
	}
	date, err := timeutil.NormalizeDate(date)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	adminID, _ := middleware.GetStaffIDFromContext(r.Context())
	b := models.Borrow{
		AdminID:    adminID,
		PersonName: req.PersonName,
		Amount:     req.Amount,
		Date:       date,
		Note:       req.Note,
	}
	if err := h.Repo.Add(r.Context(), &b); err != nil {
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.JSON(w, http.StatusCreated, b)
}

// List returns the calling admin's records, newest first.
func (h *BorrowHandler) List(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.GetStaffIDFromContext(r.Context())
	out, err := h.Repo.ListForAdmin(r.Context(), adminID)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, out)
}

// Summary totals the calling admin's records per person, optionally over
// ?from=&to=.
func (h *BorrowHandler) Summary(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.GetStaffIDFromContext(r.Context())
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")

	var (
		rows []models.Borrow
		err  error
	)
	if from != "" && to != "" {
		rows, err = h.Repo.ListBetween(r.Context(), adminID, from, to)
	} else {
		rows, err = h.Repo.ListForAdmin(r.Context(), adminID)
	}
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, models.SummarizeBorrows(rows))
}
