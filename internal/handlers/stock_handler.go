package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"teleshop-backend/internal/middleware"
	"teleshop-backend/internal/models"
	"teleshop-backend/internal/reconcile"
	"teleshop-backend/internal/services"
	"teleshop-backend/pkg/utils"
)

type StockHandler struct {
	Service *services.StockService
	Auth    *services.AuthService
}

func NewStockHandler(service *services.StockService, authService *services.AuthService) *StockHandler {
	return &StockHandler{Service: service, Auth: authService}
}

func staffIDVar(r *http.Request) (int, bool) {
	n, err := strconv.Atoi(mux.Vars(r)["staff_id"])
	return n, err == nil && n > 0
}

// ListAll returns every employee's counters
func (h *StockHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	out, err := h.Service.ListAll(r.Context())
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, out)
}

// Summary returns the chain-wide aggregate
func (h *StockHandler) Summary(w http.ResponseWriter, r *http.Request) {
	out, err := h.Service.Summary(r.Context())
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, out)
}

// Balance returns one employee's counters
func (h *StockHandler) Balance(w http.ResponseWriter, r *http.Request) {
	staffID, ok := staffIDVar(r)
	if !ok {
		utils.Error(w, http.StatusBadRequest, "invalid staff id")
		return
	}

	bal, err := h.Service.Balance(r.Context(), staffID)
	if err != nil {
		if errors.Is(err, reconcile.ErrNoBalance) {
			utils.Error(w, http.StatusNotFound, "no inventory for staff")
			return
		}
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, bal)
}

// History returns an employee's recent journal entries
func (h *StockHandler) History(w http.ResponseWriter, r *http.Request) {
	staffID, ok := staffIDVar(r)
	if !ok {
		utils.Error(w, http.StatusBadRequest, "invalid staff id")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.Service.History(r.Context(), staffID, limit)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, entries)
}

// Check compares counters against the journal's net deltas (admin)
func (h *StockHandler) Check(w http.ResponseWriter, r *http.Request) {
	staffID, ok := staffIDVar(r)
	if !ok {
		utils.Error(w, http.StatusBadRequest, "invalid staff id")
		return
	}

	counters, consistent, err := h.Service.Check(r.Context(), staffID)
	if err != nil {
		if errors.Is(err, reconcile.ErrNoBalance) {
			utils.Error(w, http.StatusNotFound, "no inventory for staff")
			return
		}
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"consistent": consistent,
		"counters":   counters,
	})
}

// Backoffice returns the central stock counters
func (h *StockHandler) Backoffice(w http.ResponseWriter, r *http.Request) {
	out, err := h.Service.Backoffice(r.Context())
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, out)
}

// AddBackoffice injects stock into the central counters (admin, TOTP gated)
func (h *StockHandler) AddBackoffice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Item     string `json:"item"`
		Quantity int    `json:"quantity"`
		TOTPCode string `json:"totp_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.checkTOTP(r, req.TOTPCode); err != nil {
		utils.Error(w, http.StatusForbidden, err.Error())
		return
	}
	if err := h.Service.AddBackoffice(r.Context(), req.Item, req.Quantity); err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"status": "added"})
}

// Transfer moves stock between holders (admin). Source zero = backoffice.
func (h *StockHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req models.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.Service.Transfer(r.Context(), req); err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, reconcile.ErrNegativeBalance):
			status = http.StatusConflict
		case errors.Is(err, reconcile.ErrNoBalance):
			status = http.StatusNotFound
		}
		utils.Error(w, status, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"status": "transferred"})
}

func (h *StockHandler) checkTOTP(r *http.Request, code string) error {
	adminID, ok := middleware.GetStaffIDFromContext(r.Context())
	if !ok {
		return errors.New("not authenticated")
	}
	return h.Auth.CheckTOTP(r.Context(), adminID, code)
}
