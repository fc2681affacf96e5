package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"teleshop-backend/internal/services"
	"teleshop-backend/pkg/utils"
)

type SimBatchHandler struct {
	Service *services.SimBatchService
}

func NewSimBatchHandler(service *services.SimBatchService) *SimBatchHandler {
	return &SimBatchHandler{Service: service}
}

// Transfer marks in-stock SIMs as sent to a location (admin)
func (h *SimBatchHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		By       string `json:"by"`
		Value    string `json:"value"`
		Location string `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.Service.Transfer(r.Context(), req.By, req.Value, req.Location)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, res)
}

// Status looks up one tracked SIM by GSM number
func (h *SimBatchHandler) Status(w http.ResponseWriter, r *http.Request) {
	batch, err := h.Service.Status(r.Context(), mux.Vars(r)["gsm"])
	if err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if batch == nil {
		utils.Error(w, http.StatusNotFound, "sim not tracked")
		return
	}
	utils.JSON(w, http.StatusOK, batch)
}

// StatusCounts summarizes the tracker by status
func (h *SimBatchHandler) StatusCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Service.StatusCounts(r.Context())
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, counts)
}
