package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"teleshop-backend/internal/middleware"
	"teleshop-backend/internal/reconcile"
	"teleshop-backend/internal/services"
	"teleshop-backend/pkg/utils"
)

// maxUploadBytes caps the multipart body; workbooks are small.
const maxUploadBytes = 10 << 20

type UploadHandler struct {
	Service *services.UploadService
	Auth    *services.AuthService
}

func NewUploadHandler(service *services.UploadService, authService *services.AuthService) *UploadHandler {
	return &UploadHandler{Service: service, Auth: authService}
}

// ApplySales ingests a sales workbook for (username, date). The file rides in
// the "file" multipart field; username and date are form values. Uploading an
// empty workbook cancels the day's live batch.
func (h *UploadHandler) ApplySales(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	username := r.FormValue("username")
	if username == "" {
		username, _ = middleware.GetUsernameFromContext(r.Context())
	}
	date := r.FormValue("date")
	if username == "" || date == "" {
		utils.Error(w, http.StatusBadRequest, "username and date are required")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}

	report, err := h.Service.ApplyWorkbook(r.Context(), username, date, fileBytes)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, services.ErrTooManyRows):
			status = http.StatusRequestEntityTooLarge
		case errors.Is(err, reconcile.ErrLockTimeout):
			status = http.StatusConflict
		case errors.Is(err, reconcile.ErrNoBalance):
			status = http.StatusUnprocessableEntity
		}
		utils.Error(w, status, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, report)
}

// RevertDay deletes an employee's upload for a day (admin). Admins with TOTP
// enabled must supply a valid code.
func (h *UploadHandler) RevertDay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StaffID  int    `json:"staff_id"`
		Date     string `json:"date"`
		TOTPCode string `json:"totp_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	adminID, _ := middleware.GetStaffIDFromContext(r.Context())
	if err := h.Auth.CheckTOTP(r.Context(), adminID, req.TOTPCode); err != nil {
		utils.Error(w, http.StatusForbidden, err.Error())
		return
	}

	deleted, err := h.Service.RevertDay(r.Context(), req.StaffID, req.Date)
	if err != nil {
		if errors.Is(err, reconcile.ErrLockTimeout) {
			utils.Error(w, http.StatusConflict, err.Error())
			return
		}
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

// DeleteSale removes a single ledger row and restores its stock (admin), for
// fixing one bad row without reverting the whole day.
func (h *UploadHandler) DeleteSale(w http.ResponseWriter, r *http.Request) {
	saleID, err := strconv.ParseInt(mux.Vars(r)["sale_id"], 10, 64)
	if err != nil || saleID <= 0 {
		utils.Error(w, http.StatusBadRequest, "invalid sale id")
		return
	}

	// The body is optional; admins without TOTP enabled send none.
	var req struct {
		TOTPCode string `json:"totp_code"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	adminID, _ := middleware.GetStaffIDFromContext(r.Context())
	if err := h.Auth.CheckTOTP(r.Context(), adminID, req.TOTPCode); err != nil {
		utils.Error(w, http.StatusForbidden, err.Error())
		return
	}

	row, err := h.Service.DeleteSale(r.Context(), saleID)
	if err != nil {
		switch {
		case errors.Is(err, reconcile.ErrSaleNotFound):
			utils.Error(w, http.StatusNotFound, err.Error())
		case errors.Is(err, reconcile.ErrLockTimeout):
			utils.Error(w, http.StatusConflict, err.Error())
		default:
			utils.Error(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	utils.JSON(w, http.StatusOK, row)
}

// ImportPickup ingests a pickup-list workbook into the SIM tracker (admin).
func (h *UploadHandler) ImportPickup(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}

	outcome, err := h.Service.ImportPickup(r.Context(), fileBytes, r.FormValue("location"))
	if err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, outcome)
}
