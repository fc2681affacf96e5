package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"teleshop-backend/internal/middleware"
	"teleshop-backend/internal/models"
	"teleshop-backend/internal/services"
	"teleshop-backend/pkg/utils"
)

type AuthHandler struct {
	Service *services.AuthService
}

func NewAuthHandler(s *services.AuthService) *AuthHandler {
	return &AuthHandler{Service: s}
}

// Login authenticates a staff member and returns a session token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.Service.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			utils.Error(w, http.StatusUnauthorized, err.Error())
			return
		}
		utils.Error(w, http.StatusInternalServerError, "login failed")
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

// SetPassword updates the authenticated staff member's own password
func (h *AuthHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	staffID, ok := middleware.GetStaffIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.Service.SetPassword(r.Context(), staffID, req.Password); err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// SetupTOTP generates a TOTP secret and QR code for the authenticated admin
func (h *AuthHandler) SetupTOTP(w http.ResponseWriter, r *http.Request) {
	staffID, _ := middleware.GetStaffIDFromContext(r.Context())
	setup, err := h.Service.SetupTOTP(r.Context(), staffID)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, setup)
}

// ConfirmTOTP enables the second factor after the first valid code
func (h *AuthHandler) ConfirmTOTP(w http.ResponseWriter, r *http.Request) {
	staffID, _ := middleware.GetStaffIDFromContext(r.Context())

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.Service.ConfirmTOTP(r.Context(), staffID, req.Code); err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"status": "enabled"})
}
