package handlers

import (
	"encoding/json"
	"net/http"

	"teleshop-backend/internal/repositories"
	"teleshop-backend/pkg/utils"
)

type StaffHandler struct {
	Repo *repositories.StaffRepository
}

func NewStaffHandler(repo *repositories.StaffRepository) *StaffHandler {
	return &StaffHandler{Repo: repo}
}

// List returns every staff member (admin)
func (h *StaffHandler) List(w http.ResponseWriter, r *http.Request) {
	staff, err := h.Repo.List(r.Context())
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, staff)
}

// SetAdmin grants or revokes admin on a staff member (admin)
func (h *StaffHandler) SetAdmin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		IsAdmin  bool   `json:"is_admin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" {
		utils.Error(w, http.StatusBadRequest, "username required")
		return
	}

	if err := h.Repo.SetAdmin(r.Context(), req.Username, req.IsAdmin); err != nil {
		utils.Error(w, http.StatusNotFound, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// SetChatID binds a messaging chat id to a staff member (admin)
func (h *StaffHandler) SetChatID(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		ChatID   string `json:"chat_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" {
		utils.Error(w, http.StatusBadRequest, "username required")
		return
	}

	if err := h.Repo.SetChatID(r.Context(), req.Username, req.ChatID); err != nil {
		utils.Error(w, http.StatusNotFound, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
