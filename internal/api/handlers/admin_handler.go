package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/cognito-labs/cognito-be/internal/models"
	"github.com/cognito-labs/cognito-be/internal/services"
)

// AdminHandler handles admin-scoped user administration endpoints.
type AdminHandler struct {
	service services.UserServiceProvider
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(service services.UserServiceProvider) *AdminHandler {
	return &AdminHandler{service: service}
}

// ListUsers returns all accounts.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers()
	if err != nil {
		log.Error().Err(err).Msg("Failed to list users")
		respondError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}
	if users == nil {
		users = []models.User{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

// ToggleActivation flips a user's active flag.
func (h *AdminHandler) ToggleActivation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, err := h.service.GetUserByID(id)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Error().Err(err).Str("user_id", id).Msg("Failed to load user for activation toggle")
		respondError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	updated, err := h.service.SetActive(id, !user.IsActive)
	if err != nil {
		log.Error().Err(err).Str("user_id", id).Msg("Failed to toggle user activation")
		respondError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	message := "User deactivated successfully"
	if updated.IsActive {
		message = "User activated successfully"
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": message,
		"user":    updated,
	})
}

// StatsResponse is the admin dashboard summary.
type StatsResponse struct {
	TotalUsers        int     `json:"total_users"`
	CPUPercent        float64 `json:"cpu_percent"`
	MemoryUsedPercent float64 `json:"memory_used_percent"`
	UptimeSeconds     uint64  `json:"uptime_seconds"`
}

// Stats returns the user count plus host telemetry for the admin
// dashboard. Telemetry failures are logged but never fail the request.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	total, err := h.service.CountUsers()
	if err != nil {
		log.Error().Err(err).Msg("Failed to count users")
		respondError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}

	stats := StatsResponse{TotalUsers: total}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		stats.CPUPercent = percents[0]
	} else if err != nil {
		log.Warn().Err(err).Msg("Failed to read CPU usage")
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		stats.MemoryUsedPercent = vm.UsedPercent
	} else {
		log.Warn().Err(err).Msg("Failed to read memory usage")
	}

	if uptime, err := host.Uptime(); err == nil {
		stats.UptimeSeconds = uptime
	} else {
		log.Warn().Err(err).Msg("Failed to read host uptime")
	}

	respondJSON(w, http.StatusOK, stats)
}
