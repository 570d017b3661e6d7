package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/SBP-techno/CEP-backend/internal/domain"
	"github.com/SBP-techno/CEP-backend/internal/service"
)

// CreateUserRequest represents a registration request
type CreateUserRequest struct {
	Email                string   `json:"email"`
	Username             string   `json:"username"`
	FullName             string   `json:"fullName,omitempty"`
	EnergyGoalKWh        *float64 `json:"energyGoalKwh,omitempty"`
	PreferredTemperature *float64 `json:"preferredTemperature,omitempty"`
}

// UpdateUserRequest represents a partial update; absent fields are untouched
type UpdateUserRequest struct {
	Email                *string  `json:"email,omitempty"`
	Username             *string  `json:"username,omitempty"`
	FullName             *string  `json:"fullName,omitempty"`
	EnergyGoalKWh        *float64 `json:"energyGoalKwh,omitempty"`
	PreferredTemperature *float64 `json:"preferredTemperature,omitempty"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID                   string    `json:"id"`
	Email                string    `json:"email"`
	Username             string    `json:"username"`
	FullName             string    `json:"fullName,omitempty"`
	EnergyGoalKWh        *float64  `json:"energyGoalKwh,omitempty"`
	PreferredTemperature *float64  `json:"preferredTemperature,omitempty"`
	TotalConsumedKWh     float64   `json:"totalConsumedKwh"`
	TotalProducedKWh     float64   `json:"totalProducedKwh"`
	IsActive             bool      `json:"isActive"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:                   u.ID,
		Email:                u.Email,
		Username:             u.Username,
		FullName:             u.FullName,
		EnergyGoalKWh:        u.EnergyGoalKWh,
		PreferredTemperature: u.PreferredTemperature,
		TotalConsumedKWh:     u.TotalConsumedKWh,
		TotalProducedKWh:     u.TotalProducedKWh,
		IsActive:             u.IsActive,
		CreatedAt:            u.CreatedAt,
		UpdatedAt:            u.UpdatedAt,
	}
}

// UsersHandler handles user CRUD requests
type UsersHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

// NewUsersHandler creates a new users handler
func NewUsersHandler(users *service.UserService, logger *slog.Logger) *UsersHandler {
	return &UsersHandler{users: users, logger: logger}
}

// Create handles POST /api/v1/users
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.CreateUser(r.Context(), service.CreateUserInput{
		Email:                req.Email,
		Username:             req.Username,
		FullName:             req.FullName,
		EnergyGoalKWh:        req.EnergyGoalKWh,
		PreferredTemperature: req.PreferredTemperature,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// Get handles GET /api/v1/users/{id}
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// List handles GET /api/v1/users
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context(), queryInt(r, "skip", 0), queryInt(r, "limit", 0))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, out)
}

// Update handles PUT /api/v1/users/{id}
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.UpdateUser(r.Context(), r.PathValue("id"), domain.UserUpdate{
		Email:                req.Email,
		Username:             req.Username,
		FullName:             req.FullName,
		EnergyGoalKWh:        req.EnergyGoalKWh,
		PreferredTemperature: req.PreferredTemperature,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Delete handles DELETE /api/v1/users/{id}
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.users.DeleteUser(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "user deactivated"})
}
