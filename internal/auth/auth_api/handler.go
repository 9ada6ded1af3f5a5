package auth_api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-events/internal/auth"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/utils"
)

type AuthService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error)
	Logout(ctx context.Context, actor *models.User) error
}

type Handler struct {
	AuthService AuthService
	Logger      *logger.Logger
}

// Login handles POST /api/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, r, h.Logger, err)
		return
	}

	resp, err := h.AuthService.Login(r.Context(), req)
	if err != nil {
		utils.WriteError(w, r, h.Logger, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

// Logout handles POST /api/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.AuthService.Logout(r.Context(), auth.ActorFrom(r.Context())); err != nil {
		utils.WriteError(w, r, h.Logger, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, models.MessageResponse{Message: "Logged out successfully"})
}

func (h *Handler) RegisterRoutes(r chi.Router, protect func(http.Handler) http.Handler) {
	r.Post("/login", h.Login)
	r.With(protect).Post("/logout", h.Logout)
}
