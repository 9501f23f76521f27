package users

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/linkstash/linkstash/internal/auth"
	"github.com/linkstash/linkstash/internal/platform/httpx"
)

// Handler wires the profile endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     auth.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard auth.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		guard:     guard,
		validator: validator.New(),
	}
}

// MountRoutes registers profile routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireUser)
		r.Get("/user", h.handleProfile)
		r.Put("/user", h.handleUpdate)
	})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	profile, err := h.service.Profile(r.Context(), identity.ID)
	if err != nil {
		h.logger.Error("load profile", slog.Int64("user_id", identity.ID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	var req UpdateRequest
	if err := httpx.DecodeValidated(h.validator, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if req.Name == nil && req.Password == nil && req.Categories == nil {
		httpx.RespondError(w, fmt.Errorf("%w: nothing to update", httpx.ErrValidation))
		return
	}

	user, err := h.service.Update(r.Context(), identity.ID, req)
	if err != nil {
		h.logger.Error("update profile", slog.Int64("user_id", identity.ID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}
