package categories

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/linkstash/linkstash/internal/auth"
	"github.com/linkstash/linkstash/internal/platform/httpx"
)

// Handler wires the category endpoints.
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

// MountRoutes registers category routes on the provided router. Reads are
// public; writes are admin only.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/categories", h.handleList)
	r.Post("/category/{slug}", h.handleRead)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAdmin)
		r.Post("/category", h.handleCreate)
		r.Put("/category/{slug}", h.handleUpdate)
		r.Delete("/category/{slug}", h.handleDelete)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	var req CreateRequest
	if err := httpx.DecodeValidated(h.validator, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	category, err := h.service.Create(r.Context(), req, identity.ID)
	if err != nil {
		h.logger.Error("create category", slog.String("name", req.Name), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, category)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list categories", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, categories)
}

// handleRead is a POST because the page window (limit/skip) travels in the
// body; the route is still publicly readable.
func (h *Handler) handleRead(w http.ResponseWriter, r *http.Request) {
	var req ReadRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeValidated(h.validator, r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}

	page, err := h.service.Read(r.Context(), chi.URLParam(r, "slug"), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := httpx.DecodeValidated(h.validator, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	category, err := h.service.Update(r.Context(), chi.URLParam(r, "slug"), req)
	if err != nil {
		h.logger.Error("update category", slog.String("slug", chi.URLParam(r, "slug")), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, category)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "slug")); err != nil {
		h.logger.Error("delete category", slog.String("slug", chi.URLParam(r, "slug")), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Category deleted successfully")
}
