package links

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/linkstash/linkstash/internal/auth"
	"github.com/linkstash/linkstash/internal/platform/httpx"
)

// Handler exposes the link endpoints.
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

// MountRoutes registers the link routes on the provided router. Reads and
// click counting are public; submissions require a session and the full
// listing is admin only.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/link/popular", h.handlePopular)
	r.Get("/link/popular/{slug}", h.handlePopularByCategory)
	r.Get("/link/{id}", h.handleGet)
	r.Put("/click-count", h.handleClick)

	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireUser)
		r.Post("/link", h.handleCreate)
		r.Put("/link/{id}", h.handleUpdate)
		r.Delete("/link/{id}", h.handleDelete)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAdmin)
		r.Get("/links", h.handleList)
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

	link, err := h.service.Create(r.Context(), identity, req)
	if err != nil {
		h.logger.Error("create link", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, link)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := linkID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	link, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, link)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	var req ReadRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeValidated(h.validator, r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	result, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list links", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := linkID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	var req UpdateRequest
	if err := httpx.DecodeValidated(h.validator, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	link, err := h.service.Update(r.Context(), identity, id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, link)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := linkID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	message, err := h.service.Delete(r.Context(), identity, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Message(w, http.StatusOK, message)
}

type clickRequest struct {
	LinkID int64 `json:"linkId" validate:"required,gt=0"`
}

func (h *Handler) handleClick(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if err := httpx.DecodeValidated(h.validator, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	link, err := h.service.RecordClick(r.Context(), req.LinkID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, link)
}

func (h *Handler) handlePopular(w http.ResponseWriter, r *http.Request) {
	links, err := h.service.Popular(r.Context())
	if err != nil {
		h.logger.Error("popular links", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, links)
}

func (h *Handler) handlePopularByCategory(w http.ResponseWriter, r *http.Request) {
	links, err := h.service.PopularByCategory(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, links)
}

func linkID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid link id", httpx.ErrValidation)
	}
	return id, nil
}
