package integrations

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ledgerflow/ledgerflow/internal/platform/httpx"
)

// Handler exposes API key management and verification endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers the workspace-scoped key management routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/integrations/keys", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Delete("/{id}", h.Delete)
	})
	r.Get("/integrations/verify", h.Verify)
	r.Post("/integrations/verify", h.Verify)
}

func workspaceID(r *http.Request) string {
	return r.Header.Get("X-Workspace-ID")
}

// bearerKey extracts the raw API key from Authorization: Bearer or the
// X-API-Key header.
func bearerKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if key, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(key)
		}
	}
	return r.Header.Get("X-API-Key")
}

type createKeyRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// Create issues a key; the response carries the raw key exactly once.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}

	created, err := h.service.Create(r.Context(), workspaceID(r), req.Name)
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			httpx.RespondError(w, httpx.ErrDuplicate)
			return
		}
		h.logger.Error("create api key", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

// List returns the workspace's keys without any key material.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.service.List(r.Context(), workspaceID(r))
	if err != nil {
		h.logger.Error("list api keys", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if keys == nil {
		keys = []APIKey{}
	}
	httpx.JSON(w, http.StatusOK, keys)
}

// Delete revokes a key.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(r.Context(), workspaceID(r), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("delete api key", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Verify authenticates a raw key and returns its record. Missing and unknown
// keys are both 401; the two cases are indistinguishable on purpose.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	raw := bearerKey(r)
	if raw == "" {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	key, err := h.service.Verify(r.Context(), raw)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		h.logger.Error("verify api key", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, key)
}
