package invoices

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ledgerflow/ledgerflow/internal/platform/httpx"
)

// LinkMinter mints a hosted payment link for a freshly created invoice.
// Implemented by the payments service; nil when no provider is wired.
type LinkMinter interface {
	MintPaymentLink(ctx context.Context, invoiceID string) (string, bool)
}

// Handler exposes invoice CRUD and lifecycle endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	lifecycle *Lifecycle
	links     LinkMinter
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, lifecycle *Lifecycle, links LinkMinter) *Handler {
	return &Handler{logger: logger, service: service, lifecycle: lifecycle, links: links}
}

// workspaceID resolves the tenant for the request. Authentication is handled
// upstream; the gateway forwards the workspace in a trusted header.
func workspaceID(r *http.Request) string {
	return r.Header.Get("X-Workspace-ID")
}

func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Transition", err.Error())
	case errors.Is(err, ErrReferenced):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrDuplicateNumber):
		httpx.Problem(w, http.StatusConflict, "Already Exists", err.Error())
	default:
		var verr validator.ValidationErrors
		if errors.As(err, &verr) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", verr.Error())
			return
		}
		h.logger.Error("invoice request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	inv, err := h.service.Create(r.Context(), workspaceID(r), req)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	if req.EnablePaymentLink && h.links != nil {
		if url, ok := h.links.MintPaymentLink(r.Context(), inv.ID); ok {
			inv.PaymentLinkURL = &url
		} else {
			h.logger.Warn("payment link unavailable at creation", slog.String("invoice_id", inv.ID))
		}
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	inv, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	var req TransitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	inv, err := h.lifecycle.Transition(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.Events(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, events)
}
