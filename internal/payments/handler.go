package payments

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerflow/ledgerflow/internal/invoices"
	"github.com/ledgerflow/ledgerflow/internal/platform/cache"
	"github.com/ledgerflow/ledgerflow/internal/platform/httpx"
)

const maxWebhookBody = 1 << 20

// Handler exposes payment link creation, payment listing, and the provider
// webhook endpoint.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	reconciler *Reconciler
	verifiers  map[Provider]Verifier
	events     *cache.EventCache
}

// NewHandler builds a Handler. Only verifiers for configured providers should
// be passed; webhooks for anything else 404.
func NewHandler(logger *slog.Logger, service *Service, reconciler *Reconciler, verifiers []Verifier, events *cache.EventCache) *Handler {
	byName := make(map[Provider]Verifier, len(verifiers))
	for _, v := range verifiers {
		byName[v.Provider()] = v
	}
	return &Handler{
		logger:     logger,
		service:    service,
		reconciler: reconciler,
		verifiers:  byName,
		events:     events,
	}
}

// MountRoutes registers the workspace-scoped payment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/invoices/{id}/payment-link", h.CreateLink)
	r.Get("/invoices/{id}/payments", h.List)
}

// MountWebhookRoutes registers the public webhook endpoint. It must sit
// outside any middleware that consumes or re-frames the request body.
func (h *Handler) MountWebhookRoutes(r chi.Router) {
	r.Post("/webhooks/{provider}", h.Webhook)
}

type createLinkRequest struct {
	Provider Provider `json:"provider,omitempty"`
}

// CreateLink mints a hosted payment link for the invoice. A provider-side
// failure is reported in the 200 body; sends degrade to the plain invoice URL.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}

	result, err := h.service.CreatePaymentLink(r.Context(), chi.URLParam(r, "id"), req.Provider)
	if err != nil {
		if errors.Is(err, invoices.ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("create payment link", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

// List returns an invoice's payment attempts.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.ListForInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("list payments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if payments == nil {
		payments = []Payment{}
	}
	httpx.JSON(w, http.StatusOK, payments)
}

// Webhook verifies and applies one provider event. Signature failures are
// 400; verified events always come back 200 once processed, no-ops included,
// so the provider stops redelivering.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	verifier, ok := h.verifiers[Provider(chi.URLParam(r, "provider"))]
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "unreadable body")
		return
	}

	evt, err := verifier.Verify(payload, r.Header.Get(verifier.SignatureHeader()))
	if err != nil {
		h.logger.Warn("webhook rejected",
			slog.String("provider", string(verifier.Provider())), slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "signature verification failed")
		return
	}

	if evt.EventID != "" && h.events.Seen(r.Context(), evt.EventID) {
		httpx.JSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	if err := h.reconciler.Process(r.Context(), evt); err != nil {
		h.logger.Error("process webhook",
			slog.String("provider", string(evt.Provider)),
			slog.String("event_id", evt.EventID),
			slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	if evt.EventID != "" {
		h.events.Mark(r.Context(), evt.EventID)
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"received": true})
}
