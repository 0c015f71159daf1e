package notify

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerflow/ledgerflow/internal/invoices"
	"github.com/ledgerflow/ledgerflow/internal/platform/httpx"
)

// trackingPixel is a 1x1 transparent GIF.
var trackingPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// Handler exposes dispatch and open-tracking endpoints.
type Handler struct {
	logger     *slog.Logger
	dispatcher *Dispatcher
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, dispatcher *Dispatcher) *Handler {
	return &Handler{logger: logger, dispatcher: dispatcher}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/invoices/{id}/send", h.Send)
	r.Post("/invoices/{id}/notify-paid", h.NotifyPaid)
}

// MountPublicRoutes registers the open-tracking pixel. It lives at the root,
// not under the API prefix, because email clients fetch the literal URL
// embedded in the message body.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/invoices/{id}/opened.gif", h.OpenPixel)
}

// Send dispatches (or re-dispatches) the invoice to its customer. Partial
// channel failure is a 200 with per-channel outcomes; only a missing invoice
// is an error.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	result, err := h.dispatcher.DispatchInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, invoices.ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("dispatch invoice", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

// NotifyPaid triggers the internal paid alert path (idempotent).
func (h *Handler) NotifyPaid(w http.ResponseWriter, r *http.Request) {
	if err := h.dispatcher.NotifyInvoicePaid(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, invoices.ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("notify invoice paid", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// OpenPixel records an invoice open and always serves the pixel; tracking
// must never break the email rendering that embeds it.
func (h *Handler) OpenPixel(w http.ResponseWriter, r *http.Request) {
	detail := OpenDetail{
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
	if host := r.Header.Get("X-Forwarded-For"); host != "" {
		detail.IP = host
	}
	if err := h.dispatcher.RecordInvoiceOpen(r.Context(), chi.URLParam(r, "id"), detail); err != nil {
		h.logger.Warn("record invoice open", slog.Any("error", err))
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store, max-age=0")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(trackingPixel)
}
