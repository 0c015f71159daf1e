package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerflow/ledgerflow/internal/integrations"
	"github.com/ledgerflow/ledgerflow/internal/invoices"
	"github.com/ledgerflow/ledgerflow/internal/notify"
	"github.com/ledgerflow/ledgerflow/internal/payments"
	"github.com/ledgerflow/ledgerflow/internal/platform/httpx"
)

// RouterParams aggregates everything the router mounts.
type RouterParams struct {
	Logger       *slog.Logger
	Config       *Config
	Invoices     *invoices.Handler
	Notify       *notify.Handler
	Payments     *payments.Handler
	Integrations *integrations.Handler
}

// NewRouter assembles the HTTP surface. API routes sit behind the full
// middleware stack; webhooks and the tracking pixel stay outside the rate
// limiter because providers and mail clients do not back off politely.
func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{Logger: p.Logger, Config: p.Config}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RateLimiter())
		p.Invoices.MountRoutes(r)
		p.Notify.MountRoutes(r)
		p.Payments.MountRoutes(r)
		p.Integrations.MountRoutes(r)
	})

	p.Payments.MountWebhookRoutes(r)
	p.Notify.MountPublicRoutes(r)

	return r
}
