package invoices

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLinkMinter struct {
	url   string
	ok    bool
	calls int
}

func (s *stubLinkMinter) MintPaymentLink(ctx context.Context, invoiceID string) (string, bool) {
	s.calls++
	return s.url, s.ok
}

func postCreate(t *testing.T, h *Handler, req CreateInvoiceRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodPost, "/invoices", bytes.NewReader(body))
	r.Header.Set("X-Workspace-ID", "ws-1")
	rec := httptest.NewRecorder()
	h.Create(rec, r)
	return rec
}

func TestCreateInvoiceMintsPaymentLink(t *testing.T) {
	repo := newMockRepository()
	minter := &stubLinkMinter{url: "https://pay.test/cs_1", ok: true}
	h := NewHandler(slog.Default(), NewService(repo), NewLifecycle(repo), minter)

	req := validCreateRequest()
	req.EnablePaymentLink = true
	rec := postCreate(t, h, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var inv Invoice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inv))
	require.NotNil(t, inv.PaymentLinkURL)
	assert.Equal(t, "https://pay.test/cs_1", *inv.PaymentLinkURL)
	assert.Equal(t, 1, minter.calls)
}

func TestCreateInvoiceLinkFailureDegrades(t *testing.T) {
	repo := newMockRepository()
	minter := &stubLinkMinter{ok: false}
	h := NewHandler(slog.Default(), NewService(repo), NewLifecycle(repo), minter)

	req := validCreateRequest()
	req.EnablePaymentLink = true
	rec := postCreate(t, h, req)

	require.Equal(t, http.StatusCreated, rec.Code, "a failed link never fails the create")
	var inv Invoice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inv))
	assert.Nil(t, inv.PaymentLinkURL)
}

func TestCreateInvoiceWithoutFlagSkipsMinter(t *testing.T) {
	repo := newMockRepository()
	minter := &stubLinkMinter{url: "https://pay.test/cs_1", ok: true}
	h := NewHandler(slog.Default(), NewService(repo), NewLifecycle(repo), minter)

	rec := postCreate(t, h, validCreateRequest())

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 0, minter.calls)
}

func TestDuplicateNumberMapsToConflict(t *testing.T) {
	err := mapPgError(&pgconn.PgError{Code: "23505", ConstraintName: "invoices_workspace_id_number_key"})
	require.ErrorIs(t, err, ErrDuplicateNumber)

	repo := newMockRepository()
	h := NewHandler(slog.Default(), NewService(repo), NewLifecycle(repo), nil)
	rec := httptest.NewRecorder()
	h.respondDomainError(rec, err)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Already Exists")
}
