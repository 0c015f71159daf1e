package payments

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates no payment matches the lookup.
var ErrNotFound = errors.New("payment not found")

// Repository defines data access for payment attempt records.
type Repository interface {
	Create(ctx context.Context, p Payment) (string, error)
	GetByProviderRef(ctx context.Context, ref string) (*Payment, error)
	MarkSucceeded(ctx context.Context, id string, raw json.RawMessage, processedAt time.Time) error
	MarkFailedByRef(ctx context.Context, ref string) (int64, error)
	ListByInvoice(ctx context.Context, invoiceID string) ([]Payment, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const paymentColumns = `id, invoice_id, provider, provider_ref, amount, currency, status, raw_payload, processed_at, created_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.InvoiceID, &p.Provider, &p.ProviderRef, &p.Amount, &p.Currency,
		&p.Status, &p.RawPayload, &p.ProcessedAt, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) Create(ctx context.Context, p Payment) (string, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = PaymentPending
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO payments (id, invoice_id, provider, provider_ref, amount, currency, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())`,
		p.ID, p.InvoiceID, p.Provider, p.ProviderRef, p.Amount, p.Currency, p.Status,
	)
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

func (r *repository) GetByProviderRef(ctx context.Context, ref string) (*Payment, error) {
	return scanPayment(r.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE provider_ref = $1`, ref))
}

func (r *repository) MarkSucceeded(ctx context.Context, id string, raw json.RawMessage, processedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE payments SET status=$2, raw_payload=$3, processed_at=$4 WHERE id=$1`,
		id, PaymentSucceeded, []byte(raw), processedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFailedByRef updates every matching record; zero matches is not an error.
func (r *repository) MarkFailedByRef(ctx context.Context, ref string) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE payments SET status=$2 WHERE provider_ref=$1`, ref, PaymentFailed)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repository) ListByInvoice(ctx context.Context, invoiceID string) ([]Payment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE invoice_id = $1 ORDER BY created_at`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
