package invoices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerflow/ledgerflow/internal/platform/db"
)

var (
	// ErrNotFound indicates the invoice does not exist.
	ErrNotFound = errors.New("invoice not found")
	// ErrReferenced indicates the invoice cannot be deleted while payments reference it.
	ErrReferenced = errors.New("invoice is referenced by payments")
	// ErrDuplicateNumber indicates the workspace already has an invoice with that number.
	ErrDuplicateNumber = errors.New("invoice number already exists")
)

// Repository defines data access for invoices, lines and ledger events.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id string) (*Invoice, error)
	GetByNumber(ctx context.Context, workspaceID, number string) (*Invoice, error)
	Create(ctx context.Context, inv Invoice) (string, error)
	UpdateHeader(ctx context.Context, inv Invoice) error
	Delete(ctx context.Context, id string) error
	InsertLine(ctx context.Context, line InvoiceLine) (string, error)
	DeleteLines(ctx context.Context, invoiceID string) error
	SetStatus(ctx context.Context, id string, status InvoiceStatus) error
	MarkSent(ctx context.Context, id string, at time.Time) error
	SetPaymentLinkURL(ctx context.Context, id, url string) error
	MarkOpened(ctx context.Context, id string, at time.Time) error
	SetPaidNotified(ctx context.Context, id string, at time.Time) error
	InsertEvent(ctx context.Context, ev InvoiceEvent) error
	ListEvents(ctx context.Context, invoiceID string) ([]InvoiceEvent, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]Invoice, error)
	GenerateNumber(ctx context.Context, workspaceID string, date time.Time) (string, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository builds a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const invoiceColumns = `id, workspace_id, customer_id, number, currency, status,
	issue_date, due_date, subtotal, tax_total, discount_total, total,
	requires_deposit, deposit_type, deposit_amount, deposit_due_date,
	payment_link_url, sent_at, first_opened_at, last_opened_at, paid_notified_at,
	created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var depositType *string
	err := row.Scan(
		&inv.ID, &inv.WorkspaceID, &inv.CustomerID, &inv.Number, &inv.Currency, &inv.Status,
		&inv.IssueDate, &inv.DueDate, &inv.Subtotal, &inv.TaxTotal, &inv.DiscountTotal, &inv.Total,
		&inv.RequiresDeposit, &depositType, &inv.DepositAmount, &inv.DepositDueDate,
		&inv.PaymentLinkURL, &inv.SentAt, &inv.FirstOpenedAt, &inv.LastOpenedAt, &inv.PaidNotifiedAt,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if depositType != nil {
		dt := DepositType(*depositType)
		inv.DepositType = &dt
	}
	return &inv, nil
}

func (r *repository) Get(ctx context.Context, id string) (*Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	lines, err := r.listLines(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.Lines = lines
	return inv, nil
}

func (r *repository) GetByNumber(ctx context.Context, workspaceID, number string) (*Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE workspace_id = $1 AND number = $2`, workspaceID, number))
	if err != nil {
		return nil, err
	}
	lines, err := r.listLines(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.Lines = lines
	return inv, nil
}

func (r *repository) listLines(ctx context.Context, invoiceID string) ([]InvoiceLine, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, invoice_id, description, quantity, unit_price, amount, sort_order
		 FROM invoice_lines WHERE invoice_id = $1 ORDER BY sort_order`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []InvoiceLine
	for rows.Next() {
		var l InvoiceLine
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.Description, &l.Quantity, &l.UnitPrice, &l.Amount, &l.SortOrder); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *repository) Create(ctx context.Context, inv Invoice) (string, error) {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO invoices (id, workspace_id, customer_id, number, currency, status,
			issue_date, due_date, subtotal, tax_total, discount_total, total,
			requires_deposit, deposit_type, deposit_amount, deposit_due_date,
			payment_link_url, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,NOW(),NOW())`,
		inv.ID, inv.WorkspaceID, inv.CustomerID, inv.Number, inv.Currency, inv.Status,
		inv.IssueDate, inv.DueDate, inv.Subtotal, inv.TaxTotal, inv.DiscountTotal, inv.Total,
		inv.RequiresDeposit, inv.DepositType, inv.DepositAmount, inv.DepositDueDate,
		inv.PaymentLinkURL,
	)
	if err != nil {
		return "", mapPgError(err)
	}
	return inv.ID, nil
}

func (r *repository) UpdateHeader(ctx context.Context, inv Invoice) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE invoices SET customer_id=$2, currency=$3, issue_date=$4, due_date=$5,
			subtotal=$6, tax_total=$7, discount_total=$8, total=$9,
			requires_deposit=$10, deposit_type=$11, deposit_amount=$12, deposit_due_date=$13,
			updated_at=NOW()
		WHERE id = $1`,
		inv.ID, inv.CustomerID, inv.Currency, inv.IssueDate, inv.DueDate,
		inv.Subtotal, inv.TaxTotal, inv.DiscountTotal, inv.Total,
		inv.RequiresDeposit, inv.DepositType, inv.DepositAmount, inv.DepositDueDate,
	)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) InsertLine(ctx context.Context, line InvoiceLine) (string, error) {
	if line.ID == "" {
		line.ID = uuid.NewString()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO invoice_lines (id, invoice_id, description, quantity, unit_price, amount, sort_order)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		line.ID, line.InvoiceID, line.Description, line.Quantity, line.UnitPrice, line.Amount, line.SortOrder,
	)
	if err != nil {
		return "", mapPgError(err)
	}
	return line.ID, nil
}

func (r *repository) DeleteLines(ctx context.Context, invoiceID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM invoice_lines WHERE invoice_id = $1`, invoiceID)
	return err
}

func (r *repository) SetStatus(ctx context.Context, id string, status InvoiceStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE invoices SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkSent sets sent_at only when unset so resends never re-timestamp.
func (r *repository) MarkSent(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE invoices SET sent_at = COALESCE(sent_at, $2), updated_at=NOW() WHERE id=$1`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SetPaymentLinkURL(ctx context.Context, id, url string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE invoices SET payment_link_url=$2, updated_at=NOW() WHERE id=$1`, id, url)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkOpened sets first_opened_at only once and always advances last_opened_at.
func (r *repository) MarkOpened(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE invoices SET first_opened_at = COALESCE(first_opened_at, $2), last_opened_at = $2, updated_at=NOW() WHERE id=$1`,
		id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SetPaidNotified(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE invoices SET paid_notified_at = COALESCE(paid_notified_at, $2), updated_at=NOW() WHERE id=$1`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) InsertEvent(ctx context.Context, ev InvoiceEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	var detail []byte
	if ev.Detail != nil {
		b, err := json.Marshal(ev.Detail)
		if err != nil {
			return fmt.Errorf("marshal event detail: %w", err)
		}
		detail = b
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO invoice_events (id, invoice_id, type, status, channel, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,NOW())`,
		ev.ID, ev.InvoiceID, ev.Type, ev.Status, ev.Channel, detail,
	)
	return mapPgError(err)
}

func (r *repository) ListEvents(ctx context.Context, invoiceID string) ([]InvoiceEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, invoice_id, type, status, channel, detail, created_at
		FROM invoice_events WHERE invoice_id = $1 ORDER BY created_at`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []InvoiceEvent
	for rows.Next() {
		var ev InvoiceEvent
		var detail []byte
		if err := rows.Scan(&ev.ID, &ev.InvoiceID, &ev.Type, &ev.Status, &ev.Channel, &detail, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if len(detail) > 0 {
			_ = json.Unmarshal(detail, &ev.Detail)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (r *repository) ListOverdue(ctx context.Context, asOf time.Time) ([]Invoice, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE status = $1 AND due_date < $2`, StatusSent, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

func (r *repository) GenerateNumber(ctx context.Context, workspaceID string, date time.Time) (string, error) {
	var seq int64
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) + 1 FROM invoices
		WHERE workspace_id = $1 AND date_trunc('year', issue_date) = date_trunc('year', $2::timestamptz)`,
		workspaceID, date).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("INV-%d%04d", date.Year()%100, seq), nil
}

// mapPgError translates Postgres constraint failures into domain errors.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503": // foreign key: event for a missing invoice, or delete of a referenced one
			if pgErr.TableName == "invoice_events" {
				return ErrNotFound
			}
			return ErrReferenced
		case "23505":
			return fmt.Errorf("%w: %s", ErrDuplicateNumber, pgErr.ConstraintName)
		}
	}
	return err
}
