package customers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the customer does not exist.
var ErrNotFound = errors.New("customer not found")

// Repository defines data access for customers.
type Repository interface {
	Get(ctx context.Context, id string) (*Customer, error)
	Create(ctx context.Context, c Customer) (string, error)
	List(ctx context.Context, workspaceID string) ([]Customer, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const customerColumns = `id, workspace_id, business_name, primary_contact, email, phone,
	address_line1, address_line2, city, state, postal_code, country,
	created_at, updated_at, archived_at`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(
		&c.ID, &c.WorkspaceID, &c.BusinessName, &c.PrimaryContact, &c.Email, &c.Phone,
		&c.AddressLine1, &c.AddressLine2, &c.City, &c.State, &c.PostalCode, &c.Country,
		&c.CreatedAt, &c.UpdatedAt, &c.ArchivedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) Get(ctx context.Context, id string) (*Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
}

func (r *repository) Create(ctx context.Context, c Customer) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO customers (id, workspace_id, business_name, primary_contact, email, phone,
			address_line1, address_line2, city, state, postal_code, country, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NOW(),NOW())`,
		c.ID, c.WorkspaceID, c.BusinessName, c.PrimaryContact, c.Email, c.Phone,
		c.AddressLine1, c.AddressLine2, c.City, c.State, c.PostalCode, c.Country,
	)
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

func (r *repository) List(ctx context.Context, workspaceID string) ([]Customer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE workspace_id = $1 AND archived_at IS NULL ORDER BY business_name`,
		workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
