package integrations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates no key matches the lookup.
	ErrNotFound = errors.New("api key not found")
	// ErrDuplicate indicates a name collision within the workspace.
	ErrDuplicate = errors.New("api key name already exists")
)

// Repository defines data access for API keys.
type Repository interface {
	Create(ctx context.Context, key APIKey) (*APIKey, error)
	GetByHash(ctx context.Context, hash string) (*APIKey, error)
	List(ctx context.Context, workspaceID string) ([]APIKey, error)
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, workspaceID, id string) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const keyColumns = `id, workspace_id, name, key_prefix, key_hash, last_used_at, created_at`

func scanKey(row pgx.Row) (*APIKey, error) {
	var k APIKey
	err := row.Scan(&k.ID, &k.WorkspaceID, &k.Name, &k.KeyPrefix, &k.KeyHash, &k.LastUsedAt, &k.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &k, nil
}

func (r *repository) Create(ctx context.Context, key APIKey) (*APIKey, error) {
	if key.ID == "" {
		key.ID = uuid.NewString()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO api_keys (id, workspace_id, name, key_prefix, key_hash, created_at)
		VALUES ($1,$2,$3,$4,$5,NOW())
		RETURNING `+keyColumns,
		key.ID, key.WorkspaceID, key.Name, key.KeyPrefix, key.KeyHash)
	created, err := scanKey(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return created, nil
}

func (r *repository) GetByHash(ctx context.Context, hash string) (*APIKey, error) {
	return scanKey(r.pool.QueryRow(ctx,
		`SELECT `+keyColumns+` FROM api_keys WHERE key_hash = $1`, hash))
}

func (r *repository) List(ctx context.Context, workspaceID string) ([]APIKey, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+keyColumns+` FROM api_keys WHERE workspace_id = $1 ORDER BY created_at DESC`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []APIKey
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *k)
	}
	return out, rows.Err()
}

func (r *repository) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE api_keys SET last_used_at=$2 WHERE id=$1`, id, at)
	return err
}

func (r *repository) Delete(ctx context.Context, workspaceID, id string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM api_keys WHERE id=$1 AND workspace_id=$2`, id, workspaceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
