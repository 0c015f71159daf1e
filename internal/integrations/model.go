package integrations

import "time"

// APIKey is a workspace-scoped key for external callers. Only the SHA-256
// digest is stored; the raw key is shown exactly once at creation.
type APIKey struct {
	ID          string     `json:"id" db:"id"`
	WorkspaceID string     `json:"workspace_id" db:"workspace_id"`
	Name        string     `json:"name" db:"name"`
	KeyPrefix   string     `json:"key_prefix" db:"key_prefix"`
	KeyHash     string     `json:"-" db:"key_hash"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}
