package workspaces

import "time"

// MembershipRole enumerates workspace membership roles.
type MembershipRole string

const (
	RoleOwner  MembershipRole = "OWNER"
	RoleAdmin  MembershipRole = "ADMIN"
	RoleMember MembershipRole = "MEMBER"
)

// Workspace is the tenant boundary: it owns customers, invoices,
// integrations and members.
type Workspace struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Member is a user's membership within a workspace.
type Member struct {
	UserID string         `json:"user_id" db:"user_id"`
	Email  string         `json:"email" db:"email"`
	Name   string         `json:"name" db:"name"`
	Role   MembershipRole `json:"role" db:"role"`
}

// IsStaff reports whether the member should receive internal invoice alerts.
func (m Member) IsStaff() bool {
	return m.Role != RoleMember && m.Email != ""
}
