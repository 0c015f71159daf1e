package customers

import "time"

// Customer is a billable party owned by a workspace and referenced, never
// owned, by invoices.
type Customer struct {
	ID             string     `json:"id" db:"id"`
	WorkspaceID    string     `json:"workspace_id" db:"workspace_id"`
	BusinessName   string     `json:"business_name" db:"business_name"`
	PrimaryContact *string    `json:"primary_contact,omitempty" db:"primary_contact"`
	Email          *string    `json:"email,omitempty" db:"email"`
	Phone          *string    `json:"phone,omitempty" db:"phone"`
	AddressLine1   *string    `json:"address_line1,omitempty" db:"address_line1"`
	AddressLine2   *string    `json:"address_line2,omitempty" db:"address_line2"`
	City           *string    `json:"city,omitempty" db:"city"`
	State          *string    `json:"state,omitempty" db:"state"`
	PostalCode     *string    `json:"postal_code,omitempty" db:"postal_code"`
	Country        *string    `json:"country,omitempty" db:"country"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
	ArchivedAt     *time.Time `json:"archived_at,omitempty" db:"archived_at"`
}

// DisplayName is the salutation used in outbound notifications.
func (c *Customer) DisplayName() string {
	if c.PrimaryContact != nil && *c.PrimaryContact != "" {
		return *c.PrimaryContact
	}
	return c.BusinessName
}
