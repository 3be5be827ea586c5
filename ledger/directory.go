package ledger

import (
	"context"
	"time"
)

// Property is a rentable unit as held by the back office.
type Property struct {
	ID        PropertyID `json:"id"`
	Name      string     `json:"name"`
	Address   string     `json:"address,omitempty"`
	OwnerID   UserID     `json:"owner_id"`
	CreatedAt time.Time  `json:"created_at"`
}

// Tenant is a person billed for a property. Email is the contact address
// notices and receipts are delivered to.
type Tenant struct {
	ID         TenantID   `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	PropertyID PropertyID `json:"property_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Registry maintains the directory records. Both stores implement it next
// to Directory so the back office can populate what billing resolves.
type Registry interface {
	SaveProperty(ctx context.Context, p Property) error
	ListProperties(ctx context.Context, owner UserID) ([]Property, error)
	SaveTenant(ctx context.Context, t Tenant) error

	// ListTenants returns the tenants of the owner's properties, optionally
	// narrowed to one property.
	ListTenants(ctx context.Context, owner UserID, property PropertyID) ([]Tenant, error)
}
