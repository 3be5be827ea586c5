package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/warp/rent-ledger/ledger"
)

// =============================================================================
// DIRECTORY (ledger.Directory interface)
// =============================================================================

func (s *Store) PropertyOwner(ctx context.Context, id ledger.PropertyID) (ledger.UserID, bool, error) {
	owner, ok, err := s.lookup(ctx, `SELECT owner_id FROM properties WHERE id = ?`, id)
	return ledger.UserID(owner), ok, err
}

func (s *Store) TenantProperty(ctx context.Context, id ledger.TenantID) (ledger.PropertyID, bool, error) {
	property, ok, err := s.lookup(ctx, `SELECT property_id FROM tenants WHERE id = ?`, id)
	return ledger.PropertyID(property), ok, err
}

// TenantContact returns the tenant's email, or "" if the tenant is unknown
// or has none on file.
func (s *Store) TenantContact(ctx context.Context, id ledger.TenantID) (string, error) {
	return s.column(ctx, `SELECT email FROM tenants WHERE id = ?`, id)
}

func (s *Store) PropertyName(ctx context.Context, id ledger.PropertyID) (string, error) {
	return s.column(ctx, `SELECT name FROM properties WHERE id = ?`, id)
}

func (s *Store) TenantName(ctx context.Context, id ledger.TenantID) (string, error) {
	return s.column(ctx, `SELECT name FROM tenants WHERE id = ?`, id)
}

func (s *Store) lookup(ctx context.Context, query string, id any) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, s.rebind(query), id).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *Store) column(ctx context.Context, query string, id any) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, s.rebind(query), id).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

// =============================================================================
// REGISTRY (ledger.Registry interface)
// =============================================================================

// SaveProperty inserts or updates a property.
func (s *Store) SaveProperty(ctx context.Context, p ledger.Property) error {
	query := s.rebind(`
		INSERT INTO properties (id, name, address, owner_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			address = excluded.address,
			owner_id = excluded.owner_id
	`)
	_, err := s.db.ExecContext(ctx, query, p.ID, p.Name, p.Address, p.OwnerID, formatTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save property: %w", err)
	}
	return nil
}

// ListProperties returns the owner's properties by name; an empty owner lists all.
func (s *Store) ListProperties(ctx context.Context, owner ledger.UserID) ([]ledger.Property, error) {
	query := `SELECT id, name, address, owner_id, created_at FROM properties`
	var args []any
	if owner != "" {
		query += ` WHERE owner_id = ?`
		args = append(args, owner)
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(query+` ORDER BY name`), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	defer rows.Close()

	var out []ledger.Property
	for rows.Next() {
		var (
			p         ledger.Property
			createdAt string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Address, &p.OwnerID, &createdAt); err != nil {
			return nil, err
		}
		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveTenant inserts or updates a tenant.
func (s *Store) SaveTenant(ctx context.Context, t ledger.Tenant) error {
	query := s.rebind(`
		INSERT INTO tenants (id, name, email, phone, property_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			phone = excluded.phone,
			property_id = excluded.property_id
	`)
	_, err := s.db.ExecContext(ctx, query, t.ID, t.Name, t.Email, t.Phone, t.PropertyID, formatTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save tenant: %w", err)
	}
	return nil
}

// ListTenants returns the tenants of the owner's properties by name,
// optionally narrowed to one property.
func (s *Store) ListTenants(ctx context.Context, owner ledger.UserID, property ledger.PropertyID) ([]ledger.Tenant, error) {
	query := `
		SELECT t.id, t.name, t.email, t.phone, t.property_id, t.created_at
		FROM tenants t
		JOIN properties p ON p.id = t.property_id
		WHERE p.owner_id = ?`
	args := []any{owner}
	if property != "" {
		query += ` AND t.property_id = ?`
		args = append(args, property)
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(query+` ORDER BY t.name`), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenants: %w", err)
	}
	defer rows.Close()

	var out []ledger.Tenant
	for rows.Next() {
		var (
			t         ledger.Tenant
			createdAt string
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Email, &t.Phone, &t.PropertyID, &createdAt); err != nil {
			return nil, err
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

var (
	_ ledger.Store     = (*Store)(nil)
	_ ledger.Directory = (*Store)(nil)
	_ ledger.Registry  = (*Store)(nil)
)
