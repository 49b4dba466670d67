package database

import (
	"context"
	"database/sql"
	"fmt"

	"salon_reminder_service/internal/domain/catalog"
	"salon_reminder_service/internal/domain/client"
)

// PostgresClientDirectory provides the client lookups the reminder pipeline
// needs. Client CRUD is owned elsewhere; this reads the same table.
type PostgresClientDirectory struct {
	db *sql.DB
}

func NewPostgresClientDirectory(db *sql.DB) *PostgresClientDirectory {
	return &PostgresClientDirectory{db: db}
}

func (d *PostgresClientDirectory) GetByID(ctx context.Context, id int64) (*client.Client, error) {
	query := `SELECT id, first_name, last_name, phone, is_active, created_at, updated_at
		FROM clients WHERE id = $1`
	c := &client.Client{}
	err := d.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.FirstName, &c.LastName, &c.Phone, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("error getting client by ID: %w", err)
	}
	return c, nil
}

// PostgresServiceCatalog provides service lookups for duration and naming.
type PostgresServiceCatalog struct {
	db *sql.DB
}

func NewPostgresServiceCatalog(db *sql.DB) *PostgresServiceCatalog {
	return &PostgresServiceCatalog{db: db}
}

func (c *PostgresServiceCatalog) GetServiceByID(ctx context.Context, id int64) (*catalog.Service, error) {
	query := `SELECT id, name, duration_minutes, price_cents FROM services WHERE id = $1`
	svc := &catalog.Service{}
	err := c.db.QueryRowContext(ctx, query, id).Scan(
		&svc.ID, &svc.Name, &svc.DurationMinutes, &svc.PriceCents,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("error getting service by ID: %w", err)
	}
	return svc, nil
}
