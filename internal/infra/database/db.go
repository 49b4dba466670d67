package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 25
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnMaxIdleTime = 1 * time.Minute
)

// Sentinel errors shared by the postgres repositories.
var (
	ErrRuleNotFound        = fmt.Errorf("recurrence rule not found")
	ErrAppointmentNotFound = fmt.Errorf("appointment not found")
	ErrClientNotFound      = fmt.Errorf("client not found")
	ErrServiceNotFound     = fmt.Errorf("service not found")
	ErrMessageNotFound     = fmt.Errorf("sent message not found")
)

// NewPostgresConnection creates and returns a new PostgreSQL database
// connection, pinging it to ensure connectivity.
func NewPostgresConnection(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
