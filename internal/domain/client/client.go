package client

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// Client is a salon customer. Client CRUD lives outside this engine; only
// the lookups the reminder pipeline needs are modeled here.
type Client struct {
	ID        int64
	FirstName string
	LastName  sql.NullString
	Phone     string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasValidPhone reports whether the client can receive messages: a non-empty
// number of plausible length, digits with an optional leading plus.
func (c *Client) HasValidPhone() bool {
	phone := strings.TrimSpace(c.Phone)
	phone = strings.TrimPrefix(phone, "+")
	if len(phone) < 7 || len(phone) > 15 {
		return false
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Directory provides read access to clients.
type Directory interface {
	GetByID(ctx context.Context, id int64) (*Client, error)
}
