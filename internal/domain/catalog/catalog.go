package catalog

import "context"

// Service is a bookable salon service. Catalog CRUD lives outside this
// engine; the materializer only needs the duration and the schedulers the
// name.
type Service struct {
	ID              int64
	Name            string
	DurationMinutes int
	PriceCents      int64
}

// Catalog provides read access to the service catalog.
type Catalog interface {
	GetServiceByID(ctx context.Context, id int64) (*Service, error)
}
