package catalog

import (
	"context"
	"errors"

	"github.com/rpattn/salespipe/internal/domain"
)

var (
	// ErrNotFound is returned when the catalog has no entry for a product id.
	ErrNotFound = errors.New("product not found in catalog")
)

// Lookup is the capability the pipeline uses to fetch product metadata.
// Implementations must be safe for concurrent use; the enrichment stage
// calls Product from multiple workers.
type Lookup interface {
	Product(ctx context.Context, productID string) (domain.ProductMetadata, error)
}

// ClassifyFailure maps a lookup error onto the failure taxonomy used in
// logs and run-log entries.
func ClassifyFailure(err error) domain.LookupFailureKind {
	switch {
	case errors.Is(err, ErrNotFound):
		return domain.LookupNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return domain.LookupTimeout
	default:
		var timeoutErr interface{ Timeout() bool }
		if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
			return domain.LookupTimeout
		}
		return domain.LookupError
	}
}
