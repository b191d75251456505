package pipeline

import (
	"context"

	"github.com/rpattn/salespipe/internal/catalog"
	"github.com/rpattn/salespipe/internal/domain"
	"github.com/rpattn/salespipe/internal/logger"
)

// LookupFailure describes one failed catalog lookup for diagnostics. The
// record itself only carries the collapsed LOOKUP_FAILED status.
type LookupFailure struct {
	TransactionID string
	ProductID     string
	Kind          domain.LookupFailureKind
	Detail        string
}

// Enricher attaches product metadata to validated records. A nil lookup
// puts the enricher in skip mode: records pass through with status
// LOOKUP_SKIPPED.
type Enricher struct {
	lookup catalog.Lookup
}

// NewEnricher builds an enricher over the given lookup capability.
func NewEnricher(lookup catalog.Lookup) *Enricher {
	return &Enricher{lookup: lookup}
}

// Enrich performs one lookup for the record and merges the result. The
// validated fields are copied through untouched; lookup failures of any kind
// keep the record with status LOOKUP_FAILED and report the failure for
// logging. Enrich never returns an error: lookup problems are data, not
// pipeline failures.
func (e *Enricher) Enrich(ctx context.Context, rec domain.ValidatedRecord) (domain.EnrichedRecord, *LookupFailure) {
	if e.lookup == nil {
		return domain.EnrichedRecord{
			ValidatedRecord: rec,
			Status:          domain.EnrichmentStatusSkipped,
		}, nil
	}

	meta, err := e.lookup.Product(ctx, rec.ProductID)
	if err != nil {
		kind := catalog.ClassifyFailure(err)
		log := logger.FromContext(ctx)
		log.Warn().
			Str("transaction_id", rec.TransactionID).
			Str("product_id", rec.ProductID).
			Str("kind", string(kind)).
			Err(err).
			Msg("catalog lookup failed")
		return domain.EnrichedRecord{
				ValidatedRecord: rec,
				Status:          domain.EnrichmentStatusFailed,
			}, &LookupFailure{
				TransactionID: rec.TransactionID,
				ProductID:     rec.ProductID,
				Kind:          kind,
				Detail:        err.Error(),
			}
	}

	metaCopy := meta
	return domain.EnrichedRecord{
		ValidatedRecord: rec,
		Status:          domain.EnrichmentStatusEnriched,
		Metadata:        &metaCopy,
	}, nil
}
