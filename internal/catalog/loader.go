package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/graph-gophers/dataloader"

	"github.com/rpattn/salespipe/internal/domain"
)

// CachedLookup wraps another Lookup with a dataloader so that repeated
// lookups for the same product id within a run collapse into one call and
// always observe the same outcome, success or failure.
type CachedLookup struct {
	loader *dataloader.Loader
}

// NewCachedLookup builds the per-run cache around next. The loader batches
// keys that arrive within a short window, which keeps concurrent enrichment
// workers from issuing duplicate requests for hot product ids.
func NewCachedLookup(next Lookup) *CachedLookup {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))
		for i, key := range keys {
			meta, err := next.Product(ctx, key.String())
			if err != nil {
				results[i] = &dataloader.Result{Error: err}
				continue
			}
			results[i] = &dataloader.Result{Data: meta}
		}
		return results
	}

	return &CachedLookup{
		loader: dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(5*time.Millisecond)),
	}
}

// Product resolves metadata through the cache.
func (c *CachedLookup) Product(ctx context.Context, productID string) (domain.ProductMetadata, error) {
	thunk := c.loader.Load(ctx, dataloader.StringKey(productID))
	value, err := thunk()
	if err != nil {
		return domain.ProductMetadata{}, err
	}
	meta, ok := value.(domain.ProductMetadata)
	if !ok {
		return domain.ProductMetadata{}, fmt.Errorf("unexpected loader value %T for product %s", value, productID)
	}
	return meta, nil
}

var _ Lookup = (*CachedLookup)(nil)
