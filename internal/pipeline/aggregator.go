package pipeline

import (
	"time"

	"github.com/rpattn/salespipe/internal/domain"
)

const defaultTopN = 10

// Aggregator folds enriched records into a running AnalysisSummary.
// Folding is commutative: the final totals do not depend on the order the
// records arrive in. The aggregator is not safe for concurrent use; the
// orchestrator serializes Fold calls in its collector.
type Aggregator struct {
	summary     domain.AnalysisSummary
	byCustomer  map[string]domain.CustomerSpend
	catProducts map[string]map[string]struct{}
	topN        int
	finalized   bool
	now         func() time.Time
}

// NewAggregator creates an empty aggregator. topN bounds the product and
// customer rankings in the finalized summary; values <= 0 use the default.
func NewAggregator(topN int) *Aggregator {
	if topN <= 0 {
		topN = defaultTopN
	}
	return &Aggregator{
		summary: domain.AnalysisSummary{
			ByProduct:     make(map[string]domain.ProductPerformance),
			ByRegion:      make(map[string]domain.RegionPerformance),
			ByCategory:    make(map[string]domain.CategoryPerformance),
			RevenueByDate: make(map[string]float64),
		},
		byCustomer:  make(map[string]domain.CustomerSpend),
		catProducts: make(map[string]map[string]struct{}),
		topN:        topN,
		now:         time.Now,
	}
}

// Fold accumulates one enriched record. Revenue and quantity are counted
// regardless of enrichment status; only the category grouping depends on
// metadata, with unenriched records bucketed under "Unknown". Fold panics
// if called after Finalize.
func (a *Aggregator) Fold(rec domain.EnrichedRecord) {
	if a.finalized {
		panic("aggregator: Fold called after Finalize")
	}

	a.summary.RecordCount++
	a.summary.TotalRevenue += rec.Total
	a.summary.TotalQuantity += rec.Quantity

	product := a.summary.ByProduct[rec.ProductID]
	product.ProductID = rec.ProductID
	if product.ProductName == "" {
		product.ProductName = rec.ProductName
	}
	product.TotalQuantity += rec.Quantity
	product.TotalRevenue += rec.Total
	product.Transactions++
	a.summary.ByProduct[rec.ProductID] = product

	region := a.summary.ByRegion[rec.Region]
	region.Region = rec.Region
	region.TotalRevenue += rec.Total
	region.TotalQuantity += rec.Quantity
	region.Transactions++
	a.summary.ByRegion[rec.Region] = region

	customer := a.byCustomer[rec.CustomerID]
	customer.CustomerID = rec.CustomerID
	customer.TotalSpent += rec.Total
	customer.Transactions++
	a.byCustomer[rec.CustomerID] = customer

	categoryName := "Unknown"
	if rec.Metadata != nil && rec.Metadata.Category != "" {
		categoryName = rec.Metadata.Category
	}
	category := a.summary.ByCategory[categoryName]
	category.Category = categoryName
	category.TotalRevenue += rec.Total
	category.TotalQuantity += rec.Quantity
	if a.catProducts[categoryName] == nil {
		a.catProducts[categoryName] = make(map[string]struct{})
	}
	a.catProducts[categoryName][rec.ProductID] = struct{}{}
	category.UniqueProducts = len(a.catProducts[categoryName])
	a.summary.ByCategory[categoryName] = category

	if rec.OccurredAt != nil {
		day := rec.OccurredAt.Format("2006-01-02")
		a.summary.RevenueByDate[day] += rec.Total
	}

	switch rec.Status {
	case domain.EnrichmentStatusEnriched:
		a.summary.EnrichedCount++
	case domain.EnrichmentStatusFailed:
		a.summary.LookupFailedCount++
	case domain.EnrichmentStatusSkipped:
		a.summary.LookupSkippedCount++
	}
}

// Finalize computes the derived figures and freezes the summary. Further
// Fold calls panic.
func (a *Aggregator) Finalize() domain.AnalysisSummary {
	if !a.finalized {
		a.finalized = true
		if a.summary.TotalQuantity > 0 {
			a.summary.AverageUnitPrice = a.summary.TotalRevenue / float64(a.summary.TotalQuantity)
		}
		a.summary.UniqueCustomers = len(a.byCustomer)
		a.summary.UniqueProducts = len(a.summary.ByProduct)
		a.summary.TopProducts = domain.RankProducts(a.summary.ByProduct, a.topN)
		a.summary.TopCustomers = domain.RankCustomers(a.byCustomer, a.topN)
		a.summary.GeneratedAt = a.now()
	}
	return a.summary
}
