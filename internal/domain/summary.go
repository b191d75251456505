package domain

import (
	"sort"
	"time"
)

// ProductPerformance accumulates per-product sales figures.
type ProductPerformance struct {
	ProductID     string  `json:"product_id"`
	ProductName   string  `json:"product_name"`
	TotalQuantity int64   `json:"total_quantity"`
	TotalRevenue  float64 `json:"total_revenue"`
	Transactions  int     `json:"transactions"`
}

// RegionPerformance accumulates per-region sales figures.
type RegionPerformance struct {
	Region        string  `json:"region"`
	TotalRevenue  float64 `json:"total_revenue"`
	TotalQuantity int64   `json:"total_quantity"`
	Transactions  int     `json:"transactions"`
}

// CustomerSpend accumulates per-customer spend.
type CustomerSpend struct {
	CustomerID   string  `json:"customer_id"`
	TotalSpent   float64 `json:"total_spent"`
	Transactions int     `json:"transactions"`
}

// CategoryPerformance accumulates sales by enriched product category.
// Records without catalog metadata land in the "Unknown" bucket.
type CategoryPerformance struct {
	Category       string  `json:"category"`
	TotalRevenue   float64 `json:"total_revenue"`
	TotalQuantity  int64   `json:"total_quantity"`
	UniqueProducts int     `json:"unique_products"`
}

// AnalysisSummary is the aggregate output of one pipeline run. It is built
// incrementally by the aggregator and is read-only once finalized.
type AnalysisSummary struct {
	RecordCount      int     `json:"record_count"`
	TotalRevenue     float64 `json:"total_revenue"`
	TotalQuantity    int64   `json:"total_quantity"`
	AverageUnitPrice float64 `json:"average_unit_price"`
	UniqueCustomers  int     `json:"unique_customers"`
	UniqueProducts   int     `json:"unique_products"`

	ByProduct  map[string]ProductPerformance  `json:"by_product"`
	ByRegion   map[string]RegionPerformance   `json:"by_region"`
	ByCategory map[string]CategoryPerformance `json:"by_category"`

	TopProducts  []ProductPerformance `json:"top_products"`
	TopCustomers []CustomerSpend      `json:"top_customers"`

	// RevenueByDate maps YYYY-MM-DD to revenue for records with a known
	// timestamp.
	RevenueByDate map[string]float64 `json:"revenue_by_date"`

	EnrichedCount      int `json:"enriched_count"`
	LookupFailedCount  int `json:"lookup_failed_count"`
	LookupSkippedCount int `json:"lookup_skipped_count"`

	GeneratedAt time.Time `json:"generated_at"`
}

// RankProducts returns the products ordered by revenue, highest first,
// truncated to limit when limit > 0.
func RankProducts(byProduct map[string]ProductPerformance, limit int) []ProductPerformance {
	ranked := make([]ProductPerformance, 0, len(byProduct))
	for _, p := range byProduct {
		ranked = append(ranked, p)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].TotalRevenue != ranked[j].TotalRevenue {
			return ranked[i].TotalRevenue > ranked[j].TotalRevenue
		}
		return ranked[i].ProductID < ranked[j].ProductID
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// RankCustomers returns customers ordered by total spend, highest first,
// truncated to limit when limit > 0.
func RankCustomers(byCustomer map[string]CustomerSpend, limit int) []CustomerSpend {
	ranked := make([]CustomerSpend, 0, len(byCustomer))
	for _, c := range byCustomer {
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].TotalSpent != ranked[j].TotalSpent {
			return ranked[i].TotalSpent > ranked[j].TotalSpent
		}
		return ranked[i].CustomerID < ranked[j].CustomerID
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
