package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rpattn/salespipe/internal/domain"
)

const reportRule = "============================================================"

// FormatAnalysis renders the human-readable analysis report.
func FormatAnalysis(summary domain.AnalysisSummary, rejected []domain.RejectedRecord) string {
	var b strings.Builder

	b.WriteString(reportRule + "\n")
	b.WriteString("SALES DATA ANALYSIS REPORT\n")
	fmt.Fprintf(&b, "Generated: %s\n", summary.GeneratedAt.Format("2006-01-02 15:04:05"))
	b.WriteString(reportRule + "\n\n")

	b.WriteString("OVERVIEW\n")
	b.WriteString("--------\n")
	fmt.Fprintf(&b, "Transactions analyzed: %d\n", summary.RecordCount)
	fmt.Fprintf(&b, "Total revenue:         %.2f\n", summary.TotalRevenue)
	fmt.Fprintf(&b, "Total units sold:      %d\n", summary.TotalQuantity)
	fmt.Fprintf(&b, "Average unit price:    %.2f\n", summary.AverageUnitPrice)
	fmt.Fprintf(&b, "Unique customers:      %d\n", summary.UniqueCustomers)
	fmt.Fprintf(&b, "Unique products:       %d\n", summary.UniqueProducts)
	b.WriteString("\n")

	b.WriteString("ENRICHMENT\n")
	b.WriteString("----------\n")
	fmt.Fprintf(&b, "Enriched:       %d\n", summary.EnrichedCount)
	fmt.Fprintf(&b, "Lookup failed:  %d\n", summary.LookupFailedCount)
	fmt.Fprintf(&b, "Lookup skipped: %d\n", summary.LookupSkippedCount)
	b.WriteString("\n")

	if len(summary.TopProducts) > 0 {
		b.WriteString("TOP PRODUCTS BY REVENUE\n")
		b.WriteString("-----------------------\n")
		for i, p := range summary.TopProducts {
			fmt.Fprintf(&b, "%2d. %-12s revenue %10.2f  units %6d  orders %5d\n",
				i+1, p.ProductID, p.TotalRevenue, p.TotalQuantity, p.Transactions)
		}
		b.WriteString("\n")
	}

	if len(summary.ByRegion) > 0 {
		b.WriteString("REVENUE BY REGION\n")
		b.WriteString("-----------------\n")
		regions := make([]string, 0, len(summary.ByRegion))
		for name := range summary.ByRegion {
			regions = append(regions, name)
		}
		sort.Slice(regions, func(i, j int) bool {
			ri, rj := summary.ByRegion[regions[i]], summary.ByRegion[regions[j]]
			if ri.TotalRevenue != rj.TotalRevenue {
				return ri.TotalRevenue > rj.TotalRevenue
			}
			return regions[i] < regions[j]
		})
		for _, name := range regions {
			r := summary.ByRegion[name]
			fmt.Fprintf(&b, "%-16s revenue %10.2f  orders %5d\n", name, r.TotalRevenue, r.Transactions)
		}
		b.WriteString("\n")
	}

	if len(summary.TopCustomers) > 0 {
		b.WriteString("TOP CUSTOMERS BY SPEND\n")
		b.WriteString("----------------------\n")
		for i, c := range summary.TopCustomers {
			fmt.Fprintf(&b, "%2d. %-12s spend %10.2f  orders %5d\n",
				i+1, c.CustomerID, c.TotalSpent, c.Transactions)
		}
		b.WriteString("\n")
	}

	if len(summary.ByCategory) > 0 {
		b.WriteString("REVENUE BY CATEGORY\n")
		b.WriteString("-------------------\n")
		categories := make([]string, 0, len(summary.ByCategory))
		for name := range summary.ByCategory {
			categories = append(categories, name)
		}
		sort.Slice(categories, func(i, j int) bool {
			ci, cj := summary.ByCategory[categories[i]], summary.ByCategory[categories[j]]
			if ci.TotalRevenue != cj.TotalRevenue {
				return ci.TotalRevenue > cj.TotalRevenue
			}
			return categories[i] < categories[j]
		})
		for _, name := range categories {
			c := summary.ByCategory[name]
			fmt.Fprintf(&b, "%-24s revenue %10.2f  products %3d\n", name, c.TotalRevenue, c.UniqueProducts)
		}
		b.WriteString("\n")
	}

	if len(summary.RevenueByDate) > 0 {
		b.WriteString("REVENUE BY DATE\n")
		b.WriteString("---------------\n")
		dates := make([]string, 0, len(summary.RevenueByDate))
		for d := range summary.RevenueByDate {
			dates = append(dates, d)
		}
		sort.Strings(dates)
		for _, d := range dates {
			fmt.Fprintf(&b, "%s  %10.2f\n", d, summary.RevenueByDate[d])
		}
		b.WriteString("\n")
	}

	b.WriteString("DATA QUALITY\n")
	b.WriteString("------------\n")
	fmt.Fprintf(&b, "Rejected records: %d\n", len(rejected))
	if len(rejected) > 0 {
		counts := map[domain.RejectionReason]int{}
		for _, rec := range rejected {
			counts[rec.Reason]++
		}
		reasons := make([]string, 0, len(counts))
		for reason := range counts {
			reasons = append(reasons, string(reason))
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			fmt.Fprintf(&b, "  %-36s %d\n", reason, counts[domain.RejectionReason(reason)])
		}
	}
	b.WriteString("\n" + reportRule + "\n")

	return b.String()
}
