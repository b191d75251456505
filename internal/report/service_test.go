package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/salespipe/internal/domain"
	"github.com/rpattn/salespipe/internal/ingestion"
	"github.com/rpattn/salespipe/internal/pipeline"
)

func sampleResult() pipeline.Result {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	return pipeline.Result{
		RunID: uuid.New(),
		Enriched: []domain.EnrichedRecord{
			{
				ValidatedRecord: domain.ValidatedRecord{
					TransactionID: "T001",
					ProductID:     "P100",
					ProductName:   "Wireless Mouse",
					Quantity:      2,
					UnitPrice:     19.99,
					Total:         39.98,
					CustomerID:    "C042",
					Region:        "North",
					OccurredAt:    &day,
				},
				Status:   domain.EnrichmentStatusEnriched,
				Metadata: &domain.ProductMetadata{CatalogID: "1", Category: "electronics"},
			},
			{
				ValidatedRecord: domain.ValidatedRecord{
					TransactionID: "T002",
					ProductID:     "P200",
					ProductName:   "USB Cable",
					Quantity:      1,
					UnitPrice:     5.50,
					Total:         5.50,
					CustomerID:    "C043",
					Region:        "South",
				},
				Status: domain.EnrichmentStatusFailed,
			},
		},
		Rejected: []domain.RejectedRecord{
			{
				Raw:    domain.RawRecord{TransactionID: "T003", ProductID: "P100", Quantity: "-1", Line: 4},
				Reason: domain.RejectInvalidQuantity,
				Detail: "quantity -1 is not strictly positive",
			},
		},
		Summary: domain.AnalysisSummary{
			RecordCount:      2,
			TotalRevenue:     45.48,
			TotalQuantity:    3,
			AverageUnitPrice: 15.16,
			UniqueCustomers:  2,
			UniqueProducts:   2,
			ByProduct: map[string]domain.ProductPerformance{
				"P100": {ProductID: "P100", ProductName: "Wireless Mouse", TotalQuantity: 2, TotalRevenue: 39.98, Transactions: 1},
				"P200": {ProductID: "P200", ProductName: "USB Cable", TotalQuantity: 1, TotalRevenue: 5.50, Transactions: 1},
			},
			ByRegion: map[string]domain.RegionPerformance{
				"North": {Region: "North", TotalRevenue: 39.98, TotalQuantity: 2, Transactions: 1},
				"South": {Region: "South", TotalRevenue: 5.50, TotalQuantity: 1, Transactions: 1},
			},
			ByCategory: map[string]domain.CategoryPerformance{
				"electronics": {Category: "electronics", TotalRevenue: 39.98, TotalQuantity: 2, UniqueProducts: 1},
				"Unknown":     {Category: "Unknown", TotalRevenue: 5.50, TotalQuantity: 1, UniqueProducts: 1},
			},
			TopProducts: []domain.ProductPerformance{
				{ProductID: "P100", TotalRevenue: 39.98, TotalQuantity: 2, Transactions: 1},
			},
			TopCustomers: []domain.CustomerSpend{
				{CustomerID: "C042", TotalSpent: 39.98, Transactions: 1},
			},
			RevenueByDate:     map[string]float64{"2024-03-15": 39.98},
			EnrichedCount:     1,
			LookupFailedCount: 1,
			GeneratedAt:       time.Date(2024, 3, 16, 9, 0, 0, 0, time.UTC),
		},
		Duration: 120 * time.Millisecond,
	}
}

func TestWriteAllProducesEveryArtifact(t *testing.T) {
	dir := t.TempDir()
	service := NewService(WithOutputDirectory(dir))

	result := sampleResult()
	stats := ingestion.Stats{TotalRows: 3, Parsed: 3}

	files, err := service.WriteAll(result, stats, "sales.txt")
	if err != nil {
		t.Fatalf("write all returned error: %v", err)
	}

	for name, path := range map[string]string{
		"cleaned csv":  files.CleanedCSV,
		"rejected csv": files.RejectedCSV,
		"json report":  files.ReportJSON,
		"text report":  files.AnalysisText,
		"workbook":     files.Workbook,
	} {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("%s missing: %v", name, err)
		}
		if info.Size() == 0 {
			t.Fatalf("%s is empty", name)
		}
		if filepath.Dir(path) != dir {
			t.Fatalf("%s written outside output dir: %s", name, path)
		}
	}
}

func TestCleanedCSVContents(t *testing.T) {
	dir := t.TempDir()
	service := NewService(WithOutputDirectory(dir))

	files, err := service.WriteAll(sampleResult(), ingestion.Stats{}, "sales.txt")
	if err != nil {
		t.Fatalf("write all returned error: %v", err)
	}

	f, err := os.Open(files.CleanedCSV)
	if err != nil {
		t.Fatalf("open cleaned csv: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read cleaned csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "transaction_id" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[1][0] != "T001" || rows[1][1] != "2024-03-15" || rows[1][6] != "39.98" {
		t.Fatalf("unexpected first row: %v", rows[1])
	}
	if rows[2][1] != "" {
		t.Fatalf("unknown date must serialize empty, got %q", rows[2][1])
	}
	if rows[2][9] != string(domain.EnrichmentStatusFailed) {
		t.Fatalf("expected LOOKUP_FAILED status, got %q", rows[2][9])
	}
}

func TestJSONReportContents(t *testing.T) {
	dir := t.TempDir()
	service := NewService(WithOutputDirectory(dir), WithSampleSize(1))

	result := sampleResult()
	files, err := service.WriteAll(result, ingestion.Stats{TotalRows: 4, Parsed: 3, Skipped: 1}, "sales.txt")
	if err != nil {
		t.Fatalf("write all returned error: %v", err)
	}

	data, err := os.ReadFile(files.ReportJSON)
	if err != nil {
		t.Fatalf("read json report: %v", err)
	}

	var payload struct {
		InputFile       string `json:"input_file"`
		RunID           string `json:"run_id"`
		CleaningSummary struct {
			TotalParsed    int `json:"total_parsed"`
			ParseSkipped   int `json:"parse_skipped"`
			InvalidRemoved int `json:"invalid_removed"`
			ValidKept      int `json:"valid_kept"`
		} `json:"cleaning_summary"`
		Analysis struct {
			TotalRevenue float64 `json:"total_revenue"`
		} `json:"analysis"`
		SampleRecords []json.RawMessage `json:"sample_valid_records"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("unmarshal json report: %v", err)
	}

	if payload.InputFile != "sales.txt" {
		t.Fatalf("unexpected input file: %s", payload.InputFile)
	}
	if payload.RunID != result.RunID.String() {
		t.Fatalf("unexpected run id: %s", payload.RunID)
	}
	if payload.CleaningSummary.TotalParsed != 3 || payload.CleaningSummary.InvalidRemoved != 1 || payload.CleaningSummary.ValidKept != 2 {
		t.Fatalf("unexpected cleaning summary: %+v", payload.CleaningSummary)
	}
	if payload.Analysis.TotalRevenue != 45.48 {
		t.Fatalf("unexpected analysis revenue: %v", payload.Analysis.TotalRevenue)
	}
	if len(payload.SampleRecords) != 1 {
		t.Fatalf("sample size not honored: %d", len(payload.SampleRecords))
	}
}

func TestFormatAnalysis(t *testing.T) {
	result := sampleResult()
	text := FormatAnalysis(result.Summary, result.Rejected)

	for _, want := range []string{
		"SALES DATA ANALYSIS REPORT",
		"Transactions analyzed: 2",
		"Total revenue:         45.48",
		"TOP PRODUCTS BY REVENUE",
		"P100",
		"REVENUE BY REGION",
		"North",
		"REVENUE BY CATEGORY",
		"electronics",
		"Rejected records: 1",
		string(domain.RejectInvalidQuantity),
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("report missing %q:\n%s", want, text)
		}
	}
}
