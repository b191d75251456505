package report

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rpattn/salespipe/internal/domain"
	"github.com/rpattn/salespipe/internal/ingestion"
	"github.com/rpattn/salespipe/internal/pipeline"
)

// Files lists the artifacts one report run produced.
type Files struct {
	CleanedCSV   string `json:"cleaned_csv"`
	RejectedCSV  string `json:"rejected_csv"`
	ReportJSON   string `json:"report_json"`
	AnalysisText string `json:"analysis_text"`
	Workbook     string `json:"workbook"`
}

// Service serializes pipeline results to the output directory. The pipeline
// itself knows nothing about formats; this is the report-sink collaborator.
type Service struct {
	outputDir  string
	sampleSize int
	now        func() time.Time
}

// Option customizes the report service.
type Option func(*Service)

// WithOutputDirectory overrides where artifacts are written.
func WithOutputDirectory(dir string) Option {
	return func(s *Service) {
		if strings.TrimSpace(dir) != "" {
			s.outputDir = filepath.Clean(dir)
		}
	}
}

// WithSampleSize bounds how many valid records the JSON report embeds.
func WithSampleSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.sampleSize = n
		}
	}
}

// NewService creates a report service writing to the given directory.
func NewService(opts ...Option) *Service {
	service := &Service{
		outputDir:  "output",
		sampleSize: 5,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// WriteAll emits every artifact for one run: the cleaned-records CSV, the
// rejected-records CSV, the JSON run report, the formatted text analysis,
// and the XLSX workbook.
func (s *Service) WriteAll(result pipeline.Result, stats ingestion.Stats, inputName string) (Files, error) {
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return Files{}, fmt.Errorf("create output directory: %w", err)
	}

	files := Files{
		CleanedCSV:   filepath.Join(s.outputDir, "cleaned_sales_data.csv"),
		RejectedCSV:  filepath.Join(s.outputDir, "rejected_records.csv"),
		ReportJSON:   filepath.Join(s.outputDir, "sales_report.json"),
		AnalysisText: filepath.Join(s.outputDir, "analysis_report.txt"),
		Workbook:     filepath.Join(s.outputDir, "sales_report.xlsx"),
	}

	if err := s.writeCleanedCSV(files.CleanedCSV, result.Enriched); err != nil {
		return files, err
	}
	if err := s.writeRejectedCSV(files.RejectedCSV, result.Rejected); err != nil {
		return files, err
	}
	if err := s.writeJSONReport(files.ReportJSON, result, stats, inputName); err != nil {
		return files, err
	}
	if err := s.writeTextReport(files.AnalysisText, result.Summary, result.Rejected); err != nil {
		return files, err
	}
	if err := s.writeWorkbook(files.Workbook, result); err != nil {
		return files, err
	}

	return files, nil
}

var cleanedHeader = []string{
	"transaction_id", "date", "product_id", "product_name",
	"quantity", "unit_price", "total", "customer_id", "region",
	"enrichment_status", "category",
}

func (s *Service) writeCleanedCSV(path string, records []domain.EnrichedRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create cleaned csv: %w", err)
	}
	defer func() { _ = f.Close() }()

	buffered := bufio.NewWriter(f)
	w := csv.NewWriter(buffered)

	if err := w.Write(cleanedHeader); err != nil {
		return fmt.Errorf("write cleaned header: %w", err)
	}
	for _, rec := range records {
		date := ""
		if rec.OccurredAt != nil {
			date = rec.OccurredAt.Format("2006-01-02")
		}
		category := ""
		if rec.Metadata != nil {
			category = rec.Metadata.Category
		}
		row := []string{
			rec.TransactionID,
			date,
			rec.ProductID,
			rec.ProductName,
			strconv.FormatInt(rec.Quantity, 10),
			formatAmount(rec.UnitPrice),
			formatAmount(rec.Total),
			rec.CustomerID,
			rec.Region,
			string(rec.Status),
			category,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write cleaned row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush cleaned csv: %w", err)
	}
	return buffered.Flush()
}

func (s *Service) writeRejectedCSV(path string, records []domain.RejectedRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create rejected csv: %w", err)
	}
	defer func() { _ = f.Close() }()

	buffered := bufio.NewWriter(f)
	w := csv.NewWriter(buffered)

	header := []string{"line", "transaction_id", "product_id", "quantity", "unit_price", "reason", "detail"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write rejected header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			strconv.Itoa(rec.Raw.Line),
			rec.Raw.TransactionID,
			rec.Raw.ProductID,
			rec.Raw.Quantity,
			rec.Raw.UnitPrice,
			string(rec.Reason),
			rec.Detail,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write rejected row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush rejected csv: %w", err)
	}
	return buffered.Flush()
}

// jsonReport is the comprehensive run report layout.
type jsonReport struct {
	GeneratedAt     time.Time               `json:"generated_at"`
	InputFile       string                  `json:"input_file"`
	RunID           string                  `json:"run_id"`
	CleaningSummary cleaningSummary         `json:"cleaning_summary"`
	Analysis        domain.AnalysisSummary  `json:"analysis"`
	SampleRecords   []domain.EnrichedRecord `json:"sample_valid_records"`
}

type cleaningSummary struct {
	TotalParsed    int `json:"total_parsed"`
	ParseSkipped   int `json:"parse_skipped"`
	InvalidRemoved int `json:"invalid_removed"`
	ValidKept      int `json:"valid_kept"`
}

func (s *Service) writeJSONReport(path string, result pipeline.Result, stats ingestion.Stats, inputName string) error {
	sample := result.Enriched
	if len(sample) > s.sampleSize {
		sample = sample[:s.sampleSize]
	}

	payload := jsonReport{
		GeneratedAt: s.now(),
		InputFile:   inputName,
		RunID:       result.RunID.String(),
		CleaningSummary: cleaningSummary{
			TotalParsed:    stats.Parsed,
			ParseSkipped:   stats.Skipped,
			InvalidRemoved: len(result.Rejected),
			ValidKept:      len(result.Enriched),
		},
		Analysis:      result.Summary,
		SampleRecords: sample,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json report: %w", err)
	}
	return nil
}

func (s *Service) writeTextReport(path string, summary domain.AnalysisSummary, rejected []domain.RejectedRecord) error {
	report := FormatAnalysis(summary, rejected)
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		return fmt.Errorf("write text report: %w", err)
	}
	return nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
