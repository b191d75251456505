package ingestion

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/rpattn/salespipe/internal/domain"
)

var (
	// ErrUnsupportedFormat is returned for file extensions the reader
	// does not understand.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrNoRecords is returned when a file contains no parseable rows.
	ErrNoRecords = errors.New("no records found in file")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}
)

// pipeFieldCount is the fixed layout of the legacy pipe-delimited feed:
// TransactionID|Date|ProductID|ProductName|Quantity|UnitPrice|CustomerID|Region
const pipeFieldCount = 8

// Stats summarizes what the reader saw while parsing a source.
type Stats struct {
	TotalRows int `json:"total_rows"`
	Parsed    int `json:"parsed"`
	Skipped   int `json:"skipped"`
}

// ReadFile opens and parses a sales file. The extension selects the format:
// .txt is the pipe-delimited feed, .csv and .xlsx are header-mapped tables.
func ReadFile(path string) ([]domain.RawRecord, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open input file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Parse(filepath.Base(path), f)
}

// Parse reads raw transaction records from data. Rows that cannot be split
// into fields at all (blank lines, wrong field counts) are skipped and
// counted; everything that splits becomes a RawRecord for the validator to
// judge. Parse never rejects on content, only on shape.
func Parse(fileName string, data io.Reader) ([]domain.RawRecord, Stats, error) {
	payload, err := io.ReadAll(data)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("read input: %w", err)
	}
	if len(payload) == 0 {
		return nil, Stats{}, ErrNoRecords
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".txt", ".dat":
		return parsePipeDelimited(payload)
	case ".csv":
		return parseCSV(payload)
	case ".xlsx":
		return parseExcel(payload)
	default:
		return nil, Stats{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func parsePipeDelimited(payload []byte) ([]domain.RawRecord, Stats, error) {
	scanner := bufio.NewScanner(bytes.NewReader(bytes.TrimPrefix(payload, byteOrderMark)))
	var records []domain.RawRecord
	var stats Stats

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if line == 1 {
			// Header row.
			continue
		}
		stats.TotalRows++
		if text == "" {
			stats.Skipped++
			continue
		}
		fields := strings.Split(text, "|")
		if len(fields) != pipeFieldCount {
			stats.Skipped++
			continue
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		records = append(records, domain.RawRecord{
			TransactionID: fields[0],
			Date:          fields[1],
			ProductID:     fields[2],
			ProductName:   fields[3],
			Quantity:      fields[4],
			UnitPrice:     fields[5],
			CustomerID:    fields[6],
			Region:        fields[7],
			Line:          line,
		})
		stats.Parsed++
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("scan input: %w", err)
	}
	if stats.Parsed == 0 {
		return nil, stats, ErrNoRecords
	}
	return records, stats, nil
}

func parseCSV(payload []byte) ([]domain.RawRecord, Stats, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	rows, err := csvReader.ReadAll()
	if err != nil {
		return nil, Stats{}, fmt.Errorf("read csv: %w", err)
	}
	return mapRows(rows)
}

func parseExcel(payload []byte) ([]domain.RawRecord, Stats, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, Stats{}, errors.New("excel file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, Stats{}, fmt.Errorf("read rows from xlsx: %w", err)
	}
	return mapRows(rows)
}

// mapRows converts header-addressed tabular rows into raw records. Header
// names are normalized so "Unit Price", "unit_price", and "UnitPrice" all
// map to the same field.
func mapRows(rows [][]string) ([]domain.RawRecord, Stats, error) {
	var stats Stats
	headerIndex := -1
	var columns map[string]int

	for idx, row := range rows {
		if isEmptyRow(row) {
			continue
		}
		columns = mapColumns(row)
		headerIndex = idx
		break
	}
	if headerIndex < 0 {
		return nil, stats, ErrNoRecords
	}

	var records []domain.RawRecord
	for idx := headerIndex + 1; idx < len(rows); idx++ {
		row := rows[idx]
		stats.TotalRows++
		if isEmptyRow(row) {
			stats.Skipped++
			continue
		}
		records = append(records, domain.RawRecord{
			TransactionID: cell(row, columns, "transaction_id"),
			Date:          cell(row, columns, "date"),
			ProductID:     cell(row, columns, "product_id"),
			ProductName:   cell(row, columns, "product_name"),
			Quantity:      cell(row, columns, "quantity"),
			UnitPrice:     cell(row, columns, "unit_price"),
			CustomerID:    cell(row, columns, "customer_id"),
			Region:        cell(row, columns, "region"),
			Line:          idx + 1,
		})
		stats.Parsed++
	}
	if stats.Parsed == 0 {
		return nil, stats, ErrNoRecords
	}
	return records, stats, nil
}

func mapColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		if key := normalizeHeader(name); key != "" {
			if _, exists := columns[key]; !exists {
				columns[key] = i
			}
		}
	}
	return columns
}

// normalizeHeader lowercases a header and inserts underscores at case
// boundaries so "UnitPrice" and "unit price" both become "unit_price".
func normalizeHeader(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	var b strings.Builder
	for i, r := range name {
		switch {
		case r == ' ' || r == '-' || r == '.':
			b.WriteRune('_')
		case r >= 'A' && r <= 'Z':
			if i > 0 && name[i-1] >= 'a' && name[i-1] <= 'z' {
				b.WriteRune('_')
			}
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "_")
}

func cell(row []string, columns map[string]int, key string) string {
	idx, ok := columns[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
