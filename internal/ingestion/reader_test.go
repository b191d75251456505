package ingestion

import (
	"errors"
	"strings"
	"testing"
)

const pipeSample = `TransactionID|Date|ProductID|ProductName|Quantity|UnitPrice|CustomerID|Region
T001|2024-03-15|P100|Wireless Mouse|2|19.99|C042|North
T002|2024-03-16|P200|USB Cable|1|5.50|C043|South

T003|2024-03-17|P100|Wireless Mouse|3
T004|2024-03-18|P300|Keyboard|1|49.00|C044|East
`

func TestParsePipeDelimited(t *testing.T) {
	records, stats, err := Parse("sales.txt", strings.NewReader(pipeSample))
	if err != nil {
		t.Fatalf("parse returned error: %v", err)
	}

	if stats.Parsed != 3 {
		t.Fatalf("expected 3 parsed rows, got %d", stats.Parsed)
	}
	if stats.Skipped != 2 {
		t.Fatalf("expected 2 skipped rows (blank + short), got %d", stats.Skipped)
	}
	if stats.TotalRows != 5 {
		t.Fatalf("expected 5 data rows, got %d", stats.TotalRows)
	}

	first := records[0]
	if first.TransactionID != "T001" || first.ProductID != "P100" {
		t.Fatalf("unexpected first record: %+v", first)
	}
	if first.Quantity != "2" || first.UnitPrice != "19.99" {
		t.Fatalf("numeric fields must stay raw text: %+v", first)
	}
	if first.Line != 2 {
		t.Fatalf("expected line 2, got %d", first.Line)
	}
	if records[2].TransactionID != "T004" {
		t.Fatalf("short row must be skipped, got %+v", records[2])
	}
}

func TestParseCSVHeaderVariants(t *testing.T) {
	data := "Transaction ID,Date,Product ID,Product Name,Quantity,UnitPrice,Customer ID,Region\n" +
		"T001,2024-03-15,P100,Wireless Mouse,2,19.99,C042,North\n"

	records, stats, err := Parse("sales.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("parse returned error: %v", err)
	}
	if stats.Parsed != 1 {
		t.Fatalf("expected 1 parsed row, got %d", stats.Parsed)
	}
	rec := records[0]
	if rec.TransactionID != "T001" {
		t.Fatalf("header with spaces not mapped: %+v", rec)
	}
	if rec.UnitPrice != "19.99" {
		t.Fatalf("camel-case header not mapped: %+v", rec)
	}
}

func TestParseCSVWithBOM(t *testing.T) {
	data := "\xEF\xBB\xBFtransaction_id,date,product_id,product_name,quantity,unit_price,customer_id,region\n" +
		"T001,2024-03-15,P100,Mouse,1,9.99,C1,North\n"

	records, _, err := Parse("sales.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("parse returned error: %v", err)
	}
	if records[0].TransactionID != "T001" {
		t.Fatalf("BOM broke header mapping: %+v", records[0])
	}
}

func TestParseUnsupportedExtension(t *testing.T) {
	_, _, err := Parse("sales.pdf", strings.NewReader("data"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseEmptyInput(t *testing.T) {
	_, _, err := Parse("sales.txt", strings.NewReader(""))
	if !errors.Is(err, ErrNoRecords) {
		t.Fatalf("expected ErrNoRecords, got %v", err)
	}
}

func TestParseHeaderOnly(t *testing.T) {
	data := "TransactionID|Date|ProductID|ProductName|Quantity|UnitPrice|CustomerID|Region\n"
	_, _, err := Parse("sales.txt", strings.NewReader(data))
	if !errors.Is(err, ErrNoRecords) {
		t.Fatalf("expected ErrNoRecords, got %v", err)
	}
}

func TestNormalizeHeader(t *testing.T) {
	cases := map[string]string{
		"TransactionID":  "transaction_id",
		"Transaction ID": "transaction_id",
		"unit_price":     "unit_price",
		"UnitPrice":      "unit_price",
		"Unit-Price":     "unit_price",
		"  Region  ":     "region",
	}
	for in, want := range cases {
		if got := normalizeHeader(in); got != want {
			t.Fatalf("normalizeHeader(%q) = %q, want %q", in, got, want)
		}
	}
}
