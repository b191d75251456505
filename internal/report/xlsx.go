package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/rpattn/salespipe/internal/pipeline"
)

const (
	sheetSummary      = "Summary"
	sheetTransactions = "Transactions"
	sheetRejected     = "Rejected"
)

func (s *Service) writeWorkbook(path string, result pipeline.Result) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}

	summary := result.Summary
	summaryRows := [][]interface{}{
		{"Run ID", result.RunID.String()},
		{"Generated", summary.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Transactions", summary.RecordCount},
		{"Total revenue", summary.TotalRevenue},
		{"Total units", summary.TotalQuantity},
		{"Average unit price", summary.AverageUnitPrice},
		{"Unique customers", summary.UniqueCustomers},
		{"Unique products", summary.UniqueProducts},
		{"Enriched", summary.EnrichedCount},
		{"Lookup failed", summary.LookupFailedCount},
		{"Lookup skipped", summary.LookupSkippedCount},
		{"Rejected", len(result.Rejected)},
	}
	for i, row := range summaryRows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("summary cell: %w", err)
		}
		if err := f.SetSheetRow(sheetSummary, cell, &row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}

	if _, err := f.NewSheet(sheetTransactions); err != nil {
		return fmt.Errorf("create transactions sheet: %w", err)
	}
	txHeader := []interface{}{
		"Transaction ID", "Date", "Product ID", "Product Name",
		"Quantity", "Unit Price", "Total", "Customer ID", "Region",
		"Status", "Category",
	}
	if err := f.SetSheetRow(sheetTransactions, "A1", &txHeader); err != nil {
		return fmt.Errorf("write transactions header: %w", err)
	}
	for i, rec := range result.Enriched {
		date := ""
		if rec.OccurredAt != nil {
			date = rec.OccurredAt.Format("2006-01-02")
		}
		category := ""
		if rec.Metadata != nil {
			category = rec.Metadata.Category
		}
		row := []interface{}{
			rec.TransactionID, date, rec.ProductID, rec.ProductName,
			rec.Quantity, rec.UnitPrice, rec.Total, rec.CustomerID, rec.Region,
			string(rec.Status), category,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("transactions cell: %w", err)
		}
		if err := f.SetSheetRow(sheetTransactions, cell, &row); err != nil {
			return fmt.Errorf("write transaction row: %w", err)
		}
	}

	if _, err := f.NewSheet(sheetRejected); err != nil {
		return fmt.Errorf("create rejected sheet: %w", err)
	}
	rejHeader := []interface{}{"Line", "Transaction ID", "Product ID", "Reason", "Detail"}
	if err := f.SetSheetRow(sheetRejected, "A1", &rejHeader); err != nil {
		return fmt.Errorf("write rejected header: %w", err)
	}
	for i, rec := range result.Rejected {
		row := []interface{}{
			rec.Raw.Line, rec.Raw.TransactionID, rec.Raw.ProductID,
			string(rec.Reason), rec.Detail,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("rejected cell: %w", err)
		}
		if err := f.SetSheetRow(sheetRejected, cell, &row); err != nil {
			return fmt.Errorf("write rejected row: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
