package pipeline

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rpattn/salespipe/internal/domain"
)

// dateLayouts are the timestamp formats accepted during normalization.
// Anything else degrades to the unknown marker instead of rejecting.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"02/01/2006",
}

// SeenIDs tracks transaction ids already accepted within one run. It is
// owned by the orchestrator so Validate stays a pure function of
// (record, ids seen so far).
type SeenIDs map[string]struct{}

// Has reports whether id was already accepted.
func (s SeenIDs) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add marks id as accepted.
func (s SeenIDs) Add(id string) {
	s[id] = struct{}{}
}

// Validate cleans and checks one raw record. It returns either a validated
// record or a rejection, never both. Rules run in a fixed order and the
// first failure determines the rejection reason; later rules are not
// evaluated. A missing or unparseable date is a normalization (unknown
// timestamp), not a rejection.
func Validate(raw domain.RawRecord, seen SeenIDs) (domain.ValidatedRecord, *domain.RejectedRecord) {
	txnID := strings.TrimSpace(raw.TransactionID)
	if txnID == "" {
		return domain.ValidatedRecord{}, reject(raw, domain.RejectMissingTransaction, "transaction id is empty")
	}
	if seen.Has(txnID) {
		return domain.ValidatedRecord{}, reject(raw, domain.RejectDuplicateID, fmt.Sprintf("transaction id %s already seen", txnID))
	}

	productID := strings.TrimSpace(raw.ProductID)
	if productID == "" {
		return domain.ValidatedRecord{}, reject(raw, domain.RejectMissingProduct, "product id is empty")
	}

	quantity, err := parseQuantity(raw.Quantity)
	if err != nil {
		return domain.ValidatedRecord{}, reject(raw, domain.RejectInvalidQuantity, err.Error())
	}

	unitPrice, err := parseUnitPrice(raw.UnitPrice)
	if err != nil {
		return domain.ValidatedRecord{}, reject(raw, domain.RejectInvalidPrice, err.Error())
	}

	return domain.ValidatedRecord{
		TransactionID: txnID,
		ProductID:     productID,
		ProductName:   cleanProductName(raw.ProductName),
		Quantity:      quantity,
		UnitPrice:     unitPrice,
		Total:         float64(quantity) * unitPrice,
		CustomerID:    strings.TrimSpace(raw.CustomerID),
		Region:        strings.TrimSpace(raw.Region),
		OccurredAt:    parseDate(raw.Date),
	}, nil
}

func reject(raw domain.RawRecord, reason domain.RejectionReason, detail string) *domain.RejectedRecord {
	return &domain.RejectedRecord{Raw: raw, Reason: reason, Detail: detail}
}

// cleanNumeric strips thousands separators and surrounding whitespace so
// values like "1,200.50" parse.
func cleanNumeric(value string) string {
	return strings.TrimSpace(strings.ReplaceAll(value, ",", ""))
}

func parseQuantity(raw string) (int64, error) {
	cleaned := cleanNumeric(raw)
	if cleaned == "" {
		return 0, fmt.Errorf("quantity is missing")
	}
	quantity, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		// Accept float representations that are whole numbers.
		f, ferr := strconv.ParseFloat(cleaned, 64)
		if ferr != nil || math.Mod(f, 1) != 0 {
			return 0, fmt.Errorf("quantity %q is not an integer", raw)
		}
		quantity = int64(f)
	}
	if quantity <= 0 {
		return 0, fmt.Errorf("quantity %d is not strictly positive", quantity)
	}
	return quantity, nil
}

func parseUnitPrice(raw string) (float64, error) {
	cleaned := cleanNumeric(raw)
	if cleaned == "" {
		return 0, fmt.Errorf("unit price is missing")
	}
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("unit price %q is not numeric", raw)
	}
	if price < 0 {
		return 0, fmt.Errorf("unit price %v is negative", price)
	}
	return price, nil
}

// cleanProductName drops embedded commas (an artifact of the delimited
// source format) and collapses repeated whitespace.
func cleanProductName(name string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(name, ",", " ")), " ")
}

func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return &ts
		}
	}
	return nil
}
