package domain

import (
	"time"
)

// RawRecord is one transaction exactly as it arrived from an input source.
// Every field is untrusted text; nothing is guaranteed to parse.
type RawRecord struct {
	TransactionID string `json:"transaction_id"`
	Date          string `json:"date"`
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	Quantity      string `json:"quantity"`
	UnitPrice     string `json:"unit_price"`
	CustomerID    string `json:"customer_id"`
	Region        string `json:"region"`

	// Line is the 1-based position in the source (file line or message
	// offset), kept for diagnostics only.
	Line int `json:"line,omitempty"`
}

// ValidatedRecord is a raw record that passed every rejection rule and had
// its fields normalized to typed values. Instances are only produced by the
// validator and are never mutated afterwards.
type ValidatedRecord struct {
	TransactionID string  `json:"transaction_id"`
	ProductID     string  `json:"product_id"`
	ProductName   string  `json:"product_name"`
	Quantity      int64   `json:"quantity"`
	UnitPrice     float64 `json:"unit_price"`
	Total         float64 `json:"total"`
	CustomerID    string  `json:"customer_id"`
	Region        string  `json:"region"`

	// OccurredAt is nil when the source date was missing or unparseable.
	// A bad date normalizes to unknown; it never rejects the record.
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}

// EnrichmentStatus reports what happened when product metadata was looked up
// for a record.
type EnrichmentStatus string

const (
	EnrichmentStatusEnriched EnrichmentStatus = "ENRICHED"
	EnrichmentStatusFailed   EnrichmentStatus = "LOOKUP_FAILED"
	EnrichmentStatusSkipped  EnrichmentStatus = "LOOKUP_SKIPPED"
)

// ProductMetadata is the catalog information attached to a record during
// enrichment.
type ProductMetadata struct {
	CatalogID   string  `json:"catalog_id"`
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	ListPrice   float64 `json:"list_price"`
	Description string  `json:"description,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
}

// EnrichedRecord is a validated record plus the outcome of the catalog
// lookup. The validated fields are carried through untouched; enrichment only
// adds the metadata block and the status.
type EnrichedRecord struct {
	ValidatedRecord
	Status   EnrichmentStatus `json:"enrichment_status"`
	Metadata *ProductMetadata `json:"product_metadata,omitempty"`
}

// RejectionReason identifies the first validation rule a record violated.
type RejectionReason string

const (
	RejectDuplicateID        RejectionReason = "DUPLICATE_ID"
	RejectMissingTransaction RejectionReason = "MISSING_OR_EMPTY_TRANSACTION_ID"
	RejectMissingProduct     RejectionReason = "MISSING_OR_EMPTY_PRODUCT_ID"
	RejectInvalidQuantity    RejectionReason = "INVALID_QUANTITY"
	RejectInvalidPrice       RejectionReason = "INVALID_PRICE"
)

// RejectedRecord pairs the original raw record with the single reason it was
// rejected. Exactly one reason is recorded, determined by rule order.
type RejectedRecord struct {
	Raw    RawRecord       `json:"raw"`
	Reason RejectionReason `json:"reason"`
	Detail string          `json:"detail,omitempty"`
}

// LookupFailureKind distinguishes why a catalog lookup failed. All kinds
// collapse to EnrichmentStatusFailed on the record itself but stay separate
// in logs and run-log entries.
type LookupFailureKind string

const (
	LookupNotFound LookupFailureKind = "LOOKUP_NOT_FOUND"
	LookupTimeout  LookupFailureKind = "LOOKUP_TIMEOUT"
	LookupError    LookupFailureKind = "LOOKUP_ERROR"
)
