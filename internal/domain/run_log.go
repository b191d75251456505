package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunLogKind classifies a run-log entry.
type RunLogKind string

const (
	RunLogRejection     RunLogKind = "rejection"
	RunLogLookupFailure RunLogKind = "lookup_failure"
)

// RunLogEntry captures a record-level issue that occurred during a pipeline
// run: either a validation rejection or a catalog lookup failure.
type RunLogEntry struct {
	ID            uuid.UUID  `json:"id"`
	RunID         uuid.UUID  `json:"run_id"`
	Kind          RunLogKind `json:"kind"`
	TransactionID string     `json:"transaction_id,omitempty"`
	ProductID     string     `json:"product_id,omitempty"`
	Reason        string     `json:"reason"`
	Detail        string     `json:"detail,omitempty"`
	Line          *int       `json:"line,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
