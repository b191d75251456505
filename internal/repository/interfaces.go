package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/rpattn/salespipe/internal/domain"
)

// RunLogRepository persists record-level issues raised during pipeline runs.
type RunLogRepository interface {
	Record(ctx context.Context, entry domain.RunLogEntry) error
	List(ctx context.Context, runID uuid.UUID, kind domain.RunLogKind, limit, offset int) ([]domain.RunLogEntry, error)
}

// ProductRepository serves product metadata from the in-house catalog table.
type ProductRepository interface {
	GetByProductID(ctx context.Context, productID string) (domain.ProductMetadata, error)
	Upsert(ctx context.Context, productID string, meta domain.ProductMetadata) error
}
