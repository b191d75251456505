package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/salespipe/internal/domain"
)

type runLogRepository struct {
	pool *pgxpool.Pool
}

// NewRunLogRepository wires a repository backed by pgxpool.
func NewRunLogRepository(pool *pgxpool.Pool) RunLogRepository {
	return &runLogRepository{pool: pool}
}

func (r *runLogRepository) Record(ctx context.Context, entry domain.RunLogEntry) error {
	if r.pool == nil {
		return fmt.Errorf("run log repository not initialized")
	}

	var line any
	if entry.Line != nil {
		line = *entry.Line
	}

	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO run_logs (run_id, kind, transaction_id, product_id, reason, detail, line)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.RunID,
		string(entry.Kind),
		entry.TransactionID,
		entry.ProductID,
		entry.Reason,
		entry.Detail,
		line,
	)
	if err != nil {
		return fmt.Errorf("failed to record run log entry: %w", err)
	}

	return nil
}

func (r *runLogRepository) List(ctx context.Context, runID uuid.UUID, kind domain.RunLogKind, limit, offset int) ([]domain.RunLogEntry, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("run log repository not initialized")
	}

	if limit <= 0 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT id, run_id, kind, transaction_id, product_id, reason, detail, line, created_at
		  FROM run_logs
		  WHERE run_id = $1`
	args := []any{runID}
	if kind != "" {
		query += ` AND kind = $2 ORDER BY created_at LIMIT $3 OFFSET $4`
		args = append(args, string(kind), limit, offset)
	} else {
		query += ` ORDER BY created_at LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list run log entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.RunLogEntry
	for rows.Next() {
		var entry domain.RunLogEntry
		var kindRaw string
		var line *int
		if err := rows.Scan(
			&entry.ID,
			&entry.RunID,
			&kindRaw,
			&entry.TransactionID,
			&entry.ProductID,
			&entry.Reason,
			&entry.Detail,
			&line,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run log entry: %w", err)
		}
		entry.Kind = domain.RunLogKind(kindRaw)
		entry.Line = line
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate run log entries: %w", err)
	}

	return entries, nil
}
