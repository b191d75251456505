package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/salespipe/internal/catalog"
	"github.com/rpattn/salespipe/internal/domain"
	"github.com/rpattn/salespipe/internal/logger"
)

type productRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository wires the products table as a catalog source.
func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &productRepository{pool: pool}
}

func (r *productRepository) GetByProductID(ctx context.Context, productID string) (domain.ProductMetadata, error) {
	if r.pool == nil {
		return domain.ProductMetadata{}, fmt.Errorf("product repository not initialized")
	}

	var meta domain.ProductMetadata
	err := r.pool.QueryRow(
		ctx,
		`SELECT catalog_id, title, category, list_price, description, rating
		 FROM products
		 WHERE product_id = $1`,
		productID,
	).Scan(&meta.CatalogID, &meta.Title, &meta.Category, &meta.ListPrice, &meta.Description, &meta.Rating)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ProductMetadata{}, fmt.Errorf("%w: %s", catalog.ErrNotFound, productID)
		}
		return domain.ProductMetadata{}, fmt.Errorf("failed to load product %s: %w", productID, err)
	}

	return meta, nil
}

func (r *productRepository) Upsert(ctx context.Context, productID string, meta domain.ProductMetadata) error {
	if r.pool == nil {
		return fmt.Errorf("product repository not initialized")
	}

	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO products (product_id, catalog_id, title, category, list_price, description, rating)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (product_id) DO UPDATE SET
		   catalog_id = EXCLUDED.catalog_id,
		   title = EXCLUDED.title,
		   category = EXCLUDED.category,
		   list_price = EXCLUDED.list_price,
		   description = EXCLUDED.description,
		   rating = EXCLUDED.rating,
		   updated_at = now()`,
		productID,
		meta.CatalogID,
		meta.Title,
		meta.Category,
		meta.ListPrice,
		meta.Description,
		meta.Rating,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", productID, err)
	}

	return nil
}

// productLookup adapts a ProductRepository to the catalog.Lookup capability.
type productLookup struct {
	repo ProductRepository
}

// NewProductLookup exposes the products table as a lookup capability so the
// pipeline can enrich from the in-house catalog instead of the external API.
func NewProductLookup(repo ProductRepository) catalog.Lookup {
	return &productLookup{repo: repo}
}

func (l *productLookup) Product(ctx context.Context, productID string) (domain.ProductMetadata, error) {
	return l.repo.GetByProductID(ctx, productID)
}

// writeThroughLookup serves products from the local table and falls back to
// next on a miss, persisting what it fetched so later runs hit locally.
type writeThroughLookup struct {
	repo ProductRepository
	next catalog.Lookup
}

// NewWriteThroughLookup layers the products table in front of another lookup.
func NewWriteThroughLookup(repo ProductRepository, next catalog.Lookup) catalog.Lookup {
	return &writeThroughLookup{repo: repo, next: next}
}

func (l *writeThroughLookup) Product(ctx context.Context, productID string) (domain.ProductMetadata, error) {
	meta, err := l.repo.GetByProductID(ctx, productID)
	if err == nil {
		return meta, nil
	}
	if !errors.Is(err, catalog.ErrNotFound) {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("product_id", productID).Msg("local catalog unavailable, trying upstream")
	}

	meta, err = l.next.Product(ctx, productID)
	if err != nil {
		return domain.ProductMetadata{}, err
	}
	if upErr := l.repo.Upsert(ctx, productID, meta); upErr != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(upErr).Str("product_id", productID).Msg("failed to persist product metadata")
	}
	return meta, nil
}
