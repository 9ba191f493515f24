// Package storage defines the read-only lookup interface over the trigram index and product catalog.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/trisearch/internal/models"
)

var (
	// ErrUnavailable wraps every infrastructural failure of the backing store
	// (connection lost, malformed query, closed handle). Callers must not retry partially.
	ErrUnavailable = errors.New("storage unavailable")
	// ErrProductNotFound is returned by GetProduct when no product has the given id.
	ErrProductNotFound = errors.New("product not found")
)

// Storage is the lookup surface the search engine needs from the index.
type Storage interface {
	// Trigram index
	LookupTagID(ctx context.Context, tag string) (int64, bool, error)
	FetchTagProducts(ctx context.Context, tagID int64) ([]models.TagWeight, error)

	// Batch operations
	LookupTagIDs(ctx context.Context, tags []string) (map[string]int64, error)
	FetchTagProductsBatch(ctx context.Context, tagIDs []int64) (map[int64][]models.TagWeight, error)

	// Catalog
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	GetProducts(ctx context.Context, ids []int64) (map[int64]*models.Product, error)

	// Stats
	Stats(ctx context.Context) (*models.IndexStats, error)

	Close() error
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
