package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/trisearch/internal/models"
)

// MemoryStorage is a map-backed Storage for tests and small fixture catalogs.
// Fixtures are loaded with AddTag, AddAssociation and AddProduct before queries run.
type MemoryStorage struct {
	mu           sync.RWMutex
	tags         map[string]int64
	associations map[int64][]models.TagWeight
	products     map[int64]*models.Product
	failure      error
	closed       bool
	lookups      int
}

// NewMemoryStorage returns an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		tags:         make(map[string]int64),
		associations: make(map[int64][]models.TagWeight),
		products:     make(map[int64]*models.Product),
	}
}

// AddTag registers tag under id.
func (m *MemoryStorage) AddTag(id int64, tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags[tag] = id
}

// AddAssociation appends a (product, weight) row to the tag. Repeated calls for the same pair add duplicate rows.
func (m *MemoryStorage) AddAssociation(tagID, productID, weight int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.associations[tagID] = append(m.associations[tagID], models.TagWeight{ProductID: productID, Weight: weight})
}

// AddProduct stores a copy of p.
func (m *MemoryStorage) AddProduct(p models.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = &p
}

// FailWith makes every subsequent call fail with err wrapped in ErrUnavailable. Pass nil to recover.
func (m *MemoryStorage) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failure = err
}

// LookupCount returns how many single or batch tag lookups reached the store.
func (m *MemoryStorage) LookupCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookups
}

func (m *MemoryStorage) check(op string) error {
	if m.closed {
		return unavailable(op, fmt.Errorf("store is closed"))
	}
	if m.failure != nil {
		return unavailable(op, m.failure)
	}
	return nil
}

// LookupTagID returns the id registered for tag.
func (m *MemoryStorage) LookupTagID(ctx context.Context, tag string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(fmt.Sprintf("lookup tag %q", tag)); err != nil {
		return 0, false, err
	}
	m.lookups++
	id, ok := m.tags[tag]
	return id, ok, nil
}

// FetchTagProducts returns a copy of the tag's association rows.
func (m *MemoryStorage) FetchTagProducts(ctx context.Context, tagID int64) ([]models.TagWeight, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(fmt.Sprintf("fetch products for tag %d", tagID)); err != nil {
		return nil, err
	}
	return append([]models.TagWeight(nil), m.associations[tagID]...), nil
}

// LookupTagIDs resolves many tags at once.
func (m *MemoryStorage) LookupTagIDs(ctx context.Context, tags []string) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("lookup tags"); err != nil {
		return nil, err
	}
	m.lookups++
	out := make(map[string]int64, len(tags))
	for _, t := range tags {
		if id, ok := m.tags[t]; ok {
			out[t] = id
		}
	}
	return out, nil
}

// FetchTagProductsBatch returns the association rows of every given tag.
func (m *MemoryStorage) FetchTagProductsBatch(ctx context.Context, tagIDs []int64) (map[int64][]models.TagWeight, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check("fetch tag associations"); err != nil {
		return nil, err
	}
	out := make(map[int64][]models.TagWeight, len(tagIDs))
	for _, id := range tagIDs {
		if rows, ok := m.associations[id]; ok {
			out[id] = append([]models.TagWeight(nil), rows...)
		}
	}
	return out, nil
}

// GetProduct returns a copy of the product with the given id.
func (m *MemoryStorage) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(fmt.Sprintf("get product %d", id)); err != nil {
		return nil, err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrProductNotFound, id)
	}
	cp := *p
	return &cp, nil
}

// GetProducts returns copies of the products that exist among ids.
func (m *MemoryStorage) GetProducts(ctx context.Context, ids []int64) (map[int64]*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check("get products"); err != nil {
		return nil, err
	}
	out := make(map[int64]*models.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

// Stats counts fixture rows.
func (m *MemoryStorage) Stats(ctx context.Context) (*models.IndexStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check("count index rows"); err != nil {
		return nil, err
	}
	st := &models.IndexStats{
		Products: int64(len(m.products)),
		Tags:     int64(len(m.tags)),
	}
	for _, rows := range m.associations {
		st.Associations += int64(len(rows))
	}
	return st, nil
}

// Close marks the store closed; later calls fail with ErrUnavailable.
func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
