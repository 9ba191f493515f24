package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/trisearch/internal/config"
	"github.com/hyperjump/trisearch/internal/models"
	"github.com/hyperjump/trisearch/internal/storage"
	"github.com/hyperjump/trisearch/internal/trigram"
)

// Engine ranks products for free-text queries using the trigram index.
type Engine struct {
	storage storage.Storage
	config  *config.SearchConfig
	cache   *TagCache
	logger  *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for query-level debug output.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a search engine over store. A nil cfg uses the defaults.
func NewEngine(store storage.Storage, cfg *config.SearchConfig, opts ...EngineOption) *Engine {
	if cfg == nil {
		cfg = &config.Default().Search
	}
	e := &Engine{
		storage: store,
		config:  cfg,
		logger:  zap.NewNop(),
	}
	if cfg.CacheSize > 0 {
		e.cache = NewTagCache(cfg.CacheSize)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search tokenizes the query, ranks products and attaches their catalog details.
// A query shorter than three characters after normalization, including an empty one,
// yields an empty response rather than an error.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	ProcessQuery(query, e.config)

	trigrams := trigram.Tokenize(query.Query)
	ranked, err := e.Rank(ctx, trigrams, query.Limit)
	if err != nil {
		return nil, err
	}

	response := &models.SearchResponse{
		QueryID:  uuid.NewString(),
		Query:    query.Query,
		Trigrams: trigrams,
		Results:  make([]*models.SearchResult, 0, len(ranked)),
		Total:    len(ranked),
	}
	if len(ranked) > 0 {
		ids := make([]int64, len(ranked))
		for i, r := range ranked {
			ids[i] = r.ProductID
		}
		products, err := e.storage.GetProducts(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("fetch product details: %w", err)
		}
		for i, r := range ranked {
			p, ok := products[r.ProductID]
			if !ok {
				e.logger.Warn("ranked product missing from catalog", zap.Int64("product_id", r.ProductID))
				continue
			}
			response.Results = append(response.Results, &models.SearchResult{
				Rank:    i + 1,
				Score:   r.Score,
				Product: p,
			})
		}
	}
	response.QueryTime = time.Since(startTime).Milliseconds()

	e.logger.Debug("search",
		zap.String("query_id", response.QueryID),
		zap.String("query", query.Query),
		zap.Int("trigrams", len(trigrams)),
		zap.Int("results", len(response.Results)),
		zap.Duration("elapsed", time.Since(startTime)),
	)
	return response, nil
}

// Rank accumulates per-product scores over trigrams and returns the top k.
// Each occurrence of a trigram contributes its full weight, so repeated trigrams amplify scores.
// Any storage failure aborts the ranking; no partial result is returned.
func (e *Engine) Rank(ctx context.Context, trigrams []string, k int) ([]models.ScoredProduct, error) {
	if k <= 0 || len(trigrams) == 0 {
		return []models.ScoredProduct{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		scores map[int64]int64
		err    error
	)
	switch e.config.Strategy {
	case config.StrategyConcurrent:
		scores, err = e.scoreConcurrent(ctx, trigrams)
	case config.StrategyBatch:
		scores, err = e.scoreBatch(ctx, trigrams)
	default:
		scores, err = e.scoreSequential(ctx, trigrams)
	}
	if err != nil {
		return nil, err
	}
	return TopK(scores, k), nil
}

// InvalidateCache drops every cached trigram lookup.
func (e *Engine) InvalidateCache() {
	if e.cache == nil {
		return
	}
	e.cache.Clear()
	e.logger.Debug("tag cache invalidated")
}

// CacheStats returns tag cache counters; ok is false when caching is disabled.
func (e *Engine) CacheStats() (stats CacheStats, ok bool) {
	if e.cache == nil {
		return CacheStats{}, false
	}
	return e.cache.Stats(), true
}

// Strategy returns the configured lookup strategy.
func (e *Engine) Strategy() string {
	return e.config.Strategy
}

// scoreSequential resolves and fetches one trigram at a time, in query order.
func (e *Engine) scoreSequential(ctx context.Context, trigrams []string) (map[int64]int64, error) {
	acc := make(map[int64]int64)
	for _, t := range trigrams {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		contribution, err := e.contribution(ctx, t)
		if err != nil {
			return nil, err
		}
		Merge(acc, contribution)
	}
	return acc, nil
}

// scoreConcurrent fans the distinct trigrams out over at most Concurrency goroutines,
// then merges one contribution per trigram occurrence.
func (e *Engine) scoreConcurrent(ctx context.Context, trigrams []string) (map[int64]int64, error) {
	distinct := trigram.Distinct(trigrams)
	workers := e.config.Concurrency
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		contributions = make([]map[int64]int64, len(distinct))
		errChan       = make(chan error, len(distinct))
		sem           = make(chan struct{}, workers)
		wg            sync.WaitGroup
	)
	for i, t := range distinct {
		i, t := i, t
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				errChan <- ctx.Err()
				return
			}
			defer func() { <-sem }()
			c, err := e.contribution(ctx, t)
			if err != nil {
				errChan <- err
				cancel()
				return
			}
			contributions[i] = c
		}()
	}
	wg.Wait()
	close(errChan)
	// The first error is the root cause; later ones are cancellations it triggered.
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	byTrigram := make(map[string]map[int64]int64, len(distinct))
	for i, t := range distinct {
		byTrigram[t] = contributions[i]
	}
	acc := make(map[int64]int64)
	for _, t := range trigrams {
		Merge(acc, byTrigram[t])
	}
	return acc, nil
}

// scoreBatch resolves all distinct trigrams with one lookup and fetches all their
// associations with one query, then merges one contribution per trigram occurrence.
func (e *Engine) scoreBatch(ctx context.Context, trigrams []string) (map[int64]int64, error) {
	distinct := trigram.Distinct(trigrams)
	ids := make(map[string]int64, len(distinct))
	var misses []string
	for _, t := range distinct {
		if e.cache != nil {
			if id, found, cached := e.cache.Get(t); cached {
				if found {
					ids[t] = id
				}
				continue
			}
		}
		misses = append(misses, t)
	}
	if len(misses) > 0 {
		resolved, err := e.storage.LookupTagIDs(ctx, misses)
		if err != nil {
			return nil, err
		}
		for _, t := range misses {
			id, found := resolved[t]
			if found {
				ids[t] = id
			}
			if e.cache != nil {
				e.cache.Set(t, id, found)
			}
		}
	}
	if len(ids) == 0 {
		return map[int64]int64{}, nil
	}

	tagIDs := make([]int64, 0, len(ids))
	for _, t := range distinct {
		if id, ok := ids[t]; ok {
			tagIDs = append(tagIDs, id)
		}
	}
	rows, err := e.storage.FetchTagProductsBatch(ctx, tagIDs)
	if err != nil {
		return nil, err
	}
	byTag := make(map[int64]map[int64]int64, len(rows))
	for id, r := range rows {
		byTag[id] = Consolidate(r)
	}

	acc := make(map[int64]int64)
	for _, t := range trigrams {
		if id, ok := ids[t]; ok {
			Merge(acc, byTag[id])
		}
	}
	return acc, nil
}

// contribution returns the consolidated per-product weights of a single trigram,
// or nil when the trigram is not in the index.
func (e *Engine) contribution(ctx context.Context, t string) (map[int64]int64, error) {
	id, found, err := e.lookupTagID(ctx, t)
	if err != nil || !found {
		return nil, err
	}
	rows, err := e.storage.FetchTagProducts(ctx, id)
	if err != nil {
		return nil, err
	}
	return Consolidate(rows), nil
}

func (e *Engine) lookupTagID(ctx context.Context, t string) (int64, bool, error) {
	if e.cache != nil {
		if id, found, cached := e.cache.Get(t); cached {
			return id, found, nil
		}
	}
	id, found, err := e.storage.LookupTagID(ctx, t)
	if err != nil {
		return 0, false, err
	}
	if e.cache != nil {
		e.cache.Set(t, id, found)
	}
	return id, found, nil
}
