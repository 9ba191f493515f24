package search

import (
	"github.com/hyperjump/trisearch/internal/config"
	"github.com/hyperjump/trisearch/internal/models"
)

// ProcessQuery applies the configured default and maximum limits to the search query.
// The query text is left untouched for the tokenizer.
func ProcessQuery(query *models.SearchQuery, cfg *config.SearchConfig) {
	if query.Limit <= 0 && cfg != nil {
		query.Limit = cfg.DefaultLimit
	}
	maxLimit := 0
	if cfg != nil {
		maxLimit = cfg.MaxLimit
	}
	query.ApplyLimit(maxLimit)
}
