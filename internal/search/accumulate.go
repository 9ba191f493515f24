// Package search provides trigram lookup, score accumulation, and top-K ranking over the product index.
package search

import (
	"sort"

	"github.com/hyperjump/trisearch/internal/models"
)

// Consolidate sums the weights of one trigram's association rows per product.
// A product listed more than once for the same trigram gets the sum of its rows.
func Consolidate(rows []models.TagWeight) map[int64]int64 {
	out := make(map[int64]int64, len(rows))
	for _, r := range rows {
		out[r.ProductID] += r.Weight
	}
	return out
}

// Merge adds every product's contribution into acc. Products absent from acc start at zero.
func Merge(acc, contribution map[int64]int64) {
	for id, w := range contribution {
		acc[id] += w
	}
}

// TopK returns at most k products with a nonzero score, highest score first.
// Equal scores are ordered by ascending product id so results are deterministic.
func TopK(scores map[int64]int64, k int) []models.ScoredProduct {
	if k <= 0 {
		return []models.ScoredProduct{}
	}
	out := make([]models.ScoredProduct, 0, len(scores))
	for id, s := range scores {
		if s != 0 {
			out = append(out, models.ScoredProduct{ProductID: id, Score: s})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ProductID < out[j].ProductID
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}
