package search

import (
	"reflect"
	"testing"

	"github.com/hyperjump/trisearch/internal/models"
)

func TestConsolidate(t *testing.T) {
	got := Consolidate([]models.TagWeight{
		{ProductID: 1, Weight: 2},
		{ProductID: 2, Weight: 5},
		{ProductID: 1, Weight: 3},
	})
	want := map[int64]int64{1: 5, 2: 5}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Consolidate() = %v, want %v", got, want)
	}
	if got := Consolidate(nil); len(got) != 0 {
		t.Errorf("Consolidate(nil) = %v, want empty", got)
	}
}

func TestMerge(t *testing.T) {
	acc := map[int64]int64{1: 2}
	Merge(acc, map[int64]int64{1: 3, 2: 4})
	Merge(acc, nil)
	want := map[int64]int64{1: 5, 2: 4}
	if !reflect.DeepEqual(acc, want) {
		t.Errorf("Merge() = %v, want %v", acc, want)
	}
}

func TestTopK(t *testing.T) {
	tests := []struct {
		name   string
		scores map[int64]int64
		k      int
		want   []models.ScoredProduct
	}{
		{
			name:   "descending by score",
			scores: map[int64]int64{100: 3, 200: 5},
			k:      10,
			want:   []models.ScoredProduct{{ProductID: 200, Score: 5}, {ProductID: 100, Score: 3}},
		},
		{
			name:   "ties by ascending id",
			scores: map[int64]int64{9: 2, 3: 2, 5: 2},
			k:      10,
			want: []models.ScoredProduct{
				{ProductID: 3, Score: 2}, {ProductID: 5, Score: 2}, {ProductID: 9, Score: 2},
			},
		},
		{
			name:   "zero scores dropped",
			scores: map[int64]int64{1: 0, 2: 1},
			k:      10,
			want:   []models.ScoredProduct{{ProductID: 2, Score: 1}},
		},
		{
			name:   "truncated to k",
			scores: map[int64]int64{1: 1, 2: 2, 3: 3},
			k:      2,
			want:   []models.ScoredProduct{{ProductID: 3, Score: 3}, {ProductID: 2, Score: 2}},
		},
		{
			name:   "non-positive k",
			scores: map[int64]int64{1: 1},
			k:      0,
			want:   []models.ScoredProduct{},
		},
		{
			name:   "empty",
			scores: nil,
			k:      10,
			want:   []models.ScoredProduct{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TopK(tt.scores, tt.k)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TopK() = %v, want %v", got, tt.want)
			}
		})
	}
}
