package models

import "testing"

func TestSearchQuery_ApplyLimit(t *testing.T) {
	tests := []struct {
		name      string
		query     *SearchQuery
		maxLimit  int
		wantLimit int
	}{
		{"keeps limit", &SearchQuery{Query: "mouse", Limit: 5}, 100, 5},
		{"sets default limit", &SearchQuery{Query: "x", Limit: 0}, 100, 10},
		{"negative limit", &SearchQuery{Query: "x", Limit: -3}, 100, 10},
		{"caps limit", &SearchQuery{Query: "x", Limit: 200}, 50, 50},
		{"zero max limit means 100", &SearchQuery{Query: "x", Limit: 500}, 0, 100},
		{"empty query is accepted", &SearchQuery{Query: ""}, 100, 10},
		{"blank query is accepted", &SearchQuery{Query: "  \t"}, 100, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := tt.query.Query
			tt.query.ApplyLimit(tt.maxLimit)
			if tt.query.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", tt.query.Limit, tt.wantLimit)
			}
			if tt.query.Query != text {
				t.Errorf("Query changed to %q, want %q", tt.query.Query, text)
			}
		})
	}
}
