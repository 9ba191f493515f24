package models

// SearchResult is a single ranked product.
type SearchResult struct {
	Rank    int      `json:"rank"`
	Score   int64    `json:"score"`
	Product *Product `json:"product"`
}

// SearchResponse is the response for a search request.
// Trigrams is the ordered trigram sequence the query was decomposed into, duplicates included.
type SearchResponse struct {
	QueryID   string          `json:"query_id"`
	Query     string          `json:"query"`
	Trigrams  []string        `json:"trigrams"`
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
}
