package models

// SearchQuery represents a search request.
// The query text is used verbatim; a query too short to form a trigram is not an error and matches nothing.
type SearchQuery struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// ApplyLimit defaults the limit to 10 and caps it at maxLimit (maxLimit <= 0 means 100).
func (q *SearchQuery) ApplyLimit(maxLimit int) {
	if maxLimit <= 0 {
		maxLimit = 100
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
}
