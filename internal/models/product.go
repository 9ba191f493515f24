// Package models defines core data structures for products, index associations, queries, and search results.
package models

// Product is a catalog item. It is read-only from the search engine's point of view.
type Product struct {
	ID            int64   `json:"id" db:"id"`
	Name          string  `json:"product_name" db:"product_name"`
	Price         float64 `json:"price" db:"price"`
	Description   string  `json:"description" db:"description"`
	Category      string  `json:"category" db:"category"`
	Brand         string  `json:"brand" db:"brand"`
	StockQuantity int64   `json:"stock_quantity" db:"stock_quantity"`
	ReleaseDate   string  `json:"release_date" db:"release_date"`
	Rating        float64 `json:"rating" db:"rating"`
}

// TagWeight is one row of the trigram-to-product association for a given tag:
// the product it points at and the precomputed weight (occurrence count).
type TagWeight struct {
	ProductID int64 `json:"product_id" db:"product_id"`
	Weight    int64 `json:"count" db:"count"`
}

// ScoredProduct is a product id with its accumulated query score.
type ScoredProduct struct {
	ProductID int64 `json:"product_id"`
	Score     int64 `json:"score"`
}

// IndexStats summarizes the contents of the trigram index.
type IndexStats struct {
	Products     int64 `json:"products"`
	Tags         int64 `json:"tags"`
	Associations int64 `json:"associations"`
}
