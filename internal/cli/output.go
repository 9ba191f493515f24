// Package cli provides output formatting, an HTTP search client and the interactive search loop.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/trisearch/internal/models"
	"github.com/hyperjump/trisearch/pkg/utils"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputCompact is one tab-separated result per line.
	OutputCompact SearchOutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// ParseOutputFormat maps a flag value to a SearchOutputFormat.
func ParseOutputFormat(s string) (SearchOutputFormat, error) {
	switch f := SearchOutputFormat(s); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
	}
}

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	case OutputCompact:
		writeSearchResultsCompact(w, response)
		return nil
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	if len(response.Results) == 0 {
		fmt.Fprintln(w, "no results")
		return
	}
	fmt.Fprintf(w, "Found %d results in %dms for %q\n\n", len(response.Results), response.QueryTime, response.Query)
	for _, result := range response.Results {
		p := result.Product
		fmt.Fprintf(w, "%2d. %s | %.2f | %s | %s  (score %d)\n",
			result.Rank, utils.Truncate(p.Name, 60), p.Price, p.Category, p.Brand, result.Score)
	}
	fmt.Fprintln(w)
}

func writeSearchResultsCompact(w io.Writer, response *models.SearchResponse) {
	for _, result := range response.Results {
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\n", result.Rank, result.Product.ID, result.Score, result.Product.Name)
	}
}
