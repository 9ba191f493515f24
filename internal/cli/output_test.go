package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/trisearch/internal/models"
)

func sampleResponse() *models.SearchResponse {
	return &models.SearchResponse{
		QueryID:   "q-1",
		Query:     "mouse",
		Trigrams:  []string{"mou", "ous", "use"},
		QueryTime: 3,
		Total:     2,
		Results: []*models.SearchResult{
			{Rank: 1, Score: 9, Product: &models.Product{ID: 300, Name: "Wireless Mouse", Price: 24.99, Category: "Electronics", Brand: "Logi"}},
			{Rank: 2, Score: 2, Product: &models.Product{ID: 310, Name: "Mouse Pad", Price: 5, Category: "Accessories", Brand: "Deskly"}},
		},
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	response := sampleResponse()
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Query != "mouse" || decoded.QueryID != "q-1" {
		t.Errorf("decoded query=%q id=%q", decoded.Query, decoded.QueryID)
	}
	if len(decoded.Results) != 2 || decoded.Results[0].Product.ID != 300 || decoded.Results[0].Score != 9 {
		t.Errorf("decoded results: %+v", decoded.Results)
	}
}

func TestWriteSearchResults_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatalf("WriteSearchResults(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"Found 2 results", "3ms", " 1. Wireless Mouse | 24.99 | Electronics | Logi", "(score 9)", " 2. Mouse Pad"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteSearchResults_textEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, &models.SearchResponse{Query: "zz"}, OutputText); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "no results\n" {
		t.Errorf("got %q, want %q", buf.String(), "no results\n")
	}
}

func TestWriteSearchResults_compact(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputCompact); err != nil {
		t.Fatal(err)
	}
	want := "1\t300\t9\tWireless Mouse\n2\t310\t2\tMouse Pad\n"
	if buf.String() != want {
		t.Errorf("compact output = %q, want %q", buf.String(), want)
	}
}

func TestParseOutputFormat(t *testing.T) {
	for _, s := range []string{"text", "compact", "json"} {
		if f, err := ParseOutputFormat(s); err != nil || string(f) != s {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", s, f, err)
		}
	}
	if _, err := ParseOutputFormat("yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
