package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello world", 5, "hello..."},
		{"x", 0, "x"},
		{"café au lait", 4, "café..."},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}
