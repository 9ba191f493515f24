// Package trigram turns free text into the overlapping 3-character substrings used as index keys.
package trigram

import "strings"

// Size is the length of a trigram in characters.
const Size = 3

// Normalize lowercases text and strips spaces, newlines and tabs, in that order.
// Other whitespace (e.g. carriage returns) and punctuation are kept.
func Normalize(text string) string {
	s := strings.ToLower(text)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.ReplaceAll(s, "\t", "")
	return s
}

// Tokenize returns every trigram of the normalized text, left to right with stride 1.
// Duplicates are kept; a repeated substring is looked up and scored once per occurrence.
// Characters are runes, so multi-byte letters count as one character.
func Tokenize(text string) []string {
	runes := []rune(Normalize(text))
	if len(runes) < Size {
		return []string{}
	}
	out := make([]string, 0, len(runes)-Size+1)
	for i := 0; i+Size <= len(runes); i++ {
		out = append(out, string(runes[i:i+Size]))
	}
	return out
}

// Distinct returns the trigrams with duplicates removed, keeping first-occurrence order.
func Distinct(trigrams []string) []string {
	seen := make(map[string]struct{}, len(trigrams))
	out := make([]string, 0, len(trigrams))
	for _, t := range trigrams {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
