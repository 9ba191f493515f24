package trigram

import (
	"reflect"
	"testing"
	"unicode/utf8"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", []string{}},
		{"two chars", "ab", []string{}},
		{"three chars", "abc", []string{"abc"}},
		{"four chars", "abcd", []string{"abc", "bcd"}},
		{"uppercase", "ABC", []string{"abc"}},
		{"whitespace removed", "a b\tc\nd", []string{"abc", "bcd"}},
		{"duplicates kept", "abcabc", []string{"abc", "bca", "cab", "abc"}},
		{"hyphen kept", "a-b", []string{"a-b"}},
		{"carriage return kept", "a\rb", []string{"a\rb"}},
		{"only spaces", "   \t\n ", []string{}},
		{"multibyte runes", "Çay", []string{"çay"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTokenize_Length(t *testing.T) {
	inputs := []string{
		"", "a", "ab", "abc", "wireless mouse", "USB-C Charger 65W\n", "\t\t x y z \n",
		"Noise Cancelling Headphones", "ßüñ café",
	}
	for _, in := range inputs {
		n := utf8.RuneCountInString(Normalize(in))
		want := n - 2
		if want < 0 {
			want = 0
		}
		if got := len(Tokenize(in)); got != want {
			t.Errorf("len(Tokenize(%q)) = %d, want %d", in, got, want)
		}
	}
}

func TestTokenize_CaseInsensitive(t *testing.T) {
	if !reflect.DeepEqual(Tokenize("LaPToP"), Tokenize("laptop")) {
		t.Error("tokenize should be case-insensitive")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello World", "helloworld"},
		{"a\tb\nc", "abc"},
		{"x-y_z", "x-y_z"},
		{"a\u00a0b", "a\u00a0b"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDistinct(t *testing.T) {
	got := Distinct([]string{"abc", "bca", "cab", "abc"})
	want := []string{"abc", "bca", "cab"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Distinct() = %v, want %v", got, want)
	}
	if got := Distinct(nil); len(got) != 0 {
		t.Errorf("Distinct(nil) = %v, want empty", got)
	}
}
