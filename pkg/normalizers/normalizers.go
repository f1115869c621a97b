// Package normalizers provides name normalization functions for park matching
package normalizers

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	Register("lowercase", Lowercase)
	Register("trim", Trim)
	Register("remove_whitespace", RemoveWhitespace)
	Register("remove_punctuation", RemovePunctuation)
	Register("alphanumeric", Alphanumeric)
	Register("canonical", Canonical)
	Register("fold_diacritics", FoldDiacritics)
	Register("park_designations", ExpandParkDesignations)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Chain composes named normalizers into a single Normalizer.
// Unknown names are reported so configuration mistakes surface at startup.
func Chain(names ...string) (Normalizer, []string) {
	var unknown []string
	fns := make([]Normalizer, 0, len(names))
	for _, name := range names {
		fn, ok := Get(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		fns = append(fns, fn)
	}
	return func(s string) string {
		for _, fn := range fns {
			s = fn(s)
		}
		return s
	}, unknown
}

// Built-in normalizers

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// RemoveWhitespace removes all whitespace characters
func RemoveWhitespace(s string) string {
	var result strings.Builder
	for _, r := range s {
		if !unicode.IsSpace(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// RemovePunctuation removes all punctuation characters
func RemovePunctuation(s string) string {
	var result strings.Builder
	for _, r := range s {
		if !unicode.IsPunct(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// Alphanumeric keeps only alphanumeric characters
func Alphanumeric(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// Canonical is the comparison form of a park name:
// lowercase, with every rune outside [a-z0-9] removed.
// Canonical(Canonical(s)) == Canonical(s) for every s.
func Canonical(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)

	var result strings.Builder
	result.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			result.WriteByte(c)
		}
	}
	return result.String()
}

// FoldDiacritics strips combining marks so "Haleakalā" compares as "Haleakala"
func FoldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

// parkDesignations expands the abbreviations the federal registry and the
// knowledge base disagree on. Keys are lowercase whole words.
var parkDesignations = map[string]string{
	"np":    "national park",
	"natl":  "national",
	"nat'l": "national",
	"npres": "national park and preserve",
	"nm":    "national monument",
	"nhp":   "national historical park",
	"nhs":   "national historic site",
	"nmp":   "national military park",
	"nra":   "national recreation area",
	"ns":    "national seashore",
	"nl":    "national lakeshore",
	"mem":   "memorial",
	"sp":    "state park",
}

// ExpandParkDesignations replaces designation abbreviations ("NP", "NHS")
// with their long form, word by word. Output is lowercase and single-spaced.
func ExpandParkDesignations(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, word := range words {
		if long, ok := parkDesignations[word]; ok {
			words[i] = long
			continue
		}
		if long, ok := parkDesignations[strings.TrimSuffix(word, ".")]; ok {
			words[i] = long
		}
	}
	return strings.Join(words, " ")
}
