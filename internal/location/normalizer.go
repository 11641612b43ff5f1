package location

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"newsrisk/internal/core"
)

// Tokens the upstream entity tagger mistakes for locations at the start of a span.
var junkPrefixes = map[string]bool{
	"strong":  true,
	"percent": true,
	"asia":    true,
	"year":    true,
	"week":    true,
	"tuesday": true,
	"monday":  true,
}

var personTerms = map[string]bool{
	"khan":      true,
	"murad":     true,
	"poonam":    true,
	"rafael":    true,
	"radwanska": true,
	"sharapova": true,
	"masakadza": true,
	"malinga":   true,
	"uthappa":   true,
}

// Sports and organization words that mark a span as a team or institution.
var orgTerms = map[string]bool{
	"city":       true,
	"university": true,
	"cup":        true,
	"league":     true,
	"club":       true,
}

var regions = map[string]bool{
	"asia":          true,
	"south asia":    true,
	"middle east":   true,
	"europe":        true,
	"north america": true,
	"africa":        true,
	"latin america": true,
}

const minLocationLength = 4

// Normalizer buckets content locations for filtering and display. Its output
// never feeds the anomaly verdict. Not safe for concurrent use.
type Normalizer struct {
	caser cases.Caser
}

// NewNormalizer creates a location normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{caser: cases.Title(language.English)}
}

// Normalize returns the cleaned display name and its bucket.
func (n *Normalizer) Normalize(raw string) (string, core.LocationType) {
	loc := clean(raw)
	if loc == "" || loc == strings.ToLower(core.UnknownLocation) {
		return unknown()
	}

	if personTerms[loc] {
		return unknown()
	}
	for _, token := range strings.Fields(loc) {
		if orgTerms[token] {
			return unknown()
		}
	}
	if regions[loc] {
		return n.caser.String(loc), core.LocationTypeRegion
	}
	if utf8.RuneCountInString(loc) < minLocationLength {
		return unknown()
	}
	return n.caser.String(loc), core.LocationTypeCityOrCountry
}

func unknown() (string, core.LocationType) {
	return string(core.LocationTypeUnknown), core.LocationTypeUnknown
}

// clean lowercases, drops non-letters, collapses whitespace and strips junk
// leading tokens. Stripping stops at a known region, so "asia" on its own
// survives while "asia cup" loses its prefix.
func clean(raw string) string {
	loc := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return r
		}
		return ' '
	}, strings.ToLower(raw))
	tokens := strings.Fields(loc)
	for len(tokens) > 0 && junkPrefixes[tokens[0]] && !regions[strings.Join(tokens, " ")] {
		tokens = tokens[1:]
	}
	return strings.Join(tokens, " ")
}
