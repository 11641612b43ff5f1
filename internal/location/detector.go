// Package location checks whether the location an article's headline claims
// agrees with the location its body text talks about, and buckets noisy
// content locations for display.
package location

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"newsrisk/internal/core"
)

// aliases maps whole tokens, with surrounding punctuation trimmed, to their
// canonical country name.
var aliases = map[string]string{
	"us":    "United States",
	"usa":   "United States",
	"u.s":   "United States",
	"u.s.a": "United States",
	"uk":    "United Kingdom",
	"u.k":   "United Kingdom",
	"uae":   "United Arab Emirates",
	"u.a.e": "United Arab Emirates",
}

const tokenPunctuation = ".,;:()"

// Detector compares claimed and content locations. It holds a title caser,
// which is stateful, so a Detector must not be shared between goroutines.
type Detector struct {
	caser cases.Caser
}

// NewDetector creates a location anomaly detector.
func NewDetector() *Detector {
	return &Detector{caser: cases.Title(language.English)}
}

// Canonicalize maps a raw location string onto the form used for comparison:
// missing values become core.UnknownLocation, known abbreviations become the
// country name, everything else is title-cased.
func (d *Detector) Canonicalize(raw string) string {
	loc := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	if loc == "" || loc == "unknown" || loc == "nan" {
		return core.UnknownLocation
	}

	for _, token := range strings.Fields(loc) {
		if name, ok := aliases[strings.Trim(token, tokenPunctuation)]; ok {
			return name
		}
	}

	return d.caser.String(loc)
}

// Detect canonicalizes both sides and applies the decision table.
func (d *Detector) Detect(claimed, content string) core.LocationVerdict {
	return Decide(d.Canonicalize(claimed), d.Canonicalize(content))
}

// Decide applies the location decision table to canonical inputs. Rules are
// evaluated in order; the table is total.
func Decide(claimed, content string) core.LocationVerdict {
	claimedKnown := claimed != core.UnknownLocation
	contentKnown := content != core.UnknownLocation

	switch {
	case !claimedKnown && !contentKnown:
		return core.LocationNormal
	case !claimedKnown:
		// headlines legitimately omit locations
		return core.LocationNormal
	case !contentKnown:
		return core.LocationReview
	case claimed == content:
		return core.LocationNormal
	default:
		return core.LocationAnomaly
	}
}
