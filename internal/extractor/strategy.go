package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/parser"
)

// Strategy is one named extraction algorithm. Implementations must be
// stateless; a strategy may return zero, one or both prices.
type Strategy interface {
	Name() string
	Extract(doc *goquery.Document, rawText string) Partial
}

// Partial is the per-strategy contribution before merging.
type Partial struct {
	Local *float64
	Green *float64
	Note  string
}

// Keyword sets used by the table strategies. Matching is done on
// lowercased cell text.
var (
	localProviderKeywords = []string{
		"lokaler versorger",
		"lokaler anbieter",
		"grundversorger",
		"grundversorgung",
		"stadtwerke",
	}

	greenEnergyKeywords = []string{
		"ökostrom",
		"oekostrom",
		"naturstrom",
		"grünstrom",
		"gruenstrom",
	}

	// A row mentioning any of these is a comparison/tariff row, not a
	// local-provider quote, and must never supply a price.
	comparisonMarkers = []string{
		"eprimo",
		"vattenfall",
		"e.on",
		"eon ",
		"enbw",
		"yello",
		"rwe",
		"check24",
		"verivox",
		"tarifvergleich",
		"anbieter im vergleich",
		"günstigster tarif",
	}
)

// preferable implements the replacement rule for conflicting candidates:
// the challenger wins only when the incumbent is implausible (at or
// above the high-outlier threshold) and the challenger is not.
func preferable(incumbent, challenger, highThreshold float64) bool {
	return incumbent >= highThreshold && challenger < highThreshold
}

// mergeField merges a new candidate into an existing field, first
// non-nil wins subject to the preference rule.
func mergeField(existing, candidate *float64, highThreshold float64) *float64 {
	if candidate == nil {
		return existing
	}
	if existing == nil {
		return candidate
	}
	if preferable(*existing, *candidate, highThreshold) {
		return candidate
	}
	return existing
}

// containsAny expects an already-lowercased haystack.
func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// sharedDeps bundles what every strategy needs.
type sharedDeps struct {
	prices        *parser.PriceParser
	highThreshold float64
}
