package extractor

import (
	"fmt"
	"regexp"

	"github.com/PuerkitoBio/goquery"
)

type field int

const (
	fieldLocal field = iota
	fieldGreen
)

// labeledPattern ties one regex to one of the two fields. The first
// capture group is the text fragment handed to the price parser.
type labeledPattern struct {
	label string
	field field
	re    *regexp.Regexp
}

// regexStrategy runs an ordered list of labeled patterns over the full
// page text. First validated match per field wins; it never overwrites
// a field already filled by an earlier strategy in the same pass (the
// orchestrator enforces that during merging).
type regexStrategy struct {
	name     string
	patterns []labeledPattern
	deps     sharedDeps
}

const priceFragment = `(\d+(?:[.,]\d+)?\s*(?:€|euro|ct|cent)(?:\s*(?:pro\s*|/\s*)kwh)?)`

func newRegexStandard(deps sharedDeps) *regexStrategy {
	return &regexStrategy{
		name: "regex_standard",
		deps: deps,
		patterns: []labeledPattern{
			{
				label: "lokaler_versorger",
				field: fieldLocal,
				re:    regexp.MustCompile(`(?i)lokaler?\s+(?:versorger|anbieter)\D{0,40}?` + priceFragment),
			},
			{
				label: "grundversorger",
				field: fieldLocal,
				re:    regexp.MustCompile(`(?i)grundversorg(?:er|ung)\D{0,40}?` + priceFragment),
			},
			{
				label: "oekostrom",
				field: fieldGreen,
				re:    regexp.MustCompile(`(?i)(?:öko|oeko|natur|grün|gruen)strom(?:anbieter|tarif)?\D{0,40}?` + priceFragment),
			},
		},
	}
}

// newRegexAggressive widens the label-to-price window. Only consulted
// when the stricter strategies came up empty.
func newRegexAggressive(deps sharedDeps) *regexStrategy {
	return &regexStrategy{
		name: "regex_aggressive",
		deps: deps,
		patterns: []labeledPattern{
			{
				label: "lokaler_versorger_wide",
				field: fieldLocal,
				re:    regexp.MustCompile(`(?i)lokal\w*\s+(?:versorger|anbieter|strom)[\s\S]{0,120}?` + priceFragment),
			},
			{
				label: "grundversorgung_wide",
				field: fieldLocal,
				re:    regexp.MustCompile(`(?i)grundversorg\w*[\s\S]{0,120}?` + priceFragment),
			},
			{
				label: "stadtwerke_wide",
				field: fieldLocal,
				re:    regexp.MustCompile(`(?i)stadtwerke?[\s\S]{0,120}?` + priceFragment),
			},
			{
				label: "oekostrom_wide",
				field: fieldGreen,
				re:    regexp.MustCompile(`(?i)(?:öko|oeko|natur|grün|gruen)strom[\s\S]{0,120}?` + priceFragment),
			},
		},
	}
}

func (s *regexStrategy) Name() string { return s.name }

func (s *regexStrategy) Extract(_ *goquery.Document, rawText string) Partial {
	var out Partial
	var lastLabel string

	for _, pat := range s.patterns {
		target := &out.Local
		if pat.field == fieldGreen {
			target = &out.Green
		}
		if *target != nil {
			continue
		}

		matches := pat.re.FindStringSubmatch(rawText)
		if len(matches) < 2 {
			continue
		}

		price, ok := s.deps.prices.Parse(matches[1])
		if !ok {
			continue
		}

		*target = &price
		lastLabel = pat.label

		if out.Local != nil && out.Green != nil {
			break
		}
	}

	if lastLabel != "" {
		out.Note = fmt.Sprintf("pattern=%s", lastLabel)
	}
	return out
}
