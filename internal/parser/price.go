package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// PriceParser turns a short text fragment into a validated EUR/kWh value.
// Patterns are tried in priority order; the first match that also falls
// inside the valid range wins and later patterns are not consulted.
type PriceParser struct {
	patterns []pricePattern
	minPrice float64
	maxPrice float64
}

type pricePattern struct {
	re    *regexp.Regexp
	cents bool
	label string
}

func NewPriceParser(minPrice, maxPrice float64) *PriceParser {
	return &PriceParser{
		minPrice: minPrice,
		maxPrice: maxPrice,
		patterns: []pricePattern{
			{
				re:    regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:€|euro)\s*(?:pro\s*|/\s*)kwh`),
				label: "euro_per_kwh",
			},
			{
				re:    regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:ct|cent)\s*(?:pro\s*|/\s*)kwh`),
				cents: true,
				label: "cent_per_kwh",
			},
			{
				re:    regexp.MustCompile(`(?i)(\d+,\d+)\s*(?:€|euro)\b`),
				label: "euro_comma",
			},
			{
				re:    regexp.MustCompile(`(?i)(\d+\.\d+)\s*(?:€|euro)\b`),
				label: "euro_point",
			},
			{
				re:    regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:ct|cent)\b`),
				cents: true,
				label: "cent_bare",
			},
		},
	}
}

// Parse returns the price in EUR/kWh, or false when no pattern matches
// and validates. Cent-denominated matches are divided by 100.
func (p *PriceParser) Parse(text string) (float64, bool) {
	for _, pat := range p.patterns {
		matches := pat.re.FindStringSubmatch(text)
		if len(matches) < 2 {
			continue
		}

		value, err := parseGermanFloat(matches[1])
		if err != nil {
			continue
		}
		if pat.cents {
			value /= 100
		}

		if p.valid(value) {
			return value, true
		}
	}

	return 0, false
}

func (p *PriceParser) valid(v float64) bool {
	return v >= p.minPrice && v <= p.maxPrice
}

func parseGermanFloat(s string) (float64, error) {
	s = strings.Replace(strings.TrimSpace(s), ",", ".", 1)
	return strconv.ParseFloat(s, 64)
}
