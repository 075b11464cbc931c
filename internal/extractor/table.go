package extractor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// tableStrategy scans table rows for a provider keyword in the first
// cell and a unit-suffixed price in the second. Rows longer than the
// cutoff, and comparison rows, are never eligible.
type tableStrategy struct {
	name      string
	rowCutoff int
	// requireUnit demands the explicit "pro kWh"/"/kWh" token in the
	// price cell; used on large pages where bare numbers are ambiguous.
	requireUnit bool
	// wholeRow also accepts a keyword anywhere in the row with the price
	// parsed from the full row text. Small-settlement pages often have a
	// single terse row instead of a label/value cell pair.
	wholeRow bool
	deps     sharedDeps
}

const defaultRowCutoff = 100

func newTableSmall(deps sharedDeps) *tableStrategy {
	return &tableStrategy{name: "table_small", rowCutoff: defaultRowCutoff, wholeRow: true, deps: deps}
}

func newTableStandard(deps sharedDeps) *tableStrategy {
	return &tableStrategy{name: "table_standard", rowCutoff: defaultRowCutoff, deps: deps}
}

func newTableLarge(deps sharedDeps) *tableStrategy {
	return &tableStrategy{name: "table_large", rowCutoff: defaultRowCutoff, requireUnit: true, deps: deps}
}

func (s *tableStrategy) Name() string { return s.name }

func (s *tableStrategy) Extract(doc *goquery.Document, _ string) Partial {
	var out Partial
	rowsSeen := 0
	rowsEligible := 0

	doc.Find("table tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		rowsSeen++

		rowText := strings.TrimSpace(row.Text())
		if !s.eligible(rowText) {
			return true
		}
		rowsEligible++

		cells := row.Find("td, th")
		if cells.Length() < 2 {
			if s.wholeRow {
				s.matchWholeRow(rowText, &out)
			}
			return out.Local == nil || out.Green == nil
		}

		label := strings.ToLower(strings.TrimSpace(cells.Eq(0).Text()))
		priceCell := strings.TrimSpace(cells.Eq(1).Text())

		if s.requireUnit && !strings.Contains(strings.ToLower(priceCell), "kwh") {
			return true
		}

		price, ok := s.deps.prices.Parse(priceCell)
		if !ok {
			return true
		}

		switch {
		case containsAny(label, localProviderKeywords):
			out.Local = mergeField(out.Local, &price, s.deps.highThreshold)
		case containsAny(label, greenEnergyKeywords):
			out.Green = mergeField(out.Green, &price, s.deps.highThreshold)
		}

		// Both fields filled, no reason to keep scanning.
		return out.Local == nil || out.Green == nil
	})

	out.Note = fmt.Sprintf("rows=%d eligible=%d", rowsSeen, rowsEligible)
	return out
}

// matchWholeRow parses a single-cell row, keyword anywhere in the text.
func (s *tableStrategy) matchWholeRow(rowText string, out *Partial) {
	lower := strings.ToLower(rowText)

	price, ok := s.deps.prices.Parse(rowText)
	if !ok {
		return
	}

	switch {
	case containsAny(lower, localProviderKeywords):
		out.Local = mergeField(out.Local, &price, s.deps.highThreshold)
	case containsAny(lower, greenEnergyKeywords):
		out.Green = mergeField(out.Green, &price, s.deps.highThreshold)
	}
}

// eligible applies the simple-row cutoff and the comparison-row filter.
func (s *tableStrategy) eligible(rowText string) bool {
	if len(rowText) >= s.rowCutoff {
		return false
	}
	return !containsAny(strings.ToLower(rowText), comparisonMarkers)
}
