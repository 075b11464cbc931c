package extractor

import (
	"errors"
	"log/slog"

	"github.com/PuerkitoBio/goquery"

	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/models"
	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/parser"
)

// ErrNoPriceFound signals that every assigned strategy ran and neither
// field could be filled.
var ErrNoPriceFound = errors.New("no price found")

// Orchestrator runs the strategy list assigned to a classification in
// fixed priority order and merges partial results.
type Orchestrator struct {
	byClass map[models.StructureClass][]Strategy
	high    float64
	logger  *slog.Logger
}

func NewOrchestrator(prices *parser.PriceParser, highThreshold float64, logger *slog.Logger) *Orchestrator {
	deps := sharedDeps{prices: prices, highThreshold: highThreshold}

	tableSmall := newTableSmall(deps)
	tableStandard := newTableStandard(deps)
	tableLarge := newTableLarge(deps)
	regexStandard := newRegexStandard(deps)
	regexAggressive := newRegexAggressive(deps)

	return &Orchestrator{
		high:   highThreshold,
		logger: logger.With("component", "orchestrator"),
		byClass: map[models.StructureClass][]Strategy{
			models.ClassSmall:  {tableSmall, tableStandard, regexStandard, regexAggressive},
			models.ClassMedium: {tableStandard, regexStandard},
			models.ClassLarge:  {tableLarge, tableStandard, regexStandard, regexAggressive},
		},
	}
}

// Extract merges strategy outputs first-non-null-wins, subject to the
// plausibility preference rule, and stops early once both fields are
// filled. Success means at least one field is non-nil.
func (o *Orchestrator) Extract(doc *goquery.Document, rawText string, class models.StructureClass) (*models.ExtractionResult, error) {
	strategies, ok := o.byClass[class]
	if !ok {
		strategies = o.byClass[models.ClassMedium]
	}

	result := &models.ExtractionResult{}
	localBy := ""
	greenBy := ""

	for _, strat := range strategies {
		partial := strat.Extract(doc, rawText)

		before := *result
		result.LocalPrice = mergeField(result.LocalPrice, partial.Local, o.high)
		result.GreenPrice = mergeField(result.GreenPrice, partial.Green, o.high)

		if result.LocalPrice != before.LocalPrice {
			localBy = strat.Name()
		}
		if result.GreenPrice != before.GreenPrice {
			greenBy = strat.Name()
		}

		result.Trace = append(result.Trace, models.TraceEntry{
			Strategy: strat.Name(),
			MatchedA: partial.Local != nil,
			MatchedB: partial.Green != nil,
			Note:     partial.Note,
		})

		if result.LocalPrice != nil && result.GreenPrice != nil {
			break
		}
	}

	if result.LocalPrice == nil && result.GreenPrice == nil {
		return nil, ErrNoPriceFound
	}

	// The method records which strategy supplied the primary field,
	// falling back to whichever filled the green price.
	result.Method = localBy
	if result.Method == "" {
		result.Method = greenBy
	}

	o.logger.Debug("extraction complete",
		"class", class,
		"method", result.Method,
		"strategies_run", len(result.Trace),
		"has_local", result.LocalPrice != nil,
		"has_green", result.GreenPrice != nil,
	)

	return result, nil
}
