package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/cities"
	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/models"
)

// Structure thresholds. A page at or below both counts falls into the
// corresponding class; everything else is large.
const (
	smallMaxTables  = 1
	smallMaxRows    = 3
	mediumMaxTables = 2
	mediumMaxRows   = 8
)

// City name fragments that reliably indicate a large municipality page.
var largeCityFragments = []string{
	"berlin", "hamburg", "muenchen", "koeln", "frankfurt", "stuttgart",
	"duesseldorf", "dortmund", "essen", "leipzig", "bremen", "dresden",
	"hannover", "nuernberg", "duisburg", "bochum", "wuppertal", "bielefeld",
}

// Compound suffixes typical of small settlements.
var smallSettlementSuffixes = []string{
	"dorf", "hausen", "hofen", "weiler", "ried", "moos", "au", "ach",
}

// ClassifyStructure derives the structural class of a fetched document
// from its table and row counts. Recorded for diagnostics; it never
// changes which strategies already ran.
func ClassifyStructure(doc *goquery.Document) models.StructureInfo {
	tableCount := doc.Find("table").Length()
	rowCount := doc.Find("tr").Length()

	info := models.StructureInfo{
		TableCount: tableCount,
		RowCount:   rowCount,
	}

	switch {
	case tableCount <= smallMaxTables && rowCount <= smallMaxRows:
		info.Class = models.ClassSmall
	case tableCount <= mediumMaxTables && rowCount <= mediumMaxRows:
		info.Class = models.ClassMedium
	default:
		info.Class = models.ClassLarge
	}

	return info
}

// ClassifyName pre-classifies a target from its name alone, before the
// page is fetched. This selects which strategies to attempt. The name
// is normalized to its URL identifier first, so display names with
// umlauts match the digraph-folded fragment lists. Unknown names
// default to medium.
func ClassifyName(identifier string) models.StructureClass {
	id := cities.Slug(identifier)

	for _, fragment := range largeCityFragments {
		if strings.Contains(id, fragment) {
			return models.ClassLarge
		}
	}

	for _, suffix := range smallSettlementSuffixes {
		if strings.HasSuffix(id, suffix) {
			return models.ClassSmall
		}
	}

	return models.ClassMedium
}
