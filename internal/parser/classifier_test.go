package parser

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/models"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestClassifyStructure(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected models.StructureClass
		tables   int
		rows     int
	}{
		{
			name:     "no tables",
			html:     `<html><body><p>nix</p></body></html>`,
			expected: models.ClassSmall,
			tables:   0,
			rows:     0,
		},
		{
			name:     "one small table",
			html:     `<table><tr><td>a</td></tr><tr><td>b</td></tr></table>`,
			expected: models.ClassSmall,
			tables:   1,
			rows:     2,
		},
		{
			name:     "two tables medium rows",
			html:     `<table><tr></tr><tr></tr><tr></tr></table><table><tr></tr><tr></tr></table>`,
			expected: models.ClassMedium,
			tables:   2,
			rows:     5,
		},
		{
			name: "many rows",
			html: `<table>` + strings.Repeat("<tr><td>x</td></tr>", 12) + `</table>`,
			expected: models.ClassLarge,
			tables:   1,
			rows:     12,
		},
		{
			name:     "three tables",
			html:     `<table><tr></tr></table><table><tr></tr></table><table><tr></tr></table>`,
			expected: models.ClassLarge,
			tables:   3,
			rows:     3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ClassifyStructure(mustDoc(t, tt.html))
			assert.Equal(t, tt.expected, info.Class)
			assert.Equal(t, tt.tables, info.TableCount)
			assert.Equal(t, tt.rows, info.RowCount)
		})
	}
}

func TestClassifyName(t *testing.T) {
	tests := []struct {
		identifier string
		expected   models.StructureClass
	}{
		{"berlin", models.ClassLarge},
		{"muenchen", models.ClassLarge},
		{"München", models.ClassLarge},
		{"Köln", models.ClassLarge},
		{"Düsseldorf", models.ClassLarge},
		{"frankfurt-am-main", models.ClassLarge},
		{"hopferau", models.ClassSmall},
		{"kleinsendelbach", models.ClassSmall},
		{"niederhausen", models.ClassSmall},
		{"oberndorf", models.ClassSmall},
		{"regensburg", models.ClassMedium},
		{"fulda", models.ClassMedium},
		{"", models.ClassMedium},
	}

	for _, tt := range tests {
		t.Run(tt.identifier, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyName(tt.identifier))
		})
	}
}
