package cities

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple lowercase", "hopferau", "hopferau"},
		{"uppercase folded", "München", "muenchen"},
		{"sharp s", "Gießen", "giessen"},
		{"umlauts", "Lübeck", "luebeck"},
		{"spaces to hyphen", "Frankfurt am Main", "frankfurt-am-main"},
		{"slash and parens", "Halle (Saale)", "halle-saale"},
		{"multiple separators collapse", "Bad  Wörishofen", "bad-woerishofen"},
		{"trailing separator trimmed", "Kempten (Allgäu) ", "kempten-allgaeu"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slug(tt.input))
		})
	}
}

func TestPageURL(t *testing.T) {
	url := PageURL("https://www.stromauskunft.de/de/stadt/stromanbieter-in-", ".html", "Bad Wörishofen")
	assert.Equal(t, "https://www.stromauskunft.de/de/stadt/stromanbieter-in-bad-woerishofen.html", url)
}

func TestParseCSV(t *testing.T) {
	input := `name,plz,coords
Hopferau,87659,"47.62,10.62"
München,80331,
,12345,
Leipzig,,
Berlin,10115,"52.52,13.40"
`

	targets, err := parseCSV(strings.NewReader(input), slog.Default())
	require.NoError(t, err)
	require.Len(t, targets, 3)

	assert.Equal(t, "87659", targets[0].PostalCode)
	assert.Equal(t, "Hopferau", targets[0].CityName)
	assert.Equal(t, "hopferau", targets[0].Slug)
	require.NotNil(t, targets[0].Latitude)
	assert.InDelta(t, 47.62, *targets[0].Latitude, 0.001)
	assert.InDelta(t, 10.62, *targets[0].Longitude, 0.001)

	assert.Equal(t, "muenchen", targets[1].Slug)
	assert.Nil(t, targets[1].Latitude)

	assert.Equal(t, "Berlin", targets[2].CityName)
}

func TestParseCSVNoHeader(t *testing.T) {
	input := "Hopferau,87659,\nBerlin,10115,\n"

	targets, err := parseCSV(strings.NewReader(input), slog.Default())
	require.NoError(t, err)
	assert.Len(t, targets, 2)
}
