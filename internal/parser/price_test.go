package parser

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrice(t *testing.T) {
	p := NewPriceParser(0.05, 2.00)

	tests := []struct {
		name     string
		text     string
		expected float64
		found    bool
	}{
		{"euro per kwh comma", "0,38 Euro pro kWh", 0.38, true},
		{"euro per kwh point", "0.42 Euro pro kWh", 0.42, true},
		{"euro slash kwh", "0,31 €/kWh", 0.31, true},
		{"cent per kwh", "38,5 Cent pro kWh", 0.385, true},
		{"cent slash kwh", "29 ct/kWh", 0.29, true},
		{"bare euro with comma", "Grundversorgung: 0,45 Euro", 0.45, true},
		{"bare cent", "aktuell 33,1 Cent", 0.331, true},
		{"embedded in sentence", "Der lokale Versorger verlangt 0,29 Euro pro kWh im Grundtarif.", 0.29, true},
		{"below range", "0,01 Euro pro kWh", 0, false},
		{"above range", "2,38 Euro pro kWh", 0, false},
		{"cents above range", "238 Cent pro kWh", 0, false},
		{"no price", "Stromanbieter im Vergleich", 0, false},
		{"number without unit", "im Jahr 2023 waren es 38", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, found := p.Parse(tt.text)
			assert.Equal(t, tt.found, found)
			if tt.found {
				assert.InDelta(t, tt.expected, value, 0.0001)
			}
		})
	}
}

func TestParsePriceCentConversionRange(t *testing.T) {
	p := NewPriceParser(0.05, 2.00)

	// Any cent value whose converted price falls inside the valid range
	// must come back divided by 100.
	for cents := 5; cents <= 200; cents += 13 {
		text := fmt.Sprintf("%d Cent pro kWh", cents)
		value, found := p.Parse(text)
		assert.True(t, found, text)
		assert.InDelta(t, float64(cents)/100, value, 0.0001, text)
	}

	_, found := p.Parse("4 Cent pro kWh")
	assert.False(t, found)
	_, found = p.Parse("201 Cent pro kWh")
	assert.False(t, found)
}

func TestParsePriceFirstValidatingPatternWins(t *testing.T) {
	p := NewPriceParser(0.05, 2.00)

	// The base fee is euro-denominated but carries no kWh unit, so the
	// unit-suffixed cent pattern supplies the value.
	value, found := p.Parse("5,00 Euro Grundgebühr, Arbeitspreis 32 Cent pro kWh")
	assert.True(t, found)
	assert.InDelta(t, 0.32, value, 0.0001)
}
