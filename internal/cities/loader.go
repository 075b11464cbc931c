package cities

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/models"
)

// Expected columns in the reference file. The coordinate field holds two
// comma-joined floats ("48.12,10.37") and may be empty.
const (
	colName = iota
	colPostalCode
	colCoordinates
)

// LoadCSV reads the postal-code reference list. Rows missing a name or a
// postal code are skipped, not treated as errors.
func LoadCSV(path string, logger *slog.Logger) ([]models.Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference file: %w", err)
	}
	defer f.Close()

	return parseCSV(f, logger)
}

func parseCSV(r io.Reader, logger *slog.Logger) ([]models.Target, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var targets []models.Target
	line := 0
	skipped := 0

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read reference row %d: %w", line, err)
		}
		line++

		// Header row
		if line == 1 && !isNumeric(field(row, colPostalCode)) {
			continue
		}

		name := strings.TrimSpace(field(row, colName))
		plz := strings.TrimSpace(field(row, colPostalCode))
		if name == "" || plz == "" {
			skipped++
			continue
		}

		t := models.Target{
			PostalCode: plz,
			CityName:   name,
			Slug:       Slug(name),
		}

		if lat, lon, ok := parseCoordinates(field(row, colCoordinates)); ok {
			t.Latitude = &lat
			t.Longitude = &lon
		}

		targets = append(targets, t)
	}

	if skipped > 0 {
		logger.Warn("skipped incomplete reference rows", "skipped", skipped, "loaded", len(targets))
	}

	return targets, nil
}

func field(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}

func isNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	_, err := strconv.Atoi(s)
	return err == nil
}

func parseCoordinates(s string) (lat, lon float64, ok bool) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return 0, 0, false
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, false
	}

	return lat, lon, true
}
