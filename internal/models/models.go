package models

import (
	"time"
)

// Target is one postal-code/city entity to be processed in a run.
// Built once from the reference list and never mutated.
type Target struct {
	PostalCode string   `json:"postal_code"`
	CityName   string   `json:"city_name"`
	Slug       string   `json:"slug"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
}

type FetchStatus string

const (
	FetchOK             FetchStatus = "ok"
	FetchNotFound       FetchStatus = "not_found"
	FetchBlocked        FetchStatus = "blocked"
	FetchTransportError FetchStatus = "transport_error"
)

// StructureClass buckets a page by its table/row counts.
type StructureClass string

const (
	ClassSmall  StructureClass = "small"
	ClassMedium StructureClass = "medium"
	ClassLarge  StructureClass = "large"
)

// StructureInfo carries the structural class plus the raw counts it
// was derived from, for diagnostics.
type StructureInfo struct {
	Class      StructureClass `json:"class"`
	TableCount int            `json:"table_count"`
	RowCount   int            `json:"row_count"`
}

// TraceEntry records what a single strategy contributed.
type TraceEntry struct {
	Strategy string `json:"strategy"`
	MatchedA bool   `json:"matched_a"`
	MatchedB bool   `json:"matched_b"`
	Note     string `json:"note,omitempty"`
}

// ExtractionResult is the merged output of one orchestration pass.
// LocalPrice and GreenPrice are EUR per kWh; nil means not found.
type ExtractionResult struct {
	LocalPrice *float64     `json:"local_price,omitempty"`
	GreenPrice *float64     `json:"green_price,omitempty"`
	Method     string       `json:"method,omitempty"`
	Trace      []TraceEntry `json:"trace"`
}

type OutlierSeverity string

const (
	SeverityNormal   OutlierSeverity = "normal"
	SeverityHigh     OutlierSeverity = "high"
	SeverityVeryHigh OutlierSeverity = "very_high"
	SeverityExtreme  OutlierSeverity = "extreme"
)

// OutlierVerdict annotates a price pair; it never blocks persistence.
type OutlierVerdict struct {
	HasOutlier bool            `json:"has_outlier"`
	Severity   OutlierSeverity `json:"severity"`
	Reasons    []string        `json:"reasons,omitempty"`
}

// PriceRecord is the persisted result for one postal code and month.
// At most one record exists per (period, postal_code).
type PriceRecord struct {
	ID              int64           `json:"id"`
	Period          string          `json:"period"` // YYYY-MM
	PostalCode      string          `json:"postal_code"`
	CityName        string          `json:"city_name"`
	Latitude        *float64        `json:"latitude,omitempty"`
	Longitude       *float64        `json:"longitude,omitempty"`
	LocalPrice      *float64        `json:"local_price,omitempty"`
	GreenPrice      *float64        `json:"green_price,omitempty"`
	AveragePrice    *float64        `json:"average_price,omitempty"`
	IsOutlier       bool            `json:"is_outlier"`
	OutlierSeverity OutlierSeverity `json:"outlier_severity"`
	SourceURL       string          `json:"source_url"`
	Method          string          `json:"extraction_method"`
	StructureClass  StructureClass  `json:"structure_class"`
	ElapsedMs       int64           `json:"elapsed_ms"`
	CreatedAt       time.Time       `json:"created_at"`
}

type SessionStatus string

const (
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// RunSession is the bookkeeping record for one full run.
type RunSession struct {
	ID           string        `json:"id"`
	Period       string        `json:"period"`
	PlannedCount int           `json:"planned_count"`
	Processed    int           `json:"processed_count"`
	Succeeded    int           `json:"success_count"`
	Failed       int           `json:"failure_count"`
	Status       SessionStatus `json:"status"`
	Notes        string        `json:"notes,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
}

// RunStats are the counters accumulated by a coordinator run.
type RunStats struct {
	Planned   int `json:"planned"`
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Outliers  int `json:"outliers"`
}

// Period returns the current year-month key, e.g. "2026-09".
func Period(t time.Time) string {
	return t.Format("2006-01")
}

// AverageOf returns the mean of the non-nil prices, or nil when both
// are missing.
func AverageOf(a, b *float64) *float64 {
	switch {
	case a != nil && b != nil:
		avg := (*a + *b) / 2
		return &avg
	case a != nil:
		v := *a
		return &v
	case b != nil:
		v := *b
		return &v
	default:
		return nil
	}
}
