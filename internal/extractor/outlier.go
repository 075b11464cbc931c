package extractor

import (
	"fmt"

	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/models"
)

// OutlierValidator classifies a completed price pair into severity
// buckets. The verdict only annotates; it never blocks persistence.
type OutlierValidator struct {
	high     float64
	veryHigh float64
	extreme  float64
}

func NewOutlierValidator(high, veryHigh, extreme float64) *OutlierValidator {
	return &OutlierValidator{high: high, veryHigh: veryHigh, extreme: extreme}
}

// Evaluate returns the maximum severity triggered by either field.
// Values at or above the extreme threshold should already have been
// rejected by the price parser's valid range; mapping them anyway keeps
// the verdict honest if one is supplied directly.
func (v *OutlierValidator) Evaluate(local, green *float64) models.OutlierVerdict {
	verdict := models.OutlierVerdict{Severity: models.SeverityNormal}

	v.check(&verdict, "local_price", local)
	v.check(&verdict, "green_price", green)

	return verdict
}

func (v *OutlierValidator) check(verdict *models.OutlierVerdict, name string, price *float64) {
	if price == nil {
		return
	}

	var severity models.OutlierSeverity
	switch {
	case *price >= v.extreme:
		severity = models.SeverityExtreme
	case *price >= v.veryHigh:
		severity = models.SeverityVeryHigh
	case *price >= v.high:
		severity = models.SeverityHigh
	default:
		return
	}

	verdict.HasOutlier = true
	verdict.Reasons = append(verdict.Reasons, fmt.Sprintf("%s %.4f EUR/kWh >= %s threshold", name, *price, severity))
	if rank(severity) > rank(verdict.Severity) {
		verdict.Severity = severity
	}
}

func rank(s models.OutlierSeverity) int {
	switch s {
	case models.SeverityHigh:
		return 1
	case models.SeverityVeryHigh:
		return 2
	case models.SeverityExtreme:
		return 3
	default:
		return 0
	}
}
