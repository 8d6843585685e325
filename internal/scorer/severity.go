package scorer

import "github.com/HashimCodeDev/stve/internal/model"

// severity maps a root-cause set and aggregate trust score onto the
// ticketing urgency ladder. Checks run in fixed order and the first
// match wins, so a reading can only ever resolve to one severity.
func severity(causes []model.RootCause, trust float64) model.Severity {
	has := func(c model.RootCause) bool {
		for _, rc := range causes {
			if rc == c {
				return true
			}
		}
		return false
	}

	switch {
	case has(model.CauseImpossibleValue):
		return model.SeverityCritical
	case trust < 0.15:
		return model.SeverityCritical
	case has(model.CauseZoneMismatch) && trust < 0.5:
		return model.SeverityHigh
	case has(model.CauseSpike) && trust < 0.5:
		return model.SeverityHigh
	case has(model.CauseStatic):
		return model.SeverityHigh
	case has(model.CauseDrift):
		return model.SeverityMedium
	case has(model.CauseWeatherMismatch):
		return model.SeverityMedium
	case trust < 0.65:
		return model.SeverityLow
	default:
		return model.SeverityNone
	}
}
