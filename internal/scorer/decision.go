package scorer

import (
	"github.com/HashimCodeDev/stve/internal/config"
	"github.com/HashimCodeDev/stve/internal/model"
)

// statusAndLabel bands the aggregate trust score into the coarse status
// the dashboard and ticketing logic key off of.
func statusAndLabel(trust float64, bands config.TrustBands) (model.Status, string) {
	switch {
	case trust >= bands.HighlyReliable:
		return model.StatusHealthy, "Highly Reliable"
	case trust >= bands.Reliable:
		return model.StatusHealthy, "Reliable"
	case trust >= bands.Uncertain:
		return model.StatusWarning, "Uncertain"
	case trust >= bands.Unreliable:
		return model.StatusAnomalous, "Unreliable"
	default:
		return model.StatusAnomalous, "Anomaly"
	}
}

// confidenceLevel is a coarser three-step summary of the trust score,
// separate from Status/Label, used by downstream consumers that want a
// simple high/medium/low signal without the band vocabulary.
func confidenceLevel(trust float64) float64 {
	switch {
	case trust > 0.85:
		return 0.9
	case trust > 0.70:
		return 0.6
	default:
		return 0.3
	}
}

// irrigationSafe reports whether this reading can be trusted to drive an
// irrigation decision: a decent trust score with no impossible-value or
// zone-mismatch root cause.
func irrigationSafe(trust float64, causes []model.RootCause) bool {
	if trust < 0.75 {
		return false
	}
	for _, c := range causes {
		if c == model.CauseImpossibleValue || c == model.CauseZoneMismatch {
			return false
		}
	}
	return true
}

// failurePrediction flags sensors on a clear downward trajectory, ahead
// of them crossing into an unreliable band outright.
func failurePrediction(trend model.Trend, slope, anomalyRate float64) *string {
	msg := "trust trend suggests this sensor may become unreliable soon"
	if slope < -0.03 {
		return &msg
	}
	if trend == model.TrendDegrading && anomalyRate > 0.3 {
		return &msg
	}
	return nil
}

// zoneReliability averages same-zone peers' latest trust scores; nil
// when no peer has a trust result yet (e.g. a brand-new zone).
func zoneReliability(peerScores map[string]float64) *float64 {
	if len(peerScores) == 0 {
		return nil
	}
	values := make([]float64, 0, len(peerScores))
	for _, s := range peerScores {
		values = append(values, s)
	}
	avg := round4(mean(values))
	return &avg
}

// sustainabilityInsight flags the specific case of an irrigation cycle
// running on a reading too untrustworthy to justify it, since that's the
// scenario the engine's water-saving mandate cares about most directly.
func sustainabilityInsight(reading model.Reading, safe bool) *string {
	if reading.IrrigationActive != nil && *reading.IrrigationActive && !safe {
		msg := "irrigation is active on a reading that is not trusted enough to confirm it's needed"
		return &msg
	}
	return nil
}

// alertTag gives the operator-facing message for a ticket/dashboard
// badge; Low and None severities carry no alert text.
func alertTag(sev model.Severity) *string {
	var tag string
	switch sev {
	case model.SeverityCritical:
		tag = "Immediate attention required"
	case model.SeverityHigh:
		tag = "Urgent maintenance required"
	case model.SeverityMedium:
		tag = "Monitor sensor"
	default:
		return nil
	}
	return &tag
}
