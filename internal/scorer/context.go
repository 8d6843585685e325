package scorer

import (
	"github.com/HashimCodeDev/stve/internal/config"
	"github.com/HashimCodeDev/stve/internal/model"
)

// Context bundles everything the Scorer needs to evaluate one reading.
// The Ingestor assembles it from Store reads; the Scorer never touches
// the Store directly, keeping it pure and independently testable.
type Context struct {
	Config config.Config

	// Reading is the sample being scored. Ref and SensorRef must already
	// be populated (the Ingestor fills them in after AppendReading).
	Reading model.Reading

	// OwnHistory10 is this sensor's current reading plus up to
	// Windows.HistoryWindow prior readings, newest-first (index 0 is
	// Reading itself).
	OwnHistory10 []model.Reading

	// OwnHistory20 is the same but out to Windows.DriftWindow, used for
	// the drift-slope check.
	OwnHistory20 []model.Reading

	// PeerLatest holds each same-zone peer's most recent reading, keyed
	// by sensor ref, excluding the subject sensor.
	PeerLatest map[string]model.Reading

	// PeerHistory holds each peer's own latest reading plus up to
	// HistoryWindow priors, newest-first, used to tell a field event
	// (peers also moved) apart from a lone sensor fault.
	PeerHistory map[string][]model.Reading

	// PeerLatestScore holds each peer's most recent trust score, used
	// for the zone-reliability figure.
	PeerLatestScore map[string]float64

	// TrustHistory is this sensor's last up to Windows.TrendWindow prior
	// TrustResults, newest-first. It never includes the verdict being
	// computed now.
	TrustHistory []model.TrustResult
}

// priorCount returns how many readings preceded the current one, across
// the widest window available.
func (c Context) priorCount() int {
	if len(c.OwnHistory20) > 0 {
		return len(c.OwnHistory20) - 1
	}
	return len(c.OwnHistory10) - 1
}

func probeValues(readings []model.Reading, p model.Parameter) []float64 {
	values := make([]float64, 0, len(readings))
	for _, r := range readings {
		if v := r.Probe(p); v != nil {
			values = append(values, *v)
		}
	}
	return values
}
