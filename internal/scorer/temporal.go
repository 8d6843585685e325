package scorer

import (
	"fmt"
	"math"

	"github.com/HashimCodeDev/stve/internal/config"
	"github.com/HashimCodeDev/stve/internal/model"
)

// temporalScore compares value against this sensor's own recent history
// of parameter p: a flat window means a stuck probe, a strong slope over
// the wider drift window means calibration drift, and otherwise a
// percentage change from the window mean is banded into normal/spike.
//
// priorAll is newest-first and may be as long as the drift window; the
// static/change checks use only its first HistoryWindow entries.
func temporalScore(value float64, priorAll []float64, p model.Parameter, cfg config.Config) (score float64, cause model.RootCause, flag string) {
	if len(priorAll) < 2 {
		return 1.0, model.CauseNormal, ""
	}

	historyWindow := cfg.Windows.HistoryWindow
	if historyWindow <= 0 {
		historyWindow = 10
	}
	window := priorAll
	if len(window) > historyWindow {
		window = window[:historyWindow]
	}

	min, max := minMax(window)
	if rng := max - min; rng < cfg.StaticThresholds.Get(string(p)) {
		return 0.2, model.CauseStatic, fmt.Sprintf("%s: static probe (range %.3f below threshold)", p, rng)
	}

	driftWindow := cfg.Windows.DriftWindow
	if driftWindow <= 0 {
		driftWindow = 20
	}
	drift := priorAll
	if len(drift) > driftWindow {
		drift = drift[:driftWindow]
	}
	if len(drift) >= 5 {
		slope := linregSlope(drift)
		if thr := cfg.DriftThresholds.Get(string(p)); math.Abs(slope) > thr {
			return 0.4, model.CauseDrift, fmt.Sprintf("%s: drifting (slope %.4f exceeds %.4f)", p, slope, thr)
		}
	}

	mu := mean(window)
	if mu == 0 {
		return 1.0, model.CauseNormal, ""
	}
	changePct := math.Abs(value-mu) / math.Abs(mu) * 100

	band := cfg.TemporalThresholds.Get(string(p))
	switch {
	case changePct <= band.Normal:
		return 1.0, model.CauseNormal, ""
	case changePct <= band.Moderate:
		return 0.6, model.CauseSpike, fmt.Sprintf("%s: moderate change (%.1f%% vs own history)", p, changePct)
	default:
		return 0.1, model.CauseSpike, fmt.Sprintf("%s: sharp change (%.1f%% vs own history)", p, changePct)
	}
}
