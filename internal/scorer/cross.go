package scorer

import (
	"fmt"
	"math"

	"github.com/HashimCodeDev/stve/internal/config"
	"github.com/HashimCodeDev/stve/internal/model"
)

// crossScore compares value against the mean of same-zone peers' latest
// value for parameter p. A normal or moderate deviation is banded like
// the temporal axis; an extreme deviation is attributed to either a lone
// sensor fault (ZoneMismatch) or a real field event (FieldEvent),
// decided by whether peers show their own comparable movement.
func crossScore(value float64, peerValues []float64, peerChangePct float64, p model.Parameter, cfg config.Config) (score float64, cause model.RootCause, flag string) {
	if len(peerValues) == 0 {
		return 1.0, model.CauseNormal, ""
	}

	muZ := mean(peerValues)
	if muZ == 0 {
		return 1.0, model.CauseNormal, ""
	}
	devPct := math.Abs(value-muZ) / math.Abs(muZ) * 100

	band := cfg.CrossThresholds.Get(string(p))
	switch {
	case devPct <= band.Normal:
		return 1.0, model.CauseNormal, ""
	case devPct <= band.Moderate:
		return 0.6, model.CauseSpike, fmt.Sprintf("%s: moderate deviation from zone peers (%.1f%%)", p, devPct)
	}

	if peerChangePct > band.Normal {
		return 0.5, model.CauseFieldEvent, fmt.Sprintf("%s: zone-wide movement, consistent with a field event (%.1f%% vs peers)", p, devPct)
	}
	return 0.1, model.CauseZoneMismatch, fmt.Sprintf("%s: isolated from zone peers (%.1f%% deviation)", p, devPct)
}

// peerMeanChangePct recomputes each peer's own percentage change against
// its own history window for parameter p, then averages across peers
// that have enough history to judge. Peers with fewer than two values
// are excluded rather than treated as zero change, so a zone of mostly
// brand-new sensors doesn't bias the result toward ZoneMismatch.
func peerMeanChangePct(peerHistory map[string][]model.Reading, p model.Parameter, historyWindow int) float64 {
	if historyWindow <= 0 {
		historyWindow = 10
	}
	var pcts []float64
	for _, readings := range peerHistory {
		values := probeValues(readings, p)
		if len(values) < 2 {
			continue
		}
		current := values[0]
		window := values[1:]
		if len(window) > historyWindow {
			window = window[:historyWindow]
		}
		mu := mean(window)
		if mu == 0 {
			continue
		}
		pcts = append(pcts, math.Abs(current-mu)/math.Abs(mu)*100)
	}
	if len(pcts) == 0 {
		return 0
	}
	return mean(pcts)
}
