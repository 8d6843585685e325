package scorer

import (
	"fmt"
	"math"

	"github.com/HashimCodeDev/stve/internal/config"
	"github.com/HashimCodeDev/stve/internal/model"
)

// physicalScore is computed once per reading and shared across all four
// parameters' aggregation, unlike the per-parameter temporal and
// cross-zone axes. It starts at 1.0 and is knocked down by itemized
// penalties, except that any probe outside its physically possible range
// short-circuits straight to ImpossibleValue.
func physicalScore(reading model.Reading, prev *model.Reading, cfg config.Config) (score float64, causes []model.RootCause, flags []string) {
	for _, p := range model.Parameters {
		v := reading.Probe(p)
		if v == nil {
			continue
		}
		if !cfg.PhysicalLimits.Get(string(p)).Contains(*v) {
			return 0.1, []model.RootCause{model.CauseImpossibleValue},
				[]string{fmt.Sprintf("%s: value %.3f outside physically possible range", p, *v)}
		}
	}

	score = 1.0
	penalties := cfg.PhysicalPenalties

	if reading.Moisture != nil && *reading.Moisture > 85 {
		raining := reading.IsRaining != nil && *reading.IsRaining
		irrigating := reading.IrrigationActive != nil && *reading.IrrigationActive
		if !raining && !irrigating {
			score -= penalties.HighMoistureNoRain
			causes = append(causes, model.CauseWeatherMismatch)
			flags = append(flags, "moisture: saturated with no rain or irrigation in progress")
		}
	}

	if reading.Temperature != nil && reading.AirTemp != nil {
		if gap := math.Abs(*reading.Temperature - *reading.AirTemp); gap > 10 {
			score -= penalties.SoilAirTempGap
			causes = append(causes, model.CauseWeatherMismatch)
			flags = append(flags, fmt.Sprintf("temperature: %.1f°C gap from ambient air", gap))
		}
	}

	if prev != nil {
		if reading.PH != nil && prev.PH != nil {
			if jump := math.Abs(*reading.PH - *prev.PH); jump > 1.5 {
				score -= penalties.PHJump
				causes = append(causes, model.CauseSpike)
				flags = append(flags, fmt.Sprintf("ph: jumped %.2f from previous reading", jump))
			}
		}
		if reading.EC != nil && prev.EC != nil && *prev.EC != 0 {
			if changePct := math.Abs(*reading.EC-*prev.EC) / math.Abs(*prev.EC) * 100; changePct > 25 {
				score -= penalties.ECSpike
				causes = append(causes, model.CauseSpike)
				flags = append(flags, fmt.Sprintf("ec: changed %.1f%% from previous reading", changePct))
			}
		}
	}

	if score < 0.1 {
		score = 0.1
	}
	return score, causes, flags
}
