package scorer

import (
	"gonum.org/v1/gonum/stat"

	"github.com/HashimCodeDev/stve/internal/model"
)

// linregSlope fits a line to values-vs-index and returns its slope.
// values is newest-first, matching how the Store and Context hand history
// around; the regression itself needs chronological order since slope is
// a rate of change over time, not over recency.
func linregSlope(valuesNewestFirst []float64) float64 {
	n := len(valuesNewestFirst)
	if n < 2 {
		return 0
	}
	chronological := make([]float64, n)
	for i, v := range valuesNewestFirst {
		chronological[n-1-i] = v
	}
	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
	}
	_, beta := stat.LinearRegression(x, chronological, nil, false)
	return beta
}

// healthTrend derives direction, slope and anomaly rate from a sensor's
// prior TrustResults (newest-first, not including the verdict in
// progress). Fewer than three prior results is not enough signal to call
// a direction.
func healthTrend(history []model.TrustResult) (model.Trend, float64, float64) {
	if len(history) < 3 {
		return model.TrendUnknown, 0, 0
	}

	scores := make([]float64, len(history))
	anomalous := 0
	for i, tr := range history {
		scores[i] = tr.Score
		if tr.Status == model.StatusAnomalous {
			anomalous++
		}
	}

	slope := round4(linregSlope(scores))
	anomalyRate := round4(float64(anomalous) / float64(len(history)))

	switch {
	case slope > 0.01:
		return model.TrendImproving, slope, anomalyRate
	case slope < -0.01:
		return model.TrendDegrading, slope, anomalyRate
	default:
		return model.TrendStable, slope, anomalyRate
	}
}
