// Package scorer is the Scorer component of spec.md §4.B: a pure,
// stateless function from a reading plus its surrounding context to a
// trust verdict. It never touches the Store; the Ingestor assembles a
// Context from Store reads and hands it over. Grounded on the teacher's
// internal/temperature anomaly-detection service, generalized from a
// single hard-coded probe to the four-parameter, three-axis model and
// using gonum.org/v1/gonum/stat for the regression work the teacher did
// by hand with a rolling window.
package scorer

import (
	"fmt"
	"sort"

	"github.com/HashimCodeDev/stve/internal/apperr"
	"github.com/HashimCodeDev/stve/internal/model"
)

// Score evaluates ctx.Reading and returns the resulting TrustResult. A
// nil result with a nil error means the sensor doesn't have enough
// history yet (spec.md's insufficient-history short circuit); callers
// must check for that case before touching the result.
func Score(ctx Context) (*model.TrustResult, error) {
	if ctx.Reading.SensorRef == "" {
		return nil, fmt.Errorf("reading missing sensor ref: %w", apperr.ErrScorerError)
	}
	if ctx.priorCount() < 5 {
		return nil, nil
	}

	var prev *model.Reading
	if len(ctx.OwnHistory10) > 1 {
		prev = &ctx.OwnHistory10[1]
	}

	physScore, physCauses, physFlags := physicalScore(ctx.Reading, prev, ctx.Config)

	perParam := make(map[model.Parameter]model.ParameterScore, len(model.Parameters))
	var causeSet []model.RootCause
	var flags []string

	historyWindow := ctx.Config.Windows.HistoryWindow

	for _, p := range model.Parameters {
		v := ctx.Reading.Probe(p)
		if v == nil {
			perParam[p] = model.ParameterScore{
				Parameter:     p,
				TemporalScore: 1.0,
				TemporalCause: model.CauseNormal,
				CrossScore:    1.0,
				CrossCause:    model.CauseNormal,
				PhysicalScore: physScore,
				ParamTrust:    round4(ctx.Config.Weights.Temporal + ctx.Config.Weights.Cross + ctx.Config.Weights.Physical*physScore),
			}
			continue
		}

		ownPriorAll := probeValues(ownHistoryTail(ctx.OwnHistory20, ctx.OwnHistory10), p)
		temporalSc, temporalCause, temporalFlag := temporalScore(*v, ownPriorAll, p, ctx.Config)

		peerValues := make([]float64, 0, len(ctx.PeerLatest))
		for _, peerReading := range ctx.PeerLatest {
			if pv := peerReading.Probe(p); pv != nil {
				peerValues = append(peerValues, *pv)
			}
		}
		peerChangePct := peerMeanChangePct(ctx.PeerHistory, p, historyWindow)
		crossSc, crossCause, crossFlag := crossScore(*v, peerValues, peerChangePct, p, ctx.Config)

		paramTrust := round4(ctx.Config.Weights.Temporal*temporalSc +
			ctx.Config.Weights.Cross*crossSc +
			ctx.Config.Weights.Physical*physScore)

		perParam[p] = model.ParameterScore{
			Parameter:     p,
			TemporalScore: temporalSc,
			TemporalCause: temporalCause,
			CrossScore:    crossSc,
			CrossCause:    crossCause,
			PhysicalScore: physScore,
			ParamTrust:    paramTrust,
		}

		if temporalCause != model.CauseNormal {
			causeSet = appendCause(causeSet, temporalCause)
		}
		if crossCause != model.CauseNormal {
			causeSet = appendCause(causeSet, crossCause)
		}
		if temporalFlag != "" {
			flags = append(flags, temporalFlag)
		}
		if crossFlag != "" {
			flags = append(flags, crossFlag)
		}
	}

	for _, c := range physCauses {
		causeSet = appendCause(causeSet, c)
	}
	flags = append(flags, physFlags...)

	if len(causeSet) == 0 {
		causeSet = []model.RootCause{model.CauseNormal}
	}
	sort.Slice(causeSet, func(i, j int) bool { return causeSet[i] < causeSet[j] })

	sum := 0.0
	for _, p := range model.Parameters {
		sum += perParam[p].ParamTrust
	}
	trust := round4(sum / float64(len(model.Parameters)))

	status, label := statusAndLabel(trust, ctx.Config.TrustBandsCfg)
	sev := severity(causeSet, trust)
	trend, slope, anomalyRate := healthTrend(ctx.TrustHistory)
	safe := irrigationSafe(trust, causeSet)

	result := &model.TrustResult{
		SensorRef:             ctx.Reading.SensorRef,
		ReadingRef:            ctx.Reading.Ref,
		Score:                 trust,
		Status:                status,
		Label:                 label,
		Severity:              sev,
		PerParameter:          perParam,
		RootCauses:            causeSet,
		HealthTrend:           trend,
		TrendSlope:            slope,
		AnomalyRate:           anomalyRate,
		IrrigationSafe:        safe,
		FailurePrediction:     failurePrediction(trend, slope, anomalyRate),
		ConfidenceLevel:       confidenceLevel(trust),
		ZoneReliability:       zoneReliability(ctx.PeerLatestScore),
		SustainabilityInsight: sustainabilityInsight(ctx.Reading, safe),
		AlertTag:              alertTag(sev),
		Flags:                 flags,
		EvaluatedAt:           ctx.Reading.Timestamp,
	}
	return result, nil
}

func appendCause(set []model.RootCause, c model.RootCause) []model.RootCause {
	for _, existing := range set {
		if existing == c {
			return set
		}
	}
	return append(set, c)
}

// ownHistoryTail picks the widest available history slice (skipping the
// current reading at index 0), preferring the drift-window slice since
// it's a superset of the history-window one.
func ownHistoryTail(drift20, history10 []model.Reading) []model.Reading {
	if len(drift20) > 1 {
		return drift20[1:]
	}
	if len(history10) > 1 {
		return history10[1:]
	}
	return nil
}
