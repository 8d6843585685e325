// Package aggregate supplies the read-only views spec.md §6 names but
// does not assign a package: DashboardSummary, ZoneStatistics, GetSensor,
// ListSensors and GetTrustHistory. These bypass the Ingestor's per-sensor
// lock entirely and read straight from the Store (spec.md §9: "Aggregate
// readers bypass it and use Store read snapshots"). Grounded on the
// teacher's db/queries.go read-query idiom — plain scans into typed
// structs, no cross-entity joins beyond what a single query needs.
package aggregate

import (
	"github.com/HashimCodeDev/stve/internal/model"
	"github.com/HashimCodeDev/stve/internal/store"
)

// Reader serves the dashboard/history query surface.
type Reader struct {
	store store.Store
}

func New(st store.Store) *Reader {
	return &Reader{store: st}
}

// SensorView is one sensor's identity plus its latest reading and trust
// verdict, the shape GetSensor/ListSensors return.
type SensorView struct {
	Sensor        model.Sensor
	LatestReading *model.Reading
	LatestTrust   *model.TrustResult
}

func (r *Reader) GetSensor(sensorRef string) (SensorView, error) {
	sensor, err := r.store.GetSensorByRef(sensorRef)
	if err != nil {
		return SensorView{}, err
	}
	return r.buildView(sensor)
}

func (r *Reader) ListSensors() ([]SensorView, error) {
	sensors, err := r.store.ListSensors()
	if err != nil {
		return nil, err
	}
	views := make([]SensorView, 0, len(sensors))
	for _, s := range sensors {
		v, err := r.buildView(s)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func (r *Reader) buildView(sensor model.Sensor) (SensorView, error) {
	view := SensorView{Sensor: sensor}

	readings, err := r.store.RecentReadings(sensor.Ref, 1)
	if err != nil {
		return SensorView{}, err
	}
	if len(readings) > 0 {
		view.LatestReading = &readings[0]
	}

	trustResults, err := r.store.RecentTrustResults(sensor.Ref, 1)
	if err != nil {
		return SensorView{}, err
	}
	if len(trustResults) > 0 {
		view.LatestTrust = &trustResults[0]
	}
	return view, nil
}

// GetTrustHistory returns up to limit of a sensor's past verdicts,
// newest-first.
func (r *Reader) GetTrustHistory(sensorRef string, limit int) ([]model.TrustResult, error) {
	return r.store.RecentTrustResults(sensorRef, limit)
}

// DashboardSummary is counts by status and by severity across the whole
// fleet, from each sensor's latest trust verdict.
type DashboardSummary struct {
	ByStatus   map[model.Status]int
	BySeverity map[model.Severity]int
	Total      int
}

func (r *Reader) DashboardSummary() (DashboardSummary, error) {
	latest, err := r.store.LatestTrustPerSensor()
	if err != nil {
		return DashboardSummary{}, err
	}
	summary := DashboardSummary{
		ByStatus:   make(map[model.Status]int),
		BySeverity: make(map[model.Severity]int),
		Total:      len(latest),
	}
	for _, tr := range latest {
		summary.ByStatus[tr.Status]++
		summary.BySeverity[tr.Severity]++
	}
	return summary, nil
}

// ZoneCounts is one zone's status breakdown.
type ZoneCounts struct {
	Healthy   int
	Warning   int
	Anomalous int
	Total     int
}

// ZoneStatistics returns per-zone status counts across the fleet.
func (r *Reader) ZoneStatistics() (map[string]ZoneCounts, error) {
	sensors, err := r.store.ListSensors()
	if err != nil {
		return nil, err
	}
	latest, err := r.store.LatestTrustPerSensor()
	if err != nil {
		return nil, err
	}

	zones := make(map[string]ZoneCounts)
	for _, s := range sensors {
		counts := zones[s.Zone]
		counts.Total++
		if tr, ok := latest[s.Ref]; ok {
			switch tr.Status {
			case model.StatusHealthy:
				counts.Healthy++
			case model.StatusWarning:
				counts.Warning++
			case model.StatusAnomalous:
				counts.Anomalous++
			}
		}
		zones[s.Zone] = counts
	}
	return zones, nil
}
