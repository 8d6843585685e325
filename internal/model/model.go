// Package model defines the core data types of the sensor trust
// verification engine: sensors, readings, trust verdicts and maintenance
// tickets, plus the closed enumerations they're built from.
package model

import "time"

// Status is the coarse health band a TrustResult resolves to.
type Status string

const (
	StatusHealthy   Status = "Healthy"
	StatusWarning   Status = "Warning"
	StatusAnomalous Status = "Anomalous"
)

// Severity is the operational urgency tag driving ticket prioritization.
// Ordered None < Low < Medium < High < Critical; Rank gives that ordering
// a comparable integer so monotonicity checks (ticket severity raises,
// never lowers) are a plain comparison.
type Severity string

const (
	SeverityNone     Severity = "None"
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

var severityRank = map[Severity]int{
	SeverityNone:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank returns the ordinal position of s in the severity ordering.
// Unknown severities rank below SeverityNone so they never win a max().
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return -1
}

// MaxSeverity returns the higher-ranked of a and b, implementing the
// monotonic-raise policy tickets use when re-diagnosed.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// RootCause is a tag from the closed set identifying why a score deviated
// from 1.0.
type RootCause string

const (
	CauseNormal          RootCause = "Normal"
	CauseSpike           RootCause = "Spike"
	CauseStatic          RootCause = "Static"
	CauseDrift           RootCause = "Drift"
	CauseZoneMismatch    RootCause = "ZoneMismatch"
	CauseWeatherMismatch RootCause = "WeatherMismatch"
	CauseFieldEvent      RootCause = "FieldEvent"
	CauseImpossibleValue RootCause = "ImpossibleValue"
)

// Trend describes the direction of a sensor's recent trust history.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDegrading Trend = "degrading"
	TrendStable    Trend = "stable"
	TrendUnknown   Trend = "unknown"
)

// Parameter identifies one of the four measured probes.
type Parameter string

const (
	ParamMoisture    Parameter = "moisture"
	ParamTemperature Parameter = "temperature"
	ParamEC          Parameter = "ec"
	ParamPH          Parameter = "ph"
)

// Parameters lists the four probes in the fixed order used wherever the
// scorer or store needs a stable iteration order.
var Parameters = []Parameter{ParamMoisture, ParamTemperature, ParamEC, ParamPH}

// Sensor is the immutable (except Zone) identity of a fleet member.
type Sensor struct {
	Ref         string
	ExternalID  string
	Zone        string
	Type        string
	Lat         *float64
	Lon         *float64
	InstalledAt time.Time
}

// Reading is one append-only, time-stamped sample from a sensor.
type Reading struct {
	Ref               string
	SensorRef         string
	Timestamp         time.Time
	Moisture          *float64
	Temperature       *float64
	EC                *float64
	PH                *float64
	AirTemp           *float64
	IsRaining         *bool
	IrrigationActive  *bool
}

// Probe returns the value of parameter p on this reading, or nil if absent.
func (r Reading) Probe(p Parameter) *float64 {
	switch p {
	case ParamMoisture:
		return r.Moisture
	case ParamTemperature:
		return r.Temperature
	case ParamEC:
		return r.EC
	case ParamPH:
		return r.PH
	default:
		return nil
	}
}

// ParameterScore captures the three-axis breakdown for a single parameter.
type ParameterScore struct {
	Parameter        Parameter
	TemporalScore    float64
	TemporalCause    RootCause
	CrossScore       float64
	CrossCause       RootCause
	PhysicalScore    float64
	ParamTrust       float64
}

// TrustResult is the verdict produced for one (sensor, reading) pair.
type TrustResult struct {
	Ref                    string
	SensorRef              string
	ReadingRef             string
	Score                  float64
	Status                 Status
	Label                  string
	Severity               Severity
	PerParameter           map[Parameter]ParameterScore
	RootCauses             []RootCause
	HealthTrend            Trend
	TrendSlope             float64
	AnomalyRate            float64
	IrrigationSafe         bool
	FailurePrediction      *string
	ConfidenceLevel        float64
	ZoneReliability        *float64
	SustainabilityInsight  *string
	AlertTag               *string
	Flags                  []string
	EvaluatedAt            time.Time
}

// HasCause reports whether c is present in the verdict's root-cause set.
func (t TrustResult) HasCause(c RootCause) bool {
	for _, rc := range t.RootCauses {
		if rc == c {
			return true
		}
	}
	return false
}

// TicketStatus is the lifecycle state of a maintenance ticket.
type TicketStatus string

const (
	TicketOpen       TicketStatus = "Open"
	TicketInProgress TicketStatus = "InProgress"
	TicketResolved   TicketStatus = "Resolved"
)

// Ticket is a persistent maintenance record opened when a sensor is
// diagnosed Anomalous for real (non-field-event) reasons.
type Ticket struct {
	Ref        string
	SensorRef  string
	Issue      string
	Severity   Severity
	Status     TicketStatus
	CreatedAt  time.Time
	ResolvedAt *time.Time
}
