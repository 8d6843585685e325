package ingestor

import (
	"fmt"
	"time"

	"github.com/HashimCodeDev/stve/internal/apperr"
)

// ReadingPayload is an already-typed reading submission; constructing one
// directly (as tests and IngestBatch's typed callers do) can never fail
// with InvalidReading — that only happens when raw, loosely-typed input
// (decoded JSON bodies) is parsed into one via ParseReadingPayload.
type ReadingPayload struct {
	Timestamp        time.Time
	Moisture         *float64
	Temperature      *float64
	EC               *float64
	PH               *float64
	AirTemp          *float64
	IsRaining        *bool
	IrrigationActive *bool
}

// ParseReadingPayload builds a ReadingPayload from a loosely-typed map,
// the shape produced by decoding an arbitrary JSON object. Numeric fields
// must already be numbers: a numeric string such as "30.5" is rejected
// with InvalidReading. Per spec.md §4.C's policy note, InvalidReading
// means a field is present but not parseable as a number — a value that
// parses fine but is outside physical range is left for the Scorer to
// flag as ImpossibleValue.
func ParseReadingPayload(raw map[string]any) (ReadingPayload, error) {
	var p ReadingPayload

	num := func(key string) (*float64, error) {
		v, ok := raw[key]
		if !ok || v == nil {
			return nil, nil
		}
		switch n := v.(type) {
		case float64:
			return &n, nil
		case int:
			f := float64(n)
			return &f, nil
		default:
			return nil, fmt.Errorf("field %q is not numeric: %w", key, apperr.ErrInvalidReading)
		}
	}

	boolean := func(key string) (*bool, error) {
		v, ok := raw[key]
		if !ok || v == nil {
			return nil, nil
		}
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("field %q is not boolean: %w", key, apperr.ErrInvalidReading)
		}
		return &b, nil
	}

	var err error
	if p.Moisture, err = num("moisture"); err != nil {
		return ReadingPayload{}, err
	}
	if p.Temperature, err = num("temperature"); err != nil {
		return ReadingPayload{}, err
	}
	if p.EC, err = num("ec"); err != nil {
		return ReadingPayload{}, err
	}
	if p.PH, err = num("ph"); err != nil {
		return ReadingPayload{}, err
	}
	if p.AirTemp, err = num("airTemp"); err != nil {
		return ReadingPayload{}, err
	}
	if p.IsRaining, err = boolean("isRaining"); err != nil {
		return ReadingPayload{}, err
	}
	if p.IrrigationActive, err = boolean("irrigationActive"); err != nil {
		return ReadingPayload{}, err
	}

	if ts, ok := raw["timestamp"]; ok && ts != nil {
		s, ok := ts.(string)
		if !ok {
			return ReadingPayload{}, fmt.Errorf("field \"timestamp\" is not a string: %w", apperr.ErrInvalidReading)
		}
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return ReadingPayload{}, fmt.Errorf("field \"timestamp\" is not RFC3339: %w", apperr.ErrInvalidReading)
		}
		p.Timestamp = parsed
	}

	return p, nil
}
