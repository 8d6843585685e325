// Package metrics wraps DataDog's statsd client the way the teacher's
// internal/datadog package does: a package-level client built once from
// config, nil-safe no-op when unconfigured, gauge/counter helpers named
// for what the core reports rather than how statsd works.
package metrics

import (
	"github.com/DataDog/datadog-go/statsd"
	"github.com/rs/zerolog/log"
)

var client *statsd.Client

// Init creates the DogStatsD client. Called once at startup; a failure
// here is non-fatal, matching the teacher's "Failed to create DogStatsD
// client" warn-and-continue behavior.
func Init(addr, namespace string, tags []string) {
	var err error
	client, err = statsd.New(addr)
	if err != nil {
		log.Warn().Err(err).Msg("failed to create dogstatsd client")
		return
	}
	client.Namespace = namespace
	client.Tags = tags

	log.Info().
		Str("addr", addr).
		Str("namespace", namespace).
		Strs("tags", tags).
		Msg("metrics initialized")
}

// Gauge reports the current value of a named metric, e.g. a sensor's
// latest trust score.
func Gauge(name string, value float64, tags ...string) {
	if client == nil {
		return
	}
	if err := client.Gauge(name, value, tags, 1); err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("failed to emit gauge metric")
	}
}

// Incr increments a named counter, e.g. ingests accepted or rejected.
func Incr(name string, tags ...string) {
	if client == nil {
		return
	}
	if err := client.Incr(name, tags, 1); err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("failed to emit counter metric")
	}
}
