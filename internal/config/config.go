// Package config loads the single immutable configuration object the
// Scorer, Store and adapters are built from: weights, physical limits,
// thresholds, windows and trust bands (spec.md §6), plus the ambient
// logging/metrics/storage settings the teacher's loader carries.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Range is an inclusive (min, max) physical bound for a probe.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Band is a (normal, moderate) pair of percentage thresholds used to
// classify temporal and cross-zone deviation.
type Band struct {
	Normal   float64 `json:"normal"`
	Moderate float64 `json:"moderate"`
}

// Weights are the three-axis aggregation weights; must sum to 1.
type Weights struct {
	Temporal float64 `json:"temporal"`
	Cross    float64 `json:"cross"`
	Physical float64 `json:"physical"`
}

// PhysicalPenalties are the fixed deductions physical-plausibility checks
// apply.
type PhysicalPenalties struct {
	HighMoistureNoRain float64 `json:"highMoistureNoRain"`
	SoilAirTempGap     float64 `json:"soilAirTempGap"`
	PHJump             float64 `json:"phJump"`
	ECSpike            float64 `json:"ecSpike"`
}

// TrustBands are the descending score thresholds for status/label
// assignment.
type TrustBands struct {
	HighlyReliable float64 `json:"highlyReliable"`
	Reliable       float64 `json:"reliable"`
	Uncertain      float64 `json:"uncertain"`
	Unreliable     float64 `json:"unreliable"`
}

// Windows are the history depths the Scorer and Store operate over.
type Windows struct {
	HistoryWindow int `json:"historyWindow"`
	DriftWindow   int `json:"driftWindow"`
	TrendWindow   int `json:"trendWindow"`
}

// PerParameter holds one value of type T per probe.
type PerParameter[T any] struct {
	Moisture    T `json:"moisture"`
	Temperature T `json:"temperature"`
	EC          T `json:"ec"`
	PH          T `json:"ph"`
}

func (p PerParameter[T]) Get(param string) T {
	switch param {
	case "moisture":
		return p.Moisture
	case "temperature":
		return p.Temperature
	case "ec":
		return p.EC
	case "ph":
		return p.PH
	default:
		var zero T
		return zero
	}
}

// Config is the single immutable configuration object loaded at startup.
// The Scorer receives a reference and never mutates it.
type Config struct {
	ConfigFile string `json:"-"`
	DBPath     string `json:"dbPath"`
	LogLevel   zerolog.Level `json:"-"`
	LogFile    string `json:"logFile"`

	HTTPPort int `json:"httpPort"`

	DDAgentAddr   string   `json:"ddAgentAddr"`
	DDNamespace   string   `json:"ddNamespace"`
	DDTags        []string `json:"ddTags"`
	EnableDatadog bool     `json:"enableDatadog"`

	NtfyTopic string `json:"ntfyTopic"`

	Weights           Weights                    `json:"weights"`
	PhysicalLimits    PerParameter[Range]         `json:"physicalLimits"`
	TemporalThresholds PerParameter[Band]         `json:"temporalThresholds"`
	StaticThresholds  PerParameter[float64]       `json:"staticThresholds"`
	DriftThresholds   PerParameter[float64]       `json:"driftThresholds"`
	CrossThresholds   PerParameter[Band]          `json:"crossThresholds"`
	PhysicalPenalties PhysicalPenalties           `json:"physicalPenalties"`
	TrustBandsCfg     TrustBands                  `json:"trustBands"`
	Windows           Windows                     `json:"windows"`

	BroadcastBufferSize int `json:"broadcastBufferSize"`
}

// Default returns the configuration described literally in spec.md §6/§8:
// weights 0.3/0.5/0.2, moisture thresholds 25/60 temporal and 25/50 cross,
// and the remaining probes' thresholds chosen in the same proportion to
// their physical ranges.
func Default() Config {
	return Config{
		DBPath:   "data/stve.db",
		LogFile:  "stve.log",
		HTTPPort: 8080,

		Weights: Weights{Temporal: 0.3, Cross: 0.5, Physical: 0.2},

		PhysicalLimits: PerParameter[Range]{
			Moisture:    Range{Min: 0, Max: 100},
			Temperature: Range{Min: 0, Max: 60},
			EC:          Range{Min: 0, Max: 10},
			PH:          Range{Min: 3, Max: 10},
		},

		TemporalThresholds: PerParameter[Band]{
			Moisture:    Band{Normal: 25, Moderate: 60},
			Temperature: Band{Normal: 20, Moderate: 50},
			EC:          Band{Normal: 25, Moderate: 60},
			PH:          Band{Normal: 15, Moderate: 40},
		},

		StaticThresholds: PerParameter[float64]{
			Moisture:    0.5,
			Temperature: 0.3,
			EC:          0.05,
			PH:          0.05,
		},

		DriftThresholds: PerParameter[float64]{
			Moisture:    1.5,
			Temperature: 1.0,
			EC:          0.15,
			PH:          0.1,
		},

		CrossThresholds: PerParameter[Band]{
			Moisture:    Band{Normal: 25, Moderate: 50},
			Temperature: Band{Normal: 20, Moderate: 45},
			EC:          Band{Normal: 25, Moderate: 50},
			PH:          Band{Normal: 15, Moderate: 35},
		},

		PhysicalPenalties: PhysicalPenalties{
			HighMoistureNoRain: 0.4,
			SoilAirTempGap:     0.3,
			PHJump:             0.3,
			ECSpike:            0.3,
		},

		TrustBandsCfg: TrustBands{
			HighlyReliable: 0.85,
			Reliable:       0.78,
			Uncertain:      0.73,
			Unreliable:     0.50,
		},

		Windows: Windows{
			HistoryWindow: 10,
			DriftWindow:   20,
			TrendWindow:   10,
		},

		BroadcastBufferSize: 32,
	}
}

// Load parses CLI flags for file locations, layers config.json over the
// Default(), then layers environment variables over that via viper —
// mirroring the teacher's flag + encoding/json loader, extended with an
// env overlay the way Sumatoshi-tech-codefang's viper setup does.
func Load() (Config, error) {
	cfg := Default()
	var logLevel string

	flag.StringVar(&cfg.ConfigFile, "config-file", "config.json", "Path to engine config file")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	cfg.LogLevel = parseLogLevel(logLevel)

	if cfg.ConfigFile != "" {
		if file, err := os.Open(cfg.ConfigFile); err == nil {
			defer file.Close()
			if err := json.NewDecoder(file).Decode(&cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	v := viper.New()
	v.SetEnvPrefix("STVE")
	v.AutomaticEnv()
	if v.IsSet("DB_PATH") {
		cfg.DBPath = v.GetString("DB_PATH")
	}
	if v.IsSet("HTTP_PORT") {
		cfg.HTTPPort = v.GetInt("HTTP_PORT")
	}
	if v.IsSet("DD_AGENT_ADDR") {
		cfg.DDAgentAddr = v.GetString("DD_AGENT_ADDR")
	}
	if v.IsSet("NTFY_TOPIC") {
		cfg.NtfyTopic = v.GetString("NTFY_TOPIC")
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// validate enforces the invariants spec.md §6 names: weights summing to
// 1 and strictly descending trust bands.
func (cfg *Config) validate() error {
	sum := cfg.Weights.Temporal + cfg.Weights.Cross + cfg.Weights.Physical
	if diff := sum - 1.0; diff > 1e-6 || diff < -1e-6 {
		return fmt.Errorf("weights must sum to 1, got %.4f", sum)
	}

	b := cfg.TrustBandsCfg
	if !(b.HighlyReliable > b.Reliable && b.Reliable > b.Uncertain && b.Uncertain > b.Unreliable) {
		return fmt.Errorf("trust bands must be strictly descending: %+v", b)
	}

	for _, p := range []string{"moisture", "temperature", "ec", "ph"} {
		lim := cfg.PhysicalLimits.Get(p)
		if lim.Min >= lim.Max {
			return fmt.Errorf("physicalLimits.%s: min must be less than max", p)
		}
	}

	return nil
}
