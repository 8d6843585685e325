package config

import "testing"

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.validate(); err != nil {
		t.Fatalf("Default() config should validate, got: %v", err)
	}
}

func TestValidateRejectsBadWeights(t *testing.T) {
	cfg := Default()
	cfg.Weights.Temporal = 0.5
	if err := cfg.validate(); err == nil {
		t.Fatal("expected error for weights not summing to 1")
	}
}

func TestValidateRejectsNonDescendingBands(t *testing.T) {
	cfg := Default()
	cfg.TrustBandsCfg.Reliable = 0.9
	if err := cfg.validate(); err == nil {
		t.Fatal("expected error for non-descending trust bands")
	}
}

func TestValidateRejectsInvertedPhysicalLimits(t *testing.T) {
	cfg := Default()
	cfg.PhysicalLimits.PH = Range{Min: 10, Max: 3}
	if err := cfg.validate(); err == nil {
		t.Fatal("expected error for inverted physical limits")
	}
}

func TestPerParameterGet(t *testing.T) {
	cfg := Default()
	if got := cfg.TemporalThresholds.Get("moisture"); got != cfg.TemporalThresholds.Moisture {
		t.Fatalf("Get(moisture) = %+v, want %+v", got, cfg.TemporalThresholds.Moisture)
	}
	if got := cfg.TemporalThresholds.Get("unknown"); got != (Band{}) {
		t.Fatalf("Get(unknown) = %+v, want zero value", got)
	}
}
