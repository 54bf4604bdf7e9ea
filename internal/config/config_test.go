package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model != "kinematic_lag" {
		t.Errorf("expected model kinematic_lag, got %s", cfg.Model)
	}
	if cfg.MPC.Horizon <= 0 {
		t.Error("horizon should be positive")
	}
	if cfg.MPC.CtrlPeriod <= 0 {
		t.Error("ctrl_period should be positive")
	}
	if cfg.Vehicle.Wheelbase <= 0 {
		t.Error("wheelbase should be positive")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latctl.yaml")
	cfg := DefaultConfig()
	cfg.Model = "dynamic"
	cfg.MPC.Horizon = 30
	cfg.Scenario.Path = "circle"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("model: kinematic\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	// Fields absent from the file keep their defaults.
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Model != "kinematic" {
		t.Errorf("expected model kinematic, got %s", loaded.Model)
	}
	if loaded.MPC.Horizon != DefaultConfig().MPC.Horizon {
		t.Errorf("expected default horizon, got %d", loaded.MPC.Horizon)
	}
}

func TestBuildModel(t *testing.T) {
	tests := []struct {
		model   string
		wantDim int
		wantErr bool
	}{
		{"kinematic_lag", 3, false},
		{"kinematic", 2, false},
		{"dynamic", 4, false},
		{"unicycle", 0, true},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.Model = tt.model
		m, err := cfg.BuildModel()
		if tt.wantErr {
			if err == nil {
				t.Errorf("model %s: expected error", tt.model)
			}
			continue
		}
		if err != nil {
			t.Errorf("model %s: %v", tt.model, err)
			continue
		}
		if m.StateDim() != tt.wantDim {
			t.Errorf("model %s: expected %d states, got %d", tt.model, tt.wantDim, m.StateDim())
		}
	}
}

func TestParamsMirrorsConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MPC.Horizon = 25
	cfg.MPC.Nominal.LatError = 0.7
	cfg.Vehicle.SteerLim = 0.5

	p := cfg.Params()
	if p.Horizon != 25 {
		t.Errorf("horizon = %d, want 25", p.Horizon)
	}
	if p.Nominal.LatError != 0.7 {
		t.Errorf("lat error weight = %v, want 0.7", p.Nominal.LatError)
	}
	if p.SteerLim != 0.5 {
		t.Errorf("steer_lim = %v, want 0.5", p.SteerLim)
	}
	if len(p.SteerRateLimitsByCurvature) == 0 {
		t.Error("rate limit map dropped in conversion")
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("circle", "tight")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Scenario.Radius != 20 {
		t.Errorf("expected radius 20, got %f", cfg.Scenario.Radius)
	}

	if GetPreset("circle", "nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if GetPreset("nonexistent", "tight") != nil {
		t.Error("expected nil for nonexistent path")
	}
}

func TestListPresets(t *testing.T) {
	if len(ListPresets("straight")) == 0 {
		t.Error("expected presets for straight")
	}
	if ListPresets("nonexistent") != nil {
		t.Error("expected nil for nonexistent path")
	}
	if len(ListPaths()) == 0 {
		t.Error("expected scenario paths")
	}
}
