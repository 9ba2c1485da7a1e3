package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sim.Birds != 10000 {
		t.Errorf("birds = %d, want 10000", cfg.Sim.Birds)
	}
	if cfg.Sim.DT != 0.005 {
		t.Errorf("dt = %g, want 0.005", cfg.Sim.DT)
	}
	if cfg.Neighbors.Count != 7 || cfg.Neighbors.Fov != 240 || cfg.Neighbors.ClusterDist != 3 {
		t.Errorf("neighbors = %+v", cfg.Neighbors)
	}
	if cfg.Grid.SearchRadius != 10 || cfg.Grid.Density != 1 || cfg.Grid.SimScale != 1 {
		t.Errorf("grid = %+v", cfg.Grid)
	}
	if cfg.Flight.MinSpeed != 5 || cfg.Flight.MaxSpeed != 18 {
		t.Errorf("flight speeds = %+v", cfg.Flight)
	}
}

func TestDerivedValues(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	d := cfg.Derived
	if math.Abs(float64(d.DT32)-0.005) > 1e-9 {
		t.Errorf("DT32 = %g", d.DT32)
	}
	if d.BoundMin.X != -200 || d.BoundMin.Y != 0 || d.BoundMin.Z != -200 {
		t.Errorf("BoundMin = %v", d.BoundMin)
	}
	if d.BoundMax.X != 200 || d.BoundMax.Y != 200 || d.BoundMax.Z != 200 {
		t.Errorf("BoundMax = %v", d.BoundMax)
	}
	if d.RadiusWorld != 10 {
		t.Errorf("RadiusWorld = %g, want 10", d.RadiusWorld)
	}
	if d.Avoid32 != 0.5 || d.Align32 != 1.0 {
		t.Errorf("steering weights = %g, %g", d.Avoid32, d.Align32)
	}
}

func TestLoadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	overlay := []byte("sim:\n  birds: 500\ngrid:\n  sim_scale: 2.0\n")
	if err := os.WriteFile(path, overlay, 0644); err != nil {
		t.Fatalf("writing overlay: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sim.Birds != 500 {
		t.Errorf("birds = %d, want overridden 500", cfg.Sim.Birds)
	}
	if cfg.Grid.SimScale != 2 {
		t.Errorf("sim_scale = %g, want overridden 2", cfg.Grid.SimScale)
	}
	// untouched fields keep their defaults
	if cfg.Sim.DT != 0.005 {
		t.Errorf("dt = %g, want default 0.005", cfg.Sim.DT)
	}
	if cfg.Neighbors.Count != 7 {
		t.Errorf("neighbor count = %d, want default 7", cfg.Neighbors.Count)
	}
	if cfg.Derived.RadiusWorld != 5 {
		t.Errorf("RadiusWorld = %g, want 10/2", cfg.Derived.RadiusWorld)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Sim.Birds = 777
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	back, err := Load(path)
	if err != nil {
		t.Fatalf("reloading written config: %v", err)
	}
	if back.Sim.Birds != 777 {
		t.Errorf("birds after round trip = %d, want 777", back.Sim.Birds)
	}
	if back.Neighbors.Fov != cfg.Neighbors.Fov {
		t.Errorf("fov after round trip = %g, want %g", back.Neighbors.Fov, cfg.Neighbors.Fov)
	}
}

func TestInitAndCfg(t *testing.T) {
	MustInit("")
	if Cfg().Sim.Birds != 10000 {
		t.Errorf("Cfg().Sim.Birds = %d", Cfg().Sim.Birds)
	}
}
