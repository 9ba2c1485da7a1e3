// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/flock2go/starling/vmath"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Sim       SimConfig       `yaml:"sim"`
	World     WorldConfig     `yaml:"world"`
	Grid      GridConfig      `yaml:"grid"`
	Neighbors NeighborsConfig `yaml:"neighbors"`
	Reynolds  ReynoldsConfig  `yaml:"reynolds"`
	Flight    FlightConfig    `yaml:"flight"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings for the viewer.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// SimConfig holds top-level run parameters.
type SimConfig struct {
	Birds         int     `yaml:"birds"`
	DT            float64 `yaml:"dt"`              // timestep in seconds
	Seed          int64   `yaml:"seed"`            // spawn RNG seed
	StepsPerFrame int     `yaml:"steps_per_frame"` // sim steps per rendered frame
	Workers       int     `yaml:"workers"`         // 0 = one per CPU
}

// Vec3Config is a YAML-friendly 3D vector.
type Vec3Config struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// Vec3 converts to the float32 vector used by the simulation.
func (v Vec3Config) Vec3() vmath.Vec3 {
	return vmath.Vec3{X: float32(v.X), Y: float32(v.Y), Z: float32(v.Z)}
}

// WorldConfig holds the simulation domain bounds and ambient wind.
type WorldConfig struct {
	Min  Vec3Config `yaml:"min"`
	Max  Vec3Config `yaml:"max"`
	Wind Vec3Config `yaml:"wind"`
}

// GridConfig holds the spatial acceleration grid parameters.
type GridConfig struct {
	SearchRadius float64 `yaml:"search_radius"` // neighbor search radius (m)
	Density      float64 `yaml:"density"`       // grid cells per search radius
	SimScale     float64 `yaml:"sim_scale"`     // sim units per world meter
}

// NeighborsConfig holds the neighbor discovery parameters.
type NeighborsConfig struct {
	Count       int     `yaml:"count"`        // topological neighbor bound K
	Fov         float64 `yaml:"fov"`          // field of view (degrees, 360 = full sphere)
	ClusterDist float64 `yaml:"cluster_dist"` // proximity clustering threshold (m)
}

// ReynoldsConfig holds the three classic steering weights.
type ReynoldsConfig struct {
	Avoidance float64 `yaml:"avoidance"`
	Alignment float64 `yaml:"alignment"`
	Cohesion  float64 `yaml:"cohesion"`
}

// FlightConfig holds per-bird flight envelope parameters.
type FlightConfig struct {
	Mass        float64 `yaml:"mass"`         // bird mass (kg)
	MinSpeed    float64 `yaml:"min_speed"`    // m/s
	MaxSpeed    float64 `yaml:"max_speed"`    // m/s
	BoundaryCnt int     `yaml:"boundary_cnt"` // in-cone count below which a bird steers inward
	BoundaryAmt float64 `yaml:"boundary_amt"` // inward steering strength at the flock border
	Stability   float64 `yaml:"stability"`    // 0..1, fraction of the heading correction applied per step
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow    float64 `yaml:"stats_window"`    // seconds per aggregation window
	PerfWindow     int     `yaml:"perf_window"`     // samples kept per pipeline phase
	SpectrumWindow int     `yaml:"spectrum_window"` // samples per spectral segment, power of two
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32        float32    // Sim.DT as float32
	BoundMin    vmath.Vec3 // world minimum corner
	BoundMax    vmath.Vec3 // world maximum corner
	Wind        vmath.Vec3
	RadiusWorld float32 // search radius in world units (radius / sim_scale)
	Mass32      float32
	MinSpeed32  float32
	MaxSpeed32  float32
	BoundaryAmt float32
	Stability32 float32
	Avoid32     float32
	Align32     float32
	Cohere32    float32
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// Compute derived values
	cfg.computeDerived()

	return cfg, nil
}

// Recompute refreshes the derived values after fields change at
// runtime, e.g. from viewer sliders.
func (c *Config) Recompute() {
	c.computeDerived()
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Sim.DT)
	c.Derived.BoundMin = c.World.Min.Vec3()
	c.Derived.BoundMax = c.World.Max.Vec3()
	c.Derived.Wind = c.World.Wind.Vec3()

	scale := c.Grid.SimScale
	if scale == 0 {
		scale = 1
	}
	c.Derived.RadiusWorld = float32(c.Grid.SearchRadius / scale)

	c.Derived.Mass32 = float32(c.Flight.Mass)
	c.Derived.MinSpeed32 = float32(c.Flight.MinSpeed)
	c.Derived.MaxSpeed32 = float32(c.Flight.MaxSpeed)
	c.Derived.BoundaryAmt = float32(c.Flight.BoundaryAmt)
	c.Derived.Stability32 = float32(c.Flight.Stability)
	c.Derived.Avoid32 = float32(c.Reynolds.Avoidance)
	c.Derived.Align32 = float32(c.Reynolds.Alignment)
	c.Derived.Cohere32 = float32(c.Reynolds.Cohesion)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
