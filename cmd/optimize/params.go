// Package main provides CMA-ES optimization for flock steering parameters.
package main

import (
	"github.com/flock2go/starling/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Steering weights
			{Name: "reynolds_avoidance", Path: "reynolds.avoidance", Min: 0.05, Max: 2.0, Default: 0.5},
			{Name: "reynolds_alignment", Path: "reynolds.alignment", Min: 0.1, Max: 2.0, Default: 1.0},
			{Name: "reynolds_cohesion", Path: "reynolds.cohesion", Min: 0.02, Max: 1.0, Default: 0.2},
			// Flight model (mass locked at 0.08)
			{Name: "boundary_amount", Path: "flight.boundary_amt", Min: 0.05, Max: 1.0, Default: 0.4},
			{Name: "stability", Path: "flight.stability", Min: 0.1, Max: 1.0, Default: 0.8},
			// Neighbor sensing (count locked, cluster_dist locked at 3.0)
			{Name: "neighbor_fov", Path: "neighbors.fov", Min: 90, Max: 320, Default: 240},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	// Clamp values to ensure they're within bounds
	clamped := pv.Clamp(values)

	// Apply each parameter to the config
	// Order must match Specs order
	i := 0

	// Steering weights
	cfg.Reynolds.Avoidance = clamped[i]
	i++
	cfg.Reynolds.Alignment = clamped[i]
	i++
	cfg.Reynolds.Cohesion = clamped[i]
	i++

	// Flight model (mass locked)
	cfg.Flight.Mass = 0.08
	cfg.Flight.BoundaryAmt = clamped[i]
	i++
	cfg.Flight.Stability = clamped[i]
	i++

	// Neighbor sensing (cluster_dist locked at 3.0)
	cfg.Neighbors.ClusterDist = 3.0
	cfg.Neighbors.Fov = clamped[i]

	// The pipeline reads the derived float32 mirror of these fields
	cfg.Recompute()
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		// Steering weights
		cfg.Reynolds.Avoidance,
		cfg.Reynolds.Alignment,
		cfg.Reynolds.Cohesion,
		// Flight model (mass locked)
		cfg.Flight.BoundaryAmt,
		cfg.Flight.Stability,
		// Neighbor sensing
		cfg.Neighbors.Fov,
	}
}
