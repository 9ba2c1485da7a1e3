package main

import (
	"math"
	"sync"

	"github.com/flock2go/starling/config"
	"github.com/flock2go/starling/sim"
	"github.com/flock2go/starling/telemetry"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params      *ParamVector
	maxSteps    int64
	seeds       []int64
	baseConfig  *config.Config
	statsWindow float64

	mu          sync.Mutex
	lastQuality float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxSteps int64, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxSteps:    maxSteps,
		seeds:       seeds,
		baseConfig:  baseCfg,
		statsWindow: 5.0, // 5 seconds per window
	}
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// runResult holds the results from a single simulation run.
type runResult struct {
	windowStats []telemetry.WindowStats // collected via StatsCallback each window
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	fitness float64
	quality float64
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is negative flock quality: stronger flocking = lower (better)
// fitness.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	// Run all seeds in parallel
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			result := fe.runSimulation(x, s)
			results[idx] = seedResult{
				fitness: fe.computeFitness(result),
				quality: fe.computeQuality(result.windowStats),
			}
		}(i, seed)
	}
	wg.Wait()

	// Aggregate results
	var totalFitness, totalQuality float64
	for _, r := range results {
		totalFitness += r.fitness
		totalQuality += r.quality
	}

	n := float64(len(fe.seeds))
	fe.mu.Lock()
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return totalFitness / n
}

// runSimulation executes a single headless simulation run.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) *runResult {
	// Create a fresh config copy and apply parameters
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	result := &runResult{}

	// Seeds evaluate concurrently, so each run uses the sequential
	// backend rather than competing worker pools.
	s, err := sim.NewWithOptions(cfg, sim.Options{
		Backend:        sim.Sequential,
		Seed:           seed,
		StatsWindowSec: fe.statsWindow,
		StatsCallback: func(stats telemetry.WindowStats) {
			result.windowStats = append(result.windowStats, stats)
		},
	})
	if err != nil {
		return result
	}
	defer s.Close()

	for step := int64(0); step < fe.maxSteps; step++ {
		s.Step()
	}

	return result
}

// copyConfig creates a deep copy of the base config.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	// Load fresh defaults and copy base values
	cfg, _ := config.Load("")

	cfg.Screen = fe.baseConfig.Screen
	cfg.Sim = fe.baseConfig.Sim
	cfg.World = fe.baseConfig.World
	cfg.Grid = fe.baseConfig.Grid
	cfg.Neighbors = fe.baseConfig.Neighbors
	cfg.Reynolds = fe.baseConfig.Reynolds
	cfg.Flight = fe.baseConfig.Flight
	cfg.Telemetry = fe.baseConfig.Telemetry

	return cfg
}

// computeFitness calculates the scalar fitness (lower = better).
func (fe *FitnessEvaluator) computeFitness(r *runResult) float64 {
	return -fe.computeQuality(r.windowStats)
}

// Quality component weights.
const (
	qualityWeightOrder    = 0.40
	qualityWeightCohesion = 0.30
	qualityWeightSteady   = 0.20
	qualityWeightDrift    = 0.10

	qualityWarmupWindows = 2 // skip first N windows (warmup)

	driftScale = 60.0 // meters of centroid travel per window scored as neutral
)

// computeQuality scores flocking behavior in [0, 1] from window stats.
func (fe *FitnessEvaluator) computeQuality(windows []telemetry.WindowStats) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}

	// Collect valid windows (past warmup, birds present)
	valid := windows[qualityWarmupWindows:]

	var orderSum, cohesionSum, driftSum float64
	var count int

	// Full order time series for steadiness
	orders := make([]float64, 0, len(valid))

	for _, w := range valid {
		if w.Birds == 0 {
			continue
		}

		orders = append(orders, w.OrderMean)

		// 1. Polarization score: mean velocity alignment
		orderSum += w.OrderMean

		// 2. Cohesion score: share of birds in the largest cluster
		cohesionSum += float64(w.Largest) / float64(w.Birds)

		// 4. Drift score: penalize a flock that slides along the border
		driftSum += math.Exp(-math.Pow(w.CentroidDrift/driftScale, 2))

		count++
	}

	// No valid windows → zero quality
	if count == 0 {
		return 0
	}

	orderScore := orderSum / float64(count)
	cohesionScore := cohesionSum / float64(count)
	driftScore := driftSum / float64(count)

	// 3. Steadiness score (CV of the order series across windows)
	steadyScore := 0.0
	if len(orders) >= 2 {
		c := cv(orders)
		steadyScore = math.Exp(-c * c)
	}

	quality := qualityWeightOrder*orderScore +
		qualityWeightCohesion*cohesionScore +
		qualityWeightSteady*steadyScore +
		qualityWeightDrift*driftScore

	return clamp01(quality)
}

// cv computes the coefficient of variation (std/mean) for a slice of values.
func cv(values []float64) float64 {
	n := float64(len(values))
	if n == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n
	if mean == 0 {
		return 0
	}
	var sqDiff float64
	for _, v := range values {
		d := v - mean
		sqDiff += d * d
	}
	return math.Sqrt(sqDiff/n) / mean
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
