package telemetry

import (
	"log/slog"
	"math"
	"sort"
)

// WindowStats holds aggregated flock statistics for one stats window.
type WindowStats struct {
	WindowStartStep int64   `csv:"-"`
	WindowEndStep   int64   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Flock state at window end
	Birds    int   `csv:"birds"`
	Dropped  int   `csv:"dropped"`
	Clusters int   `csv:"clusters"`
	Largest  int32 `csv:"largest"`

	// Polarization distribution over the window's steps
	OrderMean float64 `csv:"order_mean"`
	OrderStd  float64 `csv:"order_std"`
	OrderP10  float64 `csv:"order_p10"`
	OrderP50  float64 `csv:"order_p50"`
	OrderP90  float64 `csv:"order_p90"`

	// Speed distribution over the window's steps
	SpeedMean float64 `csv:"speed_mean"`
	SpeedStd  float64 `csv:"speed_std"`

	// Mean cluster count over the window
	ClustersMean float64 `csv:"clusters_mean"`

	// Center of mass at window end, and how far it moved since the
	// window opened
	CentroidX     float64 `csv:"centroid_x"`
	CentroidY     float64 `csv:"centroid_y"`
	CentroidZ     float64 `csv:"centroid_z"`
	CentroidDrift float64 `csv:"centroid_drift"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeSeriesStats calculates mean, standard deviation and
// percentiles of a measurement series.
func ComputeSeriesStats(values []float64) (mean, std, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)

	var sqDiffSum float64
	for _, v := range values {
		d := v - mean
		sqDiffSum += d * d
	}
	std = math.Sqrt(sqDiffSum / float64(n))

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, std, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartStep),
		slog.Int64("window_end", s.WindowEndStep),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("birds", s.Birds),
		slog.Int("dropped", s.Dropped),
		slog.Int("clusters", s.Clusters),
		slog.Int("largest", int(s.Largest)),
		slog.Float64("order_mean", s.OrderMean),
		slog.Float64("order_std", s.OrderStd),
		slog.Float64("order_p10", s.OrderP10),
		slog.Float64("order_p50", s.OrderP50),
		slog.Float64("order_p90", s.OrderP90),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_std", s.SpeedStd),
		slog.Float64("clusters_mean", s.ClustersMean),
		slog.Float64("centroid_x", s.CentroidX),
		slog.Float64("centroid_y", s.CentroidY),
		slog.Float64("centroid_z", s.CentroidZ),
		slog.Float64("centroid_drift", s.CentroidDrift),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndStep,
		"sim_time", s.SimTimeSec,
		"birds", s.Birds,
		"dropped", s.Dropped,
		"clusters", s.Clusters,
		"largest", s.Largest,
		"order_mean", s.OrderMean,
		"order_std", s.OrderStd,
		"speed_mean", s.SpeedMean,
		"clusters_mean", s.ClustersMean,
		"centroid_drift", s.CentroidDrift,
	)
}
