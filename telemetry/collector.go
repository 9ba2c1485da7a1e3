// Package telemetry provides flock health tracking, bookmarking, and snapshots.
package telemetry

import "github.com/flock2go/starling/vmath"

// Collector accumulates per-step flock measures within time windows
// and produces WindowStats. It also keeps a longer polarization
// history for spectral analysis at the end of a run.
type Collector struct {
	windowDurationSec float64
	windowSteps       int64
	dt                float64

	windowStartStep int64

	// Per-step series for the current window
	orders   []float64
	speeds   []float64
	clusters []float64

	startCentroid vmath.Vec3
	haveStart     bool

	// Long-run polarization history, capped
	orderHistory []float64
	historyCap   int
}

// NewCollector creates a stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds.
// dt: seconds per step (used for step-to-time conversion).
// historyCap: maximum polarization samples retained for spectral
// analysis; zero or less keeps 4096.
func NewCollector(windowDurationSec, dt float64, historyCap int) *Collector {
	steps := int64(windowDurationSec / dt)
	if steps < 1 {
		steps = 1
	}
	if historyCap <= 0 {
		historyCap = 4096
	}

	return &Collector{
		windowDurationSec: windowDurationSec,
		windowSteps:       steps,
		dt:                dt,
		historyCap:        historyCap,
	}
}

// RecordStep accumulates one step's flock measures.
func (c *Collector) RecordStep(order, meanSpeed float64, clusters int, centroid vmath.Vec3) {
	c.orders = append(c.orders, order)
	c.speeds = append(c.speeds, meanSpeed)
	c.clusters = append(c.clusters, float64(clusters))
	if !c.haveStart {
		c.startCentroid = centroid
		c.haveStart = true
	}

	c.orderHistory = append(c.orderHistory, order)
	if len(c.orderHistory) > c.historyCap {
		c.orderHistory = c.orderHistory[len(c.orderHistory)-c.historyCap:]
	}
}

// ShouldFlush returns true if enough steps have passed to flush the
// window.
func (c *Collector) ShouldFlush(currentStep int64) bool {
	return currentStep-c.windowStartStep >= c.windowSteps
}

// Flush produces a WindowStats from the accumulated series plus the
// latest flock state, and resets the window.
func (c *Collector) Flush(
	currentStep int64,
	birds, dropped, clusters int,
	largest int32,
	centroid vmath.Vec3,
) WindowStats {
	orderMean, orderStd, orderP10, orderP50, orderP90 := ComputeSeriesStats(c.orders)
	speedMean, speedStd, _, _, _ := ComputeSeriesStats(c.speeds)
	clustersMean, _, _, _, _ := ComputeSeriesStats(c.clusters)

	var drift float64
	if c.haveStart {
		drift = float64(centroid.Sub(c.startCentroid).Len())
	}

	stats := WindowStats{
		WindowStartStep: c.windowStartStep,
		WindowEndStep:   currentStep,
		SimTimeSec:      float64(currentStep) * c.dt,

		Birds:    birds,
		Dropped:  dropped,
		Clusters: clusters,
		Largest:  largest,

		OrderMean: orderMean,
		OrderStd:  orderStd,
		OrderP10:  orderP10,
		OrderP50:  orderP50,
		OrderP90:  orderP90,

		SpeedMean: speedMean,
		SpeedStd:  speedStd,

		ClustersMean: clustersMean,

		CentroidX:     float64(centroid.X),
		CentroidY:     float64(centroid.Y),
		CentroidZ:     float64(centroid.Z),
		CentroidDrift: drift,
	}

	// Reset for next window
	c.windowStartStep = currentStep
	c.orders = c.orders[:0]
	c.speeds = c.speeds[:0]
	c.clusters = c.clusters[:0]
	c.haveStart = false

	return stats
}

// OrderHistory returns the retained polarization series, oldest first.
func (c *Collector) OrderHistory() []float64 {
	return c.orderHistory
}

// WindowSteps returns the number of steps per window.
func (c *Collector) WindowSteps() int64 {
	return c.windowSteps
}
