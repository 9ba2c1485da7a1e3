package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for the pipeline step.
const (
	PhaseSnapshot  = "snapshot"
	PhaseInsert    = "insert"
	PhaseScan      = "scan"
	PhaseScatter   = "scatter"
	PhaseNeighbors = "neighbors"
	PhaseCluster   = "cluster"
	PhaseRank      = "rank"
	PhaseIntegrate = "integrate"
	PhaseApply     = "apply"
	PhaseFlockData = "flockdata"
)

// PerfRow is a flat record of per-phase pipeline timings for CSV
// export. Durations are averages over the perf window, in
// microseconds.
type PerfRow struct {
	WindowEnd   int64   `csv:"window_end"`
	AvgStepUS   int64   `csv:"avg_step_us"`
	StepsPerSec float64 `csv:"steps_per_sec"`
	SnapshotUS  int64   `csv:"snapshot_us"`
	InsertUS    int64   `csv:"insert_us"`
	ScanUS      int64   `csv:"scan_us"`
	ScatterUS   int64   `csv:"scatter_us"`
	NeighborsUS int64   `csv:"neighbors_us"`
	ClusterUS   int64   `csv:"cluster_us"`
	RankUS      int64   `csv:"rank_us"`
	IntegrateUS int64   `csv:"integrate_us"`
	ApplyUS     int64   `csv:"apply_us"`
	FlockDataUS int64   `csv:"flockdata_us"`
}

// NewPerfRow flattens per-phase average durations into a CSV record.
// avgStep is the summed per-phase average, standing in for the cost of
// one full pipeline pass.
func NewPerfRow(windowEnd int64, avgs map[string]time.Duration) PerfRow {
	var avgStep time.Duration
	for _, d := range avgs {
		avgStep += d
	}
	var stepsPerSec float64
	if avgStep > 0 {
		stepsPerSec = float64(time.Second) / float64(avgStep)
	}

	return PerfRow{
		WindowEnd:   windowEnd,
		AvgStepUS:   avgStep.Microseconds(),
		StepsPerSec: stepsPerSec,
		SnapshotUS:  avgs[PhaseSnapshot].Microseconds(),
		InsertUS:    avgs[PhaseInsert].Microseconds(),
		ScanUS:      avgs[PhaseScan].Microseconds(),
		ScatterUS:   avgs[PhaseScatter].Microseconds(),
		NeighborsUS: avgs[PhaseNeighbors].Microseconds(),
		ClusterUS:   avgs[PhaseCluster].Microseconds(),
		RankUS:      avgs[PhaseRank].Microseconds(),
		IntegrateUS: avgs[PhaseIntegrate].Microseconds(),
		ApplyUS:     avgs[PhaseApply].Microseconds(),
		FlockDataUS: avgs[PhaseFlockData].Microseconds(),
	}
}

// LogStats logs the pipeline timings using slog.
func (r PerfRow) LogStats() {
	slog.Info("perf",
		"window_end", r.WindowEnd,
		"avg_step_us", r.AvgStepUS,
		"steps_per_sec", int(r.StepsPerSec),
		"neighbors_us", r.NeighborsUS,
		"integrate_us", r.IntegrateUS,
		"insert_us", r.InsertUS,
		"scan_us", r.ScanUS,
		"scatter_us", r.ScatterUS,
		"cluster_us", r.ClusterUS,
		"rank_us", r.RankUS,
	)
}

// LogValue implements slog.LogValuer for structured logging.
func (r PerfRow) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_end", r.WindowEnd),
		slog.Int64("avg_step_us", r.AvgStepUS),
		slog.Float64("steps_per_sec", r.StepsPerSec),
		slog.Int64("snapshot_us", r.SnapshotUS),
		slog.Int64("insert_us", r.InsertUS),
		slog.Int64("scan_us", r.ScanUS),
		slog.Int64("scatter_us", r.ScatterUS),
		slog.Int64("neighbors_us", r.NeighborsUS),
		slog.Int64("cluster_us", r.ClusterUS),
		slog.Int64("rank_us", r.RankUS),
		slog.Int64("integrate_us", r.IntegrateUS),
		slog.Int64("apply_us", r.ApplyUS),
		slog.Int64("flockdata_us", r.FlockDataUS),
	)
}
