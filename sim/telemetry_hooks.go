package sim

import (
	"log/slog"

	"github.com/flock2go/starling/telemetry"
)

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (s *Simulation) flushTelemetry(info StepInfo) {
	if !s.collector.ShouldFlush(s.step) {
		return
	}

	// Flush the stats window
	stats := s.collector.Flush(s.step, info.Birds, info.Dropped, info.Clusters, info.Largest, info.Centroid)
	perfRow := s.perf.Row(stats.WindowEndStep)

	// Log stats if enabled (console output)
	if s.logStats {
		stats.LogStats()
		perfRow.LogStats()
	}

	// Write to CSV if output manager is enabled
	if s.output != nil {
		if err := s.output.WriteStats(stats); err != nil {
			slog.Error("failed to write stats", "error", err)
		}
		if err := s.output.WritePerf(perfRow); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}

	if s.statsCallback != nil {
		s.statsCallback(stats)
	}

	// Check for bookmarks
	bookmarks := s.bookmarks.Check(stats)
	for _, bm := range bookmarks {
		if s.logStats {
			bm.LogBookmark()
		}

		if s.output != nil {
			if err := s.output.WriteBookmark(bm); err != nil {
				slog.Error("failed to write bookmark", "error", err)
			}
		}

		// Save snapshot on bookmark
		if s.snapshotDir != "" {
			s.saveSnapshot(&bm)
		}
	}
}

// saveSnapshot creates and saves a snapshot to disk.
func (s *Simulation) saveSnapshot(bookmark *telemetry.Bookmark) {
	snapshot := s.createSnapshot(bookmark)

	path, err := telemetry.SaveSnapshot(snapshot, s.snapshotDir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}

	slog.Info("snapshot saved", "path", path, "step", s.step)
}

// createSnapshot builds a snapshot from the current state.
func (s *Simulation) createSnapshot(bookmark *telemetry.Bookmark) *telemetry.Snapshot {
	d := &s.cfg.Derived
	snapshot := &telemetry.Snapshot{
		Version:  telemetry.SnapshotVersion,
		RNGSeed:  s.rngSeed,
		BoundMin: [3]float32{d.BoundMin.X, d.BoundMin.Y, d.BoundMin.Z},
		BoundMax: [3]float32{d.BoundMax.X, d.BoundMax.Y, d.BoundMax.Z},
		Step:     s.step,
		Bookmark: bookmark,
	}

	// Collect bird states
	query := s.filter.Query()
	for query.Next() {
		pos, vel, ori, bird := query.Get()
		snapshot.Birds = append(snapshot.Birds, telemetry.BirdState{
			ID:      bird.ID,
			Pos:     [3]float32{pos.X, pos.Y, pos.Z},
			Vel:     [3]float32{vel.X, vel.Y, vel.Z},
			Ori:     [4]float32{ori.X, ori.Y, ori.Z, ori.W},
			Cluster: bird.Cluster,
			Rank:    bird.Rank,
		})
	}

	return snapshot
}
