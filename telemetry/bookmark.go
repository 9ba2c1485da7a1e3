package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkPolarized     BookmarkType = "polarized"
	BookmarkScattered     BookmarkType = "scattered"
	BookmarkConsolidation BookmarkType = "consolidation"
	BookmarkFragmentation BookmarkType = "fragmentation"
	BookmarkSteadyFlock   BookmarkType = "steady_flock"
)

// Bookmark marks an automatically detected flocking regime change.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Step        int64        `csv:"step"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"step", b.Step,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in the flock's
// behavior from the window stats stream.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	polarized     bool // latched while the flock holds high order
	steadyWindows int  // consecutive windows with stable order and clusters
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for steady flock detection
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	// Polarization transitions use a hysteresis band so noise at the
	// threshold does not fire pairs of bookmarks.
	if !bd.polarized && stats.OrderMean >= 0.9 {
		bd.polarized = true
		bookmarks = append(bookmarks, Bookmark{
			Type:        BookmarkPolarized,
			Step:        stats.WindowEndStep,
			Description: fmt.Sprintf("Flock aligned, order %.2f over the window", stats.OrderMean),
		})
	} else if bd.polarized && stats.OrderMean < 0.5 {
		bd.polarized = false
		bookmarks = append(bookmarks, Bookmark{
			Type:        BookmarkScattered,
			Step:        stats.WindowEndStep,
			Description: fmt.Sprintf("Alignment lost, order fell to %.2f", stats.OrderMean),
		})
	}

	if bd.historyFull || bd.historyIdx > 0 {
		if b := bd.checkConsolidation(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkFragmentation(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkSteadyFlock(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

// getHistory returns the retained windows oldest first.
func (bd *BookmarkDetector) getHistory() []WindowStats {
	if !bd.historyFull {
		return bd.history[:bd.historyIdx]
	}
	ordered := make([]WindowStats, 0, bd.historySize)
	ordered = append(ordered, bd.history[bd.historyIdx:]...)
	return append(ordered, bd.history[:bd.historyIdx]...)
}

// checkConsolidation fires when the biggest cluster has absorbed most
// of the flock after recently holding much less.
func (bd *BookmarkDetector) checkConsolidation(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 || stats.Birds == 0 {
		return nil
	}

	var largestSum float64
	for _, h := range history {
		largestSum += float64(h.Largest)
	}
	avgLargest := largestSum / float64(len(history))
	if avgLargest == 0 {
		return nil
	}

	share := float64(stats.Largest) / float64(stats.Birds)
	if share > 0.8 && float64(stats.Largest) > avgLargest*2.0 {
		return &Bookmark{
			Type: BookmarkConsolidation,
			Step: stats.WindowEndStep,
			Description: fmt.Sprintf("Largest cluster holds %.0f%% of the flock, up from avg %.0f birds",
				share*100, avgLargest),
		}
	}

	return nil
}

// checkFragmentation fires when the cluster count jumps well above the
// rolling average.
func (bd *BookmarkDetector) checkFragmentation(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var clustersSum float64
	for _, h := range history {
		clustersSum += float64(h.Clusters)
	}
	avgClusters := clustersSum / float64(len(history))
	if avgClusters == 0 {
		return nil
	}

	if float64(stats.Clusters) > avgClusters*2.0 && stats.Clusters >= 8 {
		return &Bookmark{
			Type: BookmarkFragmentation,
			Step: stats.WindowEndStep,
			Description: fmt.Sprintf("Flock split into %d clusters, %.1fx the average (%.1f)",
				stats.Clusters, float64(stats.Clusters)/avgClusters, avgClusters),
		}
	}

	return nil
}

// checkSteadyFlock fires once when order and cluster count hold low
// variance over five consecutive windows.
func (bd *BookmarkDetector) checkSteadyFlock(stats WindowStats) *Bookmark {
	if stats.Birds == 0 {
		bd.steadyWindows = 0
		return nil
	}

	history := bd.getHistory()
	if len(history) < 4 {
		return nil
	}

	recent := history[len(history)-4:]
	var orderSum, clustersSum float64
	for _, h := range recent {
		orderSum += h.OrderMean
		clustersSum += float64(h.Clusters)
	}
	orderMean := orderSum / 4
	clustersMean := clustersSum / 4

	var orderVar, clustersVar float64
	for _, h := range recent {
		od := h.OrderMean - orderMean
		cd := float64(h.Clusters) - clustersMean
		orderVar += od * od
		clustersVar += cd * cd
	}
	orderVar /= 4
	clustersVar /= 4

	// Low variance: coefficient of variation < 20%
	orderCV := 0.0
	if orderMean > 0 {
		orderCV = orderVar / (orderMean * orderMean)
	}
	clustersCV := 0.0
	if clustersMean > 0 {
		clustersCV = clustersVar / (clustersMean * clustersMean)
	}

	if orderCV < 0.04 && clustersCV < 0.04 { // CV^2 < 0.04 means CV < 0.2
		bd.steadyWindows++
	} else {
		bd.steadyWindows = 0
	}

	if bd.steadyWindows == 5 { // trigger exactly once at 5 windows
		return &Bookmark{
			Type: BookmarkSteadyFlock,
			Step: stats.WindowEndStep,
			Description: fmt.Sprintf("Steady flock: order %.2f, %d clusters over 5+ windows",
				stats.OrderMean, stats.Clusters),
		}
	}

	return nil
}
