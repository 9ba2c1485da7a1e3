package grid

import (
	"fmt"
	"sync/atomic"

	"github.com/flock2go/starling/vmath"
)

// Grid holds the per-step bucketization arrays. All of them are fully
// rebuilt each step; nothing persists across steps. The three phases
// (insert, scan, scatter) must run in order, but each phase is safe to
// split across workers with the Range variants.
type Grid struct {
	Geo *Geometry

	Cells   []int32 // per agent slot: flat cell index or CellUndef
	Ranks   []int32 // per agent slot: arrival order within its cell
	Counts  []int32 // per cell: occupancy
	Offsets []int32 // per cell: exclusive prefix sum; Offsets[Cells] = total bucketed
	Sorted  []int32 // agent slots ordered by cell

	dropped int32 // positions rejected as non-finite this step

	// auxiliary levels for the blocked prefix scan
	aux1, scan1 []int32
	aux2, scan2 []int32
}

// NewGrid allocates per-step arrays for a geometry and a maximum agent
// count, and validates the prefix-scan capacity. The two auxiliary scan
// levels support up to scanBlock**3 cells; beyond that is a fatal
// configuration error, same as an oversized search window.
func NewGrid(geo *Geometry, maxAgents int) (*Grid, error) {
	n1 := int(geo.Cells)
	if n1 > scanBlock*scanBlock*scanBlock {
		return nil, &ConfigError{Reason: fmt.Sprintf(
			"cell count %d exceeds prefix scan capacity %d", n1, scanBlock*scanBlock*scanBlock)}
	}
	bs := scanBlock << 1
	n2 := n1/bs + 1
	n3 := n2/bs + 1
	if n3 > bs {
		return nil, &ConfigError{Reason: fmt.Sprintf(
			"prefix scan needs a third auxiliary level for %d cells", n1)}
	}

	return &Grid{
		Geo:     geo,
		Cells:   make([]int32, maxAgents),
		Ranks:   make([]int32, maxAgents),
		Counts:  make([]int32, n1),
		Offsets: make([]int32, n1+1),
		Sorted:  make([]int32, maxAgents),
		aux1:    make([]int32, n2),
		scan1:   make([]int32, n2),
		aux2:    make([]int32, n3),
		scan2:   make([]int32, n3),
	}, nil
}

// Reset prepares the grid for a new step of n agents: grows the
// agent-aligned arrays if needed and zeroes the per-cell counters.
func (g *Grid) Reset(n int) {
	if cap(g.Cells) < n {
		g.Cells = make([]int32, n)
		g.Ranks = make([]int32, n)
		g.Sorted = make([]int32, n)
	}
	g.Cells = g.Cells[:n]
	g.Ranks = g.Ranks[:n]
	g.Sorted = g.Sorted[:n]
	for c := range g.Counts {
		g.Counts[c] = 0
	}
	g.dropped = 0
}

// InsertSeq assigns every agent a cell and an intra-cell rank using
// plain counters. Single-worker path.
func (g *Grid) InsertSeq(pos []vmath.Vec3) {
	geo := g.Geo
	for i, p := range pos {
		if !p.IsFinite() {
			g.Cells[i] = CellUndef
			g.Ranks[i] = 0
			g.dropped++
			continue
		}
		c := geo.Locate(p)
		g.Cells[i] = c
		if c == CellUndef {
			g.Ranks[i] = 0
			continue
		}
		g.Ranks[i] = g.Counts[c]
		g.Counts[c]++
	}
}

// InsertRange is the worker variant of InsertSeq over [lo, hi). Cell
// counters are shared across workers, so increments are atomic; the
// pre-increment value becomes the agent's rank.
func (g *Grid) InsertRange(pos []vmath.Vec3, lo, hi int) {
	geo := g.Geo
	for i := lo; i < hi; i++ {
		p := pos[i]
		if !p.IsFinite() {
			g.Cells[i] = CellUndef
			g.Ranks[i] = 0
			atomic.AddInt32(&g.dropped, 1)
			continue
		}
		c := geo.Locate(p)
		g.Cells[i] = c
		if c == CellUndef {
			g.Ranks[i] = 0
			continue
		}
		g.Ranks[i] = atomic.AddInt32(&g.Counts[c], 1) - 1
	}
}

// PrepareScatter clears the sorted array. Must run once after the scan
// and before any ScatterRange call.
func (g *Grid) PrepareScatter() {
	for i := range g.Sorted {
		g.Sorted[i] = CellUndef
	}
}

// ScatterRange writes each bucketed agent of [lo, hi) into its slot in
// the sorted array. Offsets and ranks are already fixed, so every agent
// writes a distinct slot and ranges are safe to run concurrently.
func (g *Grid) ScatterRange(lo, hi int) {
	for i := lo; i < hi; i++ {
		c := g.Cells[i]
		if c == CellUndef {
			continue
		}
		g.Sorted[g.Offsets[c]+g.Ranks[i]] = int32(i)
	}
}

// ScatterSeq is PrepareScatter plus a full-range scatter.
func (g *Grid) ScatterSeq() {
	g.PrepareScatter()
	g.ScatterRange(0, len(g.Cells))
}

// CellRange returns the sorted-array range holding cell c's members.
func (g *Grid) CellRange(c int32) (lo, hi int32) {
	return g.Offsets[c], g.Offsets[c] + g.Counts[c]
}

// Bucketed returns the number of agents with a defined cell. Valid
// after the scan phase.
func (g *Grid) Bucketed() int {
	return int(g.Offsets[g.Geo.Cells])
}

// Dropped returns how many positions were rejected as non-finite during
// the current step's insert phase.
func (g *Grid) Dropped() int {
	return int(atomic.LoadInt32(&g.dropped))
}
