// Grid probe tool - prints the spatial grid layout derived from a config
// and measures cell occupancy for a randomly scattered flock.
//
// Usage: go run ./cmd/gridprobe -config config.yaml -birds 10000
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/flock2go/starling/config"
	"github.com/flock2go/starling/grid"
	"github.com/flock2go/starling/vmath"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	birds := flag.Int("birds", 0, "Occupancy sample size (0 = use config)")
	seed := flag.Int64("seed", 42, "RNG seed for the occupancy sample")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	d := &cfg.Derived

	geo, err := grid.NewGeometry(
		d.BoundMin, d.BoundMax,
		float32(cfg.Grid.SearchRadius),
		float32(cfg.Grid.Density),
		float32(cfg.Grid.SimScale),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Grid geometry rejected: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Domain:     (%g, %g, %g) .. (%g, %g, %g)\n",
		d.BoundMin.X, d.BoundMin.Y, d.BoundMin.Z,
		d.BoundMax.X, d.BoundMax.Y, d.BoundMax.Z)
	fmt.Printf("Cell width: %g world units\n", geo.CellSize)
	fmt.Printf("Resolution: %d x %d x %d = %d cells\n",
		geo.Res[0], geo.Res[1], geo.Res[2], geo.Cells)
	fmt.Printf("Window:     %d (%d cells per neighborhood)\n",
		geo.Window, len(geo.Adj))
	fmt.Printf("Interior:   x 1..%d  y 1..%d  z 1..%d\n",
		geo.ScanMax[0], geo.ScanMax[1], geo.ScanMax[2])

	n := *birds
	if n <= 0 {
		n = cfg.Sim.Birds
	}

	g, err := grid.NewGrid(geo, n)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Grid rejected: %v\n", err)
		os.Exit(1)
	}

	// Scatter a uniform flock through the domain and bucketize it the
	// way one simulation step would.
	rng := rand.New(rand.NewSource(*seed))
	pos := make([]vmath.Vec3, n)
	span := d.BoundMax.Sub(d.BoundMin)
	for i := range pos {
		pos[i] = vmath.Vec3{
			X: d.BoundMin.X + rng.Float32()*span.X,
			Y: d.BoundMin.Y + rng.Float32()*span.Y,
			Z: d.BoundMin.Z + rng.Float32()*span.Z,
		}
	}

	g.Reset(n)
	g.InsertSeq(pos)
	g.ScanSerial()
	g.ScatterSeq()

	occupied := 0
	maxCount := int32(0)
	maxCell := int32(-1)
	for c, cnt := range g.Counts {
		if cnt == 0 {
			continue
		}
		occupied++
		if cnt > maxCount {
			maxCount = cnt
			maxCell = int32(c)
		}
	}

	fmt.Printf("\nOccupancy for %d birds (seed %d):\n", n, *seed)
	fmt.Printf("  bucketed:  %d (dropped %d)\n", g.Bucketed(), g.Dropped())
	fmt.Printf("  occupied:  %d / %d cells (%.1f%%)\n",
		occupied, geo.Cells, 100*float64(occupied)/float64(geo.Cells))
	if occupied > 0 {
		fmt.Printf("  mean/cell: %.2f\n", float64(g.Bucketed())/float64(occupied))
	}
	if maxCell >= 0 {
		x, y, z := geo.CellCoord(maxCell)
		o := geo.CellOrigin(maxCell)
		fmt.Printf("  max/cell:  %d at (%d, %d, %d) origin (%.1f, %.1f, %.1f)\n",
			maxCount, x, y, z, o.X, o.Y, o.Z)
	}
}
