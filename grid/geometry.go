// Package grid implements the uniform spatial hash used for neighbor
// search: cell geometry derived from the domain bounds, per-step
// bucketization of agent positions via counting sort, and the prefix-sum
// offsets that make each cell's members addressable as one contiguous
// range. It holds no agent state beyond the per-step index arrays.
package grid

import (
	"fmt"
	"math"

	"github.com/flock2go/starling/vmath"
)

// CellUndef marks an agent outside the interior scan region (or with a
// non-finite position). Such agents take part in no spatial query until
// the next rebuild.
const CellUndef = int32(math.MaxInt32)

// MaxWindow is the largest supported search window. The adjacency table
// and per-agent candidate bookkeeping are sized for W**3 <= 216 cells.
const MaxWindow = 6

// ConfigError reports a grid configuration the pipeline cannot support.
// It is fatal at reset time; no partial grid is usable after one.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "grid configuration: " + e.Reason
}

// Geometry holds everything derivable from the domain configuration
// alone: bounds, cell size, resolution, and the flattened adjacency
// window. It is computed once per reset and read-only afterwards.
type Geometry struct {
	CellSize float32    // cell width in world units
	Min      vmath.Vec3 // grid lower corner, world units
	Max      vmath.Vec3
	Size     vmath.Vec3 // snapped to an exact multiple of CellSize
	Delta    vmath.Vec3 // cells per world unit, per axis
	Res      [3]int32   // cells per axis (x, y, z)
	Cells    int32      // total cell count
	Window   int32      // search window side length W
	ScanMax  [3]int32   // interior region upper bound per axis, inclusive
	Adj      []int32    // W**3 flat offsets into the cell array
	Base     int32      // subtracted from a cell index to reach the window corner
}

// NewGeometry derives the grid from the domain bounds, the neighbor
// search radius (in sim units), the grid density factor, and the
// sim-to-world length scale. The grid extends two cells beyond the
// domain on every side so boundary agents keep a full neighborhood.
func NewGeometry(boundMin, boundMax vmath.Vec3, radius, density, scale float32) (*Geometry, error) {
	if radius <= 0 || density <= 0 || scale <= 0 {
		return nil, &ConfigError{Reason: fmt.Sprintf(
			"radius (%g), density (%g) and scale (%g) must be positive", radius, density, scale)}
	}

	cell := radius / density // cell spacing in sim units
	world := cell / scale    // cell spacing in world units

	g := &Geometry{CellSize: world}
	margin := 2 * world
	g.Min = boundMin.Sub(vmath.Vec3{X: margin, Y: margin, Z: margin})
	g.Max = boundMax.Add(vmath.Vec3{X: margin, Y: margin, Z: margin})
	size := g.Max.Sub(g.Min)

	g.Res[0] = int32(math.Ceil(float64(size.X / world)))
	g.Res[1] = int32(math.Ceil(float64(size.Y / world)))
	g.Res[2] = int32(math.Ceil(float64(size.Z / world)))

	// Snap the size to a whole number of cells so Delta is exact.
	g.Size = vmath.Vec3{
		X: float32(g.Res[0]) * world,
		Y: float32(g.Res[1]) * world,
		Z: float32(g.Res[2]) * world,
	}
	g.Delta = vmath.Vec3{
		X: float32(g.Res[0]) / g.Size.X,
		Y: float32(g.Res[1]) / g.Size.Y,
		Z: float32(g.Res[2]) / g.Size.Z,
	}
	g.Cells = g.Res[0] * g.Res[1] * g.Res[2]

	// Window side length: enough cells that any neighbor within the
	// search radius lies inside the window of either agent's cell.
	w := int32(math.Floor(float64(2*(radius/scale)/world))) + 1
	if w < 2 {
		w = 2
	}
	if w > MaxWindow {
		return nil, &ConfigError{Reason: fmt.Sprintf(
			"search window %d exceeds maximum %d (radius %g, cell width %g)", w, MaxWindow, radius, world)}
	}
	g.Window = w

	for a := 0; a < 3; a++ {
		g.ScanMax[a] = g.Res[a] - w
		if g.ScanMax[a] < 1 {
			return nil, &ConfigError{Reason: fmt.Sprintf(
				"resolution %dx%dx%d too small for window %d", g.Res[0], g.Res[1], g.Res[2], w)}
		}
	}

	g.Adj = make([]int32, 0, w*w*w)
	for y := int32(0); y < w; y++ {
		for z := int32(0); z < w; z++ {
			for x := int32(0); x < w; x++ {
				g.Adj = append(g.Adj, (y*g.Res[2]+z)*g.Res[0]+x)
			}
		}
	}
	g.Base = (g.Res[2]+1)*g.Res[0] + 1

	return g, nil
}

// Locate returns the flat cell index for a position inside the interior
// scan region, or CellUndef outside it. The position must be finite;
// callers screen for NaN/Inf first.
func (g *Geometry) Locate(p vmath.Vec3) int32 {
	cx := int32((p.X - g.Min.X) * g.Delta.X)
	cy := int32((p.Y - g.Min.Y) * g.Delta.Y)
	cz := int32((p.Z - g.Min.Z) * g.Delta.Z)
	if cx >= 1 && cx <= g.ScanMax[0] && cy >= 1 && cy <= g.ScanMax[1] && cz >= 1 && cz <= g.ScanMax[2] {
		return (cy*g.Res[2]+cz)*g.Res[0] + cx
	}
	return CellUndef
}

// CellCoord splits a flat cell index back into grid coordinates.
func (g *Geometry) CellCoord(cell int32) (x, y, z int32) {
	x = cell % g.Res[0]
	rest := cell / g.Res[0]
	z = rest % g.Res[2]
	y = rest / g.Res[2]
	return
}

// CellOrigin returns the world-space lower corner of a cell.
func (g *Geometry) CellOrigin(cell int32) vmath.Vec3 {
	x, y, z := g.CellCoord(cell)
	return vmath.Vec3{
		X: g.Min.X + float32(x)/g.Delta.X,
		Y: g.Min.Y + float32(y)/g.Delta.Y,
		Z: g.Min.Z + float32(z)/g.Delta.Z,
	}
}
