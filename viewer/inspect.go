package viewer

import (
	"fmt"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/flock2go/starling/camera"
	"github.com/flock2go/starling/components"
	"github.com/flock2go/starling/vmath"
)

// Inspector panel dimensions
const (
	inspectorWidth  = 250
	inspectorPad    = 10
	inspectorHeader = 26
)

// pickTolerance is the angular radius of the pick cone, in radians.
const pickTolerance = 0.02

// Panel colors
var (
	colorPanelBg     = rl.Color{R: 30, G: 30, B: 35, A: 240}
	colorPanelHeader = rl.Color{R: 45, G: 45, B: 55, A: 255}
	colorPanelBorder = rl.Color{R: 70, G: 70, B: 80, A: 255}
	colorCloseBtn    = rl.Color{R: 180, G: 80, B: 80, A: 255}
	colorLabelDim    = rl.Color{R: 150, G: 150, B: 160, A: 255}
)

// handleSelectionInput processes click detection for bird selection.
func (v *Viewer) handleSelectionInput() {
	if !rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
		return
	}

	m := rl.GetMousePosition()

	// Clicks on the parameter panel belong to its widgets
	if v.showPanel && rl.CheckCollisionPointRec(m, v.panelRect()) {
		return
	}

	if v.hasSelected && rl.CheckCollisionPointRec(m, v.inspectorRect()) {
		if rl.CheckCollisionPointRec(m, v.inspectorCloseRect()) {
			v.hasSelected = false
		}
		return
	}

	// Click a bird to select it, empty sky to deselect
	if id, ok := v.pickBird(); ok {
		v.selectedID = id
		v.hasSelected = true
	} else {
		v.hasSelected = false
	}
}

// mouseRay builds the world-space pick ray under the cursor from the
// same camera parameters the projection uses.
func (v *Viewer) mouseRay() (origin, dir vmath.Vec3) {
	origin = v.cam.Eye()
	fwd := v.cam.Target.Sub(origin).Normalized()
	right := fwd.Cross(vmath.Vec3{Y: 1}).Normalized()
	up := right.Cross(fwd)

	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	m := rl.GetMousePosition()

	// Cursor in normalized device coordinates, y up
	nx := 2*m.X/w - 1
	ny := 1 - 2*m.Y/h

	// Fovy is the vertical field of view; the horizontal extent scales
	// with the aspect ratio
	tanF := float32(math.Tan(camera.FovY * 0.5 * math.Pi / 180))
	dir = fwd.
		Add(right.Scale(nx * tanF * (w / h))).
		Add(up.Scale(ny * tanF)).
		Normalized()
	return origin, dir
}

// pickBird returns the bird nearest to the pick ray, if one lies within
// the pick cone.
func (v *Viewer) pickBird() (int32, bool) {
	origin, dir := v.mouseRay()

	best := int32(-1)
	bestAng := float32(pickTolerance)

	query := v.filter.Query()
	for query.Next() {
		pos, _, _, bird := query.Get()

		to := pos.Vec3.Sub(origin)
		t := to.Dot(dir)
		if t <= 0 {
			continue
		}
		perpSq := to.LenSq() - t*t
		if perpSq < 0 {
			perpSq = 0
		}

		// Angular offset from the ray
		ang := float32(math.Sqrt(float64(perpSq))) / t
		if ang < bestAng {
			bestAng = ang
			best = bird.ID
		}
	}

	return best, best >= 0
}

// selectedBird looks up the selected bird's current components. A miss
// means the flock was respawned since selection.
func (v *Viewer) selectedBird() (pos components.Position, vel components.Velocity, bird components.Bird, ok bool) {
	query := v.filter.Query()
	for query.Next() {
		p, vl, _, b := query.Get()
		if b.ID == v.selectedID {
			pos, vel, bird = *p, *vl, *b
			ok = true
		}
	}
	return pos, vel, bird, ok
}

// drawSelection highlights the selected bird in the 3D scene.
func (v *Viewer) drawSelection() {
	if !v.hasSelected {
		return
	}
	pos, vel, _, ok := v.selectedBird()
	if !ok {
		return
	}

	rl.DrawSphereWires(rlVec(pos.Vec3), 1.4, 8, 10, rl.Yellow)

	dir := vel.Vec3.Normalized()
	if dir != (vmath.Vec3{}) {
		rl.DrawLine3D(rlVec(pos.Vec3), rlVec(pos.Vec3.Add(dir.Scale(4))), rl.Yellow)
	}
}

// drawInspector renders the selected bird's panel.
func (v *Viewer) drawInspector() {
	if !v.hasSelected {
		return
	}
	pos, vel, bird, ok := v.selectedBird()
	if !ok {
		v.hasSelected = false
		return
	}

	r := v.inspectorRect()
	x := int32(r.X)
	y := int32(r.Y)

	rl.DrawRectangle(x, y, int32(r.Width), int32(r.Height), colorPanelBg)
	rl.DrawRectangleLinesEx(r, 1, colorPanelBorder)

	rl.DrawRectangle(x, y, int32(r.Width), inspectorHeader, colorPanelHeader)
	rl.DrawText(fmt.Sprintf("BIRD %d", bird.ID), x+inspectorPad, y+6, 16, rl.White)

	c := v.inspectorCloseRect()
	rl.DrawRectangle(int32(c.X), int32(c.Y), int32(c.Width), int32(c.Height), colorCloseBtn)
	rl.DrawText("X", int32(c.X)+6, int32(c.Y)+2, 14, rl.White)

	row := y + inspectorHeader + inspectorPad
	line := func(label, value string) {
		rl.DrawText(label, x+inspectorPad, row, 12, colorLabelDim)
		rl.DrawText(value, x+90, row, 12, rl.White)
		row += 18
	}

	line("Position", fmt.Sprintf("(%.0f, %.0f, %.0f)", pos.X, pos.Y, pos.Z))
	line("Velocity", fmt.Sprintf("(%.1f, %.1f, %.1f)", vel.X, vel.Y, vel.Z))
	line("Speed", fmt.Sprintf("%.1f m/s", bird.Speed))
	line("Neighbors", fmt.Sprintf("%d in cone, %d kept", bird.Cone, bird.Topo))

	if bird.Near >= 0 {
		line("Nearest", fmt.Sprintf("#%d", bird.Near))
	} else {
		line("Nearest", "none")
	}

	if bird.Cluster >= 0 {
		line("Cluster", fmt.Sprintf("%d", bird.Cluster))
	} else {
		line("Cluster", "none")
	}

	if bird.Rank >= 0 {
		line("Rank", fmt.Sprintf("%d of %d", bird.Rank+1, len(v.sim.Ranking().Sizes)))
	} else {
		line("Rank", "unranked")
	}
}

func (v *Viewer) inspectorRect() rl.Rectangle {
	return rl.Rectangle{
		X:      10,
		Y:      170,
		Width:  inspectorWidth,
		Height: inspectorHeader + 2*inspectorPad + 7*18,
	}
}

func (v *Viewer) inspectorCloseRect() rl.Rectangle {
	r := v.inspectorRect()
	return rl.Rectangle{X: r.X + r.Width - 23, Y: r.Y + 3, Width: 20, Height: 20}
}
