// Package viewer renders the flock with raylib and drives the
// simulation for interactive runs.
package viewer

import (
	"fmt"
	"log/slog"
	"time"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/mlange-42/ark/ecs"

	"github.com/flock2go/starling/camera"
	"github.com/flock2go/starling/components"
	"github.com/flock2go/starling/config"
	"github.com/flock2go/starling/sim"
	"github.com/flock2go/starling/vmath"
)

// rankPalette colors the largest clusters, best rank first. Birds
// outside the ranked clusters draw gray.
var rankPalette = []rl.Color{
	rl.SkyBlue,
	rl.Gold,
	rl.Lime,
	rl.Orange,
	rl.Purple,
	rl.Pink,
	rl.Beige,
	rl.Maroon,
}

var background = rl.Color{R: 18, G: 22, B: 31, A: 255}
var wireframe = rl.Color{R: 70, G: 80, B: 96, A: 255}

// Viewer owns the camera and UI state for a graphical run.
type Viewer struct {
	cfg *config.Config
	sim *sim.Simulation
	cam *camera.Camera

	filter *ecs.Filter4[components.Position, components.Velocity, components.Orientation, components.Bird]

	info sim.StepInfo

	paused        bool
	stepsPerFrame int
	showPanel     bool
	showCentroids bool
	followFlock   bool

	selectedID  int32
	hasSelected bool

	reseed int64
}

// New creates a viewer around a running simulation.
func New(cfg *config.Config, s *sim.Simulation) *Viewer {
	d := &cfg.Derived
	steps := cfg.Sim.StepsPerFrame
	if steps < 1 {
		steps = 1
	}
	return &Viewer{
		cfg: cfg,
		sim: s,
		cam: camera.New(d.BoundMin, d.BoundMax),
		filter: ecs.NewFilter4[
			components.Position,
			components.Velocity,
			components.Orientation,
			components.Bird,
		](s.World()),
		stepsPerFrame: steps,
		showCentroids: true,
		reseed:        cfg.Sim.Seed,
	}
}

// Update processes input and advances the simulation.
func (v *Viewer) Update() {
	v.handleInput()

	if v.paused {
		return
	}
	for i := 0; i < v.stepsPerFrame; i++ {
		v.info = v.sim.Step()
	}
	if v.followFlock && v.info.Birds > 0 {
		v.cam.Follow(v.info.Centroid, 0.08)
	}
}

// Step reports the last pipeline pass.
func (v *Viewer) Step() int64 {
	return v.info.Step
}

// handleInput processes keyboard and mouse input.
func (v *Viewer) handleInput() {
	if rl.IsKeyPressed(rl.KeySpace) {
		v.paused = !v.paused
	}

	// Steps-per-frame control with < > keys (comma and period)
	if rl.IsKeyPressed(rl.KeyComma) && v.stepsPerFrame > 1 {
		v.stepsPerFrame--
	}
	if rl.IsKeyPressed(rl.KeyPeriod) && v.stepsPerFrame < 10 {
		v.stepsPerFrame++
	}

	if rl.IsKeyPressed(rl.KeyP) {
		v.showPanel = !v.showPanel
	}
	if rl.IsKeyPressed(rl.KeyC) {
		v.showCentroids = !v.showCentroids
	}
	if rl.IsKeyPressed(rl.KeyF) {
		v.followFlock = !v.followFlock
	}
	if rl.IsKeyPressed(rl.KeyR) {
		v.respawn()
	}

	v.handleSelectionInput()
	v.handleCameraInput()
}

// handleCameraInput processes orbit/dolly/pan controls.
func (v *Viewer) handleCameraInput() {
	// Right-drag orbits around the target
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		d := rl.GetMouseDelta()
		v.cam.Rotate(-d.X*0.005, -d.Y*0.005)
	}

	// Middle-drag pans in the view plane
	if rl.IsMouseButtonDown(rl.MouseButtonMiddle) {
		d := rl.GetMouseDelta()
		v.cam.Pan(d.X, d.Y)
	}

	// Arrow key panning
	const panSpeed = 6.0
	if rl.IsKeyDown(rl.KeyRight) {
		v.cam.Pan(panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		v.cam.Pan(-panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		v.cam.Pan(0, panSpeed)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		v.cam.Pan(0, -panSpeed)
	}

	// Mouse wheel dollies in and out
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		v.cam.Dolly(1 - wheel*0.1)
	}

	// Home key to reset camera
	if rl.IsKeyPressed(rl.KeyHome) {
		v.followFlock = false
		v.cam.Reset()
	}
}

// respawn replaces the flock with a fresh seed.
func (v *Viewer) respawn() {
	v.reseed++
	if err := v.sim.Reset(v.cfg.Sim.Birds, v.reseed); err != nil {
		slog.Error("respawn failed", "error", err)
		return
	}
	v.info = sim.StepInfo{}
}

// Draw renders the scene and HUD.
func (v *Viewer) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(background)

	rl.BeginMode3D(v.camera3D())
	v.drawWorld()
	v.drawBirds()
	if v.showCentroids {
		v.drawCentroids()
	}
	v.drawSelection()
	rl.EndMode3D()

	v.drawHUD()
	v.drawInspector()
	if v.showPanel {
		v.drawPanel()
	}

	rl.EndDrawing()
}

func (v *Viewer) camera3D() rl.Camera3D {
	return rl.Camera3D{
		Position:   rlVec(v.cam.Eye()),
		Target:     rlVec(v.cam.Target),
		Up:         rlVec(v.cam.Up()),
		Fovy:       camera.FovY,
		Projection: rl.CameraPerspective,
	}
}

// drawWorld renders the domain wireframe and the ground grid.
func (v *Viewer) drawWorld() {
	d := &v.cfg.Derived
	center := d.BoundMin.Add(d.BoundMax).Scale(0.5)
	size := d.BoundMax.Sub(d.BoundMin)
	rl.DrawCubeWiresV(rlVec(center), rlVec(size), wireframe)
	rl.DrawGrid(20, size.X/20)
}

// drawBirds renders every bird as a short segment along its velocity,
// colored by cluster rank.
func (v *Viewer) drawBirds() {
	query := v.filter.Query()
	for query.Next() {
		pos, vel, _, bird := query.Get()

		color := rl.Gray
		if bird.Rank >= 0 && int(bird.Rank) < len(rankPalette) {
			color = rankPalette[bird.Rank]
		}

		dir := vel.Vec3.Normalized()
		if dir == (vmath.Vec3{}) {
			rl.DrawPoint3D(rlVec(pos.Vec3), color)
			continue
		}
		head := pos.Vec3.Add(dir.Scale(0.9))
		tail := pos.Vec3.Sub(dir.Scale(0.9))
		rl.DrawLine3D(rlVec(tail), rlVec(head), color)
	}
}

// drawCentroids marks the centers of the largest clusters.
func (v *Viewer) drawCentroids() {
	for i, c := range v.sim.Centroids() {
		rl.DrawSphereWires(rlVec(c), 2, 6, 8, rankPalette[i%len(rankPalette)])
	}
}

// drawHUD renders the stats overlay.
func (v *Viewer) drawHUD() {
	rl.DrawText(fmt.Sprintf("Step: %d  (%s)", v.info.Step, v.sim.Backend()), 10, 10, 20, rl.White)
	rl.DrawText(fmt.Sprintf("Birds: %d  Dropped: %d", v.info.Birds, v.info.Dropped), 10, 35, 20, rl.White)
	rl.DrawText(fmt.Sprintf("Clusters: %d  Largest: %d", v.info.Clusters, v.info.Largest), 10, 60, 20, rl.White)
	rl.DrawText(fmt.Sprintf("Order: %.2f  Speed: %.1f m/s", v.info.Order, v.info.MeanSpeed), 10, 85, 20, rl.White)

	stepDur := v.sim.Perf().Total().Round(time.Microsecond)
	rl.DrawText(fmt.Sprintf("%v/step  %d fps  %dx [</>]", stepDur, rl.GetFPS(), v.stepsPerFrame), 10, 110, 20, rl.White)

	if v.paused {
		rl.DrawText("PAUSED", 10, 135, 20, rl.Yellow)
	}

	rl.DrawText("RMB orbit  MMB pan  wheel zoom  [P]anel [C]entroids [F]ollow [R]espawn",
		10, int32(rl.GetScreenHeight())-24, 14, rl.LightGray)
}

// panelRect is the parameter panel's screen area, used both for drawing
// and for keeping picks off its widgets.
func (v *Viewer) panelRect() rl.Rectangle {
	w := float32(rl.GetScreenWidth())
	return rl.Rectangle{X: w - 295, Y: 5, Width: 285, Height: 420}
}

// drawPanel renders the steering parameter sliders.
func (v *Viewer) drawPanel() {
	r := v.panelRect()
	panelW := r.Width - 15
	x := r.X + 10
	y := r.Y + 5

	rl.DrawRectangle(int32(r.X), int32(r.Y), int32(r.Width), int32(r.Height), rl.Color{R: 0, G: 0, B: 0, A: 180})
	rl.DrawRectangleLines(int32(r.X), int32(r.Y), int32(r.Width), int32(r.Height), rl.Gray)

	rl.DrawText("Steering [P to close]", int32(x), int32(y), 18, rl.White)
	y += 30

	changed := false
	slider := func(label string, value float64, lo, hi float32, format string) float64 {
		rl.DrawText(label, int32(x), int32(y), 14, rl.LightGray)
		y += 18
		next := gui.SliderBar(
			rl.Rectangle{X: x, Y: y, Width: panelW - 60, Height: 20},
			"", "",
			float32(value), lo, hi,
		)
		rl.DrawText(fmt.Sprintf(format, value), int32(x+panelW-52), int32(y+2), 16, rl.White)
		y += 33
		if next != float32(value) {
			changed = true
			return float64(next)
		}
		return value
	}

	v.cfg.Reynolds.Avoidance = slider("Avoidance", v.cfg.Reynolds.Avoidance, 0, 2, "%.2f")
	v.cfg.Reynolds.Alignment = slider("Alignment", v.cfg.Reynolds.Alignment, 0, 2, "%.2f")
	v.cfg.Reynolds.Cohesion = slider("Cohesion", v.cfg.Reynolds.Cohesion, 0, 1, "%.2f")
	v.cfg.Flight.BoundaryAmt = slider("Border pull", v.cfg.Flight.BoundaryAmt, 0, 1, "%.2f")
	v.cfg.Flight.Stability = slider("Stability", v.cfg.Flight.Stability, 0, 1, "%.2f")

	if changed {
		v.cfg.Recompute()
	}

	y += 10
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: 120, Height: 30}, pauseLabel(v.paused)) {
		v.paused = !v.paused
	}
	if gui.Button(rl.Rectangle{X: x + 130, Y: y, Width: 120, Height: 30}, "Respawn") {
		v.respawn()
	}
}

func pauseLabel(paused bool) string {
	if paused {
		return "Resume"
	}
	return "Pause"
}

func rlVec(v vmath.Vec3) rl.Vector3 {
	return rl.Vector3{X: v.X, Y: v.Y, Z: v.Z}
}
