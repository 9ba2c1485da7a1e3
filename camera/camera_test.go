package camera

import (
	"math"
	"testing"

	"github.com/flock2go/starling/vmath"
)

func testCamera() *Camera {
	return New(vmath.Vec3{X: -200, Y: 0, Z: -200}, vmath.Vec3{X: 200, Y: 200, Z: 200})
}

func TestNewFramesDomain(t *testing.T) {
	cam := testCamera()

	// Target should be the domain center
	want := vmath.Vec3{X: 0, Y: 100, Z: 0}
	if cam.Target != want {
		t.Errorf("expected target %v, got %v", want, cam.Target)
	}

	// Bounding radius is 300; at 60 degree fov the fit distance is 2r
	if math.Abs(float64(cam.Distance-600)) > 0.5 {
		t.Errorf("expected distance ~600, got %f", cam.Distance)
	}

	if cam.MinDistance >= cam.MaxDistance {
		t.Errorf("degenerate distance constraints: [%f, %f]", cam.MinDistance, cam.MaxDistance)
	}
}

func TestEyeSitsAtOrbitDistance(t *testing.T) {
	cam := testCamera()

	for _, angles := range []struct{ yaw, pitch float32 }{
		{0, 0},
		{1.2, 0.5},
		{-2.5, -0.8},
	} {
		cam.Yaw, cam.Pitch = angles.yaw, angles.pitch
		d := cam.Eye().Sub(cam.Target).Len()
		if math.Abs(float64(d-cam.Distance)) > 0.01 {
			t.Errorf("yaw=%f pitch=%f: eye distance %f, want %f", angles.yaw, angles.pitch, d, cam.Distance)
		}
	}

	// Zero pitch keeps the eye level with the target
	cam.Yaw, cam.Pitch = 1.0, 0
	if math.Abs(float64(cam.Eye().Y-cam.Target.Y)) > 0.01 {
		t.Errorf("expected level eye at zero pitch, got Y=%f", cam.Eye().Y)
	}
}

func TestRotateClampsPitch(t *testing.T) {
	cam := testCamera()

	cam.Rotate(0, 10)
	if cam.Pitch != cam.MaxPitch {
		t.Errorf("expected pitch clamped to %f, got %f", cam.MaxPitch, cam.Pitch)
	}

	cam.Rotate(0, -20)
	if cam.Pitch != cam.MinPitch {
		t.Errorf("expected pitch clamped to %f, got %f", cam.MinPitch, cam.Pitch)
	}
}

func TestRotateWrapsYaw(t *testing.T) {
	cam := testCamera()
	cam.Yaw = 0

	cam.Rotate(3*math.Pi, 0)
	if cam.Yaw < -math.Pi || cam.Yaw > math.Pi {
		t.Errorf("expected yaw wrapped to [-pi, pi], got %f", cam.Yaw)
	}
	if math.Abs(float64(cam.Yaw-math.Pi)) > 0.001 && math.Abs(float64(cam.Yaw+math.Pi)) > 0.001 {
		t.Errorf("expected yaw at +-pi after 3pi turn, got %f", cam.Yaw)
	}
}

func TestDollyClamps(t *testing.T) {
	cam := testCamera()

	cam.Dolly(1e6)
	if cam.Distance != cam.MaxDistance {
		t.Errorf("expected distance clamped to %f, got %f", cam.MaxDistance, cam.Distance)
	}

	cam.Dolly(1e-9)
	if cam.Distance != cam.MinDistance {
		t.Errorf("expected distance clamped to %f, got %f", cam.MinDistance, cam.Distance)
	}
}

func TestPanMovesAcrossView(t *testing.T) {
	cam := testCamera()
	before := cam.Target
	fwd := cam.Target.Sub(cam.Eye()).Normalized()

	cam.Pan(120, 0)

	delta := cam.Target.Sub(before)
	if delta.Len() == 0 {
		t.Fatal("pan did not move the target")
	}
	// The pan stays in the screen plane
	if d := float64(delta.Normalized().Dot(fwd)); math.Abs(d) > 0.001 {
		t.Errorf("pan moved along the view axis: dot=%f", d)
	}
	// Orbit distance is unaffected
	if math.Abs(float64(cam.Eye().Sub(cam.Target).Len()-cam.Distance)) > 0.01 {
		t.Error("pan changed the orbit distance")
	}
}

func TestFollowEasesTowardPoint(t *testing.T) {
	cam := testCamera()
	goal := vmath.Vec3{X: 50, Y: 120, Z: -30}

	d0 := cam.Target.Sub(goal).Len()
	cam.Follow(goal, 0.5)
	d1 := cam.Target.Sub(goal).Len()
	if d1 >= d0 {
		t.Errorf("follow did not approach: %f -> %f", d0, d1)
	}

	cam.Follow(goal, 1)
	if cam.Target != goal {
		t.Errorf("rate 1 should snap to goal, got %v", cam.Target)
	}
}

func TestReset(t *testing.T) {
	cam := testCamera()
	home := *cam

	cam.Rotate(1.0, 0.5)
	cam.Dolly(0.3)
	cam.Pan(200, -100)
	cam.Reset()

	if cam.Target != home.Target || cam.Yaw != home.Yaw ||
		cam.Pitch != home.Pitch || cam.Distance != home.Distance {
		t.Errorf("reset did not restore framing: %+v", cam)
	}
}
