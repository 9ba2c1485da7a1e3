// Package camera provides an orbit camera for viewing the flock volume.
package camera

import (
	"math"

	"github.com/flock2go/starling/vmath"
)

// FovY is the vertical field of view in degrees, shared with the
// renderer so framing math and projection agree.
const FovY = 60.0

// Camera orbits a target point at a distance, described by a yaw angle
// around the world Y axis and a pitch angle above the horizon.
// Supports rotate, dolly and pan with pitch and distance constraints.
type Camera struct {
	// Target is the point the camera looks at, in world coordinates
	Target vmath.Vec3

	// Orbit angles in radians
	Yaw, Pitch float32

	// Distance from the target to the eye
	Distance float32

	// Distance constraints
	MinDistance, MaxDistance float32

	// Pitch constraints keep the camera off the poles so the world up
	// vector stays usable
	MinPitch, MaxPitch float32

	// Home framing restored by Reset
	homeTarget   vmath.Vec3
	homeYaw      float32
	homePitch    float32
	homeDistance float32
}

// New creates a camera framing the whole domain: the target sits at the
// domain center and the distance fits the bounding sphere into the
// vertical field of view.
func New(boundMin, boundMax vmath.Vec3) *Camera {
	center := boundMin.Add(boundMax).Scale(0.5)
	radius := boundMax.Sub(boundMin).Len() * 0.5

	// Fit a sphere of the domain radius: d = r / sin(fov/2)
	halfFov := float64(FovY) * 0.5 * math.Pi / 180
	distance := radius / float32(math.Sin(halfFov))

	c := &Camera{
		Target:      center,
		Yaw:         math.Pi / 4,
		Pitch:       0.35,
		Distance:    distance,
		MinDistance: radius * 0.02,
		MaxDistance: distance * 6,
		MinPitch:    -1.45,
		MaxPitch:    1.45,
	}
	c.homeTarget = c.Target
	c.homeYaw = c.Yaw
	c.homePitch = c.Pitch
	c.homeDistance = c.Distance
	return c
}

// Eye returns the camera position in world coordinates.
func (c *Camera) Eye() vmath.Vec3 {
	cp := float32(math.Cos(float64(c.Pitch)))
	offset := vmath.Vec3{
		X: cp * float32(math.Sin(float64(c.Yaw))),
		Y: float32(math.Sin(float64(c.Pitch))),
		Z: cp * float32(math.Cos(float64(c.Yaw))),
	}
	return c.Target.Add(offset.Scale(c.Distance))
}

// Up returns the camera up vector. With pitch clamped off the poles the
// world up is always valid.
func (c *Camera) Up() vmath.Vec3 {
	return vmath.Vec3{Y: 1}
}

// Rotate orbits the camera by the given yaw and pitch deltas in
// radians. Yaw wraps, pitch clamps.
func (c *Camera) Rotate(dyaw, dpitch float32) {
	c.Yaw = wrapAngle(c.Yaw + dyaw)
	c.Pitch = clamp(c.Pitch+dpitch, c.MinPitch, c.MaxPitch)
}

// Dolly multiplies the orbit distance by the given factor, clamped to
// the distance constraints.
func (c *Camera) Dolly(factor float32) {
	c.Distance = clamp(c.Distance*factor, c.MinDistance, c.MaxDistance)
}

// Pan moves the target within the screen plane. Deltas are in screen
// pixels; the world-space step scales with the orbit distance so a drag
// covers the same fraction of the view at any zoom.
func (c *Camera) Pan(dx, dy float32) {
	fwd := c.Target.Sub(c.Eye()).Normalized()
	right := fwd.Cross(vmath.Vec3{Y: 1}).Normalized()
	up := right.Cross(fwd)

	s := c.Distance * 0.001
	c.Target = c.Target.Sub(right.Scale(dx * s)).Add(up.Scale(dy * s))
}

// Follow eases the target toward a point. rate is the fraction covered
// per call; 1 snaps.
func (c *Camera) Follow(p vmath.Vec3, rate float32) {
	c.Target = c.Target.Lerp(p, rate)
}

// Reset returns the camera to the initial framing.
func (c *Camera) Reset() {
	c.Target = c.homeTarget
	c.Yaw = c.homeYaw
	c.Pitch = c.homePitch
	c.Distance = c.homeDistance
}

// wrapAngle wraps angle to [-pi, pi].
func wrapAngle(a float32) float32 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// clamp restricts a value to a range.
func clamp(x, min, max float32) float32 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
