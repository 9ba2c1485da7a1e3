// Package components defines ECS components for the simulation.
package components

import "github.com/flock2go/starling/vmath"

// Position is an entity's world position in meters.
type Position struct {
	vmath.Vec3
}

// Velocity is an entity's velocity in m/s.
type Velocity struct {
	vmath.Vec3
}

// Orientation is an entity's unit rotation. Its forward axis drives
// the field-of-view cone in neighbor discovery, and the integrator
// keeps it aligned with the velocity.
type Orientation struct {
	vmath.Quat
}

// Bird carries stable identity plus the latest step's derived state.
// The pipeline works on transient array slots; these fields are the
// write-back so readers between steps (viewer, telemetry) see results
// keyed to the bird rather than to a slot.
type Bird struct {
	ID      int32
	Speed   float32 // cached |velocity|
	Near    int32   // id of the nearest in-cone neighbor, -1 when none
	Cone    int32   // in-cone neighbor count
	Topo    int32   // retained topological neighbor count
	Cluster int32   // cluster id, -1 before the first step
	Rank    int32   // cluster rank by size, -1 unranked
}
