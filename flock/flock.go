// Package flock implements per-agent neighbor discovery and proximity
// clustering on top of a bucketized spatial grid. One scan per step
// walks every agent's adjacency window, maintains a bounded list of its
// nearest in-cone neighbors, and pairs agents closer than the cluster
// threshold into connected components.
//
// The scan exists in two forms with identical results: ScanSeq feeds
// proximity pairs straight into a Partition while it walks, and
// ScanRange captures the pairs per agent so that workers can run
// ranges concurrently and clustering can replay the captures in one
// serialized pass afterwards.
package flock

import (
	"fmt"

	"github.com/flock2go/starling/vmath"
)

const (
	// ListMax fixes the capacity of the per-agent sorted neighbor
	// list. The retained count K must stay below it so an insertion
	// can shift the whole list before clamping.
	ListMax = 16

	// CandMax fixes the capacity of the per-agent proximity capture
	// used by the parallel backend. Partners past the cap are dropped;
	// the pair usually survives through the partner's own capture.
	CandMax = 16

	// NumFlocks is how many top-ranked clusters get a centroid.
	NumFlocks = 8
)

// Params are the per-step scan thresholds, all in world units.
type Params struct {
	Radius2  float32 // squared neighbor search radius
	Cluster2 float32 // squared proximity pairing threshold
	FovCos   float32 // cosine of half the field of view
	K        int     // retained neighbor bound
}

// MakeParams squares the distance thresholds and derives the cosine of
// the half field-of-view angle from degrees. K at or above ListMax is a
// configuration error.
func MakeParams(radius, clusterDist, fovDeg float32, k int) (Params, error) {
	if k < 1 || k >= ListMax {
		return Params{}, fmt.Errorf("neighbor bound %d outside [1, %d]", k, ListMax-1)
	}
	if radius <= 0 || clusterDist <= 0 {
		return Params{}, fmt.Errorf("non-positive scan distance (radius %g, cluster %g)", radius, clusterDist)
	}
	return Params{
		Radius2:  radius * radius,
		Cluster2: clusterDist * clusterDist,
		FovCos:   vmath.Cos(fovDeg * 0.5 * degToRad),
		K:        k,
	}, nil
}

const degToRad = 3.14159265358979 / 180.0

// Result holds the per-agent outputs of one scan, indexed by agent
// slot. Slices are resized by Reset and valid until the next scan.
type Result struct {
	Near   []int32      // nearest in-cone neighbor slot, -1 when none
	Cone   []int32      // all in-radius in-cone candidates seen
	Topo   []int32      // retained list length, at most K
	AvePos []vmath.Vec3 // mean position over the retained list
	AveVel []vmath.Vec3 // mean velocity over the retained list

	// proximity captures, filled only by ScanRange
	Cand  [][CandMax]int32
	CandN []int32
}

// NewResult sizes a Result for up to maxAgents agents.
func NewResult(maxAgents int) *Result {
	r := &Result{}
	r.Reset(maxAgents)
	return r
}

// Reset resizes all arrays to n agents. Contents are overwritten by the
// next scan, so nothing is zeroed here except the capture lengths.
func (r *Result) Reset(n int) {
	if cap(r.Near) < n {
		r.Near = make([]int32, n)
		r.Cone = make([]int32, n)
		r.Topo = make([]int32, n)
		r.AvePos = make([]vmath.Vec3, n)
		r.AveVel = make([]vmath.Vec3, n)
		r.Cand = make([][CandMax]int32, n)
		r.CandN = make([]int32, n)
	}
	r.Near = r.Near[:n]
	r.Cone = r.Cone[:n]
	r.Topo = r.Topo[:n]
	r.AvePos = r.AvePos[:n]
	r.AveVel = r.AveVel[:n]
	r.Cand = r.Cand[:n]
	r.CandN = r.CandN[:n]
	for i := range r.CandN {
		r.CandN[i] = 0
	}
}
