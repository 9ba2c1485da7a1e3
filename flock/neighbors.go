package flock

import (
	"github.com/flock2go/starling/grid"
	"github.com/flock2go/starling/vmath"
)

// nbrList keeps candidate slots sorted by ascending squared distance.
// An insertion past the bound shifts into the spare tail slot and is
// clamped away, so the bound must stay below ListMax.
type nbrList struct {
	d [ListMax]float32
	s [ListMax]int32
	n int
}

func (l *nbrList) insert(s int32, dsq float32, bound int) {
	k := 0
	for k < l.n && dsq > l.d[k] {
		k++
	}
	for m := l.n - 1; m >= k; m-- {
		l.d[m+1] = l.d[m]
		l.s[m+1] = l.s[m]
	}
	l.d[k] = dsq
	l.s[k] = s
	if l.n++; l.n > bound {
		l.n = bound
	}
}

func (r *Result) finish(i int, l *nbrList, cone int32, pos, vel []vmath.Vec3) {
	var sp, sv vmath.Vec3
	for k := 0; k < l.n; k++ {
		sp = sp.Add(pos[l.s[k]])
		sv = sv.Add(vel[l.s[k]])
	}
	if l.n > 0 {
		inv := 1 / float32(l.n)
		r.AvePos[i] = sp.Scale(inv)
		r.AveVel[i] = sv.Scale(inv)
		r.Near[i] = l.s[0]
	} else {
		r.AvePos[i] = vmath.Vec3{}
		r.AveVel[i] = vmath.Vec3{}
		r.Near[i] = -1
	}
	r.Cone[i] = cone
	r.Topo[i] = int32(l.n)
}

// ScanSeq is the single-worker scan and the correctness reference.
// Every agent first gets a cluster id, then its adjacency window is
// walked once: pairs under the cluster threshold go straight into the
// partition, candidates under the search radius and inside the forward
// cone go through the bounded insertion list. Agents with an undefined
// cell skip the walk and keep empty results.
func ScanSeq(g *grid.Grid, pos, vel, fwd []vmath.Vec3, par Params, res *Result, pt *Partition) {
	for i := range pos {
		pt.Ensure(int32(i))
		var l nbrList
		cone := int32(0)
		if c := g.Cells[i]; c != grid.CellUndef {
			base := c - g.Geo.Base
			pi := pos[i]
			fi := fwd[i]
			for _, off := range g.Geo.Adj {
				lo, hi := g.CellRange(base + off)
				for s := lo; s < hi; s++ {
					j := g.Sorted[s]
					if j == int32(i) {
						continue
					}
					d := pos[j].Sub(pi)
					dsq := d.LenSq()
					if dsq < par.Cluster2 {
						pt.Pair(int32(i), j)
					}
					if dsq < par.Radius2 && fi.Dot(d.Normalized()) > par.FovCos {
						l.insert(j, dsq, par.K)
						cone++
					}
				}
			}
		}
		res.finish(i, &l, cone, pos, vel)
	}
}

// ScanRange runs the same scan for slots [lo, hi). It writes only
// slot-i fields of res and reads the grid and agent arrays immutably,
// so disjoint ranges are safe to run concurrently. Proximity pairs are
// captured per agent, up to CandMax, for the serialized clustering
// pass that follows.
func ScanRange(g *grid.Grid, pos, vel, fwd []vmath.Vec3, par Params, res *Result, lo, hi int) {
	for i := lo; i < hi; i++ {
		var l nbrList
		cone := int32(0)
		cn := int32(0)
		if c := g.Cells[i]; c != grid.CellUndef {
			base := c - g.Geo.Base
			pi := pos[i]
			fi := fwd[i]
			for _, off := range g.Geo.Adj {
				blo, bhi := g.CellRange(base + off)
				for s := blo; s < bhi; s++ {
					j := g.Sorted[s]
					if j == int32(i) {
						continue
					}
					d := pos[j].Sub(pi)
					dsq := d.LenSq()
					if dsq < par.Cluster2 && cn < CandMax {
						res.Cand[i][cn] = j
						cn++
					}
					if dsq < par.Radius2 && fi.Dot(d.Normalized()) > par.FovCos {
						l.insert(j, dsq, par.K)
						cone++
					}
				}
			}
		}
		res.CandN[i] = cn
		res.finish(i, &l, cone, pos, vel)
	}
}
