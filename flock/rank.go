package flock

import (
	"sort"

	"github.com/flock2go/starling/vmath"
)

// ClusterSize is one histogram record of a ranking.
type ClusterSize struct {
	ID    int32
	Count int32
}

// Ranking orders the surviving clusters largest first.
type Ranking struct {
	Sizes []ClusterSize // descending by count, ascending id on ties
	Order []int32       // cluster id to rank; -1 for emptied ids
}

// Rank builds the histogram over non-empty cluster ids, sorts it
// descending by member count with ascending id as the tie break, and
// derives the id-to-rank table.
func (p *Partition) Rank() Ranking {
	r := Ranking{
		Sizes: make([]ClusterSize, 0, len(p.members)),
		Order: make([]int32, len(p.members)),
	}
	for id := range p.members {
		r.Order[id] = -1
		if n := len(p.members[id]); n > 0 {
			r.Sizes = append(r.Sizes, ClusterSize{ID: int32(id), Count: int32(n)})
		}
	}
	sort.Slice(r.Sizes, func(a, b int) bool {
		if r.Sizes[a].Count != r.Sizes[b].Count {
			return r.Sizes[a].Count > r.Sizes[b].Count
		}
		return r.Sizes[a].ID < r.Sizes[b].ID
	})
	for rank, cs := range r.Sizes {
		r.Order[cs.ID] = int32(rank)
	}
	return r
}

// RankOf returns the rank of a cluster id, -1 when the id is out of
// range or was emptied by a merge.
func (r *Ranking) RankOf(id int32) int32 {
	if id < 0 || int(id) >= len(r.Order) {
		return -1
	}
	return r.Order[id]
}

// Centroids returns the mean member position of the top maxN ranked
// clusters. Members without a finite position are left out of the
// mean; a cluster with none keeps a zero centroid instead of dividing
// by zero.
func (p *Partition) Centroids(r Ranking, pos []vmath.Vec3, maxN int) []vmath.Vec3 {
	n := maxN
	if n > len(r.Sizes) {
		n = len(r.Sizes)
	}
	out := make([]vmath.Vec3, n)
	for rank := 0; rank < n; rank++ {
		var sum vmath.Vec3
		cnt := 0
		for _, s := range p.members[r.Sizes[rank].ID] {
			if pos[s].IsFinite() {
				sum = sum.Add(pos[s])
				cnt++
			}
		}
		if cnt > 0 {
			out[rank] = sum.Scale(1 / float32(cnt))
		}
	}
	return out
}
