package flock

import (
	"math"
	"math/rand"
	"testing"

	"github.com/flock2go/starling/vmath"
)

// bruteComponents labels connected components over all finite agent
// pairs within the threshold, as a reference for the union-merge.
func bruteComponents(pos []vmath.Vec3, cluster2 float32) []int32 {
	parent := make([]int32, len(pos))
	for i := range parent {
		parent[i] = int32(i)
	}
	var find func(int32) int32
	find = func(x int32) int32 {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	for i := 0; i < len(pos); i++ {
		if !pos[i].IsFinite() {
			continue
		}
		for j := i + 1; j < len(pos); j++ {
			if !pos[j].IsFinite() {
				continue
			}
			if pos[j].Sub(pos[i]).LenSq() < cluster2 {
				ri, rj := find(int32(i)), find(int32(j))
				if ri != rj {
					parent[rj] = ri
				}
			}
		}
	}
	out := make([]int32, len(pos))
	for i := range out {
		out[i] = find(int32(i))
	}
	return out
}

func TestEnsureAllocatesSequentialIds(t *testing.T) {
	p := NewPartition(4)
	if id := p.Ensure(2); id != 0 {
		t.Errorf("first id = %d, want 0", id)
	}
	if id := p.Ensure(0); id != 1 {
		t.Errorf("second id = %d, want 1", id)
	}
	if id := p.Ensure(2); id != 0 {
		t.Errorf("repeat Ensure moved the agent to %d", id)
	}
	if p.Clusters() != 2 {
		t.Errorf("clusters = %d, want 2", p.Clusters())
	}
}

func TestPairJoinsUnassigned(t *testing.T) {
	p := NewPartition(4)
	p.Ensure(0)
	p.Pair(0, 3)
	if p.ID[3] != p.ID[0] {
		t.Errorf("joined agent in cluster %d, want %d", p.ID[3], p.ID[0])
	}
	if len(p.Members(p.ID[0])) != 2 {
		t.Errorf("members = %d, want 2", len(p.Members(p.ID[0])))
	}
}

func TestPairMergesSmallerIntoLarger(t *testing.T) {
	p := NewPartition(8)
	p.Ensure(0)
	p.Pair(0, 1)
	p.Pair(0, 2) // cluster 0: {0,1,2}
	p.Ensure(3)
	p.Pair(3, 4) // cluster 1: {3,4}

	// called from the smaller side; the larger cluster's id survives
	p.Pair(3, 0)
	for s := int32(0); s < 5; s++ {
		if p.ID[s] != 0 {
			t.Fatalf("slot %d in cluster %d, want 0", s, p.ID[s])
		}
	}
	if len(p.Members(0)) != 5 {
		t.Errorf("surviving members = %d, want 5", len(p.Members(0)))
	}
	if len(p.Members(1)) != 0 {
		t.Errorf("merged-away cluster still has %d members", len(p.Members(1)))
	}
}

func TestPairMergeTieKeepsEarlierId(t *testing.T) {
	p := NewPartition(4)
	p.Ensure(0)
	p.Pair(0, 1) // cluster 0: {0,1}
	p.Ensure(2)
	p.Pair(2, 3) // cluster 1: {2,3}

	p.Pair(2, 0)
	if p.ID[0] != 0 || p.ID[2] != 0 {
		t.Errorf("tie merge kept id %d, want 0", p.ID[2])
	}
}

func TestAssignCandidatesAdoptsLowestId(t *testing.T) {
	p := NewPartition(8)
	p.Ensure(0) // id 0
	p.Ensure(3) // id 1

	p.AssignCandidates(5, []int32{3, 0})
	// all three end merged; the root adopted id 0 before pairing
	if p.ID[5] != 0 || p.ID[3] != 0 || p.ID[0] != 0 {
		t.Errorf("ids = %d, %d, %d, want all 0", p.ID[0], p.ID[3], p.ID[5])
	}
}

func TestAssignCandidatesFreshWhenNoneAssigned(t *testing.T) {
	p := NewPartition(8)
	p.AssignCandidates(2, []int32{4})
	if p.ID[2] != 0 || p.ID[4] != 0 {
		t.Errorf("ids = %d, %d, want both 0", p.ID[2], p.ID[4])
	}
	p.AssignCandidates(6, nil)
	if p.ID[6] != 1 {
		t.Errorf("isolated agent id = %d, want fresh 1", p.ID[6])
	}
}

func TestPartitionReset(t *testing.T) {
	p := NewPartition(6)
	p.Ensure(0)
	p.Pair(0, 1)
	p.Ensure(2)

	p.Reset(6)
	if p.Clusters() != 0 {
		t.Errorf("clusters after reset = %d", p.Clusters())
	}
	for s, id := range p.ID {
		if id != -1 {
			t.Fatalf("slot %d still assigned to %d", s, id)
		}
	}
	// reusing recycled member backing must not leak old members
	p.Ensure(4)
	if got := p.Members(0); len(got) != 1 || got[0] != 4 {
		t.Errorf("recycled cluster members = %v, want [4]", got)
	}
}

func TestChainClustersTransitively(t *testing.T) {
	par := defaultParams(t)
	// adjacent links only: spacing 1.5 pairs, 3.0 next-but-one misses
	// the strict threshold
	n := 10
	pos := make([]vmath.Vec3, n)
	vel := make([]vmath.Vec3, n)
	fwd := make([]vmath.Vec3, n)
	for i := 0; i < n; i++ {
		pos[i] = vmath.Vec3{X: float32(i) * 1.5, Y: 50, Z: 0}
		fwd[i] = vmath.Vec3{X: 1}
	}

	g := buildWorld(t, pos)
	res := NewResult(n)
	pt := NewPartition(n)
	ScanSeq(g, pos, vel, fwd, par, res, pt)

	for i := 1; i < n; i++ {
		if pt.ID[i] != pt.ID[0] {
			t.Fatalf("chain member %d in cluster %d, want %d", i, pt.ID[i], pt.ID[0])
		}
	}
	r := pt.Rank()
	if len(r.Sizes) != 1 || r.Sizes[0].Count != int32(n) {
		t.Errorf("ranking = %+v, want a single cluster of %d", r.Sizes, n)
	}
}

func clumpedAgents(rng *rand.Rand) (pos, vel, fwd []vmath.Vec3, clumps int) {
	clumps = 5
	centers := []vmath.Vec3{
		{X: -150, Y: 50, Z: -150},
		{X: 150, Y: 50, Z: -150},
		{X: 0, Y: 100, Z: 0},
		{X: -150, Y: 150, Z: 150},
		{X: 150, Y: 150, Z: 150},
	}
	for _, c := range centers {
		for k := 0; k < 8; k++ {
			pos = append(pos, c.Add(vmath.Vec3{
				X: rng.Float32() - 0.5,
				Y: rng.Float32() - 0.5,
				Z: rng.Float32() - 0.5,
			}))
		}
	}
	for k := 0; k < 10; k++ {
		pos = append(pos, vmath.Vec3{
			X: rng.Float32()*100 - 50,
			Y: rng.Float32()*50 + 10,
			Z: rng.Float32()*100 - 50,
		})
	}
	vel = make([]vmath.Vec3, len(pos))
	fwd = make([]vmath.Vec3, len(pos))
	for i := range fwd {
		fwd[i] = vmath.Vec3{X: 1}
	}
	return pos, vel, fwd, clumps
}

func TestBothEntryPointsMatchBruteComponents(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	pos, vel, fwd, _ := clumpedAgents(rng)
	par := defaultParams(t)
	g := buildWorld(t, pos)

	seq := NewResult(len(pos))
	seqPt := NewPartition(len(pos))
	ScanSeq(g, pos, vel, fwd, par, seq, seqPt)

	ranged := NewResult(len(pos))
	ScanRange(g, pos, vel, fwd, par, ranged, 0, len(pos))
	rangedPt := NewPartition(len(pos))
	rangedPt.ClusterFromCandidates(ranged)

	want := canonicalGroups(bruteComponents(pos, par.Cluster2), identity)
	sameGroups(t, want, canonicalGroups(seqPt.ID, identity))
	sameGroups(t, want, canonicalGroups(rangedPt.ID, identity))
}

func TestRankOrdersByCountThenId(t *testing.T) {
	p := NewPartition(16)
	p.Ensure(0)
	p.Pair(0, 1)
	p.Pair(0, 2) // id 0: 3 members
	p.Ensure(3)  // id 1: 1 member
	p.Ensure(4)
	p.Pair(4, 5)
	p.Pair(4, 6) // id 2: 3 members
	p.Ensure(7)  // id 3, then emptied by merge below
	p.Pair(0, 7) // id 0 grows to 4

	r := p.Rank()
	wantSizes := []ClusterSize{{ID: 0, Count: 4}, {ID: 2, Count: 3}, {ID: 1, Count: 1}}
	if len(r.Sizes) != len(wantSizes) {
		t.Fatalf("histogram = %+v, want %+v", r.Sizes, wantSizes)
	}
	for k := range wantSizes {
		if r.Sizes[k] != wantSizes[k] {
			t.Errorf("rank %d = %+v, want %+v", k, r.Sizes[k], wantSizes[k])
		}
	}
	wantOrder := []int32{0, 2, 1, -1}
	for id, want := range wantOrder {
		if r.Order[id] != want {
			t.Errorf("order[%d] = %d, want %d", id, r.Order[id], want)
		}
	}
	if r.RankOf(3) != -1 || r.RankOf(-1) != -1 || r.RankOf(99) != -1 {
		t.Error("unranked ids should map to -1")
	}
}

func TestRankTieBreaksAscending(t *testing.T) {
	p := NewPartition(8)
	p.Ensure(0)
	p.Pair(0, 1) // id 0: 2 members
	p.Ensure(2)
	p.Pair(2, 3) // id 1: 2 members

	r := p.Rank()
	if r.Sizes[0].ID != 0 || r.Sizes[1].ID != 1 {
		t.Errorf("tied histogram order = %+v, want ids 0 then 1", r.Sizes)
	}
}

func TestCentroids(t *testing.T) {
	pos := []vmath.Vec3{
		{X: 0, Y: 50, Z: 0},
		{X: 2, Y: 52, Z: 0},
		{X: 10, Y: 60, Z: 10},
		{X: 30, Y: 30, Z: 30},
		{X: 32, Y: 30, Z: 30},
	}
	p := NewPartition(len(pos))
	p.Ensure(0)
	p.Pair(0, 1) // id 0: slots 0,1
	p.Ensure(2)  // id 1: slot 2
	p.Ensure(3)
	p.Pair(3, 4) // id 2: slots 3,4

	r := p.Rank()
	got := p.Centroids(r, pos, NumFlocks)
	if len(got) != 3 {
		t.Fatalf("centroid count = %d, want 3 (clamped to cluster count)", len(got))
	}
	// ranks: ties at 2 members resolve to id 0 then id 2, singleton last
	if !vecNear(got[0], vmath.Vec3{X: 1, Y: 51, Z: 0}, 1e-4) {
		t.Errorf("rank 0 centroid = %v", got[0])
	}
	if !vecNear(got[1], vmath.Vec3{X: 31, Y: 30, Z: 30}, 1e-4) {
		t.Errorf("rank 1 centroid = %v", got[1])
	}
	if !vecNear(got[2], pos[2], 1e-4) {
		t.Errorf("rank 2 centroid = %v", got[2])
	}

	if got := p.Centroids(r, pos, 1); len(got) != 1 {
		t.Errorf("maxN=1 returned %d centroids", len(got))
	}
}

func TestCentroidSkipsNonFiniteMembers(t *testing.T) {
	nan := float32(math.NaN())
	pos := []vmath.Vec3{
		{X: 10, Y: 50, Z: 10},
		{X: nan, Y: nan, Z: nan},
		{X: nan, Y: 20, Z: 0},
	}
	p := NewPartition(len(pos))
	p.Ensure(0)
	p.Pair(0, 1) // id 0: one finite, one not
	p.Ensure(2)  // id 1: nothing finite

	r := p.Rank()
	got := p.Centroids(r, pos, NumFlocks)
	if !vecNear(got[0], pos[0], 1e-4) {
		t.Errorf("centroid with non-finite member = %v, want %v", got[0], pos[0])
	}
	if (got[1] != vmath.Vec3{}) {
		t.Errorf("all-non-finite cluster centroid = %v, want zero", got[1])
	}
}
