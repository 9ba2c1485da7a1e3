package flock

// Partition labels agents with cluster ids by transitive proximity.
// Ids are allocated in encounter order and never reused within a step.
// A merge walks the smaller cluster's full member list, retags every
// moved slot and leaves the source id empty; there is no lazy
// union-find here because downstream ranking wants materialized member
// lists anyway.
type Partition struct {
	ID      []int32   // per slot, -1 until first encounter
	members [][]int32 // member slots per id; empty once merged away
}

// NewPartition sizes a partition for up to maxAgents agents.
func NewPartition(maxAgents int) *Partition {
	p := &Partition{}
	p.Reset(maxAgents)
	return p
}

// Reset prepares for n agents with no assignments. Member list backing
// arrays are kept for reuse.
func (p *Partition) Reset(n int) {
	if cap(p.ID) < n {
		p.ID = make([]int32, n)
	}
	p.ID = p.ID[:n]
	for i := range p.ID {
		p.ID[i] = -1
	}
	p.members = p.members[:0]
}

func (p *Partition) alloc(i int32) int32 {
	id := len(p.members)
	if id < cap(p.members) {
		p.members = p.members[:id+1]
		p.members[id] = append(p.members[id][:0], i)
	} else {
		p.members = append(p.members, []int32{i})
	}
	return int32(id)
}

// Ensure gives slot i a singleton cluster if it has none yet and
// returns its id.
func (p *Partition) Ensure(i int32) int32 {
	if p.ID[i] == -1 {
		p.ID[i] = p.alloc(i)
	}
	return p.ID[i]
}

// Pair records that slots i and j sit within the clustering threshold.
// Slot i must already be assigned. An unassigned j joins i's cluster;
// two distinct clusters merge the smaller member list into the larger,
// with the later id giving way on ties.
func (p *Partition) Pair(i, j int32) {
	ci := p.ID[i]
	cj := p.ID[j]
	if cj == -1 {
		p.ID[j] = ci
		p.members[ci] = append(p.members[ci], j)
		return
	}
	if cj == ci {
		return
	}
	from, to := cj, ci
	if len(p.members[from]) > len(p.members[to]) ||
		(len(p.members[from]) == len(p.members[to]) && from < to) {
		from, to = to, from
	}
	for _, s := range p.members[from] {
		p.ID[s] = to
		p.members[to] = append(p.members[to], s)
	}
	p.members[from] = p.members[from][:0]
}

// AssignCandidates is the batch entry point used after a parallel
// scan. An unassigned slot adopts the lowest cluster id among its
// already assigned candidates, or a fresh one when there is none; then
// every candidate is paired as in the sequential scan.
func (p *Partition) AssignCandidates(i int32, cands []int32) {
	if p.ID[i] == -1 {
		best := int32(-1)
		for _, j := range cands {
			if cj := p.ID[j]; cj != -1 && (best == -1 || cj < best) {
				best = cj
			}
		}
		if best == -1 {
			p.ID[i] = p.alloc(i)
		} else {
			p.ID[i] = best
			p.members[best] = append(p.members[best], i)
		}
	}
	for _, j := range cands {
		p.Pair(i, j)
	}
}

// ClusterFromCandidates replays every agent's captured proximity
// partners in slot order. One call on one goroutine replaces the
// inline pairing of the sequential scan; both produce the same
// connected components for the same pair set.
func (p *Partition) ClusterFromCandidates(res *Result) {
	for i := range res.CandN {
		p.AssignCandidates(int32(i), res.Cand[i][:res.CandN[i]])
	}
}

// Clusters returns how many ids have been allocated this step,
// including ids emptied by merges.
func (p *Partition) Clusters() int {
	return len(p.members)
}

// Members returns the member slots of a cluster id. The slice is
// shared with the partition, not copied.
func (p *Partition) Members(id int32) []int32 {
	return p.members[id]
}
