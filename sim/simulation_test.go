package sim

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/flock2go/starling/config"
	"github.com/flock2go/starling/vmath"
)

func testConfig(t *testing.T, birds int) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	cfg.Sim.Birds = birds
	cfg.Sim.Seed = 12
	cfg.Sim.Workers = 4
	return cfg
}

type birdState struct {
	pos, vel vmath.Vec3
	speed    float32
	near     int32
	cone     int32
	topo     int32
	cluster  int32
	rank     int32
}

// collect reads the written-back component state keyed by bird id.
func collect(s *Simulation) map[int32]birdState {
	out := make(map[int32]birdState)
	query := s.filter.Query()
	for query.Next() {
		pos, vel, _, bird := query.Get()
		out[bird.ID] = birdState{
			pos:     pos.Vec3,
			vel:     vel.Vec3,
			speed:   bird.Speed,
			near:    bird.Near,
			cone:    bird.Cone,
			topo:    bird.Topo,
			cluster: bird.Cluster,
			rank:    bird.Rank,
		}
	}
	return out
}

// groupKeys canonicalizes the cluster partition as a set of sorted
// member id lists, so groupings compare across differing labels.
func groupKeys(states map[int32]birdState) map[string]bool {
	byCluster := make(map[int32][]int32)
	for id, st := range states {
		byCluster[st.cluster] = append(byCluster[st.cluster], id)
	}
	keys := make(map[string]bool, len(byCluster))
	for _, members := range byCluster {
		sort.Slice(members, func(a, b int) bool { return members[a] < members[b] })
		keys[fmt.Sprint(members)] = true
	}
	return keys
}

// rankLoads maps each assigned rank to the number of birds holding it.
func rankLoads(states map[int32]birdState) map[int32]int {
	loads := make(map[int32]int)
	for _, st := range states {
		loads[st.rank]++
	}
	return loads
}

func TestBackendsProduceSameResults(t *testing.T) {
	seq, err := New(testConfig(t, 600), Sequential)
	if err != nil {
		t.Fatalf("sequential sim: %v", err)
	}
	defer seq.Close()
	par, err := New(testConfig(t, 600), Parallel)
	if err != nil {
		t.Fatalf("parallel sim: %v", err)
	}
	defer par.Close()

	for step := 0; step < 5; step++ {
		is := seq.Step()
		ip := par.Step()

		if is.Birds != ip.Birds || is.Dropped != ip.Dropped {
			t.Fatalf("step %d: birds/dropped diverged: %+v vs %+v", step, is, ip)
		}
		if is.Clusters != ip.Clusters || is.Largest != ip.Largest {
			t.Fatalf("step %d: clustering diverged: %d/%d vs %d/%d",
				step, is.Clusters, is.Largest, ip.Clusters, ip.Largest)
		}
		if is.MeanSpeed != ip.MeanSpeed || is.Order != ip.Order || is.Centroid != ip.Centroid {
			t.Fatalf("step %d: aggregates diverged: %+v vs %+v", step, is, ip)
		}

		ss, ps := collect(seq), collect(par)
		if len(ss) != len(ps) {
			t.Fatalf("step %d: bird counts differ: %d vs %d", step, len(ss), len(ps))
		}
		for id, a := range ss {
			b, ok := ps[id]
			if !ok {
				t.Fatalf("step %d: bird %d missing from parallel run", step, id)
			}
			if a.pos != b.pos || a.vel != b.vel {
				t.Errorf("step %d bird %d: state diverged: pos %v vs %v, vel %v vs %v",
					step, id, a.pos, b.pos, a.vel, b.vel)
			}
			if a.near != b.near || a.cone != b.cone || a.topo != b.topo {
				t.Errorf("step %d bird %d: neighbors diverged: near %d/%d cone %d/%d topo %d/%d",
					step, id, a.near, b.near, a.cone, b.cone, a.topo, b.topo)
			}
		}

		sg, pg := groupKeys(ss), groupKeys(ps)
		if len(sg) != len(pg) {
			t.Fatalf("step %d: cluster counts differ: %d vs %d", step, len(sg), len(pg))
		}
		for key := range sg {
			if !pg[key] {
				t.Errorf("step %d: cluster %s only in sequential run", step, key)
			}
		}

		// Tied cluster sizes may swap ranks between backends, but each
		// rank must carry the same number of birds.
		sl, pl := rankLoads(ss), rankLoads(ps)
		if len(sl) != len(pl) {
			t.Fatalf("step %d: rank counts differ: %v vs %v", step, sl, pl)
		}
		for rank, cnt := range sl {
			if pl[rank] != cnt {
				t.Errorf("step %d: rank %d holds %d vs %d birds", step, rank, cnt, pl[rank])
			}
		}
	}
}

func TestStepKeepsBirdsInEnvelope(t *testing.T) {
	cfg := testConfig(t, 300)
	s, err := New(cfg, Sequential)
	if err != nil {
		t.Fatalf("sim: %v", err)
	}
	defer s.Close()

	var info StepInfo
	for i := 0; i < 20; i++ {
		info = s.Step()
	}
	if info.Birds != 300 {
		t.Fatalf("birds = %d, want 300", info.Birds)
	}
	if info.Dropped != 0 {
		t.Fatalf("dropped = %d, want 0", info.Dropped)
	}

	d := &cfg.Derived
	for id, st := range collect(s) {
		if st.speed < d.MinSpeed32-1e-3 || st.speed > d.MaxSpeed32+1e-3 {
			t.Errorf("bird %d: speed %g outside [%g, %g]", id, st.speed, d.MinSpeed32, d.MaxSpeed32)
		}
		p := st.pos
		if p.X < d.BoundMin.X || p.X > d.BoundMax.X ||
			p.Y < d.BoundMin.Y || p.Y > d.BoundMax.Y ||
			p.Z < d.BoundMin.Z || p.Z > d.BoundMax.Z {
			t.Errorf("bird %d: position %v outside domain", id, p)
		}
		if st.cluster < 0 {
			t.Errorf("bird %d: no cluster assigned", id)
		}
	}

	if got := len(s.Perf().SortedNames()); got == 0 {
		t.Error("no perf phases recorded")
	}
}

func TestZeroBirds(t *testing.T) {
	s, err := New(testConfig(t, 0), Sequential)
	if err != nil {
		t.Fatalf("sim: %v", err)
	}
	defer s.Close()

	info := s.Step()
	if info.Birds != 0 || info.Dropped != 0 || info.Clusters != 0 || info.Largest != 0 {
		t.Errorf("empty flock produced non-empty info: %+v", info)
	}
	if info.Centroid != (vmath.Vec3{}) || info.Order != 0 || info.MeanSpeed != 0 {
		t.Errorf("empty flock produced non-zero aggregates: %+v", info)
	}
	if len(s.Centroids()) != 0 {
		t.Errorf("empty flock has %d cluster centroids", len(s.Centroids()))
	}
}

func TestDeterministicAcrossRuns(t *testing.T) {
	run := func() map[int32]birdState {
		s, err := New(testConfig(t, 200), Sequential)
		if err != nil {
			t.Fatalf("sim: %v", err)
		}
		defer s.Close()
		for i := 0; i < 10; i++ {
			s.Step()
		}
		return collect(s)
	}

	a, b := run(), run()
	for id, sa := range a {
		sb := b[id]
		if sa.pos != sb.pos || sa.vel != sb.vel {
			t.Fatalf("bird %d: runs diverged: %v vs %v", id, sa.pos, sb.pos)
		}
	}
}

func TestResetReseedsFlock(t *testing.T) {
	s, err := New(testConfig(t, 200), Sequential)
	if err != nil {
		t.Fatalf("sim: %v", err)
	}
	defer s.Close()
	s.Step()

	if err := s.Reset(150, 99); err != nil {
		t.Fatalf("reset: %v", err)
	}
	info := s.Step()
	if info.Birds != 150 {
		t.Fatalf("birds after reset = %d, want 150", info.Birds)
	}
	if info.Step != 0 {
		t.Fatalf("step counter after reset = %d, want 0", info.Step)
	}
}

func TestRejectsOversizedNeighborCount(t *testing.T) {
	cfg := testConfig(t, 10)
	cfg.Neighbors.Count = 16
	if _, err := New(cfg, Sequential); err == nil {
		t.Fatal("expected error for neighbor count 16")
	}
}

func TestRejectsOversizedWindow(t *testing.T) {
	cfg := testConfig(t, 10)
	cfg.Grid.Density = 3 // window would span 7 cells
	if _, err := New(cfg, Sequential); err == nil {
		t.Fatal("expected error for oversized search window")
	}
}

func TestRejectsOverCapacityGrid(t *testing.T) {
	cfg := testConfig(t, 10)
	cfg.Grid.SearchRadius = 0.5 // several hundred cells per axis
	if _, err := New(cfg, Sequential); err == nil {
		t.Fatal("expected error for grid beyond scan capacity")
	}
}

func TestRunWritesOutputFiles(t *testing.T) {
	cfg := testConfig(t, 80)
	dir := t.TempDir()

	s, err := NewWithOptions(cfg, Options{
		Backend:        Sequential,
		StatsWindowSec: 0.01, // two steps per window at dt 0.005
		OutputDir:      dir,
	})
	if err != nil {
		t.Fatalf("sim: %v", err)
	}
	for i := 0; i < 10; i++ {
		s.Step()
	}
	s.Close()

	for _, name := range []string{"config.yaml", "stats.csv", "perf.csv", "bookmarks.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "stats.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 6 {
		t.Errorf("stats.csv has %d lines, want header plus 5 windows", len(lines))
	}
	if !strings.Contains(lines[0], "order_mean") {
		t.Errorf("stats.csv header missing order_mean: %q", lines[0])
	}
}

func TestNaNBirdIsCarriedNotFatal(t *testing.T) {
	s, err := New(testConfig(t, 100), Sequential)
	if err != nil {
		t.Fatalf("sim: %v", err)
	}
	defer s.Close()

	var poisoned int32 = -1
	query := s.filter.Query()
	for query.Next() {
		pos, _, _, bird := query.Get()
		if bird.ID == 42 {
			pos.Vec3.X = float32(math.NaN())
			poisoned = bird.ID
		}
	}
	if poisoned < 0 {
		t.Fatal("bird 42 not found")
	}

	info := s.Step()
	if info.Dropped != 1 {
		t.Fatalf("dropped = %d, want 1", info.Dropped)
	}
	if info.Birds != 100 {
		t.Fatalf("birds = %d, want 100", info.Birds)
	}

	st := collect(s)[poisoned]
	if st.near != -1 || st.cone != 0 || st.topo != 0 {
		t.Errorf("undefined bird kept neighbors: near %d cone %d topo %d", st.near, st.cone, st.topo)
	}
	if st.cluster < 0 {
		t.Errorf("undefined bird has no cluster, want singleton")
	}
	if !info.Centroid.IsFinite() {
		t.Errorf("flock centroid contaminated: %v", info.Centroid)
	}
}

func BenchmarkStepSequential(b *testing.B) {
	cfg, err := config.Load("")
	if err != nil {
		b.Fatalf("loading defaults: %v", err)
	}
	cfg.Sim.Birds = 2000
	s, err := New(cfg, Sequential)
	if err != nil {
		b.Fatalf("sim: %v", err)
	}
	defer s.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Step()
	}
}

func BenchmarkStepParallel(b *testing.B) {
	cfg, err := config.Load("")
	if err != nil {
		b.Fatalf("loading defaults: %v", err)
	}
	cfg.Sim.Birds = 2000
	s, err := New(cfg, Parallel)
	if err != nil {
		b.Fatalf("sim: %v", err)
	}
	defer s.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Step()
	}
}
