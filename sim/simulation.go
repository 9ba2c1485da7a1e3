// Package sim steps a flock through the spatial pipeline: bucketize
// positions into the uniform grid, discover bounded neighborhoods,
// merge proximity clusters and rank them, then steer and integrate
// every bird. The whole pass runs either sequentially or across a
// persistent worker pool; both backends produce equivalent results.
package sim

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/mlange-42/ark/ecs"

	"github.com/flock2go/starling/components"
	"github.com/flock2go/starling/config"
	"github.com/flock2go/starling/flock"
	"github.com/flock2go/starling/grid"
	"github.com/flock2go/starling/telemetry"
	"github.com/flock2go/starling/vmath"
)

// Backend selects how pipeline phases execute.
type Backend int

const (
	// Sequential runs every phase inline on the calling goroutine,
	// with cluster merges folded into the neighbor scan.
	Sequential Backend = iota
	// Parallel spreads phases across the worker pool. The neighbor
	// scan captures cluster candidates, and the merge is replayed
	// serially afterwards.
	Parallel
)

func (b Backend) String() string {
	switch b {
	case Sequential:
		return "seq"
	case Parallel:
		return "par"
	}
	return fmt.Sprintf("Backend(%d)", int(b))
}

// ParseBackend maps a command line name onto a Backend.
func ParseBackend(s string) (Backend, error) {
	switch s {
	case "seq", "sequential":
		return Sequential, nil
	case "par", "parallel":
		return Parallel, nil
	}
	return Sequential, fmt.Errorf("unknown backend %q (want seq or par)", s)
}

// StepInfo summarizes one pipeline pass for logging and telemetry.
type StepInfo struct {
	Step      int64
	Birds     int
	Dropped   int   // positions the grid rejected this step
	Clusters  int   // non-empty proximity clusters
	Largest   int32 // member count of the biggest cluster
	MeanSpeed float32
	Order     float32    // polarization: length of the mean unit velocity, 0..1
	Centroid  vmath.Vec3 // flock center of mass
}

// Options configure a simulation run beyond the core pipeline.
type Options struct {
	Backend        Backend
	Seed           int64   // 0 = use the configured seed
	LogStats       bool    // log window stats via slog
	StatsWindowSec float64 // 0 = use the configured window
	SnapshotDir    string  // save snapshots on bookmarks when set
	OutputDir      string  // write CSV logs and a config copy when set

	// StatsCallback receives every flushed window. Used by the
	// parameter optimizer to score headless runs.
	StatsCallback func(telemetry.WindowStats)
}

// Simulation owns the ECS world, the spatial pipeline state and the
// per-step scratch arrays.
type Simulation struct {
	cfg     *config.Config
	backend Backend

	world  *ecs.World
	mapper *ecs.Map4[components.Position, components.Velocity, components.Orientation, components.Bird]
	filter *ecs.Filter4[components.Position, components.Velocity, components.Orientation, components.Bird]

	rng     *rand.Rand
	rngSeed int64

	geo  *grid.Geometry
	grid *grid.Grid
	par  flock.Params
	res  *flock.Result
	part *flock.Partition

	pool *pool
	perf *PerfStats

	collector      *telemetry.Collector
	bookmarks      *telemetry.BookmarkDetector
	output         *telemetry.OutputManager
	statsCallback  func(telemetry.WindowStats)
	statsWindowSec float64
	logStats       bool
	snapshotDir    string

	// Dense per-slot snapshots, rebuilt each step in query order.
	ids []int32
	pos []vmath.Vec3
	vel []vmath.Vec3
	fwd []vmath.Vec3
	ori []vmath.Quat

	// Integrator output, written back in the apply phase.
	newPos []vmath.Vec3
	newVel []vmath.Vec3
	newOri []vmath.Quat

	ranking   flock.Ranking
	centroids []vmath.Vec3
	centroid  vmath.Vec3 // center of mass from the previous step

	step int64
}

// New builds a simulation from the configuration and spawns the
// initial flock. The parallel backend starts its workers immediately;
// call Close to stop them.
func New(cfg *config.Config, backend Backend) (*Simulation, error) {
	return NewWithOptions(cfg, Options{Backend: backend})
}

// NewWithOptions builds a simulation with telemetry output wired up.
func NewWithOptions(cfg *config.Config, opts Options) (*Simulation, error) {
	world := ecs.NewWorld()
	s := &Simulation{
		cfg:     cfg,
		backend: opts.Backend,
		world:   world,
		mapper: ecs.NewMap4[
			components.Position,
			components.Velocity,
			components.Orientation,
			components.Bird,
		](world),
		filter: ecs.NewFilter4[
			components.Position,
			components.Velocity,
			components.Orientation,
			components.Bird,
		](world),
		pool:          newPool(cfg.Sim.Workers),
		perf:          NewPerfStats(cfg.Telemetry.PerfWindow),
		logStats:      opts.LogStats,
		snapshotDir:   opts.SnapshotDir,
		statsCallback: opts.StatsCallback,
	}

	s.statsWindowSec = opts.StatsWindowSec
	if s.statsWindowSec <= 0 {
		s.statsWindowSec = cfg.Telemetry.StatsWindow
	}

	seed := opts.Seed
	if seed == 0 {
		seed = cfg.Sim.Seed
	}

	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("sim: output: %w", err)
	}
	s.output = output
	if err := s.output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	if opts.Backend == Parallel {
		s.pool.start()
	}
	if err := s.Reset(cfg.Sim.Birds, seed); err != nil {
		s.pool.stop()
		s.output.Close()
		return nil, err
	}
	return s, nil
}

// Close stops the worker pool and finalizes run output: the retained
// polarization history becomes a power spectrum, then the CSV files
// are closed. The simulation must not be stepped afterwards.
func (s *Simulation) Close() {
	s.pool.stop()
	if s.output == nil {
		return
	}
	spectrum := telemetry.PowerSpectrum(
		s.collector.OrderHistory(), s.cfg.Sim.DT, s.cfg.Telemetry.SpectrumWindow)
	if err := s.output.WriteSpectrum(spectrum); err != nil {
		slog.Error("failed to write spectrum", "error", err)
	}
	if err := s.output.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
}

// Reset rebuilds the spatial pipeline from the current configuration
// and replaces the flock with n freshly spawned birds. Configuration
// that cannot produce a valid grid or parameter set is rejected here,
// before any step runs.
func (s *Simulation) Reset(n int, seed int64) error {
	d := &s.cfg.Derived

	geo, err := grid.NewGeometry(
		d.BoundMin, d.BoundMax,
		float32(s.cfg.Grid.SearchRadius),
		float32(s.cfg.Grid.Density),
		float32(s.cfg.Grid.SimScale),
	)
	if err != nil {
		return fmt.Errorf("sim: grid geometry: %w", err)
	}
	g, err := grid.NewGrid(geo, n)
	if err != nil {
		return fmt.Errorf("sim: grid: %w", err)
	}
	par, err := flock.MakeParams(
		d.RadiusWorld,
		float32(s.cfg.Neighbors.ClusterDist),
		float32(s.cfg.Neighbors.Fov),
		s.cfg.Neighbors.Count,
	)
	if err != nil {
		return fmt.Errorf("sim: neighbor params: %w", err)
	}

	s.geo = geo
	s.grid = g
	s.par = par
	s.res = flock.NewResult(n)
	s.part = flock.NewPartition(n)
	s.rng = rand.New(rand.NewSource(seed))
	s.rngSeed = seed
	s.centroid = vmath.Vec3{}
	s.ranking = flock.Ranking{}
	s.centroids = s.centroids[:0]
	s.step = 0

	// A reseeded flock is a fresh experiment: restart the stats window
	// and the regime detector with it.
	s.collector = telemetry.NewCollector(
		s.statsWindowSec, s.cfg.Sim.DT, 8*s.cfg.Telemetry.SpectrumWindow)
	s.bookmarks = telemetry.NewBookmarkDetector(10)

	s.despawn()
	s.spawn(n)
	return nil
}

// despawn removes every bird from the world.
func (s *Simulation) despawn() {
	var ents []ecs.Entity
	query := s.filter.Query()
	for query.Next() {
		ents = append(ents, query.Entity())
	}
	for _, e := range ents {
		s.mapper.Remove(e)
	}
}

// randV3 returns a vector with each component uniform in [lo, hi).
func (s *Simulation) randV3(lo, hi float32) vmath.Vec3 {
	return vmath.Vec3{
		X: lo + s.rng.Float32()*(hi-lo),
		Y: lo + s.rng.Float32()*(hi-lo),
		Z: lo + s.rng.Float32()*(hi-lo),
	}
}

// spawn creates n birds in a box around the domain center, launched in
// random directions at a common speed.
func (s *Simulation) spawn(n int) {
	const launchSpeed = 7.5
	for i := 0; i < n; i++ {
		p := s.randV3(-50, 50)
		p.Y = p.Y*0.5 + 50

		dir := s.randV3(-20, 20).Normalized()
		v := dir.Scale(launchSpeed)

		pos := components.Position{Vec3: p}
		vel := components.Velocity{Vec3: v}
		ori := components.Orientation{Quat: vmath.FromTo(vmath.Vec3{Z: 1}, dir)}
		bird := components.Bird{
			ID:      int32(i),
			Speed:   launchSpeed,
			Near:    -1,
			Cluster: -1,
			Rank:    -1,
		}
		s.mapper.NewEntity(&pos, &vel, &ori, &bird)
	}
}

// grow reslices the per-slot scratch arrays to n.
func (s *Simulation) grow(n int) {
	if cap(s.pos) < n {
		s.ids = make([]int32, n)
		s.pos = make([]vmath.Vec3, n)
		s.vel = make([]vmath.Vec3, n)
		s.fwd = make([]vmath.Vec3, n)
		s.ori = make([]vmath.Quat, n)
		s.newPos = make([]vmath.Vec3, n)
		s.newVel = make([]vmath.Vec3, n)
		s.newOri = make([]vmath.Quat, n)
	}
	s.ids = s.ids[:n]
	s.pos = s.pos[:n]
	s.vel = s.vel[:n]
	s.fwd = s.fwd[:n]
	s.ori = s.ori[:n]
	s.newPos = s.newPos[:n]
	s.newVel = s.newVel[:n]
	s.newOri = s.newOri[:n]
}

// snapshot copies component state into the dense slot arrays. Slot
// order is the query order, which is stable while no entities are
// created or removed.
func (s *Simulation) snapshot() int {
	t := time.Now()
	n := 0
	query := s.filter.Query()
	for query.Next() {
		n++
	}
	s.grow(n)

	i := 0
	query = s.filter.Query()
	for query.Next() {
		pos, vel, ori, bird := query.Get()
		s.ids[i] = bird.ID
		s.pos[i] = pos.Vec3
		s.vel[i] = vel.Vec3
		s.ori[i] = ori.Quat
		s.fwd[i] = ori.Quat.Forward()
		i++
	}
	s.perf.Record(telemetry.PhaseSnapshot, time.Since(t))
	return n
}

// bucketize runs the counting sort: insert positions, prefix-sum the
// cell counts, scatter slots into cell buckets.
func (s *Simulation) bucketize(n int) {
	t := time.Now()
	s.grid.Reset(n)
	if s.backend == Parallel {
		s.pool.run(n, func(lo, hi int) { s.grid.InsertRange(s.pos, lo, hi) })
	} else {
		s.grid.InsertSeq(s.pos)
	}
	s.perf.Record(telemetry.PhaseInsert, time.Since(t))

	t = time.Now()
	if s.backend == Parallel {
		s.grid.ScanBlocked(s.pool.runner())
	} else {
		s.grid.ScanSerial()
	}
	s.perf.Record(telemetry.PhaseScan, time.Since(t))

	t = time.Now()
	if s.backend == Parallel {
		s.grid.PrepareScatter()
		s.pool.run(n, s.grid.ScatterRange)
	} else {
		s.grid.ScatterSeq()
	}
	s.perf.Record(telemetry.PhaseScatter, time.Since(t))
}

// neighbors scans the grid window for every bird and forms the
// proximity partition. The sequential path merges pairs inline; the
// parallel path captures candidates and replays them in slot order so
// both backends arrive at the same grouping.
func (s *Simulation) neighbors(n int) {
	s.res.Reset(n)
	s.part.Reset(n)

	t := time.Now()
	if s.backend == Parallel {
		s.pool.run(n, func(lo, hi int) {
			flock.ScanRange(s.grid, s.pos, s.vel, s.fwd, s.par, s.res, lo, hi)
		})
		s.perf.Record(telemetry.PhaseNeighbors, time.Since(t))

		t = time.Now()
		s.part.ClusterFromCandidates(s.res)
		s.perf.Record(telemetry.PhaseCluster, time.Since(t))
		return
	}

	flock.ScanSeq(s.grid, s.pos, s.vel, s.fwd, s.par, s.res, s.part)
	s.perf.Record(telemetry.PhaseNeighbors, time.Since(t))
}

// apply writes the integrator output and the step's derived state back
// to the components.
func (s *Simulation) apply() {
	t := time.Now()
	i := 0
	query := s.filter.Query()
	for query.Next() {
		pos, vel, ori, bird := query.Get()
		pos.Vec3 = s.newPos[i]
		vel.Vec3 = s.newVel[i]
		ori.Quat = s.newOri[i]

		bird.Speed = s.newVel[i].Len()
		if j := s.res.Near[i]; j >= 0 {
			bird.Near = s.ids[j]
		} else {
			bird.Near = -1
		}
		bird.Cone = s.res.Cone[i]
		bird.Topo = s.res.Topo[i]
		cid := s.part.ID[i]
		bird.Cluster = cid
		if cid >= 0 {
			bird.Rank = s.ranking.RankOf(cid)
		} else {
			bird.Rank = -1
		}
		i++
	}
	s.perf.Record(telemetry.PhaseApply, time.Since(t))
}

// flockData aggregates whole-flock measures from the advanced state
// and retains the center of mass for the next step's steering.
func (s *Simulation) flockData(n int) StepInfo {
	t := time.Now()
	var sumPos, sumDir vmath.Vec3
	var sumSpeed float32
	counted := 0
	for i := 0; i < n; i++ {
		p := s.newPos[i]
		if !p.IsFinite() {
			continue
		}
		sumPos = sumPos.Add(p)
		v := s.newVel[i]
		sumSpeed += v.Len()
		sumDir = sumDir.Add(v.Normalized())
		counted++
	}

	info := StepInfo{
		Step:     s.step,
		Birds:    n,
		Dropped:  s.grid.Dropped(),
		Clusters: len(s.ranking.Sizes),
	}
	if len(s.ranking.Sizes) > 0 {
		info.Largest = s.ranking.Sizes[0].Count
	}
	if counted > 0 {
		inv := 1 / float32(counted)
		info.Centroid = sumPos.Scale(inv)
		info.MeanSpeed = sumSpeed * inv
		info.Order = sumDir.Len() * inv
	}
	s.centroid = info.Centroid
	s.perf.Record(telemetry.PhaseFlockData, time.Since(t))
	return info
}

// Step advances the flock by one timestep and reports the pass.
func (s *Simulation) Step() StepInfo {
	n := s.snapshot()
	s.bucketize(n)
	s.neighbors(n)

	t := time.Now()
	s.ranking = s.part.Rank()
	s.centroids = s.part.Centroids(s.ranking, s.pos, flock.NumFlocks)
	s.perf.Record(telemetry.PhaseRank, time.Since(t))

	t = time.Now()
	if s.backend == Parallel {
		s.pool.run(n, s.integrateRange)
	} else {
		s.integrateRange(0, n)
	}
	s.perf.Record(telemetry.PhaseIntegrate, time.Since(t))

	s.apply()
	info := s.flockData(n)
	s.step++

	s.collector.RecordStep(float64(info.Order), float64(info.MeanSpeed), info.Clusters, info.Centroid)
	s.flushTelemetry(info)
	return info
}

// World exposes the ECS world, for viewers that read components
// between steps.
func (s *Simulation) World() *ecs.World {
	return s.world
}

// Perf returns the rolling per-phase timings.
func (s *Simulation) Perf() *PerfStats {
	return s.perf
}

// Backend reports which execution backend the simulation uses.
func (s *Simulation) Backend() Backend {
	return s.backend
}

// Ranking returns the latest cluster ranking. Valid until the next
// Step or Reset.
func (s *Simulation) Ranking() flock.Ranking {
	return s.ranking
}

// Centroids returns the centers of the largest clusters, best first.
// Valid until the next Step or Reset.
func (s *Simulation) Centroids() []vmath.Vec3 {
	return s.centroids
}
