package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/flock2go/starling/config"
	"github.com/flock2go/starling/sim"
	"github.com/flock2go/starling/viewer"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	backendName := flag.String("backend", "par", "Execution backend: seq or par")
	logStats := flag.Bool("log-stats", false, "Output window stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for bookmark snapshot files")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxSteps := flag.Int64("max-steps", 0, "Stop after N steps (0 = unlimited)")
	stepsPerFrame := flag.Int("steps-per-frame", 0, "Simulation steps per rendered frame (0 = use config)")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	backend, err := sim.ParseBackend(*backendName)
	if err != nil {
		slog.Error("invalid backend", "error", err)
		os.Exit(1)
	}

	// Set up seed
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if *stepsPerFrame > 0 {
		cfg.Sim.StepsPerFrame = *stepsPerFrame
	}

	opts := sim.Options{
		Backend:        backend,
		Seed:           rngSeed,
		LogStats:       *logStats,
		StatsWindowSec: *statsWindow,
		SnapshotDir:    *snapshotDir,
		OutputDir:      *outputDir,
	}

	if *headless {
		runHeadless(cfg, opts, *maxSteps)
		return
	}
	runViewer(cfg, opts, *maxSteps)
}

// runHeadless steps the simulation flat out, no raylib needed.
func runHeadless(cfg *config.Config, opts sim.Options, maxSteps int64) {
	s, err := sim.NewWithOptions(cfg, opts)
	if err != nil {
		slog.Error("failed to start simulation", "error", err)
		os.Exit(1)
	}
	defer s.Close()

	slog.Info("starting headless simulation",
		"seed", opts.Seed,
		"backend", s.Backend().String(),
		"birds", cfg.Sim.Birds,
		"max_steps", maxSteps,
	)

	for {
		info := s.Step()

		if maxSteps > 0 && info.Step+1 >= maxSteps {
			slog.Info("max steps reached", "steps", info.Step+1)
			return
		}
	}
}

func runViewer(cfg *config.Config, opts sim.Options, maxSteps int64) {
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Starling Murmuration")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	s, err := sim.NewWithOptions(cfg, opts)
	if err != nil {
		slog.Error("failed to start simulation", "error", err)
		os.Exit(1)
	}
	defer s.Close()

	v := viewer.New(cfg, s)

	for !rl.WindowShouldClose() {
		v.Update()
		v.Draw()

		if maxSteps > 0 && v.Step()+1 >= maxSteps {
			break
		}
	}
}
