package telemetry

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSnapshotSaveLoad(t *testing.T) {
	// Create a temporary directory
	tmpDir := t.TempDir()

	// Create a test snapshot
	snapshot := &Snapshot{
		Version:  SnapshotVersion,
		RNGSeed:  42,
		BoundMin: [3]float32{-200, 0, -200},
		BoundMax: [3]float32{200, 200, 200},
		Step:     1000,
		Birds: []BirdState{
			{
				ID:      0,
				Pos:     [3]float32{10, 55, -3},
				Vel:     [3]float32{0.5, -0.3, 7.1},
				Ori:     [4]float32{0, 0, 0, 1},
				Cluster: 2,
				Rank:    0,
			},
			{
				ID:      1,
				Pos:     [3]float32{-40, 80, 120},
				Vel:     [3]float32{-6.2, 1.1, 0.4},
				Ori:     [4]float32{0.1, 0.2, 0.3, 0.93},
				Cluster: 5,
				Rank:    -1,
			},
		},
		Bookmark: &Bookmark{
			Type:        BookmarkPolarized,
			Step:        1000,
			Description: "Test bookmark",
		},
	}

	// Save the snapshot
	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	// Verify file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("Snapshot file not created at %s", path)
	}

	// Load the snapshot
	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	// Verify loaded data matches original
	if loaded.Version != snapshot.Version {
		t.Errorf("Version mismatch: got %d, want %d", loaded.Version, snapshot.Version)
	}
	if loaded.RNGSeed != snapshot.RNGSeed {
		t.Errorf("RNGSeed mismatch: got %d, want %d", loaded.RNGSeed, snapshot.RNGSeed)
	}
	if loaded.Step != snapshot.Step {
		t.Errorf("Step mismatch: got %d, want %d", loaded.Step, snapshot.Step)
	}
	if len(loaded.Birds) != len(snapshot.Birds) {
		t.Errorf("Birds count mismatch: got %d, want %d", len(loaded.Birds), len(snapshot.Birds))
	}
	if loaded.Birds[1].Pos != snapshot.Birds[1].Pos {
		t.Errorf("Bird pos mismatch: got %v, want %v", loaded.Birds[1].Pos, snapshot.Birds[1].Pos)
	}
	if loaded.Bookmark == nil {
		t.Error("Bookmark not loaded")
	} else if loaded.Bookmark.Type != snapshot.Bookmark.Type {
		t.Errorf("Bookmark type mismatch: got %s, want %s", loaded.Bookmark.Type, snapshot.Bookmark.Type)
	}
}

func TestSnapshotFilename(t *testing.T) {
	tmpDir := t.TempDir()

	// Test with bookmark
	snapshot := &Snapshot{
		Version: SnapshotVersion,
		Step:    5000,
		Bookmark: &Bookmark{
			Type: BookmarkSteadyFlock,
			Step: 5000,
		},
	}

	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	expected := filepath.Join(tmpDir, "snapshot_5000_steady_flock.json")
	if path != expected {
		t.Errorf("Path mismatch: got %s, want %s", path, expected)
	}

	// Test without bookmark
	snapshotNoBookmark := &Snapshot{
		Version: SnapshotVersion,
		Step:    3000,
	}

	path, err = SaveSnapshot(snapshotNoBookmark, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	expected = filepath.Join(tmpDir, "snapshot_3000.json")
	if path != expected {
		t.Errorf("Path mismatch: got %s, want %s", path, expected)
	}
}
