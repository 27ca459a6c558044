package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/desert/config"
)

func TestNewOutputManager_EmptyDirDisables(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("got %v, %v; want nil, nil", om, err)
	}
	// nil manager methods are no-ops
	if err := om.WriteTelemetry(WindowStats{}); err != nil {
		t.Error(err)
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
}

func TestOutputManager_WritesCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	var sink Sink = MultiSink{om, nil}
	for _, end := range []int{200, 400} {
		if err := sink.WriteTelemetry(WindowStats{WindowEndTick: end, Herbivores: 12}); err != nil {
			t.Fatal(err)
		}
		if err := sink.WritePerf(PerfStats{TicksPerSecond: 1000}, end); err != nil {
			t.Fatal(err)
		}
	}
	if err := sink.WriteBookmark(Bookmark{Type: BookmarkPreyCrash, Tick: 400, Description: "crash"}); err != nil {
		t.Fatal(err)
	}
	if err := om.WriteConfig(config.Default()); err != nil {
		t.Fatal(err)
	}
	if err := om.WriteHallOfFame(NewHallOfFame(1)); err != nil {
		t.Fatal(err)
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("telemetry.csv has %d lines, want header + 2", len(lines))
	}
	if !strings.HasPrefix(lines[0], "window_end,") || !strings.Contains(lines[0], "herbivores") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "400,") {
		t.Errorf("second row = %q", lines[2])
	}

	for _, name := range []string{"perf.csv", "bookmarks.csv", "config.yaml", "nests.csv", "hall_of_fame.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
	if _, err := config.Load(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("written config does not load: %v", err)
	}
	nests, err := config.LoadNestLayout(filepath.Join(dir, "nests.csv"))
	if err != nil {
		t.Fatalf("nests.csv: %v", err)
	}
	if want := len(config.Default().Nests); len(nests) != want {
		t.Errorf("nests.csv has %d nests, want %d", len(nests), want)
	}
}
