package telemetry

import "testing"

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_HuntBreakthrough(t *testing.T) {
	bd := NewBookmarkDetector(10)

	// Add some history with low kill rate
	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{
			WindowEndTick: i * 600,
			Attacks:       10,
			Kills:         2,
			KillRate:      0.2,
		})
	}

	// Now add a window with high kill rate (>2x average)
	bookmarks := bd.Check(WindowStats{
		WindowEndTick: 3000,
		Attacks:       10,
		Kills:         8,
		KillRate:      0.8,
	})
	if !hasBookmark(bookmarks, BookmarkHuntBreakthrough) {
		t.Error("expected hunt_breakthrough bookmark")
	}
}

func TestBookmarkDetector_PreyCrash(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndTick: i * 600, Herbivores: 100, Predators: 10})
	}

	bookmarks := bd.Check(WindowStats{WindowEndTick: 3000, Herbivores: 50, Predators: 10})
	if !hasBookmark(bookmarks, BookmarkPreyCrash) {
		t.Error("expected prey_crash bookmark")
	}
}

func TestBookmarkDetector_PredatorRecovery(t *testing.T) {
	bd := NewBookmarkDetector(10)

	// Predator population drops to critical level
	for i := 0; i < 3; i++ {
		bd.Check(WindowStats{WindowEndTick: i * 600, Herbivores: 100, Predators: 2})
	}

	bookmarks := bd.Check(WindowStats{WindowEndTick: 2400, Herbivores: 100, Predators: 10})
	if !hasBookmark(bookmarks, BookmarkPredatorRecovery) {
		t.Error("expected predator_recovery bookmark")
	}
}

func TestBookmarkDetector_BabyBoom(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 4; i++ {
		bd.Check(WindowStats{WindowEndTick: i * 600, Herbivores: 40, Predators: 5, HerbivoreBirths: 2})
	}

	bookmarks := bd.Check(WindowStats{WindowEndTick: 2400, Herbivores: 40, Predators: 5, HerbivoreBirths: 8, PredatorBirths: 1})
	if !hasBookmark(bookmarks, BookmarkBabyBoom) {
		t.Error("expected baby_boom bookmark")
	}
}

func TestBookmarkDetector_Extinction(t *testing.T) {
	bd := NewBookmarkDetector(10)

	bd.Check(WindowStats{WindowEndTick: 600, Herbivores: 30, Predators: 3})
	bookmarks := bd.Check(WindowStats{WindowEndTick: 1200, Herbivores: 30, Predators: 0})

	if !hasBookmark(bookmarks, BookmarkExtinction) {
		t.Fatal("expected extinction bookmark")
	}
	if len(bookmarks) != 1 {
		t.Errorf("only predators died out, got %d bookmarks", len(bookmarks))
	}

	// No repeat once the class is already gone
	bookmarks = bd.Check(WindowStats{WindowEndTick: 1800, Herbivores: 30, Predators: 0})
	if hasBookmark(bookmarks, BookmarkExtinction) {
		t.Error("extinction should only fire on the transition")
	}
}

func TestBookmarkDetector_StableEcosystem(t *testing.T) {
	bd := NewBookmarkDetector(10)

	fired := 0
	for i := 0; i < 12; i++ {
		bookmarks := bd.Check(WindowStats{WindowEndTick: i * 600, Herbivores: 100, Predators: 20})
		if hasBookmark(bookmarks, BookmarkStableEcosystem) {
			fired++
		}
	}
	if fired != 1 {
		t.Errorf("stable_ecosystem fired %d times, want exactly 1", fired)
	}
}
