package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkHuntBreakthrough BookmarkType = "hunt_breakthrough"
	BookmarkBabyBoom         BookmarkType = "baby_boom"
	BookmarkPredatorRecovery BookmarkType = "predator_recovery"
	BookmarkPreyCrash        BookmarkType = "prey_crash"
	BookmarkStableEcosystem  BookmarkType = "stable_ecosystem"
	BookmarkExtinction       BookmarkType = "extinction"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int          `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using the given logger.
func (b Bookmark) LogBookmark(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in the simulation.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	recentPredMin      int // minimum predator count in recent history
	recentPreyPeak     int // peak herbivore count in recent history
	stableWindowsCount int // consecutive windows with stable populations
	lastHerbivores     int
	lastPredators      int
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for stable ecosystem detection
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if bd.historyFull || bd.historyIdx > 0 {
		// Hunt breakthrough: kill rate > 2x rolling average
		if b := bd.checkHuntBreakthrough(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Baby boom: births > 2x rolling average
		if b := bd.checkBabyBoom(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Predator recovery: was ≤3, now ≥3x that
		if b := bd.checkPredatorRecovery(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Prey crash: dropped >30% from recent peak
		if b := bd.checkPreyCrash(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Stable ecosystem: both populations present with low variance over 5+ windows
		if b := bd.checkStableEcosystem(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Extinction: a class that was alive last window is gone
		bookmarks = append(bookmarks, bd.checkExtinction(stats)...)
	}
	bd.lastHerbivores = stats.Herbivores
	bd.lastPredators = stats.Predators

	// Update history
	bd.addToHistory(stats)

	// Track predator minimum and prey peak
	if stats.Predators < bd.recentPredMin || bd.recentPredMin == 0 {
		bd.recentPredMin = stats.Predators
	}
	if stats.Herbivores > bd.recentPreyPeak {
		bd.recentPreyPeak = stats.Herbivores
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkHuntBreakthrough(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	// Calculate rolling average kill rate
	var totalKills, totalAttacks int
	for _, h := range history {
		totalKills += h.Kills
		totalAttacks += h.Attacks
	}

	if totalAttacks == 0 || stats.Attacks == 0 {
		return nil
	}

	avgKillRate := float64(totalKills) / float64(totalAttacks)
	if avgKillRate == 0 {
		return nil
	}

	currentKillRate := stats.KillRate
	if currentKillRate > avgKillRate*2.0 && stats.Kills >= 3 {
		return &Bookmark{
			Type:        BookmarkHuntBreakthrough,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Kill rate %.2f is %.1fx average (%.2f)", currentKillRate, currentKillRate/avgKillRate, avgKillRate),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkBabyBoom(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total int
	for _, h := range history {
		total += h.Births()
	}
	avg := float64(total) / float64(len(history))
	births := stats.Births()

	if avg > 0 && float64(births) > avg*2.0 && births >= 5 {
		return &Bookmark{
			Type:        BookmarkBabyBoom,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("%d births is %.1fx average (%.1f)", births, float64(births)/avg, avg),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkExtinction(stats WindowStats) []Bookmark {
	var out []Bookmark
	if bd.lastHerbivores > 0 && stats.Herbivores == 0 {
		out = append(out, Bookmark{
			Type:        BookmarkExtinction,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Herbivores died out (were %d)", bd.lastHerbivores),
		})
	}
	if bd.lastPredators > 0 && stats.Predators == 0 {
		out = append(out, Bookmark{
			Type:        BookmarkExtinction,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Predators died out (were %d)", bd.lastPredators),
		})
	}
	return out
}

func (bd *BookmarkDetector) checkPredatorRecovery(stats WindowStats) *Bookmark {
	if bd.recentPredMin == 0 || bd.recentPredMin > 3 {
		return nil
	}

	threshold := bd.recentPredMin * 3
	if stats.Predators >= threshold && stats.Predators >= 6 {
		// Reset the minimum after triggering
		oldMin := bd.recentPredMin
		bd.recentPredMin = stats.Predators

		return &Bookmark{
			Type:        BookmarkPredatorRecovery,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Predator population recovered from %d to %d", oldMin, stats.Predators),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkPreyCrash(stats WindowStats) *Bookmark {
	if bd.recentPreyPeak == 0 {
		return nil
	}

	dropPercent := 1.0 - float64(stats.Herbivores)/float64(bd.recentPreyPeak)
	if dropPercent > 0.30 && stats.Herbivores < bd.recentPreyPeak-10 {
		// Reset peak after crash
		oldPeak := bd.recentPreyPeak
		bd.recentPreyPeak = stats.Herbivores

		return &Bookmark{
			Type:        BookmarkPreyCrash,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Herbivores crashed %.0f%% from peak %d to %d", dropPercent*100, oldPeak, stats.Herbivores),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkStableEcosystem(stats WindowStats) *Bookmark {
	// Need both populations present
	if stats.Herbivores < 10 || stats.Predators < 3 {
		bd.stableWindowsCount = 0
		return nil
	}

	history := bd.getHistory()
	if len(history) < 4 {
		return nil
	}

	// Check variance in recent windows
	var preySum, predSum float64
	for _, h := range history[len(history)-4:] {
		preySum += float64(h.Herbivores)
		predSum += float64(h.Predators)
	}
	preyMean := preySum / 4
	predMean := predSum / 4

	var preyVar, predVar float64
	for _, h := range history[len(history)-4:] {
		preyDiff := float64(h.Herbivores) - preyMean
		predDiff := float64(h.Predators) - predMean
		preyVar += preyDiff * preyDiff
		predVar += predDiff * predDiff
	}
	preyVar /= 4
	predVar /= 4

	// Low variance: coefficient of variation < 20%
	preyCV := 0.0
	if preyMean > 0 {
		preyCV = (preyVar / (preyMean * preyMean))
	}
	predCV := 0.0
	if predMean > 0 {
		predCV = (predVar / (predMean * predMean))
	}

	if preyCV < 0.04 && predCV < 0.04 { // CV^2 < 0.04 means CV < 0.2
		bd.stableWindowsCount++
	} else {
		bd.stableWindowsCount = 0
	}

	if bd.stableWindowsCount == 5 { // trigger exactly once at 5 windows
		return &Bookmark{
			Type:        BookmarkStableEcosystem,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Stable ecosystem with %d herbivores, %d predators over 5+ windows", stats.Herbivores, stats.Predators),
		}
	}

	return nil
}
