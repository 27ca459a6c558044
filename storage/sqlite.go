// Package storage archives simulation runs and their telemetry windows in
// SQLite. Uses the pure-Go modernc.org/sqlite driver to avoid CGO.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/pthm-cable/desert/telemetry"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is returned when a run id is not in the archive.
var ErrNotFound = errors.New("storage: not found")

// Store manages the SQLite database connection for the run archive.
type Store struct {
	db *sql.DB
}

// Run is one archived simulation run.
type Run struct {
	ID         string
	Seed       uint64
	Config     string // effective configuration as YAML
	CreatedAt  time.Time
	FinishedAt time.Time // zero while the run is open
	FinalTick  int
	Windows    int
}

// WindowRecord is the archived subset of a telemetry window.
type WindowRecord struct {
	RunID          string
	WindowEnd      int
	Plants         int
	Herbivores     int
	Predators      int
	Births         int
	Deaths         int
	Kills          int
	Matings        int
	HerbEnergyMean float64
	PredEnergyMean float64
	AggressionMean float64
	MaxGeneration  int
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			config TEXT NOT NULL,
			created_at TEXT NOT NULL,
			finished_at TEXT,
			final_tick INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS windows (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			window_end INTEGER NOT NULL,
			plants INTEGER NOT NULL,
			herbivores INTEGER NOT NULL,
			predators INTEGER NOT NULL,
			births INTEGER NOT NULL,
			deaths INTEGER NOT NULL,
			kills INTEGER NOT NULL,
			matings INTEGER NOT NULL,
			herb_energy_mean REAL NOT NULL,
			pred_energy_mean REAL NOT NULL,
			aggression_mean REAL NOT NULL,
			max_generation INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_windows_run ON windows(run_id, window_end);

		CREATE TABLE IF NOT EXISTS bookmarks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			tick INTEGER NOT NULL,
			type TEXT NOT NULL,
			description TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_bookmarks_run ON bookmarks(run_id, tick);

		CREATE TABLE IF NOT EXISTS perf (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			window_end INTEGER NOT NULL,
			avg_tick_us INTEGER NOT NULL,
			ticks_per_sec REAL NOT NULL
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CreateRun registers a new run and returns a sink that archives its telemetry.
func (s *Store) CreateRun(seed uint64, configYAML string) (*RunSink, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		"INSERT INTO runs (id, seed, config, created_at) VALUES (?, ?, ?, ?)",
		id, int64(seed), configYAML, time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot create run: %w", err)
	}
	return &RunSink{store: s, runID: id}, nil
}

// FinishRun stamps a run as finished at the given tick.
func (s *Store) FinishRun(runID string, finalTick int) error {
	res, err := s.db.Exec(
		"UPDATE runs SET finished_at = ?, final_tick = ? WHERE id = ?",
		time.Now().UTC().Format(timeLayout), finalTick, runID,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return nil
}

const runColumns = `r.id, r.seed, r.config, r.created_at, r.finished_at, r.final_tick,
	(SELECT COUNT(*) FROM windows w WHERE w.run_id = r.id)`

func scanRun(row interface{ Scan(...any) error }) (Run, error) {
	var (
		r        Run
		seed     int64
		created  string
		finished sql.NullString
	)
	if err := row.Scan(&r.ID, &seed, &r.Config, &created, &finished, &r.FinalTick, &r.Windows); err != nil {
		return Run{}, err
	}
	r.Seed = uint64(seed)
	r.CreatedAt, _ = time.Parse(timeLayout, created)
	if finished.Valid {
		r.FinishedAt, _ = time.Parse(timeLayout, finished.String)
	}
	return r, nil
}

// GetRun returns one run by id.
func (s *Store) GetRun(runID string) (Run, error) {
	row := s.db.QueryRow("SELECT "+runColumns+" FROM runs r WHERE r.id = ?", runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("storage: cannot query run: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		"SELECT "+runColumns+" FROM runs r ORDER BY r.created_at DESC, r.id LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return runs, nil
}

// Windows returns the archived windows of a run in tick order.
func (s *Store) Windows(runID string) ([]WindowRecord, error) {
	rows, err := s.db.Query(
		`SELECT run_id, window_end, plants, herbivores, predators, births, deaths,
			kills, matings, herb_energy_mean, pred_energy_mean, aggression_mean, max_generation
		 FROM windows
		 WHERE run_id = ?
		 ORDER BY window_end`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query windows: %w", err)
	}
	defer rows.Close()

	var out []WindowRecord
	for rows.Next() {
		var w WindowRecord
		if err := rows.Scan(&w.RunID, &w.WindowEnd, &w.Plants, &w.Herbivores, &w.Predators,
			&w.Births, &w.Deaths, &w.Kills, &w.Matings,
			&w.HerbEnergyMean, &w.PredEnergyMean, &w.AggressionMean, &w.MaxGeneration); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return out, nil
}

// Bookmarks returns the bookmarks recorded for a run in tick order.
func (s *Store) Bookmarks(runID string) ([]telemetry.Bookmark, error) {
	rows, err := s.db.Query(
		"SELECT tick, type, description FROM bookmarks WHERE run_id = ? ORDER BY tick, id",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query bookmarks: %w", err)
	}
	defer rows.Close()

	var out []telemetry.Bookmark
	for rows.Next() {
		var b telemetry.Bookmark
		var typ string
		if err := rows.Scan(&b.Tick, &typ, &b.Description); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		b.Type = telemetry.BookmarkType(typ)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return out, nil
}
