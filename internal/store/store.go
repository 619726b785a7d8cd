// Package store persists runs and their per-episode records in SQLite so
// past training runs stay queryable after the process exits.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	task        TEXT NOT NULL,
	policy      TEXT NOT NULL,
	seed        INTEGER NOT NULL,
	config_yaml TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	ended_at    TEXT
);

CREATE TABLE IF NOT EXISTS episodes (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id   TEXT NOT NULL,
	episode  INTEGER NOT NULL,
	reward   REAL NOT NULL,
	steps    INTEGER NOT NULL,
	reason   TEXT,
	ended_at TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE INDEX IF NOT EXISTS episodes_by_run ON episodes(run_id, episode);
`

// Run is one invocation of the experiment runner.
type Run struct {
	ID        string    `json:"id"`
	Task      string    `json:"task"`
	Policy    string    `json:"policy"`
	Seed      int64     `json:"seed"`
	Config    string    `json:"config_yaml"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
}

// Episode is one finished episode within a run.
type Episode struct {
	RunID   string    `json:"run_id"`
	Episode int       `json:"episode"`
	Reward  float64   `json:"reward"`
	Steps   int       `json:"steps"`
	Reason  string    `json:"reason,omitempty"`
	EndedAt time.Time `json:"ended_at"`
}

// Store manages run history in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs migrations. Use
// ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection keeps :memory: databases coherent and sidesteps
	// sqlite write locking under the connection pool.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun inserts a new run and returns it with a fresh ID.
func (s *Store) CreateRun(task, policy string, seed int64, configYAML string) (Run, error) {
	run := Run{
		ID:        uuid.New().String(),
		Task:      task,
		Policy:    policy,
		Seed:      seed,
		Config:    configYAML,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, task, policy, seed, config_yaml, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Task, run.Policy, run.Seed, run.Config,
		run.StartedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun stamps the run's end time.
func (s *Store) FinishRun(runID string) error {
	res, err := s.db.Exec(
		`UPDATE runs SET ended_at = ? WHERE run_id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// RecordEpisode appends one episode record to its run.
func (s *Store) RecordEpisode(ep Episode) error {
	_, err := s.db.Exec(
		`INSERT INTO episodes (run_id, episode, reward, steps, reason, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ep.RunID, ep.Episode, ep.Reward, ep.Steps, nullable(ep.Reason),
		ep.EndedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert episode: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(id string) (Run, error) {
	var run Run
	var started string
	var ended sql.NullString
	err := s.db.QueryRow(
		`SELECT run_id, task, policy, seed, config_yaml, started_at, ended_at
		 FROM runs WHERE run_id = ?`, id,
	).Scan(&run.ID, &run.Task, &run.Policy, &run.Seed, &run.Config, &started, &ended)
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	if ended.Valid {
		run.EndedAt, _ = time.Parse(time.RFC3339Nano, ended.String)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT run_id, task, policy, seed, config_yaml, started_at, ended_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started string
		var ended sql.NullString
		if err := rows.Scan(&run.ID, &run.Task, &run.Policy, &run.Seed,
			&run.Config, &started, &ended); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		if ended.Valid {
			run.EndedAt, _ = time.Parse(time.RFC3339Nano, ended.String)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Episodes returns every episode of a run in episode order.
func (s *Store) Episodes(runID string) ([]Episode, error) {
	rows, err := s.db.Query(
		`SELECT run_id, episode, reward, steps, reason, ended_at
		 FROM episodes WHERE run_id = ? ORDER BY episode`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	var eps []Episode
	for rows.Next() {
		var ep Episode
		var reason sql.NullString
		var ended string
		if err := rows.Scan(&ep.RunID, &ep.Episode, &ep.Reward, &ep.Steps,
			&reason, &ended); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		if reason.Valid {
			ep.Reason = reason.String
		}
		ep.EndedAt, _ = time.Parse(time.RFC3339Nano, ended)
		eps = append(eps, ep)
	}
	return eps, rows.Err()
}

// EpisodeRewards returns just the reward sequence of a run, in episode
// order, for plotting and trend analysis.
func (s *Store) EpisodeRewards(runID string) ([]float64, error) {
	rows, err := s.db.Query(
		`SELECT reward FROM episodes WHERE run_id = ? ORDER BY episode`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []float64
	for rows.Next() {
		var r float64
		if err := rows.Scan(&r); err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, r)
	}
	return rewards, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
