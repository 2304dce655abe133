// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/OpenSourceEconomics/ose-course-data-science/internal/model"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/sweep"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned by LoadRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

const runSchemaVersion = 1

// timeLayout has a fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runSchema = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	estimator  TEXT NOT NULL,
	spec_path  TEXT,
	units      INTEGER NOT NULL,
	seed       INTEGER NOT NULL,
	spec_yaml  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS points (
	run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	idx      INTEGER NOT NULL,
	rho      REAL NOT NULL,
	estimate REAL,
	truth    REAL NOT NULL,
	error    TEXT,
	PRIMARY KEY (run_id, idx)
);
`

// Run is one persisted sweep.
type Run struct {
	ID        string
	CreatedAt time.Time
	Estimator string
	SpecPath  string
	Units     int
	Seed      int64
	Spec      model.Spec
	Points    []RunPoint
}

// RunPoint is one grid point of a persisted sweep. Estimate is NaN when the
// estimator failed, and Error holds the failure.
type RunPoint struct {
	Index    int
	Rho      float64
	Estimate float64
	Truth    float64
	Error    string
}

// Missing reports whether the point has no estimate.
func (p RunPoint) Missing() bool { return math.IsNaN(p.Estimate) }

// RunInfo is the listing entry of a run.
type RunInfo struct {
	ID        string
	CreatedAt time.Time
	Estimator string
	Points    int
	Failed    int
}

// NewRun builds a Run from a finished sweep.
func NewRun(spec model.Spec, specPath string, units int, seed int64, res *sweep.Result) Run {
	run := Run{
		Estimator: res.Estimator.String(),
		SpecPath:  specPath,
		Units:     units,
		Seed:      seed,
		Spec:      spec.Clone(),
		Points:    make([]RunPoint, len(res.Points)),
	}
	for i, p := range res.Points {
		rp := RunPoint{Index: p.Index, Rho: p.Rho, Estimate: p.Effect.Value, Truth: p.Truth}
		if p.Missing {
			rp.Estimate = math.NaN()
			if p.Err != nil {
				rp.Error = p.Err.Error()
			}
		}
		run.Points[i] = rp
	}
	return run
}

// RunStore keeps sweep runs in SQLite.
type RunStore struct {
	db *sql.DB
}

// OpenRunStore opens or creates the database at path and creates the schema.
// ":memory:" opens a private in-memory database.
func OpenRunStore(path string) (*RunStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// an in-memory database lives on a single connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &RunStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *RunStore) migrate() error {
	if _, err := s.db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := s.db.Exec(runSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	var v int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", runSchemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case v != runSchemaVersion:
		return fmt.Errorf("unknown schema version %d", v)
	}
	return nil
}

// Close closes the database.
func (s *RunStore) Close() error {
	return s.db.Close()
}

// SaveRun stores run and its points in one transaction and returns its id.
// A new id is generated when run.ID is empty.
func (s *RunStore) SaveRun(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	var specYAML bytes.Buffer
	if err := EncodeSpec(&specYAML, run.Spec); err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin save tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, estimator, spec_path, units, seed, spec_yaml)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().Format(timeLayout), run.Estimator,
		run.SpecPath, run.Units, run.Seed, specYAML.String(),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO points (run_id, idx, rho, estimate, truth, error) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare points: %w", err)
	}
	defer stmt.Close()

	for _, p := range run.Points {
		// SQLite has no NaN, a missing estimate is NULL
		estimate := sql.NullFloat64{Float64: p.Estimate, Valid: !math.IsNaN(p.Estimate)}
		errMsg := sql.NullString{String: p.Error, Valid: p.Error != ""}
		if _, err := stmt.ExecContext(ctx, run.ID, p.Index, p.Rho, estimate, p.Truth, errMsg); err != nil {
			return "", fmt.Errorf("insert point %d: %w", p.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit save tx: %w", err)
	}
	return run.ID, nil
}

// LoadRun returns the run with the given id, or an error wrapping ErrRunNotFound.
func (s *RunStore) LoadRun(ctx context.Context, id string) (*Run, error) {
	run := &Run{}
	var created, specYAML string
	var specPath sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, estimator, spec_path, units, seed, spec_yaml FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &created, &run.Estimator, &specPath, &run.Units, &run.Seed, &specYAML)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}
	run.SpecPath = specPath.String
	if run.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("run %s: parse created_at: %w", id, err)
	}
	if run.Spec, err = DecodeSpec(strings.NewReader(specYAML)); err != nil {
		return nil, fmt.Errorf("run %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, rho, estimate, truth, error FROM points WHERE run_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, fmt.Errorf("load points: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p RunPoint
		var estimate sql.NullFloat64
		var errMsg sql.NullString
		if err := rows.Scan(&p.Index, &p.Rho, &estimate, &p.Truth, &errMsg); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		p.Estimate = math.NaN()
		if estimate.Valid {
			p.Estimate = estimate.Float64
		}
		p.Error = errMsg.String
		run.Points = append(run.Points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load points: %w", err)
	}
	return run, nil
}

// ListRuns returns every run, newest first.
func (s *RunStore) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.created_at, r.estimator,
		       COUNT(p.idx),
		       COALESCE(SUM(CASE WHEN p.estimate IS NULL THEN 1 ELSE 0 END), 0)
		FROM runs r LEFT JOIN points p ON p.run_id = r.id
		GROUP BY r.id
		ORDER BY r.created_at DESC, r.id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var info RunInfo
		var created string
		if err := rows.Scan(&info.ID, &created, &info.Estimator, &info.Points, &info.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if info.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("run %s: parse created_at: %w", info.ID, err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its points.
func (s *RunStore) DeleteRun(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM points WHERE run_id = ?`, id); err != nil {
		return fmt.Errorf("delete points: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete tx: %w", err)
	}
	return nil
}
