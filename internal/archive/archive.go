// Package archive persists completed runs durably: one row per run and
// one row per completed task, queryable long after the registry's Redis
// entry has expired. Scoped to the append-only shape a simulation run
// actually needs: a run is written once, at the moment it finishes.
package archive

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/coredump/schedsim/internal/task"
)

// RunRecord is the durable row for one completed simulation.
type RunRecord struct {
	RunID          string
	Policy         string
	ManifestPath   string
	TraceLength    int
	MeanTurnaround float64
	MeanWaiting    float64
	Tasks          []task.CompletedRecord
}

// Archiver is what the run loop needs from a durable backend.
type Archiver interface {
	SaveRun(ctx context.Context, r RunRecord) error
	Close()
}

// Postgres is the production Archiver.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres opens a connection pool against connString and verifies
// reachability before returning.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.Wrap(err, "archive: parse connection string")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = time.Hour
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "archive: open pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "archive: ping")
	}
	return &Postgres{pool: pool}, nil
}

// Schema is the DDL an operator runs once against a fresh database. Not
// applied automatically: migrations are an operational decision, not a
// runtime side effect of starting a simulation.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id           TEXT PRIMARY KEY,
	policy           TEXT NOT NULL,
	manifest_path    TEXT NOT NULL,
	trace_length     INTEGER NOT NULL,
	mean_turnaround  DOUBLE PRECISION NOT NULL,
	mean_waiting     DOUBLE PRECISION NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS run_tasks (
	run_id          TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	task_id         TEXT NOT NULL,
	arrival         INTEGER NOT NULL,
	finish          INTEGER NOT NULL,
	turnaround      INTEGER NOT NULL,
	waiting         INTEGER NOT NULL,
	PRIMARY KEY (run_id, task_id)
);
`

// SaveRun inserts r and its per-task rows in one transaction — a run
// archives completely or not at all.
func (p *Postgres) SaveRun(ctx context.Context, r RunRecord) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "archive: begin tx")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO runs (run_id, policy, manifest_path, trace_length, mean_turnaround, mean_waiting)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id) DO UPDATE SET
			trace_length = EXCLUDED.trace_length,
			mean_turnaround = EXCLUDED.mean_turnaround,
			mean_waiting = EXCLUDED.mean_waiting
	`, r.RunID, r.Policy, r.ManifestPath, r.TraceLength, r.MeanTurnaround, r.MeanWaiting)
	if err != nil {
		return errors.Wrap(err, "archive: upsert run")
	}

	for _, rec := range r.Tasks {
		_, err = tx.Exec(ctx, `
			INSERT INTO run_tasks (run_id, task_id, arrival, finish, turnaround, waiting)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (run_id, task_id) DO UPDATE SET
				arrival = EXCLUDED.arrival, finish = EXCLUDED.finish,
				turnaround = EXCLUDED.turnaround, waiting = EXCLUDED.waiting
		`, r.RunID, rec.ID, rec.Arrival, rec.Finish, rec.Turnaround, rec.Waiting)
		if err != nil {
			return errors.Wrapf(err, "archive: upsert task %s", rec.ID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "archive: commit tx")
	}
	return nil
}

func (p *Postgres) Close() { p.pool.Close() }

var _ Archiver = (*Postgres)(nil)

// NullArchiver discards every run — the default when no archive DSN is
// configured.
type NullArchiver struct{}

func (NullArchiver) SaveRun(context.Context, RunRecord) error { return nil }
func (NullArchiver) Close()                                  {}

var _ Archiver = NullArchiver{}
