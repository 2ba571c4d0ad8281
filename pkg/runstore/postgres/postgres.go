// Package postgres stores run records in a PostgreSQL table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Ingenimax/agent-graph-go/pkg/config"
	"github.com/Ingenimax/agent-graph-go/pkg/logging"
	"github.com/Ingenimax/agent-graph-go/pkg/runstore"
)

// DefaultTable is the table used when none is configured
const DefaultTable = "workflow_runs"

func init() {
	runstore.NewPostgresStore = func(ctx context.Context, cfg config.PostgresConfig) (runstore.Store, error) {
		return New(ctx, cfg)
	}
}

// Store implements runstore.Store on a *sql.DB
type Store struct {
	db     *sql.DB
	table  string
	logger logging.Logger
}

// Option configures a Store
type Option func(*Store)

// WithTable sets the table name
func WithTable(table string) Option {
	return func(s *Store) {
		if table != "" {
			s.table = table
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New opens a connection pool for cfg.DSN and creates the runs table
func New(ctx context.Context, cfg config.PostgresConfig, options ...Option) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres DSN is required")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store, err := NewFromDB(ctx, db, append([]Option{WithTable(cfg.Table)}, options...)...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewFromDB wraps an open database and creates the runs table if needed
func NewFromDB(ctx context.Context, db *sql.DB, options ...Option) (*Store, error) {
	s := &Store{
		db:     db,
		table:  DefaultTable,
		logger: logging.New(logging.WithComponent("runstore_postgres")),
	}
	for _, option := range options {
		option(s)
	}

	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to create table %s: %w", s.table, err)
	}
	return s, nil
}

func (s *Store) quotedTable() string {
	return pq.QuoteIdentifier(s.table)
}

func (s *Store) migrate(ctx context.Context) error {
	table := s.quotedTable()
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			workflow TEXT NOT NULL,
			input TEXT NOT NULL,
			steps JSONB NOT NULL DEFAULT '[]',
			final_output TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ
		)`, table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return err
	}

	index := pq.QuoteIdentifier(s.table + "_workflow_started_idx")
	query = fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (workflow, started_at DESC)`, index, table)
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// Save implements runstore.Store
func (s *Store) Save(ctx context.Context, run *runstore.Run) error {
	steps, err := json.Marshal(run.Steps)
	if err != nil {
		return fmt.Errorf("failed to serialize steps: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (
			id, workflow, input, steps, final_output, error, status, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id)
		DO UPDATE SET
			steps = EXCLUDED.steps,
			final_output = EXCLUDED.final_output,
			error = EXCLUDED.error,
			status = EXCLUDED.status,
			finished_at = EXCLUDED.finished_at`, s.quotedTable())

	var finishedAt sql.NullTime
	if run.FinishedAt != nil {
		finishedAt = sql.NullTime{Time: *run.FinishedAt, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, query,
		run.ID,
		run.Workflow,
		run.Input,
		string(steps),
		run.FinalOutput,
		run.Error,
		string(run.Status),
		run.StartedAt,
		finishedAt,
	)
	if err != nil {
		s.logger.Error(ctx, "Failed to save run", map[string]interface{}{
			"run_id": run.ID,
			"error":  err.Error(),
		})
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

const selectColumns = `id, workflow, input, steps, final_output, error, status, started_at, finished_at`

// Get implements runstore.Store
func (s *Store) Get(ctx context.Context, id string) (*runstore.Run, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, selectColumns, s.quotedTable())

	run, err := scanRun(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, runstore.ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return run, nil
}

// List implements runstore.Store
func (s *Store) List(ctx context.Context, workflowName string, limit int) ([]*runstore.Run, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE ($1 = '' OR workflow = $1) ORDER BY started_at DESC, id ASC`,
		selectColumns, s.quotedTable())
	args := []interface{}{workflowName}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []*runstore.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Close implements runstore.Store
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*runstore.Run, error) {
	var (
		run        runstore.Run
		steps      []byte
		status     string
		finishedAt sql.NullTime
	)
	err := row.Scan(
		&run.ID,
		&run.Workflow,
		&run.Input,
		&steps,
		&run.FinalOutput,
		&run.Error,
		&status,
		&run.StartedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(steps) > 0 {
		if err := json.Unmarshal(steps, &run.Steps); err != nil {
			return nil, fmt.Errorf("failed to deserialize steps: %w", err)
		}
	}
	run.Status = runstore.Status(status)
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	return &run, nil
}

var _ runstore.Store = (*Store)(nil)
