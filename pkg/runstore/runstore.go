// Package runstore persists the record of finished workflow runs.
package runstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Ingenimax/agent-graph-go/pkg/config"
	"github.com/Ingenimax/agent-graph-go/pkg/workflow"
)

// ErrRunNotFound is returned by Get when no run has the requested ID
var ErrRunNotFound = errors.New("run not found")

// Status is the lifecycle state of a run
type Status string

const (
	// StatusRunning marks a run that has started but not finished
	StatusRunning Status = "running"
	// StatusCompleted marks a run that reached its end node
	StatusCompleted Status = "completed"
	// StatusFailed marks a run that stopped with an error
	StatusFailed Status = "failed"
)

// Run is the persisted record of one workflow execution
type Run struct {
	ID          string          `json:"id"`
	Workflow    string          `json:"workflow"`
	Input       string          `json:"input"`
	Steps       []workflow.Step `json:"steps"`
	FinalOutput string          `json:"final_output,omitempty"`
	Error       string          `json:"error,omitempty"`
	Status      Status          `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
}

// NewRun starts a record for a run of workflowName from state
func NewRun(workflowName string, state workflow.State) *Run {
	return &Run{
		ID:        uuid.New().String(),
		Workflow:  workflowName,
		Input:     state.Input,
		Steps:     append([]workflow.Step(nil), state.IntermediateSteps...),
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
}

// Finish copies the outcome of a run into the record. A non-nil runErr
// marks the run failed even when the final state carries a report.
func (r *Run) Finish(state workflow.State, runErr error) {
	now := time.Now().UTC()
	r.FinishedAt = &now
	r.Steps = append([]workflow.Step(nil), state.IntermediateSteps...)
	r.FinalOutput = state.FinalOutput
	r.Error = state.Error

	switch {
	case runErr != nil:
		r.Status = StatusFailed
		r.Error = runErr.Error()
	default:
		r.Status = StatusCompleted
	}
}

// Store keeps run records
type Store interface {
	// Save creates or replaces the run with the same ID
	Save(ctx context.Context, run *Run) error

	// Get returns the run with id or ErrRunNotFound
	Get(ctx context.Context, id string) (*Run, error)

	// List returns the runs of workflowName, newest first. An empty name
	// lists every run. A limit of zero or less means no limit.
	List(ctx context.Context, workflowName string, limit int) ([]*Run, error)

	// Close releases the store's connections
	Close() error
}

// NewStoreFromConfig creates the store selected by cfg.Type
func NewStoreFromConfig(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Type {
	case "memory", "":
		return NewMemoryStore(), nil
	case "redis":
		if NewRedisStore == nil {
			return nil, fmt.Errorf("redis store is not registered: import the runstore/redis package")
		}
		return NewRedisStore(ctx, cfg.Redis)
	case "postgres":
		if NewPostgresStore == nil {
			return nil, fmt.Errorf("postgres store is not registered: import the runstore/postgres package")
		}
		return NewPostgresStore(ctx, cfg.Postgres)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
}

// NewRedisStore creates a redis-backed store.
// It is set by the runstore/redis package.
var NewRedisStore func(ctx context.Context, cfg config.RedisConfig) (Store, error)

// NewPostgresStore creates a postgres-backed store.
// It is set by the runstore/postgres package.
var NewPostgresStore func(ctx context.Context, cfg config.PostgresConfig) (Store, error)
