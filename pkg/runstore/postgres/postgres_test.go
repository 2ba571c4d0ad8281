package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ingenimax/agent-graph-go/pkg/config"
	"github.com/Ingenimax/agent-graph-go/pkg/logging"
	"github.com/Ingenimax/agent-graph-go/pkg/runstore"
	"github.com/Ingenimax/agent-graph-go/pkg/workflow"
)

var columns = []string{"id", "workflow", "input", "steps", "final_output", "error", "status", "started_at", "finished_at"}

func setupStore(t *testing.T, options ...Option) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "workflow_runs"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE INDEX IF NOT EXISTS "workflow_runs_workflow_started_idx" ON "workflow_runs"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store, err := NewFromDB(context.Background(), db, append([]Option{WithLogger(logging.NewNop())}, options...)...)
	require.NoError(t, err)
	return store, mock
}

func TestNewFromDBCreatesTable(t *testing.T) {
	_, mock := setupStore(t)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewFromDBCustomTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "campaign_runs"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`ON "campaign_runs" (workflow, started_at DESC)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err = NewFromDB(context.Background(), db, WithTable("campaign_runs"), WithLogger(logging.NewNop()))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewFromDBMigrationFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))

	_, err = NewFromDB(context.Background(), db, WithLogger(logging.NewNop()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create table workflow_runs")
	assert.Contains(t, err.Error(), "permission denied")
}

func TestNewRequiresDSN(t *testing.T) {
	_, err := New(context.Background(), config.PostgresConfig{})
	assert.EqualError(t, err, "postgres DSN is required")
}

func TestSave(t *testing.T) {
	store, mock := setupStore(t)

	run := runstore.NewRun("campaign", workflow.NewState("launch"))
	run.Finish(workflow.State{
		Input:             "launch",
		IntermediateSteps: []workflow.Step{{AgentID: "seo", Input: "launch", Output: "keywords"}},
		FinalOutput:       "report",
	}, nil)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "workflow_runs"`)).
		WithArgs(
			run.ID,
			"campaign",
			"launch",
			`[{"agent_id":"seo","input":"launch","output":"keywords"}]`,
			"report",
			"",
			"completed",
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Save(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveUpsertsOnConflict(t *testing.T) {
	store, mock := setupStore(t)
	run := runstore.NewRun("campaign", workflow.NewState("launch"))

	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (id) DO UPDATE SET`)).
		WillReturnError(errors.New("connection reset"))

	err := store.Save(context.Background(), run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save run "+run.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet(t *testing.T) {
	store, mock := setupStore(t)
	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	finished := started.Add(time.Minute)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "workflow_runs" WHERE id = $1`)).
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			"run-1", "campaign", "launch",
			[]byte(`[{"agent_id":"seo","input":"launch","output":"keywords"}]`),
			"report", "", "completed", started, finished,
		))

	run, err := store.Get(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, runstore.StatusCompleted, run.Status)
	assert.Equal(t, []workflow.Step{{AgentID: "seo", Input: "launch", Output: "keywords"}}, run.Steps)
	assert.Equal(t, started, run.StartedAt)
	require.NotNil(t, run.FinishedAt)
	assert.Equal(t, finished, *run.FinishedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, runstore.ErrRunNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetQueryError(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectQuery("SELECT").WillReturnError(sql.ErrConnDone)

	_, err := store.Get(context.Background(), "run-1")
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NotErrorIs(t, err, runstore.ErrRunNotFound)
}

func TestList(t *testing.T) {
	store, mock := setupStore(t)
	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY started_at DESC, id ASC LIMIT $2`)).
		WithArgs("campaign", 2).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("run-2", "campaign", "two", []byte(`[]`), "", "", "running", started.Add(time.Minute), nil).
			AddRow("run-1", "campaign", "one", []byte(`[]`), "report", "", "completed", started, started))

	runs, err := store.List(context.Background(), "campaign", 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Nil(t, runs[0].FinishedAt)
	assert.Equal(t, runstore.StatusRunning, runs[0].Status)
	assert.Equal(t, "run-1", runs[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAllWithoutLimit(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE ($1 = '' OR workflow = $1) ORDER BY started_at DESC, id ASC`)).
		WithArgs("").
		WillReturnRows(sqlmock.NewRows(columns))

	runs, err := store.List(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClose(t *testing.T) {
	store, mock := setupStore(t)
	mock.ExpectClose()
	require.NoError(t, store.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
