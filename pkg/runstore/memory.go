package runstore

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps runs in process memory
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*Run)}
}

// Save implements Store
func (s *MemoryStore) Save(ctx context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run.clone()
	return nil
}

// Get implements Store
func (s *MemoryStore) Get(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return run.clone(), nil
}

// List implements Store
func (s *MemoryStore) List(ctx context.Context, workflowName string, limit int) ([]*Run, error) {
	s.mu.RLock()
	runs := make([]*Run, 0, len(s.runs))
	for _, run := range s.runs {
		if workflowName == "" || run.Workflow == workflowName {
			runs = append(runs, run.clone())
		}
	}
	s.mu.RUnlock()

	SortNewestFirst(runs)
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Close implements Store
func (s *MemoryStore) Close() error {
	return nil
}

// SortNewestFirst orders runs by start time, newest first, breaking ties by ID
func SortNewestFirst(runs []*Run) {
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
}

func (r *Run) clone() *Run {
	out := *r
	out.Steps = append(out.Steps[:0:0], r.Steps...)
	if r.FinishedAt != nil {
		finished := *r.FinishedAt
		out.FinishedAt = &finished
	}
	return &out
}

var _ Store = (*MemoryStore)(nil)
