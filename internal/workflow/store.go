package workflow

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var ErrNotFound = errors.New("not found")

// Store persists workflows. Implementations give single-record atomicity and
// read-after-write visibility; nothing here spans more than one record.
type Store interface {
	InsertWorkflow(ctx context.Context, w Workflow) error
	// ReplaceWorkflow overwrites the stored record with the same ID. It
	// returns ErrNotFound when there is none.
	ReplaceWorkflow(ctx context.Context, w Workflow) error
	GetWorkflow(ctx context.Context, id string) (Workflow, error)
	ListWorkflows(ctx context.Context, businessID string) ([]Workflow, error)
	SaveVersion(ctx context.Context, w Workflow) (WorkflowVersion, error)
	ListVersions(ctx context.Context, workflowID string) ([]WorkflowVersion, error)
}

type MemoryStore struct {
	mu        sync.RWMutex
	workflows map[string]Workflow
	versions  map[string][]WorkflowVersion
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		workflows: map[string]Workflow{},
		versions:  map[string][]WorkflowVersion{},
	}
}

func (s *MemoryStore) InsertWorkflow(_ context.Context, w Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.workflows[w.ID]; exists {
		return errors.New("workflow already exists: " + w.ID)
	}
	s.workflows[w.ID] = w.clone()
	return nil
}

func (s *MemoryStore) ReplaceWorkflow(_ context.Context, w Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.workflows[w.ID]; !exists {
		return ErrNotFound
	}
	s.workflows[w.ID] = w.clone()
	return nil
}

func (s *MemoryStore) GetWorkflow(_ context.Context, id string) (Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workflows[id]
	if !ok {
		return Workflow{}, ErrNotFound
	}
	return w.clone(), nil
}

// ListWorkflows returns the business's workflows, newest first.
func (s *MemoryStore) ListWorkflows(_ context.Context, businessID string) ([]Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Workflow, 0)
	for _, w := range s.workflows {
		if w.BusinessID == businessID {
			out = append(out, w.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) SaveVersion(_ context.Context, w Workflow) (WorkflowVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := WorkflowVersion{
		ID:         newID("wfver"),
		WorkflowID: w.ID,
		Version:    len(s.versions[w.ID]) + 1,
		Payload:    w.clone(),
		CreatedAt:  time.Now().UTC(),
	}
	s.versions[w.ID] = append(s.versions[w.ID], v)
	return v, nil
}

func (s *MemoryStore) ListVersions(_ context.Context, workflowID string) ([]WorkflowVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]WorkflowVersion, 0, len(s.versions[workflowID]))
	for _, v := range s.versions[workflowID] {
		v.Payload = v.Payload.clone()
		out = append(out, v)
	}
	return out, nil
}
