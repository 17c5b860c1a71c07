// Package repo provides BatchJobStore implementations: an in-memory map for
// the default single-process deployment, PostgreSQL when durability across
// restarts matters, and Redis when several instances share job visibility.
package repo

import (
	"context"
	"sort"
	"sync"

	"assetgen/internal/domain"
)

// MemoryStore keeps batch jobs in a process-local map. This is the default
// store; the job registry carries no durability guarantee.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*domain.BatchJob
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*domain.BatchJob)}
}

// Put implements domain.BatchJobStore.
func (s *MemoryStore) Put(ctx context.Context, job *domain.BatchJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job.Clone()
	return nil
}

// Get implements domain.BatchJobStore.
func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.BatchJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job.Clone(), nil
}

// List implements domain.BatchJobStore. Jobs are returned newest first.
func (s *MemoryStore) List(ctx context.Context) ([]*domain.BatchJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.BatchJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}
