// Package memory is an in-process Store used by tests and local runs
// without a database. Writes are serialized by a single mutex.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"enricher/internal/core/job"
)

type Store struct {
	mu    sync.Mutex
	jobs  map[string]*job.Job
	items map[string]*job.Item
	order map[string][]string // jobID -> item ids in creation order
}

func New() *Store {
	return &Store{
		jobs:  make(map[string]*job.Job),
		items: make(map[string]*job.Item),
		order: make(map[string][]string),
	}
}

var _ job.Store = (*Store)(nil)

func (s *Store) CreateJob(_ context.Context, total int) (*job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	j := &job.Job{
		ID:        uuid.New().String(),
		TotalURLs: total,
		Status:    job.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[j.ID] = j
	cp := *j
	return &cp, nil
}

func (s *Store) CreateItems(_ context.Context, jobID string, urls []string) ([]job.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[jobID]; !ok {
		return nil, job.ErrNotFound
	}
	out := make([]job.Item, 0, len(urls))
	for _, u := range urls {
		it := &job.Item{
			ID:     uuid.New().String(),
			JobID:  jobID,
			URL:    u,
			Status: job.ItemPending,
		}
		s.items[it.ID] = it
		s.order[jobID] = append(s.order[jobID], it.ID)
		out = append(out, *it)
	}
	return out, nil
}

func (s *Store) Job(_ context.Context, jobID string) (*job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return nil, job.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (s *Store) Items(_ context.Context, jobID string) ([]job.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[jobID]; !ok {
		return nil, job.ErrNotFound
	}
	ids := s.order[jobID]
	out := make([]job.Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.items[id])
	}
	return out, nil
}

func (s *Store) MarkItemQueued(_ context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[itemID]
	if !ok {
		return job.ErrNotFound
	}
	// Status transitions are monotonic; a worker may already have moved
	// the item past pending before this write arrives.
	if it.Status == job.ItemPending {
		it.Status = job.ItemQueued
	}
	return nil
}

func (s *Store) MarkItemProcessing(_ context.Context, itemID string, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[itemID]
	if !ok {
		return job.ErrNotFound
	}
	it.Status = job.ItemProcessing
	t := startedAt
	it.StartedAt = &t
	return nil
}

func (s *Store) CompleteItem(_ context.Context, itemID string, company job.Company, contacts []job.Contact, meta job.FetchMeta, finishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[itemID]
	if !ok {
		return job.ErrNotFound
	}
	it.Status = job.ItemCompleted
	it.Company = company
	it.Contacts = contacts
	it.FetchMeta = meta
	it.LastError = nil
	t := finishedAt
	it.FinishedAt = &t
	return nil
}

func (s *Store) FailItem(_ context.Context, itemID string, lastError string, finishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[itemID]
	if !ok {
		return job.ErrNotFound
	}
	it.Status = job.ItemFailed
	msg := lastError
	it.LastError = &msg
	t := finishedAt
	it.FinishedAt = &t
	return nil
}

func (s *Store) UpdateJobProgress(_ context.Context, jobID string, p job.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return job.ErrNotFound
	}
	j.Processed = p.Processed
	j.Failed = p.Failed
	j.Status = p.Status
	j.UpdatedAt = time.Now().UTC()
	return nil
}
