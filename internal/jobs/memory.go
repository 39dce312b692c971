package jobs

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

type partKey struct {
	jobID string
	order int
}

// MemoryStore keeps jobs and parts in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	jobs    map[string]*Job
	parts   map[string]*Part
	byOrder map[partKey]string
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:    make(map[string]*Job),
		parts:   make(map[string]*Part),
		byOrder: make(map[partKey]string),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) CreateJob(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepareJob(job, s.now())
	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("job %s: %w", job.ID, ErrConflict)
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *MemoryStore) GetJob(_ context.Context, userID, id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.job(userID, id)
	if err != nil {
		return nil, err
	}
	return job.Clone(), nil
}

func (s *MemoryStore) job(userID, id string) (*Job, error) {
	job, ok := s.jobs[id]
	if !ok || (userID != "" && job.UserID != userID) {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return job, nil
}

func (s *MemoryStore) ListJobs(_ context.Context, filter ListFilter) ([]*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Job, 0)
	for _, job := range s.jobs {
		if filter.UserID != "" && job.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		out = append(out, job.Clone())
	}
	slices.SortFunc(out, func(a, b *Job) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if limit := listLimit(filter.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) UpdateJob(_ context.Context, userID, id string, u JobUpdate) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.job(userID, id)
	if err != nil {
		return nil, err
	}
	u.Apply(job)
	job.UpdatedAt = s.now()
	return job.Clone(), nil
}

func (s *MemoryStore) TransitionJob(_ context.Context, userID, id string, from []Status, to Status, u JobUpdate) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.job(userID, id)
	if err != nil {
		return nil, err
	}
	if !statusIn(job.Status, from) {
		return nil, fmt.Errorf("job %s is %s, want one of %v: %w", id, job.Status, from, ErrConflict)
	}
	u.Apply(job)
	job.Status = to
	job.UpdatedAt = s.now()
	return job.Clone(), nil
}

func (s *MemoryStore) CreatePart(_ context.Context, part *Part) (*Part, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := partKey{part.JobID, part.Order}
	if id, ok := s.byOrder[key]; ok {
		return s.parts[id].Clone(), nil
	}
	preparePart(part, s.now())
	if _, ok := s.parts[part.ID]; ok {
		return nil, fmt.Errorf("part %s: %w", part.ID, ErrConflict)
	}
	s.parts[part.ID] = part.Clone()
	s.byOrder[key] = part.ID
	return part.Clone(), nil
}

func (s *MemoryStore) GetPart(_ context.Context, jobID, id string) (*Part, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	part, ok := s.parts[id]
	if !ok || part.JobID != jobID {
		return nil, fmt.Errorf("part %s: %w", id, ErrNotFound)
	}
	return part.Clone(), nil
}

func (s *MemoryStore) ListParts(_ context.Context, jobID string) ([]*Part, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Part, 0)
	for _, part := range s.parts {
		if part.JobID == jobID {
			out = append(out, part.Clone())
		}
	}
	sortParts(out)
	return out, nil
}

func (s *MemoryStore) UpdatePart(_ context.Context, jobID, id string, u PartUpdate) (*Part, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	part, ok := s.parts[id]
	if !ok || part.JobID != jobID {
		return nil, fmt.Errorf("part %s: %w", id, ErrNotFound)
	}
	u.Apply(part)
	part.UpdatedAt = s.now()
	return part.Clone(), nil
}

func (s *MemoryStore) DeleteParts(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, part := range s.parts {
		if part.JobID == jobID {
			delete(s.parts, id)
			delete(s.byOrder, partKey{part.JobID, part.Order})
		}
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
