package jobs

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a job or part does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a conditional update loses: the record is
	// not in one of the expected statuses, or already exists.
	ErrConflict = errors.New("conflict")
)

// ListFilter specifies criteria for listing jobs.
type ListFilter struct {
	UserID string // empty = all users
	Status Status // empty = all
	Limit  int    // 0 = default 100
}

const defaultListLimit = 100

// Store persists jobs and parts. Implementations are safe for concurrent use.
type Store interface {
	// CreateJob stores a new job. An empty ID is generated; timestamps are set.
	CreateJob(ctx context.Context, job *Job) error

	GetJob(ctx context.Context, userID, id string) (*Job, error)

	// ListJobs returns jobs newest first.
	ListJobs(ctx context.Context, filter ListFilter) ([]*Job, error)

	// UpdateJob applies u unconditionally.
	UpdateJob(ctx context.Context, userID, id string, u JobUpdate) (*Job, error)

	// TransitionJob moves the job to status to and applies u, only if its
	// current status is in from. Otherwise it returns ErrConflict.
	TransitionJob(ctx context.Context, userID, id string, from []Status, to Status, u JobUpdate) (*Job, error)

	// CreatePart stores a part. If a part with the same (JobID, Order) exists
	// it is returned unchanged.
	CreatePart(ctx context.Context, part *Part) (*Part, error)

	GetPart(ctx context.Context, jobID, id string) (*Part, error)

	// ListParts returns the parts of a job sorted by Order.
	ListParts(ctx context.Context, jobID string) ([]*Part, error)

	UpdatePart(ctx context.Context, jobID, id string, u PartUpdate) (*Part, error)

	// DeleteParts removes every part of a job. Deleting none is not an error.
	DeleteParts(ctx context.Context, jobID string) error

	Close() error
}

// prepareJob fills generated fields of a new job.
func prepareJob(job *Job, now time.Time) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = StatusCreated
	}
	job.CreatedAt = now
	job.UpdatedAt = now
}

// preparePart fills generated fields of a new part.
func preparePart(part *Part, now time.Time) {
	if part.ID == "" {
		part.ID = uuid.NewString()
	}
	part.CreatedAt = now
	part.UpdatedAt = now
}

func statusIn(s Status, from []Status) bool {
	return slices.Contains(from, s)
}

func sortParts(parts []*Part) {
	slices.SortFunc(parts, func(a, b *Part) int { return a.Order - b.Order })
}

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}
