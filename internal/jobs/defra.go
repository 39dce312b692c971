package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackzampolin/bookboost/internal/defra"
)

// Collection names in DefraDB.
const (
	JobCollection  = "Job"
	PartCollection = "Part"
)

// DefraStore persists jobs and parts in DefraDB collections. Records are
// stored as JSON documents next to the fields used in filters.
type DefraStore struct {
	client *defra.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewDefraStore creates a store backed by client. The Job and Part schemas
// must already be registered.
func NewDefraStore(client *defra.Client, logger *slog.Logger) *DefraStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefraStore{
		client: client,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type defraDoc struct {
	DocID  string
	Status Status
	Data   string
}

func (s *DefraStore) CreateJob(ctx context.Context, job *Job) error {
	prepareJob(job, s.now())
	if err := defra.ValidateID(job.ID); err != nil {
		return fmt.Errorf("job id: %w", err)
	}
	if _, err := s.findJob(ctx, job.ID); err == nil {
		return fmt.Errorf("job %s: %w", job.ID, ErrConflict)
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	_, err = s.client.Create(ctx, JobCollection, map[string]any{
		"job_id":     job.ID,
		"user_id":    job.UserID,
		"status":     string(job.Status),
		"data":       string(data),
		"created_at": formatTime(job.CreatedAt),
		"updated_at": formatTime(job.UpdatedAt),
	})
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	s.logger.Debug("job created", "job_id", job.ID, "user_id", job.UserID)
	return nil
}

func (s *DefraStore) findJob(ctx context.Context, id string) (*defraDoc, error) {
	resp, err := defra.NewQuery(JobCollection).
		Filter("job_id", id).
		Fields("_docID", "status", "data").
		Execute(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	docs, err := parseDocs(resp, JobCollection)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return &docs[0], nil
}

func (s *DefraStore) GetJob(ctx context.Context, userID, id string) (*Job, error) {
	doc, err := s.findJob(ctx, id)
	if err != nil {
		return nil, err
	}
	job, err := decodeJob(doc.Data)
	if err != nil {
		return nil, err
	}
	if userID != "" && job.UserID != userID {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return job, nil
}

func (s *DefraStore) ListJobs(ctx context.Context, filter ListFilter) ([]*Job, error) {
	q := defra.NewQuery(JobCollection).Fields("_docID", "status", "data")
	if filter.UserID != "" {
		q.Filter("user_id", filter.UserID)
	}
	if filter.Status != "" {
		q.Filter("status", string(filter.Status))
	}
	q.OrderBy("created_at", "DESC").Limit(listLimit(filter.Limit))

	resp, err := q.Execute(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	docs, err := parseDocs(resp, JobCollection)
	if err != nil {
		return nil, err
	}

	out := make([]*Job, 0, len(docs))
	for _, doc := range docs {
		job, err := decodeJob(doc.Data)
		if err != nil {
			s.logger.Warn("skipping undecodable job", "doc_id", doc.DocID, "error", err)
			continue
		}
		out = append(out, job)
	}
	return out, nil
}

func (s *DefraStore) UpdateJob(ctx context.Context, userID, id string, u JobUpdate) (*Job, error) {
	return s.updateJob(ctx, userID, id, nil, nil, u)
}

func (s *DefraStore) TransitionJob(ctx context.Context, userID, id string, from []Status, to Status, u JobUpdate) (*Job, error) {
	if len(from) == 0 {
		return nil, fmt.Errorf("transition of job %s needs at least one source status", id)
	}
	return s.updateJob(ctx, userID, id, from, &to, u)
}

// updateJob writes through a filtered update so that a transition only lands
// when the stored status is still one of from, then reads the job back.
func (s *DefraStore) updateJob(ctx context.Context, userID, id string, from []Status, to *Status, u JobUpdate) (*Job, error) {
	doc, err := s.findJob(ctx, id)
	if err != nil {
		return nil, err
	}
	job, err := decodeJob(doc.Data)
	if err != nil {
		return nil, err
	}
	if userID != "" && job.UserID != userID {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if from != nil && !statusIn(job.Status, from) {
		return nil, fmt.Errorf("job %s is %s, want one of %v: %w", id, job.Status, from, ErrConflict)
	}

	u.Apply(job)
	if to != nil {
		job.Status = *to
	}
	job.UpdatedAt = s.now()
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	guard := map[string]any{"_docID": map[string]any{"_eq": doc.DocID}}
	if from != nil {
		statuses := make([]any, len(from))
		for i, st := range from {
			statuses[i] = string(st)
		}
		guard["status"] = map[string]any{"_in": statuses}
	}
	updated, err := s.client.UpdateWhere(ctx, JobCollection, guard, map[string]any{
		"status":     string(job.Status),
		"data":       string(data),
		"updated_at": formatTime(job.UpdatedAt),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update job: %w", err)
	}
	if len(updated) == 0 {
		return nil, fmt.Errorf("job %s changed concurrently: %w", id, ErrConflict)
	}

	// Read back so the caller sees what was stored.
	return s.GetJob(ctx, userID, id)
}

func (s *DefraStore) findPart(ctx context.Context, q *defra.QueryBuilder, notFound string) (*defraDoc, error) {
	resp, err := q.Fields("_docID", "data").Execute(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	docs, err := parseDocs(resp, PartCollection)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("part %s: %w", notFound, ErrNotFound)
	}
	return &docs[0], nil
}

func (s *DefraStore) CreatePart(ctx context.Context, part *Part) (*Part, error) {
	existing, err := s.findPart(ctx,
		defra.NewQuery(PartCollection).Filter("job_id", part.JobID).Filter("part_order", part.Order),
		fmt.Sprintf("%s/%d", part.JobID, part.Order))
	if err == nil {
		return decodePart(existing.Data)
	}

	preparePart(part, s.now())
	data, err := json.Marshal(part)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal part: %w", err)
	}
	_, err = s.client.Create(ctx, PartCollection, map[string]any{
		"part_id":    part.ID,
		"job_id":     part.JobID,
		"part_order": part.Order,
		"processed":  part.Processed,
		"data":       string(data),
		"created_at": formatTime(part.CreatedAt),
		"updated_at": formatTime(part.UpdatedAt),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create part: %w", err)
	}
	return part.Clone(), nil
}

func (s *DefraStore) GetPart(ctx context.Context, jobID, id string) (*Part, error) {
	doc, err := s.findPart(ctx,
		defra.NewQuery(PartCollection).Filter("part_id", id).Filter("job_id", jobID), id)
	if err != nil {
		return nil, err
	}
	return decodePart(doc.Data)
}

func (s *DefraStore) ListParts(ctx context.Context, jobID string) ([]*Part, error) {
	resp, err := defra.NewQuery(PartCollection).
		Filter("job_id", jobID).
		Fields("_docID", "data").
		OrderBy("part_order", "ASC").
		Execute(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	docs, err := parseDocs(resp, PartCollection)
	if err != nil {
		return nil, err
	}

	out := make([]*Part, 0, len(docs))
	for _, doc := range docs {
		part, err := decodePart(doc.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, part)
	}
	sortParts(out)
	return out, nil
}

func (s *DefraStore) UpdatePart(ctx context.Context, jobID, id string, u PartUpdate) (*Part, error) {
	doc, err := s.findPart(ctx,
		defra.NewQuery(PartCollection).Filter("part_id", id).Filter("job_id", jobID), id)
	if err != nil {
		return nil, err
	}
	part, err := decodePart(doc.Data)
	if err != nil {
		return nil, err
	}

	u.Apply(part)
	part.UpdatedAt = s.now()
	data, err := json.Marshal(part)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal part: %w", err)
	}
	if err := s.client.Update(ctx, PartCollection, doc.DocID, map[string]any{
		"processed":  part.Processed,
		"data":       string(data),
		"updated_at": formatTime(part.UpdatedAt),
	}); err != nil {
		return nil, fmt.Errorf("failed to update part: %w", err)
	}
	return part, nil
}

func (s *DefraStore) DeleteParts(ctx context.Context, jobID string) error {
	resp, err := defra.NewQuery(PartCollection).
		Filter("job_id", jobID).
		Fields("_docID").
		Execute(ctx, s.client)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	docs, err := parseDocs(resp, PartCollection)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := s.client.Delete(ctx, PartCollection, doc.DocID); err != nil {
			return fmt.Errorf("failed to delete part %s: %w", doc.DocID, err)
		}
	}
	if len(docs) > 0 {
		s.logger.Debug("parts deleted", "job_id", jobID, "parts", len(docs))
	}
	return nil
}

// Close is a no-op; the DefraDB client has no resources to release.
func (s *DefraStore) Close() error { return nil }

func parseDocs(resp *defra.GQLResponse, collection string) ([]defraDoc, error) {
	if errMsg := resp.Error(); errMsg != "" {
		return nil, fmt.Errorf("graphql error: %s", errMsg)
	}
	raw, ok := resp.Data[collection]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected %s type: %T", collection, raw)
	}

	docs := make([]defraDoc, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		var d defraDoc
		if v, ok := m["_docID"].(string); ok {
			d.DocID = v
		}
		if v, ok := m["status"].(string); ok {
			d.Status = Status(v)
		}
		if v, ok := m["data"].(string); ok {
			d.Data = v
		}
		docs = append(docs, d)
	}
	return docs, nil
}

func decodeJob(data string) (*Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

var _ Store = (*DefraStore)(nil)
