package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/jackzampolin/bookboost/internal/defra"
)

// fakeDefra answers the query shapes DefraStore sends. Each handler returns
// the data map for one request.
type fakeDefra struct {
	mu      sync.Mutex
	queries []string
	respond func(query string, vars map[string]any) map[string]any
}

func (f *fakeDefra) serve(t *testing.T) *defra.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req defra.GQLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		f.mu.Lock()
		f.queries = append(f.queries, req.Query)
		f.mu.Unlock()
		json.NewEncoder(w).Encode(defra.GQLResponse{Data: f.respond(req.Query, req.Variables)})
	}))
	t.Cleanup(server.Close)
	return defra.NewClient(server.URL)
}

func jobDoc(t *testing.T, job *Job) map[string]any {
	t.Helper()
	data, err := json.Marshal(job)
	if err != nil {
		t.Fatal(err)
	}
	return map[string]any{"_docID": "doc-" + job.ID, "status": string(job.Status), "data": string(data)}
}

func TestDefraStore_GetJob(t *testing.T) {
	stored := &Job{ID: "j1", UserID: "u1", Status: StatusExtracted, ChapterTitles: []string{"One"}}
	fake := &fakeDefra{respond: func(q string, vars map[string]any) map[string]any {
		if vars["v0"] == "j1" {
			return map[string]any{"Job": []any{jobDoc(t, stored)}}
		}
		return map[string]any{"Job": []any{}}
	}}
	s := NewDefraStore(fake.serve(t), nil)

	got, err := s.GetJob(context.Background(), "u1", "j1")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got.Status != StatusExtracted || len(got.ChapterTitles) != 1 {
		t.Errorf("GetJob() = %+v", got)
	}
	if _, err := s.GetJob(context.Background(), "u2", "j1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetJob(other user) error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetJob(context.Background(), "", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetJob(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDefraStore_TransitionJob(t *testing.T) {
	stored := &Job{ID: "j1", UserID: "u1", Status: StatusProcessing}

	t.Run("guarded update wins", func(t *testing.T) {
		var updated bool
		fake := &fakeDefra{}
		fake.respond = func(q string, vars map[string]any) map[string]any {
			if strings.HasPrefix(q, "mutation") {
				updated = true
				stored.Status = StatusProcessed
				return map[string]any{"update_Job": []any{map[string]any{"_docID": "doc-j1"}}}
			}
			return map[string]any{"Job": []any{jobDoc(t, stored)}}
		}
		s := NewDefraStore(fake.serve(t), nil)

		got, err := s.TransitionJob(context.Background(), "u1", "j1", []Status{StatusProcessing}, StatusProcessed, JobUpdate{})
		if err != nil {
			t.Fatalf("TransitionJob() error = %v", err)
		}
		if !updated || got.Status != StatusProcessed {
			t.Errorf("TransitionJob() = %+v, updated = %v", got, updated)
		}

		var mutation string
		for _, q := range fake.queries {
			if strings.HasPrefix(q, "mutation") {
				mutation = q
			}
		}
		if !strings.Contains(mutation, `status: {_in: ["PROCESSING"]}`) {
			t.Errorf("mutation lacks status guard: %s", mutation)
		}
	})

	t.Run("guard not matched is a conflict", func(t *testing.T) {
		stored.Status = StatusProcessing
		fake := &fakeDefra{respond: func(q string, vars map[string]any) map[string]any {
			if strings.HasPrefix(q, "mutation") {
				return map[string]any{"update_Job": []any{}}
			}
			return map[string]any{"Job": []any{jobDoc(t, stored)}}
		}}
		s := NewDefraStore(fake.serve(t), nil)

		_, err := s.TransitionJob(context.Background(), "u1", "j1", []Status{StatusProcessing}, StatusProcessed, JobUpdate{})
		if !errors.Is(err, ErrConflict) {
			t.Errorf("TransitionJob() error = %v, want ErrConflict", err)
		}
	})

	t.Run("stale status is a conflict without writing", func(t *testing.T) {
		stored.Status = StatusProcessed
		fake := &fakeDefra{respond: func(q string, vars map[string]any) map[string]any {
			if strings.HasPrefix(q, "mutation") {
				t.Error("unexpected mutation")
			}
			return map[string]any{"Job": []any{jobDoc(t, stored)}}
		}}
		s := NewDefraStore(fake.serve(t), nil)

		_, err := s.TransitionJob(context.Background(), "u1", "j1", []Status{StatusProcessing}, StatusProcessed, JobUpdate{})
		if !errors.Is(err, ErrConflict) {
			t.Errorf("TransitionJob() error = %v, want ErrConflict", err)
		}
	})
}

func TestDefraStore_CreatePartIsIdempotent(t *testing.T) {
	existing := &Part{ID: "p1", JobID: "j1", Order: 0, Processed: true}
	data, _ := json.Marshal(existing)

	fake := &fakeDefra{respond: func(q string, vars map[string]any) map[string]any {
		if strings.HasPrefix(q, "mutation") {
			t.Error("unexpected create for an existing part")
		}
		return map[string]any{"Part": []any{map[string]any{"_docID": "doc-p1", "data": string(data)}}}
	}}
	s := NewDefraStore(fake.serve(t), nil)

	got, err := s.CreatePart(context.Background(), &Part{JobID: "j1", Order: 0})
	if err != nil {
		t.Fatalf("CreatePart() error = %v", err)
	}
	if got.ID != "p1" || !got.Processed {
		t.Errorf("CreatePart() = %+v, want the existing part", got)
	}
}

func TestDefraStore_DeleteParts(t *testing.T) {
	var deleted []string
	fake := &fakeDefra{respond: func(q string, vars map[string]any) map[string]any {
		if strings.HasPrefix(q, "mutation") {
			deleted = append(deleted, q)
			return map[string]any{"delete_Part": []any{}}
		}
		return map[string]any{"Part": []any{
			map[string]any{"_docID": "doc-p1"},
			map[string]any{"_docID": "doc-p2"},
		}}
	}}
	s := NewDefraStore(fake.serve(t), nil)

	if err := s.DeleteParts(context.Background(), "j1"); err != nil {
		t.Fatalf("DeleteParts() error = %v", err)
	}
	if len(deleted) != 2 || !strings.Contains(deleted[0], "doc-p1") || !strings.Contains(deleted[1], "doc-p2") {
		t.Errorf("delete mutations = %v", deleted)
	}
}

func TestDefraStore_GraphQLError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(defra.GQLResponse{Errors: []defra.GQLError{{Message: "no collection"}}})
	}))
	defer server.Close()

	s := NewDefraStore(defra.NewClient(server.URL), nil)
	if _, err := s.ListJobs(context.Background(), ListFilter{}); err == nil || !strings.Contains(err.Error(), "no collection") {
		t.Errorf("ListJobs() error = %v", err)
	}
}
