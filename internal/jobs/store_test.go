package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackzampolin/bookboost/internal/types"
)

// storeFactories returns one constructor per Store implementation that can
// run without external services.
func storeFactories() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "jobs.db"))
			if err != nil {
				t.Fatalf("NewSQLiteStore() error = %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func TestStoreContract(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			t.Run("jobs", func(t *testing.T) { testJobs(t, newStore(t)) })
			t.Run("transitions", func(t *testing.T) { testTransitions(t, newStore(t)) })
			t.Run("concurrent transition has one winner", func(t *testing.T) { testTransitionRace(t, newStore(t)) })
			t.Run("parts", func(t *testing.T) { testParts(t, newStore(t)) })
		})
	}
}

func testJobs(t *testing.T, s Store) {
	ctx := context.Background()

	job := &Job{UserID: "u1", File: &FileRef{Key: "u1/a/book.docx", FileName: "book.docx"}}
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	if job.ID == "" || job.Status != StatusCreated || job.CreatedAt.IsZero() {
		t.Fatalf("CreateJob did not fill defaults: %+v", job)
	}
	if err := s.CreateJob(ctx, &Job{ID: job.ID, UserID: "u1"}); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate CreateJob error = %v, want ErrConflict", err)
	}

	got, err := s.GetJob(ctx, "u1", job.ID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got.File == nil || got.File.FileName != "book.docx" {
		t.Errorf("GetJob().File = %+v", got.File)
	}
	if _, err := s.GetJob(ctx, "someone-else", job.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetJob(wrong user) error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetJob(ctx, "", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetJob(missing) error = %v, want ErrNotFound", err)
	}

	time.Sleep(2 * time.Millisecond)
	second := &Job{UserID: "u1"}
	if err := s.CreateJob(ctx, second); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateJob(ctx, &Job{UserID: "u2"}); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListJobs(ctx, ListFilter{UserID: "u1"})
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID {
		t.Errorf("ListJobs(u1) = %d jobs, first %v; want 2 newest first", len(list), list)
	}
	if all, _ := s.ListJobs(ctx, ListFilter{}); len(all) != 3 {
		t.Errorf("ListJobs(all) = %d, want 3", len(all))
	}
	if limited, _ := s.ListJobs(ctx, ListFilter{Limit: 1}); len(limited) != 1 {
		t.Errorf("ListJobs(limit 1) = %d", len(limited))
	}

	eval := types.Evaluation{Score: 8, Summary: "good"}
	updated, err := s.UpdateJob(ctx, "u1", job.ID, JobUpdate{
		ChapterTitles:        []string{"One", "Two"},
		ExtractionEvaluation: &eval,
		LastError:            Ptr("transient"),
		PartCount:            Ptr(4),
	})
	if err != nil {
		t.Fatalf("UpdateJob() error = %v", err)
	}
	if len(updated.ChapterTitles) != 2 || updated.ExtractionEvaluation.Score != 8 || updated.LastError != "transient" {
		t.Errorf("UpdateJob() = %+v", updated)
	}
	if updated.Status != StatusCreated {
		t.Errorf("UpdateJob changed status to %s", updated.Status)
	}
	reread, _ := s.GetJob(ctx, "", job.ID)
	if reread.ExtractionEvaluation == nil || reread.ExtractionEvaluation.Summary != "good" || reread.PartCount != 4 {
		t.Errorf("update not persisted: %+v", reread)
	}
}

func testTransitions(t *testing.T, s Store) {
	ctx := context.Background()
	job := &Job{UserID: "u1"}
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatal(err)
	}

	got, err := s.TransitionJob(ctx, "u1", job.ID, []Status{StatusCreated}, StatusConverting,
		JobUpdate{ConversionJobID: Ptr("remote-1")})
	if err != nil {
		t.Fatalf("TransitionJob() error = %v", err)
	}
	if got.Status != StatusConverting || got.ConversionJobID != "remote-1" {
		t.Errorf("TransitionJob() = %+v", got)
	}

	_, err = s.TransitionJob(ctx, "u1", job.ID, []Status{StatusCreated}, StatusConverting, JobUpdate{})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("stale TransitionJob error = %v, want ErrConflict", err)
	}
	reread, _ := s.GetJob(ctx, "u1", job.ID)
	if reread.Status != StatusConverting {
		t.Errorf("losing transition changed status to %s", reread.Status)
	}

	if _, err := s.TransitionJob(ctx, "u1", job.ID, []Status{StatusCreated, StatusConverting}, StatusFailed,
		JobUpdate{LastError: Ptr("boom")}); err != nil {
		t.Errorf("multi-source TransitionJob error = %v", err)
	}
	if _, err := s.TransitionJob(ctx, "u1", "missing", []Status{StatusCreated}, StatusConverting, JobUpdate{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("TransitionJob(missing) error = %v, want ErrNotFound", err)
	}
}

func testTransitionRace(t *testing.T, s Store) {
	ctx := context.Background()
	job := &Job{UserID: "u1", Status: StatusProcessing}
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatal(err)
	}

	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.TransitionJob(ctx, "u1", job.ID, []Status{StatusProcessing}, StatusProcessed, JobUpdate{})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrConflict):
				conflicts.Add(1)
			default:
				t.Errorf("TransitionJob() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 || conflicts.Load() != 7 {
		t.Errorf("wins = %d, conflicts = %d; want 1 and 7", wins.Load(), conflicts.Load())
	}
}

func testParts(t *testing.T, s Store) {
	ctx := context.Background()
	jobID := "job-1"

	for _, order := range []int{2, 0, 1} {
		if _, err := s.CreatePart(ctx, &Part{JobID: jobID, Order: order, Contents: types.Chapter{Title: "T", Content: "c"}}); err != nil {
			t.Fatalf("CreatePart(%d) error = %v", order, err)
		}
	}

	dup, err := s.CreatePart(ctx, &Part{JobID: jobID, Order: 1, Contents: types.Chapter{Title: "other"}})
	if err != nil {
		t.Fatalf("duplicate CreatePart error = %v", err)
	}
	if dup.Contents.Title != "T" {
		t.Errorf("duplicate CreatePart returned %+v, want the existing part", dup)
	}

	parts, err := s.ListParts(ctx, jobID)
	if err != nil {
		t.Fatalf("ListParts() error = %v", err)
	}
	if len(parts) != 3 {
		t.Fatalf("ListParts() = %d parts, want 3", len(parts))
	}
	for i, p := range parts {
		if p.Order != i {
			t.Errorf("parts[%d].Order = %d", i, p.Order)
		}
	}
	if other, _ := s.ListParts(ctx, "other-job"); len(other) != 0 {
		t.Errorf("ListParts(other) = %d", len(other))
	}

	id := parts[0].ID
	got, err := s.UpdatePart(ctx, jobID, id, PartUpdate{
		Contents:  &types.Chapter{Title: "T", Content: "cleaned"},
		Processed: Ptr(true),
		Flag:      Ptr(true),
	})
	if err != nil {
		t.Fatalf("UpdatePart() error = %v", err)
	}
	if !got.Processed || !got.Flag || got.Contents.Content != "cleaned" {
		t.Errorf("UpdatePart() = %+v", got)
	}

	got, err = s.UpdatePart(ctx, jobID, id, PartUpdate{Processed: Ptr(false), Error: Ptr("late")})
	if err != nil {
		t.Fatal(err)
	}
	if !got.Processed {
		t.Error("UpdatePart reset processed to false")
	}
	reread, err := s.GetPart(ctx, jobID, id)
	if err != nil {
		t.Fatalf("GetPart() error = %v", err)
	}
	if !reread.Processed || reread.Error != "late" {
		t.Errorf("GetPart() = %+v", reread)
	}

	if _, err := s.GetPart(ctx, "other-job", id); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPart(wrong job) error = %v, want ErrNotFound", err)
	}
	if _, err := s.UpdatePart(ctx, jobID, "missing", PartUpdate{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdatePart(missing) error = %v, want ErrNotFound", err)
	}

	if _, err := s.CreatePart(ctx, &Part{JobID: "other-job", Order: 0}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteParts(ctx, jobID); err != nil {
		t.Fatalf("DeleteParts() error = %v", err)
	}
	if left, _ := s.ListParts(ctx, jobID); len(left) != 0 {
		t.Errorf("ListParts after DeleteParts = %d, want 0", len(left))
	}
	if _, err := s.GetPart(ctx, jobID, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPart(deleted) error = %v, want ErrNotFound", err)
	}
	if other, _ := s.ListParts(ctx, "other-job"); len(other) != 1 {
		t.Errorf("DeleteParts removed parts of another job")
	}
	if err := s.DeleteParts(ctx, jobID); err != nil {
		t.Errorf("DeleteParts(empty) error = %v", err)
	}

	fresh, err := s.CreatePart(ctx, &Part{JobID: jobID, Order: 1, Contents: types.Chapter{Title: "new"}})
	if err != nil {
		t.Fatalf("CreatePart after delete error = %v", err)
	}
	if fresh.Contents.Title != "new" || fresh.Processed {
		t.Errorf("CreatePart after delete = %+v, want a new part", fresh)
	}
}
