package events

import (
	"errors"
	"testing"

	"github.com/jackzampolin/bookboost/internal/jobs"
)

func TestEventValidate(t *testing.T) {
	job := &jobs.Job{ID: "j1", UserID: "u1"}
	part := &jobs.Part{ID: "p1", JobID: "j1"}

	tests := []struct {
		name    string
		ev      Event
		wantErr bool
	}{
		{"job created", JobCreated(job), false},
		{"job completed", JobCompleted(job), false},
		{"part created", PartCreated("u1", "j1", part), false},
		{"missing source", Event{Type: TypeJobCreated, Job: job}, true},
		{"unknown type", Event{Source: SourceProcessor, Type: "job.paused", Job: job}, true},
		{"job event without job", Event{Source: SourceProcessor, Type: TypeJobExtracted}, true},
		{"job event with part", Event{Source: SourceProcessor, Type: TypeJobExtracted, Job: job, Part: &PartMessage{JobID: "j1", Part: part}}, true},
		{"part event without part", Event{Source: SourceProcessor, Type: TypePartCreated, Part: &PartMessage{JobID: "j1"}}, true},
		{"part event with job", Event{Source: SourceProcessor, Type: TypePartCreated, Job: job, Part: &PartMessage{JobID: "j1", Part: part}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ev.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("expected ErrInvalidEvent, got %v", err)
			}
		})
	}
}

func TestEventSnapshotsPayload(t *testing.T) {
	job := &jobs.Job{ID: "j1", UserID: "u1", Status: jobs.StatusCreated}
	ev := JobCreated(job)
	job.Status = jobs.StatusFailed
	if ev.Job.Status != jobs.StatusCreated {
		t.Error("event payload changed with the source job")
	}

	u, j := PartCreated("u1", "j1", &jobs.Part{ID: "p"}).Subject()
	if u != "u1" || j != "j1" {
		t.Errorf("Subject() = %s, %s", u, j)
	}
}
