// Package events carries pipeline notifications between stages: a tagged
// Event type and an in-process Bus that delivers events to subscribed
// handlers with bounded redelivery.
package events

import (
	"errors"
	"fmt"

	"github.com/jackzampolin/bookboost/internal/jobs"
)

// SourceProcessor is the source of every event the pipeline emits.
const SourceProcessor = "services.processor"

// Type tags an event with the pipeline step it announces.
type Type string

const (
	TypeJobCreated   Type = "job.created"
	TypeJobConverted Type = "job.converted"
	TypeJobExtracted Type = "job.extracted"
	TypePartCreated  Type = "part.created"
	TypeJobProcessed Type = "job.processed"
	TypeJobEvaluated Type = "job.evaluated"
	TypeJobCompleted Type = "job.completed"
)

// Types lists every event type in pipeline order.
var Types = []Type{
	TypeJobCreated,
	TypeJobConverted,
	TypeJobExtracted,
	TypePartCreated,
	TypeJobProcessed,
	TypeJobEvaluated,
	TypeJobCompleted,
}

// PartMessage is the payload of part.created.
type PartMessage struct {
	UserID string     `json:"user_id"`
	JobID  string     `json:"job_id"`
	Part   *jobs.Part `json:"part"`
}

// Event is a pipeline notification. Exactly one of Job or Part is set,
// according to Type.
type Event struct {
	ID     string       `json:"id"`
	Source string       `json:"source"`
	Type   Type         `json:"type"`
	Job    *jobs.Job    `json:"job,omitempty"`
	Part   *PartMessage `json:"part,omitempty"`
}

// ErrInvalidEvent is returned by Validate and Publish for malformed events.
var ErrInvalidEvent = errors.New("invalid event")

func jobEvent(t Type, job *jobs.Job) Event {
	return Event{Source: SourceProcessor, Type: t, Job: job.Clone()}
}

func JobCreated(job *jobs.Job) Event   { return jobEvent(TypeJobCreated, job) }
func JobConverted(job *jobs.Job) Event { return jobEvent(TypeJobConverted, job) }
func JobExtracted(job *jobs.Job) Event { return jobEvent(TypeJobExtracted, job) }
func JobProcessed(job *jobs.Job) Event { return jobEvent(TypeJobProcessed, job) }
func JobEvaluated(job *jobs.Job) Event { return jobEvent(TypeJobEvaluated, job) }
func JobCompleted(job *jobs.Job) Event { return jobEvent(TypeJobCompleted, job) }

// PartCreated announces a new part of a job.
func PartCreated(userID, jobID string, part *jobs.Part) Event {
	return Event{
		Source: SourceProcessor,
		Type:   TypePartCreated,
		Part:   &PartMessage{UserID: userID, JobID: jobID, Part: part.Clone()},
	}
}

// Validate checks that the payload matches the type tag.
func (e Event) Validate() error {
	if e.Source == "" {
		return fmt.Errorf("%w: missing source", ErrInvalidEvent)
	}
	switch e.Type {
	case TypePartCreated:
		if e.Part == nil || e.Part.Part == nil {
			return fmt.Errorf("%w: %s without part payload", ErrInvalidEvent, e.Type)
		}
		if e.Part.JobID == "" || e.Part.Part.ID == "" {
			return fmt.Errorf("%w: %s without job or part id", ErrInvalidEvent, e.Type)
		}
		if e.Job != nil {
			return fmt.Errorf("%w: %s carries a job payload", ErrInvalidEvent, e.Type)
		}
	case TypeJobCreated, TypeJobConverted, TypeJobExtracted, TypeJobProcessed, TypeJobEvaluated, TypeJobCompleted:
		if e.Job == nil || e.Job.ID == "" {
			return fmt.Errorf("%w: %s without job payload", ErrInvalidEvent, e.Type)
		}
		if e.Part != nil {
			return fmt.Errorf("%w: %s carries a part payload", ErrInvalidEvent, e.Type)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	return nil
}

// Subject returns the user and job the event concerns.
func (e Event) Subject() (userID, jobID string) {
	switch {
	case e.Job != nil:
		return e.Job.UserID, e.Job.ID
	case e.Part != nil:
		return e.Part.UserID, e.Part.JobID
	}
	return "", ""
}
