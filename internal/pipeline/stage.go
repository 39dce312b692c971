// Package pipeline drives a Job through conversion, segmentation, per-chapter
// cleanup and evaluation. Each stage is an event handler: it reads the fresh
// job, enters the stage with a conditional status transition, does its work
// and publishes the next event.
package pipeline

import (
	"github.com/jackzampolin/bookboost/internal/events"
	"github.com/jackzampolin/bookboost/internal/jobs"
)

// Stage describes one job-level step of the pipeline.
type Stage struct {
	Name    string
	Trigger events.Type

	// From lists the statuses the stage may be entered from. The working
	// status is included where re-running the stage converges to the same
	// result, so a redelivered event can finish an interrupted run.
	From    []jobs.Status
	Working jobs.Status
	Done    jobs.Status
}

var (
	StageConvert = Stage{
		Name:    "convert",
		Trigger: events.TypeJobCreated,
		From:    []jobs.Status{jobs.StatusCreated},
		Working: jobs.StatusConverting,
		Done:    jobs.StatusConverted,
	}
	StageExtract = Stage{
		Name:    "extract",
		Trigger: events.TypeJobConverted,
		From:    []jobs.Status{jobs.StatusConverted, jobs.StatusExtracting},
		Working: jobs.StatusExtracting,
		Done:    jobs.StatusExtracted,
	}
	StageProcess = Stage{
		Name:    "process",
		Trigger: events.TypeJobExtracted,
		From:    []jobs.Status{jobs.StatusExtracted, jobs.StatusProcessing},
		Working: jobs.StatusProcessing,
		Done:    jobs.StatusProcessed,
	}
	StageEvaluate = Stage{
		Name:    "evaluate",
		Trigger: events.TypeJobProcessed,
		From:    []jobs.Status{jobs.StatusProcessed, jobs.StatusEvaluating},
		Working: jobs.StatusEvaluating,
		Done:    jobs.StatusEvaluated,
	}
	StageComplete = Stage{
		Name:    "complete",
		Trigger: events.TypeJobEvaluated,
		From:    []jobs.Status{jobs.StatusEvaluated},
		Working: jobs.StatusCompleted,
		Done:    jobs.StatusCompleted,
	}
)

// Stages returns the job-level stages in pipeline order.
func Stages() []Stage {
	return []Stage{StageConvert, StageExtract, StageProcess, StageEvaluate, StageComplete}
}

// StageOf returns the stage a job in status s is in or waiting for, and
// false for FAILED and unknown statuses.
func StageOf(s jobs.Status) (Stage, bool) {
	for _, st := range Stages() {
		if s == st.Working || s.Rank() < st.Done.Rank() && s.Rank() >= 0 {
			return st, true
		}
	}
	return Stage{}, false
}
