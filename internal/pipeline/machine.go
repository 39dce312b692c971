package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackzampolin/bookboost/internal/chapters"
	"github.com/jackzampolin/bookboost/internal/convert"
	"github.com/jackzampolin/bookboost/internal/events"
	"github.com/jackzampolin/bookboost/internal/extract"
	"github.com/jackzampolin/bookboost/internal/jobs"
	"github.com/jackzampolin/bookboost/internal/objstore"
	"github.com/jackzampolin/bookboost/internal/types"
)

// ErrMissingData is returned when a record or object a stage depends on
// does not exist.
var ErrMissingData = errors.New("missing data")

// Publisher sends events to the bus.
type Publisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

// Subscriber registers event handlers.
type Subscriber interface {
	Subscribe(source string, typ events.Type, h events.Handler)
}

// TitleExtractor finds chapter titles in a manuscript.
type TitleExtractor interface {
	ExtractTitles(ctx context.Context, manuscript string) ([]string, error)
}

// PostProcessor cleans one chapter. Failures are reported in the result.
type PostProcessor interface {
	PostProcess(ctx context.Context, chapter types.Chapter) chapters.ProcessedChapter
}

// Evaluator scores a finished extraction.
type Evaluator interface {
	Evaluate(ctx context.Context, chapters []types.Chapter, manuscript string) (types.Evaluation, error)
}

// Config holds the collaborators of a Machine.
type Config struct {
	Store     jobs.Store
	Objects   *objstore.Store
	Publisher Publisher
	Converter convert.Converter

	// Titles is used when a job carries no chapter titles.
	Titles        TitleExtractor
	// PostProcessor cleans each part. Nil keeps the segmented text.
	PostProcessor PostProcessor
	Evaluator     Evaluator

	Extract extract.Options
	Logger  *slog.Logger
}

// Machine is the job state machine. Its handlers are safe to run
// concurrently and to run again for the same event.
type Machine struct {
	store     jobs.Store
	objects   *objstore.Store
	publisher Publisher
	converter convert.Converter
	titles    TitleExtractor
	post      PostProcessor
	evaluator Evaluator
	segmenter *extract.Segmenter
	logger    *slog.Logger
}

// New creates a Machine.
func New(cfg Config) *Machine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		store:     cfg.Store,
		objects:   cfg.Objects,
		publisher: cfg.Publisher,
		converter: cfg.Converter,
		titles:    cfg.Titles,
		post:      cfg.PostProcessor,
		evaluator: cfg.Evaluator,
		segmenter: extract.NewSegmenter(cfg.Extract),
		logger:    logger,
	}
}

// Register subscribes the machine's handlers to every pipeline event.
func (m *Machine) Register(sub Subscriber) {
	for _, typ := range events.Types {
		sub.Subscribe(events.SourceProcessor, typ, m.Dispatch)
	}
}

// Dispatch routes an event to the handler for its type.
func (m *Machine) Dispatch(ctx context.Context, ev events.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	switch ev.Type {
	case events.TypeJobCreated:
		return m.HandleJobCreated(ctx, ev.Job)
	case events.TypeJobConverted:
		return m.HandleJobConverted(ctx, ev.Job)
	case events.TypeJobExtracted:
		return m.HandleJobExtracted(ctx, ev.Job)
	case events.TypePartCreated:
		return m.HandlePartCreated(ctx, ev.Part)
	case events.TypeJobProcessed:
		return m.HandleJobProcessed(ctx, ev.Job)
	case events.TypeJobEvaluated:
		return m.HandleJobEvaluated(ctx, ev.Job)
	case events.TypeJobCompleted:
		m.logger.Info("job completed", "job_id", ev.Job.ID, "user_id", ev.Job.UserID)
		return nil
	}
	return fmt.Errorf("%w: unhandled type %q", events.ErrInvalidEvent, ev.Type)
}

// SubmitRequest describes a new job.
type SubmitRequest struct {
	ID     string
	UserID string
	File   jobs.FileRef
	// Titles are the known chapter titles. Empty asks the title extractor.
	Titles []string
}

// Submit creates a job in CREATED and publishes job.created.
func (m *Machine) Submit(ctx context.Context, req SubmitRequest) (*jobs.Job, error) {
	if req.UserID == "" {
		return nil, errors.New("user_id is required")
	}
	if req.File.Key == "" && req.File.URL == "" {
		return nil, errors.New("file key or url is required")
	}
	file := req.File
	job := &jobs.Job{
		ID:            req.ID,
		UserID:        req.UserID,
		Status:        jobs.StatusCreated,
		File:          &file,
		ChapterTitles: req.Titles,
	}
	if err := m.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	m.logger.Info("job submitted", "job_id", job.ID, "user_id", job.UserID, "file", file.FileName)

	if err := m.publish(ctx, events.JobCreated(job)); err != nil {
		return nil, err
	}
	return job, nil
}

// Retry moves a FAILED job back to CREATED and publishes job.created. The
// parts of the earlier run are replaced when the job is processed again.
func (m *Machine) Retry(ctx context.Context, userID, jobID string) (*jobs.Job, error) {
	job, err := m.store.TransitionJob(ctx, userID, jobID,
		[]jobs.Status{jobs.StatusFailed}, jobs.StatusCreated,
		jobs.JobUpdate{LastError: jobs.Ptr(""), ConversionJobID: jobs.Ptr(""), PartCount: jobs.Ptr(0)})
	if err != nil {
		return nil, err
	}
	m.logger.Info("job retried", "job_id", job.ID, "user_id", job.UserID)

	if err := m.publish(ctx, events.JobCreated(job)); err != nil {
		return nil, err
	}
	return job, nil
}

func (m *Machine) publish(ctx context.Context, ev events.Event) error {
	if err := m.publisher.Publish(ctx, ev); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}
