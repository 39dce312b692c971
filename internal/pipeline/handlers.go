package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackzampolin/bookboost/internal/chapters"
	"github.com/jackzampolin/bookboost/internal/events"
	"github.com/jackzampolin/bookboost/internal/jobs"
	"github.com/jackzampolin/bookboost/internal/llmcall"
	"github.com/jackzampolin/bookboost/internal/objstore"
	"github.com/jackzampolin/bookboost/internal/types"
)

// enter moves the job into the stage's working status. It returns false when
// the job is not in a status the stage may start from; the event is then a
// redelivery or out of date and is dropped.
func (m *Machine) enter(ctx context.Context, st Stage, userID, jobID string) (*jobs.Job, bool, error) {
	job, err := m.store.TransitionJob(ctx, userID, jobID, st.From, st.Working, jobs.JobUpdate{})
	switch {
	case errors.Is(err, jobs.ErrConflict):
		m.logger.Debug("skipping stage", "stage", st.Name, "job_id", jobID, "reason", err)
		return nil, false, nil
	case errors.Is(err, jobs.ErrNotFound):
		return nil, false, fmt.Errorf("%s: %w: %v", st.Name, ErrMissingData, err)
	case err != nil:
		return nil, false, fmt.Errorf("%s: enter stage: %w", st.Name, err)
	}
	m.logger.Info("stage started", "stage", st.Name, "job_id", jobID, "user_id", userID)
	return job, true, nil
}

// finish moves the job from the working status to done and publishes next.
// Losing the transition to a concurrent run is not an error.
func (m *Machine) finish(ctx context.Context, st Stage, job *jobs.Job, u jobs.JobUpdate, next func(*jobs.Job) events.Event) error {
	updated, err := m.store.TransitionJob(ctx, job.UserID, job.ID, []jobs.Status{st.Working}, st.Done, u)
	if errors.Is(err, jobs.ErrConflict) {
		m.logger.Debug("stage already finished", "stage", st.Name, "job_id", job.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: finish stage: %w", st.Name, err)
	}
	m.logger.Info("stage finished", "stage", st.Name, "job_id", job.ID, "status", updated.Status)
	return m.publish(ctx, next(updated))
}

// fail records err on the job and marks it FAILED, then returns err.
func (m *Machine) fail(ctx context.Context, st Stage, job *jobs.Job, err error) error {
	msg := err.Error()
	_, terr := m.store.TransitionJob(ctx, job.UserID, job.ID,
		[]jobs.Status{st.Working}, jobs.StatusFailed,
		jobs.JobUpdate{LastError: &msg})
	if terr != nil && !errors.Is(terr, jobs.ErrConflict) {
		m.logger.Error("failed to mark job failed", "stage", st.Name, "job_id", job.ID, "error", terr)
	}
	m.logger.Error("stage failed", "stage", st.Name, "job_id", job.ID, "user_id", job.UserID, "error", err)
	return fmt.Errorf("%s job %s: %w", st.Name, job.ID, err)
}

func jobContext(ctx context.Context, job *jobs.Job) context.Context {
	return llmcall.WithRefs(ctx, llmcall.Refs{UserID: job.UserID, JobID: job.ID})
}

// HandleJobCreated starts the document conversion.
func (m *Machine) HandleJobCreated(ctx context.Context, in *jobs.Job) error {
	st := StageConvert
	job, ok, err := m.enter(ctx, st, in.UserID, in.ID)
	if !ok {
		return err
	}

	handle, err := m.converter.Start(ctx, job)
	if err != nil {
		return m.fail(ctx, st, job, fmt.Errorf("start conversion: %w", err))
	}

	// The conversion may already have reported back; only record the
	// handle while the job still waits for it.
	_, err = m.store.TransitionJob(ctx, job.UserID, job.ID,
		[]jobs.Status{st.Working}, st.Working,
		jobs.JobUpdate{ConversionJobID: &handle})
	if err != nil && !errors.Is(err, jobs.ErrConflict) {
		return fmt.Errorf("record conversion handle: %w", err)
	}
	return nil
}

// HandleConverted is called by the conversion webhook or local callback
// when the conversion identified by handle has finished.
func (m *Machine) HandleConverted(ctx context.Context, userID, jobID, handle string) error {
	st := StageConvert
	job, err := m.store.GetJob(ctx, userID, jobID)
	if err != nil {
		return err
	}
	switch {
	case job.Status.After(st.Working):
		m.logger.Debug("conversion already recorded", "job_id", jobID, "status", job.Status)
		return nil
	case job.Status != st.Working:
		return fmt.Errorf("job %s is %s, not %s: %w", jobID, job.Status, st.Working, jobs.ErrConflict)
	case job.ConversionJobID != "" && job.ConversionJobID != handle:
		return fmt.Errorf("job %s waits for conversion %s, not %s: %w", jobID, job.ConversionJobID, handle, jobs.ErrConflict)
	}

	file, err := m.converter.FetchResult(ctx, job, handle)
	if err != nil {
		return m.fail(ctx, st, job, fmt.Errorf("fetch conversion result: %w", err))
	}
	return m.finish(ctx, st, job, jobs.JobUpdate{
		ConvertedFile:   file,
		ConversionJobID: &handle,
	}, events.JobConverted)
}

// HandleJobConverted segments the converted text and stores the chapters.
func (m *Machine) HandleJobConverted(ctx context.Context, in *jobs.Job) error {
	st := StageExtract
	job, ok, err := m.enter(ctx, st, in.UserID, in.ID)
	if !ok {
		return err
	}

	u, err := m.extractChapters(jobContext(ctx, job), job)
	if err != nil {
		return m.fail(ctx, st, job, err)
	}
	return m.finish(ctx, st, job, u, events.JobExtracted)
}

func (m *Machine) extractChapters(ctx context.Context, job *jobs.Job) (jobs.JobUpdate, error) {
	if job.ConvertedFile == nil || job.ConvertedFile.Key == "" {
		return jobs.JobUpdate{}, fmt.Errorf("%w: job has no converted file", ErrMissingData)
	}
	text, err := m.objects.Get(ctx, job.ConvertedFile.Key)
	if err != nil {
		return jobs.JobUpdate{}, fmt.Errorf("%w: converted text: %v", ErrMissingData, err)
	}

	titles := job.ChapterTitles
	if len(titles) == 0 {
		if m.titles == nil {
			return jobs.JobUpdate{}, fmt.Errorf("%w: no chapter titles and no title extractor", ErrMissingData)
		}
		if titles, err = m.titles.ExtractTitles(ctx, text); err != nil {
			return jobs.JobUpdate{}, err
		}
	}

	result := m.segmenter.Run(text, titles)
	if len(result.Chapters) == 0 {
		return jobs.JobUpdate{}, fmt.Errorf("no chapters found for %d titles", len(titles))
	}
	m.logger.Info("manuscript segmented",
		"job_id", job.ID,
		"titles", len(titles),
		"chapters", len(result.Chapters),
		"toc", result.Analysis.HasToc,
		"strong_match", result.Analysis.StrongTitleMatch)

	ref, err := m.putChapters(ctx, job, result.Chapters)
	if err != nil {
		return jobs.JobUpdate{}, err
	}
	return jobs.JobUpdate{ChaptersObject: ref, ChapterTitles: titles}, nil
}

func (m *Machine) putChapters(ctx context.Context, job *jobs.Job, chs []types.Chapter) (*jobs.ObjectRef, error) {
	obj, err := m.objects.PutJSON(ctx, objstore.ChaptersKey(job.UserID, job.ID), chs)
	if err != nil {
		return nil, fmt.Errorf("store chapters: %w", err)
	}
	return &jobs.ObjectRef{Key: obj.Key, Location: obj.Location, Size: obj.Size}, nil
}

func (m *Machine) getChapters(ctx context.Context, job *jobs.Job) ([]types.Chapter, error) {
	if job.ChaptersObject == nil || job.ChaptersObject.Key == "" {
		return nil, fmt.Errorf("%w: job has no chapters object", ErrMissingData)
	}
	var chs []types.Chapter
	if err := m.objects.GetJSON(ctx, job.ChaptersObject.Key, &chs); err != nil {
		return nil, fmt.Errorf("%w: chapters: %v", ErrMissingData, err)
	}
	return chs, nil
}

// HandleJobExtracted creates one part per chapter, records the part count
// and only then announces the parts, so no part completes before all of
// them exist. The job stays PROCESSING until the last part completes.
func (m *Machine) HandleJobExtracted(ctx context.Context, in *jobs.Job) error {
	st := StageProcess
	job, ok, err := m.enter(ctx, st, in.UserID, in.ID)
	if !ok {
		return err
	}

	chs, err := m.getChapters(ctx, job)
	if err != nil {
		return m.fail(ctx, st, job, err)
	}
	if len(chs) == 0 {
		return m.fail(ctx, st, job, fmt.Errorf("%w: chapters object is empty", ErrMissingData))
	}

	// No recorded count means this run has not created its parts yet. Parts
	// found now belong to an earlier run and are replaced.
	if job.PartCount == 0 {
		if err := m.store.DeleteParts(ctx, job.ID); err != nil {
			return m.fail(ctx, st, job, fmt.Errorf("reset parts: %w", err))
		}
	}

	parts := make([]*jobs.Part, len(chs))
	for i, ch := range chs {
		part, err := m.store.CreatePart(ctx, &jobs.Part{JobID: job.ID, Order: i, Contents: ch})
		if err != nil {
			return m.fail(ctx, st, job, fmt.Errorf("create part %d: %w", i, err))
		}
		parts[i] = part
	}

	if job.PartCount != len(parts) {
		_, err := m.store.TransitionJob(ctx, job.UserID, job.ID,
			[]jobs.Status{st.Working}, st.Working,
			jobs.JobUpdate{PartCount: jobs.Ptr(len(parts))})
		if errors.Is(err, jobs.ErrConflict) {
			m.logger.Debug("job left processing", "job_id", job.ID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("record part count: %w", err)
		}
	}

	for _, part := range parts {
		if err := m.publish(ctx, events.PartCreated(job.UserID, job.ID, part)); err != nil {
			return m.fail(ctx, st, job, err)
		}
	}
	m.logger.Info("parts created", "job_id", job.ID, "parts", len(parts))
	return nil
}

// HandlePartCreated cleans one part and, when it is the last one to finish,
// reassembles the chapters and advances the job to PROCESSED.
func (m *Machine) HandlePartCreated(ctx context.Context, msg *events.PartMessage) error {
	job, err := m.store.GetJob(ctx, msg.UserID, msg.JobID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMissingData, err)
	}
	if job.Status != jobs.StatusProcessing {
		m.logger.Debug("skipping part", "job_id", job.ID, "part_id", msg.Part.ID, "status", job.Status)
		return nil
	}

	if err := m.processPart(ctx, job, msg.Part.ID); err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			m.logger.Debug("skipping replaced part", "job_id", job.ID, "part_id", msg.Part.ID)
			return nil
		}
		m.logger.Error("part failed", "job_id", job.ID, "part_id", msg.Part.ID, "error", err)
		m.markPartFailed(ctx, job.ID, msg.Part.ID, err)
		if ferr := m.fanIn(ctx, job); ferr != nil {
			m.logger.Error("fan-in failed", "job_id", job.ID, "error", ferr)
		}
		return fmt.Errorf("process part %s of job %s: %w", msg.Part.ID, job.ID, err)
	}
	return m.fanIn(ctx, job)
}

func (m *Machine) processPart(ctx context.Context, job *jobs.Job, partID string) error {
	part, err := m.store.GetPart(ctx, job.ID, partID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMissingData, err)
	}
	if part.Processed {
		return nil
	}

	out := chapters.ProcessedChapter{Title: part.Contents.Title, Content: part.Contents.Content, Processed: true}
	if m.post != nil {
		pctx := llmcall.WithRefs(ctx, llmcall.Refs{UserID: job.UserID, JobID: job.ID, PartID: part.ID})
		out = m.post.PostProcess(pctx, part.Contents)
	}
	if out.Error != "" {
		m.logger.Warn("chapter cleanup failed", "job_id", job.ID, "part_id", part.ID, "order", part.Order, "error", out.Error)
	}

	_, err = m.store.UpdatePart(ctx, job.ID, part.ID, jobs.PartUpdate{
		Contents:  &types.Chapter{Title: out.Title, Content: out.Content},
		Processed: jobs.Ptr(true),
		Flag:      jobs.Ptr(out.Flag),
		Error:     jobs.Ptr(out.Error),
	})
	if err != nil {
		return fmt.Errorf("update part: %w", err)
	}
	m.logger.Debug("part processed", "job_id", job.ID, "part_id", part.ID, "order", part.Order)
	return nil
}

// markPartFailed marks the part processed with err so it no longer blocks
// the job.
func (m *Machine) markPartFailed(ctx context.Context, jobID, partID string, err error) {
	_, uerr := m.store.UpdatePart(ctx, jobID, partID, jobs.PartUpdate{
		Processed: jobs.Ptr(true),
		Error:     jobs.Ptr(err.Error()),
	})
	if uerr != nil {
		m.logger.Error("failed to mark part failed", "job_id", jobID, "part_id", partID, "error", uerr)
	}
}

// fanIn advances the job once every part of the current run is processed.
// It reads all parts fresh on each call; the conditional transition admits
// one winner.
func (m *Machine) fanIn(ctx context.Context, job *jobs.Job) error {
	st := StageProcess
	if job.PartCount == 0 {
		return nil
	}
	all, err := m.store.ListParts(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("list parts: %w", err)
	}
	parts := make([]*jobs.Part, 0, job.PartCount)
	for _, p := range all {
		if p.Order < job.PartCount {
			parts = append(parts, p)
		}
	}
	if len(parts) != job.PartCount {
		return nil
	}
	for _, p := range parts {
		if !p.Processed {
			return nil
		}
	}

	chs := make([]types.Chapter, len(parts))
	for i, p := range parts {
		chs[i] = p.Contents
	}
	ref, err := m.putChapters(ctx, job, chs)
	if err != nil {
		return err
	}
	return m.finish(ctx, st, job, jobs.JobUpdate{ChaptersObject: ref}, events.JobProcessed)
}

// HandleJobProcessed scores the extraction against the converted text.
func (m *Machine) HandleJobProcessed(ctx context.Context, in *jobs.Job) error {
	st := StageEvaluate
	job, ok, err := m.enter(ctx, st, in.UserID, in.ID)
	if !ok {
		return err
	}

	eval, err := m.evaluate(jobContext(ctx, job), job)
	if err != nil {
		return m.fail(ctx, st, job, err)
	}
	m.logger.Info("extraction evaluated", "job_id", job.ID, "score", eval.Score)
	return m.finish(ctx, st, job, jobs.JobUpdate{ExtractionEvaluation: &eval}, events.JobEvaluated)
}

func (m *Machine) evaluate(ctx context.Context, job *jobs.Job) (types.Evaluation, error) {
	if job.ConvertedFile == nil {
		return types.Evaluation{}, fmt.Errorf("%w: job has no converted file", ErrMissingData)
	}
	text, err := m.objects.Get(ctx, job.ConvertedFile.Key)
	if err != nil {
		return types.Evaluation{}, fmt.Errorf("%w: converted text: %v", ErrMissingData, err)
	}
	chs, err := m.getChapters(ctx, job)
	if err != nil {
		return types.Evaluation{}, err
	}
	if m.evaluator == nil {
		return types.Evaluation{}, errors.New("no evaluator configured")
	}
	return m.evaluator.Evaluate(ctx, chs, text)
}

// HandleJobEvaluated completes the job.
func (m *Machine) HandleJobEvaluated(ctx context.Context, in *jobs.Job) error {
	st := StageComplete
	job, ok, err := m.enter(ctx, st, in.UserID, in.ID)
	if !ok {
		return err
	}
	return m.publish(ctx, events.JobCompleted(job))
}
