package convert

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/bookboost/internal/jobs"
	"github.com/jackzampolin/bookboost/internal/objstore"
)

// LocalConfig configures a LocalConverter.
type LocalConfig struct {
	Objects  *objstore.Store
	Callback Callback
	Timeout  time.Duration // per conversion (default 5m)
	Logger   *slog.Logger
}

type localResult struct {
	file *jobs.ConvertedFile
	err  error
}

// LocalConverter converts source objects in process. Each conversion runs in
// its own goroutine and reports completion through the callback, as the
// remote service does through the webhook.
type LocalConverter struct {
	objects *objstore.Store
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	callback Callback
	results  map[string]localResult
	wg       sync.WaitGroup
}

// NewLocal creates a LocalConverter.
func NewLocal(cfg LocalConfig) *LocalConverter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &LocalConverter{
		objects:  cfg.Objects,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
		callback: cfg.Callback,
		results:  make(map[string]localResult),
	}
}

// SetCallback sets the completion callback. The pipeline is built after the
// converter, so the callback is usually wired late.
func (c *LocalConverter) SetCallback(cb Callback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callback = cb
}

// Start validates the source and launches the conversion.
func (c *LocalConverter) Start(ctx context.Context, job *jobs.Job) (string, error) {
	if job.File == nil || job.File.Key == "" {
		return "", fmt.Errorf("job %s has no source file", job.ID)
	}
	ext := Extension(job.File.FileName)
	if !slices.Contains(LocalFormats, ext) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, job.File.FileName)
	}

	handle := "local-" + uuid.NewString()
	snapshot := job.Clone()
	bg := context.WithoutCancel(ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		cctx, cancel := context.WithTimeout(bg, c.timeout)
		defer cancel()

		file, err := c.convert(cctx, snapshot, ext)
		c.mu.Lock()
		c.results[handle] = localResult{file: file, err: err}
		cb := c.callback
		c.mu.Unlock()

		if err != nil {
			c.logger.Warn("local conversion failed", "job_id", snapshot.ID, "handle", handle, "error", err)
		}
		if cb == nil {
			return
		}
		if err := cb(cctx, snapshot.UserID, snapshot.ID, handle); err != nil {
			c.logger.Error("conversion callback failed", "job_id", snapshot.ID, "handle", handle, "error", err)
		}
	}()

	c.logger.Info("conversion started", "job_id", job.ID, "user_id", job.UserID, "handle", handle, "ext", ext)
	return handle, nil
}

func (c *LocalConverter) convert(ctx context.Context, job *jobs.Job, ext string) (*jobs.ConvertedFile, error) {
	data, err := c.objects.GetBytes(ctx, job.File.Key)
	if err != nil {
		return nil, err
	}
	doc, err := ExtractText(data, ext)
	if err != nil {
		return nil, err
	}

	name := TextName(job.File.FileName)
	obj, err := c.objects.Put(ctx, objstore.JobKey(job.UserID, job.ID, name), []byte(doc.Text))
	if err != nil {
		return nil, err
	}
	return &jobs.ConvertedFile{Key: obj.Key, FileName: name, FileSize: obj.Size, PageCount: doc.PageCount}, nil
}

// FetchResult returns the outcome of a finished conversion. Results stay
// available so a redelivered callback sees the same answer.
func (c *LocalConverter) FetchResult(_ context.Context, job *jobs.Job, handle string) (*jobs.ConvertedFile, error) {
	c.mu.Lock()
	res, ok := c.results[handle]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("conversion %s for job %s is unknown or still running", handle, job.ID)
	}
	if res.err != nil {
		return nil, res.err
	}
	f := *res.file
	return &f, nil
}

// Wait blocks until every started conversion has finished and its callback returned.
func (c *LocalConverter) Wait() {
	c.wg.Wait()
}

var _ Converter = (*LocalConverter)(nil)
