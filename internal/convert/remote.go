package convert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/jackzampolin/bookboost/internal/jobs"
	"github.com/jackzampolin/bookboost/internal/objstore"
)

// DefaultRemoteURL is the conversion service used when none is configured.
const DefaultRemoteURL = "https://v2.convertapi.com"

// errNotReady marks a conversion that is still running.
var errNotReady = errors.New("conversion not finished")

// RemoteConfig configures a RemoteConverter.
type RemoteConfig struct {
	BaseURL         string
	APIKey          string
	CallbackBaseURL string // public base URL of this server, for the webhook
	Objects         *objstore.Store
	HTTPClient      *http.Client
	PollAttempts    int           // status polls before giving up (default 10)
	PollDelay       time.Duration // delay between polls (default 2s)
	Logger          *slog.Logger
}

// RemoteConverter drives an external asynchronous conversion API. The
// service calls the webhook when done; FetchResult then downloads the text.
type RemoteConverter struct {
	cfg    RemoteConfig
	client *http.Client
	logger *slog.Logger
}

// NewRemote creates a RemoteConverter.
func NewRemote(cfg RemoteConfig) *RemoteConverter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultRemoteURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	cfg.CallbackBaseURL = strings.TrimSuffix(cfg.CallbackBaseURL, "/")
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = 10
	}
	if cfg.PollDelay <= 0 {
		cfg.PollDelay = 2 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteConverter{cfg: cfg, client: client, logger: logger}
}

// WebhookURL returns the callback address for a job.
func (c *RemoteConverter) WebhookURL(userID, jobID string) string {
	return fmt.Sprintf("%s/api/webhooks/conversion/%s/%s", c.cfg.CallbackBaseURL, url.PathEscape(userID), url.PathEscape(jobID))
}

type startResponse struct {
	JobID string `json:"JobId"`
}

// Start submits the job's source file URL for conversion to text.
func (c *RemoteConverter) Start(ctx context.Context, job *jobs.Job) (string, error) {
	if job.File == nil || job.File.URL == "" {
		return "", fmt.Errorf("job %s has no source file URL", job.ID)
	}
	ext := Extension(job.File.FileName)
	if ext == "" {
		return "", fmt.Errorf("%w: %q has no extension", ErrUnsupportedFormat, job.File.FileName)
	}

	q := url.Values{}
	q.Set("Secret", c.cfg.APIKey)
	q.Set("StoreFile", "true")
	q.Set("RemoveHeadersFooters", "true")
	q.Set("File", job.File.URL)
	q.Set("WebHook", c.WebhookURL(job.UserID, job.ID))
	q.Set("Timeout", "1200")
	endpoint := fmt.Sprintf("%s/async/convert/%s/to/txt?%s", c.cfg.BaseURL, url.PathEscape(ext), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("conversion request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("failed to start document conversion (status %d): %s", resp.StatusCode, body)
	}

	var out startResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode conversion response: %w", err)
	}
	if out.JobID == "" {
		return "", errors.New("conversion response has no JobId")
	}
	c.logger.Info("conversion started", "job_id", job.ID, "user_id", job.UserID, "handle", out.JobID, "ext", ext)
	return out.JobID, nil
}

// RemoteFile is one output file of a finished conversion.
type RemoteFile struct {
	FileName string `json:"FileName"`
	FileExt  string `json:"FileExt"`
	FileSize int64  `json:"FileSize"`
	URL      string `json:"Url"`
}

type statusResponse struct {
	Files []RemoteFile `json:"Files"`
}

// Status polls the conversion until it reports output files.
func (c *RemoteConverter) Status(ctx context.Context, handle string) ([]RemoteFile, error) {
	endpoint := fmt.Sprintf("%s/async/job/%s", c.cfg.BaseURL, url.PathEscape(handle))

	var files []RemoteFile
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := c.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusAccepted:
				return errNotReady
			case resp.StatusCode >= 500:
				return fmt.Errorf("conversion status: server error %d", resp.StatusCode)
			case resp.StatusCode != http.StatusOK:
				return retry.Unrecoverable(fmt.Errorf("failed to get document conversion status (status %d)", resp.StatusCode))
			}

			var out statusResponse
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return retry.Unrecoverable(fmt.Errorf("failed to decode conversion status: %w", err))
			}
			if len(out.Files) == 0 {
				return errNotReady
			}
			files = out.Files
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.cfg.PollAttempts)),
		retry.Delay(c.cfg.PollDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return files, nil
}

// FetchResult downloads the first output file into the job's namespace.
func (c *RemoteConverter) FetchResult(ctx context.Context, job *jobs.Job, handle string) (*jobs.ConvertedFile, error) {
	files, err := c.Status(ctx, handle)
	if err != nil {
		return nil, err
	}
	file := files[0]

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download converted file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download converted file: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read converted file: %w", err)
	}

	name := file.FileName
	if name == "" {
		name = TextName(job.File.FileName)
	}
	obj, err := c.cfg.Objects.Put(ctx, objstore.JobKey(job.UserID, job.ID, name), []byte(decodePlain(data)))
	if err != nil {
		return nil, err
	}

	size := file.FileSize
	if size == 0 {
		size = obj.Size
	}
	return &jobs.ConvertedFile{Key: obj.Key, FileName: name, FileSize: size}, nil
}

var _ Converter = (*RemoteConverter)(nil)
