// Package convert turns uploaded manuscripts into plain text. Conversion is
// asynchronous: Start returns a handle, and the converted file is collected
// with FetchResult once the converter reports completion through the
// conversion webhook or a local callback.
package convert

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/jackzampolin/bookboost/internal/jobs"
)

// ErrUnsupportedFormat is returned for source files no converter handles.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Converter starts conversions and collects their results.
type Converter interface {
	// Start begins converting the job's source file and returns a handle
	// identifying the conversion.
	Start(ctx context.Context, job *jobs.Job) (string, error)

	// FetchResult stores the converted text of a finished conversion in the
	// object store and describes it.
	FetchResult(ctx context.Context, job *jobs.Job, handle string) (*jobs.ConvertedFile, error)
}

// Callback is invoked when a local conversion finishes. It has the same
// shape as the conversion webhook.
type Callback func(ctx context.Context, userID, jobID, handle string) error

// Extension returns the lower-cased extension of name without the dot.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}

// TextName returns name with its extension replaced by .txt.
func TextName(name string) string {
	base := path.Base(name)
	return strings.TrimSuffix(base, path.Ext(base)) + ".txt"
}
