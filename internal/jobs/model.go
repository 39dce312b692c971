// Package jobs holds the Job and Part records of the extraction pipeline and
// the stores that persist them.
package jobs

import (
	"time"

	"github.com/jackzampolin/bookboost/internal/types"
)

// Status is the pipeline state of a Job.
type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusConverting Status = "CONVERTING"
	StatusConverted  Status = "CONVERTED"
	StatusExtracting Status = "EXTRACTING"
	StatusExtracted  Status = "EXTRACTED"
	StatusProcessing Status = "PROCESSING"
	StatusProcessed  Status = "PROCESSED"
	StatusEvaluating Status = "EVALUATING"
	StatusEvaluated  Status = "EVALUATED"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// pipelineOrder lists the non-failure statuses in transition order.
var pipelineOrder = []Status{
	StatusCreated,
	StatusConverting,
	StatusConverted,
	StatusExtracting,
	StatusExtracted,
	StatusProcessing,
	StatusProcessed,
	StatusEvaluating,
	StatusEvaluated,
	StatusCompleted,
}

// Rank returns the position of s in the pipeline, or -1 for FAILED and
// unknown statuses.
func (s Status) Rank() int {
	for i, st := range pipelineOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusFailed || s.Rank() >= 0
}

// After reports whether s is strictly later in the pipeline than other.
// FAILED is not after anything.
func (s Status) After(other Status) bool {
	return s.Rank() > other.Rank() && other.Rank() >= 0
}

// FileRef points at the uploaded source document.
type FileRef struct {
	Key      string `json:"key"`
	FileName string `json:"file_name"`
	URL      string `json:"url,omitempty"`
}

// ConvertedFile points at the plain text rendition of the source.
type ConvertedFile struct {
	Key       string `json:"key"`
	FileName  string `json:"file_name"`
	FileSize  int64  `json:"file_size"`
	PageCount int    `json:"page_count,omitempty"`
}

// ObjectRef points at a stored object.
type ObjectRef struct {
	Key      string `json:"key"`
	Location string `json:"location"`
	Size     int64  `json:"size"`
}

// Job is one manuscript extraction request.
type Job struct {
	ID                   string            `json:"id"`
	UserID               string            `json:"user_id"`
	Status               Status            `json:"status"`
	File                 *FileRef          `json:"file,omitempty"`
	ConvertedFile        *ConvertedFile    `json:"converted_file,omitempty"`
	ConversionJobID      string            `json:"conversion_job_id,omitempty"`
	ChaptersObject       *ObjectRef        `json:"chapters_object,omitempty"`
	ChapterTitles        []string          `json:"chapter_titles,omitempty"`
	// PartCount is the number of parts of the current processing run. Zero
	// until every part has been created.
	PartCount            int               `json:"part_count,omitempty"`
	ExtractionEvaluation *types.Evaluation `json:"extraction_evaluation,omitempty"`
	LastError            string            `json:"last_error,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// Clone returns a deep copy of j.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.File != nil {
		f := *j.File
		c.File = &f
	}
	if j.ConvertedFile != nil {
		f := *j.ConvertedFile
		c.ConvertedFile = &f
	}
	if j.ChaptersObject != nil {
		o := *j.ChaptersObject
		c.ChaptersObject = &o
	}
	if j.ExtractionEvaluation != nil {
		e := *j.ExtractionEvaluation
		c.ExtractionEvaluation = &e
	}
	if j.ChapterTitles != nil {
		c.ChapterTitles = append([]string(nil), j.ChapterTitles...)
	}
	return &c
}

// Part is one chapter-sized unit of work within a Job.
type Part struct {
	ID        string        `json:"id"`
	JobID     string        `json:"job_id"`
	Order     int           `json:"order"`
	Contents  types.Chapter `json:"contents"`
	Processed bool          `json:"processed"`
	Flag      bool          `json:"flag"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Clone returns a copy of p.
func (p *Part) Clone() *Part {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// JobUpdate lists the job fields to change. Nil fields are left alone.
type JobUpdate struct {
	Status               *Status
	ConvertedFile        *ConvertedFile
	ConversionJobID      *string
	ChaptersObject       *ObjectRef
	ChapterTitles        []string
	PartCount            *int
	ExtractionEvaluation *types.Evaluation
	LastError            *string
}

// Apply writes the set fields of u into j.
func (u JobUpdate) Apply(j *Job) {
	if u.Status != nil {
		j.Status = *u.Status
	}
	if u.ConvertedFile != nil {
		f := *u.ConvertedFile
		j.ConvertedFile = &f
	}
	if u.ConversionJobID != nil {
		j.ConversionJobID = *u.ConversionJobID
	}
	if u.ChaptersObject != nil {
		o := *u.ChaptersObject
		j.ChaptersObject = &o
	}
	if u.ChapterTitles != nil {
		j.ChapterTitles = append([]string(nil), u.ChapterTitles...)
	}
	if u.PartCount != nil {
		j.PartCount = *u.PartCount
	}
	if u.ExtractionEvaluation != nil {
		e := *u.ExtractionEvaluation
		j.ExtractionEvaluation = &e
	}
	if u.LastError != nil {
		j.LastError = *u.LastError
	}
}

// PartUpdate lists the part fields to change. Nil fields are left alone.
type PartUpdate struct {
	Contents  *types.Chapter
	Processed *bool
	Flag      *bool
	Error     *string
}

// Apply writes the set fields of u into p. Processed never goes back to false.
func (u PartUpdate) Apply(p *Part) {
	if u.Contents != nil {
		p.Contents = *u.Contents
	}
	if u.Processed != nil && *u.Processed {
		p.Processed = true
	}
	if u.Flag != nil {
		p.Flag = *u.Flag
	}
	if u.Error != nil {
		p.Error = *u.Error
	}
}

// Ptr returns a pointer to v, for building updates.
func Ptr[T any](v T) *T {
	return &v
}
