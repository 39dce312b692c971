package endpoints

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/bookboost/internal/api"
	"github.com/jackzampolin/bookboost/internal/jobs"
	"github.com/jackzampolin/bookboost/internal/objstore"
	"github.com/jackzampolin/bookboost/internal/pipeline"
	"github.com/jackzampolin/bookboost/internal/svcctx"
)

// inlineFileName names manuscripts submitted as text.
const inlineFileName = "manuscript.txt"

// maxUploadSize bounds multipart manuscript uploads.
const maxUploadSize = 200 << 20

// SubmitJobRequest is the request body for submitting a job. Exactly one of
// FileKey, FileURL or Text identifies the manuscript.
type SubmitJobRequest struct {
	UserID   string   `json:"user_id"`
	FileKey  string   `json:"file_key,omitempty"`  // object already in the store
	FileURL  string   `json:"file_url,omitempty"`  // fetched by the remote converter
	FileName string   `json:"file_name,omitempty"` // required with file_key or file_url
	Text     string   `json:"text,omitempty"`      // inline manuscript
	Titles   []string `json:"titles,omitempty"`    // known chapter titles
}

// SubmitJobEndpoint handles POST /api/jobs.
type SubmitJobEndpoint struct{}

func (e *SubmitJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/jobs", e.handler
}

func (e *SubmitJobEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Submit a job
//	@Description	Create an extraction job for a stored object, a URL or inline text
//	@Tags			jobs
//	@Accept			json
//	@Produce		json
//	@Param			request	body		SubmitJobRequest	true	"Job request"
//	@Success		201		{object}	jobs.Job
//	@Failure		400		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/jobs [post]
func (e *SubmitJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req SubmitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	svc := svcctx.ServicesFrom(r.Context())
	id := uuid.NewString()
	file := jobs.FileRef{Key: req.FileKey, URL: req.FileURL, FileName: req.FileName}

	switch {
	case req.Text != "":
		key := objstore.JobKey(req.UserID, id, inlineFileName)
		if _, err := svc.Objects.Put(r.Context(), key, []byte(req.Text)); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		file = jobs.FileRef{Key: key, FileName: inlineFileName, URL: objectURL(svc.PublicURL, key)}
	case req.FileKey != "":
		ok, err := svc.Objects.Exists(r.Context(), req.FileKey)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("object %q not found", req.FileKey))
			return
		}
		if file.FileName == "" {
			file.FileName = path.Base(req.FileKey)
		}
		if file.URL == "" {
			file.URL = objectURL(svc.PublicURL, req.FileKey)
		}
	case req.FileURL != "":
		if file.FileName == "" {
			writeError(w, http.StatusBadRequest, "file_name is required with file_url")
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "one of file_key, file_url or text is required")
		return
	}

	job, err := svc.Machine.Submit(r.Context(), pipeline.SubmitRequest{
		ID:     id,
		UserID: req.UserID,
		File:   file,
		Titles: req.Titles,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (e *SubmitJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	var userID, fileKey, fileURL, fileName, textFile string
	var titles []string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a job for a stored object, a URL or a local text file",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := SubmitJobRequest{
				UserID:   userID,
				FileKey:  fileKey,
				FileURL:  fileURL,
				FileName: fileName,
				Titles:   titles,
			}
			if textFile != "" {
				data, err := os.ReadFile(textFile)
				if err != nil {
					return err
				}
				req.Text = string(data)
			}
			client := api.NewClient(getServerURL())
			var job jobs.Job
			if err := client.Post(cmd.Context(), "/api/jobs", req, &job); err != nil {
				return err
			}
			return api.Output(job)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID (required)")
	cmd.Flags().StringVar(&fileKey, "key", "", "Object store key of the manuscript")
	cmd.Flags().StringVar(&fileURL, "url", "", "Public URL of the manuscript")
	cmd.Flags().StringVar(&fileName, "name", "", "File name, used for the format")
	cmd.Flags().StringVar(&textFile, "text", "", "Local text file submitted inline")
	cmd.Flags().StringSliceVar(&titles, "title", nil, "Known chapter title (repeatable)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// UploadJobEndpoint handles POST /api/jobs/upload with a multipart manuscript.
type UploadJobEndpoint struct{}

var _ api.Endpoint = (*UploadJobEndpoint)(nil)

func (e *UploadJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/jobs/upload", e.handler
}

func (e *UploadJobEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Upload a manuscript
//	@Description	Store an uploaded manuscript and submit a job for it
//	@Tags			jobs
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"Manuscript (docx, pdf, txt, md)"
//	@Param			user_id	formData	string	true	"User ID"
//	@Param			titles	formData	string	false	"Known chapter titles, one per line"
//	@Success		201		{object}	jobs.Job
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/jobs/upload [post]
func (e *UploadJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	userID := r.FormValue("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	src, fh, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read upload: %v", err))
		return
	}

	svc := svcctx.ServicesFrom(r.Context())
	id := uuid.NewString()
	name := filepath.Base(fh.Filename)
	key := objstore.JobKey(userID, id, name)
	if _, err := svc.Objects.Put(r.Context(), key, data); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	job, err := svc.Machine.Submit(r.Context(), pipeline.SubmitRequest{
		ID:     id,
		UserID: userID,
		File:   jobs.FileRef{Key: key, FileName: name, URL: objectURL(svc.PublicURL, key)},
		Titles: splitTitles(r.FormValue("titles")),
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (e *UploadJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	var userID string
	var titles []string
	cmd := &cobra.Command{
		Use:   "upload <manuscript>",
		Short: "Upload a manuscript and submit a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			fields := map[string]string{"user_id": userID}
			if len(titles) > 0 {
				fields["titles"] = strings.Join(titles, "\n")
			}
			client := api.NewClient(getServerURL())
			var job jobs.Job
			if err := client.Upload(cmd.Context(), "/api/jobs/upload", "file", filepath.Base(args[0]), f, fields, &job); err != nil {
				return err
			}
			return api.Output(job)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID (required)")
	cmd.Flags().StringSliceVar(&titles, "title", nil, "Known chapter title (repeatable)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// splitTitles reads one title per non-blank line.
func splitTitles(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// objectURL is where the object endpoint serves key, or "" without a
// public address.
func objectURL(base, key string) string {
	if base == "" {
		return ""
	}
	return strings.TrimSuffix(base, "/") + "/api/objects/" + key
}
