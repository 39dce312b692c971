package endpoints

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/bookboost/internal/api"
	"github.com/jackzampolin/bookboost/internal/svcctx"
)

// GetObjectEndpoint handles GET /api/objects/{key...}. The remote converter
// downloads uploaded manuscripts from here.
type GetObjectEndpoint struct{}

func (e *GetObjectEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/objects/{key...}", e.handler
}

func (e *GetObjectEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Download a stored object
//	@Tags		objects
//	@Produce	octet-stream
//	@Param		key	path		string	true	"Object key"
//	@Success	200	{file}		binary
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/objects/{key} [get]
func (e *GetObjectEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	data, err := svcctx.ObjectsFrom(r.Context()).GetBytes(r.Context(), key)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	ct := mime.TypeByExtension(path.Ext(key))
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(key)))
	w.Write(data)
}

func (e *GetObjectEndpoint) Command(getServerURL func() string) *cobra.Command {
	var outputFile string
	cmd := &cobra.Command{
		Use:   "object <key>",
		Short: "Download a stored object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, getServerURL()+"/api/objects/"+args[0], nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return &api.StatusError{Code: resp.StatusCode, Message: resp.Status}
			}

			out := os.Stdout
			if outputFile != "" {
				f, err := os.Create(outputFile)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			_, err = out.ReadFrom(resp.Body)
			return err
		},
	}
	cmd.Flags().StringVarP(&outputFile, "file", "f", "", "Write to file instead of stdout")
	return cmd
}
