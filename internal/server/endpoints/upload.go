package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/slate/internal/api"
	"github.com/jackzampolin/slate/internal/jobs"
	"github.com/jackzampolin/slate/internal/parser"
	"github.com/jackzampolin/slate/internal/svcctx"
)

// UploadExtensions are the file extensions accepted by the upload endpoint.
var UploadExtensions = []string{".fountain", ".fdx", ".pdf", ".docx", ".txt", ".md"}

// multipartOverhead is allowed on top of the file size limit for the form
// boundaries and headers.
const multipartOverhead = 1 << 20

// UploadResponse is returned after a script is parsed.
type UploadResponse struct {
	ScriptID    string    `json:"script_id"`
	JobID       string    `json:"job_id"`
	Filename    string    `json:"filename"`
	Format      string    `json:"format"`
	ScenesCount int       `json:"scenes_count"`
	Pages       int       `json:"pages"`
	Language    string    `json:"language"`
	UploadTime  time.Time `json:"upload_time"`
}

// UploadEndpoint handles POST /api/v1/upload with a multipart file.
type UploadEndpoint struct{}

var _ api.Endpoint = (*UploadEndpoint)(nil)

func (e *UploadEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/v1/upload", e.handler
}

func (e *UploadEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Upload a script
//	@Description	Parse a script into scenes and create an analysis job
//	@Tags			scripts
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"Script file"
//	@Success		201		{object}	UploadResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		413		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/v1/upload [post]
func (e *UploadEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg := svcctx.ConfigFrom(ctx)
	logger := svcctx.LoggerFrom(ctx)
	limit := cfg.MaxUploadBytes()

	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	file, fh, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeTooLarge(w, cfg.Server.MaxUploadMB)
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("missing file: %v", err))
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	filename := filepath.Base(fh.Filename)
	if !allowedExtension(filename) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "unsupported_format",
			Message:          fmt.Sprintf("unsupported file type %q", filepath.Ext(filename)),
			SupportedFormats: UploadExtensions,
		})
		return
	}
	if fh.Size > limit {
		writeTooLarge(w, cfg.Server.MaxUploadMB)
		return
	}

	content, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read file: %v", err))
		return
	}
	if int64(len(content)) > limit {
		writeTooLarge(w, cfg.Server.MaxUploadMB)
		return
	}

	detector := parser.NewDetector(parser.DetectorConfig{
		LanguageTie: cfg.Analysis.LanguageTie,
		Logger:      logger,
	})
	doc, err := detector.Parse(ctx, filename, content)
	if err != nil {
		writeParseError(w, err)
		return
	}

	store := svcctx.StoreFrom(ctx)
	job := jobs.New(doc)
	if err := store.Put(ctx, job); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to store job: %v", err))
		return
	}

	logger.Info("script uploaded",
		"job_id", job.ID,
		"filename", filename,
		"format", doc.Format,
		"scenes", len(doc.Scenes),
	)

	writeJSON(w, http.StatusCreated, UploadResponse{
		ScriptID:    job.ID,
		JobID:       job.ID,
		Filename:    job.Filename,
		Format:      string(job.Format),
		ScenesCount: len(job.Scenes),
		Pages:       job.Pages,
		Language:    job.DetectedLanguage,
		UploadTime:  job.CreatedAt,
	})
}

func allowedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range UploadExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func writeTooLarge(w http.ResponseWriter, maxMB int) {
	writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
		Error:   "file_too_large",
		Message: fmt.Sprintf("maximum upload size is %d MB", maxMB),
	})
}

func writeParseError(w http.ResponseWriter, err error) {
	var unsupported *parser.UnsupportedFormatError
	if errors.As(err, &unsupported) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "unsupported_format",
			Message:          err.Error(),
			SupportedFormats: unsupported.Supported,
		})
		return
	}
	var parseErr *parser.ParsingError
	if errors.As(err, &parseErr) {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "parsing_error",
			Message: err.Error(),
			Format:  string(parseErr.Format),
		})
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func (e *UploadEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a script and split it into scenes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp UploadResponse
			if err := client.PostFile(cmd.Context(), "/api/v1/upload", "file", args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
