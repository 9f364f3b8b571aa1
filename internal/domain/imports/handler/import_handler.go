// Package handler exposes the import pipeline over HTTP.
package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/hearthfin/hearth/internal/domain/common"
	importsrepo "github.com/hearthfin/hearth/internal/domain/imports/repository"
	importservice "github.com/hearthfin/hearth/internal/domain/imports/service"
	"github.com/hearthfin/hearth/pkg/middleware"
)

// maxUploadBytes caps one upload request.
const maxUploadBytes = 32 << 20

// ImportHandler handles statement upload, analysis, and job status.
type ImportHandler struct {
	importSvc  *importservice.ImportService
	importRepo importsrepo.ImportRepository
	logger     *slog.Logger
}

// NewImportHandler constructs the import handler.
func NewImportHandler(importSvc *importservice.ImportService, importRepo importsrepo.ImportRepository, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{
		importSvc:  importSvc,
		importRepo: importRepo,
		logger:     logger,
	}
}

// Analyze handles POST /v1/imports/analyze: detect a file's column layout
// without importing anything.
func (h *ImportHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	householdID, ok := middleware.GetHouseholdID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	files, err := readUploads(r, 1)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.importSvc.AnalyzeFile(r.Context(), householdID, files[0])
	if err != nil {
		h.writeServiceError(w, files[0].Name, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

// Import handles POST /v1/imports: run the full pipeline over one or more
// uploaded files.
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	householdID, ok := middleware.GetHouseholdID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	files, err := readUploads(r, 0)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	batch, err := h.importSvc.ImportFiles(r.Context(), householdID, files)
	if err != nil {
		h.logger.Error("import batch failed", "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, "import failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, batch)
}

// GetJob handles GET /v1/imports/jobs/{id}.
func (h *ImportHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	householdID, ok := middleware.GetHouseholdID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := h.importRepo.GetJobByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.Error("failed to load import job", "job_id", id, "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	if job.HouseholdID != householdID {
		middleware.WriteError(w, http.StatusNotFound, "job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

func (h *ImportHandler) writeServiceError(w http.ResponseWriter, file string, err error) {
	switch {
	case errors.Is(err, common.ErrEmptyFile):
		middleware.WriteError(w, http.StatusBadRequest, file+": file is empty")
	case errors.Is(err, common.ErrUnknownLayout):
		middleware.WriteError(w, http.StatusUnprocessableEntity, file+": could not determine column layout")
	default:
		h.logger.Error("analyze failed", "file", file, "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, "analyze failed")
	}
}

// readUploads collects form files from the "files" field. limit of zero
// means any number; a positive limit takes the first n.
func readUploads(r *http.Request, limit int) ([]importservice.FileInput, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, errors.New("expected multipart form upload")
	}

	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = r.MultipartForm.File["files"]
	}
	if len(headers) == 0 {
		return nil, errors.New("no files provided; use the \"files\" form field")
	}
	if limit > 0 && len(headers) > limit {
		headers = headers[:limit]
	}

	files := make([]importservice.FileInput, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, errors.New("failed to open upload " + fh.Filename)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, errors.New("failed to read upload " + fh.Filename)
		}
		files = append(files, importservice.FileInput{Name: fh.Filename, Data: data})
	}
	return files, nil
}
