package api

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-content-migrate/internal/logging"
	"github.com/tendant/simple-content-migrate/pkg/migrate"
	"github.com/tendant/simple-content-migrate/pkg/migrate/intake"
	"github.com/tendant/simple-content-migrate/pkg/migrate/runner"
)

// DefaultMaxUploadBytes bounds a multipart upload request.
const DefaultMaxUploadBytes = 32 << 20

// MigrationHandler serves source uploads and migration runs
type MigrationHandler struct {
	intake         *intake.Service
	runner         *runner.Runner
	store          migrate.EntityStore
	maxUploadBytes int64
}

// NewMigrationHandler creates a MigrationHandler. A non-positive
// maxUploadBytes selects DefaultMaxUploadBytes.
func NewMigrationHandler(intakeService *intake.Service, migrationRunner *runner.Runner, store migrate.EntityStore, maxUploadBytes int64) *MigrationHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &MigrationHandler{
		intake:         intakeService,
		runner:         migrationRunner,
		store:          store,
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes returns the router for migration endpoints
func (h *MigrationHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListMigrations)
	r.Post("/upload", h.Upload)
	r.Post("/{migration_id}/run", h.RunMigration)
	return r
}

// UploadResponse lists the files stored by an upload request
type UploadResponse struct {
	Uploads []*intake.UploadResult `json:"uploads"`
}

// MigrationInfo describes a registered migration and its source
type MigrationInfo struct {
	ID        string     `json:"id"`
	Label     string     `json:"label"`
	Field     string     `json:"upload_field,omitempty"`
	Source    string     `json:"source,omitempty"`
	Size      int64      `json:"size,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// ErrorResponse is the JSON body of failed requests
type ErrorResponse struct {
	Error string `json:"error"`
}

func renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: message})
}

// Upload stores the article and category CSV files of a multipart form
func (h *MigrationHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			logging.FromContext(r.Context()).Error("Upload too large", "limit", h.maxUploadBytes, "error", err)
			renderError(w, r, http.StatusRequestEntityTooLarge, "upload exceeds "+strconv.FormatInt(h.maxUploadBytes, 10)+" bytes")
			return
		}
		logging.FromContext(r.Context()).Error("Failed to parse multipart form", "error", err)
		renderError(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	// Every file is checked before any is stored so a rejected file leaves
	// the existing sources untouched.
	type part struct {
		field string
		file  multipart.File
		req   intake.UploadRequest
	}
	var parts []part
	defer func() {
		for _, p := range parts {
			p.file.Close()
		}
	}()
	for _, target := range h.intake.Targets() {
		file, header, err := r.FormFile(target.Field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			logging.FromContext(r.Context()).Error("Failed to read uploaded file", "field", target.Field, "error", err)
			renderError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		p := part{field: target.Field, file: file, req: intake.UploadRequest{
			MigrationID: target.MigrationID,
			FileName:    header.Filename,
			Reader:      file,
		}}
		parts = append(parts, p)
		if err := h.intake.Validate(p.req); err != nil {
			logging.FromContext(r.Context()).Error("Rejected uploaded file", "field", target.Field, "file_name", header.Filename, "error", err)
			renderError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}

	var uploads []*intake.UploadResult
	for _, p := range parts {
		result, err := h.intake.Upload(r.Context(), p.req)
		if err != nil {
			logging.FromContext(r.Context()).Error("Failed to store uploaded file", "field", p.field, "file_name", p.req.FileName, "error", err)
			renderError(w, r, http.StatusInternalServerError, err.Error())
			return
		}
		uploads = append(uploads, result)
	}

	if len(uploads) == 0 {
		renderError(w, r, http.StatusBadRequest, "no files uploaded")
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, UploadResponse{Uploads: uploads})
}

// ListMigrations lists registered migrations with their source paths
func (h *MigrationHandler) ListMigrations(w http.ResponseWriter, r *http.Request) {
	sources, err := h.store.ListMigrationSources(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("Failed to list migration sources", "error", err)
		renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	byID := make(map[string]*migrate.MigrationSource, len(sources))
	for _, s := range sources {
		byID[s.ID] = s
	}

	infos := make([]MigrationInfo, 0, len(h.runner.Migrations()))
	for _, id := range h.runner.Migrations() {
		m, _ := h.runner.Migration(id)
		info := MigrationInfo{ID: id, Label: m.Label}
		if target, ok := h.intake.Target(id); ok {
			info.Field = target.Field
		}
		if s, ok := byID[id]; ok {
			info.Source = s.Path
			updated := s.UpdatedAt
			info.UpdatedAt = &updated
			if meta, err := h.intake.Stat(r.Context(), s.Path); err == nil {
				info.Size = meta.Size
			} else {
				logging.FromContext(r.Context()).Warn("Failed to stat migration source", "migration", id, "source", s.Path, "error", err)
			}
		}
		infos = append(infos, info)
	}

	render.JSON(w, r, infos)
}

// RunMigration runs a migration against its uploaded source. Row details are
// included when the "rows" query parameter is true.
func (h *MigrationHandler) RunMigration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "migration_id")

	result, err := h.runner.RunMigration(r.Context(), id)
	if err != nil {
		logging.FromContext(r.Context()).Error("Failed to run migration", "migration", id, "error", err)
		switch {
		case errors.Is(err, runner.ErrUnknownMigration):
			renderError(w, r, http.StatusNotFound, err.Error())
		case errors.Is(err, migrate.ErrMigrationSourceNotFound):
			renderError(w, r, http.StatusConflict, "no source uploaded for "+id)
		default:
			renderError(w, r, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if includeRows, _ := strconv.ParseBool(r.URL.Query().Get("rows")); !includeRows {
		result.Rows = nil
	}
	render.JSON(w, r, result)
}

// Health reports service liveness
func Health(environment string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{
			"status":      "healthy",
			"environment": environment,
		})
	}
}
