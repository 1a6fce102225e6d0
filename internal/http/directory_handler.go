package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/example/event-roster/internal/application"
	"github.com/example/event-roster/internal/tabular"
)

const maxWorkbookBytes = 32 << 20

type directoryService interface {
	Get(ctx context.Context, phone string) (application.DirectoryRecord, error)
	Upsert(ctx context.Context, phone string, fields map[string]any) (application.DirectoryRecord, error)
	Delete(ctx context.Context, phone string) error
	List(ctx context.Context, filter application.DirectoryFilter) ([]application.DirectoryRecord, error)
}

type importService interface {
	ImportLines(ctx context.Context, rows []application.Row, lines []int) (application.ImportReport, error)
}

// DirectoryHandler serves the user master directory endpoints.
type DirectoryHandler struct {
	directory directoryService
	importer  importService
	responder responder
}

func NewDirectoryHandler(directory directoryService, importer importService, logger *slog.Logger) *DirectoryHandler {
	return &DirectoryHandler{directory: directory, importer: importer, responder: newResponder(logger)}
}

func (h *DirectoryHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return h.responder.handlerLogger(ctx, "DirectoryHandler", operation, attrs...)
}

func (h *DirectoryHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.directory == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	records, err := h.directory.List(r.Context(), application.DirectoryFilter{
		Name:     query.Get("name"),
		Phone:    query.Get("phone"),
		Category: query.Get("category"),
	})
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "directory list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]directoryRecordDTO, 0, len(records))
	for _, record := range records {
		out = append(out, toDirectoryRecordDTO(record))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, directoryListResponse{Records: out})
}

func (h *DirectoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.directory == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	phone, ok := PhoneFromContext(r.Context())
	if !ok || strings.TrimSpace(phone) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPhone)
		return
	}

	record, err := h.directory.Get(r.Context(), phone)
	if err != nil {
		h.log(r.Context(), "Get", "phone", phone).ErrorContext(r.Context(), "directory lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toDirectoryRecordDTO(record))
}

// Put replaces the directory record stored under the path phone.
func (h *DirectoryHandler) Put(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.directory == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	phone, ok := PhoneFromContext(r.Context())
	if !ok || strings.TrimSpace(phone) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPhone)
		return
	}

	var req directoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Put", "phone", phone, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode directory record", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Put", "phone", phone)
	record, err := h.directory.Upsert(r.Context(), phone, req.Fields)
	if err != nil {
		logger.ErrorContext(r.Context(), "directory upsert failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "directory record stored")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toDirectoryRecordDTO(record))
}

func (h *DirectoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.directory == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	phone, ok := PhoneFromContext(r.Context())
	if !ok || strings.TrimSpace(phone) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPhone)
		return
	}

	if err := h.directory.Delete(r.Context(), phone); err != nil {
		h.log(r.Context(), "Delete", "phone", phone).ErrorContext(r.Context(), "directory delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Import loads rows into the directory. The body is either a multipart form
// carrying an xlsx workbook in the "file" field or JSON of the form
// {"rows": [{...}]}.
func (h *DirectoryHandler) Import(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.importer == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "Import")
	rows, lines, status, err := readImportRows(r)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to read import rows", "error", err, "error_kind", "bad_request")
		h.responder.writeError(r.Context(), w, status, err)
		return
	}

	report, err := h.importer.ImportLines(r.Context(), rows, lines)
	if err != nil {
		logger.ErrorContext(r.Context(), "directory import failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "directory imported", "imported", report.Imported, "failed", len(report.Failed))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toImportReportDTO(report))
}

// readImportRows decodes the upload. Workbook rows come with their sheet
// lines; JSON rows are numbered by position.
func readImportRows(r *http.Request) ([]application.Row, []int, int, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxWorkbookBytes); err != nil {
			return nil, nil, http.StatusBadRequest, errMissingWorkbook
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, nil, http.StatusBadRequest, errMissingWorkbook
		}
		defer file.Close()

		grid, lines, err := tabular.ReadWorkbookLines(file)
		if err != nil {
			if errors.Is(err, tabular.ErrNoSheet) {
				return nil, nil, http.StatusUnprocessableEntity, errors.New("The workbook has no sheets.")
			}
			return nil, nil, http.StatusBadRequest, errors.New("The uploaded file is not a readable xlsx workbook.")
		}
		rows := make([]application.Row, 0, len(grid))
		for _, values := range grid {
			rows = append(rows, application.Row(values))
		}
		return rows, lines, 0, nil
	}

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, nil, http.StatusBadRequest, errBadRequestBody
	}
	rows := make([]application.Row, 0, len(req.Rows))
	for _, values := range req.Rows {
		rows = append(rows, application.Row(values))
	}
	return rows, nil, 0, nil
}

type directoryRequest struct {
	Fields map[string]any `json:"fields"`
}

type directoryRecordDTO struct {
	Phone      string         `json:"phone"`
	Name       string         `json:"name"`
	Code       string         `json:"code"`
	Category   string         `json:"category"`
	Attributes map[string]any `json:"attributes"`
}

type directoryListResponse struct {
	Records []directoryRecordDTO `json:"records"`
}

type importRequest struct {
	Rows []map[string]any `json:"rows"`
}

type importFailureDTO struct {
	Row    int    `json:"row"`
	Phone  string `json:"phone,omitempty"`
	Reason string `json:"reason"`
}

type importReportDTO struct {
	Total    int                `json:"total"`
	Imported int                `json:"imported"`
	Failed   []importFailureDTO `json:"failed"`
}

func toDirectoryRecordDTO(record application.DirectoryRecord) directoryRecordDTO {
	attrs := record.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	return directoryRecordDTO{
		Phone:      record.Phone,
		Name:       record.Name,
		Code:       record.Code,
		Category:   record.Category,
		Attributes: attrs,
	}
}

func toImportReportDTO(report application.ImportReport) importReportDTO {
	failed := make([]importFailureDTO, 0, len(report.Failed))
	for _, f := range report.Failed {
		failed = append(failed, importFailureDTO{Row: f.Row, Phone: f.Phone, Reason: f.Reason})
	}
	return importReportDTO{Total: report.Total, Imported: report.Imported, Failed: failed}
}
