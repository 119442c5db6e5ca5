package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/xinlong-d2/signup-admin/internal/ingest"
)

// uploadFormField is the multipart field carrying the spreadsheet.
const uploadFormField = "file"

// multipartMemory is how much of a multipart body is buffered in memory
// before parts spill to temporary files.
const multipartMemory = 8 << 20

// Base64UploadRequest is the JSON alternative to a multipart upload.
// FileBase64 may carry a data: URL prefix.
type Base64UploadRequest struct {
	FileName   string `json:"file_name"`
	FileBase64 string `json:"file_base64"`
}

// SheetImportRequest is the body of POST /uploads/sheets.
type SheetImportRequest struct {
	SpreadsheetID string `json:"spreadsheet_id"`
	Range         string `json:"range"`
}

// PostUpload handles POST /uploads.
// Accepts multipart/form-data with a "file" part, or a JSON body with the
// file base64-encoded. Answers the ingestion summary.
func (s *Server) PostUpload(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		s.postBase64Upload(w, r)
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, err, "upload")
			return
		}
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("expected multipart/form-data with a file field"))
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("file field is required"))
		return
	}
	defer file.Close()

	sum, err := s.ingest.Upload(r.Context(), header.Filename, file)
	writeSummary(w, r, sum, err)
}

func (s *Server) postBase64Upload(w http.ResponseWriter, r *http.Request) {
	var req Base64UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, err, "upload")
			return
		}
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("malformed JSON body"))
		return
	}

	payload := req.FileBase64
	if strings.HasPrefix(payload, "data:") {
		if i := strings.IndexByte(payload, ','); i >= 0 {
			payload = payload[i+1:]
		}
	}
	if payload == "" {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("file_base64 is required"))
		return
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("file_base64 is not valid base64"))
		return
	}

	sum, err := s.ingest.Upload(r.Context(), req.FileName, bytes.NewReader(raw))
	writeSummary(w, r, sum, err)
}

// PostSheetImport handles POST /uploads/sheets.
func (s *Server) PostSheetImport(w http.ResponseWriter, r *http.Request) {
	var req SheetImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("malformed JSON body"))
		return
	}

	sum, err := s.ingest.ImportSheet(r.Context(), req.SpreadsheetID, req.Range)
	writeSummary(w, r, sum, err)
}

// writeSummary answers an ingestion attempt. An unreadable file is 422 with
// the failure summary; a batch that stopped part way is 500 with what it
// managed; errors before the batch started use the common error shape.
func writeSummary(w http.ResponseWriter, r *http.Request, sum ingest.Summary, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, sum)
	case errors.Is(err, ingest.ErrFileFormat):
		writeJSON(w, http.StatusUnprocessableEntity, sum)
	case sum.Message != "":
		slog.ErrorContext(r.Context(), "ingestion stopped", "error", err)
		writeJSON(w, http.StatusInternalServerError, sum)
	default:
		writeError(w, r, err, "spreadsheet")
	}
}
