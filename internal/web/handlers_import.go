package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/portfolio-import/internal/core"
	"github.com/JonMunkholm/portfolio-import/internal/importer"
	"github.com/JonMunkholm/portfolio-import/internal/validate"
	"github.com/JonMunkholm/portfolio-import/internal/web/templates"
)

// executeRequest is an ImportRequest plus how to run it. Async imports
// return immediately with an import id to follow via progress and result.
type executeRequest struct {
	core.ImportRequest
	Async bool `json:"async"`
}

// executeResponse carries the validation the import ran against, and either
// the result (sync) or the id to poll (async).
type executeResponse struct {
	ImportID   string                          `json:"importId,omitempty"`
	Validation validate.ImportValidationResult `json:"validation"`
	Result     *importer.Result                `json:"result,omitempty"`
	Error      *ErrorResponse                  `json:"error,omitempty"`
}

// handleAnalyze accepts a multipart workbook upload under "file" and returns
// the analysis session with a plan per sheet.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, r, err, http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}
	defer file.Close()

	analysis, err := s.service.Analyze(withClient(r.Context(), r), header.Filename, file)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, r, http.StatusOK, analysis)
}

// handleValidate runs the validation pipeline for a session without writing.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req core.ValidateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	res, err := s.service.Validate(r.Context(), req)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := templates.ValidationSummary(res).Render(r.Context(), w); err != nil {
			logRequest(r).Error("render validation summary", "error", err)
		}
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleExecute validates a session and imports it. A blocked validation is
// answered with 422 and the validation result so the client can show why.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	ctx := withClient(r.Context(), r)

	if req.Async {
		id, res, err := s.service.StartImport(ctx, req.ImportRequest)
		if err != nil {
			s.respondExecuteError(w, r, res, err)
			return
		}
		writeJSON(w, r, http.StatusAccepted, executeResponse{ImportID: id, Validation: res})
		return
	}

	result, res, err := s.service.RunImport(ctx, req.ImportRequest)
	if err != nil {
		s.respondExecuteError(w, r, res, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := templates.ImportSummary(result).Render(r.Context(), w); err != nil {
			logRequest(r).Error("render import summary", "error", err)
		}
		return
	}
	writeJSON(w, r, http.StatusOK, executeResponse{ImportID: result.ImportID, Validation: res, Result: result})
}

func (s *Server) respondExecuteError(w http.ResponseWriter, r *http.Request, res validate.ImportValidationResult, err error) {
	if !errors.Is(err, importer.ErrCannotProceed) || isHTMX(r) {
		respondError(w, r, err, statusFor(err))
		return
	}

	msg := core.MapError(err)
	logRequest(r).Warn("import blocked by validation",
		"error_rows", res.ErrorRows,
		"global_errors", len(res.GlobalErrors),
	)
	writeJSON(w, r, http.StatusUnprocessableEntity, executeResponse{
		Validation: res,
		Error:      &ErrorResponse{Error: msg.Message, Message: msg.Message, Action: msg.Action, Code: msg.Code},
	})
}

func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.service.ImportProgress(chi.URLParam(r, "importID"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}

// handleImportProgress streams import progress via Server-Sent Events.
// The lastEventId query parameter (a percentage) skips events a reconnecting
// client has already seen.
func (s *Server) handleImportProgress(w http.ResponseWriter, r *http.Request) {
	importID := chi.URLParam(r, "importID")

	lastEventIDStr := r.URL.Query().Get("lastEventId")
	lastEventID := -1
	if lastEventIDStr != "" {
		if n, err := strconv.Atoi(lastEventIDStr); err == nil {
			lastEventID = n
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, r, errors.New("streaming not supported"), http.StatusInternalServerError)
		return
	}

	progressCh, err := s.service.SubscribeProgress(importID)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	var last core.ImportStatus
	for {
		select {
		case status, ok := <-progressCh:
			if !ok {
				// Channel closed: the import ended.
				data, _ := json.Marshal(last)
				fmt.Fprintf(w, "event: complete\ndata: %s\n\n", data)
				flusher.Flush()
				return
			}
			last = status

			percent := status.Percent()
			terminal := status.Phase != core.PhaseQueued && status.Phase != importer.PhaseImporting
			if percent <= lastEventID && !terminal {
				continue
			}

			data, _ := json.Marshal(status)
			fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", percent, data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// handleImportResult waits for an import to finish and returns its result.
// A cancelled or failed import is reported as an error.
func (s *Server) handleImportResult(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.ImportResult(r.Context(), chi.URLParam(r, "importID"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleCancelImport(w http.ResponseWriter, r *http.Request) {
	if err := s.service.CancelImport(chi.URLParam(r, "importID")); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusAccepted, map[string]string{"status": "cancelling"})
}
