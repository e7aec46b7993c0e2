package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/Lllllllleong/formflow/internal/flatten"
	"github.com/Lllllllleong/formflow/internal/inspect"
	"github.com/Lllllllleong/formflow/internal/models"
	"github.com/Lllllllleong/formflow/internal/services"
	"github.com/go-chi/chi/v5/middleware"
)

// handleFlatten renders an inline source without touching storage and
// answers with the flattened PDF.
func (s *Server) handleFlatten(w http.ResponseWriter, r *http.Request) {
	var req models.ExportRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if len(req.SourcePDF) == 0 {
		jsonError(w, "sourcePdf is required", http.StatusBadRequest)
		return
	}

	job, err := services.PrepareJob(s.cfg.Layout, &req)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	log := s.log.With("requestId", middleware.GetReqID(r.Context()))
	res, err := job.Render(r.Context(), req.SourcePDF, log)
	if err != nil {
		var skipped *flatten.SkippedError
		switch {
		case errors.Is(err, flatten.ErrMalformedSource):
			jsonError(w, err.Error(), http.StatusBadRequest)
		case errors.As(err, &skipped):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":   err.Error(),
				"skipped": services.SkipRecords(skipped.Skipped),
			})
		default:
			log.Error("Failed to flatten document", "error", err)
			jsonError(w, "failed to flatten document", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("X-Page-Count", strconv.Itoa(res.PageCount))
	w.Header().Set("X-Drawn-Count", strconv.Itoa(res.Drawn))
	w.Header().Set("X-Skipped-Count", strconv.Itoa(len(res.Skipped)))
	w.Write(res.PDF)
}

// handleInspect reads a raw PDF body and reports its pages and text.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		jsonError(w, "failed to read body: "+err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	rep, err := inspect.Read(data)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		jsonError(w, "export service is not configured", http.StatusServiceUnavailable)
		return
	}
	var req models.ExportRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	res, err := s.exporter.Process(r.Context(), &req)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if s.batch == nil {
		jsonError(w, "batch service is not configured", http.StatusServiceUnavailable)
		return
	}
	var req models.BatchExportRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	res, err := s.batch.Process(r.Context(), &req)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonError(w, fmt.Sprintf("could not parse JSON: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	if services.IsClientError(err) {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.log.Error("Export failed", "requestId", middleware.GetReqID(r.Context()), "error", err)
	jsonError(w, "processing failed", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
