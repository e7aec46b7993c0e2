package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/formflow/internal/models"
	"github.com/Lllllllleong/formflow/internal/services"
)

var (
	exporterInstance *services.ExporterFunction
	once             sync.Once
	initErr          error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleExportPDF", handleExportPDF)
}

// main is required by the Go Functions Framework.
func main() {}

// handleExportPDF is the HTTP handler.
func handleExportPDF(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		exporterInstance, initErr = services.NewExporter(context.Background())
	})
	if initErr != nil {
		slog.Error("Exporter initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := exporterInstance.Process(r.Context(), &req)
	if err != nil {
		// The specific error is already logged inside the Process method.
		if services.IsClientError(err) {
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Internal Server Error: processing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
