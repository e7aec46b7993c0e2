package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lllllllleong/formflow/internal/gcp"
	"github.com/Lllllllleong/formflow/internal/models"
	"github.com/google/uuid"
)

// draftSuffix marks the objects the editor writes when a draft is saved.
const draftSuffix = ".draft.json"

// GCSEvent is the payload of a storage object notification.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// DraftExporterFunction exports a document whenever a draft is saved.
type DraftExporterFunction struct {
	exporter *ExporterFunction
}

// NewDraftExporter creates a new DraftExporterFunction instance.
func NewDraftExporter(ctx context.Context) (*DraftExporterFunction, error) {
	exporter, err := NewExporter(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("Draft exporter logic initialized.", "draftSuffix", draftSuffix)
	return &DraftExporterFunction{exporter: exporter}, nil
}

// Process exports the draft stored at the event's object.
func (f *DraftExporterFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	if !IsDraftObject(e.Name) {
		logCtx.Info("Object is not a draft. Skipping.")
		return nil
	}
	logCtx.Info("Processing saved draft.")

	req, err := f.exporter.loadDraft(ctx, e.Bucket, e.Name)
	if err == nil {
		var res *models.ExportResponse
		res, err = f.exporter.Process(ctx, req)
		if err == nil {
			logCtx.Info("Draft exported.", "exportId", res.ExportID, "outputGcsUri", res.OutputGCSUri, "duplicate", res.Duplicate)
			return nil
		}
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		// Redelivery cannot fix a bad draft.
		logCtx.Error("Draft cannot be exported.", "error", err)
		return nil
	}
	logCtx.Error("Failed to export draft", "error", err)
	return err
}

// IsDraftObject reports whether an object name is a saved draft.
func IsDraftObject(name string) bool {
	return strings.HasSuffix(name, draftSuffix)
}

// DraftExportID derives a stable export ID from the draft's location, so a
// redelivered event maps to the same export record.
func DraftExportID(bucket, object string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("gs://"+bucket+"/"+object)).String()
}

// ParseDraft decodes a draft object into an export request.
func ParseDraft(data []byte, exportID string) (*models.ExportRequest, error) {
	var draft models.DraftPayload
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, &RequestError{Err: fmt.Errorf("invalid draft json: %w", err)}
	}
	if draft.PDFURL == "" {
		return nil, &RequestError{Err: errors.New("draft has no pdfUrl")}
	}
	req := draft.ExportRequest(exportID)
	return &req, nil
}

func (f *ExporterFunction) loadDraft(ctx context.Context, bucket, object string) (*models.ExportRequest, error) {
	data, err := gcp.ReadObject(ctx, f.storageClient.Bucket(bucket), object, f.config.MaxSourceBytes)
	if err != nil {
		return nil, err
	}
	return ParseDraft(data, DraftExportID(bucket, object))
}
