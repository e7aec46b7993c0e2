package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"github.com/Lllllllleong/formflow/internal/flatten"
	"github.com/Lllllllleong/formflow/internal/gcp"
	"github.com/Lllllllleong/formflow/internal/models"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ExporterConfig holds all configuration for the export service.
type ExporterConfig struct {
	ProjectID          string
	OutputBucket       string
	CollectionName     string
	DatabaseID         string
	WorkflowID         string
	WorkflowLocation   string
	SourceFetchTimeout time.Duration
	MaxSourceBytes     int64
	Layout             flatten.Layout
}

// ExporterFunction holds the dependencies for the export logic.
type ExporterFunction struct {
	storageClient    *storage.Client
	firestoreClient  *firestore.Client
	executionsClient *executions.Client
	fetcher          *gcp.Fetcher
	config           ExporterConfig
}

// loadExporterConfig loads and validates all necessary environment variables for this service.
func loadExporterConfig() (*ExporterConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	outputBucket := gcp.GetEnv("EXPORT_OUTPUT_BUCKET", "")
	if outputBucket == "" {
		return nil, fmt.Errorf("EXPORT_OUTPUT_BUCKET environment variable must be set")
	}
	timeout, err := gcp.GetEnvDuration("SOURCE_FETCH_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	maxBytes, err := gcp.GetEnvInt("MAX_SOURCE_BYTES", 50<<20)
	if err != nil {
		return nil, err
	}
	layout, err := LoadLayout()
	if err != nil {
		return nil, err
	}

	return &ExporterConfig{
		ProjectID:          projectID,
		OutputBucket:       outputBucket,
		CollectionName:     gcp.GetEnv("FIRESTORE_COLLECTION", "exports"),
		DatabaseID:         gcp.GetEnv("FIRESTORE_DATABASE", ""),
		WorkflowID:         gcp.GetEnv("WORKFLOW_ID", ""),
		WorkflowLocation:   gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		SourceFetchTimeout: timeout,
		MaxSourceBytes:     int64(maxBytes),
		Layout:             layout,
	}, nil
}

// LoadLayout reads the layout file named by LAYOUT_CONFIG, or returns the
// default layout when it is unset.
func LoadLayout() (flatten.Layout, error) {
	path := gcp.GetEnv("LAYOUT_CONFIG", "")
	if path == "" {
		return flatten.DefaultLayout(), nil
	}
	return flatten.LoadLayoutFile(path)
}

// NewExporter creates a new ExporterFunction instance.
func NewExporter(ctx context.Context) (*ExporterFunction, error) {
	config, err := loadExporterConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID, config.DatabaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	var executionsClient *executions.Client
	if config.WorkflowID != "" {
		executionsClient, err = executions.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
		}
	}

	f := &ExporterFunction{
		storageClient:    storageClient,
		firestoreClient:  firestoreClient,
		executionsClient: executionsClient,
		fetcher:          gcp.NewFetcher(storageClient, config.SourceFetchTimeout, config.MaxSourceBytes),
		config:           *config,
	}
	slog.Info("Exporter logic initialized.", "outputBucket", config.OutputBucket, "workflowId", config.WorkflowID)
	return f, nil
}

// Process flattens one request and stores the result in the output bucket.
func (f *ExporterFunction) Process(ctx context.Context, req *models.ExportRequest) (*models.ExportResponse, error) {
	exportID := req.ExportID
	if exportID == "" {
		exportID = uuid.NewString()
	}
	logCtx := slog.With("exportId", exportID, "executionId", req.ExecutionID, "sourceUri", req.SourceURI)
	logCtx.Info("Processing export request.")

	job, err := PrepareJob(f.config.Layout, req)
	if err != nil {
		logCtx.Error("Rejected export request", "error", err)
		return nil, &RequestError{Err: err}
	}
	src, err := f.loadSource(ctx, req)
	if err != nil {
		logCtx.Error("Failed to load source PDF", "error", err)
		return nil, err
	}
	if job.Signature == nil && req.SignatureURI != "" {
		sig, err := f.fetcher.Fetch(ctx, req.SignatureURI)
		if err != nil {
			logCtx.Error("Failed to load signature image", "error", err)
			return nil, err
		}
		job.Signature = sig
	}

	inputHash, err := InputHash(src, job)
	if err != nil {
		return nil, err
	}
	logCtx = logCtx.With("inputHash", inputHash)

	if existing, found, err := f.findCompleted(ctx, inputHash); err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return nil, err
	} else if found {
		logCtx.Info("Duplicate export detected. Skipping.", "existingExportId", existing.ExportID)
		return existing, nil
	}

	docRef := f.firestoreClient.Collection(f.config.CollectionName).Doc(exportID)
	record := models.ExportRecord{
		InputHash:       inputHash,
		SourceURI:       req.SourceURI,
		Status:          models.StatusQueued,
		AnnotationCount: len(job.Annotations),
		CreatedAt:       time.Now(),
	}
	if _, err := docRef.Create(ctx, record); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			logCtx.Info("Export record already exists. Returning it.")
			return f.existingResponse(ctx, docRef)
		}
		logCtx.Error("Failed to create export record in Firestore", "error", err)
		return nil, fmt.Errorf("failed to create export record: %w", err)
	}
	logCtx.Info("Created export record in Firestore.", "annotationCount", len(job.Annotations), "ignoredObjects", job.Ignored)

	if err := f.updateStatus(ctx, docRef, models.StatusRendering, ""); err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to update status to RENDERING", err)
	}

	res, err := job.Render(ctx, src, logCtx)
	if err != nil {
		var skipped *flatten.SkippedError
		if errors.As(err, &skipped) {
			return nil, &RequestError{Err: f.handleError(ctx, logCtx, docRef, "strict export rejected", err)}
		}
		if errors.Is(err, flatten.ErrMalformedSource) {
			return nil, &RequestError{Err: f.handleError(ctx, logCtx, docRef, "source is not a readable PDF", err)}
		}
		return nil, f.handleError(ctx, logCtx, docRef, "failed to flatten document", err)
	}
	logCtx.Info("Document flattened.", "pageCount", res.PageCount, "drawn", res.Drawn, "skipped", len(res.Skipped))

	objectName := fmt.Sprintf("exports/%s.pdf", exportID)
	bucketHandle := f.storageClient.Bucket(f.config.OutputBucket)
	err = gcp.Retry(ctx, gcp.DefaultRetryPolicy(), "upload "+objectName, func(ctx context.Context) error {
		return gcp.SaveToGCSAtomically(ctx, bucketHandle, objectName, res.PDF, "application/pdf")
	})
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to save exported PDF", err)
	}
	outputGCSUri := fmt.Sprintf("gs://%s/%s", f.config.OutputBucket, objectName)

	skips := SkipRecords(res.Skipped)
	updates := []firestore.Update{
		{Path: "status", Value: models.StatusCompleted},
		{Path: "pageCount", Value: res.PageCount},
		{Path: "drawnCount", Value: res.Drawn},
		{Path: "skipped", Value: skips},
		{Path: "outputGcsUri", Value: outputGCSUri},
		{Path: "completedAt", Value: time.Now()},
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to update status to COMPLETED", err)
	}

	if f.executionsClient != nil {
		if err := f.triggerWorkflow(ctx, logCtx, docRef, outputGCSUri, res.PageCount); err != nil {
			return nil, err
		}
	}

	logCtx.Info("Export complete.", "outputGcsUri", outputGCSUri)
	return &models.ExportResponse{
		Status:       "success",
		ExportID:     exportID,
		OutputGCSUri: outputGCSUri,
		PageCount:    res.PageCount,
		Drawn:        res.Drawn,
		Skipped:      skips,
	}, nil
}

func (f *ExporterFunction) loadSource(ctx context.Context, req *models.ExportRequest) ([]byte, error) {
	if len(req.SourcePDF) > 0 {
		if f.config.MaxSourceBytes > 0 && int64(len(req.SourcePDF)) > f.config.MaxSourceBytes {
			return nil, &RequestError{Err: gcp.ErrTooLarge}
		}
		return req.SourcePDF, nil
	}
	if req.SourceURI == "" {
		return nil, &RequestError{Err: errors.New("request has neither sourceUri nor sourcePdf")}
	}
	return f.fetcher.Fetch(ctx, req.SourceURI)
}

// findCompleted returns the response of a completed export with the same
// inputs, if there is one.
func (f *ExporterFunction) findCompleted(ctx context.Context, inputHash string) (*models.ExportResponse, bool, error) {
	docs, err := f.firestoreClient.Collection(f.config.CollectionName).Where("inputHash", "==", inputHash).Limit(5).Documents(ctx).GetAll()
	if err != nil {
		return nil, false, fmt.Errorf("failed to query for duplicates: %w", err)
	}
	for _, doc := range docs {
		var rec models.ExportRecord
		if err := doc.DataTo(&rec); err != nil {
			return nil, false, fmt.Errorf("failed to decode export record %s: %w", doc.Ref.ID, err)
		}
		if rec.Status == models.StatusCompleted {
			resp := responseFromRecord(doc.Ref.ID, rec)
			return &resp, true, nil
		}
	}
	return nil, false, nil
}

func (f *ExporterFunction) existingResponse(ctx context.Context, docRef *firestore.DocumentRef) (*models.ExportResponse, error) {
	snap, err := docRef.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read export record %s: %w", docRef.ID, err)
	}
	var rec models.ExportRecord
	if err := snap.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode export record %s: %w", docRef.ID, err)
	}
	resp := responseFromRecord(docRef.ID, rec)
	return &resp, nil
}

func responseFromRecord(exportID string, rec models.ExportRecord) models.ExportResponse {
	return models.ExportResponse{
		Status:       statusLabel(rec.Status),
		ExportID:     exportID,
		OutputGCSUri: rec.OutputGCSUri,
		PageCount:    rec.PageCount,
		Drawn:        rec.DrawnCount,
		Skipped:      rec.Skipped,
		Duplicate:    true,
	}
}

func statusLabel(recordStatus string) string {
	switch recordStatus {
	case models.StatusCompleted:
		return "success"
	case models.StatusFailed:
		return "failed"
	default:
		return "pending"
	}
}

func (f *ExporterFunction) triggerWorkflow(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, outputGCSUri string, pageCount int) error {
	logCtx.Info("Triggering workflow.")
	parent := gcp.WorkflowParent(f.config.ProjectID, f.config.WorkflowLocation, f.config.WorkflowID)
	payload := models.WorkflowPayload{
		ExportID:     docRef.ID,
		OutputGCSUri: outputGCSUri,
		PageCount:    pageCount,
	}
	executionName, err := gcp.TriggerWorkflow(ctx, f.executionsClient, parent, payload)
	if err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to trigger workflow execution", err)
	}
	if _, err := docRef.Update(ctx, []firestore.Update{{Path: "workflowExecutionId", Value: executionName}}); err != nil {
		logCtx.Warn("Failed to record workflow execution id.", "error", err)
	}
	logCtx.Info("Hand-off to workflow complete.", "workflowExecutionId", executionName)
	return nil
}

func (f *ExporterFunction) handleError(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := f.updateStatus(ctx, docRef, models.StatusFailed, fullError); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s: %w", message, originalErr)
}

func (f *ExporterFunction) updateStatus(ctx context.Context, docRef *firestore.DocumentRef, newStatus, errDetails string) error {
	updates := []firestore.Update{
		{Path: "status", Value: newStatus},
	}
	if errDetails != "" {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: errDetails})
	}
	_, err := docRef.Update(ctx, updates)
	return err
}
