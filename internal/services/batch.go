package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/formflow/internal/gcp"
	"github.com/Lllllllleong/formflow/internal/models"
	"golang.org/x/sync/errgroup"
)

// BatchExporterFunction runs many independent exports with bounded
// parallelism.
type BatchExporterFunction struct {
	exporter    *ExporterFunction
	concurrency int
}

// NewBatchExporter creates a new BatchExporterFunction instance.
func NewBatchExporter(ctx context.Context) (*BatchExporterFunction, error) {
	concurrency, err := gcp.GetEnvInt("BATCH_CONCURRENCY", 10)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	exporter, err := NewExporter(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("Batch exporter logic initialized.", "concurrency", concurrency)
	return &BatchExporterFunction{exporter: exporter, concurrency: max(concurrency, 1)}, nil
}

// batchItem is one unit of a batch. load is deferred so that a draft that
// cannot be read fails only its own item.
type batchItem struct {
	source string
	load   func(ctx context.Context) (*models.ExportRequest, error)
}

type exportFunc func(ctx context.Context, req *models.ExportRequest) (*models.ExportResponse, error)

// Process exports every item and draft in req. Item failures are reported
// per item and never cancel their siblings.
func (f *BatchExporterFunction) Process(ctx context.Context, req *models.BatchExportRequest) (*models.BatchExportResponse, error) {
	logCtx := slog.With("executionId", req.ExecutionID, "draftPrefix", req.DraftPrefix)

	items := requestItems(req.Items)
	if req.DraftPrefix != "" {
		drafts, err := f.draftItems(ctx, req.DraftPrefix)
		if err != nil {
			logCtx.Error("Failed to list drafts", "error", err)
			return nil, err
		}
		items = append(items, drafts...)
	}
	if len(items) == 0 {
		return nil, &RequestError{Err: errors.New("batch has no items")}
	}

	logCtx.Info("Starting batch export.", "itemCount", len(items), "concurrency", f.concurrency)
	res := runBatch(ctx, items, f.concurrency, f.exporter.Process)
	logCtx.Info("Batch export finished.", "succeeded", res.Succeeded, "failed", res.Failed)
	return res, nil
}

func requestItems(reqs []models.ExportRequest) []batchItem {
	items := make([]batchItem, 0, len(reqs))
	for i := range reqs {
		req := reqs[i]
		items = append(items, batchItem{
			source: req.SourceURI,
			load: func(context.Context) (*models.ExportRequest, error) {
				return &req, nil
			},
		})
	}
	return items
}

func (f *BatchExporterFunction) draftItems(ctx context.Context, prefixURI string) ([]batchItem, error) {
	bucket, prefix, err := gcp.ParseGCSUri(prefixURI)
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	names, err := gcp.ListObjects(ctx, f.exporter.storageClient.Bucket(bucket), prefix, draftSuffix)
	if err != nil {
		return nil, err
	}
	items := make([]batchItem, 0, len(names))
	for _, name := range names {
		items = append(items, batchItem{
			source: fmt.Sprintf("gs://%s/%s", bucket, name),
			load: func(ctx context.Context) (*models.ExportRequest, error) {
				return f.exporter.loadDraft(ctx, bucket, name)
			},
		})
	}
	return items, nil
}

func runBatch(ctx context.Context, items []batchItem, limit int, export exportFunc) *models.BatchExportResponse {
	results := make([]models.BatchItemResult, len(items))
	var eg errgroup.Group
	eg.SetLimit(max(limit, 1))

	for i, item := range items {
		eg.Go(func() error {
			result := models.BatchItemResult{Index: i, Source: item.source}
			req, err := item.load(ctx)
			if err == nil {
				result.Response, err = export(ctx, req)
			}
			if err != nil {
				result.Error = err.Error()
			}
			results[i] = result
			return nil
		})
	}
	_ = eg.Wait()

	res := &models.BatchExportResponse{Results: results}
	for _, r := range results {
		if r.Error != "" {
			res.Failed++
		} else {
			res.Succeeded++
		}
	}
	switch {
	case res.Failed == 0:
		res.Status = "success"
	case res.Succeeded == 0:
		res.Status = "failed"
	default:
		res.Status = "partial"
	}
	return res
}
