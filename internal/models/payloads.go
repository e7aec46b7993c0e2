package models

import (
	"encoding/json"

	"github.com/Lllllllleong/formflow/internal/annotation"
	"github.com/Lllllllleong/formflow/internal/flatten"
)

// These structs define the JSON payloads for the export functions and the
// standalone server.

// ExportRequest asks for one document to be flattened. Annotations come
// either as a list or as an editor canvas snapshot in CanvasData.
type ExportRequest struct {
	ExportID string `json:"exportId,omitempty"`
	// SourceURI is a gs:// object or an http(s) URL.
	SourceURI string `json:"sourceUri,omitempty"`
	// SourcePDF carries the source inline (base64 in JSON).
	SourcePDF   []byte            `json:"sourcePdf,omitempty"`
	Annotations []annotation.Wire `json:"annotations,omitempty"`
	CanvasData  json.RawMessage   `json:"canvasData,omitempty"`
	// Signature is a data URL holding the shared placeholder image.
	Signature    string          `json:"signature,omitempty"`
	SignatureURI string          `json:"signatureUri,omitempty"`
	Layout       *LayoutOverride `json:"layout,omitempty"`
	Strict       bool            `json:"strict,omitempty"`
	ExecutionID  string          `json:"executionId,omitempty"`
}

// LayoutOverride replaces individual layout settings for one request.
type LayoutOverride struct {
	CanvasWidth      *float64 `json:"canvasWidth,omitempty"`
	SinglePageHeight *float64 `json:"singlePageHeight,omitempty"`
	Pagination       *string  `json:"pagination,omitempty"`
}

// Apply returns base with every set field of o replaced.
func (o *LayoutOverride) Apply(base flatten.Layout) flatten.Layout {
	if o == nil {
		return base
	}
	if o.CanvasWidth != nil {
		base.CanvasWidth = *o.CanvasWidth
	}
	if o.SinglePageHeight != nil {
		base.SinglePageHeight = *o.SinglePageHeight
	}
	if o.Pagination != nil {
		base.Pagination = *o.Pagination
	}
	return base
}

// ExportResponse is the outcome of an export.
type ExportResponse struct {
	Status       string       `json:"status"`
	ExportID     string       `json:"exportId"`
	OutputGCSUri string       `json:"outputGcsUri,omitempty"`
	PageCount    int          `json:"pageCount"`
	Drawn        int          `json:"drawn"`
	Skipped      []SkipRecord `json:"skipped,omitempty"`
	// Duplicate is set when an identical export had already completed.
	Duplicate bool `json:"duplicate,omitempty"`
}

// BatchExportRequest runs independent exports. DraftPrefix, a gs:// prefix,
// adds one export per draft object found under it.
type BatchExportRequest struct {
	Items       []ExportRequest `json:"items,omitempty"`
	DraftPrefix string          `json:"draftPrefix,omitempty"`
	ExecutionID string          `json:"executionId,omitempty"`
}

// BatchItemResult is the status of one batch item.
type BatchItemResult struct {
	Index    int             `json:"index"`
	Source   string          `json:"source,omitempty"`
	Response *ExportResponse `json:"response,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// BatchExportResponse reports every item, failed or not.
type BatchExportResponse struct {
	Status    string            `json:"status"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Results   []BatchItemResult `json:"results"`
}

// DraftPayload is a saved editor draft: the canvas snapshot, the source
// document URL and the captured signature.
type DraftPayload struct {
	CanvasData json.RawMessage `json:"canvasData"`
	PDFURL     string          `json:"pdfUrl"`
	Signature  string          `json:"signature,omitempty"`
}

// ExportRequest converts a draft into an export of the same document.
func (d DraftPayload) ExportRequest(exportID string) ExportRequest {
	return ExportRequest{
		ExportID:   exportID,
		SourceURI:  d.PDFURL,
		CanvasData: d.CanvasData,
		Signature:  d.Signature,
	}
}

// WorkflowPayload is the argument handed to the post-export workflow.
type WorkflowPayload struct {
	ExportID     string `json:"exportId"`
	OutputGCSUri string `json:"outputGcsUri"`
	PageCount    int    `json:"pageCount"`
}
