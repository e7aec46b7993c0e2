package models

import "time"

// Export lifecycle states stored on ExportRecord.Status.
const (
	StatusQueued    = "QUEUED"
	StatusRendering = "RENDERING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// ExportRecord is the Firestore record for one flattening job.
// It tracks the job status and what the engine drew or skipped.
type ExportRecord struct {
	InputHash           string       `firestore:"inputHash,omitempty"`
	SourceURI           string       `firestore:"sourceUri,omitempty"`
	Status              string       `firestore:"status,omitempty"`
	ErrorDetails        string       `firestore:"errorDetails,omitempty"`
	PageCount           int          `firestore:"pageCount,omitempty"`
	AnnotationCount     int          `firestore:"annotationCount,omitempty"`
	DrawnCount          int          `firestore:"drawnCount,omitempty"`
	Skipped             []SkipRecord `firestore:"skipped,omitempty"`
	OutputGCSUri        string       `firestore:"outputGcsUri,omitempty"`
	WorkflowExecutionID string       `firestore:"workflowExecutionId,omitempty"` // For traceability
	CreatedAt           time.Time    `firestore:"createdAt,omitempty"`
	CompletedAt         time.Time    `firestore:"completedAt,omitempty"`
}

// SkipRecord is a skipped annotation as stored and returned to callers.
type SkipRecord struct {
	Index  int    `firestore:"index" json:"index"`
	Kind   string `firestore:"kind" json:"kind"`
	Page   int    `firestore:"page,omitempty" json:"page,omitempty"`
	Reason string `firestore:"reason" json:"reason"`
}
