package flatten

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Lllllllleong/formflow/internal/annotation"
)

var (
	// ErrMalformedSource means the source bytes could not be read as a PDF.
	// It is the only error that aborts an export.
	ErrMalformedSource = errors.New("malformed source document")

	// ErrAnnotationOutOfRange marks an annotation below the last page.
	ErrAnnotationOutOfRange = errors.New("annotation outside document pages")

	// ErrImageEmbed marks a signature raster that failed to decode or embed.
	ErrImageEmbed = errors.New("signature image could not be embedded")

	// ErrMissingSignature marks a placeholder with no signature to fill it.
	ErrMissingSignature = errors.New("no signature supplied for placeholder")
)

// Skip records one annotation the engine did not draw.
type Skip struct {
	Index int             `json:"index"`
	Kind  annotation.Kind `json:"kind"`
	Page  int             `json:"page"`
	Err   error           `json:"-"`
}

// Reason is the human-readable cause of the skip.
func (s Skip) Reason() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// SkippedError is returned by a strict engine when any annotation was
// skipped.
type SkippedError struct {
	Skipped []Skip
}

func (e *SkippedError) Error() string {
	reasons := make([]string, 0, len(e.Skipped))
	for _, s := range e.Skipped {
		reasons = append(reasons, fmt.Sprintf("#%d %s: %s", s.Index, s.Kind, s.Reason()))
	}
	return fmt.Sprintf("%d annotation(s) skipped: %s", len(e.Skipped), strings.Join(reasons, "; "))
}

// Unwrap exposes every skip cause to errors.Is.
func (e *SkippedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Skipped))
	for _, s := range e.Skipped {
		errs = append(errs, s.Err)
	}
	return errs
}
