package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lllllllleong/formflow/internal/annotation"
	"github.com/Lllllllleong/formflow/internal/flatten"
	"github.com/Lllllllleong/formflow/internal/imaging"
	"github.com/Lllllllleong/formflow/internal/models"
)

// minSignatureLength is the shortest base64 payload accepted as a real
// signature capture. Anything shorter is an empty canvas export.
const minSignatureLength = 100

// Job is an export request decoded and ready to render.
type Job struct {
	Annotations []annotation.Annotation
	Layout      flatten.Layout
	Signature   []byte
	Strict      bool
	// Ignored counts canvas objects that are not annotations.
	Ignored int
}

// PrepareJob decodes the annotations, signature and layout of req on top of
// the base layout. It does no I/O.
func PrepareJob(base flatten.Layout, req *models.ExportRequest) (*Job, error) {
	job := &Job{Layout: base, Strict: req.Strict}

	if canvasData := unquoteCanvas(req.CanvasData); len(canvasData) > 0 {
		dec := annotation.CanvasDecoder{PlaceholderStroke: base.PlaceholderStroke}
		canvas, err := dec.Decode(canvasData)
		if err != nil {
			return nil, fmt.Errorf("invalid canvas data: %w", err)
		}
		job.Annotations = canvas.Annotations
		job.Ignored = canvas.Ignored
		if canvas.Width > 0 {
			job.Layout.CanvasWidth = canvas.Width
		}
	}
	if len(req.Annotations) > 0 {
		anns, err := annotation.FromWires(req.Annotations)
		if err != nil {
			return nil, fmt.Errorf("invalid annotations: %w", err)
		}
		job.Annotations = append(job.Annotations, anns...)
	}

	job.Layout = req.Layout.Apply(job.Layout)
	if err := job.Layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}

	sig, err := DecodeSignature(req.Signature)
	if err != nil {
		return nil, err
	}
	job.Signature = sig
	return job, nil
}

// unquoteCanvas accepts the snapshot either as a JSON object or as a JSON
// string holding one, which is how drafts store it.
func unquoteCanvas(raw json.RawMessage) []byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return []byte(s)
		}
	}
	return raw
}

// DecodeSignature returns the image bytes of a signature data URL. An empty
// or implausibly short capture yields nil so placeholders are skipped.
func DecodeSignature(dataURL string) ([]byte, error) {
	payload := dataURL
	if _, after, ok := strings.Cut(dataURL, ","); ok {
		payload = after
	}
	if len(strings.TrimSpace(payload)) <= minSignatureLength {
		return nil, nil
	}
	data, _, err := imaging.DecodeDataURL(dataURL)
	if err != nil {
		return nil, fmt.Errorf("invalid signature: %w", err)
	}
	return data, nil
}

// Render flattens the job into src.
func (j *Job) Render(ctx context.Context, src []byte, logger *slog.Logger) (*flatten.Result, error) {
	eng, err := flatten.NewEngine(flatten.Options{Layout: j.Layout, Logger: logger, Strict: j.Strict})
	if err != nil {
		return nil, err
	}
	return eng.Export(ctx, src, j.Annotations, j.Signature)
}

// InputHash identifies an export by everything that affects its output.
func InputHash(src []byte, job *Job) (string, error) {
	wires := make([]annotation.Wire, 0, len(job.Annotations))
	for _, a := range job.Annotations {
		wires = append(wires, annotation.ToWire(a))
	}
	sigSum := sha256.Sum256(job.Signature)
	canonical, err := json.Marshal(struct {
		Annotations []annotation.Wire `json:"annotations"`
		Layout      flatten.Layout    `json:"layout"`
		Signature   string            `json:"signature"`
		Strict      bool              `json:"strict"`
	}{wires, job.Layout, hex.EncodeToString(sigSum[:]), job.Strict})
	if err != nil {
		return "", fmt.Errorf("failed to encode export inputs: %w", err)
	}

	hash := sha256.New()
	hash.Write(src)
	hash.Write(canonical)
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// SkipRecords converts engine skips for storage and responses.
func SkipRecords(skipped []flatten.Skip) []models.SkipRecord {
	if len(skipped) == 0 {
		return nil
	}
	out := make([]models.SkipRecord, 0, len(skipped))
	for _, s := range skipped {
		out = append(out, models.SkipRecord{
			Index:  s.Index,
			Kind:   string(s.Kind),
			Page:   s.Page,
			Reason: s.Reason(),
		})
	}
	return out
}

// IsClientError reports whether err was caused by the request rather than
// by infrastructure.
func IsClientError(err error) bool {
	var skipped *flatten.SkippedError
	var reqErr *RequestError
	return errors.As(err, &reqErr) || errors.As(err, &skipped) || errors.Is(err, flatten.ErrMalformedSource)
}

// RequestError marks a request that can never succeed as sent.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string { return e.Err.Error() }
func (e *RequestError) Unwrap() error { return e.Err }
