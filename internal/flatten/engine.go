// Package flatten burns editor annotations permanently into a PDF.
//
// Annotations are positioned on a continuous canvas in the editor's
// top-left, Y-down space. The engine maps each one onto its target page,
// draws it as vector text, stroked lines or an embedded image, and
// serializes the result. Only a source that cannot be parsed fails an
// export; individual annotations that cannot be drawn are skipped and
// reported on the Result.
package flatten

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/formflow/internal/annotation"
	"github.com/Lllllllleong/formflow/internal/geometry"
	"github.com/Lllllllleong/formflow/internal/imaging"
)

// Options configures an Engine.
type Options struct {
	// Layout defaults to DefaultLayout when zero.
	Layout Layout
	Logger *slog.Logger
	// Strict turns any skipped annotation into a *SkippedError.
	Strict bool
}

// Engine flattens annotations into PDFs. It holds no per-export state and
// is safe for concurrent use.
type Engine struct {
	layout Layout
	log    *slog.Logger
	strict bool
}

// Result describes one export.
type Result struct {
	PDF       []byte
	PageCount int
	Drawn     int
	Skipped   []Skip
}

// NewEngine validates opts and returns a ready Engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Layout == (Layout{}) {
		opts.Layout = DefaultLayout()
	}
	if err := opts.Layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{layout: opts.Layout, log: opts.Logger, strict: opts.Strict}, nil
}

// Layout returns the engine's configured layout.
func (e *Engine) Layout() Layout {
	return e.layout
}

// Export draws annotations onto a copy of src and returns the new document.
// signature is the shared image used to fill placeholders and may be nil.
func (e *Engine) Export(ctx context.Context, src []byte, annotations []annotation.Annotation, signature []byte) (*Result, error) {
	doc, err := openDocument(src, e.layout)
	if err != nil {
		return nil, err
	}
	sizes := doc.PageSizes()
	layout := e.layout.resolve(sizes)
	pager, err := geometry.NewPaginator(layout.Pagination, layout.CanvasWidth, layout.SinglePageHeight, sizes)
	if err != nil {
		return nil, err
	}

	shared := &sharedSignature{data: signature}
	res := &Result{PageCount: len(sizes)}
	for i, a := range annotations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pos := a.Position()
		p, ok := pager.Place(pos.Top, pos.Left)
		if !ok {
			res.Skipped = append(res.Skipped, Skip{Index: i, Kind: a.Kind(), Err: ErrAnnotationOutOfRange})
			continue
		}
		if err := draw(doc.Page(p.PageIndex), p, a, layout, shared); err != nil {
			res.Skipped = append(res.Skipped, Skip{Index: i, Kind: a.Kind(), Page: p.PageIndex + 1, Err: err})
			continue
		}
		res.Drawn++
		e.log.Debug("Annotation drawn.", "index", i, "kind", a.Kind(), "page", p.PageIndex+1,
			"left", pos.Left, "top", pos.Top, "pdfX", p.PDFX, "pdfY", p.PDFYTopAligned)
	}

	res.PDF, err = doc.Write()
	if err != nil {
		return nil, err
	}

	for _, s := range res.Skipped {
		e.log.Warn("Annotation skipped.", "index", s.Index, "kind", s.Kind, "page", s.Page, "reason", s.Reason())
	}
	e.log.Info("Document flattened.", "pageCount", res.PageCount, "drawn", res.Drawn, "skipped", len(res.Skipped))

	if e.strict && len(res.Skipped) > 0 {
		return res, &SkippedError{Skipped: res.Skipped}
	}
	return res, nil
}

// sharedSignature checks the placeholder image at most once per export.
type sharedSignature struct {
	data []byte
	img  *imaging.Image
	err  error
	done bool
}

func (s *sharedSignature) get() (*imaging.Image, error) {
	if !s.done {
		s.done = true
		if len(s.data) == 0 {
			s.err = ErrMissingSignature
		} else if s.img, s.err = imaging.Probe(s.data); s.err != nil {
			s.err = fmt.Errorf("%w: %v", ErrImageEmbed, s.err)
		}
	}
	return s.img, s.err
}

func draw(s Surface, p geometry.Placement, a annotation.Annotation, l Layout, shared *sharedSignature) error {
	switch a := a.(type) {
	case annotation.Text:
		return renderText(s, p, a, l)
	case annotation.Symbol:
		return renderSymbol(s, p, a, l)
	case annotation.Signature:
		img, err := imaging.Probe(a.Image)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrImageEmbed, err)
		}
		w, h := a.RenderedSize()
		return renderImage(s, p, img, w, h, a.Angle)
	case annotation.SignaturePlaceholder:
		img, err := shared.get()
		if err != nil {
			return err
		}
		w, h := a.RenderedSize()
		return renderImage(s, p, img, w, h, a.Angle)
	default:
		return errors.New("unsupported annotation type")
	}
}
