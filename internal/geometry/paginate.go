package geometry

import "fmt"

// Pagination names accepted by NewPaginator.
const (
	PaginationUniform = "uniform"
	PaginationStacked = "stacked"
)

// Paginator resolves canvas anchors onto the pages of one document.
type Paginator interface {
	// Place maps a canvas anchor onto its page. ok is false when the anchor
	// lies outside every page.
	Place(top, left float64) (p Placement, ok bool)
}

// Uniform paginates with one fixed page height shared by the editor and the
// engine. Every page of the canvas is assumed to be SinglePageHeight tall
// regardless of the real page sizes.
type Uniform struct {
	CanvasWidth      float64
	SinglePageHeight float64
	Pages            []Size
}

// Place implements Paginator.
func (u Uniform) Place(top, left float64) (Placement, bool) {
	idx := PageIndex(top, u.SinglePageHeight)
	if idx < 0 || idx >= len(u.Pages) {
		return Placement{PageIndex: idx}, false
	}
	canvas := Size{Width: u.CanvasWidth, Height: float64(len(u.Pages)) * u.SinglePageHeight}
	return MapToPage(canvas, u.SinglePageHeight, u.Pages[idx], top, left), true
}

// Stacked paginates by the cumulative real page heights, for editors that
// lay each page out at its own height. The Y scale is always 1.
type Stacked struct {
	CanvasWidth float64
	Pages       []Size
}

// Place implements Paginator.
func (s Stacked) Place(top, left float64) (Placement, bool) {
	if top < 0 {
		return Placement{PageIndex: -1}, false
	}
	offset := 0.0
	for i, page := range s.Pages {
		if top < offset+page.Height {
			canvas := Size{Width: s.CanvasWidth, Height: page.Height}
			p := MapToPage(canvas, page.Height, page, top-offset, left)
			p.PageIndex = i
			return p, true
		}
		offset += page.Height
	}
	return Placement{PageIndex: len(s.Pages)}, false
}

// NewPaginator builds the named pagination strategy. An empty mode selects
// uniform pagination.
func NewPaginator(mode string, canvasWidth, singlePageHeight float64, pages []Size) (Paginator, error) {
	switch mode {
	case "", PaginationUniform:
		return Uniform{CanvasWidth: canvasWidth, SinglePageHeight: singlePageHeight, Pages: pages}, nil
	case PaginationStacked:
		return Stacked{CanvasWidth: canvasWidth, Pages: pages}, nil
	default:
		return nil, fmt.Errorf("unknown pagination mode %q", mode)
	}
}
