// Package geometry maps editor canvas positions onto PDF pages.
//
// The editor lays every page of a document out on one tall canvas with a
// top-left origin and Y growing downward. PDF pages have a bottom-left origin
// with Y growing upward, and each page carries its own dimensions.
package geometry

import "math"

// Size is a width/height pair in PDF points.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Point is a position in PDF space.
type Point struct {
	X float64
	Y float64
}

// Placement is a canvas anchor resolved onto a single PDF page.
type Placement struct {
	PageIndex int
	// YOnPage is the anchor's offset from the top of its page, in canvas units.
	YOnPage float64
	PDFX    float64
	// PDFYTopAligned is the PDF Y coordinate of the top edge of the
	// annotation's bounding box. Renderers apply their own offsets from it.
	PDFYTopAligned float64
	ScaleX         float64
	ScaleY         float64
}

// PageIndex returns the zero-based page a canvas top offset falls on.
func PageIndex(top, singlePageHeight float64) int {
	return int(math.Floor(top / singlePageHeight))
}

// MapToPage converts an anchor given in canvas space into PDF space on the
// page it falls on. page must be the dimensions of that page. The caller is
// responsible for rejecting page indexes beyond the document.
//
// A zero canvas width or single page height yields infinite scale factors.
func MapToPage(canvas Size, singlePageHeight float64, page Size, top, left float64) Placement {
	yOnPage := math.Mod(top, singlePageHeight)
	scaleX := page.Width / canvas.Width
	scaleY := page.Height / singlePageHeight

	return Placement{
		PageIndex:      PageIndex(top, singlePageHeight),
		YOnPage:        yOnPage,
		PDFX:           left * scaleX,
		PDFYTopAligned: page.Height - yOnPage*scaleY,
		ScaleX:         scaleX,
		ScaleY:         scaleY,
	}
}
