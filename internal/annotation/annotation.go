// Package annotation defines the overlay items an editor places on a PDF
// before it is flattened.
package annotation

import "strings"

// Kind discriminates the Annotation variants.
type Kind string

const (
	KindText        Kind = "text"
	KindSymbol      Kind = "symbol"
	KindSignature   Kind = "signature"
	KindPlaceholder Kind = "placeholder"
)

// Checkmark glyphs. Neither is covered by the standard PDF fonts.
const (
	CheckLight = "✓"
	CheckHeavy = "✔"
)

// Anchor is the canvas-space position shared by every annotation: the
// top-left corner of its bounding box and its clockwise rotation in degrees.
type Anchor struct {
	Left  float64
	Top   float64
	Angle float64
}

// Annotation is a closed union over Text, Symbol, Signature and
// SignaturePlaceholder.
type Annotation interface {
	Kind() Kind
	Position() Anchor
	isAnnotation()
}

// Text is an editable text box burned in as vector text.
type Text struct {
	Anchor
	Text     string
	FontSize float64
	Fill     RGBHex
}

// Symbol is a checkmark rendered as two stroked segments.
type Symbol struct {
	Anchor
	Glyph    string
	FontSize float64
	Fill     RGBHex
}

// Signature is a raster signature placed directly on the canvas.
type Signature struct {
	Anchor
	// Image holds the encoded raster (PNG for signatures captured by the editor).
	Image  []byte
	Width  float64
	Height float64
	ScaleX float64
	ScaleY float64
}

// SignaturePlaceholder is a legacy drop-zone rectangle that the shared
// signature image fills at export time.
type SignaturePlaceholder struct {
	Anchor
	Width  float64
	Height float64
	ScaleX float64
	ScaleY float64
}

func (Text) Kind() Kind                 { return KindText }
func (Symbol) Kind() Kind               { return KindSymbol }
func (Signature) Kind() Kind            { return KindSignature }
func (SignaturePlaceholder) Kind() Kind { return KindPlaceholder }

func (a Anchor) Position() Anchor { return a }

func (Text) isAnnotation()                 {}
func (Symbol) isAnnotation()               {}
func (Signature) isAnnotation()            {}
func (SignaturePlaceholder) isAnnotation() {}

// IsCheckGlyph reports whether s is exactly one of the supported checkmarks.
func IsCheckGlyph(s string) bool {
	return s == CheckLight || s == CheckHeavy
}

var checkmarkReplacer = strings.NewReplacer(CheckLight, "X", CheckHeavy, "X")

// SubstituteCheckmarks replaces every checkmark glyph with a literal X.
func SubstituteCheckmarks(s string) string {
	return checkmarkReplacer.Replace(s)
}

// RenderedSize returns the box size after the annotation's own resize
// factors, before any page scaling.
func (s Signature) RenderedSize() (w, h float64) {
	return s.Width * s.ScaleX, s.Height * s.ScaleY
}

// RenderedSize returns the box size after the annotation's own resize
// factors, before any page scaling.
func (p SignaturePlaceholder) RenderedSize() (w, h float64) {
	return p.Width * p.ScaleX, p.Height * p.ScaleY
}
