package flatten

import (
	"math"

	"github.com/Lllllllleong/formflow/internal/annotation"
	"github.com/Lllllllleong/formflow/internal/geometry"
	"github.com/Lllllllleong/formflow/internal/imaging"
)

// Surface receives draw calls for a single PDF page. Coordinates are in
// page space relative to the page's lower-left corner.
type Surface interface {
	DrawText(t TextRun) error
	DrawLine(l Line) error
	DrawImage(img ImagePlacement) error
}

// Rotation turns a drawing clockwise, as seen on the page, about Pivot.
type Rotation struct {
	Degrees float64
	Pivot   geometry.Point
}

// IsZero reports whether r leaves the drawing unrotated.
func (r Rotation) IsZero() bool {
	return math.Mod(r.Degrees, 360) == 0
}

// Matrix returns the PDF transformation matrix [a b c d e f] for r.
func (r Rotation) Matrix() [6]float64 {
	// Clockwise on a Y-up page is a negative angle.
	phi := -r.Degrees * math.Pi / 180
	sin, cos := math.Sin(phi), math.Cos(phi)
	px, py := r.Pivot.X, r.Pivot.Y
	return [6]float64{
		cos, sin,
		-sin, cos,
		px - cos*px + sin*py,
		py - sin*px - cos*py,
	}
}

// TextRun is one line of text anchored at its baseline.
type TextRun struct {
	Text     string
	Baseline geometry.Point
	Size     float64
	Color    annotation.RGB
	Rotation Rotation
}

// Line is a stroked segment.
type Line struct {
	From      geometry.Point
	To        geometry.Point
	Thickness float64
	Color     annotation.RGB
	Rotation  Rotation
}

// ImagePlacement draws an image with its lower-left corner at Origin.
type ImagePlacement struct {
	Image    *imaging.Image
	Origin   geometry.Point
	Width    float64
	Height   float64
	Rotation Rotation
}
