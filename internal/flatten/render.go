package flatten

import (
	"strings"

	"github.com/Lllllllleong/formflow/internal/annotation"
	"github.com/Lllllllleong/formflow/internal/geometry"
	"github.com/Lllllllleong/formflow/internal/imaging"
)

// Checkmark stroke geometry as fractions of the scaled font size.
const (
	checkThickness = 0.12
	checkStartX    = 0.10
	checkStartY    = 0.40
	checkValleyX   = 0.35
	checkValleyY   = 0.15
	checkEndX      = 0.75
	checkEndY      = 0.75
)

func rotationAt(angle float64, p geometry.Placement) Rotation {
	return Rotation{
		Degrees: angle,
		Pivot:   geometry.Point{X: p.PDFX, Y: p.PDFYTopAligned},
	}
}

// baselineY moves from the top of a text box down to the first baseline.
func baselineY(p geometry.Placement, fontSize float64, l Layout) float64 {
	size := fontSize * p.ScaleY
	return p.PDFYTopAligned - size - fontSize*l.TopPaddingRatio*p.ScaleY
}

func renderText(s Surface, p geometry.Placement, t annotation.Text, l Layout) error {
	size := t.FontSize * p.ScaleY
	color := t.Fill.RGBOrBlack()
	rot := rotationAt(t.Angle, p)
	y := baselineY(p, t.FontSize, l)

	text := annotation.SubstituteCheckmarks(t.Text)
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		err := s.DrawText(TextRun{
			Text:     line,
			Baseline: geometry.Point{X: p.PDFX, Y: y - float64(i)*size*l.LineHeight},
			Size:     size,
			Color:    color,
			Rotation: rot,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func renderSymbol(s Surface, p geometry.Placement, sym annotation.Symbol, l Layout) error {
	size := sym.FontSize * p.ScaleY
	x := p.PDFX
	y := baselineY(p, sym.FontSize, l)
	pt := func(fx, fy float64) geometry.Point {
		return geometry.Point{X: x + fx*size, Y: y + fy*size}
	}
	start, valley, end := pt(checkStartX, checkStartY), pt(checkValleyX, checkValleyY), pt(checkEndX, checkEndY)

	color := sym.Fill.RGBOrBlack()
	rot := rotationAt(sym.Angle, p)
	for _, seg := range [][2]geometry.Point{{start, valley}, {valley, end}} {
		err := s.DrawLine(Line{
			From:      seg[0],
			To:        seg[1],
			Thickness: checkThickness * size,
			Color:     color,
			Rotation:  rot,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// renderImage draws img in a box of w x h canvas units whose top-left corner
// is the placement anchor.
func renderImage(s Surface, p geometry.Placement, img *imaging.Image, w, h, angle float64) error {
	rw := w * p.ScaleX
	rh := h * p.ScaleY
	return s.DrawImage(ImagePlacement{
		Image:    img,
		Origin:   geometry.Point{X: p.PDFX, Y: p.PDFYTopAligned - rh},
		Width:    rw,
		Height:   rh,
		Rotation: rotationAt(angle, p),
	})
}
