package flatten

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/Lllllllleong/formflow/internal/annotation"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/color"
	pdfdraw "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/draw"
	"golang.org/x/text/encoding/charmap"
)

// contentWriter appends PDF content stream operators. Colour and line width
// go through pdfcpu's draw helpers. Geometry is written here at four decimals
// since draw rounds to two and has no transform, cap or text operators.
type contentWriter struct {
	buf bytes.Buffer
}

func num(f float64) string {
	s := strconv.FormatFloat(f, 'f', 4, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		return "0"
	}
	return s
}

func (w *contentWriter) op(operator string, operands ...float64) {
	for _, o := range operands {
		w.buf.WriteString(num(o))
		w.buf.WriteByte(' ')
	}
	w.buf.WriteString(operator)
	w.buf.WriteByte('\n')
}

func (w *contentWriter) raw(s string) {
	w.buf.WriteString(s)
	w.buf.WriteByte('\n')
}

func (w *contentWriter) save(rot Rotation) {
	w.raw("q")
	if !rot.IsZero() {
		m := rot.Matrix()
		w.op("cm", m[:]...)
	}
}

func (w *contentWriter) restore() {
	w.raw("Q")
}

func (w *contentWriter) text(font string, t TextRun) {
	w.save(t.Rotation)
	pdfdraw.SetFillColor(&w.buf, simpleColor(t.Color))
	w.raw("BT")
	w.buf.WriteString("/" + font + " ")
	w.op("Tf", t.Size)
	w.op("Td", t.Baseline.X, t.Baseline.Y)
	w.buf.WriteString(literal(winAnsi(t.Text)))
	w.raw(" Tj")
	w.raw("ET")
	w.restore()
}

func (w *contentWriter) line(l Line) {
	w.save(l.Rotation)
	pdfdraw.SetStrokeColor(&w.buf, simpleColor(l.Color))
	pdfdraw.SetLineWidth(&w.buf, l.Thickness)
	w.raw("1 J")
	w.op("m", l.From.X, l.From.Y)
	w.op("l", l.To.X, l.To.Y)
	w.raw("S")
	w.restore()
}

func (w *contentWriter) image(name string, img ImagePlacement) {
	w.save(img.Rotation)
	w.op("cm", img.Width, 0, 0, img.Height, img.Origin.X, img.Origin.Y)
	w.raw("/" + name + " Do")
	w.restore()
}

func simpleColor(c annotation.RGB) color.SimpleColor {
	return color.SimpleColor{R: float32(c.R), G: float32(c.G), B: float32(c.B)}
}

// winAnsi encodes s for a WinAnsiEncoding font. Runes outside the code page
// become '?'.
func winAnsi(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return out
}

// literal writes b as a PDF literal string.
func literal(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) + 2)
	sb.WriteByte('(')
	for _, c := range b {
		switch c {
		case '\\', '(', ')':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case '\r':
			sb.WriteString(`\r`)
		case '\n':
			sb.WriteString(`\n`)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte(')')
	return sb.String()
}
