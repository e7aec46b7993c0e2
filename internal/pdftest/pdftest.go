// Package pdftest builds small, well-formed PDFs for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/Lllllllleong/formflow/internal/geometry"
)

// A4 is the page size most fixtures use.
var A4 = geometry.Size{Width: 595, Height: 842}

// Build returns an uncompressed PDF with one page per size. Page n shows
// the text "Page n" in Helvetica via the font resource /F1.
func Build(sizes ...geometry.Size) []byte {
	var objs []string
	kids := ""
	for i := range sizes {
		kids += fmt.Sprintf("%d 0 R ", 4+2*i)
	}
	objs = append(objs,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [ %s] /Count %d >>", kids, len(sizes)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	)
	for i, s := range sizes {
		content := fmt.Sprintf("BT /F1 12 Tf 72 72 Td (Page %d) Tj ET", i+1)
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %s %s] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
				f(s.Width), f(s.Height), 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objs)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func f(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
