package flatten

import (
	"strings"
	"testing"

	"github.com/Lllllllleong/formflow/internal/annotation"
	"github.com/Lllllllleong/formflow/internal/geometry"
	"github.com/google/go-cmp/cmp"
)

func TestNum(t *testing.T) {
	padding := 14 * 0.2
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{767.2, "767.2"},
		{770 - padding, "767.2"},
		{12, "12"},
		{-0.00001, "0"},
		{0.12346, "0.1235"},
		{1e6, "1000000"},
		{-3.5, "-3.5"},
	}
	for _, tt := range tests {
		if got := num(tt.in); got != tt.want {
			t.Errorf("num(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLiteral_Escapes(t *testing.T) {
	got := literal([]byte(`a(b)c\d` + "\n"))
	want := `(a\(b\)c\\d\n)`
	if got != want {
		t.Errorf("literal = %q, want %q", got, want)
	}
}

func TestWinAnsi(t *testing.T) {
	got := winAnsi("é€✓A")
	want := []byte{0xe9, 0x80, '?', 'A'}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("winAnsi mismatch (-want +got):\n%s", diff)
	}
}

func TestContentWriter_Text(t *testing.T) {
	var w contentWriter
	w.text("FF1", TextRun{
		Text:     "John (Jr)",
		Baseline: geometry.Point{X: 100, Y: 767.2},
		Size:     14,
		Color:    annotation.RGB{R: 1},
	})
	got := w.buf.String()
	for _, want := range []string{"q\n", "1.00 0.00 0.00 rg ", "BT\n", "/FF1 14 Tf\n", "100 767.2 Td\n", `(John \(Jr\)) Tj`, "ET\n", "Q\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in content:\n%s", want, got)
		}
	}
	if strings.Contains(got, " cm\n") {
		t.Errorf("unrotated text must not emit a transform:\n%s", got)
	}
}

func TestContentWriter_Line(t *testing.T) {
	var w contentWriter
	w.line(Line{
		From:      geometry.Point{X: 102, Y: 768},
		To:        geometry.Point{X: 107.12346, Y: 763},
		Thickness: 2.4,
		Color:     annotation.RGB{B: 1},
	})
	got := w.buf.String()
	for _, want := range []string{"0.00 0.00 1.00 RG ", "2.40 w ", "1 J\n", "102 768 m\n", "107.1235 763 l\n", "S\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in content:\n%s", want, got)
		}
	}
}

func TestContentWriter_RotatedImage(t *testing.T) {
	var w contentWriter
	w.image("FFIm1", ImagePlacement{
		Origin:   geometry.Point{X: 10, Y: 20},
		Width:    100,
		Height:   40,
		Rotation: Rotation{Degrees: 30, Pivot: geometry.Point{X: 10, Y: 60}},
	})
	got := w.buf.String()
	if strings.Count(got, " cm\n") != 2 {
		t.Errorf("expected rotation and placement transforms:\n%s", got)
	}
	if !strings.Contains(got, "100 0 0 40 10 20 cm\n/FFIm1 Do\n") {
		t.Errorf("expected image placement:\n%s", got)
	}
}
