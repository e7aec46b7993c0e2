package inspect

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/Lllllllleong/formflow/internal/annotation"
	"github.com/Lllllllleong/formflow/internal/flatten"
	"github.com/Lllllllleong/formflow/internal/geometry"
	"github.com/Lllllllleong/formflow/internal/pdftest"
	"github.com/google/go-cmp/cmp"
)

func TestRead_SourceFixture(t *testing.T) {
	letter := geometry.Size{Width: 612, Height: 792}
	rep, err := Read(pdftest.Build(pdftest.A4, letter))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if rep.PageCount != 2 {
		t.Fatalf("expected 2 pages, got %d", rep.PageCount)
	}

	gotSizes := []geometry.Size{
		{Width: rep.Pages[0].Width, Height: rep.Pages[0].Height},
		{Width: rep.Pages[1].Width, Height: rep.Pages[1].Height},
	}
	if diff := cmp.Diff([]geometry.Size{pdftest.A4, letter}, gotSizes); diff != "" {
		t.Errorf("page sizes mismatch (-want +got):\n%s", diff)
	}

	run, page, ok := rep.Find("Page 2")
	if !ok || page != 2 {
		t.Fatalf("expected fixture text on page 2, got page %d ok=%v", page, ok)
	}
	if math.Abs(run.Y-72) > 0.5 {
		t.Errorf("expected baseline near 72, got %v", run.Y)
	}
}

func TestRead_FlattenedText(t *testing.T) {
	eng, err := flatten.NewEngine(flatten.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	anns := []annotation.Annotation{
		annotation.Text{
			Anchor:   annotation.Anchor{Left: 100, Top: 900},
			Text:     "John Doe",
			FontSize: 14,
			Fill:     "#000000",
		},
	}
	res, err := eng.Export(context.Background(), pdftest.Build(pdftest.A4, pdftest.A4), anns, nil)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	rep, err := Read(res.PDF)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	run, page, err := rep.Locate("John Doe")
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if page != 2 {
		t.Errorf("expected the annotation on page 2, got %d", page)
	}
	if math.Abs(run.X-100) > 0.5 || math.Abs(run.Y-767.2) > 0.5 {
		t.Errorf("expected run near (100, 767.2), got (%v, %v)", run.X, run.Y)
	}
	if _, _, ok := rep.Find("Page 1"); !ok {
		t.Error("original page text missing after export")
	}
}

func TestRead_Errors(t *testing.T) {
	if _, err := Read([]byte("not a pdf")); err == nil {
		t.Error("expected an error for garbage input")
	}

	rep := &Report{}
	if _, _, err := rep.Locate("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
