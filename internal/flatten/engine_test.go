package flatten

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"testing"

	"github.com/Lllllllleong/formflow/internal/annotation"
	"github.com/Lllllllleong/formflow/internal/pdftest"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

func newTestEngine(t *testing.T, strict bool) *Engine {
	t.Helper()
	eng, err := NewEngine(Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Strict: strict,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return eng
}

func signaturePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	img.Set(1, 1, color.NRGBA{A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// pageContent reopens an exported PDF and returns a page's decoded content.
func pageContent(t *testing.T, pdf []byte, index int) string {
	t.Helper()
	doc, err := openDocument(pdf, DefaultLayout())
	if err != nil {
		t.Fatalf("reopen exported pdf: %v", err)
	}
	content, ok := doc.Page(index).originalContent()
	if !ok {
		t.Fatalf("page %d content could not be decoded", index)
	}
	return string(content)
}

// imageXObject reopens an exported PDF and returns the named image on a page.
func imageXObject(t *testing.T, pdf []byte, index int, name string) *types.StreamDict {
	t.Helper()
	doc, err := openDocument(pdf, DefaultLayout())
	if err != nil {
		t.Fatalf("reopen exported pdf: %v", err)
	}
	xobjects, err := doc.Page(index).subResources("XObject")
	if err != nil {
		t.Fatalf("page %d XObject resources: %v", index, err)
	}
	obj, ok := xobjects[name]
	if !ok {
		t.Fatalf("page %d has no XObject %s", index, name)
	}
	sd, _, err := doc.ctx.DereferenceStreamDict(obj)
	if err != nil || sd == nil {
		t.Fatalf("resolve XObject %s: %v", name, err)
	}
	return sd
}

func TestExport_Scenario(t *testing.T) {
	src := pdftest.Build(pdftest.A4, pdftest.A4)
	anns := []annotation.Annotation{
		annotation.Text{
			Anchor:   annotation.Anchor{Left: 100, Top: 900},
			Text:     "John Doe",
			FontSize: 14,
			Fill:     "#000000",
		},
	}

	res, err := newTestEngine(t, false).Export(context.Background(), src, anns, nil)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.PageCount != 2 || res.Drawn != 1 || len(res.Skipped) != 0 {
		t.Fatalf("unexpected result: pages=%d drawn=%d skipped=%v", res.PageCount, res.Drawn, res.Skipped)
	}

	second := pageContent(t, res.PDF, 1)
	for _, want := range []string{"(Page 2) Tj", "100 767.2 Td", "(John Doe) Tj"} {
		if !strings.Contains(second, want) {
			t.Errorf("expected %q on page 2, got:\n%s", want, second)
		}
	}
	first := pageContent(t, res.PDF, 0)
	if strings.Contains(first, "John Doe") {
		t.Errorf("annotation leaked onto page 1:\n%s", first)
	}
	if !strings.Contains(first, "(Page 1) Tj") {
		t.Errorf("page 1 lost its original content:\n%s", first)
	}
}

func TestExport_CheckmarksInText(t *testing.T) {
	src := pdftest.Build(pdftest.A4)
	anns := []annotation.Annotation{
		annotation.Text{Anchor: annotation.Anchor{Left: 20, Top: 20}, Text: "✓ Approved", FontSize: 12},
		annotation.Symbol{Anchor: annotation.Anchor{Left: 20, Top: 60}, Glyph: annotation.CheckLight, FontSize: 12},
	}
	res, err := newTestEngine(t, false).Export(context.Background(), src, anns, nil)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	content := pageContent(t, res.PDF, 0)
	if !strings.Contains(content, "(X Approved) Tj") {
		t.Errorf("expected substituted checkmark text, got:\n%s", content)
	}
	if strings.Count(content, "\nS\n") != 2 {
		t.Errorf("expected two stroked checkmark segments, got:\n%s", content)
	}
}

func TestExport_SkipsWithoutFailing(t *testing.T) {
	src := pdftest.Build(pdftest.A4, pdftest.A4)
	anns := []annotation.Annotation{
		annotation.Text{Anchor: annotation.Anchor{Top: 2000}, Text: "beyond", FontSize: 12},
		annotation.Signature{Anchor: annotation.Anchor{Top: 10}, Image: []byte("not an image"), Width: 10, Height: 10, ScaleX: 1, ScaleY: 1},
		annotation.SignaturePlaceholder{Anchor: annotation.Anchor{Top: 10}, Width: 10, Height: 10, ScaleX: 1, ScaleY: 1},
		annotation.Text{Anchor: annotation.Anchor{Top: 10}, Text: "kept", FontSize: 12},
	}
	res, err := newTestEngine(t, false).Export(context.Background(), src, anns, nil)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Drawn != 1 {
		t.Errorf("expected 1 drawn annotation, got %d", res.Drawn)
	}

	wantErrs := []error{ErrAnnotationOutOfRange, ErrImageEmbed, ErrMissingSignature}
	if len(res.Skipped) != len(wantErrs) {
		t.Fatalf("expected %d skips, got %+v", len(wantErrs), res.Skipped)
	}
	for i, want := range wantErrs {
		if s := res.Skipped[i]; s.Index != i || !errors.Is(s.Err, want) {
			t.Errorf("skip %d: got index %d err %v, want %v", i, s.Index, s.Err, want)
		}
	}
	if !strings.Contains(pageContent(t, res.PDF, 0), "(kept) Tj") {
		t.Error("expected the valid annotation to be drawn")
	}
}

func TestExport_PlaceholderUsesSharedSignature(t *testing.T) {
	src := pdftest.Build(pdftest.A4)
	placeholder := annotation.SignaturePlaceholder{
		Anchor: annotation.Anchor{Left: 50, Top: 100},
		Width:  200, Height: 80, ScaleX: 0.5, ScaleY: 0.5,
	}
	anns := []annotation.Annotation{placeholder, placeholder}

	res, err := newTestEngine(t, false).Export(context.Background(), src, anns, signaturePNG(t))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Drawn != 2 {
		t.Fatalf("expected both placeholders drawn, got %d (skipped %+v)", res.Drawn, res.Skipped)
	}
	content := pageContent(t, res.PDF, 0)
	// 842 - 100 - 40 = 702.
	if !strings.Contains(content, "100 0 0 40 50 702 cm") {
		t.Errorf("expected image placement, got:\n%s", content)
	}
	if strings.Count(content, "/FFIm1 Do") != 2 {
		t.Errorf("expected one shared image resource drawn twice, got:\n%s", content)
	}
}

func TestExport_JPEGSignaturePassesThrough(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := range 40 {
		img.Set(x, x/2, color.RGBA{B: 200, A: 255})
	}
	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	sig := annotation.Signature{
		Anchor: annotation.Anchor{Left: 10, Top: 10},
		Image:  jpg.Bytes(), Width: 40, Height: 20, ScaleX: 1, ScaleY: 1,
	}

	res, err := newTestEngine(t, false).Export(context.Background(), pdftest.Build(pdftest.A4), []annotation.Annotation{sig, sig}, nil)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Drawn != 2 {
		t.Fatalf("expected both signatures drawn, got %d (skipped %+v)", res.Drawn, res.Skipped)
	}
	if content := pageContent(t, res.PDF, 0); strings.Count(content, "/FFIm1 Do") != 2 {
		t.Errorf("identical images should share one resource, got:\n%s", content)
	}

	sd := imageXObject(t, res.PDF, 0, "FFIm1")
	if f := sd.Dict.NameEntry("Filter"); f == nil || *f != "DCTDecode" {
		t.Errorf("Filter = %v, want DCTDecode", sd.Dict["Filter"])
	}
	if n := sd.Dict.IntEntry("Length"); n == nil || *n != jpg.Len() {
		t.Errorf("Length = %v, want the %d source bytes", sd.Dict["Length"], jpg.Len())
	}
}

func TestExport_TransparentPNGGetsSoftMask(t *testing.T) {
	sig := annotation.Signature{
		Anchor: annotation.Anchor{Left: 10, Top: 10},
		Image:  signaturePNG(t), Width: 40, Height: 20, ScaleX: 1, ScaleY: 1,
	}
	res, err := newTestEngine(t, false).Export(context.Background(), pdftest.Build(pdftest.A4), []annotation.Annotation{sig}, nil)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	sd := imageXObject(t, res.PDF, 0, "FFIm1")
	if _, ok := sd.Dict.Find("SMask"); !ok {
		t.Errorf("expected a soft mask for a transparent signature, got %v", sd.Dict)
	}
	if cs := sd.Dict.NameEntry("ColorSpace"); cs == nil || *cs != "DeviceRGB" {
		t.Errorf("ColorSpace = %v, want DeviceRGB", sd.Dict["ColorSpace"])
	}
}

func TestExport_NoAnnotations(t *testing.T) {
	src := pdftest.Build(pdftest.A4, pdftest.A4, pdftest.A4)
	res, err := newTestEngine(t, false).Export(context.Background(), src, nil, nil)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.PageCount != 3 {
		t.Errorf("expected 3 pages, got %d", res.PageCount)
	}
	if got := pageContent(t, res.PDF, 2); !strings.Contains(got, "(Page 3) Tj") || strings.Contains(got, "BT\n") {
		t.Errorf("expected untouched page content, got:\n%s", got)
	}
}

func TestExport_MalformedSource(t *testing.T) {
	_, err := newTestEngine(t, false).Export(context.Background(), []byte("definitely not a pdf"), nil, nil)
	if !errors.Is(err, ErrMalformedSource) {
		t.Fatalf("expected ErrMalformedSource, got %v", err)
	}
}

func TestExport_Strict(t *testing.T) {
	src := pdftest.Build(pdftest.A4)
	anns := []annotation.Annotation{
		annotation.Text{Anchor: annotation.Anchor{Top: 5000}, Text: "beyond", FontSize: 12},
	}
	res, err := newTestEngine(t, true).Export(context.Background(), src, anns, nil)

	var skipped *SkippedError
	if !errors.As(err, &skipped) {
		t.Fatalf("expected *SkippedError, got %v", err)
	}
	if !errors.Is(err, ErrAnnotationOutOfRange) {
		t.Errorf("expected the skip cause to unwrap, got %v", err)
	}
	if res == nil || len(res.PDF) == 0 {
		t.Error("strict mode should still return the rendered document")
	}
}

func TestExport_Deterministic(t *testing.T) {
	src := pdftest.Build(pdftest.A4)
	anns := []annotation.Annotation{
		annotation.Text{Anchor: annotation.Anchor{Left: 10, Top: 10, Angle: 30}, Text: "same", FontSize: 12, Fill: "#336699"},
		annotation.Symbol{Anchor: annotation.Anchor{Left: 10, Top: 50}, Glyph: annotation.CheckHeavy, FontSize: 12},
	}
	eng := newTestEngine(t, false)
	first, err := eng.Export(context.Background(), src, anns, nil)
	if err != nil {
		t.Fatalf("first export: %v", err)
	}
	second, err := eng.Export(context.Background(), src, anns, nil)
	if err != nil {
		t.Fatalf("second export: %v", err)
	}
	if a, b := pageContent(t, first.PDF, 0), pageContent(t, second.PDF, 0); a != b {
		t.Errorf("page content differs between runs:\n%s\n---\n%s", a, b)
	}
	if !bytes.Equal(maskClock(first.PDF), maskClock(second.PDF)) {
		t.Error("exports differ outside the file ID and info dates")
	}
}

// pdfcpu stamps the file ID and the info dates from the clock on write.
var clockFields = regexp.MustCompile(`/ID\s*\[[^\]]*\]|/(CreationDate|ModDate)\s*\([^)]*\)`)

func maskClock(pdf []byte) []byte {
	return clockFields.ReplaceAll(pdf, []byte("/Masked"))
}

func TestExport_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	anns := []annotation.Annotation{annotation.Text{Text: "x", FontSize: 12}}
	_, err := newTestEngine(t, false).Export(ctx, pdftest.Build(pdftest.A4), anns, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewEngine_RejectsInvalidLayout(t *testing.T) {
	l := DefaultLayout()
	l.Font = "Wingdings"
	if _, err := NewEngine(Options{Layout: l}); err == nil {
		t.Fatal("expected an error for a non-standard font")
	}
}
