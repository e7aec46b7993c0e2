package geometry

import (
	"math"
	"testing"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < eps }

var a4 = Size{Width: 595, Height: 842}

func TestMapToPage_Scenario(t *testing.T) {
	p := MapToPage(Size{Width: 595, Height: 2 * 842}, 842, a4, 900, 100)

	if p.PageIndex != 1 {
		t.Errorf("expected page index 1, got %d", p.PageIndex)
	}
	if !near(p.YOnPage, 58) {
		t.Errorf("expected yOnPage 58, got %v", p.YOnPage)
	}
	if !near(p.ScaleX, 1) || !near(p.ScaleY, 1) {
		t.Errorf("expected unit scale, got %v/%v", p.ScaleX, p.ScaleY)
	}
	if !near(p.PDFX, 100) {
		t.Errorf("expected pdfX 100, got %v", p.PDFX)
	}
	if !near(p.PDFYTopAligned, 784) {
		t.Errorf("expected top-aligned Y 784, got %v", p.PDFYTopAligned)
	}
}

func TestMapToPage_Pagination(t *testing.T) {
	const h = 842.0
	p := MapToPage(Size{Width: 595, Height: 3 * h}, h, a4, 1.5*h, 0)
	if p.PageIndex != 1 {
		t.Errorf("expected page index 1, got %d", p.PageIndex)
	}
	if !near(p.YOnPage, 0.5*h) {
		t.Errorf("expected yOnPage %v, got %v", 0.5*h, p.YOnPage)
	}
}

func TestMapToPage_AxisFlip(t *testing.T) {
	const h = 842.0
	canvas := Size{Width: 595, Height: h}

	top := MapToPage(canvas, h, a4, 0, 0)
	if !near(top.PDFYTopAligned, a4.Height) {
		t.Errorf("top of page should map to page height, got %v", top.PDFYTopAligned)
	}

	// Just above the page boundary stays on page 0 and lands near PDF y=0.
	bottom := MapToPage(canvas, h, a4, h-1e-6, 0)
	if bottom.PageIndex != 0 {
		t.Fatalf("expected page 0, got %d", bottom.PageIndex)
	}
	if math.Abs(bottom.PDFYTopAligned) > 1e-3 {
		t.Errorf("bottom of page should map near 0, got %v", bottom.PDFYTopAligned)
	}

	// Exactly at the boundary belongs to the next page's top.
	next := MapToPage(Size{Width: 595, Height: 2 * h}, h, a4, h, 0)
	if next.PageIndex != 1 || !near(next.PDFYTopAligned, a4.Height) {
		t.Errorf("boundary should start page 1 at its top, got page %d y %v", next.PageIndex, next.PDFYTopAligned)
	}
}

func TestMapToPage_IndependentPageScale(t *testing.T) {
	letter := Size{Width: 612, Height: 792}
	tests := []struct {
		name       string
		page       Size
		wantScaleX float64
		wantScaleY float64
	}{
		{"a4 matches canvas", a4, 1, 1},
		{"letter", letter, 612.0 / 595, 792.0 / 842},
		{"double size", Size{Width: 1190, Height: 1684}, 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := MapToPage(Size{Width: 595, Height: 842}, 842, tt.page, 421, 100)
			if !near(p.ScaleX, tt.wantScaleX) || !near(p.ScaleY, tt.wantScaleY) {
				t.Errorf("scale = %v/%v, want %v/%v", p.ScaleX, p.ScaleY, tt.wantScaleX, tt.wantScaleY)
			}
			if !near(p.PDFX, 100*tt.wantScaleX) {
				t.Errorf("pdfX = %v, want %v", p.PDFX, 100*tt.wantScaleX)
			}
			if !near(p.PDFYTopAligned, tt.page.Height-421*tt.wantScaleY) {
				t.Errorf("pdfY = %v", p.PDFYTopAligned)
			}
		})
	}
}

func TestPageIndex(t *testing.T) {
	tests := []struct {
		top  float64
		want int
	}{
		{0, 0},
		{841.9, 0},
		{842, 1},
		{1263, 1},
		{2526, 3},
		{-1, -1},
	}
	for _, tt := range tests {
		if got := PageIndex(tt.top, 842); got != tt.want {
			t.Errorf("PageIndex(%v) = %d, want %d", tt.top, got, tt.want)
		}
	}
}
