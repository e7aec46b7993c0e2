// Package inspect reads an exported PDF back into page sizes and the text
// runs drawn on each page.
package inspect

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Report summarizes a document.
type Report struct {
	PageCount int    `json:"pageCount"`
	Pages     []Page `json:"pages"`
}

// Page is one page's size and text.
type Page struct {
	Number int     `json:"number"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Runs   []Run   `json:"runs"`
}

// Run is a sequence of glyphs sharing a baseline, font and size.
type Run struct {
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Font     string  `json:"font"`
	FontSize float64 `json:"fontSize"`
}

// Find returns the first run containing text and its 1-based page number.
func (r *Report) Find(text string) (Run, int, bool) {
	for _, p := range r.Pages {
		for _, run := range p.Runs {
			if strings.Contains(run.Text, text) {
				return run, p.Number, true
			}
		}
	}
	return Run{}, 0, false
}

// Read parses data and collects every page's text runs.
func Read(data []byte) (*Report, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	dims, err := api.PageDims(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("read page sizes: %w", err)
	}

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	n := reader.NumPage()
	if n != len(dims) {
		return nil, fmt.Errorf("page count mismatch: %d pages, %d sizes", n, len(dims))
	}

	rep := &Report{PageCount: n, Pages: make([]Page, n)}
	for i := 1; i <= n; i++ {
		page := Page{Number: i, Width: dims[i-1].Width, Height: dims[i-1].Height}
		p := reader.Page(i)
		if !p.V.IsNull() {
			texts, err := pageTexts(p)
			if err != nil {
				return nil, fmt.Errorf("read page %d: %w", i, err)
			}
			page.Runs = groupRuns(texts)
		}
		rep.Pages[i-1] = page
	}
	return rep, nil
}

// pageTexts converts the parser's panics on broken content into errors.
func pageTexts(p pdflib.Page) (texts []pdflib.Text, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse content: %v", r)
		}
	}()
	return p.Content().Text, nil
}

const sameLine = 0.01

func groupRuns(texts []pdflib.Text) []Run {
	var runs []Run
	var cur *Run
	var sb strings.Builder
	flush := func() {
		if cur != nil {
			cur.Text = sb.String()
			runs = append(runs, *cur)
			cur = nil
			sb.Reset()
		}
	}
	for _, t := range texts {
		if cur == nil || math.Abs(cur.Y-t.Y) > sameLine || cur.Font != t.Font || math.Abs(cur.FontSize-t.FontSize) > sameLine {
			flush()
			cur = &Run{X: t.X, Y: t.Y, Font: t.Font, FontSize: t.FontSize}
		}
		sb.WriteString(t.S)
	}
	flush()
	return runs
}

// ErrNotFound is returned by Locate when no run contains the text.
var ErrNotFound = errors.New("text not found")

// Locate is Find with an error for callers that report failures.
func (r *Report) Locate(text string) (Run, int, error) {
	run, page, ok := r.Find(text)
	if !ok {
		return Run{}, 0, fmt.Errorf("%w: %q", ErrNotFound, text)
	}
	return run, page, nil
}
