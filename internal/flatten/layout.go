package flatten

import (
	"fmt"
	"os"

	"github.com/Lllllllleong/formflow/internal/annotation"
	"github.com/Lllllllleong/formflow/internal/geometry"
	"gopkg.in/yaml.v3"
)

// Layout holds the conventions the editor and the engine must agree on.
type Layout struct {
	// CanvasWidth is the editor canvas width. Zero uses the first page width.
	CanvasWidth float64 `yaml:"canvas_width" json:"canvasWidth"`
	// SinglePageHeight is the canvas height of one page. Zero uses the first
	// page height.
	SinglePageHeight float64 `yaml:"single_page_height" json:"singlePageHeight"`
	// Pagination is "uniform" or "stacked".
	Pagination string `yaml:"pagination" json:"pagination"`
	// TopPaddingRatio is the text box's internal top padding as a fraction
	// of the font size.
	TopPaddingRatio float64 `yaml:"top_padding_ratio" json:"topPaddingRatio"`
	// LineHeight is the distance between text lines as a multiple of the
	// font size.
	LineHeight float64 `yaml:"line_height" json:"lineHeight"`
	// Font is the standard Type1 font every text annotation is drawn with.
	Font string `yaml:"font" json:"font"`
	// ClassicXRef writes a plain cross-reference table instead of
	// cross-reference and object streams.
	ClassicXRef bool `yaml:"classic_xref" json:"classicXref"`
	// PlaceholderStroke is the rectangle stroke that marks a signature drop
	// zone in editor snapshots.
	PlaceholderStroke annotation.RGBHex `yaml:"placeholder_stroke" json:"placeholderStroke"`
}

// DefaultLayout matches the editor: an A4-proportioned canvas.
func DefaultLayout() Layout {
	return Layout{
		CanvasWidth:       595,
		SinglePageHeight:  842,
		Pagination:        geometry.PaginationUniform,
		TopPaddingRatio:   0.2,
		LineHeight:        1.16,
		Font:              "Helvetica",
		ClassicXRef:       true,
		PlaceholderStroke: annotation.PlaceholderStroke,
	}
}

// WinAnsi-encoded standard fonts. Symbol and ZapfDingbats use their own
// encodings and are not offered.
var standardFonts = map[string]bool{
	"Helvetica":             true,
	"Helvetica-Bold":        true,
	"Helvetica-Oblique":     true,
	"Helvetica-BoldOblique": true,
	"Times-Roman":           true,
	"Times-Bold":            true,
	"Times-Italic":          true,
	"Times-BoldItalic":      true,
	"Courier":               true,
	"Courier-Bold":          true,
	"Courier-Oblique":       true,
	"Courier-BoldOblique":   true,
}

// Validate reports the first unusable setting.
func (l Layout) Validate() error {
	if l.CanvasWidth < 0 {
		return fmt.Errorf("canvas width must not be negative, got %v", l.CanvasWidth)
	}
	if l.SinglePageHeight < 0 {
		return fmt.Errorf("single page height must not be negative, got %v", l.SinglePageHeight)
	}
	if l.Pagination != "" && l.Pagination != geometry.PaginationUniform && l.Pagination != geometry.PaginationStacked {
		return fmt.Errorf("unknown pagination mode %q", l.Pagination)
	}
	if l.TopPaddingRatio < 0 {
		return fmt.Errorf("top padding ratio must not be negative, got %v", l.TopPaddingRatio)
	}
	if l.LineHeight <= 0 {
		return fmt.Errorf("line height must be positive, got %v", l.LineHeight)
	}
	if !standardFonts[l.Font] {
		return fmt.Errorf("font %q is not a WinAnsi standard font", l.Font)
	}
	if l.PlaceholderStroke != "" {
		if _, err := l.PlaceholderStroke.Parse(); err != nil {
			return fmt.Errorf("placeholder stroke: %w", err)
		}
	}
	return nil
}

// LoadLayoutFile reads a YAML layout. Keys missing from the file keep their
// DefaultLayout values.
func LoadLayoutFile(path string) (Layout, error) {
	l := DefaultLayout()
	data, err := os.ReadFile(path)
	if err != nil {
		return l, fmt.Errorf("read layout file: %w", err)
	}
	if err := yaml.Unmarshal(data, &l); err != nil {
		return l, fmt.Errorf("parse layout file %s: %w", path, err)
	}
	if err := l.Validate(); err != nil {
		return l, fmt.Errorf("invalid layout in %s: %w", path, err)
	}
	return l, nil
}

// resolve fills the page-derived dimensions from the first page.
func (l Layout) resolve(pages []geometry.Size) Layout {
	if len(pages) == 0 {
		return l
	}
	if l.CanvasWidth == 0 {
		l.CanvasWidth = pages[0].Width
	}
	if l.SinglePageHeight == 0 {
		l.SinglePageHeight = pages[0].Height
	}
	return l
}
