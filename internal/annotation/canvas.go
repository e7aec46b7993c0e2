package annotation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Lllllllleong/formflow/internal/imaging"
)

// PlaceholderStroke is the border colour that marks a rectangle as a
// signature drop-zone.
const PlaceholderStroke RGBHex = "#dc2626"

// Canvas is an editor snapshot reduced to the annotations that flatten.
type Canvas struct {
	Width       float64
	Height      float64
	Annotations []Annotation
	// Ignored counts snapshot objects that are not overlay annotations.
	Ignored int
}

// CanvasDecoder turns the editor's saved canvas JSON into annotations.
type CanvasDecoder struct {
	// PlaceholderStroke overrides the signature drop-zone sentinel colour.
	PlaceholderStroke RGBHex
}

// DecodeCanvas decodes a snapshot with the default sentinel colour.
func DecodeCanvas(data []byte) (*Canvas, error) {
	return CanvasDecoder{}.Decode(data)
}

type canvasSnapshot struct {
	Width   float64        `json:"width"`
	Height  float64        `json:"height"`
	Objects []canvasObject `json:"objects"`
}

type canvasObject struct {
	Type     string          `json:"type"`
	Left     float64         `json:"left"`
	Top      float64         `json:"top"`
	Width    float64         `json:"width"`
	Height   float64         `json:"height"`
	ScaleX   float64         `json:"scaleX"`
	ScaleY   float64         `json:"scaleY"`
	Angle    float64         `json:"angle"`
	Fill     json.RawMessage `json:"fill"`
	Stroke   json.RawMessage `json:"stroke"`
	Text     string          `json:"text"`
	FontSize float64         `json:"fontSize"`
	Src      string          `json:"src"`

	IsCheckmark      bool `json:"isCheckmark"`
	IsSignatureImage bool `json:"isSignatureImage"`
}

// Decode parses data. Objects in the snapshot keep their order.
func (d CanvasDecoder) Decode(data []byte) (*Canvas, error) {
	var snap canvasSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode canvas snapshot: %w", err)
	}

	sentinel := d.PlaceholderStroke
	if sentinel == "" {
		sentinel = PlaceholderStroke
	}

	c := &Canvas{Width: snap.Width, Height: snap.Height}
	for _, obj := range snap.Objects {
		a, ok := obj.annotation(sentinel)
		if !ok {
			c.Ignored++
			continue
		}
		c.Annotations = append(c.Annotations, a)
	}
	return c, nil
}

func (o canvasObject) annotation(sentinel RGBHex) (Annotation, bool) {
	anchor := Anchor{Left: o.Left, Top: o.Top, Angle: o.Angle}

	switch strings.ToLower(o.Type) {
	case "textbox":
		fill := fillOrDefault(RGBHex(colourString(o.Fill)))
		size := orDefault(o.FontSize, DefaultFontSize)
		if o.IsCheckmark && IsCheckGlyph(o.Text) {
			return Symbol{Anchor: anchor, Glyph: o.Text, FontSize: size, Fill: fill}, true
		}
		return Text{Anchor: anchor, Text: o.Text, FontSize: size, Fill: fill}, true
	case "rect":
		if !RGBHex(colourString(o.Stroke)).Equal(sentinel) {
			return nil, false
		}
		return SignaturePlaceholder{
			Anchor: anchor,
			Width:  orDefault(o.Width, DefaultWidth),
			Height: orDefault(o.Height, DefaultHeight),
			ScaleX: orDefault(o.ScaleX, 1),
			ScaleY: orDefault(o.ScaleY, 1),
		}, true
	case "image":
		if !o.IsSignatureImage {
			return nil, false
		}
		// A src that is not an inline data URL leaves Image empty; the
		// engine reports that annotation as an embed failure.
		img, _, err := imaging.DecodeDataURL(o.Src)
		if err != nil {
			img = nil
		}
		return Signature{
			Anchor: anchor,
			Image:  img,
			Width:  orDefault(o.Width, DefaultWidth),
			Height: orDefault(o.Height, DefaultHeight),
			ScaleX: orDefault(o.ScaleX, 1),
			ScaleY: orDefault(o.ScaleY, 1),
		}, true
	}
	return nil, false
}

// colourString returns a JSON colour value when it is a plain string.
// Gradients and patterns decode to "".
func colourString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}
