package annotation

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/Lllllllleong/formflow/internal/imaging"
)

// Defaults the editor applies when a property is unset.
const (
	DefaultFontSize        = 14
	DefaultFill     RGBHex = "#000000"
	DefaultWidth           = 200
	DefaultHeight          = 80
)

// Wire is the JSON form of an Annotation used in export requests.
type Wire struct {
	Kind      Kind    `json:"kind"`
	Left      float64 `json:"left"`
	Top       float64 `json:"top"`
	Angle     float64 `json:"angle,omitempty"`
	Text      string  `json:"text,omitempty"`
	Glyph     string  `json:"glyph,omitempty"`
	FontSize  float64 `json:"fontSize,omitempty"`
	FillColor RGBHex  `json:"fillColor,omitempty"`
	// ImageData is a base64 data URL (or bare base64) of the signature raster.
	ImageData string  `json:"imageData,omitempty"`
	Width     float64 `json:"width,omitempty"`
	Height    float64 `json:"height,omitempty"`
	ScaleX    float64 `json:"scaleX,omitempty"`
	ScaleY    float64 `json:"scaleY,omitempty"`
}

// Annotation converts w into its typed variant, filling editor defaults.
func (w Wire) Annotation() (Annotation, error) {
	anchor := Anchor{Left: w.Left, Top: w.Top, Angle: w.Angle}

	switch w.Kind {
	case KindText:
		return Text{
			Anchor:   anchor,
			Text:     w.Text,
			FontSize: orDefault(w.FontSize, DefaultFontSize),
			Fill:     fillOrDefault(w.FillColor),
		}, nil
	case KindSymbol:
		glyph := w.Glyph
		if glyph == "" {
			glyph = w.Text
		}
		if !IsCheckGlyph(glyph) {
			return nil, fmt.Errorf("symbol glyph %q is not a checkmark", glyph)
		}
		return Symbol{
			Anchor:   anchor,
			Glyph:    glyph,
			FontSize: orDefault(w.FontSize, DefaultFontSize),
			Fill:     fillOrDefault(w.FillColor),
		}, nil
	case KindSignature:
		var img []byte
		if w.ImageData != "" {
			data, _, err := imaging.DecodeDataURL(w.ImageData)
			if err != nil {
				return nil, fmt.Errorf("signature image: %w", err)
			}
			img = data
		}
		return Signature{
			Anchor: anchor,
			Image:  img,
			Width:  orDefault(w.Width, DefaultWidth),
			Height: orDefault(w.Height, DefaultHeight),
			ScaleX: orDefault(w.ScaleX, 1),
			ScaleY: orDefault(w.ScaleY, 1),
		}, nil
	case KindPlaceholder:
		return SignaturePlaceholder{
			Anchor: anchor,
			Width:  orDefault(w.Width, DefaultWidth),
			Height: orDefault(w.Height, DefaultHeight),
			ScaleX: orDefault(w.ScaleX, 1),
			ScaleY: orDefault(w.ScaleY, 1),
		}, nil
	}
	return nil, fmt.Errorf("unknown annotation kind %q", w.Kind)
}

// ToWire is the inverse of Wire.Annotation.
func ToWire(a Annotation) Wire {
	pos := a.Position()
	w := Wire{Kind: a.Kind(), Left: pos.Left, Top: pos.Top, Angle: pos.Angle}

	switch v := a.(type) {
	case Text:
		w.Text, w.FontSize, w.FillColor = v.Text, v.FontSize, v.Fill
	case Symbol:
		w.Glyph, w.FontSize, w.FillColor = v.Glyph, v.FontSize, v.Fill
	case Signature:
		if len(v.Image) > 0 {
			w.ImageData = "data:image/png;base64," + base64.StdEncoding.EncodeToString(v.Image)
		}
		w.Width, w.Height, w.ScaleX, w.ScaleY = v.Width, v.Height, v.ScaleX, v.ScaleY
	case SignaturePlaceholder:
		w.Width, w.Height, w.ScaleX, w.ScaleY = v.Width, v.Height, v.ScaleX, v.ScaleY
	}
	return w
}

// DecodeList parses a JSON array of wire annotations. It fails on the first
// invalid entry, reporting its index.
func DecodeList(data []byte) ([]Annotation, error) {
	var wires []Wire
	if err := json.Unmarshal(data, &wires); err != nil {
		return nil, fmt.Errorf("json.Unmarshal: %w", err)
	}
	return FromWires(wires)
}

// FromWires converts already-decoded wire annotations.
func FromWires(wires []Wire) ([]Annotation, error) {
	out := make([]Annotation, 0, len(wires))
	for i, w := range wires {
		a, err := w.Annotation()
		if err != nil {
			return nil, fmt.Errorf("annotation %d: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func fillOrDefault(c RGBHex) RGBHex {
	if c == "" {
		return DefaultFill
	}
	return c
}
