package annotation

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const snapshot = `{
  "version": "6.0.0",
  "objects": [
    {"type": "Textbox", "left": 100, "top": 900, "width": 200, "fontSize": 14, "fill": "#000000", "text": "John Doe", "scaleX": 1, "scaleY": 1},
    {"type": "Textbox", "left": 50, "top": 60, "width": 20, "fontSize": 18, "fill": "#16a34a", "text": "✓", "isCheckmark": true},
    {"type": "textbox", "left": 70, "top": 80, "fill": {"type": "linear"}, "text": "✓ Approved"},
    {"type": "Rect", "left": 10, "top": 20, "width": 150, "height": 60, "scaleX": 2, "scaleY": 1, "stroke": "#DC2626"},
    {"type": "Rect", "left": 10, "top": 20, "width": 150, "height": 60, "stroke": "#2563eb"},
    {"type": "Image", "left": 30, "top": 40, "width": 400, "height": 160, "scaleX": 0.5, "scaleY": 0.5, "angle": 90,
     "src": "data:image/png;base64,AQID", "isSignatureImage": true},
    {"type": "Image", "left": 30, "top": 40, "src": "https://example.com/logo.png"},
    {"type": "Circle", "left": 1, "top": 1}
  ]
}`

func TestDecodeCanvas(t *testing.T) {
	c, err := DecodeCanvas([]byte(snapshot))
	if err != nil {
		t.Fatalf("DecodeCanvas: %v", err)
	}

	want := []Annotation{
		Text{Anchor: Anchor{Left: 100, Top: 900}, Text: "John Doe", FontSize: 14, Fill: "#000000"},
		Symbol{Anchor: Anchor{Left: 50, Top: 60}, Glyph: CheckLight, FontSize: 18, Fill: "#16a34a"},
		Text{Anchor: Anchor{Left: 70, Top: 80}, Text: "✓ Approved", FontSize: 14, Fill: DefaultFill},
		SignaturePlaceholder{Anchor: Anchor{Left: 10, Top: 20}, Width: 150, Height: 60, ScaleX: 2, ScaleY: 1},
		Signature{Anchor: Anchor{Left: 30, Top: 40, Angle: 90}, Image: []byte{1, 2, 3}, Width: 400, Height: 160, ScaleX: 0.5, ScaleY: 0.5},
	}
	if diff := cmp.Diff(want, c.Annotations); diff != "" {
		t.Errorf("annotations mismatch (-want +got):\n%s", diff)
	}
	if c.Ignored != 3 {
		t.Errorf("ignored = %d, want 3", c.Ignored)
	}
}

func TestDecodeCanvas_CheckmarkFlagRequiresGlyph(t *testing.T) {
	c, err := DecodeCanvas([]byte(`{"objects":[{"type":"textbox","text":"yes","isCheckmark":true}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Annotations) != 1 || c.Annotations[0].Kind() != KindText {
		t.Errorf("flagged textbox without a check glyph should stay text, got %+v", c.Annotations)
	}
}

func TestDecodeCanvas_CustomSentinel(t *testing.T) {
	data := []byte(`{"objects":[{"type":"rect","stroke":"#00ff00","width":10,"height":10}]}`)
	c, err := CanvasDecoder{PlaceholderStroke: "#00FF00"}.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Annotations) != 1 || c.Annotations[0].Kind() != KindPlaceholder {
		t.Errorf("expected one placeholder, got %+v", c.Annotations)
	}
}

func TestDecodeCanvas_Malformed(t *testing.T) {
	if _, err := DecodeCanvas([]byte(`not json`)); err == nil {
		t.Error("expected error")
	}
}
