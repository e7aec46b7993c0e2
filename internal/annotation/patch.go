package annotation

import (
	"errors"
	"fmt"
)

// ErrKindMismatch is returned when a patch targets a different kind of
// annotation than the one it is applied to.
var ErrKindMismatch = errors.New("patch does not match annotation kind")

// ErrNilPatch is returned when Apply is given no patch.
var ErrNilPatch = errors.New("patch is nil")

// Patch is a typed partial update for one annotation kind. Nil fields are
// left untouched.
type Patch interface {
	target() Kind
}

// AnchorPatch moves or rotates any annotation.
type AnchorPatch struct {
	Left  *float64
	Top   *float64
	Angle *float64
}

// TextPatch updates a Text annotation.
type TextPatch struct {
	AnchorPatch
	Text     *string
	FontSize *float64
	Fill     *RGBHex
}

// SymbolPatch updates a Symbol annotation.
type SymbolPatch struct {
	AnchorPatch
	Glyph    *string
	FontSize *float64
	Fill     *RGBHex
}

// SignaturePatch updates a Signature annotation.
type SignaturePatch struct {
	AnchorPatch
	Image  []byte
	ScaleX *float64
	ScaleY *float64
}

// PlaceholderPatch updates a SignaturePlaceholder annotation.
type PlaceholderPatch struct {
	AnchorPatch
	ScaleX *float64
	ScaleY *float64
}

func (TextPatch) target() Kind        { return KindText }
func (SymbolPatch) target() Kind      { return KindSymbol }
func (SignaturePatch) target() Kind   { return KindSignature }
func (PlaceholderPatch) target() Kind { return KindPlaceholder }

func (p AnchorPatch) apply(a Anchor) Anchor {
	setFloat(&a.Left, p.Left)
	setFloat(&a.Top, p.Top)
	setFloat(&a.Angle, p.Angle)
	return a
}

// Apply returns a copy of a with patch applied. The original is not
// modified. Patches may be passed by value or by pointer.
func Apply(a Annotation, patch Patch) (Annotation, error) {
	patch, err := patchValue(patch)
	if err != nil {
		return nil, err
	}
	mismatch := fmt.Errorf("%w: %s patch on %s", ErrKindMismatch, patch.target(), a.Kind())

	switch v := a.(type) {
	case Text:
		p, ok := patch.(TextPatch)
		if !ok {
			return nil, mismatch
		}
		v.Anchor = p.apply(v.Anchor)
		if p.Text != nil {
			v.Text = *p.Text
		}
		setFloat(&v.FontSize, p.FontSize)
		if p.Fill != nil {
			v.Fill = *p.Fill
		}
		return v, nil
	case Symbol:
		p, ok := patch.(SymbolPatch)
		if !ok {
			return nil, mismatch
		}
		v.Anchor = p.apply(v.Anchor)
		if p.Glyph != nil {
			if !IsCheckGlyph(*p.Glyph) {
				return nil, fmt.Errorf("symbol glyph %q is not a checkmark", *p.Glyph)
			}
			v.Glyph = *p.Glyph
		}
		setFloat(&v.FontSize, p.FontSize)
		if p.Fill != nil {
			v.Fill = *p.Fill
		}
		return v, nil
	case Signature:
		p, ok := patch.(SignaturePatch)
		if !ok {
			return nil, mismatch
		}
		v.Anchor = p.apply(v.Anchor)
		if p.Image != nil {
			v.Image = p.Image
		}
		setFloat(&v.ScaleX, p.ScaleX)
		setFloat(&v.ScaleY, p.ScaleY)
		return v, nil
	case SignaturePlaceholder:
		p, ok := patch.(PlaceholderPatch)
		if !ok {
			return nil, mismatch
		}
		v.Anchor = p.apply(v.Anchor)
		setFloat(&v.ScaleX, p.ScaleX)
		setFloat(&v.ScaleY, p.ScaleY)
		return v, nil
	}
	return nil, fmt.Errorf("unsupported annotation %T", a)
}

// patchValue dereferences pointer patches so Apply can match on values.
func patchValue(patch Patch) (Patch, error) {
	switch p := patch.(type) {
	case nil:
		return nil, ErrNilPatch
	case TextPatch, SymbolPatch, SignaturePatch, PlaceholderPatch:
		return p, nil
	case *TextPatch:
		if p != nil {
			return *p, nil
		}
	case *SymbolPatch:
		if p != nil {
			return *p, nil
		}
	case *SignaturePatch:
		if p != nil {
			return *p, nil
		}
	case *PlaceholderPatch:
		if p != nil {
			return *p, nil
		}
	default:
		return nil, fmt.Errorf("unsupported patch %T", patch)
	}
	return nil, ErrNilPatch
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}
