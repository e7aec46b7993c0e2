package flatten

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/Lllllllleong/formflow/internal/geometry"
	"github.com/Lllllllleong/formflow/internal/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// document is a source PDF opened for in-place drawing.
type document struct {
	ctx      *model.Context
	fontName string
	fontRef  *types.IndirectRef
	images   map[string]*types.IndirectRef
	pages    []*pageSurface
	sizes    []geometry.Size
}

func openDocument(src []byte, l Layout) (*document, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if l.ClassicXRef {
		conf.WriteObjectStream = false
		conf.WriteXRefStream = false
	}

	ctx, err := api.ReadContext(bytes.NewReader(src), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
	}

	d := &document{
		ctx:      ctx,
		fontName: l.Font,
		images:   make(map[string]*types.IndirectRef),
		pages:    make([]*pageSurface, ctx.PageCount),
		sizes:    make([]geometry.Size, ctx.PageCount),
	}
	for i := range ctx.PageCount {
		page, err := d.loadPage(i + 1)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrMalformedSource, i+1, err)
		}
		d.pages[i] = page
		d.sizes[i] = page.size
	}
	return d, nil
}

func (d *document) loadPage(nr int) (*pageSurface, error) {
	dict, _, inh, err := d.ctx.PageDict(nr, true)
	if err != nil {
		return nil, err
	}
	if dict == nil || inh == nil || inh.MediaBox == nil {
		return nil, errors.New("page has no media box")
	}
	mb := inh.MediaBox
	return &pageSurface{
		doc:       d,
		dict:      dict,
		inherited: inh.Resources,
		origin:    geometry.Point{X: mb.LL.X, Y: mb.LL.Y},
		size:      geometry.Size{Width: mb.Width(), Height: mb.Height()},
	}, nil
}

// PageSizes returns the media box size of every page in order.
func (d *document) PageSizes() []geometry.Size {
	return d.sizes
}

// Page returns the drawing surface for a zero-based page index.
func (d *document) Page(i int) *pageSurface {
	return d.pages[i]
}

// font returns the shared standard font, adding it on first use.
func (d *document) font() (*types.IndirectRef, error) {
	if d.fontRef != nil {
		return d.fontRef, nil
	}
	ref, err := d.ctx.IndRefForNewObject(types.Dict{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("Type1"),
		"BaseFont": types.Name(d.fontName),
		"Encoding": types.Name("WinAnsiEncoding"),
	})
	if err != nil {
		return nil, err
	}
	d.fontRef = ref
	return ref, nil
}

// image embeds img once per document. Identical image bytes share one
// XObject. JPEG data is passed through; other formats get a soft mask when
// they carry alpha.
func (d *document) image(img *imaging.Image) (*types.IndirectRef, error) {
	key := string(img.Data)
	if ref, ok := d.images[key]; ok {
		return ref, nil
	}
	ref, _, _, err := model.CreateImageResource(d.ctx.XRefTable, bytes.NewReader(img.Data))
	if err != nil {
		return nil, err
	}
	d.images[key] = ref
	return ref, nil
}

// Write commits every page's drawing and serializes the document.
func (d *document) Write() ([]byte, error) {
	for i, p := range d.pages {
		if err := p.flush(); err != nil {
			return nil, fmt.Errorf("commit page %d: %w", i+1, err)
		}
	}
	var buf bytes.Buffer
	if err := api.WriteContext(d.ctx, &buf); err != nil {
		return nil, fmt.Errorf("write document: %w", err)
	}
	return buf.Bytes(), nil
}

// pageSurface collects drawing for one page and merges it into the page's
// content on flush.
type pageSurface struct {
	doc       *document
	dict      types.Dict
	inherited types.Dict
	origin    geometry.Point
	size      geometry.Size

	res      types.Dict
	fonts    types.Dict
	xobjects types.Dict
	fontKey  string
	imgKeys  map[*types.IndirectRef]string
	ops      contentWriter
}

var _ Surface = (*pageSurface)(nil)

func (p *pageSurface) DrawText(t TextRun) error {
	key, err := p.fontResource()
	if err != nil {
		return err
	}
	t.Baseline = p.translate(t.Baseline)
	t.Rotation.Pivot = p.translate(t.Rotation.Pivot)
	p.ops.text(key, t)
	return nil
}

func (p *pageSurface) DrawLine(l Line) error {
	l.From = p.translate(l.From)
	l.To = p.translate(l.To)
	l.Rotation.Pivot = p.translate(l.Rotation.Pivot)
	p.ops.line(l)
	return nil
}

func (p *pageSurface) DrawImage(img ImagePlacement) error {
	key, err := p.imageResource(img.Image)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrImageEmbed, err)
	}
	img.Origin = p.translate(img.Origin)
	img.Rotation.Pivot = p.translate(img.Rotation.Pivot)
	p.ops.image(key, img)
	return nil
}

func (p *pageSurface) translate(pt geometry.Point) geometry.Point {
	return geometry.Point{X: pt.X + p.origin.X, Y: pt.Y + p.origin.Y}
}

// resources replaces the page's resource dictionary with a private inline
// copy so that shared or inherited dictionaries are never mutated.
func (p *pageSurface) resources() (types.Dict, error) {
	if p.res != nil {
		return p.res, nil
	}
	src := p.inherited
	if obj, found := p.dict.Find("Resources"); found && obj != nil {
		d, err := p.doc.ctx.DereferenceDict(obj)
		if err != nil {
			return nil, fmt.Errorf("resolve page resources: %w", err)
		}
		src = d
	}
	res := types.Dict{}
	for k, v := range src {
		res[k] = v
	}
	p.dict["Resources"] = res
	p.res = res
	return res, nil
}

func (p *pageSurface) subResources(category string) (types.Dict, error) {
	res, err := p.resources()
	if err != nil {
		return nil, err
	}
	sub := types.Dict{}
	if obj, ok := res[category]; ok && obj != nil {
		d, err := p.doc.ctx.DereferenceDict(obj)
		if err != nil {
			return nil, fmt.Errorf("resolve %s resources: %w", category, err)
		}
		for k, v := range d {
			sub[k] = v
		}
	}
	res[category] = sub
	return sub, nil
}

func (p *pageSurface) fontResource() (string, error) {
	if p.fontKey != "" {
		return p.fontKey, nil
	}
	if p.fonts == nil {
		fonts, err := p.subResources("Font")
		if err != nil {
			return "", err
		}
		p.fonts = fonts
	}
	ref, err := p.doc.font()
	if err != nil {
		return "", err
	}
	key := freeName(p.fonts, "FF")
	p.fonts[key] = *ref
	p.fontKey = key
	return key, nil
}

func (p *pageSurface) imageResource(img *imaging.Image) (string, error) {
	if p.xobjects == nil {
		xobjects, err := p.subResources("XObject")
		if err != nil {
			return "", err
		}
		p.xobjects = xobjects
		p.imgKeys = make(map[*types.IndirectRef]string)
	}
	ref, err := p.doc.image(img)
	if err != nil {
		return "", err
	}
	if key, ok := p.imgKeys[ref]; ok {
		return key, nil
	}
	key := freeName(p.xobjects, "FFIm")
	p.xobjects[key] = *ref
	p.imgKeys[ref] = key
	return key, nil
}

func freeName(d types.Dict, prefix string) string {
	for i := 1; ; i++ {
		name := prefix + strconv.Itoa(i)
		if _, taken := d[name]; !taken {
			return name
		}
	}
}

// flush appends the collected drawing after the page's original content,
// which is isolated in its own graphics state.
func (p *pageSurface) flush() error {
	if p.ops.buf.Len() == 0 {
		return nil
	}
	original, decoded := p.originalContent()

	if decoded {
		var buf bytes.Buffer
		if len(original) > 0 {
			buf.WriteString("q\n")
			buf.Write(original)
			buf.WriteString("\nQ\n")
		}
		buf.Write(p.ops.buf.Bytes())
		ref, err := p.newContentStream(buf.Bytes())
		if err != nil {
			return err
		}
		p.dict["Contents"] = *ref
		return nil
	}

	return p.bracketContents()
}

// bracketContents leaves the original streams in place and surrounds them
// with new streams. It is used when a stream's filter cannot be decoded.
func (p *pageSurface) bracketContents() error {
	open, err := p.newContentStream([]byte("q\n"))
	if err != nil {
		return err
	}
	closing := append([]byte("Q\n"), p.ops.buf.Bytes()...)
	overlay, err := p.newContentStream(closing)
	if err != nil {
		return err
	}

	original := p.dict["Contents"]
	resolved, err := p.doc.ctx.Dereference(original)
	if err != nil {
		return fmt.Errorf("resolve page contents: %w", err)
	}
	contents := types.Array{*open}
	switch c := resolved.(type) {
	case types.Array:
		contents = append(contents, c...)
	case nil:
	default:
		contents = append(contents, original)
	}
	p.dict["Contents"] = append(contents, *overlay)
	return nil
}

func (p *pageSurface) newContentStream(b []byte) (*types.IndirectRef, error) {
	ctx := p.doc.ctx
	sd, err := ctx.NewStreamDictForBuf(b)
	if err != nil {
		return nil, err
	}
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return ctx.IndRefForNewObject(*sd)
}

// originalContent concatenates the page's decoded content streams. ok is
// false when any stream could not be decoded.
func (p *pageSurface) originalContent() (content []byte, ok bool) {
	obj, found := p.dict.Find("Contents")
	if !found || obj == nil {
		return nil, true
	}
	var buf bytes.Buffer
	if err := p.appendContent(&buf, obj); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}

func (p *pageSurface) appendContent(buf *bytes.Buffer, obj types.Object) error {
	obj, err := p.doc.ctx.Dereference(obj)
	if err != nil {
		return err
	}
	switch o := obj.(type) {
	case types.StreamDict:
		if len(o.Content) == 0 && len(o.Raw) > 0 {
			if err := o.Decode(); err != nil {
				return err
			}
		}
		buf.Write(o.Content)
		buf.WriteByte('\n')
	case types.Array:
		for _, item := range o {
			if err := p.appendContent(buf, item); err != nil {
				return err
			}
		}
	case nil:
	default:
		return fmt.Errorf("unexpected content object %T", obj)
	}
	return nil
}
