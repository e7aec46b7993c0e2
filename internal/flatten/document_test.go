package flatten

import (
	"testing"

	"github.com/Lllllllleong/formflow/internal/pdftest"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

func TestBracketContents(t *testing.T) {
	tests := []struct {
		name string
		// wrap replaces the page's stream reference with another form.
		wrap func(t *testing.T, doc *document, stream types.IndirectRef) types.Object
	}{
		{"direct stream", func(t *testing.T, doc *document, stream types.IndirectRef) types.Object {
			return stream
		}},
		{"inline array", func(t *testing.T, doc *document, stream types.IndirectRef) types.Object {
			return types.Array{stream}
		}},
		{"indirect array", func(t *testing.T, doc *document, stream types.IndirectRef) types.Object {
			ref, err := doc.ctx.IndRefForNewObject(types.Array{stream})
			if err != nil {
				t.Fatalf("add contents array: %v", err)
			}
			return *ref
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := openDocument(pdftest.Build(pdftest.A4), DefaultLayout())
			if err != nil {
				t.Fatalf("openDocument: %v", err)
			}
			p := doc.Page(0)
			stream, ok := p.dict["Contents"].(types.IndirectRef)
			if !ok {
				t.Fatalf("fixture contents = %T, want an indirect stream", p.dict["Contents"])
			}
			p.dict["Contents"] = tt.wrap(t, doc, stream)
			p.ops.raw("0 0 m")

			if err := p.bracketContents(); err != nil {
				t.Fatalf("bracketContents: %v", err)
			}
			got, ok := p.dict["Contents"].(types.Array)
			if !ok || len(got) != 3 {
				t.Fatalf("Contents = %v, want [open original overlay]", p.dict["Contents"])
			}
			for i, obj := range got {
				if _, ok := obj.(types.IndirectRef); !ok {
					t.Errorf("Contents[%d] = %T, want a stream reference", i, obj)
				}
			}
			if got[1] != stream {
				t.Errorf("Contents[1] = %v, want the original stream %v", got[1], stream)
			}
		})
	}
}
