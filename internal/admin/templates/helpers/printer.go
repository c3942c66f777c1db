package helpers

import (
	"context"
	"io"
	"sort"

	"github.com/a-h/templ"
)

// Printer writes markup for hand-built components and keeps the first error,
// so a render reads top to bottom with a single check at the end.
type Printer struct {
	w   io.Writer
	err error
}

// NewPrinter wraps w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Raw writes s verbatim.
func (p *Printer) Raw(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

// Text writes s HTML-escaped.
func (p *Printer) Text(s string) {
	p.Raw(templ.EscapeString(s))
}

// Attr writes ` name="value"` with value escaped.
func (p *Printer) Attr(name, value string) {
	p.Raw(" " + name + `="` + templ.EscapeString(value) + `"`)
}

// URLAttr writes a URL attribute, sanitised by templ.URL.
func (p *Printer) URLAttr(name, value string) {
	p.Attr(name, string(templ.URL(value)))
}

// BoolAttr writes name when on is true.
func (p *Printer) BoolAttr(name string, on bool) {
	if on {
		p.Raw(" " + name)
	}
}

// Attrs writes attrs in a stable order. Boolean values render as bare attributes.
func (p *Printer) Attrs(attrs templ.Attributes) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := attrs[k].(type) {
		case string:
			p.Attr(k, v)
		case bool:
			p.BoolAttr(k, v)
		}
	}
}

// Component renders c unless it is nil.
func (p *Printer) Component(ctx context.Context, c templ.Component) {
	if p.err != nil || c == nil {
		return
	}
	p.err = c.Render(ctx, p.w)
}

// Err returns the first write error.
func (p *Printer) Err() error {
	return p.err
}
