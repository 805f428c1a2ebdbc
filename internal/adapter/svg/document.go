// Package svg adapts an SVG map document to the region index node model.
package svg

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/PuerkitoBio/goquery"

	"github.com/couchcryptid/svg-world-map/internal/regionindex"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

// Document is a parsed SVG map. The tree is mutated in place by the region
// index; callers serialize access through regionindex.Index.Do.
type Document struct {
	doc  *goquery.Document
	root *goquery.Selection
}

// Parse reads an SVG document. The HTML parser handles SVG as foreign content,
// which keeps element and attribute names and ids intact.
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}
	root := doc.Find("svg").First()
	if root.Length() == 0 {
		return nil, errors.New("parse svg: no <svg> root element")
	}
	return &Document{doc: doc, root: root}, nil
}

// ParseBytes parses an in-memory SVG document.
func ParseBytes(data []byte) (*Document, error) {
	return Parse(bytes.NewReader(data))
}

// ReadFile loads the raw bytes of an SVG file.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read svg %s: %w", path, err)
	}
	return data, nil
}

// LoadFile reads and parses an SVG file. Every call yields a fresh tree.
func LoadFile(path string) (*Document, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBytes(data)
}

// Root returns the <svg> element.
func (d *Document) Root() regionindex.Node {
	return element{sel: d.root}
}

// Render writes the current document as standalone SVG.
func (d *Document) Render(w io.Writer) error {
	out, err := goquery.OuterHtml(d.root)
	if err != nil {
		return fmt.Errorf("render svg: %w", err)
	}
	if _, err := io.WriteString(w, xmlHeader+out); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

// element wraps a single-node selection.
type element struct {
	sel *goquery.Selection
}

func (e element) ID() string                 { return e.sel.AttrOr("id", "") }
func (e element) Tag() string                { return goquery.NodeName(e.sel) }
func (e element) Attr(name string) string    { return e.sel.AttrOr(name, "") }
func (e element) SetAttr(name, value string) { e.sel.SetAttr(name, value) }
func (e element) Text() string               { return e.sel.Text() }
func (e element) SetText(text string)        { e.sel.SetText(text) }

func (e element) Children() []regionindex.Node {
	kids := e.sel.Children()
	out := make([]regionindex.Node, 0, kids.Length())
	kids.Each(func(_ int, s *goquery.Selection) {
		out = append(out, element{sel: s})
	})
	return out
}
