package regionindex_test

import (
	"github.com/couchcryptid/svg-world-map/internal/regionindex"
)

// fakeNode is an in-memory element tree.
type fakeNode struct {
	tag      string
	attrs    map[string]string
	text     string
	children []*fakeNode
}

func el(tag, id string, children ...*fakeNode) *fakeNode {
	n := &fakeNode{tag: tag, attrs: map[string]string{}, children: children}
	if id != "" {
		n.attrs["id"] = id
	}
	return n
}

func (n *fakeNode) with(name, value string) *fakeNode {
	n.attrs[name] = value
	return n
}

func (n *fakeNode) withText(text string) *fakeNode {
	n.text = text
	return n
}

func (n *fakeNode) ID() string                 { return n.attrs["id"] }
func (n *fakeNode) Tag() string                { return n.tag }
func (n *fakeNode) Attr(name string) string    { return n.attrs[name] }
func (n *fakeNode) SetAttr(name, value string) { n.attrs[name] = value }
func (n *fakeNode) Text() string               { return n.text }
func (n *fakeNode) SetText(text string)        { n.text = text }

func (n *fakeNode) Children() []regionindex.Node {
	out := make([]regionindex.Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

// find returns the first node with id in document order.
func (n *fakeNode) find(id string) *fakeNode {
	if n.ID() == id {
		return n
	}
	for _, c := range n.children {
		if f := c.find(id); f != nil {
			return f
		}
	}
	return nil
}
