package regionindex

import "strings"

// Node is the view of a graphic document element the index needs. Children
// returns element children only, in document order.
type Node interface {
	ID() string
	Tag() string
	Attr(name string) string
	SetAttr(name, value string)
	Children() []Node
	Text() string
	SetText(text string)
}

const tagGroup = "g"

var shapeTags = map[string]bool{
	"path":     true,
	"polygon":  true,
	"polyline": true,
	"rect":     true,
	"circle":   true,
	"ellipse":  true,
}

func isGroup(n Node) bool { return strings.EqualFold(n.Tag(), tagGroup) }

func isShape(n Node) bool { return shapeTags[strings.ToLower(n.Tag())] }

func isText(n Node) bool { return strings.EqualFold(n.Tag(), "text") }
