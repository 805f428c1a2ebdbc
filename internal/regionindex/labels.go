package regionindex

import "sort"

// microstateFontSize is the label font size the map uses for microstates.
const microstateFontSize = "2"

func (ix *Index) buildLabels() {
	if ix.labelsNode == nil {
		return
	}
	for _, n := range ix.labelsNode.Children() {
		if !isText(n) || len(n.ID()) < 2 {
			continue
		}
		countryID := n.ID()[:2]
		if _, dup := ix.labels[countryID]; dup {
			continue
		}
		if meta, ok := ix.meta[countryID]; ok && meta.Name != "" && n.Text() != meta.Name {
			n.SetText(meta.Name)
		}
		n.SetAttr("fill", ix.style.LabelFill.Out)
		l := &Label{
			CountryID:  countryID,
			Text:       n.Text(),
			Microstate: n.Attr("font-size") == microstateFontSize,
			node:       n,
		}
		ix.labels[countryID] = l
		if !l.Microstate {
			continue
		}
		if !ix.style.ShowMicroLabels {
			setHidden(n, true)
			l.Hidden = true
		}
		if c, ok := ix.regions[countryID]; ok {
			c.Microstate = true
			if !ix.style.ShowMicroStates {
				setHidden(c.node, true)
			}
		}
	}
	if !ix.style.ShowLabels {
		setHidden(ix.labelsNode, true)
	}
}

func setHidden(n Node, hidden bool) {
	if hidden {
		n.SetAttr("display", "none")
		return
	}
	n.SetAttr("display", "block")
}

func isHidden(n Node) bool { return n.Attr("display") == "none" }

func (ix *Index) setLabelFill(countryID string, m Mode) {
	if l, ok := ix.labels[countryID]; ok {
		l.node.SetAttr("fill", ix.style.LabelFill.For(m))
	}
}

// LabelSet selects which labels ToggleLabels flips.
type LabelSet string

const (
	LabelsAll   LabelSet = "all"
	LabelsMicro LabelSet = "micro"
)

// ToggleLabels flips visibility of the whole label layer or of the
// microstate labels only.
func (ix *Index) ToggleLabels(which LabelSet) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	switch which {
	case LabelsAll:
		if ix.labelsNode == nil {
			return ErrNotFound
		}
		setHidden(ix.labelsNode, !isHidden(ix.labelsNode))
	case LabelsMicro:
		for _, l := range ix.labels {
			if !l.Microstate {
				continue
			}
			l.Hidden = !isHidden(l.node)
			setHidden(l.node, l.Hidden)
		}
	default:
		return ErrNotFound
	}
	return nil
}

// Labels returns the map labels sorted by country id, with their current
// visibility.
func (ix *Index) Labels() []Label {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	layerHidden := ix.labelsNode != nil && isHidden(ix.labelsNode)
	out := make([]Label, 0, len(ix.labels))
	for _, l := range ix.labels {
		c := *l
		c.Hidden = layerHidden || isHidden(l.node)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CountryID < out[j].CountryID })
	return out
}
