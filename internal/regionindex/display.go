package regionindex

import "sort"

var kindRank = map[Kind]int{KindCountry: 0, KindProvince: 1, KindSubprovince: 2}

// underSelection reports whether r is the selected region or inside it.
func (ix *Index) underSelection(r *Region) bool {
	sel := ix.selected
	return sel != "" && (r.ID == sel || r.CountryID == sel || r.ProvinceID == sel)
}

// applyTree styles r and everything beneath it for mode. A country with
// provinces is styled through its provinces and its border.
func (ix *Index) applyTree(r *Region, m Mode) {
	if r.Kind == KindCountry {
		for _, b := range r.borders {
			if m != ModeClick && ix.underSelection(r) {
				break
			}
			b.SetAttr("stroke", ix.style.CountryStroke.For(m))
			b.SetAttr("stroke-width", ix.style.CountryStrokeWidth.For(m))
		}
		if !r.IsLeaf() {
			for _, pid := range r.Children {
				ix.applyTree(ix.regions[pid], m)
			}
			return
		}
	}
	ix.applyNode(r, m)
	for _, sid := range r.Children {
		ix.applyNode(ix.regions[sid], m)
	}
}

// applyNode styles a single paintable node. Hover styles never touch the
// selection; a painted color always wins over the mode fill.
func (ix *Index) applyNode(r *Region, m Mode) {
	if m != ModeClick && ix.underSelection(r) {
		return
	}
	fill := r.paint
	if fill == "" {
		fill = ix.style.ProvinceFill.For(m)
	}
	r.node.SetAttr("fill", fill)
	r.node.SetAttr("stroke", ix.style.ProvinceStroke.For(m))
	r.node.SetAttr("stroke-width", ix.style.ProvinceStrokeWidth.For(m))
}

// paintTree sets color on r and every paintable node beneath it.
func (ix *Index) paintTree(r *Region, color string) {
	if r.Kind == KindCountry && !r.IsLeaf() {
		for _, pid := range r.Children {
			ix.paintTree(ix.regions[pid], color)
		}
		return
	}
	ix.paintNode(r, color)
	for _, sid := range r.Children {
		ix.paintNode(ix.regions[sid], color)
	}
}

func (ix *Index) paintNode(r *Region, color string) {
	r.paint = color
	r.node.SetAttr("fill", color)
	r.node.SetAttr("stroke", color)
}

// Paint applies data colors by region id. Countries are painted before
// provinces so a province color overrides its country's. Unknown ids are
// skipped.
func (ix *Index) Paint(colors map[string]string) {
	if len(colors) == 0 {
		return
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()

	targets := make([]*Region, 0, len(colors))
	for id := range colors {
		if r, ok := ix.lookup(id); ok {
			targets = append(targets, r)
		}
	}
	sort.Slice(targets, func(i, j int) bool {
		ri, rj := kindRank[targets[i].Kind], kindRank[targets[j].Kind]
		if ri != rj {
			return ri < rj
		}
		return targets[i].ID < targets[j].ID
	})
	for _, r := range targets {
		ix.paintTree(r, colors[r.ID])
	}
}

// ResetAll drops every painted color and restores the default styles. The
// current selection keeps its click style.
func (ix *Index) ResetAll() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, r := range ix.regions {
		r.paint = ""
	}
	for _, id := range ix.countries {
		ix.applyTree(ix.regions[id], ModeOut)
		if id != ix.selected {
			ix.setLabelFill(id, ModeOut)
		}
	}
	if r, ok := ix.regions[ix.selected]; ok {
		ix.applyTree(r, ModeClick)
	}
}

// Highlight styles a region for mode. A country fans out to all of its
// provinces and its label. The selected region keeps its click style.
func (ix *Index) Highlight(id string, m Mode) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	r, ok := ix.lookup(id)
	if !ok {
		return ErrNotFound
	}
	if r.Kind == KindCountry {
		if m != ModeClick && id == ix.selected {
			return nil
		}
		ix.setLabelFill(id, m)
	}
	ix.applyTree(r, m)
	return nil
}

// Select marks id as the selected region. Selecting the current selection
// clears it. OnClick receives the new selection, or nil when cleared.
func (ix *Index) Select(id string) error {
	ix.mu.Lock()
	r, ok := ix.lookup(id)
	if !ok {
		ix.mu.Unlock()
		return ErrNotFound
	}
	var picked *Region
	if id == ix.selected {
		ix.clearSelection()
	} else {
		old := ix.selected
		ix.selected = id
		ix.applyTree(r, ModeClick)
		if r.Kind == KindCountry {
			ix.setLabelFill(id, ModeClick)
		}
		ix.restore(old)
		c := r.snapshot()
		picked = &c
	}
	ix.mu.Unlock()

	fire(ix.handlers.OnClick, picked)
	return nil
}

// Deselect clears the selection. It is a no-op when nothing is selected.
func (ix *Index) Deselect() {
	ix.mu.Lock()
	had := ix.selected != ""
	ix.clearSelection()
	ix.mu.Unlock()

	if had {
		fire(ix.handlers.OnClick, nil)
	}
}

func (ix *Index) clearSelection() {
	old := ix.selected
	ix.selected = ""
	ix.restore(old)
}

// restore returns a previously selected region to its out style.
func (ix *Index) restore(old string) {
	r, ok := ix.regions[old]
	if !ok {
		return
	}
	ix.applyTree(r, ModeOut)
	if r.Kind == KindCountry && !ix.underSelection(r) {
		ix.setLabelFill(old, ModeOut)
	}
}

// HandlePointer applies a pointer event to the single shape under the
// pointer. Over and out restyle that shape; click toggles its selection.
func (ix *Index) HandlePointer(ev PointerEvent) error {
	if ev.Mode == ModeClick {
		return ix.Select(ev.TargetID)
	}

	ix.mu.Lock()
	r, ok := ix.lookup(ev.TargetID)
	if !ok {
		ix.mu.Unlock()
		return ErrNotFound
	}
	if r.ID != ix.selected {
		ix.applyTree(r, ev.Mode)
	}
	c := r.snapshot()
	ix.mu.Unlock()

	switch ev.Mode {
	case ModeOver:
		fire(ix.handlers.OnOver, &c)
	case ModeOut:
		fire(ix.handlers.OnOut, &c)
	}
	return nil
}

func fire(fn func(*Region), r *Region) {
	if fn != nil {
		fn(r)
	}
}

// Selected returns the selected region, if any.
func (ix *Index) Selected() (Region, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	r, ok := ix.regions[ix.selected]
	if !ok {
		return Region{}, false
	}
	return r.snapshot(), true
}

// Display returns the current visual state of a region's node.
func (ix *Index) Display(id string) (DisplayState, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	r, ok := ix.lookup(id)
	if !ok {
		return DisplayState{}, ErrNotFound
	}
	return DisplayState{
		Fill:        r.node.Attr("fill"),
		Stroke:      r.node.Attr("stroke"),
		StrokeWidth: r.node.Attr("stroke-width"),
		Painted:     r.paint,
		Selected:    ix.underSelection(r),
	}, nil
}
