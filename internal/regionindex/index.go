// Package regionindex builds the country, province and subprovince hierarchy of
// an SVG world map and applies display state to it.
package regionindex

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/svg-world-map/internal/domain"
)

// Reserved top-level ids.
const (
	WorldID  = "World"
	OceanID  = "Ocean"
	LabelsID = "labels"
)

// DefaultReservedPrefix marks top-level nodes that are not geographic.
const DefaultReservedPrefix = "_"

// ErrNotFound is returned by interactive operations for unknown ids.
var ErrNotFound = errors.New("region not found")

// Options configures Build.
type Options struct {
	Metadata       domain.Metadata
	Style          Style
	Handlers       Handlers
	ReservedPrefix string
}

// Index is the region hierarchy of one map document. It is safe for
// concurrent use; all display mutations happen under its lock.
type Index struct {
	mu sync.Mutex

	root       Node
	regions    map[string]*Region
	countries  []string
	world      Node
	ocean      Node
	labelsNode Node
	labels     map[string]*Label
	groups     map[string]map[string][]string
	names      map[string]string
	selected   string

	meta     domain.Metadata
	style    Style
	handlers Handlers
	logger   *slog.Logger

	unresolved atomic.Int64
}

// Build walks the document once and returns its index. Missing metadata,
// duplicate ids and nodes without ids are tolerated and logged.
func Build(root Node, opts Options, logger *slog.Logger) (*Index, error) {
	if root == nil {
		return nil, errors.New("build region index: nil document root")
	}
	if opts.ReservedPrefix == "" {
		opts.ReservedPrefix = DefaultReservedPrefix
	}
	ix := &Index{
		root:     root,
		regions:  make(map[string]*Region),
		labels:   make(map[string]*Label),
		groups:   make(map[string]map[string][]string),
		names:    make(map[string]string),
		meta:     opts.Metadata,
		style:    opts.Style,
		handlers: opts.Handlers,
		logger:   logger,
	}

	for _, n := range root.Children() {
		id := n.ID()
		switch {
		case id == "" || strings.HasPrefix(id, opts.ReservedPrefix):
			continue
		case id == WorldID:
			ix.world = n
			continue
		case id == OceanID:
			ix.ocean = n
			continue
		case id == LabelsID && isGroup(n):
			ix.labelsNode = n
			continue
		case !isGroup(n) && !isShape(n):
			continue
		}
		if _, dup := ix.regions[id]; dup {
			logger.Warn("duplicate country id skipped", "id", id)
			continue
		}
		ix.addCountry(n)
	}
	if len(ix.countries) == 0 {
		return nil, fmt.Errorf("build region index: no countries in document (%d top-level nodes)", len(root.Children()))
	}
	sort.Strings(ix.countries)

	ix.styleBackground()
	ix.buildLabels()
	ix.buildGroups()
	for _, id := range ix.countries {
		ix.applyTree(ix.regions[id], ModeOut)
	}

	logger.Info("region index built",
		"countries", len(ix.countries),
		"regions", len(ix.regions),
		"labels", len(ix.labels),
	)
	return ix, nil
}

func (ix *Index) addCountry(n Node) {
	id := n.ID()
	c := &Region{ID: id, Kind: KindCountry, CountryID: id, node: n}
	if meta, ok := ix.meta[id]; ok {
		c.DisplayName = meta.Name
		c.GroupKey = meta.Region
	}
	if c.DisplayName == "" {
		c.DisplayName = id
	}
	ix.regions[id] = c
	ix.countries = append(ix.countries, id)
	ix.registerName(c.DisplayName, id)
	if meta, ok := ix.meta[id]; ok {
		for _, alt := range meta.AltNames {
			ix.registerName(alt, id)
		}
	}

	borderID := strings.ToLower(id)
	for i, child := range n.Children() {
		switch {
		case child.ID() == borderID && borderID != id:
			c.borders = append(c.borders, child)
			if isGroup(child) {
				for _, g := range child.Children() {
					if isShape(g) {
						c.borders = append(c.borders, g)
					}
				}
			}
		case isGroup(child):
			p := ix.addRegion(child, c, c.ID, KindProvince, i)
			p.ProvinceID = p.ID
			for j, g := range child.Children() {
				if !isShape(g) || g.Attr("fill") == "none" {
					continue
				}
				s := ix.addRegion(g, c, p.ID, KindSubprovince, j)
				s.ProvinceID = p.ID
				p.Children = append(p.Children, s.ID)
			}
			c.Children = append(c.Children, p.ID)
		case isShape(child):
			p := ix.addRegion(child, c, c.ID, KindProvince, i)
			p.ProvinceID = p.ID
			c.Children = append(c.Children, p.ID)
		}
	}
}

// addRegion registers a province or subprovince. Nodes without an id, or
// with an id already taken, get a synthetic id under their parent.
func (ix *Index) addRegion(n Node, country *Region, parent string, kind Kind, pos int) *Region {
	id := n.ID()
	if _, dup := ix.regions[id]; id == "" || dup {
		synthetic := fmt.Sprintf("%s/%d", parent, pos)
		if dup {
			ix.logger.Warn("duplicate region id renamed", "id", id, "as", synthetic)
		}
		id = synthetic
	}
	r := &Region{ID: id, Kind: kind, CountryID: country.ID, DisplayName: id, GroupKey: country.GroupKey, node: n}
	if meta, ok := ix.meta[country.ID]; ok {
		if pm, ok := meta.Provinces[id]; ok && pm.Name != "" {
			r.DisplayName = pm.Name
		}
	}
	ix.regions[id] = r
	return r
}

func (ix *Index) registerName(name, id string) {
	if name == "" {
		return
	}
	if _, taken := ix.names[name]; !taken {
		ix.names[name] = id
	}
}

func (ix *Index) styleBackground() {
	if ix.world != nil {
		ix.world.SetAttr("fill", ix.style.WorldColor)
	}
	if ix.ocean != nil {
		if ix.style.ShowOcean {
			ix.ocean.SetAttr("fill", ix.style.OceanColor)
		} else {
			ix.ocean.SetAttr("fill", "none")
			ix.ocean.SetAttr("stroke", "none")
		}
	}
}

func (ix *Index) buildGroups() {
	for _, key := range ix.style.GroupBy {
		for _, id := range ix.countries {
			meta, ok := ix.meta[id]
			if !ok {
				continue
			}
			value := meta.Field(key)
			if value == "" {
				continue
			}
			if ix.groups[key] == nil {
				ix.groups[key] = make(map[string][]string)
			}
			ix.groups[key][value] = append(ix.groups[key][value], id)
		}
	}
}

// TopLevelIDByName resolves a country on the map by display or alternate name.
func (ix *Index) TopLevelIDByName(name string) (string, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	id, ok := ix.names[name]
	return id, ok
}

// Resolve returns a copy of the region with id, or false when the map has no
// such region.
func (ix *Index) Resolve(id string) (Region, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	r, ok := ix.lookup(id)
	if !ok {
		return Region{}, false
	}
	return r.snapshot(), true
}

func (ix *Index) lookup(id string) (*Region, bool) {
	r, ok := ix.regions[id]
	if !ok {
		ix.unresolved.Add(1)
		ix.logger.Debug("unresolved region id", "id", id)
	}
	return r, ok
}

func (r *Region) snapshot() Region {
	c := *r
	c.Children = append([]string(nil), r.Children...)
	return c
}

// Countries returns the country regions sorted by id.
func (ix *Index) Countries() []Region {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	out := make([]Region, 0, len(ix.countries))
	for _, id := range ix.countries {
		out = append(out, ix.regions[id].snapshot())
	}
	return out
}

// Provinces returns the province and subprovince regions of a country in
// document order, provinces before their subprovinces.
func (ix *Index) Provinces(countryID string) ([]Region, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	c, ok := ix.regions[countryID]
	if !ok || c.Kind != KindCountry {
		return nil, ErrNotFound
	}
	var out []Region
	for _, pid := range c.Children {
		p := ix.regions[pid]
		out = append(out, p.snapshot())
		for _, sid := range p.Children {
			out = append(out, ix.regions[sid].snapshot())
		}
	}
	return out, nil
}

// Groups returns grouping key -> value -> sorted country ids.
func (ix *Index) Groups() map[string]map[string][]string {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	out := make(map[string]map[string][]string, len(ix.groups))
	for key, values := range ix.groups {
		out[key] = make(map[string][]string, len(values))
		for value, ids := range values {
			out[key][value] = append([]string(nil), ids...)
		}
	}
	return out
}

// Len returns the number of indexed regions.
func (ix *Index) Len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.regions)
}

// Unresolved returns how many lookups missed since the index was built.
func (ix *Index) Unresolved() int64 { return ix.unresolved.Load() }

// Do runs fn while holding the index lock so the document can be read
// consistently, e.g. to render it.
func (ix *Index) Do(fn func(root Node) error) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return fn(ix.root)
}
