package regionindex

// Kind is the level of a region in the hierarchy.
type Kind string

const (
	KindCountry     Kind = "country"
	KindProvince    Kind = "province"
	KindSubprovince Kind = "subprovince"
)

// Region is one paintable map unit. CountryID is the owning country (the
// region itself for countries). ProvinceID is the immediate province parent:
// itself for provinces, the group for subprovinces, empty for countries.
type Region struct {
	ID          string   `json:"id"`
	Kind        Kind     `json:"kind"`
	CountryID   string   `json:"country_id"`
	ProvinceID  string   `json:"province_id,omitempty"`
	DisplayName string   `json:"display_name"`
	GroupKey    string   `json:"group_key,omitempty"`
	Children    []string `json:"children,omitempty"`
	Microstate  bool     `json:"microstate,omitempty"`

	node    Node
	borders []Node
	paint   string
}

// IsLeaf reports whether the region has no children of its own.
func (r *Region) IsLeaf() bool { return len(r.Children) == 0 }

// Label is a country name label drawn on the map.
type Label struct {
	CountryID  string `json:"country_id"`
	Text       string `json:"text"`
	Microstate bool   `json:"microstate"`
	Hidden     bool   `json:"hidden"`

	node Node
}

// DisplayState is the current visual state of a region's node.
type DisplayState struct {
	Fill        string `json:"fill"`
	Stroke      string `json:"stroke"`
	StrokeWidth string `json:"stroke_width"`
	Painted     string `json:"painted,omitempty"`
	Selected    bool   `json:"selected"`
}

// PointerEvent is a pointer interaction on a single shape of the map.
type PointerEvent struct {
	TargetID string
	Mode     Mode
}

// Handlers receive interaction callbacks. Any of them may be nil. OnClick is
// called with nil when the selection is cleared. Handlers run after the index
// lock is released, so they may call back into the index.
type Handlers struct {
	OnOver  func(*Region)
	OnOut   func(*Region)
	OnClick func(*Region)
}
