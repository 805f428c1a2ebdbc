package regionindex

import "fmt"

// Mode is the interaction state a style is applied for.
type Mode string

const (
	ModeOut   Mode = "out"
	ModeOver  Mode = "over"
	ModeClick Mode = "click"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeOut, ModeOver, ModeClick:
		return m, nil
	}
	return "", fmt.Errorf("unknown highlight mode %q", s)
}

// ModeStyle holds one attribute value per interaction mode.
type ModeStyle struct {
	Out   string `toml:"out" json:"out"`
	Over  string `toml:"over" json:"over"`
	Click string `toml:"click" json:"click"`
}

// For returns the value for mode m.
func (s ModeStyle) For(m Mode) string {
	switch m {
	case ModeOver:
		return s.Over
	case ModeClick:
		return s.Click
	default:
		return s.Out
	}
}

// Style configures how the map is drawn. Zero-valued fields in a decoded style
// file are not special: callers should decode on top of DefaultStyle.
type Style struct {
	CountryStroke       ModeStyle `toml:"country_stroke" json:"country_stroke"`
	CountryStrokeWidth  ModeStyle `toml:"country_stroke_width" json:"country_stroke_width"`
	ProvinceFill        ModeStyle `toml:"province_fill" json:"province_fill"`
	ProvinceStroke      ModeStyle `toml:"province_stroke" json:"province_stroke"`
	ProvinceStrokeWidth ModeStyle `toml:"province_stroke_width" json:"province_stroke_width"`
	LabelFill           ModeStyle `toml:"label_fill" json:"label_fill"`

	WorldColor string `toml:"world_color" json:"world_color"`
	OceanColor string `toml:"ocean_color" json:"ocean_color"`

	ShowOcean       bool     `toml:"show_ocean" json:"show_ocean"`
	ShowLabels      bool     `toml:"show_labels" json:"show_labels"`
	ShowMicroLabels bool     `toml:"show_micro_labels" json:"show_micro_labels"`
	ShowMicroStates bool     `toml:"show_micro_states" json:"show_micro_states"`
	GroupBy         []string `toml:"group_by" json:"group_by"`
}

// DefaultStyle returns the built-in map style.
func DefaultStyle() Style {
	return Style{
		CountryStroke:       ModeStyle{Out: "#FFFFFF", Over: "#FFFFFF", Click: "#333333"},
		CountryStrokeWidth:  ModeStyle{Out: "0.5", Over: "1", Click: "1"},
		ProvinceFill:        ModeStyle{Out: "#B9B9B9", Over: "#FFFFFF", Click: "#666666"},
		ProvinceStroke:      ModeStyle{Out: "#FFFFFF", Over: "#FFFFFF", Click: "#666666"},
		ProvinceStrokeWidth: ModeStyle{Out: "0.1", Over: "0.5", Click: "0.5"},
		LabelFill:           ModeStyle{Out: "#666666", Over: "#CCCCCC", Click: "#000000"},
		WorldColor:          "#FFFFFF",
		OceanColor:          "#D8EBFF",
		ShowOcean:           true,
		ShowLabels:          true,
		ShowMicroLabels:     false,
		ShowMicroStates:     true,
		GroupBy:             []string{"region"},
	}
}
