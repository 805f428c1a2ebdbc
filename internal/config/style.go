package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/couchcryptid/svg-world-map/internal/regionindex"
)

// LoadStyle reads the optional TOML map style, layered over the built-in
// defaults. An empty path returns the defaults.
func LoadStyle(path string) (regionindex.Style, error) {
	style := regionindex.DefaultStyle()
	if path == "" {
		return style, nil
	}
	md, err := toml.DecodeFile(path, &style)
	if err != nil {
		return regionindex.Style{}, fmt.Errorf("decode style %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return regionindex.Style{}, fmt.Errorf("decode style %s: unknown keys %v", path, undecoded)
	}
	return style, nil
}
