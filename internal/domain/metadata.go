package domain

import (
	"fmt"
	"sort"

	"github.com/bytedance/sonic"
)

// RegionMeta describes one map region in the metadata file. Keys other than
// the well-known ones are kept as Attributes so they can drive grouping.
type RegionMeta struct {
	Name       string                `json:"name"`
	Region     string                `json:"region,omitempty"`
	AltNames   []string              `json:"altnames,omitempty"`
	Provinces  map[string]RegionMeta `json:"provinces,omitempty"`
	Attributes map[string]string     `json:"-"`
}

// UnmarshalJSON keeps unknown scalar fields in Attributes.
func (m *RegionMeta) UnmarshalJSON(data []byte) error {
	type known RegionMeta
	var k known
	if err := sonic.Unmarshal(data, &k); err != nil {
		return fmt.Errorf("decode region meta: %w", err)
	}
	var raw map[string]any
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode region meta: %w", err)
	}
	for key, v := range raw {
		switch key {
		case "name", "region", "altnames", "provinces":
			continue
		}
		switch val := v.(type) {
		case string:
			if k.Attributes == nil {
				k.Attributes = make(map[string]string)
			}
			k.Attributes[key] = val
		case float64, bool:
			if k.Attributes == nil {
				k.Attributes = make(map[string]string)
			}
			k.Attributes[key] = fmt.Sprint(val)
		}
	}
	*m = RegionMeta(k)
	return nil
}

// Field returns a grouping value by key: "name", "region", or any attribute.
func (m RegionMeta) Field(key string) string {
	switch key {
	case "name":
		return m.Name
	case "region":
		return m.Region
	}
	return m.Attributes[key]
}

// Metadata maps region id to its metadata.
type Metadata map[string]RegionMeta

// IDByName finds the top-level id whose name or alternate name equals name.
// Ids are scanned in ascending order so duplicates resolve deterministically.
func (md Metadata) IDByName(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	for _, id := range md.sortedIDs() {
		meta := md[id]
		if meta.Name == name {
			return id, true
		}
		for _, alt := range meta.AltNames {
			if alt == name {
				return id, true
			}
		}
	}
	return "", false
}

// ProvinceIDByName finds the map id of a province of country by its name.
func (md Metadata) ProvinceIDByName(country, name string) (string, bool) {
	meta, ok := md[country]
	if !ok || len(meta.Provinces) == 0 {
		return "", false
	}
	ids := make([]string, 0, len(meta.Provinces))
	for id := range meta.Provinces {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		p := meta.Provinces[id]
		if p.Name == name {
			return id, true
		}
		for _, alt := range p.AltNames {
			if alt == name {
				return id, true
			}
		}
	}
	return "", false
}

// Name returns the display name for id, or id itself when unknown.
func (md Metadata) Name(id string) string {
	if meta, ok := md[id]; ok && meta.Name != "" {
		return meta.Name
	}
	return id
}

func (md Metadata) sortedIDs() []string {
	ids := make([]string, 0, len(md))
	for id := range md {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
