package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/svg-world-map/internal/domain"
)

const (
	mockSVGFile      = "world-states-provinces.svg"
	mockMetadataFile = "country-data.json"
	mockPayloadFile  = "corona-data.json"
)

var mockStart = time.Date(2020, time.January, 22, 0, 0, 0, 0, time.UTC)

// mockCountry drives every generated asset. Provinces listed in reports are
// what the payload carries; shapes are what the map carries.
type mockCountry struct {
	id, name, region string
	scale            int64
	provinces        []mockProvince
	countryLevel     bool // the payload reports the country directly
}

type mockProvince struct {
	id, name string
	subIDs   []string // non-empty makes the province a group
}

var mockCountries = []mockCountry{
	{
		id: "AA", name: "Alderia", region: "Europe", scale: 40, countryLevel: true,
		provinces: []mockProvince{
			{id: "AA-N", name: "Northmark"},
			{id: "AA-S", name: "Southmark"},
			{id: "AA-I", name: "Isles", subIDs: []string{"AA-I1", "AA-I2"}},
		},
	},
	{id: "BB", name: "Borovia", region: "Europe", scale: 12, countryLevel: true},
	{
		id: "CC", name: "Caldera", region: "Asia", scale: 25,
		provinces: []mockProvince{
			{id: "CC-1", name: "Upper Caldera"},
			{id: "CC-2", name: "Lower Caldera"},
		},
	},
	{id: "DD", name: "Dunmere", region: "Asia", scale: 3},
	{id: "EE", name: "Esterra", region: "Americas", scale: 1, countryLevel: true},
}

// mockShip is reported under the non-national code.
const mockShip = "Harbor Queen"

func newGenmockCmd() *cobra.Command {
	var (
		outDir string
		days   int
	)
	cmd := &cobra.Command{
		Use:   "genmock",
		Short: "Write a deterministic synthetic map, metadata, and payload",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days < 1 {
				return fmt.Errorf("--days must be at least 1")
			}
			if err := writeMockAssets(outDir, days); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s, %s, %s to %s (%d days)\n",
				mockSVGFile, mockMetadataFile, mockPayloadFile, outDir, days)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out-dir", "data/mock", "Output directory")
	cmd.Flags().IntVar(&days, "days", 30, "Number of days in the payload")
	return cmd
}

func writeMockAssets(outDir string, days int) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", outDir, err)
	}
	if err := os.WriteFile(filepath.Join(outDir, mockSVGFile), []byte(mockSVG()), 0o600); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	if err := writeJSON(filepath.Join(outDir, mockMetadataFile), mockMetadata()); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := writeJSON(filepath.Join(outDir, mockPayloadFile), mockPayload(days)); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	logVerbose("generated %d countries over %d days", len(mockCountries), days)
	return nil
}

func writeJSON(path string, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func mockSVG() string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 200 100" id="svg-world-map">` + "\n")
	b.WriteString(`  <rect id="World" width="200" height="100"/>` + "\n")
	b.WriteString(`  <path id="Ocean" d="M0 0h200v100H0z"/>` + "\n")
	b.WriteString(`  <g id="_guides"><path id="_grid" d="M0 50h200"/></g>` + "\n")
	for i, c := range mockCountries {
		x := 10 + i*35
		if len(c.provinces) == 0 {
			fmt.Fprintf(&b, `  <path id="%s" d="M%d 20h20v20h-20z"/>`+"\n", c.id, x)
			continue
		}
		fmt.Fprintf(&b, `  <g id="%s">`+"\n", c.id)
		for j, p := range c.provinces {
			y := 20 + j*10
			if len(p.subIDs) == 0 {
				fmt.Fprintf(&b, `    <path id="%s" d="M%d %dh20v8h-20z"/>`+"\n", p.id, x, y)
				continue
			}
			fmt.Fprintf(&b, `    <g id="%s">`+"\n", p.id)
			for k, sid := range p.subIDs {
				fmt.Fprintf(&b, `      <path id="%s" d="M%d %dh8v8h-8z"/>`+"\n", sid, x+k*10, y)
			}
			fmt.Fprintf(&b, `      <path id="%s-border" fill="none" d="M%d %dh20"/>`+"\n", p.id, x, y)
			b.WriteString("    </g>\n")
		}
		fmt.Fprintf(&b, `    <path id="%s" fill="none" d="M%d 20h20v30h-20z"/>`+"\n", strings.ToLower(c.id), x)
		b.WriteString("  </g>\n")
	}
	b.WriteString(`  <g id="labels">` + "\n")
	for i, c := range mockCountries {
		size := 6
		if c.scale < 5 {
			size = 2
		}
		fmt.Fprintf(&b, `    <text id="%slabel" x="%d" y="15" font-size="%d">%s</text>`+"\n", c.id, 10+i*35, size, c.id)
	}
	b.WriteString("  </g>\n</svg>\n")
	return b.String()
}

func mockMetadata() domain.Metadata {
	md := domain.Metadata{}
	for _, c := range mockCountries {
		meta := domain.RegionMeta{Name: c.name, Region: c.region}
		if len(c.provinces) > 0 {
			meta.Provinces = map[string]domain.RegionMeta{}
			for _, p := range c.provinces {
				meta.Provinces[p.id] = domain.RegionMeta{Name: p.name}
			}
		}
		md[c.id] = meta
	}
	return md
}

// mockCounts returns deterministic cumulative counts for day i.
func mockCounts(scale int64, i int) (confirmed, recovered, deaths int64) {
	d := int64(i)
	confirmed = scale * (d + 1) * (d + 2) / 2
	if d >= 7 {
		recovered = scale * (d - 6) * (d - 5) / 2
	}
	deaths = confirmed / 40
	return confirmed, recovered, deaths
}

func mockHistory(days int, pick func(day int) int64) map[string]int64 {
	h := make(map[string]int64, days)
	for i := range days {
		h[mockStart.AddDate(0, 0, i).Format("1/2/06")] = pick(i)
	}
	return h
}

func mockPayload(days int) domain.Payload {
	p := domain.Payload{}
	for m, metric := range domain.Metrics {
		add := func(code, country, province string, scale int64) {
			hist := mockHistory(days, func(i int) int64 {
				c, r, d := mockCounts(scale, i)
				return [3]int64{c, r, d}[m]
			})
			feed := p[metric]
			feed.Locations = append(feed.Locations, domain.LocationRecord{
				CountryCode: code, Country: country, Province: province, History: hist,
			})
			p[metric] = feed
		}
		for _, c := range mockCountries {
			if c.countryLevel {
				add(c.id, c.name, "", c.scale)
				continue
			}
			for j, prov := range c.provinces {
				add(c.id, c.name, prov.name, c.scale+int64(j))
			}
		}
		// A territory reported as a province of CC that is its own map region.
		add("CC", "Caldera", "Dunmere", 3)
		add("XX", mockShip, "", 2)
	}
	return p
}
