package svg_test

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/svg-world-map/internal/adapter/svg"
	"github.com/couchcryptid/svg-world-map/internal/domain"
	"github.com/couchcryptid/svg-world-map/internal/regionindex"
)

const testSVG = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 50" id="map">
  <metadata id="metadata1"/>
  <sodipodi:namedview id="base"/>
  <rect id="World" width="100" height="50"/>
  <path id="Ocean" d="M0 0h100v50H0z"/>
  <g id="US">
    <path id="US-CA" d="M1 1h2v2H1z"/>
    <path id="US-NY" d="M4 1h2v2H4z"/>
    <g id="US-TX">
      <path id="US-TX-1" d="M7 1h1v1H7z"/>
      <path id="US-TX-2" d="M8 1h1v1H8z"/>
    </g>
    <path id="us" d="M0 0h10v5H0z"/>
  </g>
  <path id="FR" d="M20 20h5v5h-5z"/>
  <g id="labels">
    <text id="USlabel" x="3" y="3" font-size="6">USA</text>
    <text id="FRlabel" x="21" y="21" font-size="2">France</text>
  </g>
</svg>`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParse_NodeModel(t *testing.T) {
	doc, err := svg.ParseBytes([]byte(testSVG))
	require.NoError(t, err)

	root := doc.Root()
	assert.Equal(t, "svg", root.Tag())
	assert.Equal(t, "map", root.ID())
	assert.Equal(t, "0 0 100 50", root.Attr("viewBox"))

	var ids, tags []string
	for _, c := range root.Children() {
		ids = append(ids, c.ID())
		tags = append(tags, c.Tag())
	}
	assert.Equal(t, []string{"metadata1", "base", "World", "Ocean", "US", "FR", "labels"}, ids)
	assert.Equal(t, "sodipodi:namedview", tags[1])
	assert.Equal(t, "g", tags[4])
}

func TestParse_Errors(t *testing.T) {
	_, err := svg.ParseBytes([]byte("<html><body><p>no map</p></body></html>"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no <svg> root")

	_, err = svg.ReadFile(filepath.Join(t.TempDir(), "missing.svg"))
	require.Error(t, err)
}

func TestIndexOverDocument(t *testing.T) {
	doc, err := svg.ParseBytes([]byte(testSVG))
	require.NoError(t, err)

	ix, err := regionindex.Build(doc.Root(), regionindex.Options{
		Metadata: domain.Metadata{"US": {Name: "United States", Region: "NA"}, "FR": {Name: "France", Region: "EU"}},
		Style:    regionindex.DefaultStyle(),
	}, discardLogger())
	require.NoError(t, err)

	us, ok := ix.Resolve("US")
	require.True(t, ok)
	assert.Equal(t, []string{"US-CA", "US-NY", "US-TX"}, us.Children)

	tx, ok := ix.Resolve("US-TX")
	require.True(t, ok)
	assert.Len(t, tx.Children, 2)

	ix.Paint(map[string]string{"US": "rgb(255,127,127)"})

	var buf bytes.Buffer
	require.NoError(t, ix.Do(func(regionindex.Node) error { return doc.Render(&buf) }))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, `id="US-TX-2"`)
	assert.Contains(t, out, `fill="rgb(255,127,127)"`)
	assert.Contains(t, out, `>United States</text>`)
	assert.Contains(t, out, `fill="#D8EBFF"`)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.svg")
	require.NoError(t, os.WriteFile(path, []byte(testSVG), 0o600))

	data, err := svg.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, testSVG, string(data))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.svg")
	require.NoError(t, os.WriteFile(path, []byte(testSVG), 0o600))

	first, err := svg.LoadFile(path)
	require.NoError(t, err)
	second, err := svg.LoadFile(path)
	require.NoError(t, err)

	first.Root().SetAttr("data-touched", "1")
	assert.Empty(t, second.Root().Attr("data-touched"))
}
