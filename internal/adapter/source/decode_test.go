package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/svg-world-map/internal/domain"
)

func TestDecodePayload(t *testing.T) {
	p, err := DecodePayload([]byte(samplePayload))
	require.NoError(t, err)

	require.Contains(t, p, domain.MetricConfirmed)
	locs := p[domain.MetricConfirmed].Locations
	require.Len(t, locs, 1)
	assert.Equal(t, "AA", locs[0].CountryCode)
	assert.Equal(t, int64(5), locs[0].History["1/23/20"])
}

func TestDecodePayload_Invalid(t *testing.T) {
	_, err := DecodePayload([]byte(`{"confirmed": [`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode payload")
}

func TestPayloadSource_FetchPayload(t *testing.T) {
	s := NewPayloadSource(&stubFetcher{raw: Raw{Data: []byte(samplePayload), Source: "cache"}})
	p, src, err := s.FetchPayload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cache", src)
	assert.Len(t, p, 3)
}

func TestLoadMetadataFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.json")
	body := `{"AA": {"name": "Alpha", "region": "Europe", "altnames": ["Alfa", "Alphaland"], "provinces": {"AA-1": {"name": "North"}}, "population": 1200}}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	md, err := LoadMetadataFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", md.Name("AA"))
	assert.Equal(t, "North", md["AA"].Provinces["AA-1"].Name)
	assert.Equal(t, "1200", md["AA"].Field("population"))
}

func TestLoadMetadataFile_Missing(t *testing.T) {
	_, err := LoadMetadataFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
