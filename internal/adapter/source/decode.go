package source

import (
	"context"
	"fmt"
	"os"

	"github.com/bytedance/sonic"

	"github.com/couchcryptid/svg-world-map/internal/domain"
)

// DecodePayload decodes a tracker API document.
func DecodePayload(data []byte) (domain.Payload, error) {
	var p domain.Payload
	if err := sonic.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return p, nil
}

// PayloadSource fetches and decodes the payload.
type PayloadSource struct {
	fetcher RawFetcher
}

// NewPayloadSource wraps a raw fetcher.
func NewPayloadSource(f RawFetcher) *PayloadSource {
	return &PayloadSource{fetcher: f}
}

// FetchPayload returns the decoded payload and the source it came from.
func (s *PayloadSource) FetchPayload(ctx context.Context) (domain.Payload, string, error) {
	raw, err := s.fetcher.FetchRaw(ctx)
	if err != nil {
		return nil, "", err
	}
	p, err := DecodePayload(raw.Data)
	if err != nil {
		return nil, raw.Source, err
	}
	return p, raw.Source, nil
}

// LoadMetadataFile reads the region metadata JSON file.
func LoadMetadataFile(path string) (domain.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata %s: %w", path, err)
	}
	var md domain.Metadata
	if err := sonic.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("decode metadata %s: %w", path, err)
	}
	return md, nil
}
