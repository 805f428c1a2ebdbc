package domain

import (
	"strings"
	"time"
)

// DateLayout is the canonical date key format of every normalized series.
const DateLayout = "2006-01-02"

// dateLayouts are the history key formats accepted from upstream feeds, tried
// in order. The tracker APIs have shipped both ISO and US short dates.
var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"1/2/06",
	"1/2/2006",
}

// canonicalDate converts a source history key into the canonical layout.
// Returns false for keys that match none of the accepted layouts.
func canonicalDate(key string) (string, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, key); err == nil {
			return t.UTC().Format(DateLayout), true
		}
	}
	return "", false
}
