package types

import (
	"testing"
	"time"
)

func TestCacheEntryExpired(t *testing.T) {
	stored := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	entry := &CacheEntry{StoredAt: stored, TTLSeconds: 60}

	if entry.Expired(stored.Add(30 * time.Second)) {
		t.Error("entry expired inside TTL")
	}
	if entry.Expired(stored.Add(60 * time.Second)) {
		t.Error("entry expired exactly at TTL; expiry is strict")
	}
	if !entry.Expired(stored.Add(61 * time.Second)) {
		t.Error("entry not expired past TTL")
	}
}

func TestValidDimension(t *testing.T) {
	for _, dim := range Dimensions {
		if !ValidDimension(string(dim)) {
			t.Errorf("dimension %q not recognized", dim)
		}
	}
	for _, bad := range []string{"", "sarcasm", "Framing", "tone "} {
		if ValidDimension(bad) {
			t.Errorf("%q accepted as a dimension", bad)
		}
	}
}
