package discovery

import (
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func newTestBrowser(cacheTTL time.Duration) *MDNSBrowser {
	return NewMDNSBrowser("_esphomelib._tcp", "local.", 100*time.Millisecond, cacheTTL, zerolog.Nop())
}

func testEntry(instance, hostname string) *zeroconf.ServiceEntry {
	entry := zeroconf.NewServiceEntry(instance, "_esphomelib._tcp", "local.")
	entry.HostName = hostname
	return entry
}

func TestCollectEntries_FiltersAndCaches(t *testing.T) {
	b := newTestBrowser(time.Minute)

	entries := make(chan *zeroconf.ServiceEntry, 3)
	entries <- testEntry("Seeed-2541", "seeed-2541.local.")
	entries <- testEntry("printer-a1", "printer-a1.local.")
	entries <- testEntry("SEEED-bench", "seeed-bench.local.")
	close(entries)

	matches := b.collectEntries(entries, "seeed")

	assert.Len(t, matches, 2)
	assert.Equal(t, "seeed-2541.local", matches[0].Hostname)
	assert.Equal(t, "seeed-bench.local", matches[1].Hostname)

	// Non-matching advertisements are cached too.
	assert.Equal(t, 3, b.seen.Count())
}

func TestCollectEntries_ExitsWhenProducerCloses(t *testing.T) {
	b := newTestBrowser(time.Minute)

	// The producer is the only closer of the channel. The collector must
	// terminate on that close without touching the channel itself.
	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan []Device, 1)
	go func() {
		done <- b.collectEntries(entries, "seeed")
	}()

	entries <- testEntry("seeed-2541", "seeed-2541.local.")
	close(entries)

	select {
	case matches := <-done:
		assert.Len(t, matches, 1)
	case <-time.After(time.Second):
		t.Fatal("collector did not exit after the producer closed the channel")
	}
}

func TestCachedMatches_ReturnsRecentAdvertisements(t *testing.T) {
	b := newTestBrowser(time.Minute)

	b.seen.Set("seeed-2541", Device{
		Instance: "seeed-2541",
		Hostname: "seeed-2541.local",
		LastSeen: time.Now(),
	})
	b.seen.Set("printer-a1", Device{
		Instance: "printer-a1",
		Hostname: "printer-a1.local",
		LastSeen: time.Now(),
	})

	matches := b.cachedMatches("seeed")

	assert.Len(t, matches, 1)
	assert.Equal(t, "seeed-2541.local", matches[0].Hostname)
}

func TestCachedMatches_ExpiresStaleEntries(t *testing.T) {
	b := newTestBrowser(time.Minute)

	b.seen.Set("seeed-stale", Device{
		Instance: "seeed-stale",
		Hostname: "seeed-stale.local",
		LastSeen: time.Now().Add(-2 * time.Minute),
	})
	b.seen.Set("seeed-fresh", Device{
		Instance: "seeed-fresh",
		Hostname: "seeed-fresh.local",
		LastSeen: time.Now(),
	})

	matches := b.cachedMatches("seeed")

	assert.Len(t, matches, 1)
	assert.Equal(t, "seeed-fresh.local", matches[0].Hostname)

	// Expired entries are evicted, not just skipped.
	assert.Equal(t, 1, b.seen.Count())
	_, ok := b.seen.Get("seeed-stale")
	assert.False(t, ok)
}
