// Package discovery locates the sensor device on the local network via mDNS.
package discovery

import (
	"context"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"
)

// Device is one advertised sensor candidate found on the network.
type Device struct {
	Instance string
	Hostname string
	LastSeen time.Time
}

// Browser queries the network for advertised devices whose instance name
// contains nameFilter. An empty result is not an error.
type Browser interface {
	Browse(ctx context.Context, nameFilter string) ([]Device, error)
}

// MDNSBrowser browses for the sensor firmware's mDNS service type and keeps a
// cache of every device it has ever seen. mDNS announcements are flaky; when
// a browse window comes up empty, a recently cached advertisement of a
// matching device is returned instead of nothing.
type MDNSBrowser struct {
	service  string
	domain   string
	window   time.Duration
	cacheTTL time.Duration
	seen     cmap.ConcurrentMap[string, Device]
	logger   zerolog.Logger
}

// NewMDNSBrowser creates a browser for the given mDNS service type and
// domain. window bounds one browse pass; cacheTTL bounds how stale a cached
// advertisement may be before it is no longer trusted.
func NewMDNSBrowser(service, domain string, window, cacheTTL time.Duration, logger zerolog.Logger) *MDNSBrowser {
	return &MDNSBrowser{
		service:  service,
		domain:   domain,
		window:   window,
		cacheTTL: cacheTTL,
		seen:     cmap.New[Device](),
		logger:   logger,
	}
}

// Browse runs one browse pass and returns the devices whose instance name
// contains nameFilter, falling back to the cache when the pass is empty.
func (b *MDNSBrowser) Browse(ctx context.Context, nameFilter string) ([]Device, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, err
	}

	browseCtx, cancel := context.WithTimeout(ctx, b.window)
	defer cancel()

	filter := strings.ToLower(nameFilter)
	entries := make(chan *zeroconf.ServiceEntry)

	var matches []Device
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		matches = b.collectEntries(entries, filter)
	}()

	err = resolver.Browse(browseCtx, b.service, b.domain, entries)

	// zeroconf closes the entries channel when the browse context ends,
	// including the query-failure path where it cancels internally. Wait for
	// the collector either way; closing entries here would double-close.
	<-collected
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		matches = b.cachedMatches(filter)
		if len(matches) > 0 {
			b.logger.Debug().
				Str("filter", nameFilter).
				Int("cached", len(matches)).
				Msg("Browse window empty, using cached advertisement")
		}
	}

	return matches, nil
}

// collectEntries consumes advertisements until the producer closes the
// channel, caching every device seen and returning those whose instance name
// contains filter. The producer owns the channel; collectEntries never
// closes it.
func (b *MDNSBrowser) collectEntries(entries <-chan *zeroconf.ServiceEntry, filter string) []Device {
	var matches []Device
	for entry := range entries {
		dev := Device{
			Instance: entry.Instance,
			Hostname: strings.TrimSuffix(entry.HostName, "."),
			LastSeen: time.Now(),
		}
		b.seen.Set(strings.ToLower(entry.Instance), dev)

		if strings.Contains(strings.ToLower(entry.Instance), filter) {
			matches = append(matches, dev)
		}
	}
	return matches
}

// cachedMatches returns cached devices matching filter seen within cacheTTL.
func (b *MDNSBrowser) cachedMatches(filter string) []Device {
	var matches []Device
	cutoff := time.Now().Add(-b.cacheTTL)

	for key, dev := range b.seen.Items() {
		if !strings.Contains(key, filter) {
			continue
		}
		if dev.LastSeen.Before(cutoff) {
			b.seen.Remove(key)
			continue
		}
		matches = append(matches, dev)
	}

	return matches
}
