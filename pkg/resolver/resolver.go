// Package resolver maps a discovered hostname to a dialable address.
package resolver

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
)

// Resolver resolves a hostname to an IP address.
type Resolver interface {
	Resolve(ctx context.Context, hostname string) (string, error)
}

// NetResolver resolves hostnames through the system resolver. On hosts with
// an mDNS-aware nsswitch this also covers .local names.
type NetResolver struct {
	timeout time.Duration
	logger  zerolog.Logger
}

// NewNetResolver creates a NetResolver with a per-lookup timeout.
func NewNetResolver(timeout time.Duration, logger zerolog.Logger) *NetResolver {
	return &NetResolver{
		timeout: timeout,
		logger:  logger,
	}
}

// Resolve returns an address for hostname, preferring IPv4.
func (r *NetResolver) Resolve(ctx context.Context, hostname string) (string, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	addrs, err := net.DefaultResolver.LookupHost(lookupCtx, hostname)
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("no addresses found for %s", hostname)
	}

	for _, addr := range addrs {
		if ip := net.ParseIP(addr); ip != nil && ip.To4() != nil {
			return addr, nil
		}
	}

	r.logger.Debug().Str("hostname", hostname).Msg("No IPv4 address, using first result")
	return addrs[0], nil
}
