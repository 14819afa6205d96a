// Package pipeline locates the sensor on the network and establishes a log
// stream to it, retrying each stage indefinitely with bounded backoff.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/guardeloo/occupancy-agent/internal/models"
	"github.com/guardeloo/occupancy-agent/pkg/discovery"
	"github.com/guardeloo/occupancy-agent/pkg/resolver"
	"github.com/guardeloo/occupancy-agent/pkg/stream"
)

// Pipeline orchestrates discovery, resolution and connection. Every stage
// failure is transient: discovery retries at the backoff interval, resolution
// retries a bounded number of times before falling back to discovery, and a
// failed or terminated connection restarts the whole pipeline, since the
// device may have come back under a new address. Only context cancellation
// stops the pipeline.
type Pipeline struct {
	nameFilter      string
	backoff         time.Duration
	resolveAttempts int

	browser  discovery.Browser
	resolver resolver.Resolver
	opener   stream.Opener
	logger   zerolog.Logger
}

// New creates a Pipeline. backoff bounds the wait between retries of any
// stage; resolveAttempts bounds resolution retries per discovered candidate.
func New(
	nameFilter string,
	backoff time.Duration,
	resolveAttempts int,
	browser discovery.Browser,
	res resolver.Resolver,
	opener stream.Opener,
	logger zerolog.Logger,
) *Pipeline {
	if resolveAttempts < 1 {
		resolveAttempts = 1
	}
	return &Pipeline{
		nameFilter:      nameFilter,
		backoff:         backoff,
		resolveAttempts: resolveAttempts,
		browser:         browser,
		resolver:        res,
		opener:          opener,
		logger:          logger,
	}
}

// Acquire produces a live line stream for a device matching the name filter.
// It blocks until a stream is established or ctx is cancelled; the only
// error it returns is ctx.Err().
func (p *Pipeline) Acquire(ctx context.Context) (models.DeviceHandle, stream.LineSource, error) {
	for {
		device, err := p.discover(ctx)
		if err != nil {
			return models.DeviceHandle{}, nil, err
		}

		handle := models.DeviceHandle{Hostname: device.Hostname}

		address, err := p.resolve(ctx, device.Hostname)
		if err != nil {
			if ctx.Err() != nil {
				return models.DeviceHandle{}, nil, ctx.Err()
			}
			p.logger.Info().
				Str("hostname", device.Hostname).
				Msg("Resolution failed repeatedly, falling back to discovery")
			continue
		}
		handle.Address = address

		p.logger.Info().
			Str("hostname", handle.Hostname).
			Str("address", handle.Address).
			Msg("Connecting to device log stream")

		source, err := p.opener.Open(ctx, address)
		if err != nil {
			if ctx.Err() != nil {
				return models.DeviceHandle{}, nil, ctx.Err()
			}
			p.logger.Info().
				Err(err).
				Str("address", address).
				Msg("Connection failed, restarting from discovery")
			if !sleepCtx(ctx, p.backoff) {
				return models.DeviceHandle{}, nil, ctx.Err()
			}
			continue
		}

		return handle, source, nil
	}
}

// discover retries discovery at the backoff interval until a candidate
// matching the name filter is found or ctx is cancelled.
func (p *Pipeline) discover(ctx context.Context) (discovery.Device, error) {
	for {
		if ctx.Err() != nil {
			return discovery.Device{}, ctx.Err()
		}

		devices, err := p.browser.Browse(ctx, p.nameFilter)
		if err != nil {
			p.logger.Info().Err(err).Msg("Device discovery failed")
		} else if len(devices) > 0 {
			candidate := devices[0]
			p.logger.Info().
				Str("instance", candidate.Instance).
				Str("hostname", candidate.Hostname).
				Msg("Found device")
			return candidate, nil
		} else {
			p.logger.Info().
				Str("filter", p.nameFilter).
				Msg("No device matching filter found, retrying")
		}

		if !sleepCtx(ctx, p.backoff) {
			return discovery.Device{}, ctx.Err()
		}
	}
}

// resolve attempts resolution up to resolveAttempts times with backoff in
// between. The caller falls back to discovery when all attempts fail.
func (p *Pipeline) resolve(ctx context.Context, hostname string) (string, error) {
	p.logger.Info().Str("hostname", hostname).Msg("Resolving device hostname")

	var lastErr error
	for attempt := 1; attempt <= p.resolveAttempts; attempt++ {
		address, err := p.resolver.Resolve(ctx, hostname)
		if err == nil {
			p.logger.Info().
				Str("hostname", hostname).
				Str("address", address).
				Msg("Resolved device address")
			return address, nil
		}

		lastErr = err
		p.logger.Info().
			Err(err).
			Str("hostname", hostname).
			Int("attempt", attempt).
			Msg("Resolution attempt failed")

		if attempt < p.resolveAttempts {
			if !sleepCtx(ctx, p.backoff) {
				return "", ctx.Err()
			}
		}
	}

	return "", lastErr
}

// sleepCtx waits for d or until ctx is cancelled, returning false on
// cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
