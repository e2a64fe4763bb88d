// Package supervisor runs the daemon loop: watch the wifi association,
// probe connectivity, and drive a portal login whenever the network is
// captive, backing off after repeated failures.
package supervisor

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"wimesh/lib/osutil"
	"wimesh/lib/portals"
)

type WifiChecker interface {
	ConnectedSSID(ctx context.Context, targets []string) (string, bool, error)
}

type ConnectivityProbe interface {
	HasConnectivity(ctx context.Context) bool
}

type Options struct {
	// CheckInterval is the minimum spacing between ticks, default 5s.
	CheckInterval time.Duration
	// SettleDelay is slept after a successful login so the network stack
	// can stabilize, default 10s.
	SettleDelay time.Duration
	// BackoffDelay is slept after MaxFailures consecutive login failures,
	// default 60s.
	BackoffDelay time.Duration
	// MaxFailures is the consecutive failure count that triggers the
	// backoff, default 3.
	MaxFailures int
}

// Supervisor owns all daemon state. Nothing outside the loop mutates it.
type Supervisor struct {
	registry *portals.Registry
	wifi     WifiChecker
	probe    ConnectivityProbe
	opts     Options

	failures  int
	lastCheck time.Time

	sleep func(ctx context.Context, d time.Duration) error
}

func New(registry *portals.Registry, wifi WifiChecker, probe ConnectivityProbe, opts Options) *Supervisor {
	if opts.CheckInterval == 0 {
		opts.CheckInterval = time.Second * 5
	}
	if opts.SettleDelay == 0 {
		opts.SettleDelay = time.Second * 10
	}
	if opts.BackoffDelay == 0 {
		opts.BackoffDelay = time.Second * 60
	}
	if opts.MaxFailures == 0 {
		opts.MaxFailures = 3
	}

	return &Supervisor{
		registry: registry,
		wifi:     wifi,
		probe:    probe,
		opts:     opts,
		sleep:    osutil.Sleep,
	}
}

// Run loops ticks until the context is cancelled.
func (s *Supervisor) Run(ctx context.Context) {
	slog.InfoContext(ctx, "starting daemon mode",
		"ssids", strings.Join(s.registry.AllSSIDs(), ", "),
		"check_interval", s.opts.CheckInterval,
	)

	for ctx.Err() == nil {
		s.tick(ctx)
	}
}

func (s *Supervisor) tick(ctx context.Context) {
	if elapsed := time.Since(s.lastCheck); elapsed < s.opts.CheckInterval {
		if s.sleep(ctx, s.opts.CheckInterval-elapsed) != nil {
			return
		}
	}
	s.lastCheck = time.Now()

	ssid, associated, err := s.wifi.ConnectedSSID(ctx, s.registry.AllSSIDs())
	if err != nil {
		slog.WarnContext(ctx, "failed to check wifi status", "err", err)
		return
	}
	if !associated {
		slog.DebugContext(ctx, "not connected to any configured wifi")
		s.failures = 0
		return
	}

	if s.probe.HasConnectivity(ctx) {
		if s.failures > 0 {
			slog.DebugContext(ctx, "internet restored", "ssid", ssid)
			s.failures = 0
		}
		return
	}

	slog.WarnContext(ctx, "no internet, attempting login", "ssid", ssid)

	portal, ok := s.registry.FindForSSID(ssid)
	if !ok {
		slog.WarnContext(ctx, "no portal configured for ssid", "ssid", ssid)
		return
	}

	if err := portal.Connect(ctx); err != nil {
		s.failures++
		slog.ErrorContext(ctx, "login failed",
			"portal", portal.Name(),
			"attempt", s.failures,
			"max", s.opts.MaxFailures,
			"err", err,
		)
		if s.failures >= s.opts.MaxFailures {
			slog.ErrorContext(ctx, "too many consecutive failures, backing off")
			s.sleep(ctx, s.opts.BackoffDelay)
			s.failures = 0
		}
		return
	}

	slog.InfoContext(ctx, "login successful", "portal", portal.Name())
	s.failures = 0
	s.sleep(ctx, s.opts.SettleDelay)
}
