// Package portals defines the capability contract a captive portal engine
// implements and the registry that routes an observed SSID to the engine
// responsible for it.
package portals

import (
	"context"
	"log/slog"
	"strings"
)

// Portal is implemented once per captive portal vendor. A new vendor plugs
// in behind this interface without the registry or the daemon changing.
type Portal interface {
	// Name returns the human-readable name of this portal instance.
	Name() string
	// SSIDs returns the network names this portal handles.
	SSIDs() []string
	// MatchesSSID reports whether this portal handles the given SSID.
	// Matching is exact and case sensitive.
	MatchesSSID(ssid string) bool
	// Connect executes the full authentication flow.
	Connect(ctx context.Context) error
	// IsAuthenticated reports whether the network already works, for
	// portals that can tell.
	IsAuthenticated(ctx context.Context) bool
}

// Registry holds portals in registration order. It is populated once at
// startup and read-only afterwards, so lookups need no locking.
type Registry struct {
	portals []Portal
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Register(p Portal) {
	slog.Debug("registered portal",
		"name", p.Name(),
		"ssids", strings.Join(p.SSIDs(), ", "),
	)
	r.portals = append(r.portals, p)
}

// FindForSSID returns the first registered portal that claims the SSID.
// When several claim the same name, registration order decides.
func (r *Registry) FindForSSID(ssid string) (Portal, bool) {
	for _, p := range r.portals {
		if p.MatchesSSID(ssid) {
			return p, true
		}
	}
	return nil, false
}

// AllSSIDs returns every SSID served by any registered portal, in
// registration order.
func (r *Registry) AllSSIDs() []string {
	var ssids []string
	for _, p := range r.portals {
		ssids = append(ssids, p.SSIDs()...)
	}
	return ssids
}

func (r *Registry) HasSSID(ssid string) bool {
	for _, p := range r.portals {
		if p.MatchesSSID(ssid) {
			return true
		}
	}
	return false
}
