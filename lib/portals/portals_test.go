package portals

import (
	"context"
	"slices"
	"testing"
	"wimesh/internal/config"

	"github.com/stretchr/testify/require"
)

type fakePortal struct {
	name  string
	ssids []string
}

func (p *fakePortal) Name() string                             { return p.name }
func (p *fakePortal) SSIDs() []string                          { return p.ssids }
func (p *fakePortal) MatchesSSID(ssid string) bool             { return slices.Contains(p.ssids, ssid) }
func (p *fakePortal) Connect(ctx context.Context) error        { return nil }
func (p *fakePortal) IsAuthenticated(ctx context.Context) bool { return false }

func TestFindForSSIDFirstRegisteredWins(t *testing.T) {
	first := &fakePortal{name: "first", ssids: []string{"Guest"}}
	second := &fakePortal{name: "second", ssids: []string{"Guest"}}

	registry := NewRegistry()
	registry.Register(first)
	registry.Register(second)

	for i := 0; i < 10; i++ {
		found, ok := registry.FindForSSID("Guest")
		require.True(t, ok)
		require.Same(t, first, found)
	}
}

func TestFindForSSIDNoMatch(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&fakePortal{name: "a", ssids: []string{"NetA"}})

	_, ok := registry.FindForSSID("NetB")
	require.False(t, ok)
}

func TestAllSSIDs(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&fakePortal{name: "a", ssids: []string{"NetA", "NetB"}})
	registry.Register(&fakePortal{name: "b", ssids: []string{"NetC"}})

	require.Equal(t, []string{"NetA", "NetB", "NetC"}, registry.AllSSIDs())
}

func TestHasSSID(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&fakePortal{name: "a", ssids: []string{"NetA"}})

	require.True(t, registry.HasSSID("NetA"))
	require.False(t, registry.HasSSID("neta"))
	require.False(t, registry.HasSSID("NetB"))
}

func TestBuildRegistrySkipsUnknownTypes(t *testing.T) {
	cfg := config.Config{
		Portals: []config.Portal{
			{Name: "Known", Type: "awing", SSIDs: []string{"NetA"}, MACAddress: "AA:BB:CC:DD:EE:FF"},
			{Name: "Unknown", Type: "fpt", SSIDs: []string{"NetB"}},
		},
	}

	registry, err := BuildRegistry(cfg)
	require.NoError(t, err)
	require.Equal(t, []string{"NetA"}, registry.AllSSIDs())
	require.False(t, registry.HasSSID("NetB"))
}

func TestBuildRegistryEmptyIsNotFatal(t *testing.T) {
	registry, err := BuildRegistry(config.Config{})
	require.NoError(t, err)
	require.Empty(t, registry.AllSSIDs())
}
