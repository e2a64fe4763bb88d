package portals

import (
	"log/slog"
	"time"
	"wimesh/internal/config"
	"wimesh/lib/portals/awing"
	"wimesh/lib/webclient"
)

// BuildRegistry creates a registry from the configured portal entries.
// Unknown portal types are skipped with a warning so one bad entry never
// takes the whole process down.
func BuildRegistry(cfg config.Config) (*Registry, error) {
	httpOpts := webclient.Options{
		Timeout:        time.Duration(cfg.HTTP.Timeout) * time.Second,
		ConnectTimeout: time.Duration(cfg.HTTP.ConnectTimeout) * time.Second,
		MaxRetries:     cfg.HTTP.MaxRetries,
	}

	registry := NewRegistry()
	for _, entry := range cfg.Portals {
		switch entry.Type {
		case "awing":
			portal, err := awing.NewPortal(awing.Config{
				Name:       entry.Name,
				SSIDs:      entry.SSIDs,
				MACAddress: entry.MACAddress,
				HTTP:       httpOpts,
			})
			if err != nil {
				return nil, err
			}
			registry.Register(portal)
		default:
			slog.Warn("unknown portal type, skipping",
				"type", entry.Type,
				"name", entry.Name,
			)
		}
	}

	if len(registry.AllSSIDs()) == 0 {
		slog.Warn("no portals configured, add portal entries to the config file")
	}

	return registry, nil
}
