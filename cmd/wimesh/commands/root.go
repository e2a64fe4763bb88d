package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	"wimesh/internal/config"
	"wimesh/internal/supervisor"
	"wimesh/lib/netcheck"
	"wimesh/lib/portals"
	"wimesh/lib/telemetry"

	"github.com/spf13/cobra"
)

const version = "0.2.0"

var (
	daemonMode bool
	configPath string
)

func init() {
	rootCmd.Flags().BoolVarP(&daemonMode, "daemon", "d", false, "run in daemon mode (continuous monitoring)")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "config file path")
}

var rootCmd = &cobra.Command{
	Use:           "wimesh",
	Short:         "Captive portal auto login client",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		telemetry.InitSlog(cfg.Logging.Level, cfg.Logging.LogFile)

		tel, err := telemetry.SetupFromEnv(ctx, "wimesh")
		if err != nil {
			slog.Warn("failed to set up trace exporting", "err", err)
		}
		defer tel.Shutdown(context.Background())

		slog.Info("wimesh - captive portal auto login", "version", version)

		registry, err := portals.BuildRegistry(cfg)
		if err != nil {
			return err
		}

		wifi := netcheck.Wifi{}
		probe := netcheck.Probe{}

		if daemonMode {
			sup := supervisor.New(registry, wifi, probe, supervisor.Options{
				CheckInterval: time.Duration(cfg.Global.CheckInterval) * time.Second,
			})
			sup.Run(ctx)
			return nil
		}
		return runOnce(ctx, registry, wifi)
	},
}

// runOnce tries a single login through the portal claiming the currently
// associated network. Not being associated to a configured network is not
// an error, a failed login is.
func runOnce(ctx context.Context, registry *portals.Registry, wifi netcheck.Wifi) error {
	targets := registry.AllSSIDs()

	ssid, associated, err := wifi.ConnectedSSID(ctx, targets)
	if err != nil {
		slog.Error("failed to check wifi status", "err", err)
		return err
	}
	if !associated {
		slog.Warn("not connected to any configured wifi network")
		slog.Info("configured ssids", "ssids", strings.Join(targets, ", "))
		return nil
	}
	slog.Info("connected", "ssid", ssid)

	portal, ok := registry.FindForSSID(ssid)
	if !ok {
		return fmt.Errorf("no portal configured for ssid: %s", ssid)
	}
	slog.Info("using portal", "name", portal.Name())

	if err := portal.Connect(ctx); err != nil {
		slog.Error("connection failed", "err", err)
		return err
	}
	slog.Info("connection established")
	return nil
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
