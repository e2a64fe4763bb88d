// Package netcheck wraps the OS-level network questions the daemon asks:
// which configured wifi network is the machine associated with, and is the
// internet actually reachable through it.
package netcheck

import (
	"context"
	"errors"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	gopsnet "github.com/shirou/gopsutil/v4/net"
)

const (
	defaultProbeEndpoint = "https://www.google.com"
	defaultProbeTimeout  = time.Second * 5
)

type Wifi struct{}

// ConnectedSSID reports which of the target SSIDs the active wireless
// interface is associated with, using nmcli's terse output.
func (Wifi) ConnectedSSID(ctx context.Context, targets []string) (string, bool, error) {
	out, err := exec.CommandContext(ctx, "nmcli", "-t", "-f", "active,ssid", "dev", "wifi").Output()
	if err != nil {
		return "", false, err
	}
	ssid, ok := matchActiveSSID(string(out), targets)
	return ssid, ok, nil
}

func matchActiveSSID(out string, targets []string) (string, bool) {
	for _, line := range strings.Split(out, "\n") {
		ssid, active := strings.CutPrefix(line, "yes:")
		if !active {
			continue
		}
		if slices.Contains(targets, ssid) {
			return ssid, true
		}
	}
	return "", false
}

var probeClient = resty.New()

// Probe answers whether a known external endpoint is reachable. A zero
// Probe uses a 5s timeout against google.
type Probe struct {
	Endpoint string
	Timeout  time.Duration
}

func (p Probe) HasConnectivity(ctx context.Context) bool {
	endpoint := p.Endpoint
	if endpoint == "" {
		endpoint = defaultProbeEndpoint
	}
	timeout := p.Timeout
	if timeout == 0 {
		timeout = defaultProbeTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := probeClient.R().
		SetContext(ctx).
		Head(endpoint)
	return err == nil && res.IsSuccess()
}

// DetectMAC picks the hardware address of the first interface that is up
// and not a loopback, for portals configured without an explicit MAC.
func DetectMAC() (string, error) {
	ifaces, err := gopsnet.Interfaces()
	if err != nil {
		return "", err
	}

	for _, iface := range ifaces {
		if iface.HardwareAddr == "" {
			continue
		}
		if slices.Contains(iface.Flags, "loopback") || !slices.Contains(iface.Flags, "up") {
			continue
		}
		return iface.HardwareAddr, nil
	}

	return "", errors.New("no active interface with a hardware address")
}
