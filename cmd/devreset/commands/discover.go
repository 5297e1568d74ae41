package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/mash-protocol/devreset-go/pkg/discovery"
)

// DiscoverCommand creates the discover command.
func DiscoverCommand() *cli.Command {
	return &cli.Command{
		Name:  "discover",
		Usage: "Browse the local network for reset-capable devices",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to browse",
				Value: discovery.BrowseTimeout,
			},
			&cli.StringFlag{
				Name:  "interface",
				Usage: "Network interface to browse on",
			},
		},
		Action: runDiscover,
	}
}

func runDiscover(ctx context.Context, cmd *cli.Command) error {
	browser := discovery.NewMDNSBrowser(discovery.BrowserConfig{Interface: cmd.String("interface")})
	defer browser.Stop()
	return listDevices(ctx, cmd, browser)
}

func listDevices(ctx context.Context, cmd *cli.Command, browser discovery.Browser) error {
	devices, err := discovery.CollectDevices(ctx, browser, cmd.Duration("timeout"))
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	if len(devices) == 0 {
		fmt.Fprintln(w, "No devices found.")
		return nil
	}
	fmt.Fprintf(w, "%-38s %-20s %-22s %-22s %s\n", "DEVICE ID", "VENDOR", "ADDRESS", "DEBUG", "INITIALIZED")
	for _, d := range devices {
		debug := d.DebugAddress()
		if debug == "" {
			debug = "-"
		}
		fmt.Fprintf(w, "%-38s %-20s %-22s %-22s %t\n", d.DeviceID, d.Vendor, d.Address(), debug, d.Initialized)
	}
	return nil
}
