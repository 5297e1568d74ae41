// Command devreset runs the seed-mixing device reset handshake against a
// hardware wallet (or emulator) and checks the settings it ends up with.
//
// Usage:
//
//	devreset [global flags] <command> [flags]
//
// Commands:
//
//	reset            Reset the device and verify its settings
//	encode           Encode a hex seed as PGP words, or decode words
//	mix              Mix internal and external entropy into a seed
//	discover         Browse the local network for devices
//	log              View, export or summarize a protocol capture
//	verify-message   Verify a signed message locally or on the device
//
// Examples:
//
//	# Reset the emulator with PIN protection, asking for the PIN
//	devreset reset --pin-protection
//
//	# Reset the first device found with mDNS
//	devreset reset --discover --strength 128
//
//	# Inspect the capture of a failed run
//	devreset log view --category error reset.dlog
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mash-protocol/devreset-go/cmd/devreset/commands"
	"github.com/mash-protocol/devreset-go/pkg/reset"
	"github.com/mash-protocol/devreset-go/pkg/settings"
)

const (
	exitSuccess     = 0
	exitCommandErr  = 1
	exitConformance = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := commands.App().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// exitCode separates a misbehaving device from operator or link errors.
func exitCode(err error) int {
	if errors.Is(err, reset.ErrConformance) || errors.Is(err, settings.ErrMismatch) {
		return exitConformance
	}
	return exitCommandErr
}
