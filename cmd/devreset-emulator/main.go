// Command devreset-emulator serves an emulated hardware wallet for the
// reset handshake. It listens on a main link and a debug link, can persist
// its settings and advertise itself with mDNS.
//
// Usage:
//
//	devreset-emulator [flags]
//
// Examples:
//
//	# Serve on the default ports with a state file
//	devreset-emulator --state-file emu.json
//
//	# Misbehave: show a different word 5 during the second pass
//	devreset-emulator --tamper-pass 2 --tamper-word 5
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
