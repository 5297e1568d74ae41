package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/mash-protocol/devreset-go/pkg/mnemonic"
	"github.com/mash-protocol/devreset-go/pkg/reset"
	"github.com/mash-protocol/devreset-go/pkg/wire"
)

// WipeCommand creates the wipe command.
func WipeCommand() *cli.Command {
	return &cli.Command{
		Name:  "wipe",
		Usage: "Erase the device seed and settings",
		Flags: connectionFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ep, done, err := dialFromFlags(ctx, cmd)
			if err != nil {
				return err
			}
			defer done()

			if _, err := drive(ctx, ep, &wire.WipeDevice{}, answerer{}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.Root().Writer, "Device wiped.")
			return nil
		},
	}
}

// LoadCommand creates the load command.
func LoadCommand() *cli.Command {
	flags := append(connectionFlags(),
		&cli.StringFlag{
			Name:     "mnemonic",
			Usage:    "PGP word backup including the checksum word, in standard PGP word numbering",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "pin",
			Usage: "Matrix-encoded PIN to set",
		},
		&cli.BoolFlag{
			Name:  "passphrase-protection",
			Usage: "Enable passphrase protection",
		},
		&cli.StringFlag{
			Name:  "label",
			Usage: "Device label",
		},
		&cli.StringFlag{
			Name:  "language",
			Usage: "Device language",
		},
	)
	return &cli.Command{
		Name:   "load",
		Usage:  "Install a known mnemonic on a test device",
		Flags:  flags,
		Action: runLoad,
	}
}

func runLoad(ctx context.Context, cmd *cli.Command) error {
	words := mnemonic.Parse(cmd.String("mnemonic"))
	// Catch typos before they reach the device.
	if _, err := mnemonic.PGPWords.Decode(words); err != nil {
		return err
	}

	ep, done, err := dialFromFlags(ctx, cmd)
	if err != nil {
		return err
	}
	defer done()

	_, err = drive(ctx, ep, &wire.LoadDevice{
		Mnemonic:             words.String(),
		Pin:                  cmd.String("pin"),
		PassphraseProtection: cmd.Bool("passphrase-protection"),
		Label:                cmd.String("label"),
		Language:             cmd.String("language"),
	}, answerer{pins: reset.StaticPin(cmd.String("pin"))})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, "Device loaded.")
	return nil
}
