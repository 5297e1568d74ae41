package commands

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/mash-protocol/devreset-go/pkg/entropy"
	"github.com/mash-protocol/devreset-go/pkg/mnemonic"
)

// EncodeCommand creates the encode command.
func EncodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "encode",
		Usage:     "Encode a hex seed as PGP words (with checksum word), or decode words",
		ArgsUsage: "<hex seed> | --decode <word...>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "decode",
				Aliases: []string{"d"},
				Usage:   "Decode a word sequence back to the seed",
			},
			&cli.BoolFlag{
				Name:  "pgp",
				Usage: "Use standard PGP word numbering, as load expects, instead of the device display",
			},
			&cli.BoolFlag{
				Name:  "numbered",
				Usage: "Print one numbered word per line",
			},
		},
		Action: runEncode,
	}
}

func runEncode(_ context.Context, cmd *cli.Command) error {
	if cmd.NArg() == 0 {
		return errors.New("input required")
	}
	w := cmd.Root().Writer
	list := mnemonic.DisplayWords
	if cmd.Bool("pgp") {
		list = mnemonic.PGPWords
	}

	if cmd.Bool("decode") {
		words := mnemonic.Parse(strings.Join(cmd.Args().Slice(), " "))
		seed, err := list.Decode(words)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, hex.EncodeToString(seed))
		return nil
	}

	seed, err := hex.DecodeString(strings.TrimPrefix(cmd.Args().First(), "0x"))
	if err != nil {
		return fmt.Errorf("invalid hex seed: %w", err)
	}
	words, err := list.Encode(seed)
	if err != nil {
		return err
	}
	printWords(w, words, cmd.Bool("numbered"))
	return nil
}

// MixCommand creates the mix command.
func MixCommand() *cli.Command {
	return &cli.Command{
		Name:  "mix",
		Usage: "Mix device and host entropy into a seed the way the device does",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "internal",
				Usage:    "Device entropy (hex)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "external",
				Usage:    "Host entropy (hex)",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "strength",
				Usage: "Seed strength in bits (128, 192, 256; default 256)",
			},
			&cli.BoolFlag{
				Name:  "numbered",
				Usage: "Print one numbered word per line",
			},
		},
		Action: runMix,
	}
}

func runMix(_ context.Context, cmd *cli.Command) error {
	strength := entropy.Strength256
	if cmd.IsSet("strength") {
		s, err := entropy.ParseStrength(int(cmd.Int("strength")))
		if err != nil {
			return err
		}
		strength = s
	}
	internal, err := hex.DecodeString(cmd.String("internal"))
	if err != nil {
		return fmt.Errorf("invalid internal entropy: %w", err)
	}
	external, err := hex.DecodeString(cmd.String("external"))
	if err != nil {
		return fmt.Errorf("invalid external entropy: %w", err)
	}

	seed, err := entropy.Mix(internal, external, strength)
	if err != nil {
		return err
	}
	words, err := mnemonic.Encode(seed)
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	fmt.Fprintf(w, "seed: %s\n", hex.EncodeToString(seed))
	printWords(w, words, cmd.Bool("numbered"))
	return nil
}

func printWords(w io.Writer, words mnemonic.Sequence, numbered bool) {
	if !numbered {
		fmt.Fprintln(w, words.String())
		return
	}
	for i, word := range words {
		fmt.Fprintf(w, "%2d. %s\n", i+1, word)
	}
}
