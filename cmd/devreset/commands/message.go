package commands

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/mash-protocol/devreset-go/pkg/reset"
	"github.com/mash-protocol/devreset-go/pkg/signing"
	"github.com/mash-protocol/devreset-go/pkg/transport"
	"github.com/mash-protocol/devreset-go/pkg/wire"
)

// hardened marks a hardened path element.
const hardened = 0x80000000

// DefaultPath is the first receive address of the first Decred account.
const DefaultPath = "m/44'/42'/0'/0/0"

// VerifyMessageCommand creates the verify-message command.
func VerifyMessageCommand() *cli.Command {
	flags := append(connectionFlags(),
		&cli.StringFlag{
			Name:     "signer",
			Usage:    "Signer address",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "signature",
			Usage:    "Compact signature (base64)",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "message",
			Aliases:  []string{"m"},
			Usage:    "Signed message",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "coin",
			Usage: "Network (decred, decred-testnet, decred-simnet, bitcoin, testnet, regtest)",
		},
		&cli.BoolFlag{
			Name:  "on-device",
			Usage: "Ask the device to verify instead of verifying locally",
		},
	)
	return &cli.Command{
		Name:   "verify-message",
		Usage:  "Verify a signed message",
		Flags:  flags,
		Action: runVerifyMessage,
	}
}

func runVerifyMessage(ctx context.Context, cmd *cli.Command) error {
	sig, err := base64.StdEncoding.DecodeString(cmd.String("signature"))
	if err != nil {
		return fmt.Errorf("invalid signature encoding: %w", err)
	}
	address := cmd.String("signer")
	message := []byte(cmd.String("message"))
	w := cmd.Root().Writer

	if !cmd.Bool("on-device") {
		network, err := signing.Params(cmd.String("coin"))
		if err != nil {
			return err
		}
		if err := network.VerifyMessage(address, sig, message); err != nil {
			return err
		}
		fmt.Fprintln(w, "Signature is valid.")
		return nil
	}

	ep, done, err := dialFromFlags(ctx, cmd)
	if err != nil {
		return err
	}
	defer done()

	_, err = drive(ctx, ep, &wire.VerifyMessage{
		Address:   address,
		Signature: sig,
		Message:   message,
		CoinName:  cmd.String("coin"),
	}, answerer{})
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "Device reports the signature is valid.")
	return nil
}

// AddressCommand creates the address command.
func AddressCommand() *cli.Command {
	return &cli.Command{
		Name:  "address",
		Usage: "Show the device address for a derivation path",
		Flags: append(connectionFlags(), signerFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, err := ParsePath(cmd.String("path"))
			if err != nil {
				return err
			}
			return withSigner(ctx, cmd, &wire.GetAddress{
				AddressN:    path,
				CoinName:    cmd.String("coin"),
				ShowDisplay: cmd.Bool("show"),
				Segwit:      cmd.Bool("segwit"),
			}, func(reply wire.Message) error {
				addr, ok := reply.(*wire.Address)
				if !ok {
					return fmt.Errorf("expected Address, got %s", wire.Name(reply))
				}
				fmt.Fprintln(cmd.Root().Writer, addr.Address)
				return nil
			})
		},
	}
}

// SignMessageCommand creates the sign-message command.
func SignMessageCommand() *cli.Command {
	flags := append(connectionFlags(), signerFlags()...)
	flags = append(flags, &cli.StringFlag{
		Name:     "message",
		Aliases:  []string{"m"},
		Usage:    "Message to sign",
		Required: true,
	})
	return &cli.Command{
		Name:  "sign-message",
		Usage: "Sign a message with the device key for a derivation path",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, err := ParsePath(cmd.String("path"))
			if err != nil {
				return err
			}
			return withSigner(ctx, cmd, &wire.SignMessage{
				AddressN: path,
				Message:  []byte(cmd.String("message")),
				CoinName: cmd.String("coin"),
				Segwit:   cmd.Bool("segwit"),
			}, func(reply wire.Message) error {
				sig, ok := reply.(*wire.MessageSignature)
				if !ok {
					return fmt.Errorf("expected MessageSignature, got %s", wire.Name(reply))
				}
				w := cmd.Root().Writer
				fmt.Fprintf(w, "address:   %s\n", sig.Address)
				fmt.Fprintf(w, "signature: %s\n", base64.StdEncoding.EncodeToString(sig.Signature))
				return nil
			})
		},
	}
}

func signerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "path",
			Usage: "Derivation path",
			Value: DefaultPath,
		},
		&cli.StringFlag{
			Name:  "coin",
			Usage: "Network (decred, decred-testnet, decred-simnet, bitcoin, testnet, regtest)",
		},
		&cli.BoolFlag{
			Name:  "segwit",
			Usage: "Use a native segwit (P2WPKH) address",
		},
		&cli.BoolFlag{
			Name:  "show",
			Usage: "Confirm the address on the device display",
		},
		&cli.StringFlag{
			Name:  "pin",
			Usage: "Matrix-encoded PIN (prompted when needed)",
		},
		&cli.StringFlag{
			Name:  "passphrase",
			Usage: "Wallet passphrase (prompted when needed)",
		},
	}
}

// withSigner sends req, answering PIN and passphrase prompts, and hands
// the final reply to handle.
func withSigner(ctx context.Context, cmd *cli.Command, req wire.Message, handle func(wire.Message) error) error {
	ep, done, err := dialFromFlags(ctx, cmd)
	if err != nil {
		return err
	}
	defer done()

	a := answerer{}
	var term *terminal
	prompt := func() (*terminal, error) {
		if term == nil {
			root := cmd.Root()
			t, err := newTerminal(root.Writer, root.ErrWriter)
			if err != nil {
				return nil, err
			}
			term = t
		}
		return term, nil
	}
	defer func() {
		if term != nil {
			term.Close()
		}
	}()

	if cmd.IsSet("pin") {
		a.pins = reset.StaticPin(cmd.String("pin"))
	} else {
		a.pins = reset.PinFunc(func(ctx context.Context, kind wire.PinMatrixRequestType) (string, error) {
			t, err := prompt()
			if err != nil {
				return "", err
			}
			return t.Pin(ctx, kind)
		})
	}
	a.passphrase = func(ctx context.Context) (string, error) {
		if cmd.IsSet("passphrase") {
			return cmd.String("passphrase"), nil
		}
		t, err := prompt()
		if err != nil {
			return "", err
		}
		return t.Passphrase(ctx)
	}

	reply, err := drive(ctx, ep, req, a)
	if err != nil {
		return err
	}
	return handle(reply)
}

// dialFromFlags loads the config, resolves the device and connects.
func dialFromFlags(ctx context.Context, cmd *cli.Command) (*transport.Endpoint, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg, cmd.Root().ErrWriter)
	protoLog, closeLog, err := protocolLogger(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := resolveDevice(ctx, cmd, cfg, logger); err != nil {
		closeLog()
		return nil, nil, err
	}
	ep, err := connect(ctx, cfg, protoLog)
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	return ep, func() {
		ep.Close()
		closeLog()
	}, nil
}

// ParsePath parses "m/44'/0'/0'/0/0". Both ' and h mark hardened elements.
func ParsePath(s string) ([]uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "m" {
		return nil, nil
	}
	parts := strings.Split(s, "/")
	if parts[0] == "m" {
		parts = parts[1:]
	}

	path := make([]uint32, 0, len(parts))
	for _, p := range parts {
		var offset uint32
		if strings.HasSuffix(p, "'") || strings.HasSuffix(p, "h") {
			offset = hardened
			p = p[:len(p)-1]
		}
		n, err := strconv.ParseUint(p, 10, 31)
		if err != nil {
			return nil, fmt.Errorf("invalid path element %q: %w", p, errors.Unwrap(err))
		}
		path = append(path, uint32(n)+offset)
	}
	return path, nil
}
