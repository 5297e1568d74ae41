package emulator

import (
	"fmt"
	"io"

	"github.com/mash-protocol/devreset-go/pkg/entropy"
	"github.com/mash-protocol/devreset-go/pkg/mnemonic"
	"github.com/mash-protocol/devreset-go/pkg/wire"
	"github.com/mash-protocol/devreset-go/pkg/wordlist"
)

// resetFlow carries a reset across its prompts.
type resetFlow struct {
	req      *wire.ResetDevice
	strength entropy.Strength
	internal []byte
	pin      string
	words    mnemonic.Sequence
	seed     []byte
}

func (d *Device) reset(msg *wire.ResetDevice) wire.Message {
	if d.settings.initialized {
		return failure(wire.FailureUnexpectedMessage, "device is already initialized")
	}
	strength, err := entropy.ParseStrength(int(msg.Strength))
	if err != nil {
		return failure(wire.FailureDataError, err.Error())
	}

	internal := make([]byte, entropy.MinSourceSize)
	if _, err := io.ReadFull(d.entropy, internal); err != nil {
		return failure(wire.FailureFirmwareError, fmt.Sprintf("entropy source failed: %v", err))
	}
	d.resetEntropy = internal

	r := &resetFlow{req: msg, strength: strength, internal: internal}
	if msg.DisplayRandom {
		return d.confirm(wire.ButtonResetDevice, func() wire.Message { return d.resetPin(r) })
	}
	return d.resetPin(r)
}

func (d *Device) resetPin(r *resetFlow) wire.Message {
	if !r.req.PinProtection {
		return d.requestEntropy(r)
	}
	return d.ask(&wire.PinMatrixRequest{Kind: wire.PinNewFirst}, wire.TypePinMatrixAck, func(msg wire.Message) wire.Message {
		first := msg.(*wire.PinMatrixAck).Pin
		if first == "" {
			return failure(wire.FailurePinInvalid, "PIN is empty")
		}
		if d.opts.Faults.SkipSecondPin {
			r.pin = first
			return d.requestEntropy(r)
		}
		return d.ask(&wire.PinMatrixRequest{Kind: wire.PinNewSecond}, wire.TypePinMatrixAck, func(msg wire.Message) wire.Message {
			if msg.(*wire.PinMatrixAck).Pin != first || d.opts.Faults.RejectPin {
				return failure(wire.FailurePinMismatch, "PIN mismatch")
			}
			r.pin = first
			return d.requestEntropy(r)
		})
	})
}

func (d *Device) requestEntropy(r *resetFlow) wire.Message {
	return d.ask(&wire.EntropyRequest{}, wire.TypeEntropyAck, func(msg wire.Message) wire.Message {
		first, second := r.internal, msg.(*wire.EntropyAck).Entropy
		if d.opts.Faults.SwapEntropyOrder {
			first, second = second, first
		}
		seed, err := entropy.Mix(first, second, r.strength)
		if err != nil {
			return failure(wire.FailureDataError, err.Error())
		}
		words, err := mnemonic.Encode(seed)
		if err != nil {
			return failure(wire.FailureFirmwareError, err.Error())
		}
		r.seed, r.words = seed, words
		return d.showWord(r, 1, 0)
	})
}

// showWord displays word index of pass and waits for its confirmation.
func (d *Device) showWord(r *resetFlow, pass, index int) wire.Message {
	word := r.words[index]
	if f := d.opts.Faults; f.TamperPass == pass && f.TamperWord == index {
		word = tamper(word)
	}
	d.resetWord = word

	return d.confirm(wire.ButtonConfirmWord, func() wire.Message {
		switch {
		case index+1 < len(r.words):
			return d.showWord(r, pass, index+1)
		case pass == 1:
			return d.showWord(r, 2, 0)
		default:
			return d.finishReset(r)
		}
	})
}

func (d *Device) finishReset(r *resetFlow) wire.Message {
	d.resetWord = ""
	clear(d.resetEntropy)
	d.resetEntropy = nil

	err := d.install(settings{
		initialized:          true,
		words:                r.words,
		wordList:             mnemonic.DisplayWords,
		seed:                 r.seed,
		pin:                  r.pin,
		passphraseProtection: r.req.PassphraseProtection && !d.opts.Faults.IgnorePassphrase,
		label:                r.req.Label,
		language:             r.req.Language,
	}, "reset")
	if err != nil {
		return failure(wire.FailureFirmwareError, err.Error())
	}
	if d.opts.Faults.WrongFinalResponse {
		return d.features()
	}
	return &wire.Success{Message: "device reset"}
}

// tamper swaps word for its neighbour of the same parity.
func tamper(word string) string {
	index, ok := wordlist.Index(word)
	if !ok {
		return word
	}
	return wordlist.MustWord((index + 2) % wordlist.Size)
}
