package emulator

import (
	"github.com/mash-protocol/devreset-go/pkg/signing"
	"github.com/mash-protocol/devreset-go/pkg/wire"
)

func (d *Device) getAddress(msg *wire.GetAddress) wire.Message {
	if !d.settings.initialized {
		return failure(wire.FailureNotInitialized, "device is not initialized")
	}
	network, err := signing.Params(msg.CoinName)
	if err != nil {
		return failure(wire.FailureDataError, err.Error())
	}

	return d.unlock(func() wire.Message {
		return d.passphrase(func(passphrase string) wire.Message {
			key, err := signing.DeriveKey(d.settings.seed, passphrase, msg.AddressN)
			if err != nil {
				return failure(wire.FailureProcessError, err.Error())
			}
			address, err := network.Address(key.PubKey(), msg.Segwit)
			if err != nil {
				return failure(wire.FailureProcessError, err.Error())
			}
			reply := &wire.Address{Address: address}
			if !msg.ShowDisplay {
				return reply
			}
			return d.confirm(wire.ButtonAddress, func() wire.Message { return reply })
		})
	})
}

func (d *Device) signMessage(msg *wire.SignMessage) wire.Message {
	if !d.settings.initialized {
		return failure(wire.FailureNotInitialized, "device is not initialized")
	}
	network, err := signing.Params(msg.CoinName)
	if err != nil {
		return failure(wire.FailureDataError, err.Error())
	}

	return d.unlock(func() wire.Message {
		return d.passphrase(func(passphrase string) wire.Message {
			return d.confirm(wire.ButtonProtectCall, func() wire.Message {
				key, err := signing.DeriveKey(d.settings.seed, passphrase, msg.AddressN)
				if err != nil {
					return failure(wire.FailureProcessError, err.Error())
				}
				address, err := network.Address(key.PubKey(), msg.Segwit)
				if err != nil {
					return failure(wire.FailureProcessError, err.Error())
				}
				sig, err := network.SignMessage(key, msg.Message, msg.Segwit)
				if err != nil {
					return failure(wire.FailureProcessError, err.Error())
				}
				return &wire.MessageSignature{Address: address, Signature: sig}
			})
		})
	})
}

func (d *Device) verifyMessage(msg *wire.VerifyMessage) wire.Message {
	network, err := signing.Params(msg.CoinName)
	if err != nil {
		return failure(wire.FailureDataError, err.Error())
	}
	if err := network.VerifyMessage(msg.Address, msg.Signature, msg.Message); err != nil {
		return failure(wire.FailureInvalidSignature, err.Error())
	}
	return &wire.Success{Message: "message verified"}
}
