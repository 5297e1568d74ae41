// Package signing implements address encoding and signed messages for keys
// held by the emulated device.
//
// Two coin families are supported. Decred, the default, hashes with
// BLAKE-256 and encodes P2PKH addresses with a two-byte network ID. Bitcoin
// uses double SHA-256 and BIP-137 signature headers.
//
// Keys are derived from the device seed with HKDF. This is a stand-in with
// the same inputs as hierarchical derivation (seed, passphrase, path) and
// is not BIP32 compatible, so device addresses differ from a real wallet's.
// Signatures and addresses themselves are interoperable.
package signing

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	btchash "github.com/btcsuite/btcd/chaincfg/chainhash"
	btcwire "github.com/btcsuite/btcd/wire"
	"github.com/decred/base58"
	"github.com/decred/dcrd/chaincfg/chainhash"
	dcrcfg "github.com/decred/dcrd/chaincfg/v3"
	"github.com/decred/dcrd/crypto/blake256"
	"github.com/decred/dcrd/crypto/ripemd160"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	dcrwire "github.com/decred/dcrd/wire"
	"golang.org/x/crypto/hkdf"
)

// Message magics prefixed to every signed message digest.
const (
	DecredMessageMagic  = "Decred Signed Message:\n"
	BitcoinMessageMagic = "Bitcoin Signed Message:\n"
)

// Signing errors.
var (
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrInvalidAddress    = errors.New("invalid address")
	ErrUnknownCoin       = errors.New("unknown coin")
	ErrEmptySeed         = errors.New("seed is empty")
	ErrSegwitUnsupported = errors.New("segwit addresses are not supported on this coin")
)

// Compact signature header ranges (BIP-137).
const (
	headerLegacyCompressed = 31 // 27 + 4, plus recovery id 0..3
	headerSegwit           = 39 // P2WPKH, plus recovery id 0..3
)

// Network is a coin the device can sign for.
type Network struct {
	// Name is the canonical coin name.
	Name string

	decred  *dcrcfg.Params
	bitcoin *chaincfg.Params
}

// Params returns the network for a coin name. Names are case-insensitive;
// empty means Decred mainnet.
func Params(coin string) (*Network, error) {
	switch strings.ToLower(strings.TrimSpace(coin)) {
	case "", "decred":
		return &Network{Name: "Decred", decred: dcrcfg.MainNetParams()}, nil
	case "decred testnet", "decred-testnet":
		return &Network{Name: "Decred Testnet", decred: dcrcfg.TestNet3Params()}, nil
	case "decred simnet", "decred-simnet":
		return &Network{Name: "Decred Simnet", decred: dcrcfg.SimNetParams()}, nil
	case "bitcoin":
		return &Network{Name: "Bitcoin", bitcoin: &chaincfg.MainNetParams}, nil
	case "testnet":
		return &Network{Name: "Testnet", bitcoin: &chaincfg.TestNet3Params}, nil
	case "regtest":
		return &Network{Name: "Regtest", bitcoin: &chaincfg.RegressionNetParams}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCoin, coin)
	}
}

// IsDecred reports whether n belongs to the Decred family.
func (n *Network) IsDecred() bool { return n.decred != nil }

// DeriveKey derives the private key for path from seed and passphrase.
func DeriveKey(seed []byte, passphrase string, path []uint32) (*secp256k1.PrivateKey, error) {
	if len(seed) == 0 {
		return nil, ErrEmptySeed
	}

	info := make([]byte, 0, 4*len(path)+8)
	info = append(info, "devreset"...)
	for _, p := range path {
		info = binary.BigEndian.AppendUint32(info, p)
	}
	r := hkdf.New(sha256.New, seed, []byte(passphrase), info)

	// Retry on the negligible chance the output is zero or >= N.
	var buf [32]byte
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, fmt.Errorf("failed to derive key: %w", err)
		}
		var scalar secp256k1.ModNScalar
		if overflow := scalar.SetBytes(&buf); overflow == 0 && !scalar.IsZero() {
			return secp256k1.NewPrivateKey(&scalar), nil
		}
	}
}

// Address encodes the compressed public key as P2PKH, or as P2WPKH when
// segwit is set on a Bitcoin network.
func (n *Network) Address(pub *secp256k1.PublicKey, segwit bool) (string, error) {
	return n.address(pub.SerializeCompressed(), segwit)
}

func (n *Network) address(serializedPub []byte, segwit bool) (string, error) {
	if n.IsDecred() {
		if segwit {
			return "", ErrSegwitUnsupported
		}
		return base58.CheckEncode(decredHash160(serializedPub), n.decred.PubKeyHashAddrID), nil
	}

	hash := btcutil.Hash160(serializedPub)
	var (
		addr btcutil.Address
		err  error
	)
	if segwit {
		addr, err = btcutil.NewAddressWitnessPubKeyHash(hash, n.bitcoin)
	} else {
		addr, err = btcutil.NewAddressPubKeyHash(hash, n.bitcoin)
	}
	if err != nil {
		return "", fmt.Errorf("failed to encode address: %w", err)
	}
	return addr.EncodeAddress(), nil
}

// decredHash160 is RIPEMD-160 over BLAKE-256.
func decredHash160(b []byte) []byte {
	sum := blake256.Sum256(b)
	h := ripemd160.New()
	h.Write(sum[:])
	return h.Sum(nil)
}

// MessageDigest hashes the magic and the message, each prefixed with its
// varint length: single BLAKE-256 on Decred, double SHA-256 on Bitcoin.
func (n *Network) MessageDigest(message []byte) []byte {
	var buf bytes.Buffer
	if n.IsDecred() {
		_ = dcrwire.WriteVarString(&buf, 0, DecredMessageMagic)
		_ = dcrwire.WriteVarBytes(&buf, 0, message)
		return chainhash.HashB(buf.Bytes())
	}
	_ = btcwire.WriteVarString(&buf, 0, BitcoinMessageMagic)
	_ = btcwire.WriteVarBytes(&buf, 0, message)
	return btchash.DoubleHashB(buf.Bytes())
}

// SignMessage returns a 65-byte compact signature over message.
func (n *Network) SignMessage(key *secp256k1.PrivateKey, message []byte, segwit bool) ([]byte, error) {
	digest := n.MessageDigest(message)
	if n.IsDecred() {
		if segwit {
			return nil, ErrSegwitUnsupported
		}
		return ecdsa.SignCompact(key, digest, true), nil
	}

	sig, err := btcecdsa.SignCompact(key, digest, true)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	if segwit {
		sig[0] += headerSegwit - headerLegacyCompressed
	}
	return sig, nil
}

// VerifyMessage checks that signature was made over message by the key
// behind address.
func (n *Network) VerifyMessage(address string, signature, message []byte) error {
	if len(signature) != 65 {
		return fmt.Errorf("%w: length %d", ErrInvalidSignature, len(signature))
	}
	if n.IsDecred() {
		return n.verifyDecred(address, signature, message)
	}
	return n.verifyBitcoin(address, signature, message)
}

func (n *Network) verifyDecred(address string, signature, message []byte) error {
	if _, version, err := base58.CheckDecode(address); err != nil || version != n.decred.PubKeyHashAddrID {
		return fmt.Errorf("%w: %s", ErrInvalidAddress, address)
	}

	pub, compressed, err := ecdsa.RecoverCompact(signature, n.MessageDigest(message))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	serialized := pub.SerializeUncompressed()
	if compressed {
		serialized = pub.SerializeCompressed()
	}
	recovered, err := n.address(serialized, false)
	if err != nil {
		return err
	}
	if recovered != address {
		return fmt.Errorf("%w: signed by %s", ErrInvalidSignature, recovered)
	}
	return nil
}

func (n *Network) verifyBitcoin(address string, signature, message []byte) error {
	decoded, err := btcutil.DecodeAddress(address, n.bitcoin)
	if err != nil || !decoded.IsForNet(n.bitcoin) {
		return fmt.Errorf("%w: %s", ErrInvalidAddress, address)
	}

	// RecoverCompact expects a legacy header, so fold the segwit range back.
	sig := bytes.Clone(signature)
	segwit := false
	if sig[0] >= headerSegwit && sig[0] < headerSegwit+4 {
		sig[0] -= headerSegwit - headerLegacyCompressed
		segwit = true
	}

	pub, _, err := btcecdsa.RecoverCompact(sig, n.MessageDigest(message))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	recovered, err := n.Address(pub, segwit)
	if err != nil {
		return err
	}
	if recovered != decoded.EncodeAddress() {
		return fmt.Errorf("%w: signed by %s", ErrInvalidSignature, recovered)
	}
	return nil
}
