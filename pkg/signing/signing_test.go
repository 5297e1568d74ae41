package signing

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

var testSeed = bytes.Repeat([]byte{0x5c}, 32)

// Reference Decred signed message produced by a hardware wallet.
const (
	decredAddress   = "DspDtjHb9aMymZzZjheNUjoPax3eWtrqaQf"
	decredMessage   = "Waldo was here"
	decredSignature = "1f559545e02c6da69c7e6fd91c35685e166b8faad7cf9a75ed598ff0247d733d" +
		"451e98bc6fadd7381b3ef657738089736f80c9837c3caba16606954a5bc6e84b72"
)

func mustNetwork(t *testing.T, coin string) *Network {
	t.Helper()
	n, err := Params(coin)
	if err != nil {
		t.Fatalf("Params(%q) failed: %v", coin, err)
	}
	return n
}

func TestDeriveKeyDeterministic(t *testing.T) {
	a, err := DeriveKey(testSeed, "", []uint32{44, 0, 0})
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	b, err := DeriveKey(testSeed, "", []uint32{44, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Serialize(), b.Serialize()) {
		t.Error("same inputs produced different keys")
	}

	others := []struct {
		name       string
		passphrase string
		path       []uint32
	}{
		{"passphrase", "TREZOR", []uint32{44, 0, 0}},
		{"path", "", []uint32{44, 0, 1}},
		{"root", "", nil},
	}
	for _, o := range others {
		k, err := DeriveKey(testSeed, o.passphrase, o.path)
		if err != nil {
			t.Fatal(err)
		}
		if bytes.Equal(k.Serialize(), a.Serialize()) {
			t.Errorf("%s change did not change the key", o.name)
		}
	}
}

func TestDeriveKeyEmptySeed(t *testing.T) {
	if _, err := DeriveKey(nil, "", nil); !errors.Is(err, ErrEmptySeed) {
		t.Errorf("err = %v, want ErrEmptySeed", err)
	}
}

func TestParamsDefaultsToDecred(t *testing.T) {
	n := mustNetwork(t, "")
	if !n.IsDecred() || n.Name != "Decred" {
		t.Errorf("Params(\"\") = %s, want Decred", n.Name)
	}
	if _, err := Params("Litecoin"); !errors.Is(err, ErrUnknownCoin) {
		t.Errorf("Params(Litecoin) err = %v", err)
	}
}

func TestAddressFormats(t *testing.T) {
	key, _ := DeriveKey(testSeed, "", []uint32{0})
	tests := []struct {
		coin   string
		segwit bool
		prefix string
	}{
		{"", false, "Ds"},
		{"Decred Testnet", false, "Ts"},
		{"decred-simnet", false, "Ss"},
		{"Bitcoin", false, "1"},
		{"Bitcoin", true, "bc1q"},
		{"Testnet", true, "tb1q"},
		{"regtest", true, "bcrt1q"},
	}
	for _, tt := range tests {
		addr, err := mustNetwork(t, tt.coin).Address(key.PubKey(), tt.segwit)
		if err != nil {
			t.Fatalf("Address(%q) failed: %v", tt.coin, err)
		}
		if !strings.HasPrefix(addr, tt.prefix) {
			t.Errorf("Address(%q, segwit=%v) = %s, want prefix %s", tt.coin, tt.segwit, addr, tt.prefix)
		}
	}

	if _, err := mustNetwork(t, "decred").Address(key.PubKey(), true); !errors.Is(err, ErrSegwitUnsupported) {
		t.Errorf("decred segwit err = %v", err)
	}
}

func TestVerifyDecredMessage(t *testing.T) {
	n := mustNetwork(t, "Decred")
	sig, _ := hex.DecodeString(decredSignature)

	if err := n.VerifyMessage(decredAddress, sig, []byte(decredMessage)); err != nil {
		t.Fatalf("VerifyMessage failed: %v", err)
	}

	badSig := bytes.Clone(sig)
	badSig[12], badSig[13] = 0xff, 0xff
	if err := n.VerifyMessage(decredAddress, badSig, []byte(decredMessage)); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("bad signature err = %v", err)
	}
	if err := n.VerifyMessage(decredAddress, sig, []byte("Waldo was INVALID")); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("bad message err = %v", err)
	}
	if err := n.VerifyMessage("DspDtjHb9aMymZzZjheNUjoPax3ffffffff", sig, []byte(decredMessage)); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("bad address err = %v", err)
	}

	testnet := mustNetwork(t, "decred testnet")
	if err := testnet.VerifyMessage(decredAddress, sig, []byte(decredMessage)); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("wrong network err = %v", err)
	}
}

func TestSignVerifyMessage(t *testing.T) {
	key, _ := DeriveKey(testSeed, "", []uint32{44, 0, 0})
	msg := []byte("This is an example of a signed message.")

	tests := []struct {
		coin   string
		segwit bool
		header [2]byte
	}{
		{"decred", false, [2]byte{31, 34}},
		{"bitcoin", false, [2]byte{31, 34}},
		{"bitcoin", true, [2]byte{39, 42}},
	}
	for _, tt := range tests {
		n := mustNetwork(t, tt.coin)
		addr, err := n.Address(key.PubKey(), tt.segwit)
		if err != nil {
			t.Fatal(err)
		}
		sig, err := n.SignMessage(key, msg, tt.segwit)
		if err != nil {
			t.Fatalf("SignMessage(%s) failed: %v", tt.coin, err)
		}
		if len(sig) != 65 {
			t.Fatalf("signature length = %d", len(sig))
		}
		if sig[0] < tt.header[0] || sig[0] > tt.header[1] {
			t.Errorf("%s segwit=%v header = %d", tt.coin, tt.segwit, sig[0])
		}

		if err := n.VerifyMessage(addr, sig, msg); err != nil {
			t.Errorf("VerifyMessage(%s, segwit=%v) failed: %v", tt.coin, tt.segwit, err)
		}
		if err := n.VerifyMessage(addr, sig, []byte("tampered")); !errors.Is(err, ErrInvalidSignature) {
			t.Errorf("tampered message err = %v", err)
		}
	}
}

func TestVerifyMessageRejects(t *testing.T) {
	bitcoin := mustNetwork(t, "bitcoin")
	key, _ := DeriveKey(testSeed, "", nil)
	other, _ := DeriveKey(testSeed, "x", nil)
	msg := []byte("hello")

	sig, _ := bitcoin.SignMessage(key, msg, false)
	otherAddr, _ := bitcoin.Address(other.PubKey(), false)

	if err := bitcoin.VerifyMessage(otherAddr, sig, msg); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("wrong signer err = %v", err)
	}
	if err := bitcoin.VerifyMessage(otherAddr, sig[:64], msg); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("short signature err = %v", err)
	}
	if err := bitcoin.VerifyMessage("not-an-address", sig, msg); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("bad address err = %v", err)
	}

	tbAddr, _ := mustNetwork(t, "testnet").Address(key.PubKey(), true)
	if err := bitcoin.VerifyMessage(tbAddr, sig, msg); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("wrong network err = %v", err)
	}

	// A Decred signature does not verify under the Bitcoin digest.
	decred := mustNetwork(t, "decred")
	dcrSig, _ := decred.SignMessage(key, msg, false)
	addr, _ := bitcoin.Address(key.PubKey(), false)
	if err := bitcoin.VerifyMessage(addr, dcrSig, msg); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("cross-family err = %v", err)
	}
}

func TestMessageDigestLayout(t *testing.T) {
	for _, coin := range []string{"decred", "bitcoin"} {
		n := mustNetwork(t, coin)
		a := n.MessageDigest([]byte("abc"))
		b := n.MessageDigest([]byte("abd"))
		if len(a) != 32 || bytes.Equal(a, b) {
			t.Errorf("%s digest should be 32 bytes and message dependent", coin)
		}
	}
	if bytes.Equal(mustNetwork(t, "decred").MessageDigest([]byte("abc")), mustNetwork(t, "bitcoin").MessageDigest([]byte("abc"))) {
		t.Error("decred and bitcoin digests should differ")
	}
}
