package mnemonic

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
)

// goldenSeedHex is SHA-256(32 x 0x00 || 32 x 0x01).
const goldenSeedHex = "5c85955f709283ecce2b74f1b1552918819f390911816e7bb466805a38ab87f3"

func goldenSeed(t *testing.T) []byte {
	t.Helper()
	seed, err := hex.DecodeString(goldenSeedHex)
	if err != nil {
		t.Fatalf("bad golden seed: %v", err)
	}
	return seed
}

func TestChecksum(t *testing.T) {
	seed := goldenSeed(t)

	if got := Checksum(seed); got != 0xF6 {
		t.Errorf("Checksum = %#x, want 0xf6", got)
	}
	if got := Checksum(seed[:16]); got != 0xD7 {
		t.Errorf("Checksum(128-bit) = %#x, want 0xd7", got)
	}

	first := sha256.Sum256(seed)
	second := sha256.Sum256(first[:])
	if Checksum(seed) != second[0] {
		t.Error("Checksum must be the first byte of the double SHA-256")
	}
}

func TestEncodeGolden(t *testing.T) {
	want := Parse("exodus music molecule eyetooth hemisphere physique Istanbul tumor " +
		"sandalwood briefcase hurricane unwind phonetic edict cellulose beaming " +
		"intention quota consulting Algol autopsy minnow hazardous kickoff " +
		"pocketful framework integrate enlist consensus rhythm letterhead upset visitor")

	got, err := Encode(goldenSeed(t))
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if i, ok := got.FirstMismatch(want); !ok {
		t.Fatalf("Encode mismatch at word %d: got %q, want %q", i, got.At(i), want.At(i))
	}
}

func TestEncodeStrengths(t *testing.T) {
	seed := goldenSeed(t)

	tests := []struct {
		name      string
		seed      []byte
		lastWord  string
		wantWords int
	}{
		{name: "128", seed: seed[:16], lastWord: "speculate", wantWords: 17},
		{name: "192", seed: seed[:24], lastWord: "vocalist", wantWords: 25},
		{name: "256", seed: seed, lastWord: "visitor", wantWords: 33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.seed)
			if err != nil {
				t.Fatalf("Encode error: %v", err)
			}
			if len(got) != tt.wantWords {
				t.Fatalf("len = %d, want %d", len(got), tt.wantWords)
			}
			if got[len(got)-1] != tt.lastWord {
				t.Errorf("checksum word = %q, want %q", got[len(got)-1], tt.lastWord)
			}
		})
	}
}

func TestEncodeIndexing(t *testing.T) {
	// 0x00 at an even position selects 1-based index 0, which wraps to the
	// last entry; 0xFF at an odd position selects index 511.
	got, err := Encode([]byte{0x00, 0xFF, 0x01, 0x80})
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	want := Sequence{"Yucatan", "Zulu", "adroitness", "merit", "sympathy"}
	if !got.Equal(want) {
		t.Errorf("Encode = %v, want %v", got, want)
	}
}

func TestEncodeChecksumRoundTrip(t *testing.T) {
	for n := 1; n <= 40; n++ {
		seed := bytes.Repeat([]byte{byte(n * 7)}, n)
		seq, err := Encode(seed)
		if err != nil {
			t.Fatalf("Encode(%d bytes) error: %v", n, err)
		}
		if len(seq) != n+1 {
			t.Fatalf("Encode(%d bytes) len = %d", n, len(seq))
		}
		if want := WordFor(Checksum(seed), n); seq[n] != want {
			t.Errorf("checksum word for %d bytes = %q, want %q", n, seq[n], want)
		}
	}
}

func TestEncodeDeterministic(t *testing.T) {
	seed := goldenSeed(t)
	a, _ := Encode(seed)
	b, _ := Encode(seed)
	if !a.Equal(b) {
		t.Error("Encode is not deterministic")
	}
}

func TestEncodeEmptySeed(t *testing.T) {
	if _, err := Encode(nil); !errors.Is(err, ErrEmptySeed) {
		t.Errorf("Encode(nil) error = %v, want ErrEmptySeed", err)
	}
}

func TestDecode(t *testing.T) {
	seed := goldenSeed(t)
	seq, _ := Encode(seed)

	got, err := Decode(seq)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if !bytes.Equal(got, seed) {
		t.Errorf("Decode = %x, want %x", got, seed)
	}
}

func TestDecodeErrors(t *testing.T) {
	seq, _ := Encode(goldenSeed(t))

	tests := []struct {
		name    string
		words   Sequence
		wantErr error
	}{
		{name: "too short", words: Sequence{"exodus"}, wantErr: ErrTooShort},
		{name: "unknown word", words: append(Sequence{"bogus"}, seq[1:]...), wantErr: ErrUnknownWord},
		{name: "wrong parity", words: append(Sequence{"music"}, seq[1:]...), wantErr: ErrWordParity},
		{name: "bad checksum", words: append(seq[:32].Clone(), "tolerance"), wantErr: ErrChecksumMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.words); !errors.Is(err, tt.wantErr) {
				t.Errorf("Decode error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSequenceFirstMismatch(t *testing.T) {
	a := Sequence{"one", "two", "three"}

	if i, ok := a.FirstMismatch(a.Clone()); !ok || i != -1 {
		t.Errorf("identical sequences: got (%d, %v)", i, ok)
	}
	if i, ok := a.FirstMismatch(Sequence{"one", "TWO", "three"}); ok || i != 1 {
		t.Errorf("changed word: got (%d, %v), want (1, false)", i, ok)
	}
	if i, ok := a.FirstMismatch(Sequence{"one", "two"}); ok || i != 2 {
		t.Errorf("prefix: got (%d, %v), want (2, false)", i, ok)
	}
	if a.String() != "one two three" {
		t.Errorf("String = %q", a.String())
	}
	if a.At(5) != "" {
		t.Error("At out of range should be empty")
	}
}

// pgpBackup is a 32-byte backup in published PGP word numbering.
const pgpBackup = "endorse performance frighten butterfat stagnate exodus checkup amulet " +
	"absurd newsletter solo resistor Athens sensation island sensation sentence " +
	"breakaway absurd decimal rematch guitarist beeswax savagery kiwi Burlington " +
	"commence Atlantic scorecard Camelot eightball impartial ratchet"

func TestPGPWordsDecodesBackup(t *testing.T) {
	seed, err := PGPWords.Decode(Parse(pgpBackup))
	if err != nil {
		t.Fatalf("PGPWords.Decode failed: %v", err)
	}
	want := "58ae6820d05b3206019ac5c511d278d2b91d0143a6691bd07c1e3d0eb5215775"
	if got := hex.EncodeToString(seed); got != want {
		t.Errorf("seed = %s, want %s", got, want)
	}

	// The display numbering is one entry off, so the same words do not
	// even have the right parity there.
	if _, err := Decode(Parse(pgpBackup)); !errors.Is(err, ErrWordParity) {
		t.Errorf("Decode(display) error = %v, want ErrWordParity", err)
	}
}

func TestPGPWordsRoundTrip(t *testing.T) {
	seed, _ := hex.DecodeString("00017f80fe" + "ff")
	seq, err := PGPWords.Encode(seed)
	if err != nil {
		t.Fatal(err)
	}
	if seq[0] != "aardvark" || seq[1] != "adviser" {
		t.Errorf("first words = %q %q, want aardvark adviser", seq[0], seq[1])
	}
	back, err := PGPWords.Decode(seq)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(back, seed) {
		t.Errorf("round trip = %x, want %x", back, seed)
	}

	display, _ := Encode(seed)
	if display.Equal(seq) {
		t.Error("display and PGP sequences should differ")
	}
}

func TestParseWordList(t *testing.T) {
	for _, l := range []WordList{DisplayWords, PGPWords} {
		got, err := ParseWordList(l.String())
		if err != nil || got != l {
			t.Errorf("ParseWordList(%q) = %v, %v", l.String(), got, err)
		}
	}
	if got, err := ParseWordList(""); err != nil || got != DisplayWords {
		t.Errorf("ParseWordList(\"\") = %v, %v", got, err)
	}
	if _, err := ParseWordList("bip39"); err == nil {
		t.Error("expected error for unknown word list")
	}
}
