package wordlist

import (
	"errors"
	"strings"
	"testing"
)

func TestTableSize(t *testing.T) {
	if len(words) != Size {
		t.Fatalf("table has %d entries, want %d", len(words), Size)
	}

	seen := make(map[string]int, Size)
	for i, w := range words {
		if w == "" {
			t.Errorf("entry %d is empty", i)
		}
		key := strings.ToLower(w)
		if prev, dup := seen[key]; dup {
			t.Errorf("entry %d (%q) duplicates entry %d", i, w, prev)
		}
		seen[key] = i
	}
}

func TestWordOneBased(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{index: 1, want: "aardvark"},
		{index: 2, want: "adroitness"},
		{index: 3, want: "absurd"},
		{index: 511, want: "Zulu"},
		{index: 512, want: "Yucatan"},
		{index: 0, want: "Yucatan"}, // wraps to the last entry
	}

	for _, tt := range tests {
		got, err := Word(tt.index)
		if err != nil {
			t.Fatalf("Word(%d) error: %v", tt.index, err)
		}
		if got != tt.want {
			t.Errorf("Word(%d) = %q, want %q", tt.index, got, tt.want)
		}
	}
}

func TestWordOutOfRange(t *testing.T) {
	for _, index := range []int{-1, Size + 1, 10000} {
		if _, err := Word(index); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Word(%d) error = %v, want ErrIndexOutOfRange", index, err)
		}
	}
}

func TestIndexInvertsWord(t *testing.T) {
	for index := 0; index < Size; index++ {
		w := MustWord(index)
		got, ok := Index(w)
		if !ok {
			t.Fatalf("Index(%q) not found", w)
		}
		if got != index {
			t.Errorf("Index(%q) = %d, want %d", w, got, index)
		}
	}
}

func TestIndexCaseInsensitive(t *testing.T) {
	got, ok := Index("  athens ")
	if !ok {
		t.Fatal("Index(athens) not found")
	}
	if want := 35; got != want {
		t.Errorf("Index(athens) = %d, want %d", got, want)
	}

	if _, ok := Index("notaword"); ok {
		t.Error("Index(notaword) should not be found")
	}
}

func TestWordsReturnsCopy(t *testing.T) {
	ws := Words()
	ws[0] = "changed"
	if words[0] != "aardvark" {
		t.Error("Words() must not expose the table")
	}
}

func TestEntryZeroBased(t *testing.T) {
	tests := []struct {
		pos  int
		want string
	}{
		{pos: 0, want: "aardvark"},
		{pos: 1, want: "adroitness"},
		{pos: 2, want: "absurd"},
		{pos: 511, want: "Yucatan"},
	}
	for _, tt := range tests {
		got, err := Entry(tt.pos)
		if err != nil {
			t.Fatalf("Entry(%d) error: %v", tt.pos, err)
		}
		if got != tt.want {
			t.Errorf("Entry(%d) = %q, want %q", tt.pos, got, tt.want)
		}
		if pos, ok := Position(tt.want); !ok || pos != tt.pos {
			t.Errorf("Position(%q) = %d, %v, want %d", tt.want, pos, ok, tt.pos)
		}
	}

	for _, pos := range []int{-1, Size} {
		if _, err := Entry(pos); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Entry(%d) error = %v, want ErrIndexOutOfRange", pos, err)
		}
	}
}

func TestEntryAndWordDifferByOne(t *testing.T) {
	for pos := 0; pos < Size-1; pos++ {
		if e, w := mustEntry(t, pos), MustWord(pos+1); e != w {
			t.Fatalf("Entry(%d) = %q, Word(%d) = %q", pos, e, pos+1, w)
		}
	}
	if mustEntry(t, Size-1) != MustWord(0) {
		t.Error("last entry is not the wrapped Word(0)")
	}
}

func mustEntry(t *testing.T, pos int) string {
	t.Helper()
	w, err := Entry(pos)
	if err != nil {
		t.Fatal(err)
	}
	return w
}
