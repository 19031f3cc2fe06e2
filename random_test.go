package cobs

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRandomSequence(t *testing.T) {
	seq := RandomSequence(1000, 1)
	if len(seq) != 1000 {
		t.Fatalf("length %d, want 1000", len(seq))
	}
	for i := 0; i < len(seq); i++ {
		if !strings.ContainsRune(dnaBases, rune(seq[i])) {
			t.Fatalf("position %d holds %q, not a DNA base", i, seq[i])
		}
	}

	if RandomSequence(1000, 1) != seq {
		t.Error("same seed produced different sequences")
	}
	if RandomSequence(1000, 2) == seq {
		t.Error("different seeds produced identical sequences")
	}

	// Roughly uniform base distribution.
	var counts [4]int
	for i := 0; i < len(seq); i++ {
		counts[strings.IndexByte(dnaBases, seq[i])]++
	}
	for b, c := range counts {
		if c < 150 || c > 350 {
			t.Errorf("base %c occurs %d times in 1000, expected near 250", dnaBases[b], c)
		}
	}
}

func TestConstructClassicRandom(t *testing.T) {
	path := filepath.Join(t.TempDir(), "random.cobs")
	const (
		signatureSize = 4096
		numDocuments  = 10
		documentSize  = 100
		numHashes     = uint64(2)
		seed          = uint64(99)
	)
	err := ConstructClassicRandom(path, signatureSize, numDocuments, documentSize, numHashes, seed, 4)
	if err != nil {
		t.Fatal(err)
	}

	idx := openIndex(t, path)
	if got := idx.Pages()[0].SignatureSize; got != signatureSize {
		t.Errorf("signature size %d, want %d", got, signatureSize)
	}
	if got := len(idx.FileNames()); got != numDocuments {
		t.Errorf("%d documents, want %d", got, numDocuments)
	}

	// Regenerating a document's terms must find them in the index.
	term := make([]byte, 31)
	s := NewClassicSearch(idx)
	for _, d := range []uint64{0, 3, 9} {
		for _, tIdx := range []uint64{0, 50, 99} {
			randomTerm(term, seed, d, tIdx)
			results, err := s.Search(string(term), numDocuments)
			if err != nil {
				t.Fatal(err)
			}
			if scoreByName(results)[idx.FileNames()[d]] < 1 {
				t.Errorf("document %d lost term %d", d, tIdx)
			}
		}
	}
}

func TestConstructClassicRandomDeterministic(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.cobs")
	p2 := filepath.Join(dir, "b.cobs")
	for _, p := range []string{p1, p2} {
		if err := ConstructClassicRandom(p, 2048, 9, 50, 1, 7, 3); err != nil {
			t.Fatal(err)
		}
	}
	a, err := os.ReadFile(p1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(p2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("random construction is not deterministic for a fixed seed")
	}
}
