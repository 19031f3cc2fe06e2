package cobs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	cobserrors "github.com/MitraDarja/cobs/errors"
)

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func collectTerms(t *testing.T, docs *DocumentList, i int, k uint32) []string {
	t.Helper()
	var terms []string
	err := docs.ProcessTerms(i, k, func(term []byte) error {
		terms = append(terms, string(term))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return terms
}

func TestDocumentListText(t *testing.T) {
	dir := t.TempDir()
	// Windows never span lines.
	writeDoc(t, dir, "sample.txt", "ACGTAC\nGGG\nTTTTT\n")

	docs, err := NewDocumentList(dir, FileTypeAny)
	if err != nil {
		t.Fatal(err)
	}
	if docs.Size() != 1 {
		t.Fatalf("got %d documents, want 1", docs.Size())
	}
	if docs.Name(0) != "sample" {
		t.Errorf("name = %q, want sample", docs.Name(0))
	}

	terms := collectTerms(t, docs, 0, 4)
	want := []string{"ACGT", "CGTA", "GTAC", "TTTT", "TTTT"}
	if len(terms) != len(want) {
		t.Fatalf("terms = %v, want %v", terms, want)
	}
	for i := range want {
		if terms[i] != want[i] {
			t.Errorf("term[%d] = %s, want %s", i, terms[i], want[i])
		}
	}

	n, err := docs.NumTerms(0, 4)
	if err != nil {
		t.Fatal(err)
	}
	if n != uint64(len(want)) {
		t.Errorf("NumTerms = %d, want %d", n, len(want))
	}
}

func TestDocumentListFasta(t *testing.T) {
	dir := t.TempDir()
	// Record sequences may span lines; records do not join.
	writeDoc(t, dir, "genome.fasta", ">chr1 description\nACG\nTAC\n>chr2\nGGGG\n")

	docs, err := NewDocumentList(dir, FileTypeFasta)
	if err != nil {
		t.Fatal(err)
	}
	if docs.Size() != 1 {
		t.Fatalf("got %d documents, want 1", docs.Size())
	}

	terms := collectTerms(t, docs, 0, 4)
	want := []string{"ACGT", "CGTA", "GTAC", "GGGG"}
	if len(terms) != len(want) {
		t.Fatalf("terms = %v, want %v", terms, want)
	}
	for i := range want {
		if terms[i] != want[i] {
			t.Errorf("term[%d] = %s, want %s", i, terms[i], want[i])
		}
	}
}

func TestDocumentListFastq(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "reads.fastq",
		"@read1\nACGTA\n+\nIIIII\n@read2\nTTTT\n+\nIIII\n")

	docs, err := NewDocumentList(dir, FileTypeFastq)
	if err != nil {
		t.Fatal(err)
	}
	terms := collectTerms(t, docs, 0, 4)
	want := []string{"ACGT", "CGTA", "TTTT"}
	if len(terms) != len(want) {
		t.Fatalf("terms = %v, want %v", terms, want)
	}
	for i := range want {
		if terms[i] != want[i] {
			t.Errorf("term[%d] = %s, want %s", i, terms[i], want[i])
		}
	}
}

func TestDocumentListFilter(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.txt", "ACGT\n")
	writeDoc(t, dir, "b.fasta", ">r\nACGT\n")
	writeDoc(t, dir, "ignored.bin", "\x00\x01")

	all, err := NewDocumentList(dir, FileTypeAny)
	if err != nil {
		t.Fatal(err)
	}
	if all.Size() != 2 {
		t.Errorf("any filter found %d documents, want 2", all.Size())
	}

	onlyText, err := NewDocumentList(dir, FileTypeText)
	if err != nil {
		t.Fatal(err)
	}
	if onlyText.Size() != 1 || onlyText.Name(0) != "a" {
		t.Errorf("text filter found %d documents", onlyText.Size())
	}
}

func TestDocumentListOrderIsStable(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "c.txt", "ACGT\n")
	writeDoc(t, dir, "a.txt", "ACGT\n")
	writeDoc(t, dir, "b.txt", "ACGT\n")

	docs, err := NewDocumentList(dir, FileTypeAny)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []string{"a", "b", "c"} {
		if docs.Name(i) != want {
			t.Errorf("name[%d] = %q, want %q", i, docs.Name(i), want)
		}
	}
}

func TestParseFileType(t *testing.T) {
	for _, s := range []string{"any", "*", "text", "txt", "fasta", "fastq", "cortex"} {
		if _, err := ParseFileType(s); err != nil {
			t.Errorf("ParseFileType(%q): %v", s, err)
		}
	}
	if _, err := ParseFileType("excel"); !errors.Is(err, cobserrors.ErrUnknownFileType) {
		t.Errorf("err = %v, want ErrUnknownFileType", err)
	}
}
