package cobs

import (
	"context"
	"path/filepath"
	"testing"
)

func TestCompactEquivalentToClassic(t *testing.T) {
	// All documents carry the same term count, so every compact page
	// derives the same signature size as the classic index and the two
	// layouts must agree bit for bit on every score.
	docs := randomDocs(20, 100, 31, 77)
	opts := []BuildOption{
		WithNumHashes(3),
		WithFalsePositiveRate(0.1),
	}

	classicPath := buildClassic(t, docs, opts...)
	classicIdx := openIndex(t, classicPath)

	for _, pageSize := range []uint64{20, 5} {
		compactPath := buildCompact(t, docs, append(opts, WithPageSize(pageSize))...)
		compactIdx := openIndex(t, compactPath)

		query := RandomSequence(500, 123)
		classicScores := scoreByName(searchAll(t, classicIdx, query))
		compactScores := scoreByName(searchAll(t, compactIdx, query))

		if len(classicScores) != len(compactScores) {
			t.Fatalf("page size %d: %d vs %d results", pageSize, len(compactScores), len(classicScores))
		}
		for name, want := range classicScores {
			if got := compactScores[name]; got != want {
				t.Errorf("page size %d: %s scored %d, classic scored %d", pageSize, name, got, want)
			}
		}
	}
}

func TestCompactPageStructure(t *testing.T) {
	docs := randomDocs(10, 50, 31, 13)
	path := buildCompact(t, docs,
		WithPageSize(4),
		WithNumHashes(2),
		WithFalsePositiveRate(0.2))
	idx := openIndex(t, path)

	pages := idx.Pages()
	if len(pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(pages))
	}
	wantDocs := []uint64{4, 4, 2}
	for p, page := range pages {
		if page.NumDocuments != wantDocs[p] {
			t.Errorf("page %d has %d documents, want %d", p, page.NumDocuments, wantDocs[p])
		}
		if page.RowSize != 1 {
			t.Errorf("page %d row size %d, want 1", p, page.RowSize)
		}
		if page.SignatureSize == 0 {
			t.Errorf("page %d signature size is zero", p)
		}
	}
	if idx.PageSize() != 4 {
		t.Errorf("PageSize = %d, want 4", idx.PageSize())
	}

	// Document order is preserved across the page partition.
	names := idx.FileNames()
	if len(names) != docs.Size() {
		t.Fatalf("got %d names, want %d", len(names), docs.Size())
	}
	for i, name := range names {
		if name != docs.Name(i) {
			t.Errorf("name[%d] = %q, want %q", i, name, docs.Name(i))
		}
	}
}

func TestCompactPerPageSignatureSize(t *testing.T) {
	// Pages size their signatures independently: a page of small
	// documents must end up with a smaller signature than a page holding
	// a large one.
	docs := &memDocs{}
	for i := 0; i < 4; i++ {
		docs.names = append(docs.names, docName(i))
		docs.seqs = append(docs.seqs, []string{RandomSequence(100, uint64(i))})
	}
	for i := 4; i < 8; i++ {
		docs.names = append(docs.names, docName(i))
		docs.seqs = append(docs.seqs, []string{RandomSequence(3000, uint64(i))})
	}

	path := buildCompact(t, docs,
		WithPageSize(4),
		WithFalsePositiveRate(0.3))
	idx := openIndex(t, path)

	pages := idx.Pages()
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}
	if pages[0].SignatureSize >= pages[1].SignatureSize {
		t.Errorf("small-document page signature %d not below large-document page %d",
			pages[0].SignatureSize, pages[1].SignatureSize)
	}

	// The small page is sized for its own largest document.
	wantM := CalcSignatureSize(100-31+1, 1, 0.3)
	if pages[0].SignatureSize != wantM {
		t.Errorf("page 0 signature size %d, want %d", pages[0].SignatureSize, wantM)
	}
}

func TestCompactAioParity(t *testing.T) {
	docs := randomDocs(12, 80, 31, 31)
	path := buildCompact(t, docs,
		WithPageSize(5),
		WithNumHashes(3),
		WithFalsePositiveRate(0.1))

	mmapIdx := openIndex(t, path)
	aioIdx, err := OpenCompactAio(path)
	if err != nil {
		t.Fatalf("OpenCompactAio: %v", err)
	}
	defer aioIdx.Close()

	query := RandomSequence(400, 55)
	mmapScores := scoreByName(searchAll(t, mmapIdx, query))
	aioScores := scoreByName(searchAll(t, aioIdx, query))
	if len(mmapScores) != len(aioScores) {
		t.Fatalf("result counts differ: %d vs %d", len(mmapScores), len(aioScores))
	}
	for name, want := range mmapScores {
		if got := aioScores[name]; got != want {
			t.Errorf("%s: aio scored %d, mmap scored %d", name, got, want)
		}
	}
}

func TestCombineIntoCompact(t *testing.T) {
	// Build two classic indices over disjoint halves and combine them by
	// hand, as compact_construct_combine does.
	docsA := randomDocs(4, 40, 31, 61)
	docsB := randomDocs(3, 40, 31, 91)
	for i := range docsB.names {
		docsB.names[i] = docName(4 + i)
	}

	dir := t.TempDir()
	if err := ConstructClassic(context.Background(), docsA, filepath.Join(dir, "a")); err != nil {
		t.Fatal(err)
	}
	if err := ConstructClassic(context.Background(), docsB, filepath.Join(dir, "b")); err != nil {
		t.Fatal(err)
	}

	pagesDir := t.TempDir()
	copyTestFile(t, filepath.Join(dir, "a", classicIndexName), filepath.Join(pagesDir, "00000.cobs"))
	copyTestFile(t, filepath.Join(dir, "b", classicIndexName), filepath.Join(pagesDir, "00001.cobs"))

	out := filepath.Join(t.TempDir(), "combined.cobs")
	if err := CombineIntoCompact(pagesDir, out, 4); err != nil {
		t.Fatalf("CombineIntoCompact: %v", err)
	}

	idx := openIndex(t, out)
	if got := len(idx.Pages()); got != 2 {
		t.Fatalf("combined index has %d pages, want 2", got)
	}
	if got := len(idx.FileNames()); got != 7 {
		t.Fatalf("combined index has %d documents, want 7", got)
	}

	// Terms of the first corpus still hit their documents.
	err := docsA.ProcessTerms(0, 31, func(tm []byte) error {
		results := searchAll(t, idx, string(tm))
		if scoreByName(results)[docsA.Name(0)] < 1 {
			t.Fatalf("combined index lost term %s", tm)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
