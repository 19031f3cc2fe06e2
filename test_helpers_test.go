package cobs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// memDocs is an in-memory DocumentSource for tests: one entry per
// document, each a list of sequences whose k-windows become the terms.
type memDocs struct {
	names []string
	seqs  [][]string
}

func (m *memDocs) Size() int         { return len(m.names) }
func (m *memDocs) Name(i int) string { return m.names[i] }

func (m *memDocs) NumTerms(i int, termSize uint32) (uint64, error) {
	var n uint64
	for _, seq := range m.seqs[i] {
		if uint32(len(seq)) >= termSize {
			n += uint64(uint32(len(seq)) - termSize + 1)
		}
	}
	return n, nil
}

func (m *memDocs) ProcessTerms(i int, termSize uint32, fn func(term []byte) error) error {
	k := int(termSize)
	for _, seq := range m.seqs[i] {
		b := []byte(seq)
		for j := 0; j+k <= len(b); j++ {
			if err := fn(b[j : j+k]); err != nil {
				return err
			}
		}
	}
	return nil
}

// documentsAll slices query into numDocs contiguous pieces, so together
// the documents contain every k-mer window of every piece and each
// document's windows are a subset of the query's.
func documentsAll(query string, numDocs int) *memDocs {
	m := &memDocs{}
	chunk := len(query) / numDocs
	for i := 0; i < numDocs; i++ {
		lo := i * chunk
		hi := lo + chunk
		if i == numDocs-1 {
			hi = len(query)
		}
		m.names = append(m.names, docName(i))
		m.seqs = append(m.seqs, []string{query[lo:hi]})
	}
	return m
}

// documentsOne gives each document exactly one k-mer of query and nothing
// else.
func documentsOne(query string, numDocs, k int) *memDocs {
	m := &memDocs{}
	numKmers := len(query) - k + 1
	step := numKmers / numDocs
	for i := 0; i < numDocs; i++ {
		pos := i * step
		m.names = append(m.names, docName(i))
		m.seqs = append(m.seqs, []string{query[pos : pos+k]})
	}
	return m
}

// randomDocs builds numDocs documents of termsPerDoc random k-mers each.
func randomDocs(numDocs, termsPerDoc, k int, seed uint64) *memDocs {
	m := &memDocs{}
	for i := 0; i < numDocs; i++ {
		seqs := make([]string, termsPerDoc)
		for t := range seqs {
			seqs[t] = RandomSequence(k, seed+uint64(i*termsPerDoc+t))
		}
		m.names = append(m.names, docName(i))
		m.seqs = append(m.seqs, seqs)
	}
	return m
}

func docName(i int) string {
	return "document_" + string(rune('0'+i/10)) + string(rune('0'+i%10))
}

// buildClassic constructs a classic index over docs in a temp directory
// and returns the final index path.
func buildClassic(t *testing.T, docs DocumentSource, opts ...BuildOption) string {
	t.Helper()
	dir := t.TempDir()
	if err := ConstructClassic(context.Background(), docs, filepath.Join(dir, "index"), opts...); err != nil {
		t.Fatalf("ConstructClassic: %v", err)
	}
	return filepath.Join(dir, "index", classicIndexName)
}

// buildCompact constructs a compact index over docs in a temp directory
// and returns the final index path.
func buildCompact(t *testing.T, docs DocumentSource, opts ...BuildOption) string {
	t.Helper()
	dir := t.TempDir()
	if err := ConstructCompact(context.Background(), docs, filepath.Join(dir, "index"), opts...); err != nil {
		t.Fatalf("ConstructCompact: %v", err)
	}
	return filepath.Join(dir, "index", compactIndexName)
}

// copyTestFile duplicates a file for fixture setup.
func copyTestFile(t *testing.T, src, dst string) {
	t.Helper()
	data, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

// openIndex opens an index and registers cleanup.
func openIndex(t *testing.T, path string) IndexFile {
	t.Helper()
	idx, err := Open(path)
	if err != nil {
		t.Fatalf("Open(%s): %v", path, err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

// searchAll runs a query returning all documents.
func searchAll(t *testing.T, idx IndexFile, query string) []SearchResult {
	t.Helper()
	s := NewClassicSearch(idx)
	results, err := s.Search(query, len(idx.FileNames()))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	return results
}

// scoreByName flattens results into a name-to-score map.
func scoreByName(results []SearchResult) map[string]uint16 {
	m := make(map[string]uint16, len(results))
	for _, r := range results {
		m[r.Name] = r.Score
	}
	return m
}
