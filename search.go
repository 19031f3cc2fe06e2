package cobs

import (
	"sort"

	cobserrors "github.com/MitraDarja/cobs/errors"
	intbits "github.com/MitraDarja/cobs/internal/bits"
)

// DefaultNumResults is the top-K cutoff used when a caller passes a
// non-positive result count.
const DefaultNumResults = 100

// SearchResult is one scored document: Score is the number of the query's
// k-mers that passed the h-wise AND test against the document's column.
type SearchResult struct {
	Score uint16
	Name  string
}

// ClassicSearch answers approximate membership queries against an open
// index. It owns the per-query scratch buffers (row index list, AND
// buffer, uint16 score counters), so one ClassicSearch serves one query at
// a time; allocate one per worker to thread queries through a pool.
type ClassicSearch struct {
	index IndexFile
	timer *Timer

	rowIndices []uint64
	rows       [][]byte
	andBuf     []byte
	counts     []uint16
	kmerBuf    []byte
	kmers      []byte
}

// NewClassicSearch creates a search engine over index.
func NewClassicSearch(index IndexFile) *ClassicSearch {
	return &ClassicSearch{index: index, timer: NewTimer()}
}

// Timer returns the named accumulators of the search phases: "hashes",
// "io", "and rows", "add rows" and "sort results".
func (s *ClassicSearch) Timer() *Timer { return s.timer }

// Search scores every document of the index against query and returns up
// to numResults results ordered by score descending, ties broken by
// document index ascending. A document containing all of the query's
// k-mers always scores the full k-mer count; a document containing none of
// them scores above zero only at the configured false positive rate.
func (s *ClassicSearch) Search(query string, numResults int) ([]SearchResult, error) {
	k := int(s.index.TermSize())
	if len(query) < k {
		return nil, cobserrors.ErrQueryTooShort
	}
	if numResults <= 0 {
		numResults = DefaultNumResults
	}

	numKmers := len(query) - k + 1
	s.extractKmers(query, k, numKmers)

	names := s.index.FileNames()
	results := make([]SearchResult, 0, len(names))
	numHashes := s.index.NumHashes()

	docBase := 0
	for page, geo := range s.index.Pages() {
		// Each page has its own signature size, so the same k-mer maps
		// to different rows on different pages.
		s.timer.Start("hashes")
		s.rowIndices = s.rowIndices[:0]
		for i := 0; i < numKmers; i++ {
			term := s.kmers[i*k : (i+1)*k]
			s.rowIndices = RowIndices(term, numHashes, geo.SignatureSize, s.rowIndices)
		}
		s.timer.Stop("hashes")

		s.timer.Start("io")
		if cap(s.rows) < len(s.rowIndices) {
			s.rows = make([][]byte, len(s.rowIndices))
		}
		rows := s.rows[:len(s.rowIndices)]
		if err := s.index.FetchRows(page, s.rowIndices, rows); err != nil {
			return nil, err
		}
		s.timer.Stop("io")

		counts := s.resizeCounts(8 * geo.RowSize)
		for i := 0; i < numKmers; i++ {
			kmerRows := rows[uint64(i)*numHashes : uint64(i+1)*numHashes]

			row := kmerRows[0]
			if numHashes > 1 {
				s.timer.Start("and rows")
				s.andBuf = s.andBuf[:0]
				s.andBuf = append(s.andBuf, kmerRows[0]...)
				for _, other := range kmerRows[1:] {
					intbits.AndInPlace(s.andBuf, other)
				}
				row = s.andBuf
				s.timer.Stop("and rows")
			}

			s.timer.Start("add rows")
			intbits.AddCounts(counts, row)
			s.timer.Stop("add rows")
		}

		for d := uint64(0); d < geo.NumDocuments; d++ {
			results = append(results, SearchResult{
				Score: counts[d],
				Name:  names[docBase+int(d)],
			})
		}
		docBase += int(geo.NumDocuments)
	}

	s.timer.Start("sort results")
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > numResults {
		results = results[:numResults]
	}
	s.timer.Stop("sort results")

	return results, nil
}

// extractKmers materializes the query's k-mer windows into s.kmers,
// canonicalized if the index requires it.
func (s *ClassicSearch) extractKmers(query string, k, numKmers int) {
	if cap(s.kmers) < numKmers*k {
		s.kmers = make([]byte, numKmers*k)
	}
	s.kmers = s.kmers[:numKmers*k]
	if cap(s.kmerBuf) < k {
		s.kmerBuf = make([]byte, k)
	}
	q := []byte(query)
	for i := 0; i < numKmers; i++ {
		window := q[i : i+k]
		if s.index.Canonicalize() {
			window = CanonicalizeKmer(window, s.kmerBuf[:k])
		}
		copy(s.kmers[i*k:(i+1)*k], window)
	}
}

func (s *ClassicSearch) resizeCounts(n uint64) []uint16 {
	if uint64(cap(s.counts)) < n {
		s.counts = make([]uint16, n)
	}
	counts := s.counts[:n]
	for i := range counts {
		counts[i] = 0
	}
	return counts
}
