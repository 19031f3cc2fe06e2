package main

import (
	"bufio"
	"fmt"
	"math/rand/v2"
	"os"
	"runtime"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/MitraDarja/cobs"
)

// generatedQuery is one output query: a positive term with its provenance,
// or a synthetic negative (docIndex < 0).
type generatedQuery struct {
	term      string
	docIndex  int
	termIndex uint64
}

func generateQueries(args []string) error {
	fs := newFlagSet("generate_queries")
	fileType := fs.String("t", "any", "filter documents by file type (any, text, fasta, fastq)")
	threads := fs.Int("T", runtime.NumCPU(), "number of threads to use")
	termSize := fs.Uint("k", 31, "term size (k-mer size)")
	numPositive := fs.Uint64("p", 0, "pick this number of existing positive queries")
	numNegative := fs.Int("n", 0, "construct this number of random non-existing negative queries")
	trueNegatives := fs.Bool("N", false, "check that negative queries actually are not in the documents (slow)")
	fixedSize := fs.Int("s", 0, "extend positive terms with random data to this size")
	seed := fs.Uint64("S", rand.Uint64(), "random seed")
	outFile := fs.String("o", "", "output file path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: generate_queries <path>")
	}
	k := uint32(*termSize)

	ft, err := cobs.ParseFileType(*fileType)
	if err != nil {
		return err
	}
	docs, err := cobs.NewDocumentList(fs.Arg(0), ft)
	if err != nil {
		return err
	}

	// Per-document term counts and their prefix sums give every term of
	// the corpus a stable global index to sample from.
	termCounts := make([]uint64, docs.Size())
	{
		g := new(errgroup.Group)
		g.SetLimit(*threads)
		for i := 0; i < docs.Size(); i++ {
			i := i
			g.Go(func() error {
				n, err := docs.NumTerms(i, k)
				termCounts[i] = n
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	prefixSum := make([]uint64, docs.Size())
	var totalTerms uint64
	for i, n := range termCounts {
		prefixSum[i] = totalTerms
		totalTerms += n
	}
	fmt.Fprintf(os.Stderr, "Given %d documents containing %d %d-gram terms\n",
		docs.Size(), totalTerms, k)

	if totalTerms < *numPositive {
		return fmt.Errorf("corpus has only %d terms, cannot pick %d positives", totalTerms, *numPositive)
	}
	size := *fixedSize
	if size < int(k) {
		size = int(k)
	}

	rng := rand.New(rand.NewPCG(*seed, 0x9e3779b97f4a7c15))

	// Select distinct global term indices for the positive queries.
	positiveSet := make(map[uint64]struct{}, *numPositive)
	for uint64(len(positiveSet)) < *numPositive {
		positiveSet[rng.Uint64N(totalTerms)] = struct{}{}
	}
	positiveIndices := make([]uint64, 0, len(positiveSet))
	for idx := range positiveSet {
		positiveIndices = append(positiveIndices, idx)
	}
	sort.Slice(positiveIndices, func(i, j int) bool { return positiveIndices[i] < positiveIndices[j] })
	positives := make([]generatedQuery, len(positiveIndices))

	// Synthesize negatives with headroom, and a hash screen over their
	// terms so the document scan can cheaply rule out collisions.
	numCandidates := *numNegative + *numNegative/2
	negatives := make([]string, numCandidates)
	negativeTerms := make(map[string][]int)
	negativeHashes := make(map[uint64]struct{})
	for t := 0; t < numCandidates; t++ {
		neg := cobs.RandomSequence(size, rng.Uint64())
		negatives[t] = neg
		if *trueNegatives {
			for i := 0; i+int(k) <= len(neg); i++ {
				term := neg[i : i+int(k)]
				negativeTerms[term] = append(negativeTerms[term], t)
				negativeHashes[xxhash.Sum64String(term)] = struct{}{}
			}
		}
	}

	// Scan all documents: capture the selected positive terms and, if
	// requested, clear negatives whose terms actually occur.
	var negativesMu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(*threads)
	for d := 0; d < docs.Size(); d++ {
		d := d
		g.Go(func() error {
			index := prefixSum[d]
			posIndex := sort.Search(len(positiveIndices), func(i int) bool {
				return positiveIndices[i] >= index
			})
			nextIndex := uint64(1<<64 - 1)
			if posIndex < len(positiveIndices) {
				nextIndex = positiveIndices[posIndex]
			}
			if nextIndex == 1<<64-1 && !*trueNegatives {
				return nil
			}
			docRng := rand.New(rand.NewPCG(*seed, uint64(d)))

			return docs.ProcessTerms(d, k, func(term []byte) error {
				if index == nextIndex {
					q := &positives[posIndex]
					q.term = string(term)
					q.docIndex = d
					q.termIndex = index - prefixSum[d]

					// Embed the term at a random position in
					// random padding up to the requested size.
					if len(q.term) < size {
						padding := size - len(q.term)
						front := docRng.IntN(padding + 1)
						q.term = cobs.RandomSequence(front, docRng.Uint64()) +
							q.term +
							cobs.RandomSequence(padding-front, docRng.Uint64())
					}

					posIndex++
					nextIndex = 1<<64 - 1
					if posIndex < len(positiveIndices) {
						nextIndex = positiveIndices[posIndex]
					}
				}
				index++

				if *trueNegatives {
					if _, ok := negativeHashes[xxhash.Sum64(term)]; ok {
						negativesMu.Lock()
						if hits, ok := negativeTerms[string(term)]; ok {
							fmt.Fprintf(os.Stderr, "remove false negative: %s\n", term)
							for _, t := range hits {
								negatives[t] = ""
							}
							delete(negativeTerms, string(term))
						}
						negativesMu.Unlock()
					}
				}
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	queries := positives
	picked := 0
	for _, neg := range negatives {
		if picked == *numNegative {
			break
		}
		if neg == "" {
			continue
		}
		queries = append(queries, generatedQuery{term: neg, docIndex: -1})
		picked++
	}
	if picked < *numNegative {
		return fmt.Errorf("not enough true negatives left, you were unlucky, try again")
	}

	rng.Shuffle(len(queries), func(i, j int) {
		queries[i], queries[j] = queries[j], queries[i]
	})

	out := os.Stdout
	if *outFile != "" {
		f, err := os.Create(*outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	w := bufio.NewWriter(out)
	for _, q := range queries {
		if q.docIndex >= 0 {
			fmt.Fprintf(w, ">doc:%d:term:%d:%s\n", q.docIndex, q.termIndex, docs.Name(q.docIndex))
		} else {
			fmt.Fprintln(w, ">negative")
		}
		fmt.Fprintln(w, q.term)
	}
	return w.Flush()
}
