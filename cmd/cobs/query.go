package main

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/MitraDarja/cobs"
)

func runQuery(args []string) error {
	fs := newFlagSet("query")
	numResults := fs.Int("h", 100, "number of results to return")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: query <in_file> <query>")
	}

	idx, err := cobs.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer idx.Close()

	s := cobs.NewClassicSearch(idx)
	results, err := s.Search(fs.Arg(1), *numResults)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Printf("%s - %d\n", r.Name, r.Score)
	}
	fmt.Println(s.Timer())
	return nil
}

func benchmarkFPR(args []string) error {
	fs := newFlagSet("benchmark_fpr")
	numKmers := fs.Int("k", 1000, "number of kmers of each query")
	numQueries := fs.Int("q", 10000, "number of random queries to run")
	numWarmup := fs.Int("w", 100, "number of random warmup queries to run")
	fprDist := fs.Bool("d", false, "calculate false positive distribution")
	seed := fs.Uint64("seed", rand.Uint64(), "random seed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: benchmark_fpr <in_file>")
	}

	idx, err := cobs.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer idx.Close()

	queryLen := *numKmers + int(idx.TermSize()) - 1
	s := cobs.NewClassicSearch(idx)

	for i := 0; i < *numWarmup; i++ {
		if _, err := s.Search(cobs.RandomSequence(queryLen, *seed+uint64(i)), 0); err != nil {
			return err
		}
	}
	s.Timer().Reset()

	counts := make(map[uint16]uint64)
	var results []cobs.SearchResult
	for i := 0; i < *numQueries; i++ {
		q := cobs.RandomSequence(queryLen, *seed+uint64(*numWarmup+i))
		results, err = s.Search(q, 0)
		if err != nil {
			return err
		}
		if *fprDist {
			for _, r := range results {
				counts[r.Score]++
			}
		}
	}

	t := s.Timer()
	fmt.Printf("RESULT name=benchmark index=%s kmer_queries=%d queries=%d warmup=%d results=%d"+
		" t_hashes=%g t_io=%g t_and=%g t_add=%g t_sort=%g\n",
		fs.Arg(0), *numKmers, *numQueries, *numWarmup, len(results),
		t.Get("hashes"), t.Get("io"), t.Get("and rows"), t.Get("add rows"), t.Get("sort results"))

	if *fprDist {
		scores := make([]int, 0, len(counts))
		for score := range counts {
			scores = append(scores, int(score))
		}
		sort.Ints(scores)
		for _, score := range scores {
			fmt.Printf("RESULT name=benchmark_fpr fpr=%d dist=%d\n", score, counts[uint16(score)])
		}
	}
	return nil
}
