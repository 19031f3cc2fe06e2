// Cobs is the command-line tool for constructing and querying compact
// bit-sliced signature indices.
//
// Usage:
//
//	cobs <subtool> [flags] [args]
//
// Run without arguments for the list of subtools.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type subtool struct {
	name string
	run  func(args []string) error
	desc string
}

var subtools = []subtool{
	{"doc_list", docList, "read a list of documents and print the list"},
	{"doc_dump", docDump, "read a list of documents and dump their contents"},
	{"classic_construct", classicConstruct, "construct a classic index from the documents in <in_dir>"},
	{"classic_construct_random", classicConstructRandom, "construct a classic index with random content"},
	{"compact_construct", compactConstruct, "construct a compact index from the documents in <in_dir>"},
	{"compact_construct_combine", compactConstructCombine, "combine the classic indices in <in_dir> to form a compact index"},
	{"query", runQuery, "query an index"},
	{"print_parameters", printParameters, "calculate index parameters"},
	{"print_kmers", printKmers, "print all canonical kmers from <query>"},
	{"print_basepair_map", printBasepairMap, "print canonical basepair character mapping"},
	{"benchmark_fpr", benchmarkFPR, "run benchmark and false positive measurement"},
	{"generate_queries", generateQueries, "select queries randomly from documents"},
}

func usage() {
	fmt.Println("(Co)mpact (B)it-Sliced (S)ignature Index for Genome Search")
	fmt.Println()
	fmt.Printf("Usage: %s <subtool> ...\n\n", os.Args[0])
	fmt.Println("Available subtools:")
	width := 0
	for _, st := range subtools {
		if len(st.name) > width {
			width = len(st.name)
		}
	}
	for _, st := range subtools {
		fmt.Printf("  %-*s  %s\n", width, st.name, st.desc)
	}
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(0)
	}
	name := os.Args[1]
	for _, st := range subtools {
		if st.name == name {
			if err := st.run(os.Args[2:]); err != nil {
				if err == flag.ErrHelp {
					os.Exit(0)
				}
				fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
				os.Exit(1)
			}
			return
		}
	}
	fmt.Printf("Unknown subtool %q\n\n", name)
	usage()
	os.Exit(1)
}

// newFlagSet returns a flag set that prints its own usage on error.
func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

// parseBytes parses a byte count with an optional unit suffix,
// e.g. "4294967296", "4Gi" or "4G". Both the IEC suffixes (Ki, Mi, Gi, Ti)
// and the short forms (K, M, G, T) are powers of 1024.
func parseBytes(s string) (uint64, error) {
	suffixes := []struct {
		suffix string
		mult   uint64
	}{
		{"Ti", 1 << 40}, {"Gi", 1 << 30}, {"Mi", 1 << 20}, {"Ki", 1 << 10},
		{"T", 1 << 40}, {"G", 1 << 30}, {"M", 1 << 20}, {"K", 1 << 10},
	}
	for _, e := range suffixes {
		if strings.HasSuffix(s, e.suffix) {
			v, err := strconv.ParseUint(strings.TrimSuffix(s, e.suffix), 10, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid byte count %q", s)
			}
			return v * e.mult, nil
		}
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte count %q", s)
	}
	return v, nil
}

// bytesFlag is a flag.Value for byte counts with unit suffixes.
type bytesFlag uint64

func (b *bytesFlag) String() string { return strconv.FormatUint(uint64(*b), 10) }

func (b *bytesFlag) Set(s string) error {
	v, err := parseBytes(s)
	if err != nil {
		return err
	}
	*b = bytesFlag(v)
	return nil
}
