package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/MitraDarja/cobs"
)

func printParameters(args []string) error {
	fs := newFlagSet("print_parameters")
	numHashes := fs.Uint64("h", 1, "number of hash functions")
	fpr := fs.Float64("f", 0.3, "false positive rate")
	numElements := bytesFlag(0)
	fs.Var(&numElements, "n", "number of elements to be inserted into the index")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if numElements == 0 {
		fmt.Printf("%g\n", cobs.CalcSignatureSizeRatio(*numHashes, *fpr))
		return nil
	}
	signatureSize := cobs.CalcSignatureSize(uint64(numElements), *numHashes, *fpr)
	fmt.Printf("signature_size = %d\n", signatureSize)
	fmt.Printf("signature_bytes = %d\n", signatureSize/8)
	return nil
}

func printKmers(args []string) error {
	fs := newFlagSet("print_kmers")
	kmerSize := fs.Uint("k", 31, "the size of one kmer")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: print_kmers <query>")
	}
	query := fs.Arg(0)
	k := int(*kmerSize)
	if len(query) < k {
		return fmt.Errorf("query is shorter than one %d-mer", k)
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	buf := make([]byte, k)
	for i := 0; i+k <= len(query); i++ {
		kmer := cobs.CanonicalizeKmer([]byte(query[i:i+k]), buf)
		out.Write(kmer)
		out.WriteByte('\n')
	}
	return nil
}

func printBasepairMap(args []string) error {
	for i := 0; i < 256; i++ {
		fmt.Printf("%d,", cobs.BasepairMap(byte(i)))
		if i%16 == 15 {
			fmt.Println()
		}
	}
	return nil
}
