package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"runtime"

	"github.com/MitraDarja/cobs"
)

func classicConstruct(args []string) error {
	fs := newFlagSet("classic_construct")
	fileType := fs.String("t", "any", "filter input documents by file type (any, text, fasta, fastq)")
	memBytes := bytesFlag(1 << 31)
	fs.Var(&memBytes, "m", "memory in bytes to use")
	numHashes := fs.Uint64("h", 1, "number of hash functions")
	fpr := fs.Float64("f", 0.3, "false positive rate")
	termSize := fs.Uint("k", 31, "term size (k-mer size)")
	canonicalize := fs.Bool("c", false, "canonicalize DNA k-mers")
	clobber := fs.Bool("C", false, "erase output directory if it exists")
	continueBuild := fs.Bool("continue", false, "continue in existing output directory")
	threads := fs.Int("T", runtime.NumCPU(), "number of threads to use")
	keepTemporary := fs.Bool("keep-temporary", false, "keep temporary files during construction")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: classic_construct <in_dir> <out_dir>")
	}

	ft, err := cobs.ParseFileType(*fileType)
	if err != nil {
		return err
	}
	docs, err := cobs.NewDocumentList(fs.Arg(0), ft)
	if err != nil {
		return err
	}
	if err := printDocumentList(docs, uint32(*termSize)); err != nil {
		return err
	}

	return cobs.ConstructClassic(context.Background(), docs, fs.Arg(1),
		cobs.WithTermSize(uint32(*termSize)),
		cobs.WithCanonicalize(*canonicalize),
		cobs.WithNumHashes(*numHashes),
		cobs.WithFalsePositiveRate(*fpr),
		cobs.WithMemoryBudget(uint64(memBytes)),
		cobs.WithWorkers(*threads),
		cobs.WithClobber(*clobber),
		cobs.WithContinue(*continueBuild),
		cobs.WithKeepTemporary(*keepTemporary))
}

func classicConstructRandom(args []string) error {
	fs := newFlagSet("classic_construct_random")
	signatureSize := bytesFlag(2 * 1024 * 1024)
	fs.Var(&signatureSize, "s", "number of bits of the signatures (vertical size)")
	numDocuments := fs.Int("n", 10000, "number of random documents in index")
	documentSize := fs.Int("m", 1000000, "number of random 31-mers in document")
	numHashes := fs.Uint64("h", 1, "number of hash functions")
	seed := fs.Uint64("seed", rand.Uint64(), "random seed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: classic_construct_random <out_file>")
	}

	fmt.Fprintf(os.Stderr, "Constructing random index, num_documents = %d, signature_size = %d\n",
		*numDocuments, uint64(signatureSize))

	return cobs.ConstructClassicRandom(fs.Arg(0), uint64(signatureSize),
		*numDocuments, *documentSize, *numHashes, *seed, runtime.NumCPU())
}

func compactConstruct(args []string) error {
	fs := newFlagSet("compact_construct")
	fileType := fs.String("t", "any", "filter input documents by file type (any, text, fasta, fastq)")
	memBytes := bytesFlag(1 << 31)
	fs.Var(&memBytes, "m", "memory in bytes to use")
	numHashes := fs.Uint64("h", 1, "number of hash functions")
	fpr := fs.Float64("f", 0.3, "false positive rate")
	pageSize := fs.Uint64("p", 0, "page size of the compact index, default: sqrt(#documents)")
	termSize := fs.Uint("k", 31, "term size (k-mer size)")
	canonicalize := fs.Bool("c", false, "canonicalize DNA k-mers")
	clobber := fs.Bool("C", false, "erase output directory if it exists")
	continueBuild := fs.Bool("continue", false, "continue in existing output directory")
	threads := fs.Int("T", runtime.NumCPU(), "number of threads to use")
	keepTemporary := fs.Bool("keep-temporary", false, "keep temporary files during construction")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: compact_construct <in_dir> <out_dir>")
	}

	ft, err := cobs.ParseFileType(*fileType)
	if err != nil {
		return err
	}
	docs, err := cobs.NewDocumentList(fs.Arg(0), ft)
	if err != nil {
		return err
	}
	if err := printDocumentList(docs, uint32(*termSize)); err != nil {
		return err
	}

	return cobs.ConstructCompact(context.Background(), docs, fs.Arg(1),
		cobs.WithTermSize(uint32(*termSize)),
		cobs.WithCanonicalize(*canonicalize),
		cobs.WithNumHashes(*numHashes),
		cobs.WithFalsePositiveRate(*fpr),
		cobs.WithPageSize(*pageSize),
		cobs.WithMemoryBudget(uint64(memBytes)),
		cobs.WithWorkers(*threads),
		cobs.WithClobber(*clobber),
		cobs.WithContinue(*continueBuild),
		cobs.WithKeepTemporary(*keepTemporary))
}

func compactConstructCombine(args []string) error {
	fs := newFlagSet("compact_construct_combine")
	pageSize := fs.Uint64("p", 8192, "page size of the compact index")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: compact_construct_combine <in_dir> <out_file>")
	}
	return cobs.CombineIntoCompact(fs.Arg(0), fs.Arg(1), *pageSize)
}
