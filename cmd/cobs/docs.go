package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/MitraDarja/cobs"
)

// printDocumentList prints one line per document plus corpus statistics,
// mirroring the construction commands' preamble.
func printDocumentList(docs *cobs.DocumentList, termSize uint32) error {
	fmt.Fprintf(os.Stderr, "--- document list (%d entries) ---\n", docs.Size())

	var maxTerms, totalTerms uint64
	for i := 0; i < docs.Size(); i++ {
		n, err := docs.NumTerms(i, termSize)
		if err != nil {
			return err
		}
		d := docs.Document(i)
		fmt.Fprintf(os.Stderr, "document[%d] size %d %d-mers %d : %s : %s\n",
			i, d.Size, termSize, n, d.Path, d.Name)
		if n > maxTerms {
			maxTerms = n
		}
		totalTerms += n
	}
	fmt.Fprintf(os.Stderr, "--- end of document list (%d entries) ---\n", docs.Size())

	fmt.Fprintf(os.Stderr, "documents: %d\n", docs.Size())
	fmt.Fprintf(os.Stderr, "maximum %d-mers: %d\n", termSize, maxTerms)
	if docs.Size() > 0 {
		fmt.Fprintf(os.Stderr, "average %d-mers: %d\n", termSize, totalTerms/uint64(docs.Size()))
	}
	fmt.Fprintf(os.Stderr, "total %d-mers: %d\n", termSize, totalTerms)
	return nil
}

func docList(args []string) error {
	fs := newFlagSet("doc_list")
	fileType := fs.String("T", "any", "filter documents by file type (any, text, fasta, fastq)")
	termSize := fs.Uint("k", 31, "term size (k-mer size)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: doc_list <path>")
	}

	ft, err := cobs.ParseFileType(*fileType)
	if err != nil {
		return err
	}
	docs, err := cobs.NewDocumentList(fs.Arg(0), ft)
	if err != nil {
		return err
	}
	return printDocumentList(docs, uint32(*termSize))
}

func docDump(args []string) error {
	fs := newFlagSet("doc_dump")
	fileType := fs.String("T", "any", "filter documents by file type (any, text, fasta, fastq)")
	termSize := fs.Uint("k", 31, "term size (k-mer size)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: doc_dump <path>")
	}

	ft, err := cobs.ParseFileType(*fileType)
	if err != nil {
		return err
	}
	docs, err := cobs.NewDocumentList(fs.Arg(0), ft)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Found %d documents.\n", docs.Size())

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	for i := 0; i < docs.Size(); i++ {
		d := docs.Document(i)
		fmt.Fprintf(os.Stderr, "document[%d] : %s : %s\n", i, d.Path, d.Name)
		terms := 0
		err := docs.ProcessTerms(i, uint32(*termSize), func(term []byte) error {
			terms++
			out.Write(term)
			return out.WriteByte('\n')
		})
		if err != nil {
			return err
		}
		if err := out.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "document[%d] : %d terms.\n", i, terms)
	}
	return nil
}
