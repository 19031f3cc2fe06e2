package cobs

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	cobserrors "github.com/MitraDarja/cobs/errors"
)

// DocumentSource enumerates the documents an index is built from. Each
// document yields its term count and a stream of length-k byte windows in a
// deterministic order. Document indices are assigned in enumeration order
// and preserved across the pipeline, so a document's column in the index is
// determinate at query time.
type DocumentSource interface {
	// Size returns the number of documents.
	Size() int
	// Name returns the display name of document i.
	Name(i int) string
	// NumTerms returns the number of length-termSize windows document i
	// contains, without materializing them.
	NumTerms(i int, termSize uint32) (uint64, error)
	// ProcessTerms streams every length-termSize window of document i to
	// fn. An error from fn aborts the stream and is returned.
	ProcessTerms(i int, termSize uint32, fn func(term []byte) error) error
}

// FileType selects which document files a DocumentList accepts.
type FileType int

const (
	FileTypeAny FileType = iota
	FileTypeText
	FileTypeFasta
	FileTypeFastq
	FileTypeCortex
)

// ParseFileType maps a user-supplied type string to a FileType.
func ParseFileType(s string) (FileType, error) {
	switch strings.ToLower(s) {
	case "any", "*", "":
		return FileTypeAny, nil
	case "text", "txt":
		return FileTypeText, nil
	case "fasta":
		return FileTypeFasta, nil
	case "fastq":
		return FileTypeFastq, nil
	case "cortex", "ctx":
		return FileTypeCortex, nil
	}
	return 0, fmt.Errorf("%w: %q", cobserrors.ErrUnknownFileType, s)
}

// fileTypeOf classifies a file by extension.
func fileTypeOf(path string) (FileType, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".text":
		return FileTypeText, true
	case ".fa", ".fasta", ".fna":
		return FileTypeFasta, true
	case ".fq", ".fastq":
		return FileTypeFastq, true
	case ".ctx":
		return FileTypeCortex, true
	}
	return 0, false
}

// Document is one entry of a DocumentList.
type Document struct {
	Path string
	Name string
	Type FileType
	Size int64
}

// DocumentList enumerates document files under a directory, filtered by
// file type, in lexicographic path order. It implements DocumentSource.
type DocumentList struct {
	docs []Document
}

// NewDocumentList walks root recursively and collects all recognized
// document files matching the filter. Document names are the file base
// names without extension.
func NewDocumentList(root string, filter FileType) (*DocumentList, error) {
	var docs []Document
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ft, ok := fileTypeOf(path)
		if !ok {
			return nil
		}
		if filter != FileTypeAny && ft != filter {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		base := filepath.Base(path)
		name := strings.TrimSuffix(base, filepath.Ext(base))
		docs = append(docs, Document{Path: path, Name: name, Type: ft, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate documents in %s: %w", root, err)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return &DocumentList{docs: docs}, nil
}

// Size returns the number of documents.
func (dl *DocumentList) Size() int { return len(dl.docs) }

// Name returns the display name of document i.
func (dl *DocumentList) Name(i int) string { return dl.docs[i].Name }

// Document returns the i-th entry.
func (dl *DocumentList) Document(i int) Document { return dl.docs[i] }

// NumTerms counts the length-termSize windows of document i.
func (dl *DocumentList) NumTerms(i int, termSize uint32) (uint64, error) {
	var n uint64
	err := processSequences(dl.docs[i], func(seq []byte) error {
		if uint32(len(seq)) >= termSize {
			n += uint64(uint32(len(seq)) - termSize + 1)
		}
		return nil
	})
	return n, err
}

// ProcessTerms streams every window of document i to fn.
func (dl *DocumentList) ProcessTerms(i int, termSize uint32, fn func(term []byte) error) error {
	k := int(termSize)
	return processSequences(dl.docs[i], func(seq []byte) error {
		for j := 0; j+k <= len(seq); j++ {
			if err := fn(seq[j : j+k]); err != nil {
				return err
			}
		}
		return nil
	})
}

// processSequences streams the sequences of a document file. Windows never
// span sequence boundaries: text files yield one sequence per line, FASTA
// one per record, FASTQ one per read.
func processSequences(doc Document, fn func(seq []byte) error) error {
	if doc.Type == FileTypeCortex {
		return fmt.Errorf("%w: cortex parsing is not implemented", cobserrors.ErrUnknownFileType)
	}

	f, err := os.Open(doc.Path)
	if err != nil {
		return fmt.Errorf("open document %s: %w", doc.Path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	switch doc.Type {
	case FileTypeText:
		for sc.Scan() {
			if line := sc.Bytes(); len(line) > 0 {
				if err := fn(line); err != nil {
					return err
				}
			}
		}

	case FileTypeFasta:
		var record []byte
		flush := func() error {
			if len(record) == 0 {
				return nil
			}
			err := fn(record)
			record = record[:0]
			return err
		}
		for sc.Scan() {
			line := sc.Bytes()
			if len(line) > 0 && line[0] == '>' {
				if err := flush(); err != nil {
					return err
				}
				continue
			}
			record = append(record, line...)
		}
		if err := flush(); err != nil {
			return err
		}

	case FileTypeFastq:
		lineNo := 0
		for sc.Scan() {
			if lineNo%4 == 1 {
				if line := sc.Bytes(); len(line) > 0 {
					if err := fn(line); err != nil {
						return err
					}
				}
			}
			lineNo++
		}
	}

	if err := sc.Err(); err != nil {
		return fmt.Errorf("read document %s: %w", doc.Path, err)
	}
	return nil
}
