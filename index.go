package cobs

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/edsrzf/mmap-go"

	cobserrors "github.com/MitraDarja/cobs/errors"
)

// Page describes the geometry of one page of an index. A classic index is
// a single page; a compact index has one page per document partition, each
// with its own signature size.
type Page struct {
	SignatureSize uint64
	RowSize       uint64
	NumDocuments  uint64
}

// IndexFile is the capability set the query engine is polymorphic over.
// Implementations are ClassicMmap, CompactMmap and CompactAio.
//
// Thread safety: FetchRows and the accessors are safe for concurrent use
// on the mmap-backed variants (returned rows borrow from the mapping);
// CompactAio reuses an internal read buffer, so at most one FetchRows may
// be in flight. Close must not race with queries.
type IndexFile interface {
	// TermSize returns the k-mer size the index was built with.
	TermSize() uint32
	// Canonicalize reports whether k-mers are canonicalized.
	Canonicalize() bool
	// NumHashes returns the number of Bloom filter hash functions.
	NumHashes() uint64
	// PageSize returns the number of documents per full page. For a
	// classic index this equals the total document count.
	PageSize() uint64
	// CountsSize returns the number of per-document score counters a
	// query needs: eight per row byte, summed over all pages. Padding
	// columns are included.
	CountsSize() uint64
	// FileNames returns all document names in document-index order,
	// concatenated across pages.
	FileNames() []string
	// Pages returns the per-page geometry.
	Pages() []Page
	// FetchRows resolves the given row indices of one page. rows must
	// have the same length as indices; rows[i] is filled with the
	// RowSize bytes of row indices[i].
	FetchRows(page int, indices []uint64, rows [][]byte) error
	// Close releases the underlying mapping or file handle.
	Close() error
}

// Open opens an index file of either layout with the mmap backend.
func Open(path string) (IndexFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	var magic [magicSize]byte
	_, err = f.ReadAt(magic[:], 0)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("read index magic: %w", err)
	}
	switch string(magic[:]) {
	case classicMagic:
		return OpenClassic(path)
	case compactMagic:
		return OpenCompact(path)
	}
	return nil, cobserrors.ErrInvalidMagic
}

// mappedFile is a read-only memory mapping of an index file.
type mappedFile struct {
	file      *os.File
	mm        mmap.MMap
	data      []byte
	headerLen uint64
}

func openMapped(path string) (*mappedFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("stat index file: %w", err), file.Close())
	}
	if stat.Size() == 0 {
		return nil, errors.Join(cobserrors.ErrTruncatedFile, file.Close())
	}
	mm, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("mmap index file: %w", err), file.Close())
	}
	return &mappedFile{file: file, mm: mm, data: []byte(mm)}, nil
}

func (f *mappedFile) close() error {
	return errors.Join(f.mm.Unmap(), f.file.Close())
}

func (f *mappedFile) body(hdr *classicHeader) []byte {
	return f.data[f.headerLen:]
}

// mapClassicFile maps path and decodes its classic header, verifying that
// the body length matches the header geometry.
func mapClassicFile(path string) (*mappedFile, *classicHeader, error) {
	f, err := openMapped(path)
	if err != nil {
		return nil, nil, err
	}
	r := bytes.NewReader(f.data)
	hr := &headerReader{r: r}
	hdr, err := decodeClassicHeader(hr)
	if err != nil {
		return nil, nil, errors.Join(fmt.Errorf("%s: %w", path, err), f.close())
	}
	f.headerLen = hr.n
	if uint64(len(f.data)) != f.headerLen+hdr.bodySize() {
		return nil, nil, errors.Join(
			fmt.Errorf("%s: %w", path, cobserrors.ErrTruncatedFile), f.close())
	}
	return f, hdr, nil
}

// ClassicMmap is the mmap-backed reader for classic index files.
type ClassicMmap struct {
	f      *mappedFile
	header *classicHeader
	pages  []Page
	closed atomic.Bool
}

// OpenClassic opens a classic index file and maps it read-only with
// random-access advice.
func OpenClassic(path string) (*ClassicMmap, error) {
	f, hdr, err := mapClassicFile(path)
	if err != nil {
		return nil, err
	}
	adviseRandom(f.body(hdr))
	return &ClassicMmap{
		f:      f,
		header: hdr,
		pages: []Page{{
			SignatureSize: hdr.signatureSize,
			RowSize:       hdr.rowSize,
			NumDocuments:  hdr.numDocuments(),
		}},
	}, nil
}

func (idx *ClassicMmap) TermSize() uint32     { return idx.header.termSize }
func (idx *ClassicMmap) Canonicalize() bool   { return idx.header.canonicalize != 0 }
func (idx *ClassicMmap) NumHashes() uint64    { return idx.header.numHashes }
func (idx *ClassicMmap) PageSize() uint64     { return idx.header.numDocuments() }
func (idx *ClassicMmap) CountsSize() uint64   { return 8 * idx.header.rowSize }
func (idx *ClassicMmap) FileNames() []string  { return idx.header.fileNames }
func (idx *ClassicMmap) Pages() []Page        { return idx.pages }

// FetchRows fills rows with slices borrowed from the mapping; they remain
// valid until Close.
func (idx *ClassicMmap) FetchRows(page int, indices []uint64, rows [][]byte) error {
	if idx.closed.Load() {
		return cobserrors.ErrIndexClosed
	}
	if page != 0 {
		return fmt.Errorf("%w: classic index has a single page", cobserrors.ErrRowOutOfRange)
	}
	body := idx.f.body(idx.header)
	rowSize := idx.header.rowSize
	for i, r := range indices {
		if r >= idx.header.signatureSize {
			return cobserrors.ErrRowOutOfRange
		}
		rows[i] = body[r*rowSize : (r+1)*rowSize]
	}
	return nil
}

// Close unmaps the index. Rows returned by FetchRows become invalid.
func (idx *ClassicMmap) Close() error {
	if idx.closed.Swap(true) {
		return nil
	}
	return idx.f.close()
}
