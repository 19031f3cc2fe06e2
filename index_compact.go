package cobs

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	cobserrors "github.com/MitraDarja/cobs/errors"
)

// compactPages derives the per-page geometry from a compact header.
func compactPages(hdr *compactHeader) []Page {
	pages := make([]Page, len(hdr.pages))
	for i := range hdr.pages {
		pages[i] = Page{
			SignatureSize: hdr.pages[i].signatureSize,
			RowSize:       hdr.pages[i].rowSize(),
			NumDocuments:  hdr.pages[i].numDocuments(),
		}
	}
	return pages
}

func compactFileNames(hdr *compactHeader) []string {
	var names []string
	for i := range hdr.pages {
		names = append(names, hdr.pages[i].fileNames...)
	}
	return names
}

func compactCountsSize(pages []Page) uint64 {
	var counts uint64
	for _, p := range pages {
		counts += 8 * p.RowSize
	}
	return counts
}

// CompactMmap is the mmap-backed reader for compact index files.
type CompactMmap struct {
	f      *mappedFile
	header *compactHeader
	pages  []Page
	names  []string
	closed atomic.Bool
}

// OpenCompact opens a compact index file and maps it read-only with
// random-access advice.
func OpenCompact(path string) (*CompactMmap, error) {
	f, err := openMapped(path)
	if err != nil {
		return nil, err
	}
	hr := &headerReader{r: bytes.NewReader(f.data)}
	classic, err := sniffMagic(hr)
	if err == nil && classic {
		err = cobserrors.ErrInvalidMagic
	}
	if err != nil {
		return nil, errors.Join(fmt.Errorf("%s: %w", path, err), f.close())
	}
	hdr, err := decodeCompactFields(hr)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("%s: %w", path, err), f.close())
	}
	f.headerLen = hr.n
	var bodySize uint64
	for i := range hdr.pages {
		bodySize += hdr.pages[i].bodySize()
	}
	if uint64(len(f.data)) != f.headerLen+bodySize {
		return nil, errors.Join(
			fmt.Errorf("%s: %w", path, cobserrors.ErrTruncatedFile), f.close())
	}
	adviseRandom(f.data[f.headerLen:])
	return &CompactMmap{
		f:      f,
		header: hdr,
		pages:  compactPages(hdr),
		names:  compactFileNames(hdr),
	}, nil
}

func (idx *CompactMmap) TermSize() uint32    { return idx.header.termSize }
func (idx *CompactMmap) Canonicalize() bool  { return idx.header.canonicalize != 0 }
func (idx *CompactMmap) NumHashes() uint64   { return idx.header.numHashes }
func (idx *CompactMmap) PageSize() uint64    { return idx.header.pageSize }
func (idx *CompactMmap) CountsSize() uint64  { return compactCountsSize(idx.pages) }
func (idx *CompactMmap) FileNames() []string { return idx.names }
func (idx *CompactMmap) Pages() []Page       { return idx.pages }

// FetchRows fills rows with slices borrowed from the mapping; they remain
// valid until Close.
func (idx *CompactMmap) FetchRows(page int, indices []uint64, rows [][]byte) error {
	if idx.closed.Load() {
		return cobserrors.ErrIndexClosed
	}
	if page < 0 || page >= len(idx.pages) {
		return fmt.Errorf("%w: page %d of %d", cobserrors.ErrRowOutOfRange, page, len(idx.pages))
	}
	p := idx.pages[page]
	base := idx.header.offsets[page]
	for i, r := range indices {
		if r >= p.SignatureSize {
			return cobserrors.ErrRowOutOfRange
		}
		off := base + r*p.RowSize
		rows[i] = idx.f.data[off : off+p.RowSize]
	}
	return nil
}

// Close unmaps the index. Rows returned by FetchRows become invalid.
func (idx *CompactMmap) Close() error {
	if idx.closed.Swap(true) {
		return nil
	}
	return idx.f.close()
}

// aioDepth bounds the number of concurrent positional reads a CompactAio
// batch keeps in flight.
const aioDepth = 64

// CompactAio reads compact index rows with batched concurrent positional
// reads instead of a memory mapping. For indices with many pages this
// hides disk latency across the per-page row batches.
//
// FetchRows reuses one internal buffer: returned rows are valid only until
// the next FetchRows call, and a CompactAio must not be shared between
// concurrent queries.
type CompactAio struct {
	file   *os.File
	header *compactHeader
	pages  []Page
	names  []string
	buf    []byte
	closed atomic.Bool
}

// OpenCompactAio opens a compact index file with the read-based backend.
func OpenCompactAio(path string) (*CompactAio, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	hr := &headerReader{r: bufio.NewReader(file)}
	classic, err := sniffMagic(hr)
	if err == nil && classic {
		err = cobserrors.ErrInvalidMagic
	}
	if err != nil {
		return nil, errors.Join(fmt.Errorf("%s: %w", path, err), file.Close())
	}
	hdr, err := decodeCompactFields(hr)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("%s: %w", path, err), file.Close())
	}
	stat, err := file.Stat()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("stat index file: %w", err), file.Close())
	}
	var bodySize uint64
	for i := range hdr.pages {
		bodySize += hdr.pages[i].bodySize()
	}
	if uint64(stat.Size()) != hr.n+bodySize {
		return nil, errors.Join(
			fmt.Errorf("%s: %w", path, cobserrors.ErrTruncatedFile), file.Close())
	}
	return &CompactAio{
		file:   file,
		header: hdr,
		pages:  compactPages(hdr),
		names:  compactFileNames(hdr),
	}, nil
}

func (idx *CompactAio) TermSize() uint32    { return idx.header.termSize }
func (idx *CompactAio) Canonicalize() bool  { return idx.header.canonicalize != 0 }
func (idx *CompactAio) NumHashes() uint64   { return idx.header.numHashes }
func (idx *CompactAio) PageSize() uint64    { return idx.header.pageSize }
func (idx *CompactAio) CountsSize() uint64  { return compactCountsSize(idx.pages) }
func (idx *CompactAio) FileNames() []string { return idx.names }
func (idx *CompactAio) Pages() []Page       { return idx.pages }

// FetchRows submits one positional read per requested row, at most
// aioDepth in flight, and waits for the batch to complete.
func (idx *CompactAio) FetchRows(page int, indices []uint64, rows [][]byte) error {
	if idx.closed.Load() {
		return cobserrors.ErrIndexClosed
	}
	if page < 0 || page >= len(idx.pages) {
		return fmt.Errorf("%w: page %d of %d", cobserrors.ErrRowOutOfRange, page, len(idx.pages))
	}
	p := idx.pages[page]
	base := idx.header.offsets[page]

	need := uint64(len(indices)) * p.RowSize
	if uint64(cap(idx.buf)) < need {
		idx.buf = make([]byte, need)
	}
	buf := idx.buf[:need]

	for _, r := range indices {
		if r >= p.SignatureSize {
			return cobserrors.ErrRowOutOfRange
		}
	}

	var g errgroup.Group
	g.SetLimit(aioDepth)
	for i, r := range indices {
		dst := buf[uint64(i)*p.RowSize : uint64(i+1)*p.RowSize]
		off := int64(base + r*p.RowSize)
		g.Go(func() error {
			if _, err := idx.file.ReadAt(dst, off); err != nil {
				return fmt.Errorf("read row at offset %d: %w", off, err)
			}
			return nil
		})
		rows[i] = dst
	}
	return g.Wait()
}

// Close closes the underlying file.
func (idx *CompactAio) Close() error {
	if idx.closed.Swap(true) {
		return nil
	}
	return idx.file.Close()
}
