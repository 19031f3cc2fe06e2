package cobs

import (
	"bytes"
	"encoding/binary"
	"io"

	cobserrors "github.com/MitraDarja/cobs/errors"
)

const (
	// classicMagic and compactMagic identify the two index layouts. The
	// version byte follows the magic; bumping it invalidates old readers.
	classicMagic = "COBS:CLA"
	compactMagic = "COBS:COM"

	magicSize     = 8
	formatVersion = 1

	// maxNameLength bounds a single document name during decoding so a
	// corrupted length prefix cannot trigger a huge allocation.
	maxNameLength = 1 << 20
)

// classicHeader describes a classic index file.
//
// Wire format (little-endian):
//
//	Offset  Size  Field
//	0       8     magic "COBS:CLA"
//	8       1     version
//	9       4     term_size        uint32
//	13      1     canonicalize     uint8 (0/1)
//	14      8     num_hashes       uint64
//	22      8     signature_size   uint64
//	30      8     row_size         uint64
//	38      8     num_documents    uint64
//	46      ...   document names, each { uint32 length, UTF-8 bytes }
//
// The bit-sliced body of signature_size × row_size bytes follows
// immediately. Within a row byte the least significant bit corresponds to
// the lowest document index in that byte; padding bits in the final byte
// of each row are zero.
type classicHeader struct {
	termSize      uint32
	canonicalize  uint8
	numHashes     uint64
	signatureSize uint64
	rowSize       uint64
	fileNames     []string
}

func (h *classicHeader) numDocuments() uint64 {
	return uint64(len(h.fileNames))
}

func (h *classicHeader) bodySize() uint64 {
	return h.signatureSize * h.rowSize
}

// encode serializes the header including magic and version.
func (h *classicHeader) encode() []byte {
	var buf bytes.Buffer
	buf.WriteString(classicMagic)
	buf.WriteByte(formatVersion)
	writeU32(&buf, h.termSize)
	buf.WriteByte(h.canonicalize)
	writeU64(&buf, h.numHashes)
	writeU64(&buf, h.signatureSize)
	writeU64(&buf, h.rowSize)
	writeU64(&buf, h.numDocuments())
	for _, name := range h.fileNames {
		writeU32(&buf, uint32(len(name)))
		buf.WriteString(name)
	}
	return buf.Bytes()
}

// compactHeader describes a compact index file: a sequence of classic
// sub-indices ("pages") over disjoint document subsets.
//
// Wire format (little-endian):
//
//	Offset  Size  Field
//	0       8     magic "COBS:COM"
//	8       1     version
//	9       4     term_size        uint32
//	13      1     canonicalize     uint8
//	14      8     num_hashes       uint64
//	22      8     page_size        uint64 (documents per full page)
//	30      8     num_pages        uint64
//	38      ...   per page { signature_size uint64, num_documents uint64,
//	                         document names as above }
//	...     8×num_pages  absolute body offset per page, uint64
//
// Page bodies are concatenated in page order after the offset table.
type compactHeader struct {
	termSize     uint32
	canonicalize uint8
	numHashes    uint64
	pageSize     uint64
	pages        []compactPage
	offsets      []uint64
}

// compactPage is the per-page parameter block of a compact header.
type compactPage struct {
	signatureSize uint64
	fileNames     []string
}

func (p *compactPage) numDocuments() uint64 {
	return uint64(len(p.fileNames))
}

func (p *compactPage) rowSize() uint64 {
	return (p.numDocuments() + 7) / 8
}

func (p *compactPage) bodySize() uint64 {
	return p.signatureSize * p.rowSize()
}

// headerSize returns the encoded size of the header including the offset
// table, without the page bodies.
func (h *compactHeader) headerSize() uint64 {
	size := uint64(magicSize + 1 + 4 + 1 + 8 + 8 + 8)
	for _, p := range h.pages {
		size += 16
		for _, name := range p.fileNames {
			size += 4 + uint64(len(name))
		}
	}
	size += 8 * uint64(len(h.pages))
	return size
}

// computeOffsets fills the per-page body offset table. Page 0's body
// starts right after the header.
func (h *compactHeader) computeOffsets() {
	h.offsets = make([]uint64, len(h.pages))
	pos := h.headerSize()
	for i := range h.pages {
		h.offsets[i] = pos
		pos += h.pages[i].bodySize()
	}
}

func (h *compactHeader) encode() []byte {
	var buf bytes.Buffer
	buf.WriteString(compactMagic)
	buf.WriteByte(formatVersion)
	writeU32(&buf, h.termSize)
	buf.WriteByte(h.canonicalize)
	writeU64(&buf, h.numHashes)
	writeU64(&buf, h.pageSize)
	writeU64(&buf, uint64(len(h.pages)))
	for _, p := range h.pages {
		writeU64(&buf, p.signatureSize)
		writeU64(&buf, p.numDocuments())
		for _, name := range p.fileNames {
			writeU32(&buf, uint32(len(name)))
			buf.WriteString(name)
		}
	}
	for _, off := range h.offsets {
		writeU64(&buf, off)
	}
	return buf.Bytes()
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

// headerReader decodes header fields sequentially from an io.Reader while
// tracking the number of bytes consumed. The first error sticks; truncation
// surfaces as ErrTruncatedFile.
type headerReader struct {
	r   io.Reader
	n   uint64
	err error
}

func (hr *headerReader) read(buf []byte) {
	if hr.err != nil {
		return
	}
	if _, err := io.ReadFull(hr.r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			err = cobserrors.ErrTruncatedFile
		}
		hr.err = err
		return
	}
	hr.n += uint64(len(buf))
}

func (hr *headerReader) u8() uint8 {
	var b [1]byte
	hr.read(b[:])
	return b[0]
}

func (hr *headerReader) u32() uint32 {
	var b [4]byte
	hr.read(b[:])
	return binary.LittleEndian.Uint32(b[:])
}

func (hr *headerReader) u64() uint64 {
	var b [8]byte
	hr.read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

func (hr *headerReader) name() string {
	length := hr.u32()
	if hr.err != nil {
		return ""
	}
	if length > maxNameLength {
		hr.err = cobserrors.ErrCorruptedIndex
		return ""
	}
	buf := make([]byte, length)
	hr.read(buf)
	return string(buf)
}

// sniffMagic reads the magic bytes and version, reporting which layout the
// stream contains.
func sniffMagic(hr *headerReader) (classic bool, err error) {
	var m [magicSize]byte
	hr.read(m[:])
	if hr.err != nil {
		return false, hr.err
	}
	switch string(m[:]) {
	case classicMagic:
		classic = true
	case compactMagic:
		classic = false
	default:
		return false, cobserrors.ErrInvalidMagic
	}
	if v := hr.u8(); hr.err != nil {
		return false, hr.err
	} else if v != formatVersion {
		return false, cobserrors.ErrInvalidVersion
	}
	return classic, nil
}

// decodeClassicHeader parses a classic header from hr, which must be
// positioned at the magic bytes.
func decodeClassicHeader(hr *headerReader) (*classicHeader, error) {
	classic, err := sniffMagic(hr)
	if err != nil {
		return nil, err
	}
	if !classic {
		return nil, cobserrors.ErrInvalidMagic
	}
	return decodeClassicFields(hr)
}

// decodeClassicFields parses the classic header fields after magic and
// version have been consumed.
func decodeClassicFields(hr *headerReader) (*classicHeader, error) {
	h := &classicHeader{
		termSize:      hr.u32(),
		canonicalize:  hr.u8(),
		numHashes:     hr.u64(),
		signatureSize: hr.u64(),
		rowSize:       hr.u64(),
	}
	numDocuments := hr.u64()
	if hr.err != nil {
		return nil, hr.err
	}
	if h.termSize < 1 || h.termSize > 255 || h.canonicalize > 1 ||
		h.numHashes == 0 || h.signatureSize == 0 {
		return nil, cobserrors.ErrCorruptedIndex
	}
	if h.rowSize != (numDocuments+7)/8 {
		return nil, cobserrors.ErrCorruptedIndex
	}
	h.fileNames = make([]string, 0, numDocuments)
	for i := uint64(0); i < numDocuments; i++ {
		h.fileNames = append(h.fileNames, hr.name())
	}
	if hr.err != nil {
		return nil, hr.err
	}
	return h, nil
}

// decodeCompactFields parses the compact header fields after magic and
// version have been consumed.
func decodeCompactFields(hr *headerReader) (*compactHeader, error) {
	h := &compactHeader{
		termSize:     hr.u32(),
		canonicalize: hr.u8(),
		numHashes:    hr.u64(),
		pageSize:     hr.u64(),
	}
	numPages := hr.u64()
	if hr.err != nil {
		return nil, hr.err
	}
	if h.termSize < 1 || h.termSize > 255 || h.canonicalize > 1 ||
		h.numHashes == 0 || h.pageSize == 0 {
		return nil, cobserrors.ErrCorruptedIndex
	}
	h.pages = make([]compactPage, 0, numPages)
	for p := uint64(0); p < numPages; p++ {
		page := compactPage{signatureSize: hr.u64()}
		numDocuments := hr.u64()
		if hr.err != nil {
			return nil, hr.err
		}
		if page.signatureSize == 0 || numDocuments == 0 || numDocuments > h.pageSize {
			return nil, cobserrors.ErrCorruptedIndex
		}
		page.fileNames = make([]string, 0, numDocuments)
		for i := uint64(0); i < numDocuments; i++ {
			page.fileNames = append(page.fileNames, hr.name())
		}
		h.pages = append(h.pages, page)
	}
	h.offsets = make([]uint64, numPages)
	for p := range h.offsets {
		h.offsets[p] = hr.u64()
	}
	if hr.err != nil {
		return nil, hr.err
	}
	// Every page except the last must be full, and document sets must
	// appear in page order at the recorded offsets.
	pos := hr.n
	for p := range h.pages {
		if p+1 < len(h.pages) && h.pages[p].numDocuments() != h.pageSize {
			return nil, cobserrors.ErrCorruptedIndex
		}
		if h.offsets[p] != pos {
			return nil, cobserrors.ErrCorruptedIndex
		}
		pos += h.pages[p].bodySize()
	}
	return h, nil
}
