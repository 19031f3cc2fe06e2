package cobs

import (
	"errors"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// classicFileWriter writes a classic index file through a read-write memory
// mapping. The file is pre-allocated to its final size up front, so bit
// writes into the body can never hit disk-full as SIGBUS, and the header
// is in place before any body byte is set.
type classicFileWriter struct {
	file *os.File
	mm   mmap.MMap
	body []byte
	path string
}

// createClassicFile creates path, pre-allocates header plus body, maps it
// read-write and writes the header. The returned writer's body slice is
// the zeroed signature matrix of hdr.signatureSize × hdr.rowSize bytes.
func createClassicFile(path string, hdr *classicHeader) (*classicFileWriter, error) {
	headerBytes := hdr.encode()
	totalSize := uint64(len(headerBytes)) + hdr.bodySize()

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create index file: %w", err)
	}
	if err := fallocateFile(file, int64(totalSize)); err != nil {
		primaryErr := fmt.Errorf("allocate %d bytes for index file: %w", totalSize, err)
		return nil, errors.Join(primaryErr, file.Close(), os.Remove(path))
	}
	mm, err := mmap.MapRegion(file, int(totalSize), mmap.RDWR, 0, 0)
	if err != nil {
		primaryErr := fmt.Errorf("mmap index file for writing: %w", err)
		return nil, errors.Join(primaryErr, file.Close(), os.Remove(path))
	}

	data := []byte(mm)
	copy(data, headerBytes)

	// Fault in the body pages eagerly; parallel fill workers then never
	// stall on first-touch page faults. No-op outside Linux 5.14+.
	prefaultRegion(data[len(headerBytes):])

	return &classicFileWriter{
		file: file,
		mm:   mm,
		body: data[len(headerBytes):],
		path: path,
	}, nil
}

// finish flushes the mapping and closes the file.
func (w *classicFileWriter) finish() error {
	if err := w.mm.Flush(); err != nil {
		return errors.Join(fmt.Errorf("flush index file: %w", err), w.mm.Unmap(), w.file.Close())
	}
	if err := w.mm.Unmap(); err != nil {
		return errors.Join(fmt.Errorf("unmap index file: %w", err), w.file.Close())
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close index file: %w", err)
	}
	return nil
}

// abort unmaps, closes and removes the partially written file.
func (w *classicFileWriter) abort() error {
	return errors.Join(w.mm.Unmap(), w.file.Close(), os.Remove(w.path))
}
