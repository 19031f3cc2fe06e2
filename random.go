package cobs

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/spaolacci/murmur3"
	"golang.org/x/sync/errgroup"

	cobserrors "github.com/MitraDarja/cobs/errors"
	intbits "github.com/MitraDarja/cobs/internal/bits"
)

const dnaBases = "ACGT"

// randomWord returns a deterministic 64-bit word for a (seed, block)
// counter pair. Keying a hash with counters gives a seekable random
// stream: any block can be regenerated independently, which keeps random
// construction parallel and byte-reproducible.
func randomWord(seed, block uint64) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], block)
	binary.LittleEndian.PutUint64(buf[8:16], seed)
	return murmur3.Sum64WithSeed(buf[:], uint32(seed>>32)^uint32(seed))
}

// RandomSequence returns a deterministic pseudo-random DNA sequence of
// length n for the given seed. Two bits of the stream select each base.
func RandomSequence(n int, seed uint64) string {
	out := make([]byte, n)
	var v uint64
	for i := range out {
		if i%32 == 0 {
			v = randomWord(seed, uint64(i/32))
		}
		out[i] = dnaBases[v&3]
		v >>= 2
	}
	return string(out)
}

// randomTerm fills dst with a random k-mer keyed by (seed, doc, term).
// len(dst) must be at most 32 bases.
func randomTerm(dst []byte, seed uint64, doc, term uint64) {
	v := randomWord(seed^(doc<<32), term)
	for i := range dst {
		dst[i] = dnaBases[v&3]
		v >>= 2
	}
}

// ConstructClassicRandom builds a classic index file of numDocuments
// synthetic documents, each containing documentSize random 31-mers, with a
// fixed signature size instead of one derived from a false positive rate.
// The output is deterministic for a given seed.
func ConstructClassicRandom(path string, signatureSize uint64, numDocuments, documentSize int, numHashes uint64, seed uint64, workers int) error {
	if signatureSize == 0 {
		return cobserrors.ErrCorruptedIndex
	}
	if numHashes < 1 {
		return cobserrors.ErrInvalidNumHashes
	}
	if numDocuments < 1 {
		return cobserrors.ErrEmptyDocumentList
	}
	if workers < 1 {
		workers = 1
	}

	const termSize = 31
	names := make([]string, numDocuments)
	for i := range names {
		names[i] = fmt.Sprintf("random_%06d", i)
	}
	hdr := &classicHeader{
		termSize:      termSize,
		canonicalize:  0,
		numHashes:     numHashes,
		signatureSize: signatureSize,
		rowSize:       intbits.RowSize(uint64(numDocuments)),
		fileNames:     names,
	}

	w, err := createClassicFile(path, hdr)
	if err != nil {
		return err
	}

	// Same ownership rule as the batch fill: workers cover document
	// ranges aligned to eight, so body bytes are never shared.
	chunk := (numDocuments + workers - 1) / workers
	chunk = (chunk + 7) &^ 7
	var g errgroup.Group
	for start := 0; start < numDocuments; start += chunk {
		start := start
		end := start + chunk
		if end > numDocuments {
			end = numDocuments
		}
		g.Go(func() error {
			term := make([]byte, termSize)
			rowIdx := make([]uint64, 0, numHashes)
			for d := start; d < end; d++ {
				docByte := uint64(d) >> 3
				docBit := byte(1) << (d & 7)
				for t := 0; t < documentSize; t++ {
					randomTerm(term, seed, uint64(d), uint64(t))
					rowIdx = RowIndices(term, numHashes, signatureSize, rowIdx[:0])
					for _, r := range rowIdx {
						w.body[r*hdr.rowSize+docByte] |= docBit
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Join(err, w.abort())
	}
	return w.finish()
}
