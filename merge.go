package cobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	cobserrors "github.com/MitraDarja/cobs/errors"
	intbits "github.com/MitraDarja/cobs/internal/bits"
)

// mergeClassicTree reduces batch files pairwise until one remains and
// returns its path. Each level merges adjacent pairs in order, preserving
// document order; an odd leftover file is promoted unchanged. Merge inputs
// are deleted afterwards unless keep-temporary is set.
func mergeClassicTree(ctx context.Context, files []string, outDir string, cfg *buildConfig) (string, error) {
	for level := 1; len(files) > 1; level++ {
		next := files[:0:0]
		for i := 0; i < len(files); i += 2 {
			if i+1 == len(files) {
				next = append(next, files[i])
				continue
			}
			out := filepath.Join(outDir, batchFileName(level, i/2))
			if err := mergeClassicPair(ctx, files[i], files[i+1], out, cfg.workers); err != nil {
				return "", err
			}
			if !cfg.keepTemporary {
				if err := errors.Join(os.Remove(files[i]), os.Remove(files[i+1])); err != nil {
					return "", fmt.Errorf("remove merged batch files: %w", err)
				}
			}
			next = append(next, out)
		}
		files = next
	}
	return files[0], nil
}

// mergeClassicPair combines two classic index files over disjoint document
// sets into one. Both inputs must share term size, canonicalization, hash
// count and signature size; row r of the output is the bit-level
// concatenation of the left and right rows (left documents first).
// Workers own disjoint row ranges of the output mapping.
func mergeClassicPair(ctx context.Context, leftPath, rightPath, outPath string, workers int) error {
	left, leftHdr, err := mapClassicFile(leftPath)
	if err != nil {
		return err
	}
	defer left.close()
	right, rightHdr, err := mapClassicFile(rightPath)
	if err != nil {
		return err
	}
	defer right.close()

	if leftHdr.termSize != rightHdr.termSize ||
		leftHdr.canonicalize != rightHdr.canonicalize ||
		leftHdr.numHashes != rightHdr.numHashes ||
		leftHdr.signatureSize != rightHdr.signatureSize {
		return fmt.Errorf("%w: %s and %s", cobserrors.ErrIncompatibleParameters, leftPath, rightPath)
	}

	// Merge reads every row of both inputs front to back.
	fadviseSequential(int(left.file.Fd()), 0, int64(len(left.data)))
	fadviseSequential(int(right.file.Fd()), 0, int64(len(right.data)))

	leftDocs := leftHdr.numDocuments()
	rightDocs := rightHdr.numDocuments()
	outHdr := &classicHeader{
		termSize:      leftHdr.termSize,
		canonicalize:  leftHdr.canonicalize,
		numHashes:     leftHdr.numHashes,
		signatureSize: leftHdr.signatureSize,
		rowSize:       intbits.RowSize(leftDocs + rightDocs),
		fileNames:     append(append([]string{}, leftHdr.fileNames...), rightHdr.fileNames...),
	}

	w, err := createClassicFile(outPath, outHdr)
	if err != nil {
		return err
	}

	m := outHdr.signatureSize
	leftRowSize, rightRowSize, outRowSize := leftHdr.rowSize, rightHdr.rowSize, outHdr.rowSize
	leftBody := left.body(leftHdr)
	rightBody := right.body(rightHdr)

	g, ctx := errgroup.WithContext(ctx)
	chunk := (m + uint64(workers) - 1) / uint64(workers)
	if chunk < 1 {
		chunk = 1
	}
	for start := uint64(0); start < m; start += chunk {
		start := start
		end := start + chunk
		if end > m {
			end = m
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for r := start; r < end; r++ {
				concatRow(
					w.body[r*outRowSize:(r+1)*outRowSize],
					leftBody[r*leftRowSize:(r+1)*leftRowSize], leftDocs,
					rightBody[r*rightRowSize:(r+1)*rightRowSize])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Join(err, w.abort())
	}
	return w.finish()
}

// concatRow writes the concatenation of a left row of leftBits bits and a
// right row into dst. When leftBits is not a multiple of eight, the right
// row is shifted into the left row's padding bits; right padding bits are
// zero, so the output padding stays zero.
func concatRow(dst, left []byte, leftBits uint64, right []byte) {
	copy(dst, left)
	shift := uint(leftBits & 7)
	if shift == 0 {
		copy(dst[len(left):], right)
		return
	}
	base := len(left) - 1
	for i, b := range right {
		dst[base+i] |= b << shift
		if base+i+1 < len(dst) {
			dst[base+i+1] = b >> (8 - shift)
		}
	}
}
