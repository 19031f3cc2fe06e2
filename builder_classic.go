package cobs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	cobserrors "github.com/MitraDarja/cobs/errors"
	intbits "github.com/MitraDarja/cobs/internal/bits"
)

const (
	// contextCheckInterval is how often to check for context cancellation
	// while streaming terms into a batch.
	contextCheckInterval = 10000

	// classicIndexName is the final file produced in the output directory.
	classicIndexName = "index.cobs"
)

// ConstructClassic builds a classic bit-sliced signature index over docs
// into outDir/index.cobs using external-memory batch-then-merge
// construction.
//
// The signature size is derived once from the largest document's term
// count, so every batch shares it and merges are pure row concatenations.
// The memory budget bounds the signature matrix of one batch; batches are
// serialized as classic index files named batch_<level>_<index>.cobs and
// merged pairwise until one file remains.
func ConstructClassic(ctx context.Context, docs DocumentSource, outDir string, opts ...BuildOption) error {
	cfg := defaultBuildConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	if docs.Size() == 0 {
		return cobserrors.ErrEmptyDocumentList
	}
	if err := prepareOutputDir(outDir, cfg); err != nil {
		return err
	}

	numTerms, err := countTerms(ctx, docs, cfg.termSize, cfg.workers)
	if err != nil {
		return err
	}
	var maxTerms uint64
	for _, n := range numTerms {
		if n > maxTerms {
			maxTerms = n
		}
	}

	m := CalcSignatureSize(maxTerms, cfg.numHashes, cfg.falsePositiveRate)
	batchDocs, err := batchDocumentCount(m, cfg.memBytes, uint64(docs.Size()))
	if err != nil {
		return err
	}

	// Level-0 batches.
	var files []string
	for batch, lo := 0, 0; lo < docs.Size(); batch++ {
		hi := lo + int(batchDocs)
		if hi > docs.Size() {
			hi = docs.Size()
		}
		path := filepath.Join(outDir, batchFileName(0, batch))
		if err := buildClassicBatch(ctx, docs, lo, hi, m, cfg, path); err != nil {
			return err
		}
		files = append(files, path)
		lo = hi
	}

	final, err := mergeClassicTree(ctx, files, outDir, cfg)
	if err != nil {
		return err
	}
	target := filepath.Join(outDir, classicIndexName)
	if final == target {
		return nil
	}
	if cfg.keepTemporary {
		return copyFile(final, target)
	}
	return os.Rename(final, target)
}

func batchFileName(level, index int) string {
	return fmt.Sprintf("batch_%d_%05d.cobs", level, index)
}

// batchDocumentCount returns how many documents fit one in-RAM batch: the
// memory budget divided by one signature column of m bits. Counts of eight
// or more are rounded down to a multiple of eight so batch bodies stay
// byte-aligned through the merge tree in the common case.
func batchDocumentCount(m, memBytes, numDocuments uint64) (uint64, error) {
	columnBytes := (m + 7) / 8
	if columnBytes > memBytes {
		return 0, fmt.Errorf("%w: signature needs %d bytes, budget is %d",
			cobserrors.ErrMemoryBudget, columnBytes, memBytes)
	}
	batch := memBytes * 8 / m
	if batch < 1 {
		batch = 1
	}
	if batch >= 8 {
		batch &^= 7
	}
	if batch > numDocuments {
		batch = numDocuments
	}
	return batch, nil
}

// prepareOutputDir enforces the overwrite policy: an existing non-empty
// output directory is fatal unless clobber (erase) or continue (reuse
// matching batches) was requested.
func prepareOutputDir(outDir string, cfg *buildConfig) error {
	entries, err := os.ReadDir(outDir)
	switch {
	case err == nil && len(entries) > 0:
		if cfg.clobber {
			if err := os.RemoveAll(outDir); err != nil {
				return fmt.Errorf("clobber output directory: %w", err)
			}
		} else if !cfg.continueBuild {
			return fmt.Errorf("%w: %s", cobserrors.ErrOutputExists, outDir)
		}
	case err != nil && !os.IsNotExist(err):
		return fmt.Errorf("inspect output directory: %w", err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}

// countTerms computes per-document term counts in parallel.
func countTerms(ctx context.Context, docs DocumentSource, termSize uint32, workers int) ([]uint64, error) {
	counts := make([]uint64, docs.Size())
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < docs.Size(); i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, err := docs.NumTerms(i, termSize)
			if err != nil {
				return fmt.Errorf("count terms of %s: %w", docs.Name(i), err)
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

// buildClassicBatch materializes documents [lo, hi) into a classic index
// file at path. When continuing a previous run, a pre-existing file is
// reused iff it matches the intended parameters exactly.
func buildClassicBatch(ctx context.Context, docs DocumentSource, lo, hi int, m uint64, cfg *buildConfig, path string) error {
	names := make([]string, 0, hi-lo)
	for i := lo; i < hi; i++ {
		names = append(names, docs.Name(i))
	}
	hdr := &classicHeader{
		termSize:      cfg.termSize,
		canonicalize:  cfg.canonicalizeByte(),
		numHashes:     cfg.numHashes,
		signatureSize: m,
		rowSize:       intbits.RowSize(uint64(hi - lo)),
		fileNames:     names,
	}

	if cfg.continueBuild {
		if _, err := os.Stat(path); err == nil {
			if err := validateBatchFile(path, hdr); err != nil {
				return err
			}
			return nil
		}
	}

	w, err := createClassicFile(path, hdr)
	if err != nil {
		return err
	}

	if err := fillSignatureMatrix(ctx, docs, lo, hi, hdr, cfg, w.body); err != nil {
		return errors.Join(err, w.abort())
	}
	return w.finish()
}

// fillSignatureMatrix streams document terms into the row-major body.
// Workers own disjoint document ranges aligned to eight documents, so no
// two workers ever touch the same body byte.
func fillSignatureMatrix(ctx context.Context, docs DocumentSource, lo, hi int, hdr *classicHeader, cfg *buildConfig, body []byte) error {
	numDocs := hi - lo
	chunk := (numDocs + cfg.workers - 1) / cfg.workers
	chunk = (chunk + 7) &^ 7
	rowSize := hdr.rowSize

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < numDocs; start += chunk {
		start := start
		end := start + chunk
		if end > numDocs {
			end = numDocs
		}
		g.Go(func() error {
			kmerBuf := make([]byte, hdr.termSize)
			rowIdx := make([]uint64, 0, hdr.numHashes)
			for local := start; local < end; local++ {
				docByte := uint64(local) >> 3
				docBit := byte(1) << (local & 7)
				terms := 0
				err := docs.ProcessTerms(lo+local, hdr.termSize, func(term []byte) error {
					if terms%contextCheckInterval == 0 {
						if err := ctx.Err(); err != nil {
							return err
						}
					}
					terms++
					if cfg.canonicalize {
						term = CanonicalizeKmer(term, kmerBuf)
					}
					rowIdx = RowIndices(term, hdr.numHashes, hdr.signatureSize, rowIdx[:0])
					for _, r := range rowIdx {
						body[r*rowSize+docByte] |= docBit
					}
					return nil
				})
				if err != nil {
					return fmt.Errorf("process terms of %s: %w", docs.Name(lo+local), err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// validateBatchFile checks that an existing batch file was produced by a
// construction with exactly the intended parameters and document set.
func validateBatchFile(path string, want *classicHeader) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open batch file %s: %w", path, err)
	}
	defer f.Close()

	hr := &headerReader{r: bufio.NewReader(f)}
	got, err := decodeClassicHeader(hr)
	if err != nil {
		return fmt.Errorf("batch file %s: %w", path, err)
	}
	mismatch := func(field string) error {
		return fmt.Errorf("%w: %s differs in %s", cobserrors.ErrIncompatibleParameters, path, field)
	}
	switch {
	case got.termSize != want.termSize:
		return mismatch("term_size")
	case got.canonicalize != want.canonicalize:
		return mismatch("canonicalize")
	case got.numHashes != want.numHashes:
		return mismatch("num_hashes")
	case got.signatureSize != want.signatureSize:
		return mismatch("signature_size")
	case got.numDocuments() != want.numDocuments():
		return mismatch("num_documents")
	}
	for i, name := range got.fileNames {
		if name != want.fileNames[i] {
			return mismatch("document names")
		}
	}
	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat batch file %s: %w", path, err)
	}
	if uint64(stat.Size()) != hr.n+got.bodySize() {
		return fmt.Errorf("%w: %s has wrong body size", cobserrors.ErrTruncatedFile, path)
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
