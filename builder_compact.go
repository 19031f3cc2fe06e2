package cobs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	cobserrors "github.com/MitraDarja/cobs/errors"
	intbits "github.com/MitraDarja/cobs/internal/bits"
)

// compactIndexName is the final file produced by compact construction.
const compactIndexName = "index.com_idx.cobs"

// subsetSource exposes a contiguous document range of another source.
type subsetSource struct {
	src    DocumentSource
	lo, hi int
}

func (s *subsetSource) Size() int         { return s.hi - s.lo }
func (s *subsetSource) Name(i int) string { return s.src.Name(s.lo + i) }

func (s *subsetSource) NumTerms(i int, termSize uint32) (uint64, error) {
	return s.src.NumTerms(s.lo+i, termSize)
}

func (s *subsetSource) ProcessTerms(i int, termSize uint32, fn func(term []byte) error) error {
	return s.src.ProcessTerms(s.lo+i, termSize, fn)
}

// DefaultPageSize returns the default compact page size for numDocuments
// documents: ceil(sqrt(numDocuments)).
func DefaultPageSize(numDocuments int) uint64 {
	return uint64(math.Ceil(math.Sqrt(float64(numDocuments))))
}

// ConstructCompact builds a compact index over docs into
// outDir/index.com_idx.cobs.
//
// Documents are partitioned in input order into pages of page_size
// documents (last page possibly short). Each page is built as a classic
// sub-index with its own signature size derived from that page's largest
// document, which keeps pages of small documents small instead of sizing
// every signature for the global maximum. The sub-indices are written as
// OUT_DIR/<page>.cobs and concatenated into the final compact file.
func ConstructCompact(ctx context.Context, docs DocumentSource, outDir string, opts ...BuildOption) error {
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
	pageSize := cfg.pageSize
	if pageSize == 0 {
		pageSize = DefaultPageSize(docs.Size())
	}
	if pageSize < 1 {
		return cobserrors.ErrInvalidPageSize
	}
	if err := prepareOutputDir(outDir, cfg); err != nil {
		return err
	}

	var pageFiles []string
	for page, lo := 0, 0; lo < docs.Size(); page++ {
		hi := lo + int(pageSize)
		if hi > docs.Size() {
			hi = docs.Size()
		}
		pagePath := filepath.Join(outDir, pageFileName(page))
		if err := buildCompactPage(ctx, docs, lo, hi, cfg, outDir, pagePath); err != nil {
			return err
		}
		pageFiles = append(pageFiles, pagePath)
		lo = hi
	}

	target := filepath.Join(outDir, compactIndexName)
	if err := combineClassicFiles(pageFiles, target, pageSize); err != nil {
		return err
	}
	if !cfg.keepTemporary {
		for _, p := range pageFiles {
			if err := os.Remove(p); err != nil {
				return fmt.Errorf("remove page file: %w", err)
			}
		}
	}
	return nil
}

func pageFileName(page int) string {
	return fmt.Sprintf("%05d.cobs", page)
}

// buildCompactPage builds the classic sub-index for documents [lo, hi)
// at pagePath. With continue enabled, an existing page file is reused iff
// its parameters match what this run would produce.
func buildCompactPage(ctx context.Context, docs DocumentSource, lo, hi int, cfg *buildConfig, outDir, pagePath string) error {
	sub := &subsetSource{src: docs, lo: lo, hi: hi}

	if cfg.continueBuild {
		if _, err := os.Stat(pagePath); err == nil {
			counts, err := countTerms(ctx, sub, cfg.termSize, cfg.workers)
			if err != nil {
				return err
			}
			var maxTerms uint64
			for _, n := range counts {
				if n > maxTerms {
					maxTerms = n
				}
			}
			names := make([]string, 0, hi-lo)
			for i := 0; i < sub.Size(); i++ {
				names = append(names, sub.Name(i))
			}
			return validateBatchFile(pagePath, &classicHeader{
				termSize:      cfg.termSize,
				canonicalize:  cfg.canonicalizeByte(),
				numHashes:     cfg.numHashes,
				signatureSize: CalcSignatureSize(maxTerms, cfg.numHashes, cfg.falsePositiveRate),
				rowSize:       intbits.RowSize(uint64(hi - lo)),
				fileNames:     names,
			})
		}
	}

	tmpDir, err := os.MkdirTemp(outDir, "page_")
	if err != nil {
		return fmt.Errorf("create page working directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	subOpts := []BuildOption{
		WithTermSize(cfg.termSize),
		WithCanonicalize(cfg.canonicalize),
		WithNumHashes(cfg.numHashes),
		WithFalsePositiveRate(cfg.falsePositiveRate),
		WithMemoryBudget(cfg.memBytes),
		WithWorkers(cfg.workers),
		WithKeepTemporary(false),
		WithContinue(true),
	}
	if err := ConstructClassic(ctx, sub, tmpDir, subOpts...); err != nil {
		return fmt.Errorf("construct page %s: %w", pagePath, err)
	}
	if err := os.Rename(filepath.Join(tmpDir, classicIndexName), pagePath); err != nil {
		return fmt.Errorf("move page file: %w", err)
	}
	return nil
}

// CombineIntoCompact concatenates the classic index files in inDir, in
// lexicographic file-name order, into one compact index at outFile. Every
// input except the last must hold exactly pageSize documents.
func CombineIntoCompact(inDir, outFile string, pageSize uint64) error {
	entries, err := os.ReadDir(inDir)
	if err != nil {
		return fmt.Errorf("read input directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".cobs") || e.Name() == compactIndexName {
			continue
		}
		paths = append(paths, filepath.Join(inDir, e.Name()))
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return fmt.Errorf("%w: no classic index files in %s", cobserrors.ErrEmptyDocumentList, inDir)
	}
	return combineClassicFiles(paths, outFile, pageSize)
}

// combineClassicFiles writes the compact header for the given classic
// files and streams their bodies after it in page order.
func combineClassicFiles(paths []string, outFile string, pageSize uint64) error {
	hdr := &compactHeader{pageSize: pageSize}
	bodySizes := make([]uint64, len(paths))

	for i, path := range paths {
		sub, err := readClassicFileHeader(path)
		if err != nil {
			return err
		}
		if i == 0 {
			hdr.termSize = sub.termSize
			hdr.canonicalize = sub.canonicalize
			hdr.numHashes = sub.numHashes
		} else if sub.termSize != hdr.termSize ||
			sub.canonicalize != hdr.canonicalize ||
			sub.numHashes != hdr.numHashes {
			return fmt.Errorf("%w: %s", cobserrors.ErrIncompatibleParameters, path)
		}
		if sub.numDocuments() > pageSize ||
			(i+1 < len(paths) && sub.numDocuments() != pageSize) {
			return fmt.Errorf("%w: %s holds %d documents, page size is %d",
				cobserrors.ErrIncompatibleParameters, path, sub.numDocuments(), pageSize)
		}
		hdr.pages = append(hdr.pages, compactPage{
			signatureSize: sub.signatureSize,
			fileNames:     sub.fileNames,
		})
		bodySizes[i] = sub.bodySize()
	}
	hdr.computeOffsets()

	out, err := os.Create(outFile)
	if err != nil {
		return fmt.Errorf("create compact index file: %w", err)
	}
	w := bufio.NewWriterSize(out, 1<<20)
	if _, err := w.Write(hdr.encode()); err != nil {
		return errors.Join(fmt.Errorf("write compact header: %w", err), out.Close())
	}
	for i, path := range paths {
		if err := appendClassicBody(w, path, bodySizes[i]); err != nil {
			return errors.Join(err, out.Close())
		}
	}
	if err := w.Flush(); err != nil {
		return errors.Join(fmt.Errorf("flush compact index file: %w", err), out.Close())
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close compact index file: %w", err)
	}
	return nil
}

// readClassicFileHeader decodes the header of a classic index file and
// verifies the body size against the file length.
func readClassicFileHeader(path string) (*classicHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open classic index file: %w", err)
	}
	defer f.Close()
	hr := &headerReader{r: bufio.NewReader(f)}
	hdr, err := decodeClassicHeader(hr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat classic index file: %w", err)
	}
	if uint64(stat.Size()) != hr.n+hdr.bodySize() {
		return nil, fmt.Errorf("%s: %w", path, cobserrors.ErrTruncatedFile)
	}
	return hdr, nil
}

// appendClassicBody copies the body of a classic index file to w.
func appendClassicBody(w io.Writer, path string, bodySize uint64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open page file: %w", err)
	}
	defer f.Close()
	fadviseSequential(int(f.Fd()), 0, 0)

	hr := &headerReader{r: bufio.NewReader(f)}
	if _, err := decodeClassicHeader(hr); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if _, err := io.CopyN(w, hr.r, int64(bodySize)); err != nil {
		return fmt.Errorf("copy page body of %s: %w", path, err)
	}
	return nil
}
