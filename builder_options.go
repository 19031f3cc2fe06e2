package cobs

import (
	"runtime"

	cobserrors "github.com/MitraDarja/cobs/errors"
)

// BuildOption is a functional option for configuring index construction.
type BuildOption func(*buildConfig)

type buildConfig struct {
	termSize          uint32
	canonicalize      bool
	numHashes         uint64
	falsePositiveRate float64
	memBytes          uint64
	workers           int
	pageSize          uint64 // compact only; 0 derives ceil(sqrt(N))
	keepTemporary     bool
	continueBuild     bool
	clobber           bool
}

func defaultBuildConfig() *buildConfig {
	return &buildConfig{
		termSize:          31,
		numHashes:         1,
		falsePositiveRate: 0.3,
		memBytes:          1 << 31,
		workers:           runtime.NumCPU(),
	}
}

func (c *buildConfig) validate() error {
	if c.termSize < 1 || c.termSize > 255 {
		return cobserrors.ErrInvalidTermSize
	}
	if c.numHashes < 1 {
		return cobserrors.ErrInvalidNumHashes
	}
	if c.falsePositiveRate <= 0 || c.falsePositiveRate >= 1 {
		return cobserrors.ErrInvalidFalsePositive
	}
	if c.workers < 1 {
		c.workers = 1
	}
	return nil
}

func (c *buildConfig) canonicalizeByte() uint8 {
	if c.canonicalize {
		return 1
	}
	return 0
}

// WithTermSize sets the k-mer size. Default: 31.
func WithTermSize(k uint32) BuildOption {
	return func(c *buildConfig) { c.termSize = k }
}

// WithCanonicalize enables DNA k-mer canonicalization: each window is
// replaced by the lexicographic minimum of itself and its reverse
// complement. Default: off.
func WithCanonicalize(on bool) BuildOption {
	return func(c *buildConfig) { c.canonicalize = on }
}

// WithNumHashes sets the number of Bloom filter hash functions. Default: 1.
func WithNumHashes(h uint64) BuildOption {
	return func(c *buildConfig) { c.numHashes = h }
}

// WithFalsePositiveRate sets the per-term false positive rate the signature
// size is derived from. Default: 0.3.
func WithFalsePositiveRate(p float64) BuildOption {
	return func(c *buildConfig) { c.falsePositiveRate = p }
}

// WithMemoryBudget caps the bytes of signature matrix materialized in RAM
// at once; it determines how many documents form one construction batch.
// Default: 2 GiB.
func WithMemoryBudget(bytes uint64) BuildOption {
	return func(c *buildConfig) { c.memBytes = bytes }
}

// WithWorkers sets the number of parallel workers. Default: NumCPU.
func WithWorkers(n int) BuildOption {
	return func(c *buildConfig) { c.workers = n }
}

// WithPageSize sets the number of documents per compact index page.
// Default: ceil(sqrt(#documents)). Ignored by classic construction.
func WithPageSize(docs uint64) BuildOption {
	return func(c *buildConfig) { c.pageSize = docs }
}

// WithKeepTemporary retains per-batch files after merging instead of
// deleting them.
func WithKeepTemporary(keep bool) BuildOption {
	return func(c *buildConfig) { c.keepTemporary = keep }
}

// WithContinue resumes construction in an existing output directory,
// reusing batch files whose parameters match this run exactly. A batch file
// with mismatched parameters fails the build.
func WithContinue(on bool) BuildOption {
	return func(c *buildConfig) { c.continueBuild = on }
}

// WithClobber erases an existing output directory before construction.
func WithClobber(on bool) BuildOption {
	return func(c *buildConfig) { c.clobber = on }
}
