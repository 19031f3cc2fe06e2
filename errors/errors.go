// Package errors defines all exported error sentinels for the cobs library.
//
// This is the single source of truth for error values. Both the top-level
// cobs package and the command-line tool import from here, ensuring
// errors.Is checks work across package boundaries.
package errors

import "errors"

// Configuration errors
var (
	ErrInvalidTermSize        = errors.New("cobs: term size must be in [1, 255]")
	ErrInvalidNumHashes       = errors.New("cobs: number of hashes must be at least 1")
	ErrInvalidFalsePositive   = errors.New("cobs: false positive rate must be in (0, 1)")
	ErrInvalidPageSize        = errors.New("cobs: page size must be at least 1")
	ErrEmptyDocumentList      = errors.New("cobs: document list is empty")
	ErrOutputExists           = errors.New("cobs: output directory exists, will not overwrite without clobber")
	ErrIncompatibleParameters = errors.New("cobs: existing batch file parameters do not match this construction")
	ErrUnknownFileType        = errors.New("cobs: unknown document file type")
)

// Resource errors
var (
	ErrMemoryBudget = errors.New("cobs: memory budget cannot accommodate a single document signature")
)

// Index format errors
var (
	ErrInvalidMagic   = errors.New("cobs: invalid magic bytes")
	ErrInvalidVersion = errors.New("cobs: unsupported format version")
	ErrTruncatedFile  = errors.New("cobs: index file is truncated")
	ErrCorruptedIndex = errors.New("cobs: index data is corrupted")
)

// Query errors
var (
	ErrIndexClosed   = errors.New("cobs: index is closed")
	ErrQueryTooShort = errors.New("cobs: query is shorter than the term size")
	ErrRowOutOfRange = errors.New("cobs: row index exceeds signature size")
)
