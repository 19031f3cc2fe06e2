package cobs

import (
	"github.com/zeebo/xxh3"
)

// basepairMap maps a DNA base to its complement: A<->T, C<->G. Every other
// byte maps to itself, so non-ACGT bytes compare by raw value during
// canonicalization.
var basepairMap [256]byte

func init() {
	for i := 0; i < 256; i++ {
		basepairMap[i] = byte(i)
	}
	basepairMap['A'] = 'T'
	basepairMap['T'] = 'A'
	basepairMap['C'] = 'G'
	basepairMap['G'] = 'C'
}

// BasepairMap returns the complement of a single base.
func BasepairMap(b byte) byte {
	return basepairMap[b]
}

// ReverseComplement writes the reverse complement of term into dst.
// dst must be at least len(term) bytes.
func ReverseComplement(term, dst []byte) {
	n := len(term)
	for i := 0; i < n; i++ {
		dst[i] = basepairMap[term[n-1-i]]
	}
}

// CanonicalizeKmer returns the lexicographically smaller of term and its
// reverse complement. If term is already canonical it is returned as-is;
// otherwise the reverse complement is written into buf and buf[:len(term)]
// is returned. buf must be at least len(term) bytes.
//
// The comparison walks inward from both ends and short-circuits at the
// first decisive position, so palindromic prefixes cost O(1) amortized on
// real data.
func CanonicalizeKmer(term, buf []byte) []byte {
	for i, j := 0, len(term)-1; i <= j; i, j = i+1, j-1 {
		c := basepairMap[term[j]]
		if term[i] < c {
			return term
		}
		if term[i] > c {
			ReverseComplement(term, buf)
			return buf[:len(term)]
		}
	}
	// term equals its own reverse complement
	return term
}

// RowIndices appends the row indices of term to dst and returns the
// extended slice. The i-th index is XXH3-64(term, seed=i) mod
// signatureSize. This derivation is part of the on-disk contract: changing
// it invalidates every existing index file.
//
// Duplicates among the returned indices are permitted and intentional.
func RowIndices(term []byte, numHashes, signatureSize uint64, dst []uint64) []uint64 {
	for i := uint64(0); i < numHashes; i++ {
		dst = append(dst, xxh3.HashSeed(term, i)%signatureSize)
	}
	return dst
}
