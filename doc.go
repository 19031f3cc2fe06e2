// Package cobs implements a compact bit-sliced signature index for
// approximate membership queries over large collections of short
// biological sequences.
//
// A corpus of documents is indexed by one Bloom filter column per
// document, stored transposed ("bit-sliced") so that a single row read
// answers one hash probe for every document at once. Queries report, per
// document, how many of the query's k-mers are likely present: presence in
// a document's source term set is never missed, absence is misreported
// only at the configured false positive rate.
//
// # Building
//
//	docs, err := cobs.NewDocumentList("data/", cobs.FileTypeAny)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = cobs.ConstructClassic(ctx, docs, "index/",
//	    cobs.WithTermSize(31),
//	    cobs.WithFalsePositiveRate(0.3),
//	    cobs.WithMemoryBudget(1<<30))
//
// ConstructCompact builds the paged layout instead: documents are
// partitioned into fixed-size pages, each page a classic sub-index with
// its own signature size, so small documents do not pay for the largest
// one.
//
// # Querying
//
//	idx, err := cobs.Open("index/index.cobs")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer idx.Close()
//
//	s := cobs.NewClassicSearch(idx)
//	results, err := s.Search(querySequence, 100)
//
// # Package Structure
//
//   - Construction: builder_classic.go, builder_compact.go, merge.go,
//     builder_options.go (BuildOption, With* functions)
//   - Serialization: header.go (classic and compact wire formats),
//     file_writer.go (mmap-based zero-copy writing)
//   - Readers: index.go (IndexFile, ClassicMmap), index_compact.go
//     (CompactMmap, CompactAio)
//   - Query: search.go (ClassicSearch), timer.go
//   - Terms: kmer.go (canonicalization, row hashing), signature.go
//     (Bloom filter sizing), document.go (document sources)
//   - Platform: fallocate_*.go, fadvise_*.go, madvise_*.go, prefault_*.go
package cobs
