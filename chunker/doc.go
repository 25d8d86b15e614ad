// Package chunker splits document text into overlapping fixed-size windows.
//
// Chunks are measured in runes so multi-byte text never splits mid-character.
// Splitting is deterministic: identical inputs always produce identical
// chunk boundaries, which keeps content-addressed chunk IDs stable across
// re-ingestion.
package chunker
