package badger

import (
	"encoding/binary"

	"github.com/perigee/recall/core"
)

// Key prefixes for different data types
const (
	documentPrefix   = "docrec"
	chunkPrefix      = "chkrec"
	chunkByDocPrefix = "chkdoc"
	cachePrefix      = "cachent"
)

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return appendID([]byte(documentPrefix+":"), id)
}

// makeChunkKey generates a key for a chunk by ID.
func makeChunkKey(id core.ID) []byte {
	return appendID([]byte(chunkPrefix+":"), id)
}

// makeChunkByDocKey generates a composite key for the document index.
// Format: prefix:documentID:chunkID
func makeChunkByDocKey(docID, chunkID core.ID) []byte {
	return appendID(appendID([]byte(chunkByDocPrefix+":"), docID), chunkID)
}

// makePartialChunkByDocKey generates a partial key for per-document chunk scans.
// Format: prefix:documentID
func makePartialChunkByDocKey(docID core.ID) []byte {
	return appendID([]byte(chunkByDocPrefix+":"), docID)
}

// makeCacheKey generates a key for a cache entry within a namespace.
// Format: prefix:namespace:entryID
func makeCacheKey(namespace string, id core.ID) []byte {
	return appendID(makeCacheNamespacePrefix(namespace), id)
}

// makeCacheNamespacePrefix generates the scan prefix for a cache namespace.
func makeCacheNamespacePrefix(namespace string) []byte {
	return []byte(cachePrefix + ":" + namespace + ":")
}

// appendID appends a BigEndian-encoded ID so lexicographic sort works correctly.
func appendID(prefix []byte, id core.ID) []byte {
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}
