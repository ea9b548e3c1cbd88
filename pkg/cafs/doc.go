// Package cafs provides a content-addressable file system on top of a chunk store.
//
// Files are split into 4KB chunks, organized as a trie of intermediate chunks which
// reference their children. The root chunk address (and decryption key, when content
// is encrypted) is the reference of the file.
//
// Intermediate chunks may carry erasure coded parities, so that missing children
// can be recovered on read, or repaired in the store. Root chunks are then replicated
// as single-owner chunks at dispersed addresses.
//
// Files may be indexed by path in manifests.
package cafs
