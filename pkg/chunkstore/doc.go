// Package chunkstore persists content-addressed and single-owner chunks
// on top of a storage.Store backend.
//
// Chunks are immutable: putting a chunk that is already stored does not write
// anything (but may still pin it or attach a postage stamp).
//
// Reads go through an LRU cache, and concurrent reads of the same chunk
// only hit the backend once.
package chunkstore
