// Package redundancy protects chunk tries with Reed-Solomon erasure coding.
//
// On write, the data chunks of every intermediate chunk are grouped and
// complemented with parity chunks; the number of parities depends on the
// redundancy level and on the size of the group. Parity references are appended
// after the data references in the parent chunk, and the parent span records
// the redundancy level in its top byte.
//
// On read, missing data chunks are recovered from any subset of
// data + parity chunks as large as the number of data chunks.
package redundancy
