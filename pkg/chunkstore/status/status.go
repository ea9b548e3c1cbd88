// Package status declares error constants returned by chunk stores
package status

import "github.com/oneconcern/swarmtrie/pkg/errors"

var (
	// ErrNotFound indicates that a chunk is absent from the store
	ErrNotFound = errors.New("chunk not found")

	// ErrMalformedChunk indicates that a chunk does not match its address, or has an unexpected layout
	ErrMalformedChunk = errors.New("malformed chunk")
)
