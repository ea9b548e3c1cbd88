// Copyright © 2018 One Concern

package storage

import (
	"context"
	"io"
)

const (
	// OverWrite allows a Put to replace an existing object
	OverWrite = false

	// NoOverWrite fails a Put whenever the object exists already
	NoOverWrite = true
)

// Store implementations know how to write entries to a K/V model.
//
// Typically this is something file system-like or an embedded K/V database.
// Implementations of this interface are assumed to be fairly simple.
type Store interface {
	String() string
	Has(context.Context, string) (bool, error)
	Get(context.Context, string) (io.ReadCloser, error)
	Put(context.Context, string, io.Reader, bool) error
	Delete(context.Context, string) error
	Keys(context.Context) ([]string, error)
	Clear(context.Context) error
}
