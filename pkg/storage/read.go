// Copyright © 2018 One Concern

package storage

import (
	"context"
	"io"
)

// ReadAll reads a whole object from a store
func ReadAll(ctx context.Context, store Store, key string) ([]byte, error) {
	reader, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}
