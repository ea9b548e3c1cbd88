// Copyright © 2018 One Concern

// Package pbl implements a storage.Store on top of a pebble key-value database
package pbl

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/oneconcern/swarmtrie/pkg/storage"
	"github.com/oneconcern/swarmtrie/pkg/storage/status"
)

var _ storage.Store = &Store{}

// Store persists objects as pebble key-values
type Store struct {
	db   *pebble.DB
	path string
}

// New opens a pebble store at some path. An empty path opens an in-memory database.
func New(path string) (*Store, error) {
	options := &pebble.Options{}
	if path == "" {
		options.FS = vfs.NewMem()
	}
	options.EnsureDefaults()

	db, err := pebble.Open(path, options)
	if err != nil {
		return nil, status.ErrStorageAPI.Wrap(err)
	}
	return &Store{db: db, path: path}, nil
}

// Close the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) String() string {
	if s.path == "" {
		return "pebble@memory"
	}
	return "pebble@" + s.path
}

// Has an object?
func (s *Store) Has(_ context.Context, key string) (bool, error) {
	_, closer, err := s.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return false, nil
		}
		return false, status.ErrStorageAPI.Wrap(err)
	}
	_ = closer.Close()
	return true, nil
}

// Get an object
func (s *Store) Get(_ context.Context, key string) (io.ReadCloser, error) {
	val, closer, err := s.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, status.ErrNotExists.WrapMessage(key)
		}
		return nil, status.ErrStorageAPI.Wrap(err)
	}
	defer func() {
		_ = closer.Close()
	}()

	dest := make([]byte, len(val))
	copy(dest, val)
	return ioutil.NopCloser(bytes.NewReader(dest)), nil
}

// Put an object
func (s *Store) Put(ctx context.Context, key string, source io.Reader, exclusive bool) error {
	if exclusive {
		found, err := s.Has(ctx, key)
		if err != nil {
			return err
		}
		if found {
			return status.ErrExists.WrapMessage(key)
		}
	}

	value, err := ioutil.ReadAll(source)
	if err != nil {
		return err
	}
	return s.db.Set([]byte(key), value, pebble.NoSync)
}

// Delete an object
func (s *Store) Delete(_ context.Context, key string) error {
	return s.db.Delete([]byte(key), pebble.NoSync)
}

// Keys lists all objects
func (s *Store) Keys(_ context.Context) ([]string, error) {
	iterator, err := s.db.NewIter(nil)
	if err != nil {
		return nil, status.ErrStorageAPI.Wrap(err)
	}
	defer func() {
		_ = iterator.Close()
	}()

	var keys []string
	for valid := iterator.First(); valid; valid = iterator.Next() {
		keys = append(keys, string(iterator.Key()))
	}
	return keys, iterator.Error()
}

// Clear all objects
func (s *Store) Clear(ctx context.Context) error {
	keys, err := s.Keys(ctx)
	if err != nil {
		return err
	}
	batch := s.db.NewBatch()
	for _, key := range keys {
		if err := batch.Delete([]byte(key), nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}
