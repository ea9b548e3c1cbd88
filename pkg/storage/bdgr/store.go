// Copyright © 2018 One Concern

// Package bdgr implements a storage.Store on top of a badger key-value database
package bdgr

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dgraph-io/badger/v3"
	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/oneconcern/swarmtrie/pkg/storage"
	"github.com/oneconcern/swarmtrie/pkg/storage/status"
)

var _ storage.Store = &Store{}

// Store persists objects as badger key-values
type Store struct {
	db   *badger.DB
	path string
}

// New opens a badger store at some path. An empty path opens an in-memory database.
func New(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).
		WithLoggingLevel(badger.WARNING).
		WithLogger(nil)

	if path == "" {
		opts = opts.WithInMemory(true)
	} else if err := os.MkdirAll(path, 0700); err != nil {
		return nil, status.ErrStorageAPI.Wrap(err)
	}

	db, err := badger.Open(opts)
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
		return "badger@memory"
	}
	return "badger@" + s.path
}

// Has an object?
func (s *Store) Has(_ context.Context, key string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, e := txn.Get([]byte(key))
		return e
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return false, nil
		}
		return false, status.ErrStorageAPI.Wrap(err)
	}
	return true, nil
}

// Get an object
func (s *Store) Get(_ context.Context, key string) (io.ReadCloser, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, e := txn.Get([]byte(key))
		if e != nil {
			return e
		}
		value, e = item.ValueCopy(nil)
		return e
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, status.ErrNotExists.WrapMessage(key)
		}
		return nil, status.ErrStorageAPI.Wrap(err)
	}
	return ioutil.NopCloser(bytes.NewReader(value)), nil
}

// Put an object, retrying on transaction conflicts
func (s *Store) Put(_ context.Context, key string, source io.Reader, exclusive bool) error {
	value, err := ioutil.ReadAll(source)
	if err != nil {
		return err
	}

	return backoff.Retry(func() error {
		return s.db.Update(func(txn *badger.Txn) error {
			if exclusive {
				_, e := txn.Get([]byte(key))
				if e == nil {
					return backoff.Permanent(status.ErrExists.WrapMessage(key))
				}
				if !errors.Is(e, badger.ErrKeyNotFound) {
					return backoff.Permanent(e)
				}
			}

			if e := txn.Set([]byte(key), value); e != nil {
				if errors.Is(e, badger.ErrConflict) {
					return e // retry
				}
				return backoff.Permanent(e)
			}
			return nil
		})
	},
		backoff.WithMaxRetries(backoff.NewConstantBackOff(10*time.Millisecond), 10),
	)
}

// Delete an object
func (s *Store) Delete(_ context.Context, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Keys lists all objects
func (s *Store) Keys(_ context.Context) ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return keys, err
}

// Clear all objects
func (s *Store) Clear(_ context.Context) error {
	return s.db.DropAll()
}
