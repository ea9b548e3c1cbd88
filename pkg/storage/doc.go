// Copyright © 2018 One Concern

// Package storage provides interface to handle backend storage objects.
//
// This package supports the following backends:
//   - local file system (or any afero.Fs)
//   - badger embedded K/V store
//   - pebble embedded K/V store
package storage
