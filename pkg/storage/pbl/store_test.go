// Copyright © 2018 One Concern

package pbl

import (
	"testing"

	"github.com/oneconcern/swarmtrie/pkg/storage/storagetest"
	"github.com/stretchr/testify/require"
)

func TestPebbleStore(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	defer func() {
		require.NoError(t, store.Close())
	}()

	storagetest.Run(t, store)
}

func TestPebbleInMemory(t *testing.T) {
	store, err := New("")
	require.NoError(t, err)
	defer func() {
		_ = store.Close()
	}()

	storagetest.Run(t, store)
}
