// Copyright © 2018 One Concern

package bdgr

import (
	"testing"

	"github.com/oneconcern/swarmtrie/pkg/storage/storagetest"
	"github.com/stretchr/testify/require"
)

func TestBadgerStore(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	defer func() {
		require.NoError(t, store.Close())
	}()

	storagetest.Run(t, store)
}

func TestBadgerInMemory(t *testing.T) {
	store, err := New("")
	require.NoError(t, err)
	defer func() {
		_ = store.Close()
	}()

	require.Equal(t, "badger@memory", store.String())
	storagetest.Run(t, store)
}
