package cafs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/oneconcern/swarmtrie/internal/rand"
	"github.com/oneconcern/swarmtrie/pkg/chunkstore"
	"github.com/oneconcern/swarmtrie/pkg/dlogger"
	"github.com/oneconcern/swarmtrie/pkg/redundancy"
	"github.com/oneconcern/swarmtrie/pkg/storage/localfs"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
	"github.com/oneconcern/swarmtrie/pkg/traversal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

func testFs(t testing.TB, opts ...Option) (Fs, chunkstore.Store) {
	store := chunkstore.NewInMemory(chunkstore.WithCacheSize(0))
	fs, err := New(append([]Option{Chunks(store), Logger(dlogger.MustGetLogger("none"))}, opts...)...)
	require.NoError(t, err)
	return fs, store
}

func leavesOf(t testing.TB, fs Fs, ref swarm.Reference) []swarm.Address {
	var leaves []swarm.Address
	require.NoError(t, fs.Traverse(context.Background(), ref, traversal.Callbacks{
		OnFound: func(v traversal.Visit) error {
			if v.Kind == traversal.KindLeaf {
				leaves = append(leaves, v.Address)
			}
			return nil
		},
	}))
	return leaves
}

func TestPutGet(t *testing.T) {
	for _, level := range []redundancy.Level{redundancy.NONE, redundancy.MEDIUM, redundancy.PARANOID} {
		for _, encrypt := range []bool{false, true} {
			for _, size := range []int{0, 1, swarm.ChunkSize, 3*swarm.ChunkSize + 17, 200 * swarm.ChunkSize} {
				level, encrypt, size := level, encrypt, size
				t.Run(fmt.Sprintf("%s/encrypted:%t/%d", level, encrypt, size), func(t *testing.T) {
					t.Parallel()
					ctx := context.Background()
					fs, _ := testFs(t, Redundancy(level), Encrypt(encrypt))
					data := rand.Bytes(size)

					res, err := fs.Put(ctx, bytes.NewReader(data))
					require.NoError(t, err)
					assert.Equal(t, int64(size), res.Written)
					assert.False(t, res.Found)
					assert.NotEmpty(t, res.Session)
					assert.Equal(t, encrypt, res.Ref.IsEncrypted())

					r, err := fs.Get(ctx, res.Ref)
					require.NoError(t, err)
					read, err := io.ReadAll(r)
					require.NoError(t, err)
					require.NoError(t, r.Close())
					assert.Equal(t, data, read)

					has, missing, err := fs.Has(ctx, res.Ref, HasGatherIncomplete())
					require.NoError(t, err)
					assert.True(t, has)
					assert.Empty(t, missing)
				})
			}
		}
	}
}

func TestPutTwice(t *testing.T) {
	ctx := context.Background()
	fs, _ := testFs(t, Redundancy(redundancy.MEDIUM))
	data := rand.Bytes(5 * swarm.ChunkSize)

	first, err := fs.Put(ctx, bytes.NewReader(data))
	require.NoError(t, err)
	assert.False(t, first.Found)

	second, err := fs.Put(ctx, bytes.NewReader(data))
	require.NoError(t, err)
	assert.True(t, second.Found)
	assert.Equal(t, first.Ref, second.Ref)
	assert.NotEqual(t, first.Session, second.Session)
}

func TestGetAt(t *testing.T) {
	ctx := context.Background()
	fs, _ := testFs(t, Encrypt(true))
	data := rand.Bytes(50*swarm.ChunkSize + 100)

	res, err := fs.Put(ctx, bytes.NewReader(data))
	require.NoError(t, err)

	r, err := fs.GetAt(ctx, res.Ref)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	assert.Equal(t, int64(len(data)), r.Size())

	for _, off := range []int{0, 10, swarm.ChunkSize - 5, 17 * swarm.ChunkSize, len(data) - 50} {
		buf := make([]byte, 100)
		n, err := r.ReadAt(buf, int64(off))
		if off+len(buf) > len(data) {
			assert.Equal(t, io.EOF, err)
		} else {
			require.NoError(t, err)
		}
		assert.Equal(t, data[off:off+n], buf[:n])
	}
}

func TestBackend(t *testing.T) {
	ctx := context.Background()
	fs, err := New(Backend(localfs.New(afero.NewMemMapFs())), WithMetrics(true), ConcurrentFlushes(4))
	require.NoError(t, err)

	data := rand.Bytes(3 * swarm.ChunkSize)
	res, err := fs.Put(ctx, bytes.NewReader(data))
	require.NoError(t, err)

	r, err := fs.Get(ctx, res.Ref)
	require.NoError(t, err)
	read, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, data, read)

	_, err = New(Redundancy(redundancy.Level(12)))
	assert.Error(t, err)
}

func TestHasIncomplete(t *testing.T) {
	ctx := context.Background()
	fs, store := testFs(t)
	res, err := fs.Put(ctx, bytes.NewReader(rand.Bytes(4*swarm.ChunkSize)))
	require.NoError(t, err)

	leaves := leavesOf(t, fs, res.Ref)
	require.Len(t, leaves, 4)
	require.NoError(t, store.Delete(ctx, leaves[1]))

	has, missing, err := fs.Has(ctx, res.Ref)
	require.NoError(t, err)
	assert.True(t, has)
	assert.Nil(t, missing)

	has, missing, err = fs.Has(ctx, res.Ref, HasGatherIncomplete())
	require.NoError(t, err)
	assert.True(t, has)
	assert.Equal(t, []swarm.Address{leaves[1]}, missing)

	require.NoError(t, store.Delete(ctx, res.Ref.Address()))
	has, _, err = fs.Has(ctx, res.Ref)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestRepair(t *testing.T) {
	for _, encrypt := range []bool{false, true} {
		encrypt := encrypt
		t.Run(fmt.Sprintf("encrypted:%t", encrypt), func(t *testing.T) {
			ctx := context.Background()
			fs, store := testFs(t, Redundancy(redundancy.STRONG), Encrypt(encrypt))
			data := rand.Bytes(10 * swarm.ChunkSize)
			res, err := fs.Put(ctx, bytes.NewReader(data))
			require.NoError(t, err)

			leaves := leavesOf(t, fs, res.Ref)
			require.Len(t, leaves, 10)
			for _, addr := range leaves[2:5] {
				require.NoError(t, store.Delete(ctx, addr))
			}
			require.NoError(t, store.Delete(ctx, res.Ref.Address()))

			repaired, err := fs.Repair(ctx, res.Ref)
			require.NoError(t, err)
			assert.Equal(t, 4, repaired.Recovered)
			assert.Empty(t, repaired.Missing)

			has, missing, err := fs.Has(ctx, res.Ref, HasGatherIncomplete())
			require.NoError(t, err)
			assert.True(t, has)
			assert.Empty(t, missing)

			// nothing left to repair
			repaired, err = fs.Repair(ctx, res.Ref)
			require.NoError(t, err)
			assert.Zero(t, repaired.Recovered)
		})
	}
}

func TestRepairNotEnoughShards(t *testing.T) {
	ctx := context.Background()
	fs, store := testFs(t, Redundancy(redundancy.MEDIUM))
	res, err := fs.Put(ctx, bytes.NewReader(rand.Bytes(10*swarm.ChunkSize)))
	require.NoError(t, err)

	leaves := leavesOf(t, fs, res.Ref)
	for _, addr := range leaves {
		require.NoError(t, store.Delete(ctx, addr))
	}

	repaired, err := fs.Repair(ctx, res.Ref)
	require.NoError(t, err)
	assert.Zero(t, repaired.Recovered)
	assert.ElementsMatch(t, leaves, repaired.Missing)
}

func TestPinAndDelete(t *testing.T) {
	ctx := context.Background()
	fs, store := testFs(t, Redundancy(redundancy.MEDIUM))
	res, err := fs.Put(ctx, bytes.NewReader(rand.Bytes(10*swarm.ChunkSize)))
	require.NoError(t, err)

	chunks := 0
	require.NoError(t, fs.Traverse(ctx, res.Ref, traversal.Callbacks{
		OnFound: func(traversal.Visit) error {
			chunks++
			return nil
		},
	}))

	require.NoError(t, fs.Pin(ctx, res.Ref))
	pins, err := fs.Pins(ctx)
	require.NoError(t, err)
	assert.Len(t, pins, chunks)

	require.NoError(t, fs.Unpin(ctx, res.Ref))
	pins, err = fs.Pins(ctx)
	require.NoError(t, err)
	assert.Empty(t, pins)

	require.NoError(t, fs.Delete(ctx, res.Ref))
	keys, err := store.Pins(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	has, err := store.Has(ctx, res.Ref.Address())
	require.NoError(t, err)
	assert.False(t, has)

	// replicas are gone too
	_, err = fs.Get(ctx, res.Ref)
	assert.Error(t, err)
}

func TestPinUploads(t *testing.T) {
	ctx := context.Background()
	fs, _ := testFs(t, PinUploads(true))
	res, err := fs.Put(ctx, bytes.NewReader(rand.Bytes(3*swarm.ChunkSize)))
	require.NoError(t, err)

	pins, err := fs.Pins(ctx)
	require.NoError(t, err)
	assert.Len(t, pins, 4)
	assert.Contains(t, pins, res.Ref.Address())
}
