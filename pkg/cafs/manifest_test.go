package cafs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/oneconcern/swarmtrie/internal/rand"
	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/oneconcern/swarmtrie/pkg/mantaray"
	"github.com/oneconcern/swarmtrie/pkg/postage"
	"github.com/oneconcern/swarmtrie/pkg/redundancy"
	"github.com/oneconcern/swarmtrie/pkg/soc"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomFiles(paths ...string) map[string][]byte {
	files := make(map[string][]byte, len(paths))
	for _, p := range paths {
		files[p] = rand.Bytes(1 + rand.Intn(3*swarm.ChunkSize))
	}
	return files
}

func TestManifest(t *testing.T) {
	stamperSigner, err := soc.GenerateSigner()
	require.NoError(t, err)
	stamper, err := postage.NewBatchStamper(rand.Bytes(postage.BatchIDSize), 20, 16, stamperSigner)
	require.NoError(t, err)

	for _, fixture := range []struct {
		name string
		opts []Option
	}{
		{name: "plain"},
		{name: "encrypted", opts: []Option{Encrypt(true), Redundancy(redundancy.MEDIUM)}},
		{name: "compacted", opts: []Option{Stamper(stamper), CompactLevel(8)}},
	} {
		fixture := fixture
		t.Run(fixture.name, func(t *testing.T) {
			ctx := context.Background()
			fs, _ := testFs(t, fixture.opts...)
			files := randomFiles("index.html", "img/1.png", "img/2.png", "docs/readme.md")

			entries := make([]ManifestEntry, 0, len(files))
			refs := make(map[string]swarm.Reference, len(files))
			for p, data := range files {
				res, err := fs.Put(ctx, bytes.NewReader(data))
				require.NoError(t, err)
				refs[p] = res.Ref
				entries = append(entries, ManifestEntry{
					Path:     p,
					Ref:      res.Ref,
					Metadata: map[string]string{"Filename": p},
				})
			}

			manifest, err := fs.ManifestAdd(ctx, nil, entries...)
			require.NoError(t, err)

			for p, data := range files {
				e, err := fs.ManifestLookup(ctx, manifest, p)
				require.NoError(t, err, p)
				assert.Equal(t, refs[p], e.Ref)
				assert.Equal(t, p, e.Metadata["Filename"])

				r, err := fs.Get(ctx, e.Ref)
				require.NoError(t, err)
				read, err := io.ReadAll(r)
				require.NoError(t, err)
				require.NoError(t, r.Close())
				assert.Equal(t, data, read)
			}

			_, err = fs.ManifestLookup(ctx, manifest, "img/3.png")
			assert.True(t, errors.Is(err, mantaray.ErrNotFound))
			_, err = fs.ManifestLookup(ctx, manifest, "img/")
			assert.True(t, errors.Is(err, mantaray.ErrNotFound))

			listed, err := fs.ManifestList(ctx, manifest, "img")
			require.NoError(t, err)
			require.Len(t, listed, 2)
			assert.Equal(t, "img/1.png", listed[0].Path)
			assert.Equal(t, "img/2.png", listed[1].Path)

			all, err := fs.ManifestList(ctx, manifest, "")
			require.NoError(t, err)
			assert.Len(t, all, len(files))

			updated, err := fs.ManifestRemove(ctx, manifest, "img/1.png")
			require.NoError(t, err)
			_, err = fs.ManifestLookup(ctx, updated, "img/1.png")
			assert.True(t, errors.Is(err, mantaray.ErrNotFound))

			// the previous version is untouched
			e, err := fs.ManifestLookup(ctx, manifest, "img/1.png")
			require.NoError(t, err)
			assert.Equal(t, refs["img/1.png"], e.Ref)

			_, err = fs.ManifestRemove(ctx, updated, "img/1.png")
			assert.True(t, errors.Is(err, mantaray.ErrNotFound))

			// the manifest and all its files are traversed
			has, missing, err := fs.Has(ctx, updated, HasGatherIncomplete())
			require.NoError(t, err)
			assert.True(t, has)
			assert.Empty(t, missing)
		})
	}
}

func TestManifestInvalidEntries(t *testing.T) {
	ctx := context.Background()
	fs, _ := testFs(t)

	_, err := fs.ManifestAdd(ctx, nil, ManifestEntry{Path: "a", Ref: swarm.Reference{1, 2, 3}})
	assert.True(t, errors.Is(err, swarm.ErrInvalidReference))

	_, err = fs.ManifestLookup(ctx, nil, "a")
	assert.Error(t, err)

	for i := 0; i < 3; i++ {
		_, err = fs.ManifestAdd(ctx, nil, ManifestEntry{Path: fmt.Sprintf("file-%d", i), Ref: rand.Bytes(swarm.HashSize)})
		require.NoError(t, err)
	}
}
