package postage

import (
	"testing"

	"github.com/oneconcern/swarmtrie/internal/rand"
	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/oneconcern/swarmtrie/pkg/soc"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStamper(t testing.TB, depth, bucketDepth uint8) (*BatchStamper, []byte) {
	signer, err := soc.GenerateSigner()
	require.NoError(t, err)
	owner, err := signer.PublicAddress()
	require.NoError(t, err)

	stamper, err := NewBatchStamper(rand.Bytes(BatchIDSize), depth, bucketDepth, signer)
	require.NoError(t, err)
	return stamper, owner
}

func TestStampRoundTrip(t *testing.T) {
	stamper, owner := testStamper(t, 8, 2)
	addr := swarm.MustNewAddress(rand.Bytes(swarm.HashSize))

	stamp, err := stamper.Stamp(addr)
	require.NoError(t, err)

	buf, err := stamp.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, buf, StampSize)

	var decoded Stamp
	require.NoError(t, decoded.UnmarshalBinary(buf))
	assert.Equal(t, stamp.BatchID(), decoded.BatchID())
	assert.Equal(t, stamp.Index(), decoded.Index())
	assert.Equal(t, stamp.Timestamp(), decoded.Timestamp())

	signer, err := decoded.RecoverOwner(addr)
	require.NoError(t, err)
	assert.Equal(t, owner, signer)

	assert.True(t, errors.Is(decoded.UnmarshalBinary(buf[:10]), ErrInvalidStamp))
}

func TestBucketFull(t *testing.T) {
	// 4 buckets of 2 slots
	stamper, _ := testStamper(t, 3, 2)
	assert.Equal(t, uint32(2), stamper.BucketUpperBound())

	addr := func(first byte) swarm.Address {
		a := swarm.MustNewAddress(rand.Bytes(swarm.HashSize))
		a[0] = first
		return a
	}

	first := addr(0x01)
	s1, err := stamper.Stamp(first)
	require.NoError(t, err)
	bucket, position := s1.Bucket()
	assert.Equal(t, uint32(0), bucket)
	assert.Equal(t, uint32(0), position)

	// re-stamping is idempotent
	again, err := stamper.Stamp(first)
	require.NoError(t, err)
	assert.Equal(t, s1, again)
	assert.True(t, stamper.Has(first))
	assert.Equal(t, 1, stamper.Collisions(first))

	_, err = stamper.Stamp(addr(0x02))
	require.NoError(t, err)
	assert.Equal(t, 2, stamper.Collisions(first))

	_, err = stamper.Stamp(addr(0x03))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBucketFull))

	// other buckets remain available
	s, err := stamper.Stamp(addr(0xc0))
	require.NoError(t, err)
	bucket, _ = s.Bucket()
	assert.Equal(t, uint32(3), bucket)

	assert.Equal(t, 0, stamper.MinCollisions())
	assert.False(t, stamper.Has(addr(0x40)))
}

func TestInvalidDepth(t *testing.T) {
	_, err := NewBatchStamper(nil, 2, 4, nil)
	assert.True(t, errors.Is(err, ErrInvalidDepth))

	s, err := NoopStamper{}.Stamp(swarm.ZeroAddress)
	assert.NoError(t, err)
	assert.Nil(t, s)
}
