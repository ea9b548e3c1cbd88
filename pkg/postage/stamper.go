package postage

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/oneconcern/swarmtrie/pkg/soc"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
)

const (
	// DefaultDepth is the depth of batches created by default
	DefaultDepth = 24
	// DefaultBucketDepth is the bucket depth of batches created by default
	DefaultBucketDepth = 16
)

// ErrInvalidDepth is returned when the bucket depth exceeds the batch depth
var ErrInvalidDepth = errors.New("invalid batch depth")

// Stamper stamps chunks
type Stamper interface {
	Stamp(swarm.Address) (*Stamp, error)
}

// StampStore tells about already stamped chunks
type StampStore interface {
	Stamper
	Has(swarm.Address) bool
	Collisions(swarm.Address) int
	MinCollisions() int
}

var _ StampStore = &BatchStamper{}

// BatchStamper stamps chunks against an in-process batch
type BatchStamper struct {
	batchID     []byte
	depth       uint8
	bucketDepth uint8
	signer      soc.Signer
	now         func() time.Time

	mu      sync.Mutex
	buckets []uint32
	stamps  map[swarm.Address]*Stamp
}

// NewBatchStamper builds a stamper for a batch of 2^depth chunks over 2^bucketDepth buckets
func NewBatchStamper(batchID []byte, depth, bucketDepth uint8, signer soc.Signer) (*BatchStamper, error) {
	if bucketDepth > depth || bucketDepth > 32 {
		return nil, ErrInvalidDepth.WrapMessage("bucket depth %d, depth %d", bucketDepth, depth)
	}
	return &BatchStamper{
		batchID:     pad(batchID, BatchIDSize),
		depth:       depth,
		bucketDepth: bucketDepth,
		signer:      signer,
		now:         time.Now,
		buckets:     make([]uint32, 1<<bucketDepth),
		stamps:      make(map[swarm.Address]*Stamp),
	}, nil
}

// BucketUpperBound is the capacity of every bucket
func (b *BatchStamper) BucketUpperBound() uint32 {
	return 1 << (b.depth - b.bucketDepth)
}

func (b *BatchStamper) bucket(addr swarm.Address) uint32 {
	if b.bucketDepth == 0 {
		return 0
	}
	return binary.BigEndian.Uint32(addr[:4]) >> (32 - b.bucketDepth)
}

// Stamp a chunk. Stamping the same chunk again returns the same stamp.
func (b *BatchStamper) Stamp(addr swarm.Address) (*Stamp, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.stamps[addr]; ok {
		return s, nil
	}

	bucket := b.bucket(addr)
	position := b.buckets[bucket]
	if position >= b.BucketUpperBound() {
		return nil, ErrBucketFull.WrapMessage("bucket %d", bucket)
	}

	index := make([]byte, IndexSize)
	binary.BigEndian.PutUint32(index[:4], bucket)
	binary.BigEndian.PutUint32(index[4:], position)
	timestamp := make([]byte, TimestampSize)
	binary.BigEndian.PutUint64(timestamp, uint64(b.now().UnixNano()))

	sig, err := b.signer.Sign(digest(addr, b.batchID, index, timestamp))
	if err != nil {
		return nil, err
	}

	s := NewStamp(b.batchID, index, timestamp, sig)
	b.buckets[bucket]++
	b.stamps[addr] = s

	return s, nil
}

// Has tells if a chunk is already stamped
func (b *BatchStamper) Has(addr swarm.Address) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.stamps[addr]
	return ok
}

// Collisions returns the number of chunks stamped in the bucket of some address
func (b *BatchStamper) Collisions(addr swarm.Address) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int(b.buckets[b.bucket(addr)])
}

// MinCollisions returns the number of chunks stamped in the least used bucket
func (b *BatchStamper) MinCollisions() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	minimum := uint32(math.MaxUint32)
	for _, c := range b.buckets {
		if c < minimum {
			minimum = c
		}
	}
	return int(minimum)
}

// NoopStamper does not stamp chunks
type NoopStamper struct{}

// Stamp returns no stamp
func (NoopStamper) Stamp(swarm.Address) (*Stamp, error) {
	return nil, nil
}
