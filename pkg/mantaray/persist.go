package mantaray

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/oneconcern/swarmtrie/pkg/bmt"
	"github.com/oneconcern/swarmtrie/pkg/pipeline"
	"github.com/oneconcern/swarmtrie/pkg/postage"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
)

type saveOptions struct {
	compactLevel int
	stamps       postage.StampStore
	addressOf    func(context.Context, []byte) (swarm.Address, error)
}

// SaveOption configures how nodes are saved
type SaveOption func(*saveOptions)

// WithCompaction searches up to level obfuscation keys for every saved node, to keep
// postage buckets balanced
func WithCompaction(level int, stamps postage.StampStore) SaveOption {
	return func(o *saveOptions) {
		o.compactLevel = level
		o.stamps = stamps
	}
}

// WithAddressFunc sets how the address of a serialized node is computed during compaction
func WithAddressFunc(fn func(context.Context, []byte) (swarm.Address, error)) SaveOption {
	return func(o *saveOptions) {
		o.addressOf = fn
	}
}

// AddressPredictor is implemented by savers which know the address of some data before saving it.
//
// AddressFunc returns nil when addresses are unpredictable, e.g. with encryption.
// Compaction is then skipped.
type AddressPredictor interface {
	AddressFunc() func(context.Context, []byte) (swarm.Address, error)
}

// Save the unsaved nodes of the trie, children first. Saved nodes become immutable.
//
// Compaction computes node addresses like the saver does when it is an AddressPredictor,
// and as plain content otherwise.
func (n *Node) Save(ctx context.Context, s Saver, opts ...SaveOption) error {
	o := &saveOptions{}
	for _, apply := range opts {
		apply(o)
	}
	if o.addressOf == nil {
		o.addressOf = pipeline.AddressOf
		if p, ok := s.(AddressPredictor); ok {
			o.addressOf = p.AddressFunc()
		}
	}
	return n.save(ctx, s, o)
}

func (n *Node) save(ctx context.Context, s Saver, o *saveOptions) error {
	if n.ref != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, k := range n.sortedForkKeys() {
		if err := n.forks[k].node.save(ctx, s, o); err != nil {
			return err
		}
	}

	if o.compactLevel > 0 && o.stamps != nil && o.addressOf != nil {
		key, err := n.compact(ctx, o)
		if err != nil {
			return err
		}
		n.obfuscationKey = key
	}

	data, err := n.MarshalBinary()
	if err != nil {
		return err
	}
	ref, err := s.Save(ctx, data)
	if err != nil {
		return err
	}
	n.ref = ref
	return nil
}

// compact picks the obfuscation key which address lands in the least used postage bucket.
//
// Candidate keys hash the plain node address with a counter in its last two bytes. A key is
// accepted at once when its address is already stamped, or lands in a least used bucket.
func (n *Node) compact(ctx context.Context, o *saveOptions) ([]byte, error) {
	n.obfuscationKey = nil
	plain, err := n.MarshalBinary()
	if err != nil {
		return nil, err
	}
	plainAddr, err := o.addressOf(ctx, plain)
	if err != nil {
		return nil, err
	}

	seed := plainAddr.Bytes()
	best, bestCollisions := []byte(nil), math.MaxInt
	for i := 0; i < o.compactLevel && i <= math.MaxUint16; i++ {
		binary.BigEndian.PutUint16(seed[len(seed)-2:], uint16(i))
		key := bmt.Keccak256(seed)

		n.obfuscationKey = key
		data, err := n.MarshalBinary()
		if err != nil {
			return nil, err
		}
		addr, err := o.addressOf(ctx, data)
		if err != nil {
			return nil, err
		}

		if o.stamps.Has(addr) {
			return key, nil
		}
		collisions := o.stamps.Collisions(addr)
		if collisions == o.stamps.MinCollisions() {
			return key, nil
		}
		if collisions < bestCollisions {
			best, bestCollisions = key, collisions
		}
	}
	return best, nil
}
