// Package replicas disperses copies of root chunks.
//
// The root chunk of a redundant trie carries no parities of its own: it is
// instead stored 2^level times, as single-owner chunks with a well-known owner.
// Replica identifiers are derived from the root address, and selected so that
// replica addresses spread over distinct prefixes of the address space.
package replicas

import (
	"sync"

	"github.com/oneconcern/swarmtrie/pkg/bmt"
	"github.com/oneconcern/swarmtrie/pkg/redundancy"
	"github.com/oneconcern/swarmtrie/pkg/soc"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
)

const ownerSeed = "swarmtrie replicas"

var (
	signerOnce  sync.Once
	replicaSig  soc.Signer
	replicaAddr []byte
)

// Signer is the well-known owner of all replicas
func Signer() soc.Signer {
	signerOnce.Do(func() {
		s, err := soc.NewSignerFromSeed(bmt.Keccak256([]byte(ownerSeed)))
		if err != nil {
			panic(err)
		}
		owner, err := s.PublicAddress()
		if err != nil {
			panic(err)
		}
		replicaSig, replicaAddr = s, owner
	})
	return replicaSig
}

// Owner is the account of the replica signer
func Owner() []byte {
	_ = Signer()
	return replicaAddr
}

// Header identifies a replica
type Header struct {
	ID      []byte
	Address swarm.Address
}

// GenerateReplicaHeaders returns the identifiers and addresses of the replicas of a root chunk.
//
// Candidates set the first byte of the root address to 0..255. For 2^d replicas, the first
// candidate for every distinct d-bit address prefix is kept. Headers are ordered by bit-reversed
// prefix: for any k <= d, the first 2^k replicas fall into distinct k-bit prefixes.
func GenerateReplicaHeaders(addr swarm.Address, level redundancy.Level) []Header {
	return generate(addr, level, Owner())
}

func generate(addr swarm.Address, level redundancy.Level, owner []byte) []Header {
	count := level.GetReplicaCount()
	if count == 0 {
		return nil
	}
	depth := uint(level)

	slots := make([]*Header, count)
	found := 0
	for i := 0; i < 256 && found < count; i++ {
		id := make([]byte, soc.IDSize)
		copy(id, addr[:])
		id[0] = uint8(i)

		a, err := soc.CreateAddress(id, owner)
		if err != nil {
			continue
		}
		slot := reverse(a[0]>>(8-depth), depth)
		if slots[slot] != nil {
			continue
		}
		slots[slot] = &Header{ID: id, Address: a}
		found++
	}

	headers := make([]Header, 0, found)
	for _, h := range slots {
		if h != nil {
			headers = append(headers, *h)
		}
	}
	return headers
}

func reverse(b uint8, bits uint) int {
	var r uint8
	for i := uint(0); i < bits; i++ {
		r = r<<1 | (b & 1)
		b >>= 1
	}
	return int(r)
}
