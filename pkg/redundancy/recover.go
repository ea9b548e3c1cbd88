package redundancy

import (
	"context"

	"github.com/klauspost/reedsolomon"
	"github.com/oneconcern/swarmtrie/pkg/bmt"
	"github.com/oneconcern/swarmtrie/pkg/chunkstore"
	"github.com/oneconcern/swarmtrie/pkg/chunkstore/status"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
)

// reconstruct rebuilds the missing data shards of buf in place.
//
// Present shards are padded to the full chunk size, missing ones are nil.
// It returns the recovered, trimmed chunks.
func reconstruct(buf [][]byte, addrs []swarm.Address, shardCnt, parityCnt int, encrypted bool) ([]*swarm.Chunk, error) {
	missing := make([]int, 0, shardCnt)
	present := 0
	for i, shard := range buf {
		if shard != nil {
			present++
			continue
		}
		if i < shardCnt {
			missing = append(missing, i)
		}
	}
	if present < shardCnt {
		return nil, ErrNotEnoughShards.WrapMessage("%d shards available, %d required", present, shardCnt)
	}
	if len(missing) == 0 {
		return nil, nil
	}

	enc, err := reedsolomon.New(shardCnt, parityCnt)
	if err != nil {
		return nil, err
	}
	if err = enc.ReconstructData(buf); err != nil {
		return nil, ErrNotEnoughShards.Wrap(err)
	}

	recovered := make([]*swarm.Chunk, 0, len(missing))
	for _, i := range missing {
		data := TrimChunkData(buf[i], encrypted)
		addr, err := bmt.Sum(data[:swarm.SpanSize], data[swarm.SpanSize:])
		if err != nil {
			return nil, err
		}
		if addr != addrs[i] {
			return nil, status.ErrMalformedChunk.WrapMessage("recovered shard %d does not match %s", i, addrs[i])
		}
		recovered = append(recovered, swarm.NewChunk(addr, data))
	}
	return recovered, nil
}

func persist(ctx context.Context, putter chunkstore.Putter, chunks []*swarm.Chunk) error {
	if putter == nil {
		return nil
	}
	for _, ch := range chunks {
		if err := putter.Put(ctx, ch); err != nil {
			return err
		}
	}
	return nil
}

// missingShards lists the distinct addresses of the empty slots in buf[:upto],
// along with the number of empty slots. A group may reference the same chunk
// more than once, so there may be fewer addresses than slots.
func missingShards(buf [][]byte, addrs []swarm.Address, upto int) ([]swarm.Address, int) {
	var (
		missing []swarm.Address
		empty   int
	)
	seen := make(map[swarm.Address]struct{}, upto)
	for i := 0; i < upto; i++ {
		if buf[i] != nil {
			continue
		}
		empty++
		if _, ok := seen[addrs[i]]; ok {
			continue
		}
		seen[addrs[i]] = struct{}{}
		missing = append(missing, addrs[i])
	}
	return missing, empty
}

// fillShards copies retrieved chunks into every empty slot referencing them
func fillShards(buf [][]byte, addrs []swarm.Address, found map[swarm.Address]*swarm.Chunk) {
	for i, addr := range addrs {
		if buf[i] != nil {
			continue
		}
		if ch, ok := found[addr]; ok {
			buf[i] = padShard(ch.Data())
		}
	}
}

func availableShards(buf [][]byte, upto int) int {
	n := 0
	for i := 0; i < upto; i++ {
		if buf[i] != nil {
			n++
		}
	}
	return n
}

// raceOptions stops a race over distinct addresses as soon as need more slots
// are certainly filled, or certainly cannot be.
//
// Every address fills at least one slot, so need successes are always enough.
// Early failure is only decidable when every address fills exactly one slot.
func raceOptions(need, empty, distinct int) []chunkstore.GetManyOption {
	succeed := need
	if succeed > distinct {
		succeed = distinct
	}
	opts := []chunkstore.GetManyOption{chunkstore.ReturnAfterSucceeded(succeed)}
	if empty == distinct {
		opts = append(opts, chunkstore.ReturnAfterFailed(distinct-need+1))
	}
	return opts
}
