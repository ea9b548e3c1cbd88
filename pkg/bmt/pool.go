package bmt

import (
	"sync"

	"github.com/oneconcern/swarmtrie/pkg/swarm"
)

// DefaultPoolCapacity bounds the number of hashers in use at the same time
const DefaultPoolCapacity = 32

// Pool is a bounded pool of hashers.
//
// Get blocks whenever capacity hashers are checked out. Every hasher obtained
// with Get must be given back exactly once with Put.
type Pool struct {
	list []*Hasher
	mu   sync.Mutex
	sem  chan struct{}
}

// NewPool builds a pool of hashers with some capacity
func NewPool(capacity int) *Pool {
	if capacity < 1 {
		capacity = 1
	}
	return &Pool{
		list: make([]*Hasher, 0, capacity),
		sem:  make(chan struct{}, capacity),
	}
}

// Get a hasher from the pool
func (p *Pool) Get() *Hasher {
	p.sem <- struct{}{}

	var h *Hasher
	p.mu.Lock()
	if l := len(p.list); l != 0 {
		h = p.list[l-1]
		p.list = p.list[:l-1]
	}
	p.mu.Unlock()

	if h == nil {
		h = NewHasher()
	}
	h.Reset()
	return h
}

// Put a hasher back to the pool
func (p *Pool) Put(h *Hasher) {
	p.mu.Lock()
	p.list = append(p.list, h)
	p.mu.Unlock()
	<-p.sem
}

// Capacity of the pool
func (p *Pool) Capacity() int {
	return cap(p.sem)
}

// Sum hashes a chunk with a pooled hasher
func (p *Pool) Sum(span, payload []byte) (swarm.Address, error) {
	h := p.Get()
	defer p.Put(h)
	return h.Hash(span, payload)
}

var (
	defaultPool     *Pool
	defaultPoolOnce sync.Once
)

// DefaultPool returns the pool shared by default by the pipeline and the chunk verifiers
func DefaultPool() *Pool {
	defaultPoolOnce.Do(func() {
		defaultPool = NewPool(DefaultPoolCapacity)
	})
	return defaultPool
}

// Sum computes a chunk address with the default pool
func Sum(span, payload []byte) (swarm.Address, error) {
	return DefaultPool().Sum(span, payload)
}
