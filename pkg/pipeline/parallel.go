package pipeline

import (
	"sync"
)

// DefaultConcurrency bounds the number of leaf chunks processed in parallel
const DefaultConcurrency = 100

// parallelWriter processes leaf chunks concurrently, bounded by a semaphore
type parallelWriter struct {
	leaf          ChainWriter
	next          ChainWriter
	maxGoRoutines chan struct{}
	wg            sync.WaitGroup

	mu  sync.Mutex
	err error
}

// newParallelWriter runs leaf.ChainWrite concurrently. next is summed once all leaves are processed.
func newParallelWriter(concurrency int, leaf, next ChainWriter) ChainWriter {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &parallelWriter{
		leaf:          leaf,
		next:          next,
		maxGoRoutines: make(chan struct{}, concurrency),
	}
}

func (w *parallelWriter) ChainWrite(p *PipeWriteArgs) error {
	if err := w.failed(); err != nil {
		return err
	}

	w.wg.Add(1)
	w.maxGoRoutines <- struct{}{}
	go func() {
		defer func() {
			<-w.maxGoRoutines
			w.wg.Done()
		}()

		if err := w.leaf.ChainWrite(p); err != nil {
			w.mu.Lock()
			if w.err == nil {
				w.err = err
			}
			w.mu.Unlock()
		}
	}()
	return nil
}

func (w *parallelWriter) failed() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *parallelWriter) Sum() ([]byte, error) {
	w.wg.Wait()
	if err := w.failed(); err != nil {
		return nil, err
	}
	return w.next.Sum()
}

// resequencer delivers chunks to the next writer in sequence order.
//
// Only the longest contiguous run of pending chunks starting at the expected
// sequence number is drained.
type resequencer struct {
	next ChainWriter

	mu       sync.Mutex
	expected uint64
	pending  map[uint64]*PipeWriteArgs
}

func newResequencer(next ChainWriter) ChainWriter {
	return &resequencer{
		next:    next,
		pending: make(map[uint64]*PipeWriteArgs),
	}
}

func (r *resequencer) ChainWrite(p *PipeWriteArgs) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending[p.seq] = p
	for {
		args, ok := r.pending[r.expected]
		if !ok {
			return nil
		}
		delete(r.pending, r.expected)
		r.expected++

		if err := r.next.ChainWrite(args); err != nil {
			return err
		}
	}
}

func (r *resequencer) Sum() ([]byte, error) {
	r.mu.Lock()
	pending := len(r.pending)
	r.mu.Unlock()

	if pending > 0 {
		return nil, ErrInconsistentRefs.WrapMessage("%d chunks out of sequence", pending)
	}
	return r.next.Sum()
}
