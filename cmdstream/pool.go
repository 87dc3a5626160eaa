package cmdstream

import (
	"sync"
	"sync/atomic"
)

// Allocator creates and deletes streams.
type Allocator interface {
	NewStream(label string, capacity int) (*Stream, error)
	DeleteStream(s *Stream)
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithMaxStreams limits the number of live streams. Zero means unlimited.
func WithMaxStreams(n int) PoolOption {
	return func(p *Pool) {
		p.maxLive = int64(n)
	}
}

// Pool is an Allocator that recycles stream buffers of one capacity through
// a sync.Pool so their allocations persist across batches.
type Pool struct {
	capacity int
	maxLive  int64
	live     atomic.Int64
	buffers  sync.Pool
}

// NewPool returns a pool recycling buffers of capacity words.
func NewPool(capacity int, opts ...PoolOption) *Pool {
	p := &Pool{capacity: capacity}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewStream returns an empty stream of capacity words. Buffers of the pool
// capacity are reused; other sizes are allocated fresh.
func (p *Pool) NewStream(label string, capacity int) (*Stream, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	if n := p.live.Add(1); p.maxLive > 0 && n > p.maxLive {
		p.live.Add(-1)
		return nil, ErrExhausted
	}
	var buf []uint32
	if capacity == p.capacity {
		if v, ok := p.buffers.Get().(*[]uint32); ok {
			buf = (*v)[:0]
		}
	}
	if buf == nil {
		buf = make([]uint32, 0, capacity)
	}
	return &Stream{label: label, buf: buf}, nil
}

// DeleteStream returns s to the pool. Deleting a stream twice is a no-op.
// Children are not deleted; their owner deletes them first.
func (p *Pool) DeleteStream(s *Stream) {
	if s == nil || s.freed {
		return
	}
	s.freed = true
	if cap(s.buf) == p.capacity {
		b := s.buf[:0]
		p.buffers.Put(&b)
	}
	s.buf = nil
	s.children = nil
	p.live.Add(-1)
}

// Live returns the number of streams created and not yet deleted.
func (p *Pool) Live() int {
	return int(p.live.Load())
}
