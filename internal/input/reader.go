// Package input owns whole-stream acquisition of the request document.
package input

import (
	"errors"
	"io"
	"sync"

	"github.com/danmuck/exireq/internal/fault"
	"github.com/rs/zerolog/log"
)

const (
	DefaultInitialSize = 4096
	DefaultMaxSize     = 8 * 1024 * 1024

	// buffers above this capacity are dropped instead of pooled
	maxPooledCap = 1 << 20
)

// Limits bounds input buffer growth.
type Limits struct {
	InitialSize int
	MaxSize     int
}

func DefaultLimits() Limits {
	return Limits{
		InitialSize: DefaultInitialSize,
		MaxSize:     DefaultMaxSize,
	}
}

// Buffer is an owned copy of the whole input stream. The byte after the
// content is always zero.
type Buffer struct {
	data     []byte
	n        int
	released bool
}

// slabs recycles backing arrays between runs of the same process.
var slabs sync.Pool

// ReadAll reads r to EOF into a pooled buffer. Capacity starts at
// limits.InitialSize and doubles whenever headroom runs out. Reads past
// limits.MaxSize fail with an AllocationError; reader failures are IOErrors.
// The caller owns the buffer and must Release it.
func ReadAll(r io.Reader, limits Limits) (*Buffer, error) {
	if limits.InitialSize <= 0 {
		limits.InitialSize = DefaultInitialSize
	}
	if limits.MaxSize > 0 && limits.InitialSize > limits.MaxSize+1 {
		limits.InitialSize = limits.MaxSize + 1
	}

	buf := &Buffer{data: takeSlab(limits.InitialSize)}

	for {
		if buf.n+1 >= len(buf.data) && !buf.grow(limits.MaxSize) {
			more, err := hasMore(r)
			if err != nil {
				buf.Release()
				return nil, fault.Wrap(fault.KindIO, "", "read input", err)
			}
			if more {
				buf.Release()
				return nil, fault.Newf(fault.KindAllocation, "", "input exceeds %d bytes", limits.MaxSize)
			}
			break
		}
		m, err := r.Read(buf.data[buf.n : len(buf.data)-1])
		buf.n += m
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			buf.Release()
			return nil, fault.Wrap(fault.KindIO, "", "read input", err)
		}
	}
	buf.data[buf.n] = 0
	log.Debug().Msgf("input.ReadAll bytes=%d capacity=%d", buf.n, len(buf.data))
	return buf, nil
}

func hasMore(r io.Reader) (bool, error) {
	var probe [1]byte
	_, err := io.ReadFull(r, probe[:])
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func takeSlab(size int) []byte {
	if p, ok := slabs.Get().(*[]byte); ok && cap(*p) >= size {
		return (*p)[:size]
	}
	return make([]byte, size)
}

func (b *Buffer) grow(max int) bool {
	next := len(b.data) * 2
	if max > 0 && next > max+1 {
		next = max + 1
	}
	if next <= len(b.data) {
		return false
	}
	data := make([]byte, next)
	copy(data, b.data[:b.n])
	b.data = data
	return true
}

// Bytes returns the content without the trailing zero.
func (b *Buffer) Bytes() []byte {
	if b == nil || b.released {
		return nil
	}
	return b.data[:b.n]
}

func (b *Buffer) Text() string {
	return string(b.Bytes())
}

func (b *Buffer) Len() int {
	if b == nil || b.released {
		return 0
	}
	return b.n
}

// Cap is the current capacity including the terminator byte.
func (b *Buffer) Cap() int {
	if b == nil || b.released {
		return 0
	}
	return len(b.data)
}

// Release hands the backing array back to the pool. Calling it more than
// once is a no-op.
func (b *Buffer) Release() {
	if b == nil || b.released {
		return
	}
	b.released = true
	data := b.data
	clear(data[:b.n+1])
	b.data = nil
	b.n = 0
	if cap(data) > maxPooledCap {
		return
	}
	slabs.Put(&data)
}
