package memory

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/tensorplan/ir"
	"github.com/vkngwrapper/tensorplan/memutils/metadata"
	"github.com/vkngwrapper/tensorplan/scheduler"
)

// Buffer is a byte range reserved within an Allocator's region. Its range is returned to the region
// when its reference count drops to zero.
type Buffer struct {
	allocator *Allocator
	handle    metadata.BlockAllocationHandle
	offset    int
	size      int
	refCount  int
}

var _ scheduler.BufferHandle = &Buffer{}

func (b *Buffer) MemoryType() ir.MemoryType { return b.allocator.memoryType }
func (b *Buffer) Offset() int               { return b.offset }
func (b *Buffer) Size() int                 { return b.size }

// SafeStart returns the offset of the buffer within its region. Buffers never move, so the offset
// is final as soon as the buffer is allocated.
func (b *Buffer) SafeStart() int {
	return b.offset
}

func (b *Buffer) AddRef() {
	b.allocator.mutex.Lock()
	defer b.allocator.mutex.Unlock()

	b.refCount++
}

func (b *Buffer) RefCount() int {
	b.allocator.mutex.RLock()
	defer b.allocator.mutex.RUnlock()

	return b.refCount
}

// Release drops one reference to the buffer and frees its range once no references remain
func (b *Buffer) Release() error {
	b.allocator.mutex.Lock()
	defer b.allocator.mutex.Unlock()

	if b.refCount < 1 {
		return errors.Newf("buffer at offset %d in %s has already been released", b.offset, b.allocator.memoryType)
	}

	b.refCount--
	if b.refCount > 0 {
		return nil
	}

	return b.allocator.free(b)
}
