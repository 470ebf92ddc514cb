package scheduler

import "github.com/vkngwrapper/tensorplan/ir"

// BufferHandle is a reference-counted reservation of a byte range inside one memory region. The range
// becomes reusable by later Allocate calls on the same MemoryAllocator once every holder has
// called Release.
type BufferHandle interface {
	// AddRef registers one more holder of the buffer
	AddRef()
	// Release drops one holder of the buffer. Releasing a buffer with no holders left is an error.
	Release() error
	// RefCount returns the number of holders the buffer currently has
	RefCount() int
	// SafeStart returns the byte offset of the buffer within its region
	SafeStart() int
}

// MemoryAllocator hands out byte ranges within a single memory region. One MemoryAllocator serves
// each ir.MemoryType that appears in a graph.
type MemoryAllocator interface {
	// SizeFor returns the number of bytes a tensor with the provided element type and shape
	// occupies in this region, including any padding the region requires
	SizeFor(dataType ir.DataType, shape ir.Shape) int
	// Allocate reserves size bytes and returns a handle to them with a reference count of 1
	Allocate(size int) (BufferHandle, error)
}
