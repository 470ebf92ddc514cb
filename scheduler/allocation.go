package scheduler

import (
	"fmt"

	"github.com/vkngwrapper/tensorplan/ir"
	"github.com/vkngwrapper/tensorplan/memutils"
)

// MemoryAllocation is the placement of a single tensor: the region it lives in and the byte range it
// occupies there. It is created once when the tensor is first allocated and never changes afterward.
type MemoryAllocation struct {
	MemoryType ir.MemoryType
	Start      int
	Size       int
}

// End returns the offset of the first byte after this allocation
func (a MemoryAllocation) End() int {
	return a.Start + a.Size
}

// Overlaps reports whether both allocations live in the same memory region and share at least
// one byte
func (a MemoryAllocation) Overlaps(other MemoryAllocation) bool {
	if a.MemoryType != other.MemoryType {
		return false
	}

	return memutils.RangesOverlap(a.Start, a.Size, other.Start, other.Size)
}

func (a MemoryAllocation) String() string {
	return fmt.Sprintf("%s[%#x, %#x)", a.MemoryType, a.Start, a.End())
}

// ConnectorAllocation pairs an output connector with its placement
type ConnectorAllocation struct {
	Connector  *ir.OutputConnector
	Allocation MemoryAllocation
}
