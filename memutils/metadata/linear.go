package metadata

import (
	"sort"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"
	"github.com/vkngwrapper/tensorplan/memutils"
)

// LinearBlockMetadata is a BlockMetadata implementation that represents a simple
// stack memory arena.
//
// Allocations are always applied to the top of the stack. Freeing an allocation only makes
// its space available again once every allocation above it has also been freed, so regions that
// are never freed (constants, for instance) are packed back to back without any bookkeeping overhead.
type LinearBlockMetadata struct {
	BlockMetadataBase

	sumFreeSize    int
	suballocations []Suballocation

	// Number of items in the stack that have been freed but are still buried under live items
	nullItemsCount int
}

var _ BlockMetadata = &LinearBlockMetadata{}

// NewLinearBlockMetadata creates a new, uninitialized LinearBlockMetadata
func NewLinearBlockMetadata() *LinearBlockMetadata {
	return &LinearBlockMetadata{
		suballocations: []Suballocation{},
	}
}

// Init prepares this structure for allocations and sizes the block in bytes based on the parameter size.
func (m *LinearBlockMetadata) Init(size int) {
	m.BlockMetadataBase.Init(size)
	m.sumFreeSize = size
}

// SumFreeSize returns the number of free bytes of memory in the block.
func (m *LinearBlockMetadata) SumFreeSize() int {
	return m.sumFreeSize
}

// AllocationCount returns the number of live suballocations
func (m *LinearBlockMetadata) AllocationCount() int {
	return len(m.suballocations) - m.nullItemsCount
}

// IsEmpty will return true if this block has no live suballocations
func (m *LinearBlockMetadata) IsEmpty() bool {
	return m.AllocationCount() == 0
}

// FreeRegionsCount returns the number of unique regions of free memory in the block
func (m *LinearBlockMetadata) FreeRegionsCount() int {
	count := 0
	m.visitRegions(func(offset, size int, item *Suballocation) {
		if item == nil {
			count++
		}
	})
	return count
}

func (m *LinearBlockMetadata) stackTop() int {
	if len(m.suballocations) == 0 {
		return 0
	}

	last := m.suballocations[len(m.suballocations)-1]
	return last.Offset + last.Size
}

// visitRegions calls visit for each live suballocation and each maximal free range, in offset order.
// Free ranges are reported with a nil item.
func (m *LinearBlockMetadata) visitRegions(visit func(offset, size int, item *Suballocation)) {
	freeStart := 0
	for i := range m.suballocations {
		item := &m.suballocations[i]
		if item.Free {
			continue
		}

		if item.Offset > freeStart {
			visit(freeStart, item.Offset-freeStart, nil)
		}

		visit(item.Offset, item.Size, item)
		freeStart = item.Offset + item.Size
	}

	if m.size > freeStart {
		visit(freeStart, m.size-freeStart, nil)
	}
}

// Validate performs internal consistency checks on the metadata
func (m *LinearBlockMetadata) Validate() error {
	if len(m.suballocations) > 0 && m.suballocations[len(m.suballocations)-1].Free {
		return errors.New("the top of the stack is a freed suballocation")
	}

	nextOffset := 0
	nullItems := 0
	usedSize := 0
	for _, item := range m.suballocations {
		if item.Offset < nextOffset {
			return errors.Errorf("suballocation at offset %d overlaps the previous suballocation", item.Offset)
		}
		if item.Size < 1 {
			return errors.Errorf("suballocation at offset %d has invalid size %d", item.Offset, item.Size)
		}

		if item.Free {
			nullItems++
		} else {
			usedSize += item.Size
		}

		nextOffset = item.Offset + item.Size
	}

	if nextOffset > m.size {
		return errors.Errorf("suballocations end at offset %d, beyond the block size %d", nextOffset, m.size)
	}

	if nullItems != m.nullItemsCount {
		return errors.Errorf("the metadata believes there are %d freed items, but there are %d", m.nullItemsCount, nullItems)
	}

	if m.size-usedSize != m.sumFreeSize {
		return errors.Errorf("the free size of the metadata is %d, but the live suballocations leave %d bytes free", m.sumFreeSize, m.size-usedSize)
	}

	return nil
}

// AddDetailedStatistics sums this block's allocation statistics into the provided stats object
func (m *LinearBlockMetadata) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.BlockCount++
	stats.BlockBytes += m.size

	m.visitRegions(func(offset, size int, item *Suballocation) {
		if item == nil {
			stats.AddUnusedRange(size)
		} else {
			stats.AddAllocation(size)
		}
	})
}

// AddStatistics sums this block's allocation statistics into the provided stats object
func (m *LinearBlockMetadata) AddStatistics(stats *memutils.Statistics) {
	stats.BlockCount++
	stats.AllocationCount += m.AllocationCount()
	stats.BlockBytes += m.size
	stats.AllocationBytes += m.size - m.sumFreeSize
}

// VisitAllRegions calls the provided callback for each allocation and free region in offset order
func (m *LinearBlockMetadata) VisitAllRegions(handleBlock func(handle BlockAllocationHandle, offset int, size int, userData any, free bool) error) error {
	var err error
	m.visitRegions(func(offset, size int, item *Suballocation) {
		if err != nil {
			return
		}

		if item == nil {
			err = handleBlock(NoAllocation, offset, size, nil, true)
			return
		}

		err = handleBlock(BlockAllocationHandle(offset+1), offset, size, item.UserData, false)
	})

	return err
}

// BlockJsonData populates a json object with information about this block
func (m *LinearBlockMetadata) BlockJsonData(json jwriter.ObjectState) {
	m.writeJsonData(json, "Linear", m.sumFreeSize, m.AllocationCount(), m.FreeRegionsCount())
}

// CreateAllocationRequest places the requested allocation at the top of the stack, if it fits.
// The strategy is ignored: there is only ever one candidate location.
func (m *LinearBlockMetadata) CreateAllocationRequest(
	allocSize int, allocAlignment uint,
	strategy AllocationStrategy,
) (bool, AllocationRequest, error) {
	var request AllocationRequest

	if allocSize < 1 {
		return false, request, errors.Errorf("Invalid allocSize: %d", allocSize)
	}

	err := memutils.CheckPow2(allocAlignment, "allocAlignment")
	if err != nil {
		return false, request, err
	}

	memutils.DebugValidate(m)

	offset := memutils.AlignUp(m.stackTop(), allocAlignment)
	if offset+allocSize > m.size {
		return false, request, nil
	}

	request.Type = AllocationRequestEndOfStack
	request.BlockAllocationHandle = BlockAllocationHandle(offset + 1)
	request.Size = allocSize
	request.AlgorithmData = uint64(offset)

	return true, request, nil
}

// Alloc commits an AllocationRequest produced by CreateAllocationRequest
func (m *LinearBlockMetadata) Alloc(request AllocationRequest, userData any) error {
	if request.Type != AllocationRequestEndOfStack {
		return errors.New("allocation request was received by an incompatible metadata")
	}

	offset := int(request.AlgorithmData)
	if offset < m.stackTop() {
		return errors.Errorf("allocation request at offset %d is below the top of the stack at %d", offset, m.stackTop())
	}
	if offset+request.Size > m.size {
		return errors.Errorf("allocation request at offset %d of size %d does not fit in the block", offset, request.Size)
	}

	m.suballocations = append(m.suballocations, Suballocation{
		Offset:   offset,
		Size:     request.Size,
		UserData: userData,
	})
	m.sumFreeSize -= request.Size

	return nil
}

func (m *LinearBlockMetadata) findSuballocation(allocHandle BlockAllocationHandle) (int, error) {
	offset := int(allocHandle) - 1
	index := sort.Search(len(m.suballocations), func(i int) bool {
		return m.suballocations[i].Offset >= offset
	})

	if index >= len(m.suballocations) || m.suballocations[index].Offset != offset || m.suballocations[index].Free {
		return -1, errors.Errorf("no live allocation exists at offset %d", offset)
	}

	return index, nil
}

// Free marks a suballocation as freed. Freed suballocations at the top of the stack are popped
// immediately, making their space available to new requests.
func (m *LinearBlockMetadata) Free(allocHandle BlockAllocationHandle) error {
	index, err := m.findSuballocation(allocHandle)
	if err != nil {
		return err
	}

	item := &m.suballocations[index]
	item.Free = true
	item.UserData = nil
	m.sumFreeSize += item.Size
	m.nullItemsCount++

	for len(m.suballocations) > 0 && m.suballocations[len(m.suballocations)-1].Free {
		m.suballocations = m.suballocations[:len(m.suballocations)-1]
		m.nullItemsCount--
	}

	return nil
}

// AllocationOffset returns the offset of a live allocation
func (m *LinearBlockMetadata) AllocationOffset(allocHandle BlockAllocationHandle) (int, error) {
	index, err := m.findSuballocation(allocHandle)
	if err != nil {
		return 0, err
	}

	return m.suballocations[index].Offset, nil
}

// Clear instantly frees all allocations
func (m *LinearBlockMetadata) Clear() {
	m.sumFreeSize = m.size
	m.suballocations = m.suballocations[:0]
	m.nullItemsCount = 0
}
