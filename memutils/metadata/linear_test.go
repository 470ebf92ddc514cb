package metadata_test

import (
	"math"
	"testing"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/tensorplan/memutils"
	"github.com/vkngwrapper/tensorplan/memutils/metadata"
)

func TestLinearAlloc(t *testing.T) {
	linear := metadata.NewLinearBlockMetadata()
	linear.Init(1000)

	var stats memutils.DetailedStatistics
	stats.Clear()
	linear.AddDetailedStatistics(&stats)

	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			BlockCount:      1,
			BlockBytes:      1000,
			AllocationCount: 0,
			AllocationBytes: 0,
		},
		UnusedRangeCount:   1,
		AllocationSizeMin:  math.MaxInt,
		AllocationSizeMax:  0,
		UnusedRangeSizeMin: 1000,
		UnusedRangeSizeMax: 1000,
	}, stats)

	alloc1 := allocate(t, linear, 100, 1, metadata.AllocationStrategyMinTime, 1)
	alloc2 := allocate(t, linear, 50, 64, metadata.AllocationStrategyMinMemory, 2)

	offset, err := linear.AllocationOffset(alloc1)
	require.NoError(t, err)
	require.Equal(t, 0, offset)

	offset, err = linear.AllocationOffset(alloc2)
	require.NoError(t, err)
	require.Equal(t, 128, offset)

	stats.Clear()
	linear.AddDetailedStatistics(&stats)
	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			BlockCount:      1,
			BlockBytes:      1000,
			AllocationCount: 2,
			AllocationBytes: 150,
		},
		UnusedRangeCount:   2,
		AllocationSizeMin:  50,
		AllocationSizeMax:  100,
		UnusedRangeSizeMin: 28,
		UnusedRangeSizeMax: 822,
	}, stats)
}

func TestLinearFreeBuriedAllocation(t *testing.T) {
	linear := metadata.NewLinearBlockMetadata()
	linear.Init(1000)

	a := allocate(t, linear, 100, 1, metadata.AllocationStrategyMinMemory, nil)
	b := allocate(t, linear, 100, 1, metadata.AllocationStrategyMinMemory, nil)

	// a is buried under b, so its space is not reusable yet
	require.NoError(t, linear.Free(a))
	require.NoError(t, linear.Validate())
	require.Equal(t, 1, linear.AllocationCount())
	require.Equal(t, 900, linear.SumFreeSize())

	c := allocate(t, linear, 100, 1, metadata.AllocationStrategyMinMemory, nil)
	offset, err := linear.AllocationOffset(c)
	require.NoError(t, err)
	require.Equal(t, 200, offset)

	// Freeing the top of the stack pops every freed item below it
	require.NoError(t, linear.Free(c))
	require.NoError(t, linear.Free(b))
	require.NoError(t, linear.Validate())
	require.True(t, linear.IsEmpty())
	require.Equal(t, 1000, linear.SumFreeSize())

	d := allocate(t, linear, 100, 1, metadata.AllocationStrategyMinMemory, nil)
	offset, err = linear.AllocationOffset(d)
	require.NoError(t, err)
	require.Equal(t, 0, offset)
}

func TestLinearOutOfSpace(t *testing.T) {
	linear := metadata.NewLinearBlockMetadata()
	linear.Init(1000)

	allocate(t, linear, 900, 1, metadata.AllocationStrategyMinMemory, nil)

	success, _, err := linear.CreateAllocationRequest(101, 1, metadata.AllocationStrategyMinMemory)
	require.NoError(t, err)
	require.False(t, success)

	// Alignment padding counts against the remaining space
	success, _, err = linear.CreateAllocationRequest(90, 64, metadata.AllocationStrategyMinMemory)
	require.NoError(t, err)
	require.False(t, success)
}

func TestLinearInvalidHandles(t *testing.T) {
	linear := metadata.NewLinearBlockMetadata()
	linear.Init(1000)

	a := allocate(t, linear, 100, 1, metadata.AllocationStrategyMinMemory, nil)
	allocate(t, linear, 100, 1, metadata.AllocationStrategyMinMemory, nil)

	require.NoError(t, linear.Free(a))
	require.Error(t, linear.Free(a))

	_, err := linear.AllocationOffset(a)
	require.Error(t, err)

	_, err = linear.AllocationOffset(metadata.BlockAllocationHandle(51))
	require.Error(t, err)
}

func TestLinearRejectsForeignRequest(t *testing.T) {
	tlsf := metadata.NewTLSFBlockMetadata()
	tlsf.Init(1000)

	success, req, err := tlsf.CreateAllocationRequest(100, 1, metadata.AllocationStrategyMinMemory)
	require.NoError(t, err)
	require.True(t, success)

	linear := metadata.NewLinearBlockMetadata()
	linear.Init(1000)
	require.Error(t, linear.Alloc(req, nil))
}

func TestLinearVisitAllRegions(t *testing.T) {
	linear := metadata.NewLinearBlockMetadata()
	linear.Init(1000)

	a := allocate(t, linear, 100, 1, metadata.AllocationStrategyMinMemory, "a")
	allocate(t, linear, 200, 1, metadata.AllocationStrategyMinMemory, "b")
	require.NoError(t, linear.Free(a))

	var offsets []int
	var free []bool
	err := linear.VisitAllRegions(func(handle metadata.BlockAllocationHandle, offset int, size int, userData any, isFree bool) error {
		offsets = append(offsets, offset)
		free = append(free, isFree)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []int{0, 100, 300}, offsets)
	require.Equal(t, []bool{true, false, true}, free)
	require.Equal(t, 2, linear.FreeRegionsCount())
}

func TestLinearClear(t *testing.T) {
	linear := metadata.NewLinearBlockMetadata()
	linear.Init(1000)

	allocate(t, linear, 100, 1, metadata.AllocationStrategyMinMemory, nil)
	allocate(t, linear, 100, 1, metadata.AllocationStrategyMinMemory, nil)

	linear.Clear()
	require.NoError(t, linear.Validate())
	require.True(t, linear.IsEmpty())
	require.Equal(t, 1000, linear.SumFreeSize())
}

func TestLinearBlockJsonData(t *testing.T) {
	linear := metadata.NewLinearBlockMetadata()
	linear.Init(1000)
	allocate(t, linear, 100, 1, metadata.AllocationStrategyMinMemory, nil)

	writer := jwriter.NewWriter()
	obj := writer.Object()
	linear.BlockJsonData(obj)
	obj.End()

	require.NoError(t, writer.Error())
	require.JSONEq(t, `{"Algorithm":"Linear","TotalBytes":1000,"UnusedBytes":900,"Allocations":1,"UnusedRanges":1}`, string(writer.Bytes()))
}
