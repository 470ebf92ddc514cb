package memory_test

import (
	"io"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/tensorplan/ir"
	"github.com/vkngwrapper/tensorplan/memory"
	"github.com/vkngwrapper/tensorplan/memutils"
	"github.com/vkngwrapper/tensorplan/memutils/metadata"
	"golang.org/x/exp/slog"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

func allocateBuffer(t *testing.T, allocator *memory.Allocator, size int) *memory.Buffer {
	handle, err := allocator.Allocate(size)
	require.NoError(t, err)
	require.NoError(t, allocator.Validate())

	buffer, ok := handle.(*memory.Buffer)
	require.True(t, ok)
	return buffer
}

func TestAllocatorDefaults(t *testing.T) {
	allocator, err := memory.New(logger, ir.MemoryShared, memory.CreateOptions{})
	require.NoError(t, err)

	require.Equal(t, ir.MemoryShared, allocator.MemoryType())
	require.Equal(t, memory.AlgorithmTLSF, allocator.Algorithm())
	require.Equal(t, memory.DefaultRegionSize, allocator.Size())
	require.Equal(t, memory.DefaultAlignment, allocator.Alignment())
	require.Equal(t, 0, allocator.MaxUsage())
}

func TestAllocatorInvalidOptions(t *testing.T) {
	testCases := map[string]memory.CreateOptions{
		"NegativeSize":       {Size: -1},
		"UnalignedAlignment": {Alignment: 3},
		"UnknownAlgorithm":   {Algorithm: memory.Algorithm(99)},
	}

	for name, options := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := memory.New(logger, ir.MemoryShared, options)
			require.Error(t, err)
		})
	}
}

func TestSizeFor(t *testing.T) {
	allocator, err := memory.New(logger, ir.MemoryShared, memory.CreateOptions{Size: 4096, Alignment: 8})
	require.NoError(t, err)

	require.Equal(t, 24, allocator.SizeFor(ir.Float32, ir.Shape{2, 3}))
	require.Equal(t, 16, allocator.SizeFor(ir.Float32, ir.Shape{3}))
	require.Equal(t, 8, allocator.SizeFor(ir.Float32, nil))
	require.Equal(t, 8, allocator.SizeFor(ir.Int8, ir.Shape{0, 4}))

	// Malformed shapes are never rounded up into a valid size
	require.Equal(t, -1, allocator.SizeFor(ir.Float32, ir.Shape{-1, 256}))
	require.Equal(t, -1, allocator.SizeFor(ir.Int8, ir.Shape{1 << 32, 1 << 32}))

	_, err = allocator.Allocate(allocator.SizeFor(ir.Float32, ir.Shape{-1, 256}))
	require.ErrorContains(t, err, "invalid allocation size")
	require.Equal(t, 0, allocator.AllocationCount())
}

func TestAllocateReusesReleasedRange(t *testing.T) {
	allocator, err := memory.New(logger, ir.MemoryShared, memory.CreateOptions{Size: 4096, Alignment: 64})
	require.NoError(t, err)

	a := allocateBuffer(t, allocator, 1024)
	b := allocateBuffer(t, allocator, 1024)
	c := allocateBuffer(t, allocator, 1024)
	require.Equal(t, 0, a.SafeStart())
	require.Equal(t, 1024, b.SafeStart())
	require.Equal(t, 2048, c.SafeStart())

	require.NoError(t, b.Release())
	require.NoError(t, allocator.Validate())
	require.Equal(t, 2, allocator.AllocationCount())

	d := allocateBuffer(t, allocator, 1024)
	require.Equal(t, 1024, d.SafeStart())
	require.Equal(t, 3072, allocator.MaxUsage())
}

func TestBufferRefCounting(t *testing.T) {
	allocator, err := memory.New(logger, ir.MemoryShared, memory.CreateOptions{Size: 4096})
	require.NoError(t, err)

	buffer := allocateBuffer(t, allocator, 256)
	require.Equal(t, 1, buffer.RefCount())
	require.Equal(t, 256, buffer.Size())
	require.Equal(t, ir.MemoryShared, buffer.MemoryType())

	buffer.AddRef()
	require.Equal(t, 2, buffer.RefCount())

	require.NoError(t, buffer.Release())
	require.Equal(t, 1, buffer.RefCount())
	require.Equal(t, 1, allocator.AllocationCount())

	require.NoError(t, buffer.Release())
	require.Equal(t, 0, buffer.RefCount())
	require.Equal(t, 0, allocator.AllocationCount())

	require.Error(t, buffer.Release())
}

func TestAllocateOutOfMemory(t *testing.T) {
	allocator, err := memory.New(logger, ir.MemoryScratch, memory.CreateOptions{Size: 1024})
	require.NoError(t, err)

	allocateBuffer(t, allocator, 768)

	_, err = allocator.Allocate(512)
	require.Error(t, err)
	require.True(t, errors.Is(err, memory.ErrOutOfMemory))

	_, err = allocator.Allocate(0)
	require.Error(t, err)
	require.False(t, errors.Is(err, memory.ErrOutOfMemory))
}

func TestLinearAllocator(t *testing.T) {
	allocator, err := memory.New(logger, ir.MemoryConstant, memory.CreateOptions{
		Algorithm: memory.AlgorithmLinear,
		Size:      4096,
		Alignment: 16,
	})
	require.NoError(t, err)

	a := allocateBuffer(t, allocator, 100)
	b := allocateBuffer(t, allocator, 100)
	require.Equal(t, 0, a.SafeStart())
	require.Equal(t, 112, b.SafeStart())

	// a is below b on the stack, so its range stays occupied
	require.NoError(t, a.Release())
	c := allocateBuffer(t, allocator, 100)
	require.Equal(t, 224, c.SafeStart())

	require.NoError(t, c.Release())
	require.NoError(t, b.Release())

	d := allocateBuffer(t, allocator, 100)
	require.Equal(t, 0, d.SafeStart())
	require.Equal(t, 324, allocator.MaxUsage())
}

func TestMinOffsetStrategy(t *testing.T) {
	allocator, err := memory.New(logger, ir.MemoryShared, memory.CreateOptions{
		Size:     4096,
		Strategy: metadata.AllocationStrategyMinOffset,
	})
	require.NoError(t, err)

	a := allocateBuffer(t, allocator, 512)
	allocateBuffer(t, allocator, 512)
	require.NoError(t, a.Release())

	b := allocateBuffer(t, allocator, 128)
	require.Equal(t, 0, b.SafeStart())
}

func TestAllocatorStatistics(t *testing.T) {
	allocator, err := memory.New(logger, ir.MemoryShared, memory.CreateOptions{Size: 4096})
	require.NoError(t, err)

	allocateBuffer(t, allocator, 1024)
	allocateBuffer(t, allocator, 512)

	var stats memutils.Statistics
	allocator.Statistics(&stats)
	require.Equal(t, memutils.Statistics{
		BlockCount:      1,
		AllocationCount: 2,
		BlockBytes:      4096,
		AllocationBytes: 1536,
	}, stats)

	var detailed memutils.DetailedStatistics
	detailed.Clear()
	allocator.DetailedStatistics(&detailed)
	require.Equal(t, 512, detailed.AllocationSizeMin)
	require.Equal(t, 1024, detailed.AllocationSizeMax)
	require.Equal(t, 1, detailed.UnusedRangeCount)
}

func TestPrintDetailedMap(t *testing.T) {
	allocator, err := memory.New(logger, ir.MemoryShared, memory.CreateOptions{Size: 1024})
	require.NoError(t, err)

	allocateBuffer(t, allocator, 256)

	writer := jwriter.NewWriter()
	allocator.PrintDetailedMap(&writer)
	require.NoError(t, writer.Error())

	require.JSONEq(t, `{
		"MemoryType": "shared",
		"Alignment": 8,
		"MaxUsage": 256,
		"Statistics": {
			"BlockCount": 1,
			"BlockBytes": 1024,
			"AllocationCount": 1,
			"AllocationBytes": 256,
			"UnusedRangeCount": 1,
			"AllocationSizeMin": 256,
			"AllocationSizeMax": 256,
			"UnusedRangeSizeMin": 768,
			"UnusedRangeSizeMax": 768
		},
		"Region": {
			"Algorithm": "TLSF",
			"TotalBytes": 1024,
			"UnusedBytes": 768,
			"Allocations": 1,
			"UnusedRanges": 1,
			"Suballocations": [
				{"Offset": 0, "Size": 256, "Type": "BUFFER", "RefCount": 1},
				{"Offset": 256, "Size": 768, "Type": "FREE"}
			]
		}
	}`, string(writer.Bytes()))
}

func TestAllocatorClear(t *testing.T) {
	allocator, err := memory.New(logger, ir.MemoryShared, memory.CreateOptions{Size: 4096})
	require.NoError(t, err)

	a := allocateBuffer(t, allocator, 1024)
	allocateBuffer(t, allocator, 1024)

	allocator.Clear()
	require.NoError(t, allocator.Validate())
	require.Equal(t, 0, allocator.AllocationCount())
	require.Equal(t, 0, allocator.MaxUsage())

	require.Error(t, a.Release())

	b := allocateBuffer(t, allocator, 2048)
	require.Equal(t, 0, b.SafeStart())
}

func TestAllocatorConcurrentUse(t *testing.T) {
	allocator, err := memory.New(logger, ir.MemoryShared, memory.CreateOptions{Size: 1 << 20})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				buffer, err := allocator.Allocate(128)
				if err != nil {
					t.Error(err)
					return
				}

				buffer.AddRef()
				for k := 0; k < 2; k++ {
					if err := buffer.Release(); err != nil {
						t.Error(err)
						return
					}
				}
			}
		}()
	}
	wg.Wait()

	require.NoError(t, allocator.Validate())
	require.Equal(t, 0, allocator.AllocationCount())
}
