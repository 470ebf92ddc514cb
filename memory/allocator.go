package memory

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/tensorplan/internal/utils"
	"github.com/vkngwrapper/tensorplan/ir"
	"github.com/vkngwrapper/tensorplan/memutils"
	"github.com/vkngwrapper/tensorplan/memutils/metadata"
	"github.com/vkngwrapper/tensorplan/scheduler"
	"golang.org/x/exp/slog"
)

// Allocator places tensor buffers within a single memory region of a fixed size. It never touches
// real memory: buffers are byte ranges, tracked by a metadata.BlockMetadata chosen with
// CreateOptions.Algorithm.
type Allocator struct {
	logger     *slog.Logger
	mutex      utils.OptionalRWMutex
	memoryType ir.MemoryType

	algorithm Algorithm
	alignment uint
	strategy  metadata.AllocationStrategy
	metadata  metadata.BlockMetadata

	maxUsage int
}

var _ scheduler.MemoryAllocator = &Allocator{}

// New creates an Allocator for the memory region identified by memoryType
func New(logger *slog.Logger, memoryType ir.MemoryType, options CreateOptions) (*Allocator, error) {
	options = options.withDefaults()

	if options.Size < 1 {
		return nil, errors.Newf("invalid region size: %d", options.Size)
	}

	err := memutils.CheckPow2(options.Alignment, "alignment")
	if err != nil {
		return nil, err
	}

	md, err := options.Algorithm.newMetadata()
	if err != nil {
		return nil, err
	}
	md.Init(options.Size)

	logger.Debug("Allocator::New",
		slog.String("memoryType", memoryType.String()),
		slog.String("algorithm", options.Algorithm.String()),
		slog.Int("size", options.Size),
	)

	return &Allocator{
		logger: logger,
		mutex: utils.OptionalRWMutex{
			UseMutex: options.Flags&AllocatorCreateExternallySynchronized == 0,
		},
		memoryType: memoryType,
		algorithm:  options.Algorithm,
		alignment:  options.Alignment,
		strategy:   options.Strategy,
		metadata:   md,
	}, nil
}

func (a *Allocator) MemoryType() ir.MemoryType { return a.memoryType }
func (a *Allocator) Algorithm() Algorithm       { return a.algorithm }
func (a *Allocator) Alignment() uint            { return a.alignment }

// Size returns the number of bytes in the region
func (a *Allocator) Size() int { return a.metadata.Size() }

// MaxUsage returns the highest end offset of any buffer allocated since the allocator was created or
// last cleared. A region of this size is enough to hold the whole schedule.
func (a *Allocator) MaxUsage() int {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.maxUsage
}

// SizeFor returns the aligned size of a tensor. Tensors with no elements still occupy one
// alignment unit so that every tensor has a distinct placement. Shapes rejected by
// ir.DataType.CheckShape yield a negative size, which Allocate refuses.
func (a *Allocator) SizeFor(dataType ir.DataType, shape ir.Shape) int {
	if dataType.CheckShape(shape) != nil {
		return -1
	}

	size := dataType.Size() * shape.Elements()
	if size == 0 {
		size = 1
	}

	return memutils.AlignUp(size, a.alignment)
}

// Allocate reserves size bytes within the region. The returned buffer has a reference count of 1.
func (a *Allocator) Allocate(size int) (scheduler.BufferHandle, error) {
	if size < 1 {
		return nil, errors.Newf("invalid allocation size: %d", size)
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	success, request, err := a.metadata.CreateAllocationRequest(size, a.alignment, a.strategy)
	if err != nil {
		return nil, err
	}

	if !success {
		return nil, errors.Wrapf(ErrOutOfMemory, "%s region cannot fit %d bytes (%d of %d bytes free)",
			a.memoryType, size, a.metadata.SumFreeSize(), a.metadata.Size())
	}

	buffer := &Buffer{
		allocator: a,
		handle:    request.BlockAllocationHandle,
		size:      size,
		refCount:  1,
	}

	err = a.metadata.Alloc(request, buffer)
	if err != nil {
		return nil, err
	}

	buffer.offset, err = a.metadata.AllocationOffset(request.BlockAllocationHandle)
	if err != nil {
		return nil, err
	}

	err = memutils.CheckRange(buffer.offset, size, a.metadata.Size())
	if err != nil {
		return nil, err
	}

	if buffer.offset+size > a.maxUsage {
		a.maxUsage = buffer.offset + size
	}

	memutils.DebugValidate(a.metadata)

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "Allocator::Allocate",
		slog.String("memoryType", a.memoryType.String()),
		slog.Int("offset", buffer.offset),
		slog.Int("size", size),
	)

	return buffer, nil
}

func (a *Allocator) free(buffer *Buffer) error {
	err := a.metadata.Free(buffer.handle)
	if err != nil {
		return errors.Wrapf(err, "failed to free buffer at offset %d", buffer.offset)
	}

	memutils.DebugValidate(a.metadata)
	return nil
}

// Validate performs internal consistency checks on the region's metadata
func (a *Allocator) Validate() error {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.metadata.Validate()
}

// AllocationCount returns the number of live buffers in the region
func (a *Allocator) AllocationCount() int {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.metadata.AllocationCount()
}

// Statistics sums this allocator's statistics into stats
func (a *Allocator) Statistics(stats *memutils.Statistics) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	a.metadata.AddStatistics(stats)
}

// DetailedStatistics sums this allocator's statistics into stats
func (a *Allocator) DetailedStatistics(stats *memutils.DetailedStatistics) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	a.metadata.AddDetailedStatistics(stats)
}

// PrintDetailedMap writes a json object describing the region and every live buffer and free range
// within it
func (a *Allocator) PrintDetailedMap(writer *jwriter.Writer) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	objState := writer.Object()
	defer objState.End()

	objState.Name("MemoryType").String(a.memoryType.String())
	objState.Name("Alignment").Int(int(a.alignment))
	objState.Name("MaxUsage").Int(a.maxUsage)

	var stats memutils.DetailedStatistics
	stats.Clear()
	a.metadata.AddDetailedStatistics(&stats)

	statsObj := objState.Name("Statistics").Object()
	stats.WriteJson(statsObj)
	statsObj.End()

	regionObj := objState.Name("Region").Object()
	defer regionObj.End()

	a.metadata.BlockJsonData(regionObj)

	arrayState := regionObj.Name("Suballocations").Array()
	defer arrayState.End()

	_ = a.metadata.VisitAllRegions(
		func(handle metadata.BlockAllocationHandle, offset int, size int, userData any, free bool) error {
			obj := arrayState.Object()
			defer obj.End()

			obj.Name("Offset").Int(offset)
			obj.Name("Size").Int(size)

			if free {
				obj.Name("Type").String("FREE")
				return nil
			}

			obj.Name("Type").String("BUFFER")
			buffer, ok := userData.(*Buffer)
			if ok {
				obj.Name("RefCount").Int(buffer.refCount)
			}
			return nil
		})
}

// Clear frees every buffer in the region at once and resets MaxUsage. Buffers that are still live
// are logged and may not be released afterward.
func (a *Allocator) Clear() {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	_ = a.metadata.VisitAllRegions(
		func(handle metadata.BlockAllocationHandle, offset int, size int, userData any, free bool) error {
			if free {
				return nil
			}

			refCount := 0
			buffer, ok := userData.(*Buffer)
			if ok {
				refCount = buffer.refCount
				buffer.refCount = 0
			}

			a.logger.LogAttrs(context.Background(), slog.LevelDebug, "[LIVE MEMORY]",
				slog.String("memoryType", a.memoryType.String()),
				slog.Int("offset", offset),
				slog.Int("size", size),
				slog.Int("refCount", refCount),
			)
			return nil
		})

	a.metadata.Clear()
	a.maxUsage = 0
}
