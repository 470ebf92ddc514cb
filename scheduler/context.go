package scheduler

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/tensorplan/ir"
	"golang.org/x/exp/slog"
)

// AllocationContext holds the state of a single scheduling run: the allocator for each memory type,
// the buffer handle of each allocated output connector, and the placement of each output connector.
//
// An AllocationContext is not safe for concurrent use and must not be reused across scheduling runs.
type AllocationContext struct {
	logger     *slog.Logger
	allocators map[ir.MemoryType]MemoryAllocator

	handles     *swiss.Map[*ir.OutputConnector, BufferHandle]
	allocations *swiss.Map[*ir.OutputConnector, MemoryAllocation]
	// View connector -> the connector that owns the underlying buffer
	viewRoots *swiss.Map[*ir.OutputConnector, *ir.OutputConnector]

	order []*ir.OutputConnector
}

// NewAllocationContext creates an AllocationContext that places tensors using the provided allocators.
// The allocators map is read but never modified.
func NewAllocationContext(logger *slog.Logger, allocators map[ir.MemoryType]MemoryAllocator) *AllocationContext {
	return &AllocationContext{
		logger:      logger,
		allocators:  allocators,
		handles:     swiss.NewMap[*ir.OutputConnector, BufferHandle](64),
		allocations: swiss.NewMap[*ir.OutputConnector, MemoryAllocation](64),
		viewRoots:   swiss.NewMap[*ir.OutputConnector, *ir.OutputConnector](8),
	}
}

func (c *AllocationContext) record(conn *ir.OutputConnector, handle BufferHandle, allocation MemoryAllocation) {
	c.handles.Put(conn, handle)
	c.allocations.Put(conn, allocation)
	c.order = append(c.order, conn)
}

// AllocateDefault places conn with the allocator for its memory type. If conn has already been
// placed, the existing buffer gains a reference instead, so each consumer edge of a tensor holds
// exactly one reference to its buffer.
func (c *AllocationContext) AllocateDefault(conn *ir.OutputConnector) error {
	handle, ok := c.handles.Get(conn)
	if ok {
		handle.AddRef()
		return nil
	}

	allocator, ok := c.allocators[conn.MemoryType()]
	if !ok {
		return &MissingAllocatorError{
			MemoryType: conn.MemoryType(),
			Connector:  conn,
			Node:       conn.Owner(),
		}
	}

	err := conn.DataType().CheckShape(conn.Shape())
	if err != nil {
		return errors.Wrapf(err, "cannot place %s", conn)
	}

	size := allocator.SizeFor(conn.DataType(), conn.Shape())
	handle, err = allocator.Allocate(size)
	if err != nil {
		return errors.Wrapf(err, "failed to allocate %d bytes for %s", size, conn)
	}

	allocation := MemoryAllocation{
		MemoryType: conn.MemoryType(),
		Start:      handle.SafeStart(),
		Size:       size,
	}
	c.record(conn, handle, allocation)

	c.logger.LogAttrs(context.Background(), slog.LevelDebug, "AllocationContext::AllocateDefault",
		slog.String("connector", conn.String()),
		slog.String("allocation", allocation.String()),
	)

	return nil
}

// AllocateView places dst in the buffer that src already occupies. dst receives src's placement and
// shares its buffer handle. No reference is added: every consumer edge of dst adds its own through
// AllocateDefault, and releasing dst releases the shared buffer.
func (c *AllocationContext) AllocateView(dst, src *ir.OutputConnector) error {
	if c.handles.Has(dst) {
		return errors.Newf("cannot place %s as a view of %s: it has already been placed", dst, src)
	}

	handle, ok := c.handles.Get(src)
	if !ok {
		return errors.Newf("cannot place %s as a view of %s: %s has not been placed", dst, src, src)
	}

	err := dst.DataType().CheckShape(dst.Shape())
	if err != nil {
		return errors.Wrapf(err, "cannot place %s as a view of %s", dst, src)
	}

	allocation, _ := c.allocations.Get(src)
	if dst.Bytes() > allocation.Size {
		return errors.Newf("cannot place %s as a view of %s: %d bytes do not fit in %s", dst, src, dst.Bytes(), allocation)
	}

	c.record(dst, handle, allocation)
	c.viewRoots.Put(dst, c.root(src))

	c.logger.LogAttrs(context.Background(), slog.LevelDebug, "AllocationContext::AllocateView",
		slog.String("connector", dst.String()),
		slog.String("source", src.String()),
		slog.String("allocation", allocation.String()),
	)

	return nil
}

// Release drops one reference to the buffer backing conn. Connectors that were never placed are
// ignored.
func (c *AllocationContext) Release(conn *ir.OutputConnector) error {
	handle, ok := c.handles.Get(conn)
	if !ok {
		return nil
	}

	err := handle.Release()
	if err != nil {
		return errors.Wrapf(err, "failed to release %s", conn)
	}

	return nil
}

// Allocation returns the placement of conn, if it has been placed
func (c *AllocationContext) Allocation(conn *ir.OutputConnector) (MemoryAllocation, bool) {
	return c.allocations.Get(conn)
}

// Handle returns the buffer handle backing conn, or nil if conn has not been placed
func (c *AllocationContext) Handle(conn *ir.OutputConnector) BufferHandle {
	handle, ok := c.handles.Get(conn)
	if !ok {
		return nil
	}
	return handle
}

// IsView reports whether conn was placed with AllocateView
func (c *AllocationContext) IsView(conn *ir.OutputConnector) bool {
	return c.viewRoots.Has(conn)
}

func (c *AllocationContext) root(conn *ir.OutputConnector) *ir.OutputConnector {
	root, ok := c.viewRoots.Get(conn)
	if !ok {
		return conn
	}
	return root
}

// SharesBuffer reports whether both connectors have been placed and are backed by the same buffer,
// either because they are the same connector or because one is a view of the other
func (c *AllocationContext) SharesBuffer(first, second *ir.OutputConnector) bool {
	if !c.handles.Has(first) || !c.handles.Has(second) {
		return false
	}

	return c.root(first) == c.root(second)
}

// Allocations returns every placement made through this context, in the order they were made
func (c *AllocationContext) Allocations() []ConnectorAllocation {
	allocations := make([]ConnectorAllocation, 0, len(c.order))
	for _, conn := range c.order {
		allocation, _ := c.allocations.Get(conn)
		allocations = append(allocations, ConnectorAllocation{
			Connector:  conn,
			Allocation: allocation,
		})
	}

	return allocations
}
