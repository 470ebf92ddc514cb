package scheduler

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/tensorplan/ir"
)

var (
	// ErrMissingAllocator is the cause of every MissingAllocatorError
	ErrMissingAllocator = errors.New("no allocator registered for memory type")
	// ErrOverlap is the cause of every OverlapError
	ErrOverlap = errors.New("live placements overlap")
	// ErrAllocatorRegistered is returned by Registry.Register when the operator kind already has
	// an input allocator
	ErrAllocatorRegistered = errors.New("input allocator already registered")
)

// MissingAllocatorError is returned when a tensor must be placed in a memory type that the
// AllocationContext has no MemoryAllocator for
type MissingAllocatorError struct {
	MemoryType ir.MemoryType
	Connector  *ir.OutputConnector
	Node       *ir.Node
}

func (e *MissingAllocatorError) Error() string {
	return fmt.Sprintf("no allocator registered for memory type %s, required by %s", e.MemoryType, e.Connector)
}

func (e *MissingAllocatorError) Unwrap() error {
	return ErrMissingAllocator
}

// OverlapError is returned when one of a node's inputs occupies bytes that one of its outputs was
// placed in. It always indicates a broken input allocator or MemoryAllocator.
type OverlapError struct {
	Node             *ir.Node
	Input            *ir.OutputConnector
	InputAllocation  MemoryAllocation
	Output           *ir.OutputConnector
	OutputAllocation MemoryAllocation
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("while scheduling %s: input %s at %s overlaps output %s at %s",
		e.Node, e.Input, e.InputAllocation, e.Output, e.OutputAllocation)
}

func (e *OverlapError) Unwrap() error {
	return ErrOverlap
}
