package scheduler

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/tensorplan/ir"
)

// InputAllocator places conn, an output connector that feeds node, when node's operator kind needs
// something other than an independent buffer for its inputs. It is called once per consumer edge and
// must leave conn placed in ctx with one additional reference, usually by calling
// AllocationContext.AllocateDefault.
type InputAllocator func(node *ir.Node, conn *ir.OutputConnector, ctx *AllocationContext) error

// Registry maps operator kinds to the InputAllocator used for tensors flowing into them. A Registry
// is populated before scheduling begins and only read afterward.
type Registry struct {
	allocators map[ir.OpCode]InputAllocator
}

// NewRegistry creates an empty Registry: every tensor receives a default allocation
func NewRegistry() *Registry {
	return &Registry{
		allocators: make(map[ir.OpCode]InputAllocator),
	}
}

// NewDefaultRegistry creates a Registry with ViewAllocator registered for the operator kinds that
// reinterpret their input buffer in place: ir.OpReshape, ir.OpBitcast and ir.OpSplit
func NewDefaultRegistry() *Registry {
	registry := NewRegistry()
	registry.allocators[ir.OpReshape] = ViewAllocator
	registry.allocators[ir.OpBitcast] = ViewAllocator
	registry.allocators[ir.OpSplit] = ViewAllocator
	return registry
}

// Register sets the InputAllocator for an operator kind. Each operator kind may only be registered
// once; a second registration fails with ErrAllocatorRegistered and leaves the first in place.
func (r *Registry) Register(opcode ir.OpCode, allocator InputAllocator) error {
	if allocator == nil {
		return errors.Newf("cannot register a nil input allocator for %s", opcode)
	}

	_, exists := r.allocators[opcode]
	if exists {
		return errors.Wrapf(ErrAllocatorRegistered, "operator kind %s", opcode)
	}

	r.allocators[opcode] = allocator
	return nil
}

// Lookup returns the InputAllocator registered for an operator kind, if any
func (r *Registry) Lookup(opcode ir.OpCode) (InputAllocator, bool) {
	allocator, ok := r.allocators[opcode]
	return allocator, ok
}
