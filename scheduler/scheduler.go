package scheduler

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/tensorplan/ir"
	"golang.org/x/exp/slog"
)

// Result is a finished schedule: the order in which nodes execute and the placement of every tensor
type Result struct {
	ComputeSequence []*ir.Node
	Allocations     []ConnectorAllocation

	lookup map[*ir.OutputConnector]MemoryAllocation
}

// Allocation returns the placement of conn, if it was placed during scheduling
func (r *Result) Allocation(conn *ir.OutputConnector) (MemoryAllocation, bool) {
	allocation, ok := r.lookup[conn]
	return allocation, ok
}

// Scheduler orders the nodes of a graph for execution and places every tensor they produce, reusing
// a buffer as soon as the last node that reads it has been scheduled.
//
// Tensors produced by graph inputs, tensors placed in ir.MemoryConstant and tensors consumed by
// graph output nodes stay live for the whole schedule.
type Scheduler struct {
	logger   *slog.Logger
	registry *Registry
}

// New creates a Scheduler. registry may be nil, in which case every tensor receives a default
// allocation.
func New(logger *slog.Logger, registry *Registry) *Scheduler {
	if registry == nil {
		registry = NewRegistry()
	}

	return &Scheduler{
		logger:   logger,
		registry: registry,
	}
}

// Schedule walks the graph that feeds outputs and places its tensors in ctx. No partial result is
// returned on failure.
//
// When a tensor has several consumers, the input allocator registered for the first consumer in
// Connections() order decides its placement. Later consumers only add a reference to it.
func (s *Scheduler) Schedule(outputs []*ir.Node, ctx *AllocationContext) (*Result, error) {
	s.logger.Debug("Scheduler::Schedule")

	nodes, err := ir.Collect(outputs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to walk graph")
	}

	reachable := make(map[*ir.Node]struct{}, len(nodes))
	for _, node := range nodes {
		reachable[node] = struct{}{}
	}

	sequence := make([]*ir.Node, 0, len(nodes))
	for _, node := range nodes {
		err = s.scheduleNode(node, reachable, ctx)
		if err == nil {
			sequence = append(sequence, node)
			err = s.releaseInputs(node, reachable, ctx)
		}

		if err != nil {
			s.logger.LogAttrs(context.Background(), slog.LevelError, "failed to schedule node",
				slog.String("node", node.String()),
				slog.String("error", err.Error()),
			)
			return nil, err
		}
	}

	result := &Result{
		ComputeSequence: sequence,
		Allocations:     ctx.Allocations(),
		lookup:          make(map[*ir.OutputConnector]MemoryAllocation),
	}
	for _, allocation := range result.Allocations {
		result.lookup[allocation.Connector] = allocation.Allocation
	}

	return result, nil
}

func (s *Scheduler) scheduleNode(node *ir.Node, reachable map[*ir.Node]struct{}, ctx *AllocationContext) error {
	for _, output := range node.Outputs() {
		consumers := 0
		for _, consumer := range output.Connections() {
			if _, ok := reachable[consumer.Owner()]; !ok {
				continue
			}
			consumers++

			err := s.allocateEdge(consumer.Owner(), output, ctx)
			if err != nil {
				return err
			}
		}

		// Unread tensors still occupy memory while their node runs
		if consumers == 0 {
			err := ctx.AllocateDefault(output)
			if err != nil {
				return err
			}
		}
	}

	err := s.checkOverlap(node, ctx)
	if err != nil {
		return err
	}

	attrs := []slog.Attr{
		slog.String("node", node.String()),
		slog.String("opcode", node.OpCode().String()),
	}
	for _, output := range node.Outputs() {
		allocation, _ := ctx.Allocation(output)
		attrs = append(attrs, slog.String(output.Name(), allocation.String()))
	}
	s.logger.LogAttrs(context.Background(), slog.LevelDebug, "Scheduler::scheduleNode", attrs...)

	return nil
}

func (s *Scheduler) allocateEdge(consumer *ir.Node, output *ir.OutputConnector, ctx *AllocationContext) error {
	allocator, ok := s.registry.Lookup(consumer.OpCode())
	if !ok {
		return ctx.AllocateDefault(output)
	}

	err := allocator(consumer, output, ctx)
	if err != nil {
		return errors.Wrapf(err, "input allocator for %s failed to place %s", consumer.OpCode(), output)
	}

	if ctx.Handle(output) == nil {
		return errors.Newf("input allocator for %s did not place %s", consumer.OpCode(), output)
	}

	return nil
}

func (s *Scheduler) checkOverlap(node *ir.Node, ctx *AllocationContext) error {
	for _, input := range node.Inputs() {
		producer := input.Connection()
		inputAllocation, ok := ctx.Allocation(producer)
		if !ok {
			return errors.Newf("input %s of %s was never placed", input, node)
		}

		for _, output := range node.Outputs() {
			outputAllocation, _ := ctx.Allocation(output)
			if !inputAllocation.Overlaps(outputAllocation) || ctx.SharesBuffer(producer, output) {
				continue
			}

			return &OverlapError{
				Node:             node,
				Input:            producer,
				InputAllocation:  inputAllocation,
				Output:           output,
				OutputAllocation: outputAllocation,
			}
		}
	}

	return nil
}

func (s *Scheduler) pinned(conn *ir.OutputConnector, ctx *AllocationContext) bool {
	if conn.Owner().OpCode() == ir.OpInput {
		return true
	}

	allocation, _ := ctx.Allocation(conn)
	return allocation.MemoryType == ir.MemoryConstant
}

func (s *Scheduler) releaseInputs(node *ir.Node, reachable map[*ir.Node]struct{}, ctx *AllocationContext) error {
	if node.OpCode() == ir.OpOutput {
		return nil
	}

	for _, input := range node.Inputs() {
		producer := input.Connection()
		if s.pinned(producer, ctx) {
			continue
		}

		err := ctx.Release(producer)
		if err != nil {
			return err
		}
	}

	for _, output := range node.Outputs() {
		if s.hasConsumers(output, reachable) || s.pinned(output, ctx) {
			continue
		}

		err := ctx.Release(output)
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *Scheduler) hasConsumers(conn *ir.OutputConnector, reachable map[*ir.Node]struct{}) bool {
	for _, consumer := range conn.Connections() {
		if _, ok := reachable[consumer.Owner()]; ok {
			return true
		}
	}

	return false
}
