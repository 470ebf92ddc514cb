package scheduler_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/tensorplan/ir"
	"github.com/vkngwrapper/tensorplan/memory"
	"github.com/vkngwrapper/tensorplan/scheduler"
	"golang.org/x/exp/slog"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// 1024 bytes of float32
var vector = ir.Shape{1, 256}

func newAllocators(t *testing.T, memoryTypes ...ir.MemoryType) (map[ir.MemoryType]scheduler.MemoryAllocator, map[ir.MemoryType]*memory.Allocator) {
	allocators := make(map[ir.MemoryType]scheduler.MemoryAllocator)
	regions := make(map[ir.MemoryType]*memory.Allocator)

	for _, memoryType := range memoryTypes {
		options := memory.CreateOptions{Size: 1 << 20}
		if memoryType == ir.MemoryConstant {
			options.Algorithm = memory.AlgorithmLinear
		}

		allocator, err := memory.New(logger, memoryType, options)
		require.NoError(t, err)

		allocators[memoryType] = allocator
		regions[memoryType] = allocator
	}

	return allocators, regions
}

// op creates a node that consumes each of inputs and produces a single output named "output"
func op(t *testing.T, opcode ir.OpCode, name string, shape ir.Shape, inputs ...*ir.OutputConnector) *ir.Node {
	node := ir.NewNode(opcode, name)
	for i, producer := range inputs {
		input := node.AddInput(inputName(i), producer.DataType(), producer.Shape())
		require.NoError(t, input.Connect(producer))
	}

	node.AddOutput("output", ir.Float32, shape, ir.MemoryShared)
	return node
}

func inputName(index int) string {
	return string(rune('a' + index))
}

func sink(t *testing.T, name string, producer *ir.OutputConnector) *ir.Node {
	node, err := ir.NewOutputNode(name, producer)
	require.NoError(t, err)
	return node
}

func requireAllocation(t *testing.T, result *scheduler.Result, conn *ir.OutputConnector) scheduler.MemoryAllocation {
	allocation, ok := result.Allocation(conn)
	require.True(t, ok, "%s was not placed", conn)
	return allocation
}

// requireNoLiveOverlap checks that no node in the sequence reads a tensor that overlaps one it writes,
// unless both share a buffer
func requireNoLiveOverlap(t *testing.T, result *scheduler.Result, ctx *scheduler.AllocationContext) {
	for _, node := range result.ComputeSequence {
		for _, input := range node.Inputs() {
			inputAllocation := requireAllocation(t, result, input.Connection())

			for _, output := range node.Outputs() {
				outputAllocation := requireAllocation(t, result, output)
				if ctx.SharesBuffer(input.Connection(), output) {
					continue
				}

				require.False(t, inputAllocation.Overlaps(outputAllocation),
					"%s: %s overlaps %s", node, inputAllocation, outputAllocation)
			}
		}
	}
}
