package ir_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/tensorplan/ir"
)

func unary(t *testing.T, name string, producer *ir.OutputConnector) *ir.Node {
	node := ir.NewNode(ir.OpUnary, name)
	input := node.AddInput("input", producer.DataType(), producer.Shape())
	require.NoError(t, input.Connect(producer))
	node.AddOutput("output", producer.DataType(), producer.Shape(), ir.MemoryShared)
	return node
}

func names(nodes []*ir.Node) []string {
	result := make([]string, len(nodes))
	for i, node := range nodes {
		result[i] = node.Name()
	}
	return result
}

func TestVisitChain(t *testing.T) {
	input := ir.NewInputNode("in", ir.Float32, ir.Shape{4}, ir.MemoryShared)
	a := unary(t, "a", input.Output(0))
	b := unary(t, "b", a.Output(0))
	output, err := ir.NewOutputNode("out", b.Output(0))
	require.NoError(t, err)

	nodes, err := ir.Collect([]*ir.Node{output})
	require.NoError(t, err)
	require.Equal(t, []string{"in", "a", "b", "out"}, names(nodes))
}

func TestVisitDiamondVisitsOnce(t *testing.T) {
	input := ir.NewInputNode("in", ir.Float32, ir.Shape{4}, ir.MemoryShared)
	left := unary(t, "left", input.Output(0))
	right := unary(t, "right", input.Output(0))

	add := ir.NewNode(ir.OpBinary, "add")
	require.NoError(t, add.AddInput("lhs", ir.Float32, ir.Shape{4}).Connect(left.Output(0)))
	require.NoError(t, add.AddInput("rhs", ir.Float32, ir.Shape{4}).Connect(right.Output(0)))
	add.AddOutput("output", ir.Float32, ir.Shape{4}, ir.MemoryShared)

	out1, err := ir.NewOutputNode("out1", add.Output(0))
	require.NoError(t, err)
	out2, err := ir.NewOutputNode("out2", left.Output(0))
	require.NoError(t, err)

	nodes, err := ir.Collect([]*ir.Node{out1, out2})
	require.NoError(t, err)
	require.Equal(t, []string{"in", "left", "right", "add", "out1", "out2"}, names(nodes))
}

func TestVisitCycle(t *testing.T) {
	a := ir.NewNode(ir.OpUnary, "a")
	aIn := a.AddInput("input", ir.Float32, ir.Shape{1})
	a.AddOutput("output", ir.Float32, ir.Shape{1}, ir.MemoryShared)

	b := unary(t, "b", a.Output(0))
	require.NoError(t, aIn.Connect(b.Output(0)))

	err := ir.Visit([]*ir.Node{b}, func(node *ir.Node) error { return nil })
	require.ErrorContains(t, err, "cycle")
}

func TestVisitUnconnected(t *testing.T) {
	node := ir.NewNode(ir.OpUnary, "dangling")
	node.AddInput("input", ir.Float32, ir.Shape{1})

	err := ir.Visit([]*ir.Node{node}, func(node *ir.Node) error { return nil })
	require.ErrorContains(t, err, "not connected")
}

func TestVisitStopsOnError(t *testing.T) {
	input := ir.NewInputNode("in", ir.Float32, ir.Shape{4}, ir.MemoryShared)
	a := unary(t, "a", input.Output(0))

	stop := errors.New("stop")
	var visited []string
	err := ir.Visit([]*ir.Node{a}, func(node *ir.Node) error {
		visited = append(visited, node.Name())
		return stop
	})
	require.ErrorIs(t, err, stop)
	require.Equal(t, []string{"in"}, visited)
}
