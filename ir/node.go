package ir

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Node is a single operator in a computation graph. Nodes own their connectors; connectors refer
// back to their owning node and input connectors refer to the output connector that feeds them.
// Nodes are compared by identity.
type Node struct {
	name    string
	opcode  OpCode
	inputs  []*InputConnector
	outputs []*OutputConnector
}

func NewNode(opcode OpCode, name string) *Node {
	return &Node{
		name:   name,
		opcode: opcode,
	}
}

// NewInputNode creates a graph input with a single output named "output"
func NewInputNode(name string, dataType DataType, shape Shape, memoryType MemoryType) *Node {
	node := NewNode(OpInput, name)
	node.AddOutput("output", dataType, shape, memoryType)
	return node
}

// NewConstantNode creates a constant with a single output named "output" placed in MemoryConstant
func NewConstantNode(name string, dataType DataType, shape Shape) *Node {
	node := NewNode(OpConstant, name)
	node.AddOutput("output", dataType, shape, MemoryConstant)
	return node
}

// NewOutputNode creates a graph output sink with a single input named "input" connected to producer
func NewOutputNode(name string, producer *OutputConnector) (*Node, error) {
	node := NewNode(OpOutput, name)
	input := node.AddInput("input", producer.DataType(), producer.Shape())
	err := input.Connect(producer)
	if err != nil {
		return nil, err
	}

	return node, nil
}

func (n *Node) Name() string                { return n.name }
func (n *Node) OpCode() OpCode              { return n.opcode }
func (n *Node) Inputs() []*InputConnector   { return n.inputs }
func (n *Node) Outputs() []*OutputConnector { return n.outputs }

func (n *Node) Input(index int) *InputConnector {
	return n.inputs[index]
}

func (n *Node) Output(index int) *OutputConnector {
	return n.outputs[index]
}

// InputByName returns the input connector with the provided name, if any
func (n *Node) InputByName(name string) (*InputConnector, error) {
	for _, input := range n.inputs {
		if input.name == name {
			return input, nil
		}
	}

	return nil, errors.Newf("node %s has no input named %q", n, name)
}

// OutputByName returns the output connector with the provided name, if any
func (n *Node) OutputByName(name string) (*OutputConnector, error) {
	for _, output := range n.outputs {
		if output.name == name {
			return output, nil
		}
	}

	return nil, errors.Newf("node %s has no output named %q", n, name)
}

func (n *Node) AddInput(name string, dataType DataType, shape Shape) *InputConnector {
	input := &InputConnector{
		owner:    n,
		name:     name,
		dataType: dataType,
		shape:    shape.Clone(),
	}
	n.inputs = append(n.inputs, input)
	return input
}

func (n *Node) AddOutput(name string, dataType DataType, shape Shape, memoryType MemoryType) *OutputConnector {
	output := &OutputConnector{
		owner:      n,
		name:       name,
		dataType:   dataType,
		shape:      shape.Clone(),
		memoryType: memoryType,
	}
	n.outputs = append(n.outputs, output)
	return output
}

func (n *Node) String() string {
	if n.name == "" {
		return fmt.Sprintf("<%s>", n.opcode)
	}
	return fmt.Sprintf("%s<%s>", n.name, n.opcode)
}
