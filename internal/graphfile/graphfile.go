// Package graphfile loads computation graphs described in YAML.
//
// A graph file lists nodes in any order. Inputs refer to the output that feeds them either as
// "node" (the node's first output) or "node.output":
//
//	nodes:
//	  - name: in
//	    op: input
//	    outputs:
//	      - {dtype: float32, shape: [1, 256], memory: shared}
//	  - name: relu
//	    op: unary
//	    inputs: [in]
//	    outputs:
//	      - {dtype: float32, shape: [1, 256]}
//	  - name: out
//	    op: output
//	    inputs: [relu.output]
package graphfile

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/tensorplan/ir"
	"gopkg.in/yaml.v3"
)

type File struct {
	Nodes []NodeDecl `yaml:"nodes"`
}

type NodeDecl struct {
	Name    string       `yaml:"name"`
	Op      ir.OpCode    `yaml:"op"`
	Inputs  []InputDecl  `yaml:"inputs,omitempty"`
	Outputs []OutputDecl `yaml:"outputs,omitempty"`
}

// InputDecl is written either as a bare reference string or as a mapping with name and from keys
type InputDecl struct {
	Name string `yaml:"name,omitempty"`
	From string `yaml:"from"`
}

func (s *InputDecl) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		s.From = value.Value
		return nil
	}

	type plain InputDecl
	return value.Decode((*plain)(s))
}

type OutputDecl struct {
	Name     string      `yaml:"name,omitempty"`
	DataType ir.DataType `yaml:"dtype"`
	Shape    ir.Shape    `yaml:"shape,flow"`
	// Memory defaults to constant for constant nodes and shared for everything else
	Memory *ir.MemoryType `yaml:"memory,omitempty"`
}

// Graph is a loaded graph. Sinks holds every output node in file order.
type Graph struct {
	Nodes []*ir.Node
	Sinks []*ir.Node

	byName map[string]*ir.Node
}

// Node returns the node with the provided name, or nil
func (g *Graph) Node(name string) *ir.Node {
	return g.byName[name]
}

// Output resolves a "node" or "node.output" reference
func (g *Graph) Output(ref string) (*ir.OutputConnector, error) {
	node, ok := g.byName[ref]
	if ok {
		if len(node.Outputs()) == 0 {
			return nil, errors.Newf("node %s has no outputs", node)
		}
		return node.Output(0), nil
	}

	dot := strings.LastIndexByte(ref, '.')
	if dot < 0 {
		return nil, errors.Newf("unknown node %q", ref)
	}

	node, ok = g.byName[ref[:dot]]
	if !ok {
		return nil, errors.Newf("unknown node %q", ref[:dot])
	}

	return node.OutputByName(ref[dot+1:])
}

func Parse(data []byte) (*Graph, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var file File
	err := decoder.Decode(&file)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse graph")
	}

	return file.Build()
}

func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read graph %s", path)
	}

	graph, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "in %s", path)
	}
	return graph, nil
}

// Build creates the described nodes and connects them. Outputs are created for every node before
// any input is connected, so references may point forward.
func (f *File) Build() (*Graph, error) {
	if len(f.Nodes) == 0 {
		return nil, errors.New("graph has no nodes")
	}

	graph := &Graph{
		byName: make(map[string]*ir.Node, len(f.Nodes)),
	}

	for _, decl := range f.Nodes {
		if decl.Name == "" {
			return nil, errors.Newf("%s node has no name", decl.Op)
		}
		_, duplicate := graph.byName[decl.Name]
		if duplicate {
			return nil, errors.Newf("node %q is declared more than once", decl.Name)
		}

		node, err := decl.newNode()
		if err != nil {
			return nil, err
		}

		graph.byName[decl.Name] = node
		graph.Nodes = append(graph.Nodes, node)
	}

	for i, decl := range f.Nodes {
		err := decl.connect(graph, graph.Nodes[i])
		if err != nil {
			return nil, err
		}

		if decl.Op == ir.OpOutput {
			graph.Sinks = append(graph.Sinks, graph.Nodes[i])
		}
	}

	if len(graph.Sinks) == 0 {
		return nil, errors.New("graph has no output nodes")
	}

	return graph, nil
}

func (s *NodeDecl) newNode() (*ir.Node, error) {
	switch s.Op {
	case ir.OpOutput:
		if len(s.Inputs) != 1 || len(s.Outputs) != 0 {
			return nil, errors.Newf("output node %q must have exactly one input and no outputs", s.Name)
		}
	case ir.OpInput, ir.OpConstant:
		if len(s.Inputs) != 0 || len(s.Outputs) != 1 {
			return nil, errors.Newf("%s node %q must have exactly one output and no inputs", s.Op, s.Name)
		}
	}

	node := ir.NewNode(s.Op, s.Name)
	for i, output := range s.Outputs {
		name := output.Name
		if name == "" {
			name = defaultOutputName(i, len(s.Outputs))
		}

		memoryType := ir.MemoryShared
		if s.Op == ir.OpConstant {
			memoryType = ir.MemoryConstant
		}
		if output.Memory != nil {
			memoryType = *output.Memory
		}

		err := output.DataType.CheckShape(output.Shape)
		if err != nil {
			return nil, errors.Wrapf(err, "output %s of node %q", name, s.Name)
		}

		node.AddOutput(name, output.DataType, output.Shape, memoryType)
	}

	return node, nil
}

// connect adds one input connector per input reference. Inputs take the element type and shape of
// the output they reference.
func (s *NodeDecl) connect(graph *Graph, node *ir.Node) error {
	for i, input := range s.Inputs {
		producer, err := graph.Output(input.From)
		if err != nil {
			return errors.Wrapf(err, "failed to resolve input %d of %s", i, node)
		}

		name := input.Name
		if name == "" {
			name = defaultInputName(i, len(s.Inputs))
		}

		err = node.AddInput(name, producer.DataType(), producer.Shape()).Connect(producer)
		if err != nil {
			return err
		}
	}

	return nil
}

func defaultOutputName(index, count int) string {
	if count == 1 {
		return "output"
	}
	return fmt.Sprintf("output%d", index)
}

func defaultInputName(index, count int) string {
	if count == 1 {
		return "input"
	}
	return fmt.Sprintf("input%d", index)
}
