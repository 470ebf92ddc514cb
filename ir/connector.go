package ir

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// OutputConnector is a point where a node produces a tensor. The connector records the tensor's
// metadata and the input connectors that consume it; where the tensor is placed in memory is
// decided by the scheduler and tracked outside the graph.
type OutputConnector struct {
	owner       *Node
	name        string
	dataType    DataType
	shape       Shape
	memoryType  MemoryType
	connections []*InputConnector
}

func (c *OutputConnector) Owner() *Node                    { return c.owner }
func (c *OutputConnector) Name() string                    { return c.name }
func (c *OutputConnector) DataType() DataType              { return c.dataType }
func (c *OutputConnector) Shape() Shape                    { return c.shape }
func (c *OutputConnector) MemoryType() MemoryType          { return c.memoryType }
func (c *OutputConnector) Connections() []*InputConnector { return c.connections }

// SetMemoryType moves this connector's tensor to another memory region. Graph passes may call
// this before scheduling; it must not be called while a schedule is running.
func (c *OutputConnector) SetMemoryType(memoryType MemoryType) {
	c.memoryType = memoryType
}

// Bytes returns the unpadded size of the tensor produced at this connector
func (c *OutputConnector) Bytes() int {
	return c.dataType.Size() * c.shape.Elements()
}

func (c *OutputConnector) String() string {
	return fmt.Sprintf("%s.%s", c.owner, c.name)
}

// InputConnector is a point where a node consumes a tensor. Every input connector is fed by
// exactly one output connector.
type InputConnector struct {
	owner      *Node
	name       string
	dataType   DataType
	shape      Shape
	connection *OutputConnector
}

func (c *InputConnector) Owner() *Node                 { return c.owner }
func (c *InputConnector) Name() string                 { return c.name }
func (c *InputConnector) DataType() DataType           { return c.dataType }
func (c *InputConnector) Shape() Shape                 { return c.shape }
func (c *InputConnector) Connection() *OutputConnector { return c.connection }

// Connect attaches this input to the output connector that produces its value. The element type and
// shape of both connectors must match, and an input can only be connected once.
func (c *InputConnector) Connect(producer *OutputConnector) error {
	if producer == nil {
		return errors.Newf("input %s cannot be connected to a nil output", c)
	}
	if c.connection != nil {
		return errors.Newf("input %s is already connected to %s", c, c.connection)
	}
	if producer.dataType != c.dataType {
		return errors.Newf("cannot connect %s (%s) to %s (%s): data types differ", producer, producer.dataType, c, c.dataType)
	}
	if !producer.shape.Equal(c.shape) {
		return errors.Newf("cannot connect %s %s to %s %s: shapes differ", producer, producer.shape, c, c.shape)
	}

	c.connection = producer
	producer.connections = append(producer.connections, c)
	return nil
}

func (c *InputConnector) String() string {
	return fmt.Sprintf("%s.%s", c.owner, c.name)
}
