package ir

import (
	"github.com/cockroachdb/errors"
)

type visitState uint8

const (
	visitStateNone visitState = iota
	visitStateActive
	visitStateDone
)

// Visit walks every node reachable from roots by following producer edges and calls visit once
// per node, in depth-first post-order: a node is only visited after all of the nodes feeding its
// inputs. Inputs are followed in declaration order and roots are processed in the order provided,
// so the walk is deterministic.
//
// An error is returned if an input is unconnected or the graph contains a cycle. Any error returned
// by visit stops the walk and is returned unchanged.
func Visit(roots []*Node, visit func(node *Node) error) error {
	states := make(map[*Node]visitState)

	var walk func(node *Node) error
	walk = func(node *Node) error {
		switch states[node] {
		case visitStateDone:
			return nil
		case visitStateActive:
			return errors.Newf("graph contains a cycle through node %s", node)
		}

		states[node] = visitStateActive
		for _, input := range node.inputs {
			if input.connection == nil {
				return errors.Newf("input %s is not connected", input)
			}

			err := walk(input.connection.owner)
			if err != nil {
				return err
			}
		}
		states[node] = visitStateDone

		return visit(node)
	}

	for _, root := range roots {
		if root == nil {
			return errors.New("cannot visit a nil root node")
		}

		err := walk(root)
		if err != nil {
			return err
		}
	}

	return nil
}

// Collect returns every node reachable from roots in the order Visit would visit them
func Collect(roots []*Node) ([]*Node, error) {
	var nodes []*Node
	err := Visit(roots, func(node *Node) error {
		nodes = append(nodes, node)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return nodes, nil
}
