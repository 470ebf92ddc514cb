package scheduler

import "github.com/vkngwrapper/tensorplan/ir"

// ViewAllocator is an InputAllocator for operators whose outputs are reinterpretations of their first
// input, such as reshapes and splits. The tensor feeding input 0 is placed normally and every output
// of node becomes a view of it, so the operator never receives buffers of its own. Tensors feeding
// any other input are placed normally.
func ViewAllocator(node *ir.Node, conn *ir.OutputConnector, ctx *AllocationContext) error {
	err := ctx.AllocateDefault(conn)
	if err != nil {
		return err
	}

	if len(node.Inputs()) == 0 || node.Input(0).Connection() != conn {
		return nil
	}

	for _, output := range node.Outputs() {
		// The same tensor can feed more than one input
		if ctx.Handle(output) != nil {
			continue
		}

		err = ctx.AllocateView(output, conn)
		if err != nil {
			return err
		}
	}

	return nil
}
