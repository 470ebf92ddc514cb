package ir

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

// OpCode is the operator kind of a graph node
type OpCode uint32

const (
	// OpInput produces a graph input. Its outputs stay pinned for the whole schedule.
	OpInput OpCode = iota
	// OpOutput is a graph output sink. The values it consumes are the program's results.
	OpOutput
	// OpConstant produces a constant tensor, usually placed in MemoryConstant
	OpConstant
	OpReshape
	OpBitcast
	OpSplit
	OpConcat
	OpTranspose
	OpConv2D
	OpMatMul
	OpBinary
	OpUnary
	OpReduce
	OpPad
	OpQuantize
	OpDequantize
)

var opCodeNamesLock sync.RWMutex

var opCodeNames = map[OpCode]string{
	OpInput:      "input",
	OpOutput:     "output",
	OpConstant:   "constant",
	OpReshape:    "reshape",
	OpBitcast:    "bitcast",
	OpSplit:      "split",
	OpConcat:     "concat",
	OpTranspose:  "transpose",
	OpConv2D:     "conv2d",
	OpMatMul:     "matmul",
	OpBinary:     "binary",
	OpUnary:      "unary",
	OpReduce:     "reduce",
	OpPad:        "pad",
	OpQuantize:   "quantize",
	OpDequantize: "dequantize",
}

// Register names a target-specific operator kind so that it can be printed and parsed. It is safe to
// call concurrently with parsing, but registration is expected to happen during program initialization:
// renaming an operator kind while graphs are being loaded changes how later names resolve.
func (o OpCode) Register(name string) {
	opCodeNamesLock.Lock()
	defer opCodeNamesLock.Unlock()

	opCodeNames[o] = strings.ToLower(name)
}

func (o OpCode) String() string {
	opCodeNamesLock.RLock()
	name, ok := opCodeNames[o]
	opCodeNamesLock.RUnlock()

	if !ok {
		return fmt.Sprintf("OpCode(%d)", o)
	}
	return name
}

// ParseOpCode resolves a registered operator kind name, e.g. "conv2d"
func ParseOpCode(name string) (OpCode, error) {
	name = strings.ToLower(strings.TrimSpace(name))

	opCodeNamesLock.RLock()
	defer opCodeNamesLock.RUnlock()

	for opCode, opCodeName := range opCodeNames {
		if opCodeName == name {
			return opCode, nil
		}
	}

	return 0, errors.Newf("unknown opcode: %q", name)
}

func (o *OpCode) UnmarshalText(text []byte) error {
	opCode, err := ParseOpCode(string(text))
	if err != nil {
		return err
	}

	*o = opCode
	return nil
}

func (o OpCode) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}
