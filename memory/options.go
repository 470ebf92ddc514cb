package memory

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/tensorplan/memutils/metadata"
)

// CreateFlags indicate specific allocator behaviors to activate or deactivate
type CreateFlags int32

const (
	// AllocatorCreateExternallySynchronized ensures that this allocator and the buffers created from it
	// will not be synchronized internally. The consumer must guarantee they are used from only one
	// goroutine at a time or are synchronized by some other mechanism.
	AllocatorCreateExternallySynchronized CreateFlags = 1 << iota
)

var createFlagsMapping = map[CreateFlags]string{
	AllocatorCreateExternallySynchronized: "AllocatorCreateExternallySynchronized",
}

func (f CreateFlags) String() string {
	var names []string
	for flag, name := range createFlagsMapping {
		if f&flag != 0 {
			names = append(names, name)
		}
	}

	if len(names) == 0 {
		return "None"
	}
	return strings.Join(names, "|")
}

// Algorithm selects the bookkeeping used to place buffers within a region
type Algorithm uint32

const (
	// AlgorithmTLSF places buffers with a two-level segregated fit allocator. Released buffers become
	// available to any later request that fits in them.
	AlgorithmTLSF Algorithm = iota
	// AlgorithmLinear places buffers on a stack. Released space is only reused once every buffer above
	// it has also been released, which suits regions whose buffers are never released, such as constants.
	AlgorithmLinear
)

var algorithmMapping = map[Algorithm]string{
	AlgorithmTLSF:   "tlsf",
	AlgorithmLinear: "linear",
}

func (a Algorithm) String() string {
	return algorithmMapping[a]
}

func (a *Algorithm) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for algorithm, algorithmName := range algorithmMapping {
		if algorithmName == name {
			*a = algorithm
			return nil
		}
	}

	return errors.Newf("unknown allocation algorithm: %q", string(text))
}

func (a Algorithm) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a Algorithm) newMetadata() (metadata.BlockMetadata, error) {
	switch a {
	case AlgorithmTLSF:
		return metadata.NewTLSFBlockMetadata(), nil
	case AlgorithmLinear:
		return metadata.NewLinearBlockMetadata(), nil
	}

	return nil, errors.Newf("unknown allocation algorithm: %d", a)
}

const (
	// DefaultRegionSize is the region size used when none is provided via CreateOptions. It is equal to 1Gb.
	DefaultRegionSize int = 1024 * 1024 * 1024
	// DefaultAlignment is the buffer alignment used when none is provided via CreateOptions
	DefaultAlignment uint = 8
)

// CreateOptions contains optional settings when creating an allocator
type CreateOptions struct {
	// Flags indicates specific allocator behaviors to activate or deactivate
	Flags CreateFlags
	// Algorithm selects how buffers are placed within the region
	Algorithm Algorithm
	// Size is the number of bytes in the region. If 0, DefaultRegionSize is used.
	Size int
	// Alignment is the alignment of every buffer's start offset and size. It must be a power of
	// two. If 0, DefaultAlignment is used.
	Alignment uint
	// Strategy is passed to the region's metadata when choosing where to place a buffer. If 0,
	// metadata.AllocationStrategyMinMemory is used, so that released ranges are reused as tightly
	// as possible.
	Strategy metadata.AllocationStrategy
}

func (o CreateOptions) withDefaults() CreateOptions {
	if o.Size == 0 {
		o.Size = DefaultRegionSize
	}
	if o.Alignment == 0 {
		o.Alignment = DefaultAlignment
	}
	if o.Strategy == 0 {
		o.Strategy = metadata.AllocationStrategyMinMemory
	}
	return o
}
