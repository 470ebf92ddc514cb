package metadata

import "math"

// BlockAllocationHandle identifies a single allocation within a BlockMetadata
type BlockAllocationHandle uint64

const (
	NoAllocation BlockAllocationHandle = math.MaxUint64
)

// Suballocation is a single range of a block, either live or freed
type Suballocation struct {
	Offset   int
	Size     int
	UserData any
	Free     bool
}
