package metadata

// AllocationRequestType is an enum that indicates the type of allocation that is being made.
// It is returned in AllocationRequest from CreateAllocationRequest
type AllocationRequestType uint32

const (
	// AllocationRequestTLSF indicates that the allocation request was sourced from metadata.TLSFBlockMetadata
	AllocationRequestTLSF AllocationRequestType = iota
	// AllocationRequestEndOfStack indicates that the allocation request was sourced from metadata.LinearBlockMetadata
	// and that it is an allocation to be added to the top of the stack
	AllocationRequestEndOfStack
)

var allocationRequestMapping = map[AllocationRequestType]string{
	AllocationRequestTLSF:       "TLSF",
	AllocationRequestEndOfStack: "EndOfStack",
}

func (t AllocationRequestType) String() string {
	return allocationRequestMapping[t]
}

// AllocationRequest is a type returned from BlockMetadata.CreateAllocationRequest which indicates where and how
// the metadata intends to allocate new memory. It can be committed to the metadata with BlockMetadata.Alloc
type AllocationRequest struct {
	// BlockAllocationHandle is a numeric handle used to identify individual allocations within the metadata.
	// Once the request is committed, it identifies the new allocation.
	BlockAllocationHandle BlockAllocationHandle
	// Size the total size of the allocation
	Size int
	// Type identifies the sort of allocation this request represents (and can be used
	// to identify the BlockMetadata implementation used to generate this request).
	Type AllocationRequestType

	// AlgorithmData is arbitrary data used by the BlockMetadata implementation for internal
	// purposes
	AlgorithmData uint64
}
