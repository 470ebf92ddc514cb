package memory

import "github.com/cockroachdb/errors"

// ErrOutOfMemory is returned from Allocator.Allocate when the region has no free range large enough
// for the request
var ErrOutOfMemory = errors.New("out of memory")
