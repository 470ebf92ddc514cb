package ir

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

// MemoryType identifies the memory region a tensor lives in. Each memory type is served by its
// own allocator during scheduling.
type MemoryType uint32

const (
	// MemoryConstant is read-only storage for weights and other constants. Buffers in this region
	// are never reclaimed while a schedule is running.
	MemoryConstant MemoryType = iota
	// MemoryShared is the main device-visible region that most intermediate tensors live in
	MemoryShared
	// MemoryScratch is a small, fast region reserved for short-lived temporaries
	MemoryScratch
)

var memoryTypeNamesLock sync.RWMutex

var memoryTypeNames = map[MemoryType]string{
	MemoryConstant: "constant",
	MemoryShared:   "shared",
	MemoryScratch:  "scratch",
}

// Register names a target-specific memory type so that it can be printed and parsed. It is safe to
// call concurrently with parsing, but registration is expected to happen during program initialization.
func (t MemoryType) Register(name string) {
	memoryTypeNamesLock.Lock()
	defer memoryTypeNamesLock.Unlock()

	memoryTypeNames[t] = strings.ToLower(name)
}

func (t MemoryType) String() string {
	memoryTypeNamesLock.RLock()
	name, ok := memoryTypeNames[t]
	memoryTypeNamesLock.RUnlock()

	if !ok {
		return fmt.Sprintf("MemoryType(%d)", t)
	}
	return name
}

// ParseMemoryType resolves a registered memory type name, e.g. "shared"
func ParseMemoryType(name string) (MemoryType, error) {
	name = strings.ToLower(strings.TrimSpace(name))

	memoryTypeNamesLock.RLock()
	defer memoryTypeNamesLock.RUnlock()

	for memoryType, memoryTypeName := range memoryTypeNames {
		if memoryTypeName == name {
			return memoryType, nil
		}
	}

	return 0, errors.Newf("unknown memory type: %q", name)
}

func (t *MemoryType) UnmarshalText(text []byte) error {
	memoryType, err := ParseMemoryType(string(text))
	if err != nil {
		return err
	}

	*t = memoryType
	return nil
}

func (t MemoryType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}
