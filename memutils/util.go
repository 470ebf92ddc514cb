package memutils

import (
	cerrors "github.com/cockroachdb/errors"
)

type Number interface {
	~int | ~uint
}

func CheckPow2[T Number](number T, name string) error {
	if number == 0 || number&(number-1) != 0 {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

// CheckRange verifies that [offset, offset+size) lies within a region of regionSize bytes
func CheckRange(offset, size, regionSize int) error {
	if offset < 0 || size < 0 || offset+size > regionSize {
		return cerrors.Wrapf(OutOfRangeError, "range [%d, %d) in region of %d bytes", offset, offset+size, regionSize)
	}
	return nil
}

func AlignUp(value int, alignment uint) int {
	return (value + int(alignment) - 1) & int(^(alignment - 1))
}

// RangesOverlap reports whether [firstOffset, firstOffset+firstSize) and
// [secondOffset, secondOffset+secondSize) share at least one byte. Empty ranges never overlap.
func RangesOverlap(firstOffset, firstSize, secondOffset, secondSize int) bool {
	if firstSize <= 0 || secondSize <= 0 {
		return false
	}

	return firstOffset < secondOffset+secondSize && secondOffset < firstOffset+firstSize
}
