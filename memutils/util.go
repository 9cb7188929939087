package memutils

import (
	"unsafe"

	cerrors "github.com/cockroachdb/errors"
	"golang.org/x/exp/constraints"
)

// DefaultAlignment is the alignment every raw storage region handed out by a memory source
// must honor. It matches the alignment of a machine word.
const DefaultAlignment uint = uint(unsafe.Alignof(uintptr(0)))

// CheckPow2 returns an error wrapping PowerOfTwoError if number is zero or not a power of two
func CheckPow2[T constraints.Integer](number T, name string) error {
	if number <= 0 || number&(number-1) != 0 {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

// CheckAlignment returns an error wrapping AlignmentError if value is not a multiple of alignment
func CheckAlignment(value int, alignment uint, name string) error {
	if AlignUp(value, alignment) != value {
		return cerrors.Wrapf(AlignmentError, "%s is %d, alignment is %d", name, value, alignment)
	}
	return nil
}

func AlignUp(value int, alignment uint) int {
	return (value + int(alignment) - 1) & int(^(alignment - 1))
}

// AlignPointer returns the first address at or after ptr that is a multiple of alignment.
// alignment must be a power of two.
func AlignPointer(ptr unsafe.Pointer, alignment uintptr) unsafe.Pointer {
	addr := uintptr(ptr)
	padding := ((addr + alignment - 1) &^ (alignment - 1)) - addr
	return unsafe.Add(ptr, padding)
}

// IsAligned reports whether ptr is a multiple of alignment
func IsAligned(ptr unsafe.Pointer, alignment uintptr) bool {
	return uintptr(ptr)&(alignment-1) == 0
}
