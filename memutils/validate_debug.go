//go:build debug_slabs

package memutils

import "unsafe"

const (
	// DebugMargin is the number of bytes at the start of a released block's payload that are
	// poisoned while the block sits in a pool slot
	DebugMargin int = 16
	// releasedMagicValue is a 4-byte pattern copied into released payloads
	releasedMagicValue uint32 = 0x7F84E666
)

// PoisonReleased writes an easy-to-identify marker across the first DebugMargin bytes at data,
// or fewer if size is smaller. This method no-ops unless the debug_slabs build tag is present.
func PoisonReleased(data unsafe.Pointer, size int) {
	count := min(DebugMargin, size) / int(unsafe.Sizeof(uint32(0)))
	for i := 0; i < count; i++ {
		*(*uint32)(data) = releasedMagicValue
		data = unsafe.Add(data, unsafe.Sizeof(uint32(0)))
	}
}

// CheckReleased verifies that the marker written by PoisonReleased is still present. It returns
// false if something wrote into the block after it was released.
// This method always returns true unless the debug_slabs build tag is present.
func CheckReleased(data unsafe.Pointer, size int) bool {
	count := min(DebugMargin, size) / int(unsafe.Sizeof(uint32(0)))
	for i := 0; i < count; i++ {
		if *(*uint32)(data) != releasedMagicValue {
			return false
		}
		data = unsafe.Add(data, unsafe.Sizeof(uint32(0)))
	}

	return true
}

// DebugValidate will call Validate on the provided object and panics if any errors are returned. This
// method no-ops unless the debug_slabs build tag is present
func DebugValidate(validatable Validatable) {
	err := validatable.Validate()
	if err != nil {
		panic(err)
	}
}
