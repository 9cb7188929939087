// Package source defines the boundary between the slab allocator and the memory it is carved from.
//
// A Source hands out raw, pointer-free storage. Implementations must be safe to call from any
// goroutine without external locking: the allocator never synchronizes around them.
package source

import "unsafe"

//go:generate mockgen -source source.go -destination mocks/mock_source.go -package mocks

// Source is a process-wide supplier of raw storage
type Source interface {
	// Allocate returns size bytes aligned to alignment, or nil if no storage is available.
	// alignment must be a power of two; 0 selects memutils.DefaultAlignment.
	Allocate(size int, alignment uint) unsafe.Pointer
	// Free gives storage obtained from Allocate back to the source
	Free(ptr unsafe.Pointer)
}
