package slab

import (
	"sync/atomic"

	"golang.org/x/exp/slog"
)

var defaultAllocator atomic.Pointer[Allocator]

// Initialize creates an allocator, preallocates its pools and installs it as the process-wide
// default. If the pools could not be filled the allocator is still installed and returned along
// with the error, so the caller can decide whether that is fatal.
//
// Initialize replaces any previously installed default. Blocks allocated from the old default
// keep returning to its pools.
func Initialize(logger *slog.Logger, options CreateOptions) (*Allocator, error) {
	options.Flags &^= AllocatorCreatePreallocate

	allocator, err := New(logger, options)
	if err != nil {
		return nil, err
	}

	defaultAllocator.Store(allocator)
	return allocator, allocator.Initialize()
}

// Default returns the process-wide allocator. If Initialize was never called, an allocator
// with default options and empty pools is created on first use.
func Default() *Allocator {
	allocator := defaultAllocator.Load()
	if allocator != nil {
		return allocator
	}

	created, err := New(nil, CreateOptions{})
	if err != nil {
		// Default options always validate
		panic(err)
	}

	if defaultAllocator.CompareAndSwap(nil, created) {
		return created
	}
	return defaultAllocator.Load()
}
