package slab

import "github.com/cockroachdb/errors"

var (
	// ErrSourceExhausted is returned when the memory source could not provide storage for a block
	ErrSourceExhausted = errors.New("memory source returned no storage")
	// ErrAlignment is returned when no aligned placement of the payload fits inside the drawn block
	ErrAlignment = errors.New("no aligned placement fits inside the block")
	// ErrPointerType is returned when the requested type holds Go pointers, which slab storage cannot hold
	ErrPointerType = errors.New("type contains Go pointers and cannot be placed in slab storage")
	// ErrInvalidCount is returned when a buffer is requested with a negative element count
	ErrInvalidCount = errors.New("element count must not be negative")
	// ErrPreallocate is returned when a pool could not fill all of its slots
	ErrPreallocate = errors.New("failed to preallocate pool")
)
