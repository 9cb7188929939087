package source

import "unsafe"

type AllocateCallback func(
	ptr unsafe.Pointer,
	size int,
	alignment uint,
	userData any,
)

type FreeCallback func(
	ptr unsafe.Pointer,
	userData any,
)

// CallbackOptions is an optional set of callbacks executed whenever storage actually moves
// between the allocator and its source. Draws served from a pool slot do not trigger them.
type CallbackOptions struct {
	Allocate AllocateCallback
	Free     FreeCallback
	UserData any
}

type callbackSource struct {
	inner     Source
	callbacks *CallbackOptions
}

// WithCallbacks wraps inner so that the provided callbacks observe every successful allocation
// and every free. A nil callbacks value returns inner unchanged.
func WithCallbacks(inner Source, callbacks *CallbackOptions) Source {
	if callbacks == nil {
		return inner
	}

	return &callbackSource{inner: inner, callbacks: callbacks}
}

func (s *callbackSource) Allocate(size int, alignment uint) unsafe.Pointer {
	ptr := s.inner.Allocate(size, alignment)
	if ptr != nil && s.callbacks.Allocate != nil {
		s.callbacks.Allocate(ptr, size, alignment, s.callbacks.UserData)
	}
	return ptr
}

func (s *callbackSource) Free(ptr unsafe.Pointer) {
	if ptr != nil && s.callbacks.Free != nil {
		s.callbacks.Free(ptr, s.callbacks.UserData)
	}
	s.inner.Free(ptr)
}
