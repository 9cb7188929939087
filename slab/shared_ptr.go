package slab

import "unsafe"

// SharedPtr is a reference-counted owner of a payload in slab storage. The zero value is a null
// handle. Every handle obtained from AllocateShared, Share or Clone must be released exactly once,
// and the Release that drops the last reference destroys the payload.
type SharedPtr[T any] struct {
	block Block
	ptr   *T
}

func (p *SharedPtr[T]) IsNull() bool {
	return p.ptr == nil
}

func (p *SharedPtr[T]) Get() *T {
	return p.ptr
}

// Value returns a copy of the first element. It panics on a null handle.
func (p *SharedPtr[T]) Value() T {
	return *p.ptr
}

func (p *SharedPtr[T]) Len() int {
	if p.ptr == nil {
		return 0
	}
	return p.block.ElementCount()
}

func (p *SharedPtr[T]) Slice() []T {
	if p.ptr == nil {
		return nil
	}
	return unsafe.Slice(p.ptr, p.block.ElementCount())
}

func (p *SharedPtr[T]) At(i int) *T {
	return &p.Slice()[i]
}

func (p *SharedPtr[T]) Block() Block {
	return p.block
}

// Capacity is the number of addressable bytes from the payload pointer to the end of its block
func (p *SharedPtr[T]) Capacity() int {
	return capacity(p.block, unsafe.Pointer(p.ptr))
}

// References returns the current number of owners, or 0 for a null handle
func (p *SharedPtr[T]) References() int {
	if p.block.IsNull() {
		return 0
	}
	return p.block.References()
}

// Clone adds an owner and returns its handle. If the payload is already being destroyed, the
// reference count is left at zero and a null handle is returned.
func (p *SharedPtr[T]) Clone() SharedPtr[T] {
	if p.block.IsNull() || !p.block.header.addReference() {
		return SharedPtr[T]{}
	}

	return SharedPtr[T]{block: p.block, ptr: p.ptr}
}

// Release drops this owner and leaves p null. The last owner to release destroys the payload.
func (p *SharedPtr[T]) Release() {
	block := p.block
	*p = SharedPtr[T]{}

	if !block.IsNull() && block.header.releaseReference() {
		block.destroy(true)
	}
}

// Assign makes p another owner of other's payload, releasing whatever p held before. Assigning a
// handle to itself, or to a handle of the same block, does nothing.
func (p *SharedPtr[T]) Assign(other *SharedPtr[T]) {
	if p == other || (p.block.header == other.block.header && p.ptr == other.ptr) {
		return
	}

	clone := other.Clone()
	p.Release()
	*p = clone
}

// MoveFrom releases p's current payload and takes over other's reference. other is left null.
// Moving a handle into itself does nothing.
func (p *SharedPtr[T]) MoveFrom(other *SharedPtr[T]) {
	if p == other {
		return
	}

	moved := other.Move()
	p.Release()
	*p = moved
}

// Move transfers this reference to the returned handle and leaves p null
func (p *SharedPtr[T]) Move() SharedPtr[T] {
	moved := *p
	*p = SharedPtr[T]{}
	return moved
}
