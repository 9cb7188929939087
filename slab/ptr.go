package slab

import "unsafe"

// Ptr is the unique owner of a payload in slab storage. The zero value is a null handle.
//
// A Ptr must be destroyed with Reset, handed off with Move, Share or ShareLocal, or detached with
// Release. Assigning a Ptr to another variable copies the handle without transferring ownership.
type Ptr[T any] struct {
	block Block
	ptr   *T
}

func (p *Ptr[T]) IsNull() bool {
	return p.ptr == nil
}

// Get returns the typed payload pointer, or nil for a null handle
func (p *Ptr[T]) Get() *T {
	return p.ptr
}

// Value returns a copy of the first element. It panics on a null handle.
func (p *Ptr[T]) Value() T {
	return *p.ptr
}

// Len is the number of constructed elements: 1 for scalar allocations, the requested count for
// buffers and 0 for a null handle
func (p *Ptr[T]) Len() int {
	if p.ptr == nil {
		return 0
	}
	return p.block.ElementCount()
}

// Slice exposes every element of the payload
func (p *Ptr[T]) Slice() []T {
	if p.ptr == nil {
		return nil
	}
	return unsafe.Slice(p.ptr, p.block.ElementCount())
}

// At returns a pointer to element i. It panics if i is out of range.
func (p *Ptr[T]) At(i int) *T {
	return &p.Slice()[i]
}

// Block returns the block the payload lives in
func (p *Ptr[T]) Block() Block {
	return p.block
}

// Capacity is the number of addressable bytes from the payload pointer to the end of its block
func (p *Ptr[T]) Capacity() int {
	return capacity(p.block, unsafe.Pointer(p.ptr))
}

// Move transfers ownership to the returned handle and leaves p null
func (p *Ptr[T]) Move() Ptr[T] {
	moved := *p
	*p = Ptr[T]{}
	return moved
}

// Release detaches the block and payload from p without destroying them. The caller becomes
// responsible for calling Block.Destroy.
func (p *Ptr[T]) Release() (Block, *T) {
	block, ptr := p.block, p.ptr
	*p = Ptr[T]{}
	return block, ptr
}

// Reset destroys the payload, if any, and leaves p null
func (p *Ptr[T]) Reset() {
	block := p.block
	*p = Ptr[T]{}

	if !block.IsNull() {
		block.destroy(true)
	}
}

// ResetTo destroys the current payload and takes ownership of other's. other is left null.
// Resetting a handle to itself does nothing.
func (p *Ptr[T]) ResetTo(other *Ptr[T]) {
	if p == other {
		return
	}

	moved := other.Move()
	p.Reset()
	*p = moved
}

// Share converts p into a shared handle with a single owner and leaves p null
func (p *Ptr[T]) Share() SharedPtr[T] {
	block, ptr := p.Release()
	return SharedPtr[T]{block: block, ptr: ptr}
}

// ShareLocal converts p into a shared handle whose reference count is updated with plain loads
// and stores. The handle and all of its clones must stay on one goroutine for their whole life;
// this is not checked.
func (p *Ptr[T]) ShareLocal() SharedPtr[T] {
	block, ptr := p.Release()
	if !block.IsNull() {
		block.header.flags.localReferences = true
	}
	return SharedPtr[T]{block: block, ptr: ptr}
}
