package slab

// Allocatable is the allocation surface a type can expose for itself, typically by embedding
// Resource[T] in a package-level value or a factory struct
type Allocatable[T any] interface {
	New() (Ptr[T], error)
	NewWith(value T) (Ptr[T], error)
	NewShared() (SharedPtr[T], error)
	NewArray(count int) (Ptr[T], error)
	NewSharedArray(count int) (SharedPtr[T], error)
}

// Resource binds the allocation functions to one payload type and one allocator. The zero value
// allocates from Default().
type Resource[T any] struct {
	allocator *Allocator
}

var _ Allocatable[int64] = Resource[int64]{}

// ResourceOf returns a Resource that allocates from allocator
func ResourceOf[T any](allocator *Allocator) Resource[T] {
	return Resource[T]{allocator: allocator}
}

func (r Resource[T]) Allocator() *Allocator {
	if r.allocator == nil {
		return Default()
	}
	return r.allocator
}

func (r Resource[T]) New() (Ptr[T], error) {
	return Allocate[T](r.Allocator())
}

func (r Resource[T]) NewWith(value T) (Ptr[T], error) {
	return AllocateWith(r.Allocator(), value)
}

func (r Resource[T]) NewShared() (SharedPtr[T], error) {
	return AllocateShared[T](r.Allocator())
}

func (r Resource[T]) NewArray(count int) (Ptr[T], error) {
	return AllocateBuffer[T](r.Allocator(), count)
}

func (r Resource[T]) NewSharedArray(count int) (SharedPtr[T], error) {
	return AllocateSharedBuffer[T](r.Allocator(), count)
}
