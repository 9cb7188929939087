package slab

import (
	"math"
	"reflect"

	"github.com/cockroachdb/errors"
)

// placeElements draws a block for count elements of T and aligns the payload inside it. The
// returned payload is zeroed unless raw is set.
func placeElements[T any](a *Allocator, count int, raw bool) (Block, *T, *typeInfo, error) {
	if a == nil {
		a = Default()
	}

	info := typeInfoFor[T]()
	if !info.pointerFree {
		return Block{}, nil, nil, errors.Wrapf(ErrPointerType, "%s", reflect.TypeOf((*T)(nil)).Elem())
	}

	if count < 0 {
		return Block{}, nil, nil, errors.Wrapf(ErrInvalidCount, "requested %d elements of %s", count, reflect.TypeOf((*T)(nil)).Elem())
	}

	if count > (math.MaxInt-info.alignment-headerSize)/max(info.size, 1) {
		return Block{}, nil, nil, errors.Wrapf(ErrInvalidCount, "%d elements of %s do not fit in an int-sized block",
			count, reflect.TypeOf((*T)(nil)).Elem())
	}

	length := info.size * count
	block, err := a.allocBlock(length+info.alignment, info.size, count)
	if err != nil {
		return Block{}, nil, nil, err
	}

	ptr, ok := block.alignPayload(info.alignment, length)
	if !ok {
		block.destroy(false)
		return Block{}, nil, nil, errors.Wrapf(ErrAlignment, "%d bytes aligned to %d in a %s block",
			length, info.alignment, block.header.class)
	}

	if raw {
		block.header.flags.skipDestructor = true
	} else {
		clear(block.Bytes()[block.header.offset : block.header.offset+length])
	}

	return block, (*T)(ptr), info, nil
}

// install records the destroy action once the payload is fully constructed
func install[T any](block Block, ptr *T, info *typeInfo) Ptr[T] {
	block.header.destructor = info.id
	return Ptr[T]{block: block, ptr: ptr}
}

// Allocate constructs a T in slab storage. The payload is zeroed and, if *T implements
// Constructor, Construct is called on it. A nil allocator selects Default().
func Allocate[T any](a *Allocator) (Ptr[T], error) {
	block, ptr, info, err := placeElements[T](a, 1, false)
	if err != nil {
		return Ptr[T]{}, err
	}

	constructElements(ptr, 1)
	return install(block, ptr, info), nil
}

// AllocateWith copies value into slab storage
func AllocateWith[T any](a *Allocator, value T) (Ptr[T], error) {
	block, ptr, info, err := placeElements[T](a, 1, false)
	if err != nil {
		return Ptr[T]{}, err
	}

	*ptr = value
	return install(block, ptr, info), nil
}

// AllocateFunc constructs a T in slab storage by calling init on the zeroed payload
func AllocateFunc[T any](a *Allocator, init func(*T)) (Ptr[T], error) {
	block, ptr, info, err := placeElements[T](a, 1, false)
	if err != nil {
		return Ptr[T]{}, err
	}

	if init != nil {
		init(ptr)
	}
	return install(block, ptr, info), nil
}

// AllocateBuffer constructs count contiguous elements of T, each the way Allocate would
func AllocateBuffer[T any](a *Allocator, count int) (Ptr[T], error) {
	block, ptr, info, err := placeElements[T](a, count, false)
	if err != nil {
		return Ptr[T]{}, err
	}

	constructElements(ptr, count)
	return install(block, ptr, info), nil
}

// AllocateRawBuffer reserves room for count elements of T without zeroing or constructing them.
// Destruct is never called on the elements of a raw buffer.
func AllocateRawBuffer[T any](a *Allocator, count int) (Ptr[T], error) {
	block, ptr, info, err := placeElements[T](a, count, true)
	if err != nil {
		return Ptr[T]{}, err
	}

	return install(block, ptr, info), nil
}

func AllocateShared[T any](a *Allocator) (SharedPtr[T], error) {
	ptr, err := Allocate[T](a)
	if err != nil {
		return SharedPtr[T]{}, err
	}

	return ptr.Share(), nil
}

func AllocateSharedWith[T any](a *Allocator, value T) (SharedPtr[T], error) {
	ptr, err := AllocateWith(a, value)
	if err != nil {
		return SharedPtr[T]{}, err
	}

	return ptr.Share(), nil
}

func AllocateSharedFunc[T any](a *Allocator, init func(*T)) (SharedPtr[T], error) {
	ptr, err := AllocateFunc(a, init)
	if err != nil {
		return SharedPtr[T]{}, err
	}

	return ptr.Share(), nil
}

func AllocateSharedBuffer[T any](a *Allocator, count int) (SharedPtr[T], error) {
	ptr, err := AllocateBuffer[T](a, count)
	if err != nil {
		return SharedPtr[T]{}, err
	}

	return ptr.Share(), nil
}
