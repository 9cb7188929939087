package slab

import (
	"sync/atomic"
	"unsafe"

	"github.com/vkngwrapper/slabs/memutils"
)

type blockFlags struct {
	// skipDestructor is set for buffers whose elements were never constructed
	skipDestructor bool
	// localReferences switches reference counting to plain loads and stores. The block must
	// then be owned by a single goroutine for its whole life.
	localReferences bool
}

// blockHeader is the control block placed at the start of every block's raw storage. It is
// read by the allocator without the garbage collector's help, so it must stay pointer-free:
// the destroy action is encoded as the size class to return to, the element layout and the
// id of the payload type's destructor.
type blockHeader struct {
	references atomic.Int32
	flags      blockFlags
	class      SizeClass
	destructor uint32

	blockSize    int
	elementSize  int
	elementCount int
	offset       int
}

// headerSize is the distance between the start of a block's storage and the start of its payload area
var headerSize = memutils.AlignUp(int(unsafe.Sizeof(blockHeader{})), memutils.DefaultAlignment)

func (h *blockHeader) init(class SizeClass, blockSize, elementSize, elementCount int) {
	h.references.Store(1)
	h.flags = blockFlags{}
	h.class = class
	h.destructor = 0
	h.blockSize = blockSize
	h.elementSize = elementSize
	h.elementCount = elementCount
	h.offset = 0
}

func (h *blockHeader) clear() {
	h.init(h.class, 0, 0, 0)
	h.references.Store(0)
}

func (h *blockHeader) begin() unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(h), headerSize)
}

func (h *blockHeader) payload() unsafe.Pointer {
	return unsafe.Add(h.begin(), h.offset)
}

// addReference increments the reference count unless it has already reached zero, in which
// case the block is being destroyed and must not be resurrected
func (h *blockHeader) addReference() bool {
	if h.flags.localReferences {
		current := h.references.Load()
		if current == 0 {
			return false
		}
		h.references.Store(current + 1)
		return true
	}

	current := h.references.Load()
	for current != 0 {
		if h.references.CompareAndSwap(current, current+1) {
			return true
		}
		current = h.references.Load()
	}

	return false
}

// releaseReference decrements the reference count and returns true for the caller that
// brought it to zero
func (h *blockHeader) releaseReference() bool {
	if h.flags.localReferences {
		remaining := h.references.Load() - 1
		h.references.Store(remaining)
		return remaining == 0
	}

	return h.references.Add(-1) == 0
}

// Block is a handle to a size-classed storage region and the control block embedded in it.
// Its layout is immutable while the block is live.
type Block struct {
	header    *blockHeader
	allocator *Allocator
}

func (b Block) IsNull() bool {
	return b.header == nil
}

func (b Block) Class() SizeClass {
	return b.header.class
}

// BlockSize is the payload capacity of the block in bytes
func (b Block) BlockSize() int {
	return b.header.blockSize
}

func (b Block) ElementSize() int {
	return b.header.elementSize
}

func (b Block) ElementCount() int {
	return b.header.elementCount
}

func (b Block) References() int {
	return int(b.header.references.Load())
}

// Begin returns the first byte of the block's payload area
func (b Block) Begin() unsafe.Pointer {
	return b.header.begin()
}

// End returns the address one past the last byte of the block's payload area
func (b Block) End() unsafe.Pointer {
	return unsafe.Add(b.header.begin(), b.header.blockSize)
}

// CanFit returns the address at offset bytes into the payload area if length bytes fit there,
// and nil otherwise
func (b Block) CanFit(length, offset int) unsafe.Pointer {
	if offset < 0 || length < 0 || offset > b.header.blockSize || length > b.header.blockSize-offset {
		return nil
	}

	return unsafe.Add(b.header.begin(), offset)
}

// Bytes exposes the whole payload area
func (b Block) Bytes() []byte {
	return unsafe.Slice((*byte)(b.header.begin()), b.header.blockSize)
}

func (b Block) ZeroMemory() {
	clear(b.Bytes())
}

// Destroy runs the block's destroy action: live elements are destructed and the storage goes
// back to its pool, or to the memory source for oversize blocks. It ignores the reference
// count and is meant for blocks detached from their handle with Ptr.Release.
func (b Block) Destroy() {
	b.destroy(true)
}

func (b Block) destroy(runDestructor bool) {
	b.allocator.destroyBlock(b.header, runDestructor)
}

// alignPayload finds the first address in the payload area aligned to alignment and records
// it as the payload if length bytes fit from there
func (b Block) alignPayload(alignment, length int) (unsafe.Pointer, bool) {
	begin := b.Begin()
	offset := int(uintptr(memutils.AlignPointer(begin, uintptr(alignment))) - uintptr(begin))

	ptr := b.CanFit(length, offset)
	if ptr == nil {
		return nil, false
	}

	b.header.offset = offset
	return ptr, true
}

// capacity returns the number of bytes between ptr and the end of the block
func capacity(b Block, ptr unsafe.Pointer) int {
	if b.IsNull() || ptr == nil {
		return 0
	}

	return int(uintptr(b.End()) - uintptr(ptr))
}
