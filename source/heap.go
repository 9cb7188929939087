package source

import (
	"sync/atomic"
	"unsafe"

	"github.com/vkngwrapper/slabs/memutils"
)

// MaxHeapAllocation is the largest request HeapSource will serve. It sits well inside the
// address space of 64-bit targets; larger requests fail instead of panicking in make.
const MaxHeapAllocation = 1 << 47

// Counters track the traffic a source has served
type Counters struct {
	AllocationCount int
	FreeCount       int
	AllocatedBytes  int
}

// HeapSource carves storage out of the Go heap. The storage is a noscan byte array, so the
// garbage collector keeps it alive while any pointer into it exists but never looks inside it.
// Free only drops the source's bookkeeping; the collector reclaims the array once the last
// pointer to it is gone.
type HeapSource struct {
	allocationCount atomic.Int64
	freeCount       atomic.Int64
	allocatedBytes  atomic.Int64
}

var _ Source = &HeapSource{}

func NewHeapSource() *HeapSource {
	return &HeapSource{}
}

func (s *HeapSource) Allocate(size int, alignment uint) unsafe.Pointer {
	if size <= 0 {
		return nil
	}
	if alignment == 0 {
		alignment = memutils.DefaultAlignment
	}
	if memutils.CheckPow2(alignment, "alignment") != nil {
		return nil
	}

	// Heap objects are word aligned already, only stricter requests need slack
	slack := 0
	if alignment > memutils.DefaultAlignment {
		slack = int(alignment) - 1
	}

	if size > MaxHeapAllocation-slack {
		return nil
	}

	buffer := make([]byte, size+slack)
	ptr := memutils.AlignPointer(unsafe.Pointer(unsafe.SliceData(buffer)), uintptr(alignment))

	s.allocationCount.Add(1)
	s.allocatedBytes.Add(int64(size))
	return ptr
}

func (s *HeapSource) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	s.freeCount.Add(1)
}

func (s *HeapSource) Counters() Counters {
	return Counters{
		AllocationCount: int(s.allocationCount.Load()),
		FreeCount:       int(s.freeCount.Load()),
		AllocatedBytes:  int(s.allocatedBytes.Load()),
	}
}
