package source

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/dolthub/swiss"

	"github.com/vkngwrapper/slabs/internal/utils"
)

// BudgetSource caps the number of bytes that may be outstanding from an inner source at once.
// Requests that would cross the budget fail with a nil pointer, the same way an exhausted
// source would.
type BudgetSource struct {
	inner  Source
	budget int64
	used   atomic.Int64

	lock  utils.SpinLock
	sizes *swiss.Map[uintptr, int]
}

var _ Source = &BudgetSource{}

func NewBudgetSource(inner Source, budget int) *BudgetSource {
	return &BudgetSource{
		inner:  inner,
		budget: int64(budget),
		sizes:  swiss.NewMap[uintptr, int](64),
	}
}

func (s *BudgetSource) reserve(size int) bool {
	for {
		current := s.used.Load()
		target := current + int64(size)

		if target > s.budget {
			return false
		}

		if s.used.CompareAndSwap(current, target) {
			return true
		}
	}
}

func (s *BudgetSource) Allocate(size int, alignment uint) unsafe.Pointer {
	if size <= 0 || !s.reserve(size) {
		return nil
	}

	ptr := s.inner.Allocate(size, alignment)
	if ptr == nil {
		s.used.Add(int64(-size))
		return nil
	}

	s.lock.Lock()
	s.sizes.Put(uintptr(ptr), size)
	s.lock.Unlock()

	return ptr
}

func (s *BudgetSource) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}

	s.lock.Lock()
	size, ok := s.sizes.Get(uintptr(ptr))
	if ok {
		s.sizes.Delete(uintptr(ptr))
	}
	s.lock.Unlock()

	if !ok {
		panic(fmt.Sprintf("attempting to free %p, which was not allocated from this budget", ptr))
	}

	s.inner.Free(ptr)
	s.used.Add(int64(-size))
}

// Used returns the number of bytes currently outstanding
func (s *BudgetSource) Used() int {
	return int(s.used.Load())
}

func (s *BudgetSource) Remaining() int {
	return int(s.budget - s.used.Load())
}
