//go:build unix

package source

import (
	"math"
	"sync"
	"unsafe"

	"github.com/dolthub/swiss"
	"golang.org/x/sys/unix"

	"github.com/vkngwrapper/slabs/memutils"
)

// MmapSource backs every allocation with its own anonymous private mapping. Storage lives
// outside the Go heap, so it is only suitable for large or long-lived blocks: each request
// is rounded up to whole pages.
type MmapSource struct {
	pageSize int

	mutex    sync.Mutex
	mappings *swiss.Map[uintptr, []byte]
	mapped   int
}

var _ Source = &MmapSource{}

func NewMmapSource() *MmapSource {
	return &MmapSource{
		pageSize: unix.Getpagesize(),
		mappings: swiss.NewMap[uintptr, []byte](64),
	}
}

func (s *MmapSource) Allocate(size int, alignment uint) unsafe.Pointer {
	if size <= 0 {
		return nil
	}
	if alignment == 0 {
		alignment = memutils.DefaultAlignment
	}
	// Mappings are page aligned, nothing stricter can be honored
	if memutils.CheckPow2(alignment, "alignment") != nil || int(alignment) > s.pageSize {
		return nil
	}

	if size > math.MaxInt-s.pageSize {
		return nil
	}

	length := memutils.AlignUp(size, uint(s.pageSize))
	data, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil
	}

	ptr := unsafe.Pointer(unsafe.SliceData(data))

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.mappings.Put(uintptr(ptr), data)
	s.mapped += length
	return ptr
}

func (s *MmapSource) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}

	s.mutex.Lock()
	data, ok := s.mappings.Get(uintptr(ptr))
	if ok {
		s.mappings.Delete(uintptr(ptr))
		s.mapped -= len(data)
	}
	s.mutex.Unlock()

	if !ok {
		panic("attempting to free storage that was not mapped by this source")
	}

	// EINVAL is the only failure Munmap reports and it cannot happen for a live mapping
	_ = unix.Munmap(data)
}

// Mappings returns the number of live mappings and the bytes they cover
func (s *MmapSource) Mappings() (count int, bytes int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.mappings.Count(), s.mapped
}
