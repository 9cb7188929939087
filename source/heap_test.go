package source_test

import (
	"math"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/slabs/memutils"
	"github.com/vkngwrapper/slabs/source"
)

func TestHeapSourceAlignment(t *testing.T) {
	heap := source.NewHeapSource()

	for _, alignment := range []uint{0, 1, 8, 16, 64, 4096} {
		ptr := heap.Allocate(100, alignment)
		require.NotNil(t, ptr)

		expected := uintptr(alignment)
		if alignment == 0 {
			expected = uintptr(memutils.DefaultAlignment)
		}
		require.True(t, memutils.IsAligned(ptr, expected), "alignment %d", alignment)

		// The whole region must be writable
		data := unsafe.Slice((*byte)(ptr), 100)
		for i := range data {
			data[i] = 0xAB
		}
		heap.Free(ptr)
	}

	counters := heap.Counters()
	require.Equal(t, 6, counters.AllocationCount)
	require.Equal(t, 6, counters.FreeCount)
	require.Equal(t, 600, counters.AllocatedBytes)
}

func TestHeapSourceRejects(t *testing.T) {
	heap := source.NewHeapSource()

	require.Nil(t, heap.Allocate(0, 8))
	require.Nil(t, heap.Allocate(-1, 8))
	require.Nil(t, heap.Allocate(64, 12))
	require.Nil(t, heap.Allocate(1<<62, 8))
	require.Nil(t, heap.Allocate(math.MaxInt, 64))
	require.Nil(t, heap.Allocate(source.MaxHeapAllocation, 64))

	heap.Free(nil)
	require.Equal(t, source.Counters{}, heap.Counters())
}

func TestCallbacks(t *testing.T) {
	var allocated, freed []unsafe.Pointer

	wrapped := source.WithCallbacks(source.NewHeapSource(), &source.CallbackOptions{
		Allocate: func(ptr unsafe.Pointer, size int, alignment uint, userData any) {
			require.Equal(t, 32, size)
			require.Equal(t, "tag", userData)
			allocated = append(allocated, ptr)
		},
		Free: func(ptr unsafe.Pointer, userData any) {
			freed = append(freed, ptr)
		},
		UserData: "tag",
	})

	ptr := wrapped.Allocate(32, 8)
	require.NotNil(t, ptr)
	wrapped.Free(ptr)

	require.Equal(t, []unsafe.Pointer{ptr}, allocated)
	require.Equal(t, []unsafe.Pointer{ptr}, freed)

	// Failed allocations are not reported
	require.Nil(t, wrapped.Allocate(0, 8))
	require.Len(t, allocated, 1)
}

func TestWithNilCallbacks(t *testing.T) {
	heap := source.NewHeapSource()
	require.Same(t, heap, source.WithCallbacks(heap, nil))
}
