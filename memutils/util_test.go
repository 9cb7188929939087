package memutils_test

import (
	"testing"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/slabs/memutils"
)

func TestCheckPow2(t *testing.T) {
	for _, value := range []int{1, 2, 4, 1024, 4096} {
		require.NoError(t, memutils.CheckPow2(value, "value"))
	}

	for _, value := range []int{0, -4, 3, 12, 4095} {
		err := memutils.CheckPow2(value, "value")
		require.Error(t, err)
		require.True(t, errors.Is(err, memutils.PowerOfTwoError))
	}

	require.NoError(t, memutils.CheckPow2(uint64(1<<40), "wide"))
}

func TestCheckAlignment(t *testing.T) {
	require.NoError(t, memutils.CheckAlignment(512, 8, "size"))
	err := memutils.CheckAlignment(513, 8, "size")
	require.True(t, errors.Is(err, memutils.AlignmentError))
}

func TestAlign(t *testing.T) {
	require.Equal(t, 0, memutils.AlignUp(0, 8))
	require.Equal(t, 8, memutils.AlignUp(1, 8))
	require.Equal(t, 16, memutils.AlignUp(16, 8))
	require.Equal(t, 24, memutils.AlignUp(17, 8))
}

func TestAlignPointer(t *testing.T) {
	buffer := make([]byte, 64)
	base := unsafe.Pointer(unsafe.SliceData(buffer))

	for offset := 0; offset < 16; offset++ {
		ptr := unsafe.Add(base, offset)
		for _, alignment := range []uintptr{1, 2, 4, 8} {
			aligned := memutils.AlignPointer(ptr, alignment)
			require.True(t, memutils.IsAligned(aligned, alignment))
			require.GreaterOrEqual(t, uint64(uintptr(aligned)), uint64(uintptr(ptr)))
			require.Less(t, uint64(uintptr(aligned)-uintptr(ptr)), uint64(alignment))
		}
	}
}

func TestDetailedStatistics(t *testing.T) {
	var small, large, total memutils.DetailedStatistics
	small.AddPool(512, 560, 8, 3)
	small.AllocationCount = 5
	small.DeallocationCount = 2
	large.AddPool(4096, 4144, 4, 4)
	large.SourceAllocationCount = 1

	total.Clear()
	total.AddDetailedStatistics(&small)
	total.AddDetailedStatistics(&large)

	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			AllocationCount:       5,
			DeallocationCount:     2,
			SourceAllocationCount: 1,
		},
		PoolCount:       2,
		SlotCount:       12,
		FilledSlotCount: 7,
		SlotBytes:       560*3 + 4144*4,
		BlockSizeMin:    512,
		BlockSizeMax:    4096,
	}, total)
	require.Equal(t, 3, total.Live())
}
