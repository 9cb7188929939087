//go:build unix

package source_test

import (
	"math"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/slabs/memutils"
	"github.com/vkngwrapper/slabs/source"
)

func TestMmapSource(t *testing.T) {
	mmap := source.NewMmapSource()

	ptr := mmap.Allocate(10000, 16)
	require.NotNil(t, ptr)
	require.True(t, memutils.IsAligned(ptr, 16))

	data := unsafe.Slice((*byte)(ptr), 10000)
	for i := range data {
		require.Zero(t, data[i])
		data[i] = byte(i)
	}

	count, bytes := mmap.Mappings()
	require.Equal(t, 1, count)
	require.GreaterOrEqual(t, bytes, 10000)

	mmap.Free(ptr)
	count, bytes = mmap.Mappings()
	require.Equal(t, 0, count)
	require.Equal(t, 0, bytes)
}

func TestMmapSourceRejects(t *testing.T) {
	mmap := source.NewMmapSource()

	require.Nil(t, mmap.Allocate(0, 8))
	require.Nil(t, mmap.Allocate(64, 3))
	require.Nil(t, mmap.Allocate(64, 1<<30))
	require.Nil(t, mmap.Allocate(math.MaxInt, 8))

	foreign := source.NewHeapSource().Allocate(8, 8)
	require.Panics(t, func() {
		mmap.Free(foreign)
	})
}
