package slab

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/vkngwrapper/slabs/memutils"
)

func TestOptionsFromEnvDefaults(t *testing.T) {
	options, err := OptionsFromEnv("SLABTEST_DEFAULTS")
	require.NoError(t, err)
	require.Equal(t, DefaultOptions(), options)
	require.Equal(t, CreateFlags(0), options.Flags)
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("SLABTEST_SMALL_BLOCK_SIZE", "256")
	t.Setenv("SLABTEST_EXTRA_LARGE_BLOCK_SIZE", "65536")
	t.Setenv("SLABTEST_MEDIUM_BLOCK_COUNT", "64")
	t.Setenv("SLABTEST_LOCK_FREE_POOLS", "true")
	t.Setenv("SLABTEST_PREALLOCATE", "true")

	options, err := OptionsFromEnv("SLABTEST")
	require.NoError(t, err)
	require.Equal(t, [pooledSizeClassCount]int{256, 1024, 4096, 65536}, options.BlockSizes)
	require.Equal(t, [pooledSizeClassCount]int{4096, 64, 4096, 4096}, options.BlockCounts)
	require.Equal(t, AllocatorCreateLockFreePools|AllocatorCreatePreallocate, options.Flags)

	options.Flags &^= AllocatorCreatePreallocate
	allocator := readyAllocator(t, options)
	require.True(t, allocator.Pool(SizeClassSmall).IsLockFree())
	require.Equal(t, 64, allocator.Pool(SizeClassMedium).Capacity())
	require.Equal(t, SizeClassMedium, allocator.SizeClassFor(257))
}

func TestOptionsFromEnvInvalid(t *testing.T) {
	t.Setenv("SLABTEST_BAD_COUNT_SMALL_BLOCK_COUNT", "100")
	_, err := OptionsFromEnv("SLABTEST_BAD_COUNT")
	require.True(t, errors.Is(err, memutils.PowerOfTwoError))

	t.Setenv("SLABTEST_BAD_SIZE_LARGE_BLOCK_SIZE", "large")
	_, err = OptionsFromEnv("SLABTEST_BAD_SIZE")
	require.Error(t, err)

	t.Setenv("SLABTEST_BAD_ORDER_MEDIUM_BLOCK_SIZE", "8192")
	_, err = OptionsFromEnv("SLABTEST_BAD_ORDER")
	require.ErrorContains(t, err, "Large block size 4096 must be larger than Medium block size 8192")
}

func TestCreateOptionsDefaults(t *testing.T) {
	var options CreateOptions
	require.Error(t, options.Validate())

	options.BlockSizes[SizeClassMedium] = 2048
	options.applyDefaults()
	require.NoError(t, options.Validate())
	require.Equal(t, [pooledSizeClassCount]int{512, 2048, 4096, 24576}, options.BlockSizes)
	require.Equal(t, [pooledSizeClassCount]int{4096, 4096, 4096, 4096}, options.BlockCounts)
}

func TestCreateFlagsString(t *testing.T) {
	require.Equal(t, "None", CreateFlags(0).String())
	require.Equal(t, "AllocatorCreateLockFreePools", AllocatorCreateLockFreePools.String())
	require.Equal(t, "AllocatorCreateLockFreePools|AllocatorCreatePreallocate",
		(AllocatorCreateLockFreePools | AllocatorCreatePreallocate).String())
	require.Equal(t, "AllocatorCreatePreallocate|CreateFlags(0x8)", (AllocatorCreatePreallocate | 8).String())
}
