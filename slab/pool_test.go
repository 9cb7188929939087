package slab

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/vkngwrapper/slabs/memutils"
	"github.com/vkngwrapper/slabs/source"
)

func TestNewPoolRejectsCount(t *testing.T) {
	_, err := newPool(testLogger(), SizeClassSmall, 512, 6, false, source.NewHeapSource())
	require.Error(t, err)
	require.True(t, errors.Is(err, memutils.PowerOfTwoError))

	_, err = newPool(testLogger(), SizeClassSmall, 512, 0, false, source.NewHeapSource())
	require.Error(t, err)
}

func TestPoolPreallocate(t *testing.T) {
	for _, lockFree := range []bool{false, true} {
		heap := source.NewHeapSource()
		pool, err := newPool(testLogger(), SizeClassMedium, 1024, 16, lockFree, heap)
		require.NoError(t, err)
		require.Equal(t, 0, pool.FilledSlots())

		require.NoError(t, pool.Preallocate())
		require.Equal(t, 16, pool.FilledSlots())
		require.Equal(t, 16, heap.Counters().AllocationCount)

		// Already filled slots are left alone
		require.NoError(t, pool.Preallocate())
		require.Equal(t, 16, heap.Counters().AllocationCount)
	}
}

func TestPoolPreallocatePartialFailure(t *testing.T) {
	rawSize := headerSize + 512
	budget := source.NewBudgetSource(source.NewHeapSource(), rawSize*3)

	pool, err := newPool(testLogger(), SizeClassSmall, 512, 8, false, budget)
	require.NoError(t, err)

	err = pool.Preallocate()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrPreallocate))
	require.Contains(t, err.Error(), "filled 3 of 8 slots")

	// Filled slots are kept, the rest stay empty
	require.Equal(t, 3, pool.FilledSlots())
	require.Equal(t, 5, pool.Capacity()-pool.FilledSlots())
	require.Equal(t, rawSize*3, budget.Used())

	// Drawing still works: first from the filled slots, then from the exhausted source
	var headers []*blockHeader
	for i := 0; i < 3; i++ {
		header := pool.drawBlock(8, 1)
		require.NotNil(t, header)
		headers = append(headers, header)
	}
	require.Nil(t, pool.drawBlock(8, 1))
	require.Equal(t, 0, pool.Statistics().SourceAllocationCount)

	for _, header := range headers {
		pool.returnBlock(header)
	}
	require.Equal(t, 3, pool.FilledSlots())
}

func TestPoolSaturation(t *testing.T) {
	for _, lockFree := range []bool{false, true} {
		heap := source.NewHeapSource()
		pool, err := newPool(testLogger(), SizeClassSmall, 512, 4, lockFree, heap)
		require.NoError(t, err)
		require.NoError(t, pool.Preallocate())

		var headers []*blockHeader
		for i := 0; i < 8; i++ {
			header := pool.drawBlock(8, 1)
			require.NotNil(t, header)
			require.Equal(t, SizeClassSmall, header.class)
			require.Equal(t, int32(1), header.references.Load())
			headers = append(headers, header)
		}
		require.Equal(t, 0, pool.FilledSlots())

		for _, header := range headers {
			pool.returnBlock(header)
		}

		stats := pool.Statistics()
		require.Equal(t, 8, stats.AllocationCount)
		require.Equal(t, 4, stats.SourceAllocationCount)
		require.Equal(t, 4, stats.DeallocationCount)
		require.Equal(t, 4, stats.SourceFreeCount)
		require.Equal(t, 0, stats.Live())
		require.Equal(t, 4, pool.FilledSlots())
		require.Equal(t, 4, heap.Counters().FreeCount)

		// The slots kept the storage deposited first
		for i := 0; i < 4; i++ {
			require.Equal(t, headers[i], (*blockHeader)(pool.slots[i]))
		}
		require.NoError(t, pool.Validate())
	}
}

func TestPoolReturnClearsHeader(t *testing.T) {
	pool, err := newPool(testLogger(), SizeClassSmall, 512, 2, false, source.NewHeapSource())
	require.NoError(t, err)

	header := pool.drawBlock(16, 4)
	require.Equal(t, 512, header.blockSize)
	require.Equal(t, 16, header.elementSize)
	require.Equal(t, 4, header.elementCount)
	header.destructor = 3
	header.flags.skipDestructor = true

	pool.returnBlock(header)
	require.Equal(t, int32(0), header.references.Load())
	require.Equal(t, uint32(0), header.destructor)
	require.False(t, header.flags.skipDestructor)
	require.Equal(t, 0, header.elementCount)
}

type stressPayload struct {
	Owner    int64
	Sequence int64
	Padding  [6]int64
}

func TestPoolStress(t *testing.T) {
	for _, flags := range []CreateFlags{0, AllocatorCreateLockFreePools} {
		t.Run(flags.String(), func(t *testing.T) {
			allocator := readyAllocator(t, CreateOptions{
				Flags:       flags | AllocatorCreatePreallocate,
				BlockCounts: [pooledSizeClassCount]int{4, 1, 1, 1},
			})

			const workers = 16
			const iterations = 500
			const held = 3

			var group errgroup.Group
			for worker := 0; worker < workers; worker++ {
				owner := int64(worker)
				group.Go(func() error {
					handles := make([]Ptr[stressPayload], held)
					for i := 0; i < iterations; i++ {
						slot := i % held
						handle := &handles[slot]
						if !handle.IsNull() {
							if handle.Get().Owner != owner || handle.Get().Sequence != int64(i-held) {
								return errors.Newf("worker %d found payload %+v", owner, handle.Value())
							}
							handle.Reset()
						}

						ptr, err := AllocateWith(allocator, stressPayload{Owner: owner, Sequence: int64(i)})
						if err != nil {
							return err
						}
						*handle = ptr
					}

					for slot := range handles {
						handles[slot].Reset()
					}
					return nil
				})
			}
			require.NoError(t, group.Wait())

			pool := allocator.Pool(SizeClassSmall)
			stats := pool.Statistics()
			require.Equal(t, workers*iterations, stats.AllocationCount)
			require.Equal(t, 0, stats.Live())
			// Every piece of storage ever sourced is either back in a slot or freed
			require.Equal(t, stats.SourceAllocationCount+4, stats.SourceFreeCount+pool.FilledSlots())
			require.LessOrEqual(t, pool.FilledSlots(), 4)
			require.NoError(t, allocator.Validate())
		})
	}
}
