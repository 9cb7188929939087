package slab

import (
	"io"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// smallOptions keeps the pools tiny so tests can reason about saturation
func smallOptions(count int) CreateOptions {
	return CreateOptions{
		BlockCounts: [pooledSizeClassCount]int{count, count, count, count},
	}
}

func readyAllocator(t *testing.T, options CreateOptions) *Allocator {
	allocator, err := New(testLogger(), options)
	require.NoError(t, err)
	return allocator
}

func poolCounters(allocator *Allocator) [pooledSizeClassCount]int {
	var counters [pooledSizeClassCount]int
	for i, pool := range allocator.pools {
		counters[i] = pool.Statistics().AllocationCount
	}
	return counters
}

var (
	trackedConstructs atomic.Int64
	trackedDestructs  atomic.Int64
)

// tracked is an 8-byte payload that counts its constructions and destructions
type tracked struct {
	Value int64
}

func (p *tracked) Construct() {
	p.Value = 7
	trackedConstructs.Add(1)
}

func (p *tracked) Destruct() {
	trackedDestructs.Add(1)
}

func resetTracked() {
	trackedConstructs.Store(0)
	trackedDestructs.Store(0)
}
