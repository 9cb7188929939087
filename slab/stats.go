package slab

import (
	"context"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"golang.org/x/exp/slog"

	"github.com/vkngwrapper/slabs/memutils"
)

// AllocatorStatistics is a snapshot of the traffic through every size class
type AllocatorStatistics struct {
	Pools    [pooledSizeClassCount]memutils.DetailedStatistics
	Oversize memutils.Statistics
	Total    memutils.DetailedStatistics
}

// CalculateStatistics collects the counters of every pool and of the oversize path. Counters are
// read without stopping other goroutines, so a snapshot taken under load is approximate.
func (a *Allocator) CalculateStatistics(stats *AllocatorStatistics) {
	stats.Total.Clear()
	stats.Oversize = a.OversizeStatistics()

	for i, pool := range a.pools {
		stats.Pools[i].Clear()
		pool.AddDetailedStatistics(&stats.Pools[i])
		stats.Total.AddDetailedStatistics(&stats.Pools[i])
	}

	stats.Total.Statistics.AddStatistics(&stats.Oversize)
}

// BuildStatsString returns a JSON document describing every pool and the oversize path
func (a *Allocator) BuildStatsString() string {
	var stats AllocatorStatistics
	a.CalculateStatistics(&stats)

	writer := jwriter.NewWriter()
	root := writer.Object()

	total := root.Name("Total").Object()
	printStatistics(&total, &stats.Total.Statistics)
	total.Name("FilledSlots").Int(stats.Total.FilledSlotCount)
	total.Name("SlotBytes").Int(stats.Total.SlotBytes)
	total.End()

	pools := root.Name("Pools").Object()
	for _, pool := range a.pools {
		obj := pools.Name(pool.Class().String()).Object()
		pool.printStatistics(&obj)
		obj.End()
	}
	pools.End()

	oversize := root.Name(SizeClassOversize.String()).Object()
	printStatistics(&oversize, &stats.Oversize)
	oversize.End()

	root.End()
	return string(writer.Bytes())
}

func printStatistics(json *jwriter.ObjectState, stats *memutils.Statistics) {
	json.Name("Allocations").Int(stats.AllocationCount)
	json.Name("Deallocations").Int(stats.DeallocationCount)
	json.Name("SourceAllocations").Int(stats.SourceAllocationCount)
	json.Name("SourceFrees").Int(stats.SourceFreeCount)
	json.Name("Live").Int(stats.Live())
}

// LogStatistics writes the counters of every size class to the allocator's logger at info level
func (a *Allocator) LogStatistics(ctx context.Context) {
	var stats AllocatorStatistics
	a.CalculateStatistics(&stats)

	for i, pool := range stats.Pools {
		a.logger.LogAttrs(ctx, slog.LevelInfo, "pool statistics",
			slog.String("class", SizeClass(i).String()),
			slog.Int("blockSize", a.blockSizes[i]),
			slog.Int("allocations", pool.AllocationCount),
			slog.Int("deallocations", pool.DeallocationCount),
			slog.Int("sourceAllocations", pool.SourceAllocationCount),
			slog.Int("sourceFrees", pool.SourceFreeCount),
			slog.Int("filledSlots", pool.FilledSlotCount),
		)
	}

	a.logger.LogAttrs(ctx, slog.LevelInfo, "pool statistics",
		slog.String("class", SizeClassOversize.String()),
		slog.Int("allocations", stats.Oversize.AllocationCount),
		slog.Int("sourceFrees", stats.Oversize.SourceFreeCount),
	)
}
