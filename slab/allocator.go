package slab

import (
	"context"
	"sync/atomic"
	"unsafe"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"

	"github.com/vkngwrapper/slabs/memutils"
	"github.com/vkngwrapper/slabs/source"
)

// Allocator routes requests to one of four recycling pools by size, or straight to the memory
// source for oversize requests. It is safe for concurrent use.
type Allocator struct {
	logger      *slog.Logger
	source      source.Source
	createFlags CreateFlags

	blockSizes [pooledSizeClassCount]int
	pools      [pooledSizeClassCount]*Pool

	oversizeAllocations   atomic.Int64
	oversizeDeallocations atomic.Int64
}

// New creates a new Allocator
//
// logger - The logger that lifecycle events and failures are written to. slog.Default() is
// used if it is nil.
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, options CreateOptions) (*Allocator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	options.applyDefaults()
	err := options.Validate()
	if err != nil {
		return nil, err
	}

	src := options.Source
	if src == nil {
		src = source.NewHeapSource()
	}
	src = source.WithCallbacks(src, options.SourceCallbacks)

	allocator := &Allocator{
		logger:      logger,
		source:      src,
		createFlags: options.Flags,
		blockSizes:  options.BlockSizes,
	}

	lockFree := options.Flags&AllocatorCreateLockFreePools != 0
	for i := 0; i < pooledSizeClassCount; i++ {
		allocator.pools[i], err = newPool(logger, SizeClass(i), options.BlockSizes[i], options.BlockCounts[i], lockFree, src)
		if err != nil {
			return nil, err
		}
	}

	logger.LogAttrs(context.Background(), slog.LevelDebug, "Allocator::New",
		slog.String("flags", options.Flags.String()),
		slog.Any("blockSizes", options.BlockSizes),
		slog.Any("blockCounts", options.BlockCounts),
	)

	if options.Flags&AllocatorCreatePreallocate != 0 {
		err = allocator.Initialize()
		if err != nil {
			return nil, err
		}
	}

	return allocator, nil
}

// Initialize preallocates every pool. It can be called again after a failure to retry the
// slots that are still empty.
func (a *Allocator) Initialize() error {
	a.logger.Debug("Allocator::Initialize")

	for _, pool := range a.pools {
		err := pool.Preallocate()
		if err != nil {
			return err
		}
	}

	memutils.DebugValidate(a)
	return nil
}

func (a *Allocator) Flags() CreateFlags {
	return a.createFlags
}

// Pool returns the recycling pool behind a size class, or nil for SizeClassOversize
func (a *Allocator) Pool(class SizeClass) *Pool {
	if !class.IsPooled() {
		return nil
	}

	return a.pools[class]
}

// SizeClassFor returns the smallest size class whose blocks can hold size bytes
func (a *Allocator) SizeClassFor(size int) SizeClass {
	for i, blockSize := range a.blockSizes {
		if size <= blockSize {
			return SizeClass(i)
		}
	}

	return SizeClassOversize
}

// allocBlock draws a block able to hold size bytes. elementSize and elementCount describe the
// payload that will be constructed inside it.
func (a *Allocator) allocBlock(size, elementSize, elementCount int) (Block, error) {
	class := a.SizeClassFor(size)

	var header *blockHeader
	if class.IsPooled() {
		header = a.pools[class].drawBlock(elementSize, elementCount)
	} else {
		raw := a.source.Allocate(headerSize+size, memutils.DefaultAlignment)
		if raw != nil {
			header = (*blockHeader)(raw)
			header.init(SizeClassOversize, size, elementSize, elementCount)
			a.oversizeAllocations.Add(1)
		}
	}

	if header == nil {
		a.logger.LogAttrs(context.Background(), slog.LevelError, "memory source exhausted",
			slog.String("class", class.String()),
			slog.Int("size", size),
		)
		return Block{}, errors.Wrapf(ErrSourceExhausted, "%s block of %d bytes", class, size)
	}

	return Block{header: header, allocator: a}, nil
}

// destroyBlock runs the destroy action recorded in header: the payload's destructor, if one was
// installed and runDestructor is set, followed by recycling the storage
func (a *Allocator) destroyBlock(header *blockHeader, runDestructor bool) {
	if runDestructor && !header.flags.skipDestructor {
		info := destructorFor(header.destructor)
		if info != nil {
			info.destruct(header.payload(), header.elementCount, header.elementSize)
		}
	}

	if header.class.IsPooled() {
		a.pools[header.class].returnBlock(header)
		return
	}

	header.clear()
	a.source.Free(unsafe.Pointer(header))
	a.oversizeDeallocations.Add(1)
}

// OversizeStatistics returns the counters of blocks requested straight from the memory source
func (a *Allocator) OversizeStatistics() memutils.Statistics {
	deallocations := a.oversizeDeallocations.Load()
	allocations := a.oversizeAllocations.Load()

	return memutils.Statistics{
		AllocationCount:       int(allocations),
		DeallocationCount:     0,
		SourceAllocationCount: int(allocations),
		SourceFreeCount:       int(deallocations),
	}
}

func (a *Allocator) Validate() error {
	for _, pool := range a.pools {
		err := pool.Validate()
		if err != nil {
			return errors.Wrapf(err, "%s pool is invalid", pool.Class())
		}
	}

	for i := 1; i < pooledSizeClassCount; i++ {
		if a.blockSizes[i] <= a.blockSizes[i-1] {
			return errors.Newf("block sizes are not ascending at %s", SizeClass(i))
		}
	}

	oversize := a.OversizeStatistics()
	if oversize.Live() < 0 {
		return errors.Newf("%d oversize blocks were freed but only %d were allocated",
			oversize.SourceFreeCount, oversize.AllocationCount)
	}

	return nil
}
