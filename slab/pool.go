package slab

import (
	"context"
	"sync/atomic"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"golang.org/x/exp/slog"

	"github.com/vkngwrapper/slabs/internal/utils"
	"github.com/vkngwrapper/slabs/memutils"
	"github.com/vkngwrapper/slabs/source"
)

// Pool is a fixed-capacity ring of raw storage slots for the blocks of one size class.
//
// Draws claim the slot under the head cursor and returns deposit into the slot under the tail
// cursor. Both cursors only ever grow and are masked to the ring when indexing. An empty slot on
// draw is covered by fresh storage from the memory source, and a return that lands on an
// occupied slot frees its storage to the source instead of overwriting the slot.
type Pool struct {
	logger    *slog.Logger
	class     SizeClass
	blockSize int
	rawSize   int
	lockFree  bool
	source    source.Source

	lock  utils.OptionalSpinLock
	mask  uint64
	slots []unsafe.Pointer
	head  atomic.Uint64
	tail  atomic.Uint64

	allocations       atomic.Int64
	deallocations     atomic.Int64
	sourceAllocations atomic.Int64
	sourceFrees       atomic.Int64
}

func newPool(logger *slog.Logger, class SizeClass, blockSize, slotCount int, lockFree bool, src source.Source) (*Pool, error) {
	err := memutils.CheckPow2(slotCount, class.String()+" block count")
	if err != nil {
		return nil, err
	}

	return &Pool{
		logger:    logger,
		class:     class,
		blockSize: blockSize,
		rawSize:   headerSize + blockSize,
		lockFree:  lockFree,
		source:    src,

		lock:  utils.OptionalSpinLock{UseLock: !lockFree},
		mask:  uint64(slotCount - 1),
		slots: make([]unsafe.Pointer, slotCount),
	}, nil
}

func (p *Pool) Class() SizeClass {
	return p.class
}

// BlockSize is the payload capacity of every block drawn from this pool
func (p *Pool) BlockSize() int {
	return p.blockSize
}

func (p *Pool) Capacity() int {
	return len(p.slots)
}

func (p *Pool) IsLockFree() bool {
	return p.lockFree
}

// Preallocate fills every empty slot with fresh storage from the memory source. If the source
// runs dry partway through, the slots filled so far keep their storage and the returned error
// wraps ErrPreallocate; FilledSlots reports how far it got.
func (p *Pool) Preallocate() error {
	p.logger.Debug("Pool::Preallocate", slog.String("class", p.class.String()))

	p.lock.Acquire()
	defer p.lock.Release()

	for index := range p.slots {
		if p.loadSlot(index) != nil {
			continue
		}

		raw := p.source.Allocate(p.rawSize, memutils.DefaultAlignment)
		if raw == nil {
			filled := p.filledSlotsLocked()
			p.logger.LogAttrs(context.Background(), slog.LevelError, "memory source exhausted while preallocating pool",
				slog.String("class", p.class.String()),
				slog.Int("filledSlots", filled),
				slog.Int("capacity", len(p.slots)),
			)
			return errors.Wrapf(ErrPreallocate, "%s pool filled %d of %d slots", p.class, filled, len(p.slots))
		}

		memutils.PoisonReleased(unsafe.Add(raw, headerSize), p.blockSize)
		if !p.fillSlot(index, raw) {
			// A concurrent return got there first
			p.source.Free(raw)
		}
	}

	memutils.DebugValidate(p)
	return nil
}

// FilledSlots counts the slots currently holding storage
func (p *Pool) FilledSlots() int {
	p.lock.Acquire()
	defer p.lock.Release()

	return p.filledSlotsLocked()
}

func (p *Pool) filledSlotsLocked() int {
	filled := 0
	for index := range p.slots {
		if p.loadSlot(index) != nil {
			filled++
		}
	}
	return filled
}

func (p *Pool) loadSlot(index int) unsafe.Pointer {
	if p.lockFree {
		return atomic.LoadPointer(&p.slots[index])
	}
	return p.slots[index]
}

func (p *Pool) fillSlot(index int, raw unsafe.Pointer) bool {
	if p.lockFree {
		return atomic.CompareAndSwapPointer(&p.slots[index], nil, raw)
	}
	if p.slots[index] != nil {
		return false
	}
	p.slots[index] = raw
	return true
}

// takeSlot advances the head cursor and empties the slot it pointed at
func (p *Pool) takeSlot() unsafe.Pointer {
	if p.lockFree {
		index := p.head.Add(1) - 1
		return atomic.SwapPointer(&p.slots[index&p.mask], nil)
	}

	p.lock.Acquire()
	defer p.lock.Release()

	index := p.head.Load()
	p.head.Store(index + 1)

	raw := p.slots[index&p.mask]
	p.slots[index&p.mask] = nil
	return raw
}

// depositSlot advances the tail cursor and stores raw in the slot it pointed at, unless that
// slot is still occupied
func (p *Pool) depositSlot(raw unsafe.Pointer) bool {
	if p.lockFree {
		index := p.tail.Add(1) - 1
		return atomic.CompareAndSwapPointer(&p.slots[index&p.mask], nil, raw)
	}

	p.lock.Acquire()
	defer p.lock.Release()

	index := p.tail.Load()
	p.tail.Store(index + 1)

	return p.fillSlot(int(index&p.mask), raw)
}

// drawBlock hands out storage for one block and builds its header. It returns nil only when
// the slot was empty and the memory source is exhausted.
func (p *Pool) drawBlock(elementSize, elementCount int) *blockHeader {
	raw := p.takeSlot()
	if raw == nil {
		raw = p.source.Allocate(p.rawSize, memutils.DefaultAlignment)
		if raw == nil {
			return nil
		}
		p.sourceAllocations.Add(1)
	} else if !memutils.CheckReleased(unsafe.Add(raw, headerSize), p.blockSize) {
		panic("MEMORY CORRUPTION DETECTED IN RELEASED BLOCK")
	}

	header := (*blockHeader)(raw)
	header.init(p.class, p.blockSize, elementSize, elementCount)

	p.allocations.Add(1)
	return header
}

// returnBlock clears the block header and recycles its storage
func (p *Pool) returnBlock(header *blockHeader) {
	header.clear()
	memutils.PoisonReleased(header.begin(), p.blockSize)

	raw := unsafe.Pointer(header)
	if p.depositSlot(raw) {
		p.deallocations.Add(1)
		return
	}

	p.source.Free(raw)
	p.sourceFrees.Add(1)
}

func (p *Pool) Statistics() memutils.Statistics {
	// Returns are read before draws so a snapshot never shows more blocks back than out
	deallocations := p.deallocations.Load()
	sourceFrees := p.sourceFrees.Load()

	return memutils.Statistics{
		AllocationCount:       int(p.allocations.Load()),
		DeallocationCount:     int(deallocations),
		SourceAllocationCount: int(p.sourceAllocations.Load()),
		SourceFreeCount:       int(sourceFrees),
	}
}

func (p *Pool) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	statistics := p.Statistics()
	stats.Statistics.AddStatistics(&statistics)
	stats.AddPool(p.blockSize, p.rawSize, len(p.slots), p.FilledSlots())
}

func (p *Pool) Validate() error {
	err := memutils.CheckPow2(len(p.slots), "slot count")
	if err != nil {
		return err
	}

	if p.mask != uint64(len(p.slots)-1) {
		return errors.Errorf("pool mask %#x does not match slot count %d", p.mask, len(p.slots))
	}

	if p.rawSize != headerSize+p.blockSize {
		return errors.Errorf("pool raw size %d does not hold a header and a %d byte payload", p.rawSize, p.blockSize)
	}

	stats := p.Statistics()
	if stats.Live() < 0 {
		return errors.Errorf("the pool received %d blocks back but only handed out %d",
			stats.DeallocationCount+stats.SourceFreeCount, stats.AllocationCount)
	}

	return nil
}

func (p *Pool) printStatistics(json *jwriter.ObjectState) {
	stats := p.Statistics()

	json.Name("BlockSize").Int(p.blockSize)
	json.Name("SlotCount").Int(len(p.slots))
	json.Name("FilledSlots").Int(p.FilledSlots())
	json.Name("LockFree").Bool(p.lockFree)
	json.Name("Allocations").Int(stats.AllocationCount)
	json.Name("Deallocations").Int(stats.DeallocationCount)
	json.Name("SourceAllocations").Int(stats.SourceAllocationCount)
	json.Name("SourceFrees").Int(stats.SourceFreeCount)
}
