package memutils

// Statistics counts the traffic through a recycling pool or the oversize path
type Statistics struct {
	// AllocationCount is the number of blocks handed out
	AllocationCount int
	// DeallocationCount is the number of blocks whose storage was recycled into a slot
	DeallocationCount int
	// SourceAllocationCount is the number of times storage had to be requested from the memory source
	SourceAllocationCount int
	// SourceFreeCount is the number of times storage was given back to the memory source
	SourceFreeCount int
}

func (s *Statistics) Clear() {
	s.AllocationCount = 0
	s.DeallocationCount = 0
	s.SourceAllocationCount = 0
	s.SourceFreeCount = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.AllocationCount += other.AllocationCount
	s.DeallocationCount += other.DeallocationCount
	s.SourceAllocationCount += other.SourceAllocationCount
	s.SourceFreeCount += other.SourceFreeCount
}

// Live returns the number of blocks handed out that have not come back yet
func (s Statistics) Live() int {
	return s.AllocationCount - s.DeallocationCount - s.SourceFreeCount
}

type DetailedStatistics struct {
	Statistics
	PoolCount       int
	SlotCount       int
	FilledSlotCount int
	// SlotBytes is the number of bytes held by filled slots
	SlotBytes int
	// BlockSizeMin and BlockSizeMax are the smallest and largest payload capacities seen
	BlockSizeMin int
	BlockSizeMax int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.PoolCount = 0
	s.SlotCount = 0
	s.FilledSlotCount = 0
	s.SlotBytes = 0
	s.BlockSizeMin = 0
	s.BlockSizeMax = 0
}

// AddPool folds one pool's shape into the detailed statistics
func (s *DetailedStatistics) AddPool(blockSize, rawSize, slotCount, filledSlots int) {
	s.PoolCount++
	s.SlotCount += slotCount
	s.FilledSlotCount += filledSlots
	s.SlotBytes += rawSize * filledSlots

	if s.BlockSizeMin == 0 || blockSize < s.BlockSizeMin {
		s.BlockSizeMin = blockSize
	}

	if blockSize > s.BlockSizeMax {
		s.BlockSizeMax = blockSize
	}
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)
	s.PoolCount += other.PoolCount
	s.SlotCount += other.SlotCount
	s.FilledSlotCount += other.FilledSlotCount
	s.SlotBytes += other.SlotBytes

	if other.BlockSizeMin != 0 && (s.BlockSizeMin == 0 || other.BlockSizeMin < s.BlockSizeMin) {
		s.BlockSizeMin = other.BlockSizeMin
	}

	if other.BlockSizeMax > s.BlockSizeMax {
		s.BlockSizeMax = other.BlockSizeMax
	}
}
