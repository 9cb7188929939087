package slab

import "fmt"

// SizeClass identifies the bucket a block's storage comes from
type SizeClass int32

const (
	SizeClassSmall SizeClass = iota
	SizeClassMedium
	SizeClassLarge
	SizeClassExtraLarge
	// SizeClassOversize blocks are requested directly from the memory source and never pooled
	SizeClassOversize

	pooledSizeClassCount = int(SizeClassOversize)
)

var sizeClassMapping = make(map[SizeClass]string)

func (c SizeClass) String() string {
	str, ok := sizeClassMapping[c]
	if !ok {
		return fmt.Sprintf("SizeClass(%d)", int32(c))
	}
	return str
}

// IsPooled returns true for the size classes backed by a recycling pool
func (c SizeClass) IsPooled() bool {
	return c >= SizeClassSmall && c < SizeClassOversize
}

func init() {
	sizeClassMapping[SizeClassSmall] = "Small"
	sizeClassMapping[SizeClassMedium] = "Medium"
	sizeClassMapping[SizeClassLarge] = "Large"
	sizeClassMapping[SizeClassExtraLarge] = "ExtraLarge"
	sizeClassMapping[SizeClassOversize] = "Oversize"
}
