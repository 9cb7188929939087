package slab

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/kelseyhightower/envconfig"

	"github.com/vkngwrapper/slabs/memutils"
	"github.com/vkngwrapper/slabs/source"
)

// CreateFlags indicate specific allocator behaviors to activate or deactivate
type CreateFlags int32

var allocatorCreateFlagsMapping = make(map[CreateFlags]string)

func (f CreateFlags) Register(str string) {
	allocatorCreateFlagsMapping[f] = str
}

func (f CreateFlags) String() string {
	if f == 0 {
		return "None"
	}

	var names []string
	for bit := CreateFlags(1); bit != 0 && bit <= f; bit <<= 1 {
		if f&bit == 0 {
			continue
		}

		name, ok := allocatorCreateFlagsMapping[bit]
		if !ok {
			name = fmt.Sprintf("CreateFlags(%#x)", int32(bit))
		}
		names = append(names, name)
	}

	return strings.Join(names, "|")
}

const (
	// AllocatorCreateLockFreePools makes every pool claim and deposit slots with atomic operations
	// instead of taking a spin lock
	AllocatorCreateLockFreePools CreateFlags = 1 << iota
	// AllocatorCreatePreallocate fills every pool's slots while the allocator is being created.
	// New fails if the memory source cannot cover all of them.
	AllocatorCreatePreallocate
)

func init() {
	AllocatorCreateLockFreePools.Register("AllocatorCreateLockFreePools")
	AllocatorCreatePreallocate.Register("AllocatorCreatePreallocate")
}

const (
	DefaultSmallBlockSize      int = 512
	DefaultMediumBlockSize     int = 1024
	DefaultLargeBlockSize      int = 4096
	DefaultExtraLargeBlockSize int = 24576

	// DefaultBlockCount is the number of slots in every pool when none is provided via CreateOptions
	DefaultBlockCount int = 4096
)

// CreateOptions contains optional settings when creating an allocator. Zero values select
// the defaults.
type CreateOptions struct {
	// Flags indicates specific allocator behaviors to activate or deactivate
	Flags CreateFlags

	// BlockSizes holds the payload capacity of the small, medium, large and extra-large size
	// classes, in that order. They must be strictly ascending multiples of memutils.DefaultAlignment.
	BlockSizes [pooledSizeClassCount]int
	// BlockCounts holds the number of slots in each size class's pool. Every count must be a
	// power of two.
	BlockCounts [pooledSizeClassCount]int

	// Source is the memory source all storage is drawn from. A HeapSource is created if it is nil.
	Source source.Source

	// SourceCallbacks is an optional set of callbacks that will be executed whenever storage moves
	// between the allocator and its memory source. Blocks recycled through a pool slot do not
	// trigger them.
	SourceCallbacks *source.CallbackOptions
}

// DefaultOptions returns the options New uses for fields left blank
func DefaultOptions() CreateOptions {
	return CreateOptions{
		BlockSizes: [pooledSizeClassCount]int{
			DefaultSmallBlockSize,
			DefaultMediumBlockSize,
			DefaultLargeBlockSize,
			DefaultExtraLargeBlockSize,
		},
		BlockCounts: [pooledSizeClassCount]int{
			DefaultBlockCount,
			DefaultBlockCount,
			DefaultBlockCount,
			DefaultBlockCount,
		},
	}
}

func (o *CreateOptions) applyDefaults() {
	defaults := DefaultOptions()

	for i := 0; i < pooledSizeClassCount; i++ {
		if o.BlockSizes[i] == 0 {
			o.BlockSizes[i] = defaults.BlockSizes[i]
		}

		if o.BlockCounts[i] == 0 {
			o.BlockCounts[i] = defaults.BlockCounts[i]
		}
	}
}

// Validate checks the block sizes and counts. Blank fields are reported as errors, so it should
// be called on options that have already had their defaults applied.
func (o *CreateOptions) Validate() error {
	for i := 0; i < pooledSizeClassCount; i++ {
		class := SizeClass(i)

		if o.BlockSizes[i] <= 0 {
			return errors.Newf("%s block size must be positive but is %d", class, o.BlockSizes[i])
		}

		err := memutils.CheckAlignment(o.BlockSizes[i], memutils.DefaultAlignment, class.String()+" block size")
		if err != nil {
			return err
		}

		if i > 0 && o.BlockSizes[i] <= o.BlockSizes[i-1] {
			return errors.Newf("%s block size %d must be larger than %s block size %d",
				class, o.BlockSizes[i], SizeClass(i-1), o.BlockSizes[i-1])
		}

		err = memutils.CheckPow2(o.BlockCounts[i], class.String()+" block count")
		if err != nil {
			return err
		}
	}

	return nil
}

type envOptions struct {
	SmallBlockSize       int  `envconfig:"SMALL_BLOCK_SIZE" default:"512"`
	MediumBlockSize      int  `envconfig:"MEDIUM_BLOCK_SIZE" default:"1024"`
	LargeBlockSize       int  `envconfig:"LARGE_BLOCK_SIZE" default:"4096"`
	ExtraLargeBlockSize  int  `envconfig:"EXTRA_LARGE_BLOCK_SIZE" default:"24576"`
	SmallBlockCount      int  `envconfig:"SMALL_BLOCK_COUNT" default:"4096"`
	MediumBlockCount     int  `envconfig:"MEDIUM_BLOCK_COUNT" default:"4096"`
	LargeBlockCount      int  `envconfig:"LARGE_BLOCK_COUNT" default:"4096"`
	ExtraLargeBlockCount int  `envconfig:"EXTRA_LARGE_BLOCK_COUNT" default:"4096"`
	LockFreePools        bool `envconfig:"LOCK_FREE_POOLS" default:"false"`
	Preallocate          bool `envconfig:"PREALLOCATE" default:"false"`
}

// OptionsFromEnv reads the block sizes, block counts and flags from environment variables named
// <prefix>_SMALL_BLOCK_SIZE, <prefix>_LOCK_FREE_POOLS and so on. Unset variables take the
// defaults. Source and SourceCallbacks are left blank.
func OptionsFromEnv(prefix string) (CreateOptions, error) {
	var env envOptions
	err := envconfig.Process(prefix, &env)
	if err != nil {
		return CreateOptions{}, errors.Wrap(err, "failed to read allocator options from the environment")
	}

	options := CreateOptions{
		BlockSizes: [pooledSizeClassCount]int{
			env.SmallBlockSize,
			env.MediumBlockSize,
			env.LargeBlockSize,
			env.ExtraLargeBlockSize,
		},
		BlockCounts: [pooledSizeClassCount]int{
			env.SmallBlockCount,
			env.MediumBlockCount,
			env.LargeBlockCount,
			env.ExtraLargeBlockCount,
		},
	}

	if env.LockFreePools {
		options.Flags |= AllocatorCreateLockFreePools
	}

	if env.Preallocate {
		options.Flags |= AllocatorCreatePreallocate
	}

	return options, options.Validate()
}
