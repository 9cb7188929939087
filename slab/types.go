package slab

import (
	"reflect"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/dolthub/swiss"
)

// Constructor is implemented by payload types that need more than zeroed memory to be valid.
// Construct is called on the zeroed payload by Allocate, AllocateShared and the buffer functions,
// once per element.
type Constructor interface {
	Construct()
}

// Destructor is implemented by payload types that need to run logic before their storage is
// recycled. Destruct is called once per element when the block is destroyed.
type Destructor interface {
	Destruct()
}

type typeInfo struct {
	// id is the index of this type's destructor in the dispatch table, or 0 if it has none
	id          uint32
	size        int
	alignment   int
	pointerFree bool
	destruct    func(ptr unsafe.Pointer, count, stride int)
}

var (
	typeRegistryLock sync.Mutex
	typeRegistry     = swiss.NewMap[reflect.Type, *typeInfo](64)

	// destructorTable is indexed by a block's destructor id. Entry 0 is always nil. The table
	// is copy-on-write and read without typeRegistryLock.
	destructorTable atomic.Pointer[[]*typeInfo]
)

func init() {
	table := []*typeInfo{nil}
	destructorTable.Store(&table)
}

// typeInfoFor returns the layout and destructor id of T, registering T the first time it is seen
func typeInfoFor[T any]() *typeInfo {
	t := reflect.TypeOf((*T)(nil)).Elem()

	typeRegistryLock.Lock()
	defer typeRegistryLock.Unlock()

	info, ok := typeRegistry.Get(t)
	if ok {
		return info
	}

	info = &typeInfo{
		size:        int(t.Size()),
		alignment:   t.Align(),
		pointerFree: !hasPointers(t),
	}

	if reflect.PointerTo(t).Implements(reflect.TypeOf((*Destructor)(nil)).Elem()) {
		info.destruct = destructElements[T]

		table := *destructorTable.Load()
		info.id = uint32(len(table))

		extended := make([]*typeInfo, len(table), len(table)+1)
		copy(extended, table)
		extended = append(extended, info)
		destructorTable.Store(&extended)
	}

	typeRegistry.Put(t, info)
	return info
}

func destructorFor(id uint32) *typeInfo {
	if id == 0 {
		return nil
	}

	table := *destructorTable.Load()
	if int(id) >= len(table) {
		return nil
	}

	return table[id]
}

func destructElements[T any](ptr unsafe.Pointer, count, stride int) {
	for i := 0; i < count; i++ {
		element := (*T)(unsafe.Add(ptr, i*stride))
		any(element).(Destructor).Destruct()
	}
}

func constructElements[T any](ptr *T, count int) {
	if _, ok := any(ptr).(Constructor); !ok {
		return
	}

	elements := unsafe.Slice(ptr, count)
	for i := range elements {
		any(&elements[i]).(Constructor).Construct()
	}
}

// hasPointers reports whether values of t hold anything the garbage collector would need to trace
func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
