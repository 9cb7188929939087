// Package slab is a size-classed object allocator with slab recycling.
//
// Objects are constructed in place inside raw storage drawn from one of four fixed-capacity
// recycling pools (small, medium, large and extra-large blocks), or, when a request is larger
// than every size class, inside a single oversize region requested straight from the memory
// source. Each block carries a control block: a reference count, flags and the destroy action
// that destructs the payload and sends the storage back to where it came from.
//
// Two ownership handles tie a typed payload to its block:
//
//   - Ptr is a unique owner. Move transfers it, Reset destroys the payload.
//   - SharedPtr is reference counted. Clone adds an owner, Release drops one, and the owner
//     whose Release brings the count to zero runs the destroy action.
//
// Go has no destructors, so handles must be released explicitly. Copying a handle struct
// by assignment does not add an owner; use Move or Clone.
//
// Slab storage is never scanned by the garbage collector. Only pointer-free types (no pointers,
// strings, slices, maps, channels, funcs or interfaces at any depth) can be allocated; anything
// else fails with ErrPointerType.
//
// A payload type may implement Constructor to run custom default construction and Destructor
// to run logic when its block is destroyed.
package slab
