// Package memory provides the call-scoped view of an instance's linear
// memory handed to host function callbacks.
//
// Every access is checked against the byte length captured when the view was
// created; an out-of-range or overflowing range returns a memory error and
// performs no read or write:
//
//	b, err := mem.Bytes(ptr, n) // aliases guest memory
//	buf, err := mem.ReadExact(ptr, n)
//	err = mem.Write(data, ptr)
//
// The base address is re-derived from the host on each operation. After a
// re-entrant call that may grow memory, obtain a new view with Reacquire;
// the old view keeps its old length.
//
// Views are released when the host call that created them returns. A
// released view fails every operation, so a view retained past its call
// cannot touch memory.
package memory
