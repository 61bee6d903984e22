// Package memory provides typed views over a WebAssembly module's linear memory.
//
// A Table binds one snapshot of the linear memory buffer and exposes an
// Accessor for every fixed-width numeric type together with array and string
// codecs for the 8 byte {capacity, length} header layout:
//
//	tbl := memory.FromMemory(mod.Memory())
//	tbl.U32.Set(64, 0x04030201)
//	v := tbl.U8.Get(64) // 0x01
//
//	hdr := tbl.Array.Get(ptr)  // {Capacity, Length, Base}
//	s := tbl.String.Get(ptr)   // UTF-16LE decoded
//
// # Staleness
//
// Growing memory may move the buffer. A Table and every Accessor taken from it
// are bound to the buffer they were built on and are never updated in place.
// The Tracker rebuilds tables on demand and stamps each one with an increasing
// generation; callers re-fetch accessors after every resize.
//
// # Bounds
//
// Accessors do not check bounds. An offset outside the buffer panics with a
// runtime index error, exactly like slicing the buffer directly.
package memory
