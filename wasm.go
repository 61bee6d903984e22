package wasmloader

import "context"

// Allocator allocates and fills regions of a module's linear memory.
// Implementations call into the guest, so an allocation may grow memory.
type Allocator interface {
	Malloc(ctx context.Context, size uint32) (uint32, error)
	Memset(ctx context.Context, ptr uint32, value byte, size uint32) error
}

// Sizer provides the current size of linear memory in bytes.
type Sizer interface {
	Size() uint32
}

// HeaderSize is the width of the {capacity, length} prefix that precedes
// array and string element data in linear memory.
const HeaderSize = 8

// PageSize is the WebAssembly memory page size.
const PageSize = 65536
