package memory

import (
	"context"
	"math"

	wasmloader "github.com/wippyai/wasm-loader"
	"github.com/wippyai/wasm-loader/errors"
)

// ArrayHeader is the decoded {capacity, length} prefix of an array.
type ArrayHeader struct {
	Capacity int32
	Length   int32
	Base     uint32 // first element byte
}

// ArrayRef locates a freshly created array.
type ArrayRef struct {
	Ptr  uint32
	Base uint32
}

// ArrayCodec reads and creates length-prefixed arrays.
type ArrayCodec struct {
	t *Table
}

// Get decodes the header at ptr without copying element data.
func (c ArrayCodec) Get(ptr uint32) ArrayHeader {
	return ArrayHeader{
		Capacity: c.t.I32.Get(ptr),
		Length:   c.t.I32.Get(ptr + 4),
		Base:     ptr + wasmloader.HeaderSize,
	}
}

// Elements returns the element bytes of hdr as a view into memory.
func (c ArrayCodec) Elements(hdr ArrayHeader, elemSize uint32) []byte {
	n := uint32(hdr.Length) * elemSize
	return c.t.buf[hdr.Base : hdr.Base+n : hdr.Base+n]
}

// Create allocates an array of length elements of elemSize bytes through the
// module allocator. Capacity and length are both set to length and the
// element region is zeroed.
func (c ArrayCodec) Create(ctx context.Context, length, elemSize uint32) (ArrayRef, error) {
	data := uint64(length) * uint64(elemSize)
	if data+wasmloader.HeaderSize > math.MaxUint32 || length > math.MaxInt32 {
		return ArrayRef{}, errors.New(errors.PhaseMemory, errors.KindInvalidInput).
			Value(data).
			Detail("array of %d x %d bytes exceeds 32-bit memory", length, elemSize).
			Build()
	}

	alloc := c.t.alloc
	if alloc == nil {
		return ArrayRef{}, errors.NotInitialized(errors.PhaseMemory, "allocator")
	}

	size := uint32(data) + wasmloader.HeaderSize
	ptr, err := alloc.Malloc(ctx, size)
	if err != nil {
		return ArrayRef{}, errors.AllocationFailed(size, err)
	}
	base := ptr + wasmloader.HeaderSize

	// malloc may have grown memory; write through the table current now.
	cur := c.t.current()
	cur.I32.Set(ptr, int32(length))
	cur.I32.Set(ptr+4, int32(length))

	if data > 0 {
		if err := alloc.Memset(ctx, base, 0, uint32(data)); err != nil {
			return ArrayRef{}, errors.Wrap(errors.PhaseMemory, errors.KindAllocation, err, "zero array elements")
		}
	}
	return ArrayRef{Ptr: ptr, Base: base}, nil
}

// ReadArray copies the elements of the array at ptr.
func ReadArray[T Number](t *Table, ptr uint32) []T {
	hdr := t.Array.Get(ptr)
	get := AccessorFor[T](t).Get
	size := Size[T]()
	out := make([]T, hdr.Length)
	for i := range out {
		out[i] = get(hdr.Base + uint32(i)*size)
	}
	return out
}

// NewArray allocates an array holding values.
func NewArray[T Number](ctx context.Context, t *Table, values []T) (ArrayRef, error) {
	size := Size[T]()
	ref, err := t.Array.Create(ctx, uint32(len(values)), size)
	if err != nil {
		return ArrayRef{}, err
	}
	set := AccessorFor[T](t.current()).Set
	for i, v := range values {
		set(ref.Base+uint32(i)*size, v)
	}
	return ref, nil
}
