package memory

import (
	"github.com/tetratelabs/wazero/api"

	wasmloader "github.com/wippyai/wasm-loader"
)

// Source hands out the table that is current right now. Codecs consult it
// after calling into the guest, since an allocation may have replaced the
// buffer.
type Source interface {
	Table() *Table
}

// Table is the set of typed accessors and codecs bound to one snapshot of
// linear memory. Tables are immutable; a resize produces a new one.
type Table struct {
	I8  Accessor[int8]
	U8  Accessor[uint8]
	I16 Accessor[int16]
	U16 Accessor[uint16]
	I32 Accessor[int32]
	U32 Accessor[uint32]
	I64 Accessor[int64]
	U64 Accessor[uint64]
	F32 Accessor[float32]
	F64 Accessor[float64]

	Array  ArrayCodec
	String StringCodec

	alloc wasmloader.Allocator
	src   Source
	buf   []byte
	gen   uint64
}

// Option configures a Table.
type Option func(*Table)

// WithGeneration stamps the table with a rebuild counter.
func WithGeneration(gen uint64) Option {
	return func(t *Table) { t.gen = gen }
}

// WithAllocator sets the allocator used by the Create codecs.
func WithAllocator(a wasmloader.Allocator) Option {
	return func(t *Table) { t.alloc = a }
}

// WithSource sets where codecs look up the current table after allocating.
func WithSource(s Source) Option {
	return func(t *Table) { t.src = s }
}

// New builds a table over buf.
func New(buf []byte, opts ...Option) *Table {
	t := &Table{buf: buf}
	for _, opt := range opts {
		opt(t)
	}
	newAccessors(buf, t)
	t.Array = ArrayCodec{t: t}
	t.String = StringCodec{t: t}
	return t
}

// FromMemory builds a table over the current buffer of mem.
func FromMemory(mem api.Memory, opts ...Option) *Table {
	return New(View(mem), opts...)
}

// View returns the whole buffer of mem as a slice aliasing linear memory.
func View(mem api.Memory) []byte {
	if mem == nil {
		return nil
	}
	buf, ok := mem.Read(0, mem.Size())
	if !ok {
		return nil
	}
	return buf
}

// Generation returns the rebuild counter the table was stamped with.
func (t *Table) Generation() uint64 {
	return t.gen
}

// Size returns the length in bytes of the bound buffer.
func (t *Table) Size() uint32 {
	return uint32(len(t.buf))
}

// Bytes returns the bound buffer. It aliases linear memory until the next
// resize.
func (t *Table) Bytes() []byte {
	return t.buf
}

// Allocator returns the allocator bound to the table, or nil.
func (t *Table) Allocator() wasmloader.Allocator {
	return t.alloc
}

// ReadLong reads a 64-bit value in its split form.
func (t *Table) ReadLong(offset uint32, unsigned bool) Long {
	return Long{
		Low:      t.I32.Get(offset),
		High:     t.I32.Get(offset + 4),
		Unsigned: unsigned,
	}
}

// WriteLong writes the low word, then the high word.
func (t *Table) WriteLong(offset uint32, v Long) {
	t.I32.Set(offset, v.Low)
	t.I32.Set(offset+4, v.High)
}

func (t *Table) current() *Table {
	if t.src != nil {
		if cur := t.src.Table(); cur != nil {
			return cur
		}
	}
	return t
}
