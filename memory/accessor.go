package memory

import (
	"encoding/binary"
	"unsafe"
)

// Number is the set of fixed-width values an Accessor can encode.
type Number interface {
	int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64 | float32 | float64
}

// Accessor reads and writes one fixed-width little-endian encoding at a byte
// offset of the buffer it was built on.
type Accessor[T Number] struct {
	Get func(offset uint32) T
	Set func(offset uint32, v T)
}

// Size returns the encoded width of T in bytes.
func Size[T Number]() uint32 {
	var zero T
	return uint32(unsafe.Sizeof(zero))
}

func newAccessors(buf []byte, t *Table) {
	le := binary.LittleEndian

	t.I8 = Accessor[int8]{
		Get: func(off uint32) int8 { return int8(buf[off]) },
		Set: func(off uint32, v int8) { buf[off] = byte(v) },
	}
	t.U8 = Accessor[uint8]{
		Get: func(off uint32) uint8 { return buf[off] },
		Set: func(off uint32, v uint8) { buf[off] = v },
	}
	t.I16 = Accessor[int16]{
		Get: func(off uint32) int16 { return int16(le.Uint16(buf[off:])) },
		Set: func(off uint32, v int16) { le.PutUint16(buf[off:], uint16(v)) },
	}
	t.U16 = Accessor[uint16]{
		Get: func(off uint32) uint16 { return le.Uint16(buf[off:]) },
		Set: func(off uint32, v uint16) { le.PutUint16(buf[off:], v) },
	}
	t.I32 = Accessor[int32]{
		Get: func(off uint32) int32 { return int32(le.Uint32(buf[off:])) },
		Set: func(off uint32, v int32) { le.PutUint32(buf[off:], uint32(v)) },
	}
	t.U32 = Accessor[uint32]{
		Get: func(off uint32) uint32 { return le.Uint32(buf[off:]) },
		Set: func(off uint32, v uint32) { le.PutUint32(buf[off:], v) },
	}
	t.I64 = Accessor[int64]{
		Get: func(off uint32) int64 { return int64(le.Uint64(buf[off:])) },
		Set: func(off uint32, v int64) { le.PutUint64(buf[off:], uint64(v)) },
	}
	t.U64 = Accessor[uint64]{
		Get: func(off uint32) uint64 { return le.Uint64(buf[off:]) },
		Set: func(off uint32, v uint64) { le.PutUint64(buf[off:], v) },
	}
	t.F32 = Accessor[float32]{
		Get: func(off uint32) float32 { return getF32(buf, off) },
		Set: func(off uint32, v float32) { setF32(buf, off, v) },
	}
	t.F64 = Accessor[float64]{
		Get: func(off uint32) float64 { return getF64(buf, off) },
		Set: func(off uint32, v float64) { setF64(buf, off, v) },
	}
}

// AccessorFor returns the accessor of t that encodes T.
func AccessorFor[T Number](t *Table) Accessor[T] {
	var zero T
	var a any
	switch any(zero).(type) {
	case int8:
		a = t.I8
	case uint8:
		a = t.U8
	case int16:
		a = t.I16
	case uint16:
		a = t.U16
	case int32:
		a = t.I32
	case uint32:
		a = t.U32
	case int64:
		a = t.I64
	case uint64:
		a = t.U64
	case float32:
		a = t.F32
	case float64:
		a = t.F64
	}
	return a.(Accessor[T])
}
