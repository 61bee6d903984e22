package memory

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

const testBufSize = 4096

func TestHostEndianDetection(t *testing.T) {
	want := binary.NativeEndian.Uint16([]byte{0x01, 0x00}) == 1
	if hostLittleEndian != want {
		t.Errorf("hostLittleEndian = %v, want %v", hostLittleEndian, want)
	}
}

func TestAccessor_LittleEndian(t *testing.T) {
	tbl := New(make([]byte, 16))
	for i, b := range []uint8{0x01, 0x02, 0x03, 0x04} {
		tbl.U8.Set(uint32(8+i), b)
	}
	if got := tbl.U32.Get(8); got != 0x04030201 {
		t.Errorf("U32.Get = %#x, want 0x04030201", got)
	}
	if got := tbl.U16.Get(8); got != 0x0201 {
		t.Errorf("U16.Get = %#x, want 0x0201", got)
	}

	tbl.U64.Set(0, 0x0807060504030201)
	for i := uint32(0); i < 8; i++ {
		if got := tbl.U8.Get(i); got != uint8(i+1) {
			t.Errorf("byte %d = %#x, want %#x", i, got, i+1)
		}
	}
}

func TestAccessor_SignExtension(t *testing.T) {
	tbl := New(make([]byte, 16))

	tbl.U8.Set(0, 0xFF)
	if got := tbl.I8.Get(0); got != -1 {
		t.Errorf("I8.Get(0xFF) = %d, want -1", got)
	}
	tbl.U8.Set(0, 0x80)
	if got := tbl.I8.Get(0); got != math.MinInt8 {
		t.Errorf("I8.Get(0x80) = %d, want %d", got, math.MinInt8)
	}
	tbl.U16.Set(2, 0x8000)
	if got := tbl.I16.Get(2); got != math.MinInt16 {
		t.Errorf("I16.Get(0x8000) = %d, want %d", got, math.MinInt16)
	}
	tbl.U16.Set(2, 0x7FFF)
	if got := tbl.I16.Get(2); got != math.MaxInt16 {
		t.Errorf("I16.Get(0x7FFF) = %d, want %d", got, math.MaxInt16)
	}
	tbl.U32.Set(4, 0xFFFFFFFE)
	if got := tbl.I32.Get(4); got != -2 {
		t.Errorf("I32.Get = %d, want -2", got)
	}
	tbl.U64.Set(8, math.MaxUint64)
	if got := tbl.I64.Get(8); got != -1 {
		t.Errorf("I64.Get = %d, want -1", got)
	}
}

func TestAccessor_RoundTrip(t *testing.T) {
	tbl := New(make([]byte, testBufSize))
	offset := gen.UInt32Range(0, testBufSize-8)

	properties := gopter.NewProperties(nil)

	properties.Property("i8", prop.ForAll(func(off uint32, v int8) bool {
		tbl.I8.Set(off, v)
		return tbl.I8.Get(off) == v
	}, offset, gen.Int8()))
	properties.Property("u8", prop.ForAll(func(off uint32, v uint8) bool {
		tbl.U8.Set(off, v)
		return tbl.U8.Get(off) == v
	}, offset, gen.UInt8()))
	properties.Property("i16", prop.ForAll(func(off uint32, v int16) bool {
		tbl.I16.Set(off, v)
		return tbl.I16.Get(off) == v
	}, offset, gen.Int16()))
	properties.Property("u16", prop.ForAll(func(off uint32, v uint16) bool {
		tbl.U16.Set(off, v)
		return tbl.U16.Get(off) == v
	}, offset, gen.UInt16()))
	properties.Property("i32", prop.ForAll(func(off uint32, v int32) bool {
		tbl.I32.Set(off, v)
		return tbl.I32.Get(off) == v
	}, offset, gen.Int32()))
	properties.Property("u32", prop.ForAll(func(off uint32, v uint32) bool {
		tbl.U32.Set(off, v)
		return tbl.U32.Get(off) == v
	}, offset, gen.UInt32()))
	properties.Property("i64", prop.ForAll(func(off uint32, v int64) bool {
		tbl.I64.Set(off, v)
		return tbl.I64.Get(off) == v
	}, offset, gen.Int64()))
	properties.Property("u64", prop.ForAll(func(off uint32, v uint64) bool {
		tbl.U64.Set(off, v)
		return tbl.U64.Get(off) == v
	}, offset, gen.UInt64()))
	properties.Property("f32 bits", prop.ForAll(func(off uint32, v float32) bool {
		tbl.F32.Set(off, v)
		return math.Float32bits(tbl.F32.Get(off)) == math.Float32bits(v)
	}, offset, gen.Float32()))
	properties.Property("f64 bits", prop.ForAll(func(off uint32, v float64) bool {
		tbl.F64.Set(off, v)
		return math.Float64bits(tbl.F64.Get(off)) == math.Float64bits(v)
	}, offset, gen.Float64()))
	properties.Property("long split", prop.ForAll(func(off uint32, v int64) bool {
		tbl.WriteLong(off, LongFromInt64(v))
		return tbl.I64.Get(off) == v && tbl.ReadLong(off, false).Int64() == v
	}, offset, gen.Int64()))

	properties.TestingRun(t)
}

func TestAccessor_RangeEdges(t *testing.T) {
	tbl := New(make([]byte, 16))
	check := func(name string, ok bool) {
		t.Helper()
		if !ok {
			t.Errorf("%s did not round trip", name)
		}
	}
	for _, v := range []int8{math.MinInt8, -1, 0, math.MaxInt8} {
		tbl.I8.Set(3, v)
		check(fmt.Sprintf("i8 %d", v), tbl.I8.Get(3) == v)
	}
	for _, v := range []int16{math.MinInt16, -1, 0, math.MaxInt16} {
		tbl.I16.Set(3, v)
		check(fmt.Sprintf("i16 %d", v), tbl.I16.Get(3) == v)
	}
	for _, v := range []int32{math.MinInt32, -1, 0, math.MaxInt32} {
		tbl.I32.Set(3, v)
		check(fmt.Sprintf("i32 %d", v), tbl.I32.Get(3) == v)
	}
	for _, v := range []int64{math.MinInt64, -1, 0, math.MaxInt64} {
		tbl.I64.Set(3, v)
		check(fmt.Sprintf("i64 %d", v), tbl.I64.Get(3) == v)
	}
	for _, v := range []uint64{0, 1 << 32, math.MaxUint64} {
		tbl.U64.Set(8, v)
		check(fmt.Sprintf("u64 %d", v), tbl.U64.Get(8) == v)
	}
}

func TestAccessor_FloatBitPatterns(t *testing.T) {
	tbl := New(make([]byte, 16))

	f64s := []uint64{
		0x7FF8000000000001, // quiet NaN with payload
		math.Float64bits(math.Inf(1)),
		math.Float64bits(math.Inf(-1)),
		math.Float64bits(math.Copysign(0, -1)),
		math.Float64bits(math.SmallestNonzeroFloat64),
		math.Float64bits(math.MaxFloat64),
	}
	for _, bits := range f64s {
		tbl.F64.Set(0, math.Float64frombits(bits))
		if got := math.Float64bits(tbl.F64.Get(0)); got != bits {
			t.Errorf("f64 %#x: got %#x", bits, got)
		}
		if got := tbl.U64.Get(0); got != bits {
			t.Errorf("f64 %#x stored as %#x", bits, got)
		}
	}

	f32s := []uint32{
		0x7FC00001,
		math.Float32bits(float32(math.Inf(1))),
		math.Float32bits(float32(math.Copysign(0, -1))),
		math.Float32bits(math.SmallestNonzeroFloat32),
	}
	for _, bits := range f32s {
		tbl.F32.Set(4, math.Float32frombits(bits))
		if got := math.Float32bits(tbl.F32.Get(4)); got != bits {
			t.Errorf("f32 %#x: got %#x", bits, got)
		}
		if got := tbl.U32.Get(4); got != bits {
			t.Errorf("f32 %#x stored as %#x", bits, got)
		}
	}

	tbl.F64.Set(8, 1.0)
	if got := tbl.U8.Get(15); got != 0x3F {
		t.Errorf("high byte of 1.0 = %#x, want 0x3f (little-endian wire)", got)
	}
}

func TestAccessor_OutOfRangePanics(t *testing.T) {
	tbl := New(make([]byte, 8))
	tests := []struct {
		fn   func()
		name string
	}{
		{name: "u8 get", fn: func() { tbl.U8.Get(8) }},
		{name: "u32 straddling end", fn: func() { tbl.U32.Get(6) }},
		{name: "f64 set", fn: func() { tbl.F64.Set(4, 1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			tt.fn()
		})
	}
}

func TestAccessorFor(t *testing.T) {
	tbl := New(make([]byte, 16))
	AccessorFor[uint16](tbl).Set(2, 0xBEEF)
	if got := tbl.U16.Get(2); got != 0xBEEF {
		t.Errorf("got %#x", got)
	}
	AccessorFor[float64](tbl).Set(8, 2.5)
	if got := tbl.F64.Get(8); got != 2.5 {
		t.Errorf("got %v", got)
	}
	if Size[int64]() != 8 || Size[uint8]() != 1 || Size[float32]() != 4 {
		t.Error("unexpected Size")
	}
}

func TestLong(t *testing.T) {
	l := LongFromInt64(-2)
	if l.Low != -2 || l.High != -1 || l.Unsigned {
		t.Errorf("LongFromInt64(-2) = %+v", l)
	}
	if l.String() != "-2" {
		t.Errorf("String = %q", l.String())
	}

	u := LongFromUint64(math.MaxUint64)
	if u.Low != -1 || u.High != -1 || !u.Unsigned {
		t.Errorf("LongFromUint64(max) = %+v", u)
	}
	if u.String() != "18446744073709551615" {
		t.Errorf("String = %q", u.String())
	}
	if u.BigInt().String() != "18446744073709551615" {
		t.Errorf("BigInt = %s", u.BigInt())
	}
	if (Long{Low: -1, High: -1}).BigInt().Int64() != -1 {
		t.Error("signed BigInt should be -1")
	}

	tbl := New(make([]byte, 8))
	tbl.WriteLong(0, Long{Low: 0x04030201, High: 0x08070605})
	if got := tbl.U64.Get(0); got != 0x0807060504030201 {
		t.Errorf("WriteLong stored %#x", got)
	}
	if got := tbl.ReadLong(0, true); got.Uint64() != 0x0807060504030201 || !got.Unsigned {
		t.Errorf("ReadLong = %+v", got)
	}
}

// testHeap is a host-side bump allocator that grows by replacing the buffer,
// the way a guest memory.grow does.
type testHeap struct {
	cur     *Table
	buf     []byte
	next    uint32
	gen     uint64
	grows   int
	mallocs int
}

func newTestHeap(size int) *testHeap {
	h := &testHeap{buf: make([]byte, size), next: 64}
	for i := range h.buf {
		h.buf[i] = 0xAA
	}
	h.rebuild()
	return h
}

func (h *testHeap) rebuild() {
	h.gen++
	h.cur = New(h.buf, WithGeneration(h.gen), WithAllocator(h), WithSource(h))
}

func (h *testHeap) Table() *Table { return h.cur }

func (h *testHeap) Malloc(_ context.Context, size uint32) (uint32, error) {
	h.mallocs++
	ptr := h.next
	h.next = (h.next + size + 7) &^ 7
	if int(h.next) > len(h.buf) {
		grown := make([]byte, 2*int(h.next))
		copy(grown, h.buf)
		for i := len(h.buf); i < len(grown); i++ {
			grown[i] = 0xAA
		}
		h.buf = grown
		h.grows++
		h.rebuild()
	}
	return ptr, nil
}

func (h *testHeap) Memset(_ context.Context, ptr uint32, value byte, size uint32) error {
	for i := ptr; i < ptr+size; i++ {
		h.buf[i] = value
	}
	return nil
}
