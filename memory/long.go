package memory

import (
	"math/big"
	"strconv"
)

// Long is a 64-bit integer split into two 32-bit words. Accessors use native
// int64/uint64; Long exists for callers that exchange the split form.
type Long struct {
	Low      int32
	High     int32
	Unsigned bool
}

// LongFromInt64 splits a signed value.
func LongFromInt64(v int64) Long {
	return Long{Low: int32(v), High: int32(v >> 32)}
}

// LongFromUint64 splits an unsigned value.
func LongFromUint64(v uint64) Long {
	return Long{Low: int32(uint32(v)), High: int32(uint32(v >> 32)), Unsigned: true}
}

// Uint64 joins the words as an unsigned value.
func (l Long) Uint64() uint64 {
	return uint64(uint32(l.High))<<32 | uint64(uint32(l.Low))
}

// Int64 joins the words as a signed value.
func (l Long) Int64() int64 {
	return int64(l.Uint64())
}

// BigInt returns the value honoring the Unsigned tag.
func (l Long) BigInt() *big.Int {
	if l.Unsigned {
		return new(big.Int).SetUint64(l.Uint64())
	}
	return big.NewInt(l.Int64())
}

func (l Long) String() string {
	if l.Unsigned {
		return strconv.FormatUint(l.Uint64(), 10)
	}
	return strconv.FormatInt(l.Int64(), 10)
}
