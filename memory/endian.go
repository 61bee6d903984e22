package memory

import (
	"math"
	"unsafe"
)

// hostLittleEndian reports whether float64 values are stored little-endian in
// host memory. Computed once by storing -0 and inspecting the sign byte.
var hostLittleEndian = detectLittleEndian()

func detectLittleEndian() bool {
	f := math.Copysign(0, -1)
	b := (*[8]byte)(unsafe.Pointer(&f))
	return b[7] == 0x80
}

// copyOrdered copies n wire bytes (little-endian) into or out of a host
// value's storage, reversing when the host is big-endian.
func copyOrdered(dst, src []byte) {
	if hostLittleEndian {
		copy(dst, src)
		return
	}
	n := len(src)
	for i := 0; i < n; i++ {
		dst[i] = src[n-1-i]
	}
}

func getF32(buf []byte, off uint32) float32 {
	var f float32
	copyOrdered((*[4]byte)(unsafe.Pointer(&f))[:], buf[off:off+4])
	return f
}

func setF32(buf []byte, off uint32, v float32) {
	copyOrdered(buf[off:off+4], (*[4]byte)(unsafe.Pointer(&v))[:])
}

func getF64(buf []byte, off uint32) float64 {
	var f float64
	copyOrdered((*[8]byte)(unsafe.Pointer(&f))[:], buf[off:off+8])
	return f
}

func setF64(buf []byte, off uint32, v float64) {
	copyOrdered(buf[off:off+8], (*[8]byte)(unsafe.Pointer(&v))[:])
}
