package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/tetratelabs/wazero/api"

	wasmloader "github.com/wippyai/wasm-loader"
	"github.com/wippyai/wasm-loader/memory"
)

// parseArgs converts text arguments to raw wasm values for params.
func parseArgs(params []api.ValueType, values []string) ([]uint64, error) {
	if len(values) != len(params) {
		return nil, fmt.Errorf("expected %d arguments, got %d", len(params), len(values))
	}
	out := make([]uint64, len(params))
	for i, p := range params {
		v, err := parseValue(p, strings.TrimSpace(values[i]))
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s): %w", i, api.ValueTypeName(p), err)
		}
		out[i] = v
	}
	return out, nil
}

func parseValue(t api.ValueType, s string) (uint64, error) {
	switch t {
	case api.ValueTypeI32:
		if strings.HasPrefix(s, "-") {
			v, err := strconv.ParseInt(s, 0, 32)
			return api.EncodeI32(int32(v)), err
		}
		v, err := strconv.ParseUint(s, 0, 32)
		return api.EncodeU32(uint32(v)), err
	case api.ValueTypeI64:
		if strings.HasPrefix(s, "-") {
			v, err := strconv.ParseInt(s, 0, 64)
			return api.EncodeI64(v), err
		}
		return strconv.ParseUint(s, 0, 64)
	case api.ValueTypeF32:
		v, err := strconv.ParseFloat(s, 32)
		return api.EncodeF32(float32(v)), err
	case api.ValueTypeF64:
		v, err := strconv.ParseFloat(s, 64)
		return api.EncodeF64(v), err
	default:
		return 0, fmt.Errorf("unsupported type")
	}
}

// formatResults renders raw results according to their types.
func formatResults(types []api.ValueType, res []uint64) string {
	if len(res) == 0 {
		return "()"
	}
	parts := make([]string, len(res))
	for i, r := range res {
		t := api.ValueTypeI64
		if i < len(types) {
			t = types[i]
		}
		switch t {
		case api.ValueTypeI32:
			parts[i] = strconv.FormatInt(int64(api.DecodeI32(r)), 10)
		case api.ValueTypeF32:
			parts[i] = strconv.FormatFloat(float64(api.DecodeF32(r)), 'g', -1, 32)
		case api.ValueTypeF64:
			parts[i] = strconv.FormatFloat(api.DecodeF64(r), 'g', -1, 64)
		default:
			parts[i] = strconv.FormatInt(int64(r), 10)
		}
	}
	return strings.Join(parts, ", ")
}

const peekBytes = 32

// peek describes the memory at addr: a hex dump, the i32 and f64 read
// there, and the string it would be if addr held a string header.
func peek(t *memory.Table, addr uint32) string {
	if t == nil {
		return "no memory"
	}
	size := t.Size()
	if addr >= size {
		return fmt.Sprintf("address %d is outside memory (%d bytes)", addr, size)
	}

	var b strings.Builder
	end := min(addr+peekBytes, size)
	b.WriteString(strings.TrimRight(hex.Dump(t.Bytes()[addr:end]), "\n"))
	b.WriteString("\n\n")

	if addr+4 <= size {
		fmt.Fprintf(&b, "i32 %d\n", t.I32.Get(addr))
	}
	if addr+8 <= size {
		fmt.Fprintf(&b, "f64 %g\n", t.F64.Get(addr))
		l := t.ReadLong(addr, false)
		fmt.Fprintf(&b, "i64 %s (low %d, high %d)\n", l, l.Low, l.High)
		if s, ok := stringAt(t, addr); ok {
			fmt.Fprintf(&b, "string %q\n", s)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// stringAt decodes a string only if the header is plausible.
func stringAt(t *memory.Table, ptr uint32) (string, bool) {
	hdr := t.Array.Get(ptr)
	if hdr.Length < 0 || hdr.Capacity < hdr.Length {
		return "", false
	}
	if uint64(ptr)+wasmloader.HeaderSize+uint64(hdr.Length)*2 > uint64(t.Size()) {
		return "", false
	}
	return t.String.Get(ptr), true
}
