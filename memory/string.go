package memory

import (
	"context"
	"unicode/utf16"

	"golang.org/x/text/encoding/unicode"
)

// decodeChunkUnits bounds how many code units are transcoded per step.
const decodeChunkUnits = 1 << 14

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// StringCodec reads and creates length-prefixed UTF-16LE strings.
type StringCodec struct {
	t *Table
}

// Get decodes the string at ptr. Unpaired surrogates become U+FFFD; use
// Units for a lossless copy.
func (c StringCodec) Get(ptr uint32) string {
	hdr := c.t.Array.Get(ptr)
	raw := c.t.Array.Elements(hdr, 2)
	if len(raw) == 0 {
		return ""
	}

	dec := utf16le.NewDecoder()
	out := make([]byte, 0, len(raw))
	for len(raw) > 0 {
		n := min(len(raw), decodeChunkUnits*2)
		// keep a high surrogate together with its trailing low surrogate
		if n < len(raw) && isHighSurrogate(raw[n-2], raw[n-1]) {
			n += 2
		}
		chunk, err := dec.Bytes(raw[:n])
		if err != nil {
			chunk = []byte(string(utf16.Decode(units(raw[:n]))))
		}
		out = append(out, chunk...)
		raw = raw[n:]
	}
	return string(out)
}

// Units copies the code units of the string at ptr verbatim.
func (c StringCodec) Units(ptr uint32) []uint16 {
	hdr := c.t.Array.Get(ptr)
	return units(c.t.Array.Elements(hdr, 2))
}

// Create allocates a string holding s encoded as UTF-16LE and returns its
// pointer.
func (c StringCodec) Create(ctx context.Context, s string) (uint32, error) {
	encoded, err := utf16le.NewEncoder().String(s)
	if err != nil {
		return c.CreateUnits(ctx, utf16.Encode([]rune(s)))
	}
	raw := []byte(encoded)

	ref, err := c.t.Array.Create(ctx, uint32(len(raw)/2), 2)
	if err != nil {
		return 0, err
	}
	copy(c.t.current().buf[ref.Base:], raw)
	return ref.Ptr, nil
}

// CreateUnits allocates a string from raw code units, including unpaired
// surrogates.
func (c StringCodec) CreateUnits(ctx context.Context, codeUnits []uint16) (uint32, error) {
	ref, err := c.t.Array.Create(ctx, uint32(len(codeUnits)), 2)
	if err != nil {
		return 0, err
	}
	set := c.t.current().U16.Set
	for i, u := range codeUnits {
		set(ref.Base+uint32(i)*2, u)
	}
	return ref.Ptr, nil
}

func units(raw []byte) []uint16 {
	out := make([]uint16, len(raw)/2)
	for i := range out {
		out[i] = uint16(raw[2*i]) | uint16(raw[2*i+1])<<8
	}
	return out
}

func isHighSurrogate(lo, hi byte) bool {
	u := uint16(lo) | uint16(hi)<<8
	return u >= 0xD800 && u < 0xDC00
}
