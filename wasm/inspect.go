package wasm

import (
	"errors"
	"fmt"
	"io"

	"github.com/wippyai/wasm-loader/wasm/internal/binary"
)

// Parsing errors returned by Inspect.
var (
	ErrInvalidMagic   = errors.New("invalid wasm magic number")
	ErrInvalidVersion = errors.New("invalid wasm version")
)

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// Limits describes memory or table bounds in pages or elements.
type Limits struct {
	Max    *uint32
	Min    uint32
	Shared bool
}

// Import is a single module import.
type Import struct {
	Module  string
	Name    string
	Kind    byte
	TypeIdx uint32 // function imports only
}

// Export is a single module export.
type Export struct {
	Name  string
	Kind  byte
	Index uint32
}

// Info is the shallow view of a module needed to wire it up: signatures,
// imports, exports and memories. Function bodies are not decoded.
type Info struct {
	Start     *uint32
	Types     []FuncType
	Imports   []Import
	Funcs     []uint32 // type index per defined function
	Memories  []Limits
	Exports   []Export
	DataCount int
}

// Inspect decodes the header and the declaration sections of a module.
func Inspect(data []byte) (*Info, error) {
	r := binary.NewReader(data)

	magic, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	if magic != Magic {
		return nil, ErrInvalidMagic
	}
	version, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	if version != Version {
		return nil, ErrInvalidVersion
	}

	info := &Info{}
	for {
		id, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return info, nil
			}
			return nil, r.WrapError("section header", err)
		}
		size, err := r.ReadU32()
		if err != nil {
			return nil, r.WrapError("section size", err)
		}
		body, err := r.ReadBytes(int(size))
		if err != nil {
			return nil, r.WrapError("section data", err)
		}

		sr := binary.NewReader(body)
		switch id {
		case SectionType:
			err = parseTypeSection(sr, info)
		case SectionImport:
			err = parseImportSection(sr, info)
		case SectionFunction:
			err = parseFunctionSection(sr, info)
		case SectionMemory:
			err = parseMemorySection(sr, info)
		case SectionExport:
			err = parseExportSection(sr, info)
		case SectionStart:
			var idx uint32
			idx, err = sr.ReadU32()
			info.Start = &idx
		case SectionData:
			var n uint32
			n, err = sr.ReadU32()
			info.DataCount = int(n)
		case SectionCustom, SectionTable, SectionGlobal, SectionElement,
			SectionCode, SectionDataCount, SectionTag:
		default:
			err = fmt.Errorf("unknown section ID: 0x%02x", id)
		}
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", id, err)
		}
	}
}

// ImportedFuncs returns the function imports in index order.
func (i *Info) ImportedFuncs() []Import {
	var out []Import
	for _, imp := range i.Imports {
		if imp.Kind == KindFunc {
			out = append(out, imp)
		}
	}
	return out
}

// Export returns the export with the given name.
func (i *Info) Export(name string) (Export, bool) {
	for _, e := range i.Exports {
		if e.Name == name {
			return e, true
		}
	}
	return Export{}, false
}

// FuncType returns the signature of the function at idx in the function
// index space, imports first.
func (i *Info) FuncType(idx uint32) (FuncType, bool) {
	imported := i.ImportedFuncs()
	var typeIdx uint32
	switch {
	case int(idx) < len(imported):
		typeIdx = imported[idx].TypeIdx
	case int(idx)-len(imported) < len(i.Funcs):
		typeIdx = i.Funcs[int(idx)-len(imported)]
	default:
		return FuncType{}, false
	}
	if int(typeIdx) >= len(i.Types) {
		return FuncType{}, false
	}
	return i.Types[typeIdx], true
}

func parseTypeSection(r *binary.Reader, info *Info) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	info.Types = make([]FuncType, 0, count)
	for n := uint32(0); n < count; n++ {
		form, err := r.ReadByte()
		if err != nil {
			return err
		}
		if form != 0x60 {
			return fmt.Errorf("unsupported type form 0x%02x", form)
		}
		params, err := readValTypes(r)
		if err != nil {
			return err
		}
		results, err := readValTypes(r)
		if err != nil {
			return err
		}
		info.Types = append(info.Types, FuncType{Params: params, Results: results})
	}
	return nil
}

func readValTypes(r *binary.Reader) ([]ValType, error) {
	count, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	out := make([]ValType, count)
	for n := range out {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		out[n] = ValType(b)
	}
	return out, nil
}

func parseImportSection(r *binary.Reader, info *Info) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	info.Imports = make([]Import, 0, count)
	for n := uint32(0); n < count; n++ {
		module, err := r.ReadName()
		if err != nil {
			return err
		}
		name, err := r.ReadName()
		if err != nil {
			return err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return err
		}
		imp := Import{Module: module, Name: name, Kind: kind}
		switch kind {
		case KindFunc:
			imp.TypeIdx, err = r.ReadU32()
		case KindTable:
			if _, err = r.ReadByte(); err == nil {
				_, err = readLimits(r)
			}
		case KindMemory:
			_, err = readLimits(r)
		case KindGlobal:
			_, err = r.ReadBytes(2)
		case KindTag:
			if _, err = r.ReadByte(); err == nil {
				imp.TypeIdx, err = r.ReadU32()
			}
		default:
			err = fmt.Errorf("unknown import kind: %d", kind)
		}
		if err != nil {
			return err
		}
		info.Imports = append(info.Imports, imp)
	}
	return nil
}

func parseFunctionSection(r *binary.Reader, info *Info) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	info.Funcs = make([]uint32, count)
	for n := range info.Funcs {
		if info.Funcs[n], err = r.ReadU32(); err != nil {
			return err
		}
	}
	return nil
}

func parseMemorySection(r *binary.Reader, info *Info) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	for n := uint32(0); n < count; n++ {
		lim, err := readLimits(r)
		if err != nil {
			return err
		}
		info.Memories = append(info.Memories, lim)
	}
	return nil
}

func parseExportSection(r *binary.Reader, info *Info) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	info.Exports = make([]Export, 0, count)
	for n := uint32(0); n < count; n++ {
		name, err := r.ReadName()
		if err != nil {
			return err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return err
		}
		if kind > KindTag {
			return fmt.Errorf("invalid export kind: 0x%02x", kind)
		}
		idx, err := r.ReadU32()
		if err != nil {
			return err
		}
		info.Exports = append(info.Exports, Export{Name: name, Kind: kind, Index: idx})
	}
	return nil
}

func readLimits(r *binary.Reader) (Limits, error) {
	flags, err := r.ReadByte()
	if err != nil {
		return Limits{}, err
	}
	if flags > 0x03 {
		return Limits{}, fmt.Errorf("unsupported limits flags 0x%02x", flags)
	}
	lim := Limits{Shared: flags&0x02 != 0}
	if lim.Min, err = r.ReadU32(); err != nil {
		return Limits{}, err
	}
	if flags&0x01 != 0 {
		max, err := r.ReadU32()
		if err != nil {
			return Limits{}, err
		}
		lim.Max = &max
	}
	return lim, nil
}
