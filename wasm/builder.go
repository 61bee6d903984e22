package wasm

import (
	"fmt"

	"github.com/wippyai/wasm-loader/wasm/internal/binary"
)

type funcDef struct {
	body    []byte
	locals  []ValType
	typeIdx uint32
}

type globalDef struct {
	init    []byte
	typ     ValType
	mutable bool
}

type dataDef struct {
	bytes  []byte
	offset uint32
}

// Builder assembles a core module binary. Function imports must be declared
// before any function is defined so that function indices stay stable.
type Builder struct {
	memory  *Limits
	start   *uint32
	types   []FuncType
	imports []Import
	funcs   []funcDef
	globals []globalDef
	exports []Export
	data    []dataDef
}

// NewBuilder creates an empty module builder.
func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) typeIndex(params, results []ValType) uint32 {
	for i, t := range b.types {
		if sameTypes(t.Params, params) && sameTypes(t.Results, results) {
			return uint32(i)
		}
	}
	b.types = append(b.types, FuncType{Params: params, Results: results})
	return uint32(len(b.types) - 1)
}

func sameTypes(a, b []ValType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ImportFunc declares a function import and returns its function index.
func (b *Builder) ImportFunc(module, name string, params, results []ValType) uint32 {
	if len(b.funcs) > 0 {
		panic(fmt.Sprintf("wasm: import %s.%s declared after function definitions", module, name))
	}
	b.imports = append(b.imports, Import{
		Module:  module,
		Name:    name,
		Kind:    KindFunc,
		TypeIdx: b.typeIndex(params, results),
	})
	return uint32(len(b.imports) - 1)
}

// Func defines a function and returns its index. The final end opcode is
// appended by Build.
func (b *Builder) Func(params, results, locals []ValType, body *Code) uint32 {
	b.funcs = append(b.funcs, funcDef{
		typeIdx: b.typeIndex(params, results),
		locals:  locals,
		body:    body.Bytes(),
	})
	return uint32(len(b.imports) + len(b.funcs) - 1)
}

// Memory declares the module's single memory.
func (b *Builder) Memory(min uint32, max *uint32) {
	b.memory = &Limits{Min: min, Max: max}
}

// GlobalI32 defines an i32 global and returns its index.
func (b *Builder) GlobalI32(init int32, mutable bool) uint32 {
	b.globals = append(b.globals, globalDef{
		typ:     ValI32,
		mutable: mutable,
		init:    NewCode().I32Const(init).Bytes(),
	})
	return uint32(len(b.globals) - 1)
}

// Export exports the item of the given kind and index under name.
func (b *Builder) Export(name string, kind byte, idx uint32) {
	b.exports = append(b.exports, Export{Name: name, Kind: kind, Index: idx})
}

// ExportFunc exports function idx under name.
func (b *Builder) ExportFunc(name string, idx uint32) {
	b.Export(name, KindFunc, idx)
}

// Start sets the start function.
func (b *Builder) Start(idx uint32) {
	b.start = &idx
}

// Data adds an active data segment for memory 0 at offset.
func (b *Builder) Data(offset uint32, data []byte) {
	b.data = append(b.data, dataDef{offset: offset, bytes: data})
}

// Build encodes the module.
func (b *Builder) Build() []byte {
	w := binary.NewWriter()
	w.WriteU32LE(Magic)
	w.WriteU32LE(Version)

	if len(b.types) > 0 {
		s := binary.NewWriter()
		s.WriteU32(uint32(len(b.types)))
		for _, t := range b.types {
			s.Byte(0x60)
			writeValTypes(s, t.Params)
			writeValTypes(s, t.Results)
		}
		w.WriteSection(SectionType, s)
	}

	if len(b.imports) > 0 {
		s := binary.NewWriter()
		s.WriteU32(uint32(len(b.imports)))
		for _, imp := range b.imports {
			s.WriteName(imp.Module)
			s.WriteName(imp.Name)
			s.Byte(KindFunc)
			s.WriteU32(imp.TypeIdx)
		}
		w.WriteSection(SectionImport, s)
	}

	if len(b.funcs) > 0 {
		s := binary.NewWriter()
		s.WriteU32(uint32(len(b.funcs)))
		for _, f := range b.funcs {
			s.WriteU32(f.typeIdx)
		}
		w.WriteSection(SectionFunction, s)
	}

	if b.memory != nil {
		s := binary.NewWriter()
		s.WriteU32(1)
		writeLimits(s, *b.memory)
		w.WriteSection(SectionMemory, s)
	}

	if len(b.globals) > 0 {
		s := binary.NewWriter()
		s.WriteU32(uint32(len(b.globals)))
		for _, g := range b.globals {
			s.Byte(byte(g.typ))
			if g.mutable {
				s.Byte(0x01)
			} else {
				s.Byte(0x00)
			}
			s.WriteBytes(g.init)
			s.Byte(OpEnd)
		}
		w.WriteSection(SectionGlobal, s)
	}

	if len(b.exports) > 0 {
		s := binary.NewWriter()
		s.WriteU32(uint32(len(b.exports)))
		for _, e := range b.exports {
			s.WriteName(e.Name)
			s.Byte(e.Kind)
			s.WriteU32(e.Index)
		}
		w.WriteSection(SectionExport, s)
	}

	if b.start != nil {
		s := binary.NewWriter()
		s.WriteU32(*b.start)
		w.WriteSection(SectionStart, s)
	}

	if len(b.funcs) > 0 {
		s := binary.NewWriter()
		s.WriteU32(uint32(len(b.funcs)))
		for _, f := range b.funcs {
			body := binary.NewWriter()
			writeLocals(body, f.locals)
			body.WriteBytes(f.body)
			body.Byte(OpEnd)
			s.WriteVec(body.Bytes())
		}
		w.WriteSection(SectionCode, s)
	}

	if len(b.data) > 0 {
		s := binary.NewWriter()
		s.WriteU32(uint32(len(b.data)))
		for _, d := range b.data {
			s.WriteU32(0) // active, memory 0
			s.WriteBytes(NewCode().I32Const(int32(d.offset)).Bytes())
			s.Byte(OpEnd)
			s.WriteVec(d.bytes)
		}
		w.WriteSection(SectionData, s)
	}

	return w.Bytes()
}

func writeValTypes(w *binary.Writer, types []ValType) {
	w.WriteU32(uint32(len(types)))
	for _, t := range types {
		w.Byte(byte(t))
	}
}

// writeLocals run-length encodes local declarations.
func writeLocals(w *binary.Writer, locals []ValType) {
	type run struct {
		typ   ValType
		count uint32
	}
	var runs []run
	for _, l := range locals {
		if n := len(runs); n > 0 && runs[n-1].typ == l {
			runs[n-1].count++
			continue
		}
		runs = append(runs, run{typ: l, count: 1})
	}
	w.WriteU32(uint32(len(runs)))
	for _, r := range runs {
		w.WriteU32(r.count)
		w.Byte(byte(r.typ))
	}
}

func writeLimits(w *binary.Writer, lim Limits) {
	if lim.Max != nil {
		w.Byte(0x01)
		w.WriteU32(lim.Min)
		w.WriteU32(*lim.Max)
		return
	}
	w.Byte(0x00)
	w.WriteU32(lim.Min)
}
