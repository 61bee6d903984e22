package wasm

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tetratelabs/wazero"
)

func buildAllocatorModule() []byte {
	b := NewBuilder()
	logIdx := b.ImportFunc("lib", "log", []ValType{ValI32, ValI32}, nil)
	resize := b.ImportFunc("lib", "resize", nil, nil)
	b.Memory(1, nil)
	b.Export("memory", KindMemory, 0)
	AddBumpAllocator(b, resize, 1024)

	hello := b.Func(nil, nil, nil, NewCode().I32Const(1).I32Const(16).Call(logIdx))
	b.ExportFunc("hello", hello)
	b.Data(16, []byte{2, 0, 0, 0, 2, 0, 0, 0, 'h', 0, 'i', 0})
	return b.Build()
}

func TestInspect_BuiltModule(t *testing.T) {
	info, err := Inspect(buildAllocatorModule())
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}

	wantImports := []Import{
		{Module: "lib", Name: "log", Kind: KindFunc, TypeIdx: 0},
		{Module: "lib", Name: "resize", Kind: KindFunc, TypeIdx: 1},
	}
	if diff := cmp.Diff(wantImports, info.Imports); diff != "" {
		t.Errorf("imports mismatch (-want +got):\n%s", diff)
	}

	var names []string
	for _, e := range info.Exports {
		names = append(names, e.Name+":"+KindName(e.Kind))
	}
	wantExports := []string{"memory:memory", "malloc:func", "memset:func", "hello:func"}
	if diff := cmp.Diff(wantExports, names); diff != "" {
		t.Errorf("exports mismatch (-want +got):\n%s", diff)
	}

	if len(info.Memories) != 1 || info.Memories[0].Min != 1 || info.Memories[0].Max != nil {
		t.Errorf("memories = %+v", info.Memories)
	}
	if info.DataCount != 1 {
		t.Errorf("DataCount = %d, want 1", info.DataCount)
	}

	malloc, ok := info.Export("malloc")
	if !ok {
		t.Fatal("malloc export missing")
	}
	sig, ok := info.FuncType(malloc.Index)
	if !ok {
		t.Fatal("malloc signature missing")
	}
	if diff := cmp.Diff(FuncType{Params: []ValType{ValI32}, Results: []ValType{ValI32}}, sig); diff != "" {
		t.Errorf("malloc signature (-want +got):\n%s", diff)
	}

	if _, ok := info.FuncType(99); ok {
		t.Error("FuncType should fail for unknown index")
	}
}

func TestBuilder_CompilesWithWazero(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, buildAllocatorModule())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	defer compiled.Close(ctx)

	if _, ok := compiled.ExportedFunctions()["malloc"]; !ok {
		t.Error("wazero does not see malloc export")
	}
	if _, ok := compiled.ExportedMemories()["memory"]; !ok {
		t.Error("wazero does not see memory export")
	}
	if got := len(compiled.ImportedFunctions()); got != 2 {
		t.Errorf("imported functions = %d, want 2", got)
	}
}

func TestBuilder_ImportAfterFuncPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	b := NewBuilder()
	b.Func(nil, nil, nil, NewCode())
	b.ImportFunc("lib", "late", nil, nil)
}

func TestBuilder_StartAndGlobals(t *testing.T) {
	b := NewBuilder()
	g := b.GlobalI32(42, false)
	b.Export("answer", KindGlobal, g)
	start := b.Func(nil, nil, nil, NewCode().Op(OpNop))
	b.Start(start)

	info, err := Inspect(b.Build())
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Start == nil || *info.Start != start {
		t.Errorf("Start = %v, want %d", info.Start, start)
	}
	if e, ok := info.Export("answer"); !ok || e.Kind != KindGlobal {
		t.Errorf("answer export = %+v, %v", e, ok)
	}
}

func TestInspect_Invalid(t *testing.T) {
	tests := []struct {
		want error
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "bad magic", data: []byte{0x00, 0x61, 0x73, 0x6e, 0x01, 0, 0, 0}, want: ErrInvalidMagic},
		{name: "bad version", data: []byte{0x00, 0x61, 0x73, 0x6d, 0x02, 0, 0, 0}, want: ErrInvalidVersion},
		{name: "truncated section", data: []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0, 0, 0, 0x07, 0x10, 0x01}},
		{name: "unknown section", data: []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0, 0, 0, 0x20, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Inspect(tt.data)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestInspect_Truncated(t *testing.T) {
	bin := buildAllocatorModule()
	if _, err := Inspect(bin[:len(bin)-5]); err == nil {
		t.Error("expected error for truncated module")
	}
}
