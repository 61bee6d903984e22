package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseLink,
				Kind:   KindMissingImport,
				Path:   []string{"lib", "log"},
				Detail: "host function not provided",
			},
			contains: []string{"[link]", "missing_import", "lib.log", "host function not provided"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseMemory,
				Kind:  KindNotInitialized,
			},
			contains: []string{"[memory]", "not_initialized"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseMemory,
				Kind:   KindAllocation,
				Detail: "memory full",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[memory]", "allocation", "memory full", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseCompile,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not find cause through the chain")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseFetch,
		Kind:  KindFetchFailed,
		Path:  []string{"foo"},
	}

	if !err.Is(&Error{Phase: PhaseFetch, Kind: KindFetchFailed}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseCompile, Kind: KindFetchFailed}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseFetch, Kind: KindInvalidData}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhaseFetch, Kind: KindFetchFailed}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseLink, KindTypeMismatch).
		Path("lib", "resize").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "func", "global").
		Build()

	if err.Phase != PhaseLink {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseLink)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if len(err.Path) != 2 || err.Path[0] != "lib" || err.Path[1] != "resize" {
		t.Errorf("Path = %v, want [lib resize]", err.Path)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected func, got global" {
		t.Errorf("Detail = %v, want 'expected func, got global'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("Fetch", func(t *testing.T) {
		cause := errors.New("no such file")
		err := Fetch("module.wasm", cause)
		if err.Phase != PhaseFetch || err.Kind != KindFetchFailed {
			t.Errorf("got [%s] %s", err.Phase, err.Kind)
		}
		if !strings.Contains(err.Error(), "module.wasm") {
			t.Errorf("message %q should name the location", err.Error())
		}
		if !errors.Is(err, cause) {
			t.Error("cause should be reachable")
		}
	})

	t.Run("Compile", func(t *testing.T) {
		err := Compile(errors.New("bad magic"))
		if err.Phase != PhaseCompile || err.Kind != KindInvalidData {
			t.Errorf("got [%s] %s", err.Phase, err.Kind)
		}
	})

	t.Run("Instantiation", func(t *testing.T) {
		err := Instantiation(errors.New("start trapped"))
		if err.Kind != KindInstantiation {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInstantiation)
		}
	})

	t.Run("AllocationFailed", func(t *testing.T) {
		err := AllocationFailed(1024, nil)
		if err.Kind != KindAllocation {
			t.Errorf("Kind = %v, want %v", err.Kind, KindAllocation)
		}
		if !strings.Contains(err.Detail, "1024") {
			t.Errorf("Detail = %v, should contain size", err.Detail)
		}
	})

	t.Run("NotInitialized", func(t *testing.T) {
		err := NotInitialized(PhaseMemory, "allocator")
		if err.Detail != "allocator not initialized" {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseHost, "export", "malloc")
		if err.Kind != KindNotFound || !strings.Contains(err.Detail, `"malloc"`) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("TypeMismatch", func(t *testing.T) {
		err := TypeMismatch(PhaseHost, []string{"memory"}, "memory", "func")
		if err.Kind != KindTypeMismatch {
			t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
		}
	})
}

func TestMissingImportsError(t *testing.T) {
	t.Run("single import", func(t *testing.T) {
		err := NewMissingImportsError([]string{"lib.log"})
		if len(err.Imports) != 1 {
			t.Fatalf("expected 1 import, got %d", len(err.Imports))
		}
		if err.Imports[0].Namespace != "lib" {
			t.Errorf("namespace = %q, want lib", err.Imports[0].Namespace)
		}
		if err.Imports[0].Function != "log" {
			t.Errorf("function = %q, want log", err.Imports[0].Function)
		}
	})

	t.Run("multiple namespaces grouped", func(t *testing.T) {
		err := NewMissingImportsError([]string{
			"lib.log",
			"env.seed",
			"lib.trace",
		})
		msg := err.Error()
		if !strings.Contains(msg, "missing 3") {
			t.Errorf("error should contain count, got: %s", msg)
		}
		if strings.Index(msg, "env:") > strings.Index(msg, "lib:") {
			t.Errorf("namespaces should be sorted, got: %s", msg)
		}
		if !strings.Contains(msg, "- trace") {
			t.Errorf("error should contain function name, got: %s", msg)
		}
	})

	t.Run("empty imports", func(t *testing.T) {
		err := NewMissingImportsError([]string{})
		if !strings.Contains(err.Error(), "no imports specified") {
			t.Errorf("empty error should have specific message, got: %s", err.Error())
		}
	})

	t.Run("errors.Is", func(t *testing.T) {
		err := NewMissingImportsError([]string{"lib.log"})
		if !errors.Is(err, &MissingImportsError{}) {
			t.Error("errors.Is should match MissingImportsError")
		}
		if !errors.Is(err, &Error{Phase: PhaseLink, Kind: KindMissingImport}) {
			t.Error("errors.Is should match link/missing_import")
		}
	})
}

func TestAbortError(t *testing.T) {
	err := &AbortError{Message: "index out of range", File: "~lib/array.ts", Line: 106, Column: 42}
	msg := err.Error()
	if !strings.Contains(msg, "index out of range") || !strings.Contains(msg, "~lib/array.ts(106:42)") {
		t.Errorf("unexpected message %q", msg)
	}
	if !errors.Is(err, &Error{Phase: PhaseHost, Kind: KindAbort}) {
		t.Error("errors.Is should match host/abort")
	}

	var target *AbortError
	wrapped := Wrap(PhaseHost, KindAbort, err, "call main")
	if !errors.As(wrapped, &target) || target.Line != 106 {
		t.Error("errors.As should find AbortError through Wrap")
	}
}
