package compiler

import (
	"errors"
	"strings"
	"testing"

	"twinreg/pkg/cpu"
)

// compileCode compiles source and fails the test on any error.
func compileCode(t *testing.T, source string, opts Options) *Result {
	t.Helper()
	res, err := Compile(source, opts)
	if err != nil {
		t.Fatalf("Compile failed: %v\nSource:\n%s", err, source)
	}
	return res
}

// runResult loads a compiled program and runs it until it halts.
func runResult(t *testing.T, res *Result) *cpu.CPU {
	t.Helper()
	vm := cpu.NewCPU()
	if err := vm.Load(res.Program.Words); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := vm.RunSteps(100000); err != nil {
		t.Fatalf("Run failed: %v\nAssembly:\n%s", err, res.Assembly)
	}
	return vm
}

// runCode compiles and runs source with the given options and returns the
// final machine state.
func runCodeWith(t *testing.T, source string, opts Options) *cpu.CPU {
	t.Helper()
	return runResult(t, compileCode(t, source, opts))
}

func runCode(t *testing.T, source string) *cpu.CPU {
	t.Helper()
	return runCodeWith(t, source, DefaultOptions())
}

// runBoth runs source with and without optimization and checks both
// programs agree on A.
func runBoth(t *testing.T, source string) uint16 {
	t.Helper()
	opt := runCodeWith(t, source, Options{Optimize: true})
	plain := runCodeWith(t, source, Options{Optimize: false})
	if opt.A != plain.A {
		t.Errorf("optimized A = %d, unoptimized A = %d\nSource:\n%s", opt.A, plain.A, source)
	}
	return opt.A
}

// compileError compiles source expecting a SourceError containing want.
func compileError(t *testing.T, source, want string) {
	t.Helper()
	_, err := Compile(source, DefaultOptions())
	if err == nil {
		t.Fatalf("expected error containing %q, compiled fine\nSource:\n%s", want, source)
	}
	var se *SourceError
	if !errors.As(err, &se) {
		t.Fatalf("expected a SourceError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), want) {
		t.Errorf("error %q does not contain %q", err, want)
	}
}
