package main

import (
	"errors"
	"strings"
	"testing"

	"twinreg/pkg/compiler"
	"twinreg/pkg/cpu"
)

func TestTraceRun(t *testing.T) {
	res, err := compiler.Compile("var x = 4\nreturn x * 3", compiler.DefaultOptions())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	vm := cpu.NewCPU()
	if err := vm.Load(res.Program.Words); err != nil {
		t.Fatal(err)
	}

	var out strings.Builder
	tr := &tracer{prog: res.Program, listing: strings.Split(res.Assembly, "\n"), out: &out}
	if err := tr.run(vm, 1000); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != vm.Steps {
		t.Errorf("expected one trace line per step, got %d lines for %d steps", len(lines), vm.Steps)
	}
	if last := lines[len(lines)-1]; !strings.Contains(last, "HLT") || !strings.Contains(last, "A=000C") {
		t.Errorf("unexpected final trace line %q", last)
	}
	for _, l := range lines {
		if strings.Contains(l, ";") {
			t.Errorf("comments must be stripped: %q", l)
		}
	}
}

func TestTraceStepLimit(t *testing.T) {
	res, err := compiler.Compile("var x = 1\nwhile (x > 0) { x = x + 1 }", compiler.DefaultOptions())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	vm := cpu.NewCPU()
	if err := vm.Load(res.Program.Words); err != nil {
		t.Fatal(err)
	}
	var out strings.Builder
	tr := &tracer{prog: res.Program, listing: strings.Split(res.Assembly, "\n"), out: &out}
	if err := tr.run(vm, 50); !errors.Is(err, cpu.ErrStepLimit) {
		t.Errorf("expected ErrStepLimit, got %v", err)
	}
}
