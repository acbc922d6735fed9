package main

import (
	"os"
	"testing"

	"twinreg/pkg/asm"
	"twinreg/pkg/compiler"
	"twinreg/pkg/cpu"
)

func TestCompilerAndCPU(t *testing.T) {
	// 1. Read source
	srcBytes, err := os.ReadFile("../_progs/fib.src")
	if err != nil {
		t.Fatalf("Failed to read source: %v", err)
	}
	source := string(srcBytes)

	// 2. Lex and Parse
	tokens, err := compiler.Lex(source)
	if err != nil {
		t.Fatalf("Lexing failed: %v", err)
	}

	ast, err := compiler.Parse(tokens, source)
	if err != nil {
		t.Fatalf("Parsing failed: %v", err)
	}

	// 3. Generate Assembly
	res, err := compiler.CompileAST(ast, compiler.DefaultOptions())
	if err != nil {
		t.Fatalf("Code generation failed: %v", err)
	}

	t.Logf("Generated Assembly:\n%s", res.Assembly)

	// 4. Assemble the listing again; it must match the compiler's own image
	prog, err := asm.Assemble(res.Assembly)
	if err != nil {
		t.Fatalf("Assembly failed: %v", err)
	}
	if len(prog.Words) != len(res.Program.Words) {
		t.Fatalf("Reassembled %d words, compiler produced %d", len(prog.Words), len(res.Program.Words))
	}

	// 5. Load and Run
	vm := cpu.NewCPU()
	if err := vm.Load(prog.Words); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := vm.RunSteps(100_000); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// 6. Assertions

	// fib(20) = 6765
	if vm.A != 6765 {
		t.Errorf("Expected A to be 6765, got %d", vm.A)
	}

	// The loop counter is the first slot of fib's frame.
	frame, ok := prog.Labels["fib_frame"]
	if !ok {
		t.Fatalf("fib_frame label missing from program")
	}
	if vm.Memory[frame] != 0 {
		t.Errorf("Expected n to count down to 0, got %d", vm.Memory[frame])
	}

	// Every CALL was matched by a RET.
	if len(vm.CallStack) != 0 {
		t.Errorf("Expected an empty call stack, got depth %d", len(vm.CallStack))
	}
}
