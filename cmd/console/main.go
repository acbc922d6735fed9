package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"twinreg/pkg/asm"
	"twinreg/pkg/compiler"
	"twinreg/pkg/cpu"
)

// tracer prints one line per executed instruction: the listing text at PC
// followed by the registers after the step.
type tracer struct {
	prog    *asm.Program
	listing []string
	out     io.Writer
}

func (t *tracer) source(pc uint16) string {
	line, ok := t.prog.SourceMap[pc]
	if !ok || line-1 >= len(t.listing) {
		return fmt.Sprintf("?? %04X", pc)
	}
	text := strings.TrimSpace(t.listing[line-1])
	if i := strings.Index(text, ";"); i >= 0 {
		text = strings.TrimSpace(text[:i])
	}
	return strings.Join(strings.Fields(text), " ")
}

// run steps vm until it halts or limit instructions have executed.
func (t *tracer) run(vm *cpu.CPU, limit int) error {
	for !vm.Halted {
		if vm.Steps >= limit {
			return cpu.ErrStepLimit
		}
		pc := vm.PC
		text := t.source(pc)
		vm.Step()
		fmt.Fprintf(t.out, "%04X  %-18s A=%04X B=%04X Z=%d C=%d\n",
			pc, text, vm.A, vm.B, flag01(vm.Z), flag01(vm.C))
	}
	return nil
}

func flag01(b bool) int {
	if b {
		return 1
	}
	return 0
}

func main() {
	showAsm := flag.Bool("show-asm", false, "print the generated assembly before running")
	noOpt := flag.Bool("no-opt", false, "disable constant folding and dead-branch elimination")
	limit := flag.Int("steps", 100_000, "instruction limit")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: console [-show-asm] [-no-opt] [-steps n] program.src")
		os.Exit(2)
	}

	sourceBytes, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to read source file: %v", err)
	}

	res, err := compiler.Compile(string(sourceBytes), compiler.Options{Optimize: !*noOpt})
	if err != nil {
		log.Fatalf("Compilation failed: %v", err)
	}
	if *showAsm {
		fmt.Print(res.Assembly)
		fmt.Println()
	}

	vm := cpu.NewCPU()
	if err := vm.Load(res.Program.Words); err != nil {
		log.Fatalf("Loading program failed: %v", err)
	}

	t := &tracer{prog: res.Program, listing: strings.Split(res.Assembly, "\n"), out: os.Stdout}
	if err := t.run(vm, *limit); err != nil {
		log.Fatalf("Run failed after %d steps: %v", vm.Steps, err)
	}
	fmt.Printf("halted after %d steps: A=%d\n", vm.Steps, vm.Signed())
}
