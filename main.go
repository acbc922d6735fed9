//go:build !js

package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"twinreg/pkg/asm"
	"twinreg/pkg/compiler"
	"twinreg/pkg/cpu"
)

func main() {
	inPath := flag.String("in", "", "input source (.src) or assembly file path")
	outPath := flag.String("out", "", "output binary file path (default: input with .bin extension)")
	asmPath := flag.String("S", "", "also write the generated assembly to this path")
	optimize := flag.Bool("O", true, "fold constants and drop dead branches when compiling")
	runProgram := flag.Bool("run", false, "run the generated binary file on the virtual CPU")
	runBinPath := flag.String("run-bin", "", "run an existing binary file on the virtual CPU")
	steps := flag.Int("steps", 1_000_000, "instruction limit when running")
	flag.Parse()

	if *runProgram && *runBinPath != "" {
		fmt.Fprintln(os.Stderr, "use either -run or -run-bin, not both")
		os.Exit(2)
	}

	assembledOutput := ""
	if *inPath != "" {
		source, err := os.ReadFile(*inPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read input file %q: %v\n", *inPath, err)
			os.Exit(1)
		}

		var prog *asm.Program
		if strings.HasSuffix(*inPath, ".src") {
			res, err := compiler.Compile(string(source), compiler.Options{Optimize: *optimize})
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s:%v\n", *inPath, err)
				os.Exit(1)
			}
			if *asmPath != "" {
				if err := os.WriteFile(*asmPath, []byte(res.Assembly), 0o644); err != nil {
					fmt.Fprintf(os.Stderr, "failed to write assembly file %q: %v\n", *asmPath, err)
					os.Exit(1)
				}
			}
			prog = res.Program
		} else {
			prog, err = asm.Assemble(string(source))
			if err != nil {
				fmt.Fprintf(os.Stderr, "assembly failed: %v\n", err)
				os.Exit(1)
			}
		}

		output := *outPath
		if output == "" {
			output = defaultOutputPath(*inPath)
		}

		if err := writeBinary(output, prog.Words); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write binary file %q: %v\n", output, err)
			os.Exit(1)
		}

		fmt.Printf("assembled %d words -> %s\n", len(prog.Words), output)
		assembledOutput = output
	}

	if *inPath == "" && *runBinPath == "" && !*runProgram {
		fmt.Fprintln(os.Stderr, "nothing to do: provide -in to build, -run to run the built output, or -run-bin <file> to run an existing binary")
		flag.Usage()
		os.Exit(2)
	}

	runTarget := ""
	switch {
	case *runBinPath != "":
		runTarget = *runBinPath
	case *runProgram:
		if assembledOutput == "" {
			fmt.Fprintln(os.Stderr, "-run requires -in, or use -run-bin <file>")
			os.Exit(2)
		}
		runTarget = assembledOutput
	default:
		return
	}

	if err := runBinary(runTarget, *steps); err != nil {
		fmt.Fprintf(os.Stderr, "run failed for %q: %v\n", runTarget, err)
		os.Exit(1)
	}
}

func defaultOutputPath(inPath string) string {
	ext := filepath.Ext(inPath)
	if ext == "" {
		return inPath + ".bin"
	}
	return strings.TrimSuffix(inPath, ext) + ".bin"
}

// writeBinary stores words little-endian, two bytes per word.
func writeBinary(path string, words []uint16) error {
	data := make([]byte, 2*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint16(data[2*i:], w)
	}
	return os.WriteFile(path, data, 0o644)
}

func readBinary(path string) ([]uint16, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("binary has odd length %d", len(data))
	}
	words := make([]uint16, len(data)/2)
	for i := range words {
		words[i] = binary.LittleEndian.Uint16(data[2*i:])
	}
	return words, nil
}

func runBinary(path string, steps int) error {
	words, err := readBinary(path)
	if err != nil {
		return err
	}

	vm := cpu.NewCPU()
	if err := vm.Load(words); err != nil {
		return err
	}
	if err := vm.RunSteps(steps); err != nil {
		return err
	}

	fmt.Printf(
		"run complete (%s): PC=0x%04X Z=%t C=%t A=0x%04X (%d) B=0x%04X steps=%d\n",
		path,
		vm.PC,
		vm.Z,
		vm.C,
		vm.A,
		vm.Signed(),
		vm.B,
		vm.Steps,
	)

	return nil
}
