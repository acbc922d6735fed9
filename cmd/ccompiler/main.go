package main

import (
	"flag"
	"fmt"
	"os"

	"twinreg/pkg/compiler"
)

const testSource = `fn add(a: int, b: int) -> int { return a + b }
var x = 10
var y = 20
return add(x, y)
`

// ccompiler prints every stage of a compilation: tokens, AST, the top-level
// scope and the generated assembly.
func main() {
	noOpt := flag.Bool("no-opt", false, "disable constant folding and dead-branch elimination")
	flag.Parse()

	src := testSource
	if flag.NArg() > 0 {
		data, err := os.ReadFile(flag.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
		src = string(data)
	}

	fmt.Printf("Source:\n%s\n", src)

	// Lex
	tokens, err := compiler.Lex(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, "lex error:", err)
		os.Exit(1)
	}

	fmt.Printf("Tokens (%d)\n", len(tokens))
	for _, tok := range tokens {
		fmt.Println(" ", tok)
	}
	fmt.Println()

	// Parse
	stmts, err := compiler.Parse(tokens, src)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse error:", err)
		os.Exit(1)
	}

	fmt.Println("AST")
	for _, s := range stmts {
		fmt.Println(" ", s)
	}
	fmt.Println()

	res, err := compiler.CompileAST(stmts, compiler.Options{Optimize: !*noOpt})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Println("Generated Assembly")
	fmt.Print(res.Assembly)
	fmt.Println()
	fmt.Printf("%d words\n\n", len(res.Program.Words))
	fmt.Print(res.Scopes)
}
