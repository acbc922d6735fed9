package compiler

import (
	"fmt"

	"twinreg/pkg/asm"
)

// Options controls a compilation.
type Options struct {
	// Optimize enables constant folding and dead-branch elimination.
	Optimize bool
}

func DefaultOptions() Options {
	return Options{Optimize: true}
}

// Result is the output of a successful compilation.
type Result struct {
	Assembly string
	Program  *asm.Program
	// Scopes is a dump of the top-level scope after initialization.
	Scopes string
}

// unit holds the state of one compilation. The side tables are keyed by
// NodeID, written while initializing and only read afterwards.
type unit struct {
	names   *labelNames
	structs map[string]*StructDef
	funcs   *functionRegistry

	types      map[NodeID]LanguageType
	vars       map[NodeID]*Variable
	overloads  map[NodeID]*Function
	calls      map[NodeID]*callSite
	returns    map[NodeID]*Block
	decls      map[NodeID]*Function
	namespaces map[NodeID]*Block

	globals *Frame
	root    *Block
	main    *Builder
	program []Stmt

	expanding map[*Function]bool
}

func newUnit() *unit {
	u := &unit{
		names:      newLabelNames(),
		structs:    make(map[string]*StructDef),
		funcs:      newFunctionRegistry(),
		types:      make(map[NodeID]LanguageType),
		vars:       make(map[NodeID]*Variable),
		overloads:  make(map[NodeID]*Function),
		calls:      make(map[NodeID]*callSite),
		returns:    make(map[NodeID]*Block),
		decls:      make(map[NodeID]*Function),
		namespaces: make(map[NodeID]*Block),
		expanding:  make(map[*Function]bool),
	}
	u.globals = newFrame(u.names.named("globals").Name)
	u.root = newRootBlock(u.globals)
	u.main = newBuilder(u.names, u.globals, nil)
	return u
}

// typeOf returns the resolved type of e. Literals carry their own type;
// every other node must have been initialized.
func (u *unit) typeOf(e Expr) LanguageType {
	switch e.(type) {
	case *IntegerLiteral:
		return Int
	case *BoolLiteral:
		return Bool
	}
	t, ok := u.types[e.ID()]
	if !ok {
		panic(fmt.Sprintf("type of %s read before initialization", e))
	}
	return t
}

// Compile runs the whole pipeline on src.
//
// Pipeline: source → Lex → Parse → Initialize → Optimize → Build → Link → Assemble
func Compile(src string, opts Options) (*Result, error) {
	tokens, err := Lex(src)
	if err != nil {
		return nil, fmt.Errorf("lex: %w", err)
	}

	stmts, err := Parse(tokens, src)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	return CompileAST(stmts, opts)
}

// CompileAST compiles an already parsed program. The statements are not
// modified.
func CompileAST(stmts []Stmt, opts Options) (*Result, error) {
	u := newUnit()

	if err := u.initialize(stmts); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	u.program = stmts
	if opts.Optimize {
		u.optimize()
	}

	if err := u.build(); err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}

	assembly, err := u.link()
	if err != nil {
		return nil, fmt.Errorf("link: %w", err)
	}

	prog, err := asm.Assemble(assembly)
	if err != nil {
		return nil, fmt.Errorf("assemble: %w: %v", ErrInternal, err)
	}

	return &Result{Assembly: assembly, Program: prog, Scopes: u.root.String()}, nil
}
