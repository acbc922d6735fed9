package compiler

import (
	"errors"
	"strings"
	"testing"
)

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"callee", "(1)(2)", "callee must be an identifier"},
		{"struct initializer as value", "struct P { x: int }\nP{x: 1}", "cannot use struct initializer as an expression"},
		{"untyped struct initializer", "struct P { x: int }\nvar p = {x: 1}", "cannot infer the struct type"},
		{"ambiguous struct argument", "struct P { x: int }\nstruct Q { x: int }\nfn f(p: P) {}\nfn f(q: Q) {}\nf({x: 1})", "cannot infer the struct type"},
		{"mixed initializer", "struct P { x: int, y: int }\nvar p = P{x: 1, 2}", "cannot mix named and positional"},
		{"unknown field", "struct P { x: int }\nvar p = P{z: 1}", "has no field z"},
		{"too many values", "struct P { x: int }\nvar p = P{1, 2}", "too many values"},
		{"undefined overload", "struct V { x: int }\nvar a = V{1}\nvar b = V{2}\nreturn a + b", "operator + is not defined for V and V"},
		{"type mismatch", "var x: int = true", "cannot initialize x of type int with bool"},
		{"assign mismatch", "var x = 1\nx = false", "cannot assign bool"},
		{"condition", "if (1) { }", "condition must be bool"},
		{"logical operands", "var x = 1 && true", "operator && is not defined for int and bool"},
		{"negate bool", "var x = -true", "operator - needs int"},
		{"undefined variable", "return y", "undefined variable y"},
		{"redeclared", "var x = 1\nvar x = 2", "already declared"},
		{"unknown type", "var x: float", "unknown type"},
		{"undefined function", "nope(1)", "undefined function nope"},
		{"no overload", "fn f(a: int) {}\nf(true)", "no overload of f accepts (bool)"},
		{"duplicate function", "fn f(a: int) {}\nfn f(b: int) {}", "already declared"},
		{"struct return", "struct P { x: int }\nfn f() -> P { return {1} }", "cannot return struct"},
		{"inline operator", "inline operator + (a: bool, b: bool) -> bool { return a }", "cannot be inline"},
		{"operator arity", "operator - (a: bool) -> bool { return a }", "exactly two parameters"},
		{"missing return value", "fn f() -> int { return }\nf()", "must return int"},
		{"unexpected return value", "fn f() { return 1 }\nf()", "does not return a value"},
		{"wrong return type", "fn f() -> int { return true }\nf()", "must return int, got bool"},
		{"recursion", "fn f(n: int) -> int { return f(n) }\nf(1)", "recursive call to f"},
		{"mutual recursion", "fn a() -> int { return b() }\nfn b() -> int { return a() }\na()", "recursive call"},
		{"inline recursion", "inline fn f(n: int) -> int { return f(n) }\nf(1)", "cannot call itself"},
		{"struct as value", "struct P { x: int }\nvar p: P\nreturn p", "cannot return P"},
		{"field of non-struct", "var x = 1\nreturn x.y", "has no field y"},
		{"namespace variable", "namespace n { var x = 1 }\nreturn n.x", "undefined variable n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compileError(t, tt.src, tt.want)
		})
	}
}

func TestErrorStagePrefix(t *testing.T) {
	tests := []struct {
		src    string
		prefix string
	}{
		{"var @", "lex: "},
		{"var x", "parse: "},
		{"return y", "initialize: "},
		{"struct P { x: int }\nP{x: 1}", "build: "},
		{"fn f() -> int { return f() }\nf()", "link: "},
	}
	for _, tt := range tests {
		_, err := Compile(tt.src, DefaultOptions())
		if err == nil {
			t.Errorf("%q: expected an error", tt.src)
			continue
		}
		if !strings.HasPrefix(err.Error(), tt.prefix) {
			t.Errorf("%q: error %q does not start with %q", tt.src, err, tt.prefix)
		}
		if errors.Is(err, ErrInternal) {
			t.Errorf("%q: user error reported as internal: %v", tt.src, err)
		}
	}
}

func TestSourceErrorPosition(t *testing.T) {
	_, err := Compile("var a = 1\n\nvar b: int = a > 0", DefaultOptions())
	var se *SourceError
	if !errors.As(err, &se) {
		t.Fatalf("expected a SourceError, got %v", err)
	}
	if se.Range.Start.Line != 3 || se.Range.Start.Col != 1 {
		t.Errorf("expected the error at 3:1, got %s", se.Range)
	}
}

// A tree that skipped type checking must not produce code.
func TestBuildRechecksBuiltinOperands(t *testing.T) {
	u := newUnit()
	rng := SourceRange{}
	e := NewBinaryExpr(rng, OpAdd, NewBoolLiteral(rng, true), NewIntegerLiteral(rng, 1))
	u.types[e.ID()] = Int
	u.program = []Stmt{NewExprStmt(rng, e)}

	err := u.build()
	if !errors.Is(err, ErrInternal) {
		t.Fatalf("expected an internal error, got %v", err)
	}
}
