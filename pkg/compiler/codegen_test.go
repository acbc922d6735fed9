package compiler

import (
	"fmt"
	"strings"
	"testing"
)

func TestArithmetic_E2E(t *testing.T) {
	tests := []struct {
		expr     string
		expected uint16
	}{
		{"x + y", 13},
		{"x - y", 7},
		{"y - x", 65529},
		{"x * y", 30},
		{"x / y", 3},
		{"x % y", 1},
		{"x % 0", 10},
		{"x / 0", 0},
		{"x & y", 2},
		{"x | y", 11},
		{"x ^ y", 9},
		{"x << y", 80},
		{"x >> 1", 5},
		{"-x", 65526},
		{"-(x - y) * 2", 65522},
	}
	for _, tt := range tests {
		src := fmt.Sprintf("var x = 10\nvar y = 3\nreturn %s", tt.expr)
		if got := runBoth(t, src); got != tt.expected {
			t.Errorf("%s: expected %d, got %d", tt.expr, tt.expected, got)
		}
	}
}

func TestRelational_E2E(t *testing.T) {
	pairs := [][2]int{{5, 5}, {5, 6}, {6, 5}}
	ops := []struct {
		op   string
		eval func(a, b int) bool
	}{
		{">", func(a, b int) bool { return a > b }},
		{">=", func(a, b int) bool { return a >= b }},
		{"<", func(a, b int) bool { return a < b }},
		{"<=", func(a, b int) bool { return a <= b }},
		{"==", func(a, b int) bool { return a == b }},
		{"!=", func(a, b int) bool { return a != b }},
	}
	for _, o := range ops {
		for _, p := range pairs {
			want := uint16(0)
			if o.eval(p[0], p[1]) {
				want = 1
			}

			value := fmt.Sprintf("var a = %d\nvar b = %d\nreturn a %s b", p[0], p[1], o.op)
			if got := runCode(t, value).A; got != want {
				t.Errorf("value %d %s %d: expected %d, got %d", p[0], o.op, p[1], want, got)
			}

			branch := fmt.Sprintf("var a = %d\nvar b = %d\nvar r = 7\nif (a %s b) { r = 1 } else { r = 0 }\nreturn r", p[0], p[1], o.op)
			if got := runCode(t, branch).A; got != want {
				t.Errorf("branch %d %s %d: expected %d, got %d", p[0], o.op, p[1], want, got)
			}

			folded := fmt.Sprintf("return %d %s %d", p[0], o.op, p[1])
			if got := runBoth(t, folded); got != want {
				t.Errorf("literal %d %s %d: expected %d, got %d", p[0], o.op, p[1], want, got)
			}
		}
	}
}

func TestUnsignedComparison(t *testing.T) {
	src := "var n = -1\nreturn n > 1"
	if got := runBoth(t, src); got != 1 {
		t.Errorf("expected -1 to compare as 65535, got %d", got)
	}
}

func TestLogical_E2E(t *testing.T) {
	tests := []struct {
		expr     string
		expected uint16
	}{
		{"t && t", 1},
		{"t && f", 0},
		{"f && t", 0},
		{"t || f", 1},
		{"f || f", 0},
		{"!t", 0},
		{"!f", 1},
		{"t == f", 0},
		{"t != f", 1},
		{"t == !f", 1},
		{"!(t && f) || f", 1},
		{"(a < b) == (b > a)", 1},
		{"a < b && b < a || a == 5", 1},
	}
	for _, tt := range tests {
		src := fmt.Sprintf("var t = true\nvar f = false\nvar a = 5\nvar b = 6\nreturn %s", tt.expr)
		if got := runBoth(t, src); got != tt.expected {
			t.Errorf("%s: expected %d, got %d", tt.expr, tt.expected, got)
		}
	}
}

// Both outcomes of every condition must land on exactly one of the two
// branches.
func TestBranchTotality(t *testing.T) {
	conds := []string{
		"a < b", "a >= b", "a == b", "a != b",
		"t", "!t", "t && a < b", "f || a > b", "!(a < b && t)",
	}
	for _, cond := range conds {
		src := fmt.Sprintf(`
var t = true
var f = false
var a = 5
var b = 6
var hits = 0
if (%s) { hits = hits + 1 } else { hits = hits + 10 }
if (!(%s)) { hits = hits + 100 } else { hits = hits + 1000 }
return hits`, cond, cond)
		got := runBoth(t, src)
		if got != 1001 && got != 110 {
			t.Errorf("%s: each condition must take exactly one branch, hits = %d", cond, got)
		}
	}
}

func TestShortCircuit(t *testing.T) {
	prelude := `
var hits = 0
fn touch(v: bool) -> bool {
	hits = hits + 1
	return v
}
`
	tests := []struct {
		expr string
		hits uint16
	}{
		{"false && touch(true)", 0},
		{"true || touch(true)", 0},
		{"touch(false) && touch(true)", 1},
		{"touch(true) && touch(true)", 2},
		{"touch(true) || touch(true)", 1},
		{"touch(false) || touch(false)", 2},
		{"touch(false) && touch(true) || touch(true)", 2},
	}
	for _, tt := range tests {
		src := prelude + fmt.Sprintf("var r = %s\nreturn hits", tt.expr)
		if got := runBoth(t, src); got != tt.hits {
			t.Errorf("%s: expected %d calls, got %d", tt.expr, tt.hits, got)
		}
	}
}

// Every combination of operand shapes must leave left in A and right in B.
func TestRegisterSequencing(t *testing.T) {
	shapes := map[string]int{
		"x":        10,
		"3":        3,
		"(y + 1)":  4,
		"twice(y)": 6,
		"-y":       -3,
		"s.v":      5,
	}
	for l, lv := range shapes {
		for r, rv := range shapes {
			src := fmt.Sprintf(`
struct S { v: int }
var x = 10
var y = 3
var s = S{v: 5}
fn twice(n: int) -> int { return n * 2 }
return %s - %s`, l, r)
			want := uint16(lv - rv)
			if got := runBoth(t, src); got != want {
				t.Errorf("%s - %s: expected %d, got %d", l, r, want, got)
			}
		}
	}
}

func TestSetRegistersStrategies(t *testing.T) {
	src := "var x = 10\nvar y = 3\nvar a = x - y\nvar b = x - (y + 1)\nreturn a"
	res := compileCode(t, src, Options{Optimize: false})
	// Direct load into B, then a temporary for the compound right side.
	if !strings.Contains(res.Assembly, "LDB   globals+1") {
		t.Errorf("expected a direct LDB of y\n%s", res.Assembly)
	}
	if !strings.Contains(res.Assembly, "STA   globals+4") {
		t.Errorf("expected the left operand to be staged after the locals\n%s", res.Assembly)
	}

	// A unary operand may clobber B whatever its operand is, so it goes
	// through a temporary rather than the double swap.
	boolSrc := "var p = true\nvar q = false\nreturn p == !q"
	res = compileCode(t, boolSrc, Options{Optimize: false})
	if !strings.Contains(res.Assembly, "LDB   globals+2") {
		t.Errorf("expected the left operand to be reloaded from a temporary\n%s", res.Assembly)
	}
	if strings.Count(res.Assembly, "SWP") != 1 {
		t.Errorf("expected a single swap after the reload\n%s", res.Assembly)
	}
	if got := runResult(t, res).A; got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
}

func TestOperandFactsFollowNodeKind(t *testing.T) {
	lit := &IntegerLiteral{Value: 1}
	call := &CallExpr{}
	tests := []struct {
		name     string
		e        Expr
		toB      bool
		clobbers bool
	}{
		{"literal", lit, true, false},
		{"bool", &BoolLiteral{Value: true}, true, false},
		{"identifier", &Identifier{Name: "x"}, true, false},
		{"member", &MemberExpr{Object: &Identifier{Name: "p"}, Name: "x"}, true, false},
		{"struct init", &InitStructExpr{}, false, false},
		{"not literal", &UnaryExpr{Op: OpNot, Operand: lit}, false, true},
		{"not call", &UnaryExpr{Op: OpNot, Operand: call}, false, true},
		{"negate", &UnaryExpr{Op: OpNegate, Operand: lit}, false, true},
		{"binary", &BinaryExpr{Op: OpAdd, Left: lit, Right: lit}, false, true},
		{"call", call, false, true},
	}
	for _, tt := range tests {
		if got := canBuildToB(tt.e); got != tt.toB {
			t.Errorf("%s: canBuildToB = %v, want %v", tt.name, got, tt.toB)
		}
		if got := overwritesB(tt.e); got != tt.clobbers {
			t.Errorf("%s: overwritesB = %v, want %v", tt.name, got, tt.clobbers)
		}
	}
}

func TestWhileLoop_E2E(t *testing.T) {
	src := `
var i = 1
var sum = 0
while (i <= 10) {
	sum = sum + i
	i = i + 1
}
return sum`
	if got := runBoth(t, src); got != 55 {
		t.Errorf("expected 55, got %d", got)
	}
}

func TestNestedControlFlow_E2E(t *testing.T) {
	src := `
var i = 0
var evens = 0
var odds = 0
while (i < 20) {
	if (i % 2 == 0) {
		evens = evens + 1
	} else if (i > 10) {
		odds = odds + 100
	} else {
		odds = odds + 1
	}
	i = i + 1
}
return evens + odds`
	// 10 evens, odds 1..9 add 1 each (5), odds 11..19 add 100 each (5).
	if got := runBoth(t, src); got != 515 {
		t.Errorf("expected 515, got %d", got)
	}
}

func TestTopLevelReturnHalts(t *testing.T) {
	src := `
var x = 4
if (x > 2) {
	return 1
}
return 2`
	vm := runCode(t, src)
	if vm.A != 1 {
		t.Errorf("expected 1, got %d", vm.A)
	}
	if !vm.Halted {
		t.Error("expected the machine to halt")
	}
}

func TestExpressionStatementLeavesValue(t *testing.T) {
	if got := runCode(t, "var x = 20\nx + 1").A; got != 21 {
		t.Errorf("expected 21, got %d", got)
	}
}

func TestZeroInitialization(t *testing.T) {
	src := `
var x = 5
{
	var y: int
	x = x + y
}
var b: bool
if (b) { x = 99 }
return x`
	if got := runBoth(t, src); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}
}
