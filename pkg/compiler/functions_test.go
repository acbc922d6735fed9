package compiler

import (
	"strings"
	"testing"
)

func TestFunctionCall_E2E(t *testing.T) {
	src := `
fn add(a: int, b: int) -> int { return a + b }
add(3, 4)`
	vm := runCode(t, src)
	if vm.A != 7 {
		t.Errorf("expected 7, got %d", vm.A)
	}
	if len(vm.CallStack) != 0 {
		t.Errorf("expected an empty call stack, got %v", vm.CallStack)
	}
}

func TestInlineMatchesOutOfLine(t *testing.T) {
	bodies := []string{
		"return v * v",
		"if (v > 10) { return 10 }\n\treturn v",
		"var acc = 0\n\tvar i = 0\n\twhile (i < v) {\n\t\tacc = acc + i\n\t\ti = i + 1\n\t}\n\treturn acc",
		"return -v + 2 * v",
	}
	for _, body := range bodies {
		for _, inline := range []string{"", "inline "} {
			src := inline + "fn f(v: int) -> int {\n\t" + body + "\n}\n" +
				"var a = f(3)\nvar b = f(15)\nreturn a + f(a) - b"
			outline := strings.TrimPrefix(src, inline)

			want := runBoth(t, outline)
			if got := runBoth(t, src); got != want {
				t.Errorf("%sbody %q: expected %d, got %d", inline, body, want, got)
			}
		}
	}
}

func TestInlineEarlyReturn(t *testing.T) {
	src := `
inline fn clamp(v: int) -> int {
	if (v > 10) {
		return 10
	}
	return v
}
return clamp(15) + clamp(3)`
	res := compileCode(t, src, DefaultOptions())
	if strings.Contains(res.Assembly, "CALL") || strings.Contains(res.Assembly, "RET") {
		t.Errorf("inline calls must not use CALL/RET\n%s", res.Assembly)
	}
	if got := runResult(t, res).A; got != 13 {
		t.Errorf("expected 13, got %d", got)
	}
}

func TestNestedInline(t *testing.T) {
	src := `
inline fn double(v: int) -> int { return v + v }
inline fn quad(v: int) -> int { return double(double(v)) }
fn octo(v: int) -> int { return double(quad(v)) }
return octo(quad(1))`
	if got := runBoth(t, src); got != 32 {
		t.Errorf("expected 32, got %d", got)
	}
}

func TestArgumentStaging(t *testing.T) {
	src := `
fn sub(a: int, b: int) -> int { return a - b }
return sub(10, sub(5, 2)) + sub(sub(9, 1), 1)`
	// 10 - 3 + 8 - 1
	if got := runBoth(t, src); got != 14 {
		t.Errorf("expected 14, got %d", got)
	}
}

func TestVoidFunction(t *testing.T) {
	src := `
var g = 0
fn bump(n: int) {
	if (n == 0) {
		return
	}
	g = g + n
}
bump(5)
bump(0)
bump(2)
return g`
	if got := runBoth(t, src); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
}

func TestFunctionLocalsAreStatic(t *testing.T) {
	src := `
fn next() -> int {
	var n = 1
	return n
}
var a = next()
return a + next()`
	if got := runBoth(t, src); got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
}

func TestOverloading(t *testing.T) {
	src := `
fn pick(a: int) -> int { return 1 }
fn pick(a: bool) -> int { return 2 }
fn pick(a: int, b: int) -> int { return 3 }
return pick(5) * 100 + pick(true) * 10 + pick(1, 2)`
	if got := runBoth(t, src); got != 123 {
		t.Errorf("expected 123, got %d", got)
	}
}

func TestOperatorOverload(t *testing.T) {
	src := `
struct V { x: int, y: int }
operator + (a: V, b: V) -> int { return a.x + b.x + a.y + b.y }
operator == (a: V, b: V) -> bool { return a.x == b.x && a.y == b.y }
var p = V{x: 1, y: 2}
var q = V{3, 4}
var r = 0
if (p == p) { r = 100 }
if (p == q) { r = r + 1000 }
return r + (p + q)`
	if got := runBoth(t, src); got != 110 {
		t.Errorf("expected 110, got %d", got)
	}
}

func TestNamespaces(t *testing.T) {
	src := `
namespace math {
	fn double(v: int) -> int { return v * 2 }
	namespace inner {
		fn quad(v: int) -> int { return double(double(v)) }
	}
}
namespace util {
	fn double(v: int) -> int { return v + 1 }
}
return math.inner.quad(3) + util.double(1)`
	if got := runBoth(t, src); got != 14 {
		t.Errorf("expected 14, got %d", got)
	}
}

func TestDeadFunctionElimination(t *testing.T) {
	src := `
fn unused() -> int { return 1 }
fn helper() -> int { return 2 }
fn used() -> int { return helper() }
return used()`
	res := compileCode(t, src, DefaultOptions())
	if strings.Contains(res.Assembly, "unused") {
		t.Errorf("unused function was emitted\n%s", res.Assembly)
	}
	for _, want := range []string{"used:", "helper:", "used_frame:", "helper_frame:"} {
		if !strings.Contains(res.Assembly, want) {
			t.Errorf("expected %q in\n%s", want, res.Assembly)
		}
	}
	if got := runResult(t, res).A; got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
}

func TestDeadBranchDropsCallee(t *testing.T) {
	src := `
fn never() -> int { return 1 }
if (false) { never() }
return 0`
	if res := compileCode(t, src, Options{Optimize: true}); strings.Contains(res.Assembly, "never") {
		t.Errorf("function only called from a dead branch was emitted\n%s", res.Assembly)
	}
	if res := compileCode(t, src, Options{Optimize: false}); !strings.Contains(res.Assembly, "never:") {
		t.Errorf("expected the unoptimized program to keep the callee\n%s", res.Assembly)
	}
}

func TestInlineScope(t *testing.T) {
	src := `
var scale = 3
inline fn scaled(v: int) -> int {
	var tmp = v * scale
	return tmp
}
{
	var scale = 100
	var tmp = 1
	return scaled(2) + tmp
}`
	// The body sees the global scale, not the caller's local.
	if got := runBoth(t, src); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}

	compileError(t, `
inline fn peek() -> int { return secret }
{
	var secret = 1
	peek()
}`, "undefined variable secret")
}

func TestInlineSeesOnlyEarlierGlobals(t *testing.T) {
	compileError(t, "inline fn f() -> int { return g }\nvar g = 5\nreturn f()", "undefined variable g")
	compileError(t, "fn f() -> int { return g }\nvar g = 5\nreturn f()", "undefined variable g")

	src := `
var g = 5
inline fn f() -> int { return g }
var late = 1
return f() + late`
	if got := runBoth(t, src); got != 6 {
		t.Errorf("expected 6, got %d", got)
	}
}
