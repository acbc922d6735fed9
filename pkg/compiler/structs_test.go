package compiler

import (
	"strings"
	"testing"
)

const structPrelude = `
struct V { x: int, y: int }
struct Seg { a: V, b: V, live: bool }
`

func TestStructs_E2E(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected uint16
	}{
		{"named fields", "var p = V{x: 3, y: 4}\nreturn p.x * 10 + p.y", 34},
		{"positional fields", "var p: V = {5, 6}\nreturn p.x * 10 + p.y", 56},
		{"missing fields are zero", "var p: V = {y: 9}\nreturn p.x * 10 + p.y", 9},
		{"zero value", "var p: V\nreturn p.x + p.y", 0},
		{"copy", "var p = V{1, 2}\nvar q: V = p\np.x = 7\nreturn q.x * 10 + p.x", 17},
		{"assign initializer", "var p = V{1, 2}\np = {y: 5}\nreturn p.x * 10 + p.y", 5},
		{"nested", "var s = Seg{a: {1, 2}, b: V{3, 4}, live: true}\nreturn s.a.y * 10 + s.b.x", 23},
		{"nested assign", "var s: Seg\ns.b.y = 8\ns.a = s.b\nreturn s.a.y", 8},
		{"bool field", "var s = Seg{live: true}\nif (s.live) { return 1 }\nreturn 2", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runBoth(t, structPrelude+tt.body); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestStructArguments(t *testing.T) {
	src := structPrelude + `
fn length2(v: V) -> int { return v.x * v.x + v.y * v.y }
inline fn sum(v: V) -> int { return v.x + v.y }
fn mid(s: Seg) -> int { return (s.a.x + s.b.x) / 2 }
var p = V{3, 4}
var s = Seg{a: {2, 0}, b: {6, 0}}
return length2(p) + sum({x: 5, y: 6}) + mid(s)`
	// 25 + 11 + 4
	if got := runBoth(t, src); got != 40 {
		t.Errorf("expected 40, got %d", got)
	}
}

func TestStructLayout(t *testing.T) {
	res := compileCode(t, structPrelude+"var s: Seg\nvar n = 1", DefaultOptions())
	// Seg is two V (2 words each) and a bool.
	if want := "globals: .SPACE 6"; !strings.Contains(res.Assembly, want) {
		t.Errorf("expected %q in\n%s", want, res.Assembly)
	}
}
