package compiler

import (
	"fmt"
	"sort"
	"strings"
)

type VariableKind int

const (
	VarGlobal VariableKind = iota
	VarStack
	VarTemporary
)

func (k VariableKind) String() string {
	switch k {
	case VarGlobal:
		return "global"
	case VarStack:
		return "stack"
	case VarTemporary:
		return "temp"
	}
	return fmt.Sprintf("VariableKind(%d)", int(k))
}

// Frame is the static storage of the top level or of one function. Locals
// occupy the start of the frame; the temporary pool follows them.
type Frame struct {
	Label string

	locals int
	temps  []bool // in-use flag per temporary slot

	acquired int
	released int
}

func newFrame(label string) *Frame {
	return &Frame{Label: label}
}

// Allocate reserves size words for a local and returns its offset.
func (f *Frame) Allocate(size int) int {
	off := f.locals
	f.locals += size
	return off
}

// Size is the total number of words the frame occupies.
func (f *Frame) Size() int {
	return f.locals + len(f.temps)
}

// AcquireTemp takes size contiguous words from the temporary pool, growing it
// if no free run exists.
func (f *Frame) AcquireTemp(t LanguageType) *Variable {
	size := t.Size()
	if size < 1 {
		size = 1
	}
	start := -1
	run := 0
	for i, used := range f.temps {
		if used {
			run = 0
			continue
		}
		run++
		if run == size {
			start = i - size + 1
			break
		}
	}
	if start < 0 {
		// Extend the trailing free run, if any, to the required size.
		start = len(f.temps) - run
		for len(f.temps) < start+size {
			f.temps = append(f.temps, false)
		}
	}
	for i := start; i < start+size; i++ {
		f.temps[i] = true
	}
	f.acquired++
	return &Variable{
		Name:    fmt.Sprintf("$t%d", start),
		Kind:    VarTemporary,
		Type:    t,
		Pointer: Pointer{Frame: f, Offset: start, Temp: true},
	}
}

// ReleaseTemp returns a temporary to the pool. Releasing anything that is not
// an outstanding temporary of this frame is a programming error.
func (f *Frame) ReleaseTemp(v *Variable) {
	if v.Kind != VarTemporary || v.Pointer.Frame != f {
		panic(fmt.Sprintf("ReleaseTemp: %s is not a temporary of frame %s", v.Name, f.Label))
	}
	size := v.Type.Size()
	if size < 1 {
		size = 1
	}
	for i := v.Pointer.Offset; i < v.Pointer.Offset+size; i++ {
		if !f.temps[i] {
			panic(fmt.Sprintf("ReleaseTemp: %s released twice", v.Name))
		}
		f.temps[i] = false
	}
	f.released++
}

// Outstanding returns the number of temporaries acquired but not released.
func (f *Frame) Outstanding() int {
	return f.acquired - f.released
}

// Pointer addresses a word inside a frame. Temporary offsets are relative to
// the end of the frame's locals and are resolved when the program is linked.
type Pointer struct {
	Frame  *Frame
	Offset int
	Temp   bool
}

func (p Pointer) Add(n int) Pointer {
	p.Offset += n
	return p
}

// Operand renders the pointer as an assembler operand.
func (p Pointer) Operand() string {
	off := p.Offset
	if p.Temp {
		off += p.Frame.locals
	}
	if off == 0 {
		return p.Frame.Label
	}
	return fmt.Sprintf("%s+%d", p.Frame.Label, off)
}

func (p Pointer) String() string {
	if p.Temp {
		return fmt.Sprintf("%s[t%d]", p.Frame.Label, p.Offset)
	}
	return fmt.Sprintf("%s[%d]", p.Frame.Label, p.Offset)
}

type Variable struct {
	Name    string
	Kind    VariableKind
	Type    LanguageType
	Pointer Pointer
	// At is where the variable was declared. It is zero for parameters and
	// temporaries.
	At Position
}

// Block is one lexical scope. Blocks that share a frame allocate from the same
// storage; a function body starts a new frame.
type Block struct {
	parent *Block
	frame  *Frame
	vars   map[string]*Variable

	// namespace is the dotted path declarations in this block belong to.
	namespace string

	// function is set on the outermost block of an out-of-line function body.
	function *Function
	// inlineReturn is set on the block an inline call expands into; a return
	// inside it jumps here. Lookups do not continue past such a block.
	inlineReturn   *Label
	inlineFunction *Function
}

func newRootBlock(frame *Frame) *Block {
	return &Block{frame: frame, vars: make(map[string]*Variable)}
}

// Child opens a nested scope in the same frame.
func (b *Block) Child() *Block {
	return &Block{parent: b, frame: b.frame, vars: make(map[string]*Variable), namespace: b.namespace}
}

// functionChild opens the body scope of an out-of-line function.
func (b *Block) functionChild(fn *Function) *Block {
	c := b.Child()
	c.frame = fn.Frame
	c.function = fn
	return c
}

// inlineChild opens the scope an inline body of fn expands into. It stays in
// the caller's frame but resolves names in fn's namespace.
func (b *Block) inlineChild(ret *Label, fn *Function) *Block {
	c := b.Child()
	c.inlineReturn = ret
	c.inlineFunction = fn
	c.namespace = fn.Namespace
	return c
}

func (b *Block) Frame() *Frame { return b.frame }

func (b *Block) isGlobal() bool {
	for s := b; s != nil; s = s.parent {
		if s.function != nil {
			return false
		}
	}
	return true
}

// Declare allocates a variable in this scope. It reports false if the name is
// already declared in this same scope.
func (b *Block) Declare(name string, t LanguageType) (*Variable, bool) {
	if _, exists := b.vars[name]; exists {
		return nil, false
	}
	kind := VarStack
	if b.isGlobal() {
		kind = VarGlobal
	}
	v := &Variable{
		Name:    name,
		Kind:    kind,
		Type:    t,
		Pointer: Pointer{Frame: b.frame, Offset: b.frame.Allocate(t.Size())},
	}
	b.vars[name] = v
	return v, true
}

// bind makes an existing variable visible in this scope under name.
func (b *Block) bind(name string, v *Variable) {
	b.vars[name] = v
}

// Lookup searches this scope and then its parents.
func (b *Block) Lookup(name string) (*Variable, bool) {
	for s := b; s != nil; s = s.parent {
		if v, ok := s.vars[name]; ok {
			return v, true
		}
		if s.inlineReturn != nil {
			break
		}
	}
	return nil, false
}

// visibleAt returns the variables a declaration at pos can see from this
// scope: those declared before pos, inner declarations shadowing outer ones.
func (b *Block) visibleAt(pos Position) map[string]*Variable {
	out := make(map[string]*Variable)
	for s := b; s != nil; s = s.parent {
		for name, v := range s.vars {
			if _, shadowed := out[name]; !shadowed && v.At.Before(pos) {
				out[name] = v
			}
		}
		if s.inlineReturn != nil {
			break
		}
	}
	return out
}

// String returns a deterministically ordered dump of the scope chain,
// innermost first.
func (b *Block) String() string {
	var sb strings.Builder
	depth := 0
	for s := b; s != nil; s = s.parent {
		fmt.Fprintf(&sb, "Scope %d (frame %s", depth, s.frame.Label)
		if s.namespace != "" {
			fmt.Fprintf(&sb, ", namespace %s", s.namespace)
		}
		sb.WriteString("):\n")
		names := make([]string, 0, len(s.vars))
		for name := range s.vars {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			v := s.vars[name]
			fmt.Fprintf(&sb, "  %-20s  %-6s %s (Type: %s)\n", name, v.Kind, v.Pointer, v.Type)
		}
		depth++
	}
	return sb.String()
}
