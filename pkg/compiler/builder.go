package compiler

import (
	"fmt"
	"strings"

	"twinreg/pkg/cpu"
)

// Label is a jump target. It may be referenced any number of times but is
// marked exactly once.
type Label struct {
	Name   string
	marked bool
}

func (l *Label) String() string { return l.Name }

// Operand is the argument of an instruction: an immediate value, a pointer
// into a frame, or a label address.
type Operand struct {
	Value   int
	Pointer *Pointer
	Label   *Label
}

func Immediate(v int) Operand       { return Operand{Value: v} }
func At(p Pointer) Operand          { return Operand{Pointer: &p} }
func AddressOf(l *Label) Operand    { return Operand{Label: l} }
func (o Operand) IsImmediate() bool { return o.Pointer == nil && o.Label == nil }

func (o Operand) String() string {
	switch {
	case o.Pointer != nil:
		return o.Pointer.Operand()
	case o.Label != nil:
		return o.Label.Name
	}
	return fmt.Sprintf("%d", uint16(o.Value))
}

// line is one entry of a Builder: either a label mark or an instruction.
type line struct {
	mark    *Label
	op      uint16
	arg     *Operand
	comment string
}

// callEdge records a CALL emitted by a builder.
type callEdge struct {
	callee *Function
	rng    SourceRange
}

// Builder accumulates the instructions of one code region: the top-level
// program or the body of one out-of-line function.
type Builder struct {
	names *labelNames
	frame *Frame
	owner *Function // nil for the top level

	lines   []line
	comment string
	calls   []callEdge
}

func newBuilder(names *labelNames, frame *Frame, owner *Function) *Builder {
	return &Builder{names: names, frame: frame, owner: owner}
}

// CreateLabel returns a fresh anonymous label.
func (b *Builder) CreateLabel() *Label {
	return b.names.anonymous()
}

// SetComment attaches a comment to the next emitted instruction.
func (b *Builder) SetComment(format string, args ...any) {
	b.comment = fmt.Sprintf(format, args...)
}

// Mark binds l to the address of the next instruction.
func (b *Builder) Mark(l *Label) {
	if l.marked {
		panic(fmt.Sprintf("label %s marked twice", l.Name))
	}
	l.marked = true
	b.lines = append(b.lines, line{mark: l})
}

func (b *Builder) emit(op uint16, arg *Operand) {
	b.lines = append(b.lines, line{op: op, arg: arg, comment: b.comment})
	b.comment = ""
}

func (b *Builder) emitArg(op uint16, arg Operand) {
	b.emit(op, &arg)
}

func (b *Builder) SetA(v int)           { b.emitArg(cpu.OpSETA, Immediate(v)) }
func (b *Builder) SetB(v int)           { b.emitArg(cpu.OpSETB, Immediate(v)) }
func (b *Builder) LoadA(p Pointer)      { b.emitArg(cpu.OpLDA, At(p)) }
func (b *Builder) LoadB(p Pointer)      { b.emitArg(cpu.OpLDB, At(p)) }
func (b *Builder) StoreA(p Pointer)     { b.emitArg(cpu.OpSTA, At(p)) }
func (b *Builder) XorImmediate(v int)   { b.emitArg(cpu.OpXORI, Immediate(v)) }
func (b *Builder) Add()                 { b.emit(cpu.OpADD, nil) }
func (b *Builder) Sub()                 { b.emit(cpu.OpSUB, nil) }
func (b *Builder) Mult()                { b.emit(cpu.OpMULT, nil) }
func (b *Builder) Div()                 { b.emit(cpu.OpDIV, nil) }
func (b *Builder) And()                 { b.emit(cpu.OpAND, nil) }
func (b *Builder) Or()                  { b.emit(cpu.OpOR, nil) }
func (b *Builder) BitShiftLeft()        { b.emit(cpu.OpBSL, nil) }
func (b *Builder) BitShiftRight()       { b.emit(cpu.OpBSR, nil) }
func (b *Builder) SwapAB()              { b.emit(cpu.OpSWP, nil) }
func (b *Builder) Return()              { b.emit(cpu.OpRET, nil) }
func (b *Builder) Halt()                { b.emit(cpu.OpHLT, nil) }
func (b *Builder) Jump(l *Label)        { b.emitArg(cpu.OpJMP, AddressOf(l)) }
func (b *Builder) JumpIfZero(l *Label)  { b.emitArg(cpu.OpJZ, AddressOf(l)) }
func (b *Builder) JumpIfCarry(l *Label) { b.emitArg(cpu.OpJC, AddressOf(l)) }

// Call emits a CALL to an out-of-line function and records the edge for
// dead-function elimination.
func (b *Builder) Call(fn *Function, rng SourceRange) {
	b.emitArg(cpu.OpCALL, AddressOf(fn.Label))
	b.calls = append(b.calls, callEdge{callee: fn, rng: rng})
}

// AcquireTemp takes a temporary from the pool of the frame being built.
func (b *Builder) AcquireTemp(t LanguageType) *Variable {
	return b.frame.AcquireTemp(t)
}

func (b *Builder) ReleaseTemp(v *Variable) {
	b.frame.ReleaseTemp(v)
}

// Len returns the number of instructions emitted so far.
func (b *Builder) Len() int {
	n := 0
	for _, l := range b.lines {
		if l.mark == nil {
			n++
		}
	}
	return n
}

// write renders the builder's lines as assembler source.
func (b *Builder) write(sb *strings.Builder) {
	for _, l := range b.lines {
		if l.mark != nil {
			fmt.Fprintf(sb, "%s:\n", l.mark.Name)
			continue
		}
		text := cpu.OpName(l.op)
		if l.arg != nil {
			text = fmt.Sprintf("%-5s %s", text, l.arg)
		}
		if l.comment != "" {
			fmt.Fprintf(sb, "\t%-24s ; %s\n", text, l.comment)
		} else {
			fmt.Fprintf(sb, "\t%s\n", text)
		}
	}
}

// labelNames hands out label names that are unique across a compilation.
type labelNames struct {
	used map[string]bool
	next int
}

func newLabelNames() *labelNames {
	return &labelNames{used: make(map[string]bool)}
}

func (n *labelNames) anonymous() *Label {
	for {
		name := fmt.Sprintf("L%d", n.next)
		n.next++
		if !n.used[name] {
			n.used[name] = true
			return &Label{Name: name}
		}
	}
}

// named returns a label whose name is derived from hint, suffixed if the
// name is already taken.
func (n *labelNames) named(hint string) *Label {
	base := sanitizeLabel(hint)
	name := base
	for i := 1; n.used[name]; i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	n.used[name] = true
	return &Label{Name: name}
}

var operatorLabelNames = strings.NewReplacer(
	"+", "add", "-", "sub", "*", "mul", "/", "div", "%", "mod",
	"&&", "andalso", "||", "orelse", "&", "and", "|", "or", "^", "xor",
	"<<", "shl", ">>", "shr", "<=", "le", ">=", "ge", "<", "lt", ">", "gt",
	"==", "eq", "!=", "ne",
)

func sanitizeLabel(hint string) string {
	hint = operatorLabelNames.Replace(hint)
	var sb strings.Builder
	for i, r := range hint {
		switch {
		case r == '_' || r == '.' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			sb.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	if sb.Len() == 0 {
		return "_"
	}
	return sb.String()
}
