package compiler

import (
	"fmt"
	"strings"
)

// Function is a declared function or operator overload. Its body is a
// template: out-of-line functions build it once into their own Builder,
// inline functions expand a fresh copy at every call site.
type Function struct {
	Name       string
	Namespace  string
	Label      *Label
	ReturnType LanguageType
	ParamNames []string
	ParamTypes []LanguageType
	Inline     bool

	IsOperator bool
	Operator   BinaryOperator

	Decl *FunctionDecl
	// Scope is the block the function was declared in.
	Scope *Block

	// Frame, Params, Builder and body are only used by out-of-line functions.
	Frame   *Frame
	Params  []*Variable
	Builder *Builder
	block   *Block
	body    *BlockStmt
}

// QualifiedName is the namespace-qualified name of the function.
func (f *Function) QualifiedName() string {
	if f.Namespace == "" {
		return f.Name
	}
	return f.Namespace + "." + f.Name
}

func (f *Function) signature() string {
	parts := make([]string, len(f.ParamTypes))
	for i, t := range f.ParamTypes {
		parts[i] = t.String()
	}
	return fmt.Sprintf("%s(%s)", f.QualifiedName(), strings.Join(parts, ", "))
}

func (f *Function) accepts(args []LanguageType) bool {
	if len(args) != len(f.ParamTypes) {
		return false
	}
	for i, t := range f.ParamTypes {
		if !t.Equal(args[i]) {
			return false
		}
	}
	return true
}

type operatorKey struct {
	op          BinaryOperator
	left, right string
}

// functionRegistry holds every function of a compilation, in declaration
// order.
type functionRegistry struct {
	byName    map[string][]*Function // keyed by qualified name
	operators map[operatorKey]*Function
	all       []*Function
}

func newFunctionRegistry() *functionRegistry {
	return &functionRegistry{
		byName:    make(map[string][]*Function),
		operators: make(map[operatorKey]*Function),
	}
}

// register adds fn, rejecting a second declaration with the same signature.
func (r *functionRegistry) register(fn *Function) error {
	if fn.IsOperator {
		key := operatorKey{op: fn.Operator, left: fn.ParamTypes[0].String(), right: fn.ParamTypes[1].String()}
		if _, exists := r.operators[key]; exists {
			return fmt.Errorf("operator %s(%s, %s) is already declared", fn.Operator, key.left, key.right)
		}
		r.operators[key] = fn
	} else {
		name := fn.QualifiedName()
		for _, other := range r.byName[name] {
			if other.accepts(fn.ParamTypes) {
				return fmt.Errorf("function %s is already declared", fn.signature())
			}
		}
		r.byName[name] = append(r.byName[name], fn)
	}
	r.all = append(r.all, fn)
	return nil
}

// operator returns the overload of op for the operand types, if any.
func (r *functionRegistry) operator(op BinaryOperator, left, right LanguageType) (*Function, bool) {
	fn, ok := r.operators[operatorKey{op: op, left: left.String(), right: right.String()}]
	return fn, ok
}

// candidates returns the functions named name visible from namespace ns.
// Unqualified names are searched from ns outward to the root namespace.
func (r *functionRegistry) candidates(ns, qualifier, name string) []*Function {
	if qualifier != "" {
		return r.byName[qualifier+"."+name]
	}
	for {
		key := name
		if ns != "" {
			key = ns + "." + name
		}
		if fns := r.byName[key]; len(fns) > 0 {
			return fns
		}
		if ns == "" {
			return nil
		}
		if i := strings.LastIndexByte(ns, '.'); i >= 0 {
			ns = ns[:i]
		} else {
			ns = ""
		}
	}
}

// lookup resolves a call by namespace, name and argument types. Exactly one
// function must match.
func (r *functionRegistry) lookup(ns, qualifier, name string, args []LanguageType) (*Function, error) {
	cands := r.candidates(ns, qualifier, name)
	display := name
	if qualifier != "" {
		display = qualifier + "." + name
	}
	if len(cands) == 0 {
		return nil, fmt.Errorf("undefined function %s", display)
	}
	var match *Function
	for _, fn := range cands {
		if fn.accepts(args) {
			if match != nil {
				return nil, fmt.Errorf("ambiguous call to %s", display)
			}
			match = fn
		}
	}
	if match == nil {
		parts := make([]string, len(args))
		for i, t := range args {
			parts[i] = t.String()
		}
		return nil, fmt.Errorf("no overload of %s accepts (%s)", display, strings.Join(parts, ", "))
	}
	return match, nil
}
