package compiler

import "strings"

// callSite is what initialization learned about one call expression.
type callSite struct {
	fn *Function

	// Inline expansions only: the parameters bound as fresh locals of the
	// caller, the initialized copy of the body, and the label returns jump to.
	params []*Variable
	body   *BlockStmt
	ret    *Label
}

// initialize resolves types, overloads, variables and labels for the whole
// program. Struct and function declarations are hoisted so they can be used
// before the point they are declared.
func (u *unit) initialize(stmts []Stmt) error {
	if err := u.hoistStructs(stmts); err != nil {
		return err
	}
	if err := u.hoistFunctions(stmts, u.root); err != nil {
		return err
	}
	return u.initStmts(stmts, u.root)
}

func (u *unit) resolveType(name string, rng SourceRange) (LanguageType, error) {
	switch name {
	case "", "void":
		return Void, nil
	case "int":
		return Int, nil
	case "bool":
		return Bool, nil
	}
	if def, ok := u.structs[name]; ok {
		return LanguageType{Static: TypeStruct, Struct: def}, nil
	}
	return LanguageType{}, sourceErrorf(rng, "unknown type %q", name)
}

func (u *unit) hoistStructs(stmts []Stmt) error {
	for _, s := range stmts {
		switch n := s.(type) {
		case *StructDecl:
			if err := u.declareStruct(n); err != nil {
				return err
			}
		case *NamespaceDecl:
			if err := u.hoistStructs(n.Body); err != nil {
				return err
			}
		}
	}
	return nil
}

func (u *unit) declareStruct(d *StructDecl) error {
	if _, exists := u.structs[d.Name]; exists {
		return sourceErrorf(d.Range(), "struct %s is already declared", d.Name)
	}
	def := &StructDef{Name: d.Name}
	for _, f := range d.Fields {
		if _, dup := def.Field(f.Name); dup {
			return sourceErrorf(d.Range(), "duplicate field %s in struct %s", f.Name, d.Name)
		}
		t, err := u.resolveType(f.TypeName, d.Range())
		if err != nil {
			return err
		}
		if t.Static == TypeVoid {
			return sourceErrorf(d.Range(), "field %s.%s cannot be void", d.Name, f.Name)
		}
		def.Fields = append(def.Fields, FieldDef{Name: f.Name, Offset: def.Size, Type: t})
		def.Size += t.Size()
	}
	u.structs[d.Name] = def
	return nil
}

func (u *unit) hoistFunctions(stmts []Stmt, scope *Block) error {
	for _, s := range stmts {
		switch n := s.(type) {
		case *FunctionDecl:
			if err := u.declareFunction(n, scope); err != nil {
				return err
			}
		case *NamespaceDecl:
			ns := scope.Child()
			ns.namespace = strings.Join(append(splitNamespace(scope.namespace), n.Path...), ".")
			u.namespaces[n.ID()] = ns
			if err := u.hoistFunctions(n.Body, ns); err != nil {
				return err
			}
		}
	}
	return nil
}

func splitNamespace(ns string) []string {
	if ns == "" {
		return nil
	}
	return strings.Split(ns, ".")
}

func (u *unit) declareFunction(d *FunctionDecl, scope *Block) error {
	ret, err := u.resolveType(d.ReturnType, d.Range())
	if err != nil {
		return err
	}
	if ret.Static == TypeStruct {
		return sourceErrorf(d.Range(), "function %s cannot return struct %s", d.Name, ret)
	}

	fn := &Function{
		Name:       d.Name,
		Namespace:  scope.namespace,
		ReturnType: ret,
		Inline:     d.Inline,
		IsOperator: d.IsOperator,
		Operator:   d.Operator,
		Decl:       d,
		Scope:      scope,
	}

	if d.IsOperator {
		if d.Inline {
			return sourceErrorf(d.Range(), "operator %s cannot be inline", d.Operator)
		}
		if len(d.Params) != 2 {
			return sourceErrorf(d.Range(), "operator %s takes exactly two parameters, got %d", d.Operator, len(d.Params))
		}
	}

	seen := make(map[string]bool)
	for _, p := range d.Params {
		if seen[p.Name] {
			return sourceErrorf(d.Range(), "duplicate parameter %s in %s", p.Name, d.Name)
		}
		seen[p.Name] = true
		t, err := u.resolveType(p.TypeName, d.Range())
		if err != nil {
			return err
		}
		if t.Static == TypeVoid {
			return sourceErrorf(d.Range(), "parameter %s of %s cannot be void", p.Name, d.Name)
		}
		fn.ParamNames = append(fn.ParamNames, p.Name)
		fn.ParamTypes = append(fn.ParamTypes, t)
	}

	if !fn.Inline {
		fn.Label = u.names.named(fn.QualifiedName())
		fn.Frame = newFrame(u.names.named(fn.Label.Name + "_frame").Name)
		fn.Builder = newBuilder(u.names, fn.Frame, fn)
		fn.block = scope.functionChild(fn)
		for i, name := range fn.ParamNames {
			v, _ := fn.block.Declare(name, fn.ParamTypes[i])
			fn.Params = append(fn.Params, v)
		}
		fn.body = d.Body
	}

	if err := u.funcs.register(fn); err != nil {
		return sourceErrorf(d.Range(), "%v", err)
	}
	u.decls[d.ID()] = fn
	return nil
}

func (u *unit) initStmts(stmts []Stmt, scope *Block) error {
	for _, s := range stmts {
		if err := u.initStmt(s, scope); err != nil {
			return err
		}
	}
	return nil
}

func (u *unit) initStmt(s Stmt, scope *Block) error {
	switch n := s.(type) {
	case *VarDecl:
		return u.initVarDecl(n, scope)

	case *AssignStmt:
		if err := u.initExpr(n.Target, scope, nil); err != nil {
			return err
		}
		target := u.typeOf(n.Target)
		if err := u.initExpr(n.Value, scope, &target); err != nil {
			return err
		}
		if value := u.typeOf(n.Value); !value.Equal(target) {
			return sourceErrorf(n.Range(), "cannot assign %s to %s of type %s", value, n.Target, target)
		}
		return nil

	case *IfStmt:
		if err := u.initCondition(n.Cond, scope); err != nil {
			return err
		}
		if err := u.initStmt(n.Then, scope.Child()); err != nil {
			return err
		}
		if n.Else != nil {
			return u.initStmt(n.Else, scope.Child())
		}
		return nil

	case *WhileStmt:
		if err := u.initCondition(n.Cond, scope); err != nil {
			return err
		}
		return u.initStmt(n.Body, scope.Child())

	case *ReturnStmt:
		return u.initReturn(n, scope)

	case *ExprStmt:
		return u.initExpr(n.X, scope, nil)

	case *BlockStmt:
		return u.initStmts(n.Stmts, scope.Child())

	case *FunctionDecl:
		fn, ok := u.decls[n.ID()]
		if !ok {
			return sourceErrorf(n.Range(), "functions can only be declared at the top level or in a namespace")
		}
		if fn.Inline {
			// Inline bodies are initialized per call site.
			return nil
		}
		return u.initStmts(fn.Decl.Body.Stmts, fn.block)

	case *StructDecl:
		return nil

	case *NamespaceDecl:
		return u.initStmts(n.Body, u.namespaces[n.ID()])
	}
	return internalf("unknown statement %T", s)
}

func (u *unit) initVarDecl(n *VarDecl, scope *Block) error {
	var declared LanguageType
	hasType := n.TypeName != ""
	if hasType {
		t, err := u.resolveType(n.TypeName, n.Range())
		if err != nil {
			return err
		}
		declared = t
	}

	if n.Init != nil {
		var hint *LanguageType
		if hasType {
			hint = &declared
		}
		if err := u.initExpr(n.Init, scope, hint); err != nil {
			return err
		}
		t := u.typeOf(n.Init)
		if !hasType {
			declared = t
		} else if !t.Equal(declared) {
			return sourceErrorf(n.Range(), "cannot initialize %s of type %s with %s", n.Name, declared, t)
		}
	}

	if declared.Static == TypeVoid {
		return sourceErrorf(n.Range(), "variable %s cannot be void", n.Name)
	}

	v, ok := scope.Declare(n.Name, declared)
	if !ok {
		return sourceErrorf(n.Range(), "%s is already declared in this scope", n.Name)
	}
	v.At = n.Range().Start
	u.vars[n.ID()] = v
	return nil
}

func (u *unit) initCondition(e Expr, scope *Block) error {
	if err := u.initExpr(e, scope, nil); err != nil {
		return err
	}
	if t := u.typeOf(e); !t.Equal(Bool) {
		return sourceErrorf(e.Range(), "condition must be bool, got %s", t)
	}
	return nil
}

// returnTarget finds the construct a return statement in scope leaves: an
// inline expansion, an out-of-line function, or the program (nil).
func returnTarget(scope *Block) (*Block, *Function) {
	for s := scope; s != nil; s = s.parent {
		if s.inlineReturn != nil {
			return s, s.inlineFunction
		}
		if s.function != nil {
			return s, s.function
		}
	}
	return nil, nil
}

func (u *unit) initReturn(n *ReturnStmt, scope *Block) error {
	target, fn := returnTarget(scope)
	u.returns[n.ID()] = target

	if fn == nil {
		if n.Value == nil {
			return nil
		}
		if err := u.initExpr(n.Value, scope, nil); err != nil {
			return err
		}
		if t := u.typeOf(n.Value); !t.IsScalar() {
			return sourceErrorf(n.Range(), "cannot return %s from the program", t)
		}
		return nil
	}

	if fn.ReturnType.Static == TypeVoid {
		if n.Value != nil {
			return sourceErrorf(n.Range(), "%s does not return a value", fn.QualifiedName())
		}
		return nil
	}
	if n.Value == nil {
		return sourceErrorf(n.Range(), "%s must return %s", fn.QualifiedName(), fn.ReturnType)
	}
	if err := u.initExpr(n.Value, scope, &fn.ReturnType); err != nil {
		return err
	}
	if t := u.typeOf(n.Value); !t.Equal(fn.ReturnType) {
		return sourceErrorf(n.Range(), "%s must return %s, got %s", fn.QualifiedName(), fn.ReturnType, t)
	}
	return nil
}

// initExpr resolves e bottom-up. hint is the type the context expects, used
// to type struct initializers that do not name their struct.
func (u *unit) initExpr(e Expr, scope *Block, hint *LanguageType) error {
	switch n := e.(type) {
	case *IntegerLiteral, *BoolLiteral:
		return nil

	case *Identifier:
		v, ok := scope.Lookup(n.Name)
		if !ok {
			return sourceErrorf(n.Range(), "undefined variable %s", n.Name)
		}
		u.vars[n.ID()] = v
		u.types[n.ID()] = v.Type
		return nil

	case *MemberExpr:
		if err := u.initExpr(n.Object, scope, nil); err != nil {
			return err
		}
		switch n.Object.(type) {
		case *Identifier, *MemberExpr:
		default:
			return sourceErrorf(n.Range(), "cannot access field %s of %s", n.Name, n.Object)
		}
		obj := u.typeOf(n.Object)
		if obj.Static != TypeStruct {
			return sourceErrorf(n.Range(), "type %s has no field %s", obj, n.Name)
		}
		f, ok := obj.Struct.Field(n.Name)
		if !ok {
			return sourceErrorf(n.Range(), "struct %s has no field %s", obj, n.Name)
		}
		u.types[n.ID()] = f.Type
		return nil

	case *BinaryExpr:
		if err := u.initExpr(n.Left, scope, nil); err != nil {
			return err
		}
		if err := u.initExpr(n.Right, scope, nil); err != nil {
			return err
		}
		lt, rt := u.typeOf(n.Left), u.typeOf(n.Right)
		if fn, ok := u.funcs.operator(n.Op, lt, rt); ok {
			u.overloads[n.ID()] = fn
			u.types[n.ID()] = fn.ReturnType
			return nil
		}
		t, ok := builtinResult(n.Op, lt, rt)
		if !ok {
			return sourceErrorf(n.Range(), "operator %s is not defined for %s and %s", n.Op, lt, rt)
		}
		u.types[n.ID()] = t
		return nil

	case *UnaryExpr:
		if err := u.initExpr(n.Operand, scope, nil); err != nil {
			return err
		}
		want := Int
		if n.Op == OpNot {
			want = Bool
		}
		if t := u.typeOf(n.Operand); !t.Equal(want) {
			return sourceErrorf(n.Range(), "operator %s needs %s, got %s", n.Op, want, t)
		}
		u.types[n.ID()] = want
		return nil

	case *CallExpr:
		return u.initCall(n, scope)

	case *InitStructExpr:
		return u.initStruct(n, scope, hint)
	}
	return internalf("unknown expression %T", e)
}

func (u *unit) initStruct(n *InitStructExpr, scope *Block, hint *LanguageType) error {
	var t LanguageType
	switch {
	case n.TypeName != "":
		rt, err := u.resolveType(n.TypeName, n.Range())
		if err != nil {
			return err
		}
		t = rt
	case hint != nil:
		t = *hint
	default:
		return sourceErrorf(n.Range(), "cannot infer the struct type of %s", n)
	}
	if t.Static != TypeStruct {
		return sourceErrorf(n.Range(), "struct initializer used for %s", t)
	}

	def := t.Struct
	named := len(n.Fields) > 0 && n.Fields[0].Name != ""
	if !named && len(n.Fields) > len(def.Fields) {
		return sourceErrorf(n.Range(), "too many values for struct %s", def.Name)
	}
	seen := make(map[string]bool)
	for i, fi := range n.Fields {
		if (fi.Name != "") != named {
			return sourceErrorf(n.Range(), "cannot mix named and positional fields")
		}
		var f FieldDef
		if named {
			var ok bool
			if f, ok = def.Field(fi.Name); !ok {
				return sourceErrorf(n.Range(), "struct %s has no field %s", def.Name, fi.Name)
			}
			if seen[fi.Name] {
				return sourceErrorf(n.Range(), "field %s initialized twice", fi.Name)
			}
			seen[fi.Name] = true
		} else {
			f = def.Fields[i]
		}
		if err := u.initExpr(fi.Value, scope, &f.Type); err != nil {
			return err
		}
		if vt := u.typeOf(fi.Value); !vt.Equal(f.Type) {
			return sourceErrorf(n.Range(), "field %s.%s is %s, got %s", def.Name, f.Name, f.Type, vt)
		}
	}
	u.types[n.ID()] = t
	return nil
}

// calleeName splits a callee into its namespace qualifier and name.
func calleeName(e Expr) (qualifier, name string, err error) {
	var parts []string
	for cur := e; ; {
		switch n := cur.(type) {
		case *Identifier:
			parts = append([]string{n.Name}, parts...)
			last := len(parts) - 1
			return strings.Join(parts[:last], "."), parts[last], nil
		case *MemberExpr:
			parts = append([]string{n.Name}, parts...)
			cur = n.Object
		default:
			return "", "", sourceErrorf(e.Range(), "callee must be an identifier")
		}
	}
}

func isUntypedStruct(e Expr) bool {
	s, ok := e.(*InitStructExpr)
	return ok && s.TypeName == ""
}

func (u *unit) initCall(c *CallExpr, scope *Block) error {
	qualifier, name, err := calleeName(c.Callee)
	if err != nil {
		return err
	}

	argTypes := make([]LanguageType, len(c.Args))
	for i, a := range c.Args {
		if isUntypedStruct(a) {
			continue
		}
		if err := u.initExpr(a, scope, nil); err != nil {
			return err
		}
		argTypes[i] = u.typeOf(a)
	}
	// Untyped struct initializers take the parameter type every candidate
	// agrees on.
	for i, a := range c.Args {
		if !isUntypedStruct(a) {
			continue
		}
		var hint *LanguageType
		for _, fn := range u.funcs.candidates(scope.namespace, qualifier, name) {
			if len(fn.ParamTypes) != len(c.Args) {
				continue
			}
			t := fn.ParamTypes[i]
			if hint != nil && !hint.Equal(t) {
				return sourceErrorf(a.Range(), "cannot infer the struct type of %s", a)
			}
			hint = &t
		}
		if err := u.initExpr(a, scope, hint); err != nil {
			return err
		}
		argTypes[i] = u.typeOf(a)
	}

	fn, err := u.funcs.lookup(scope.namespace, qualifier, name, argTypes)
	if err != nil {
		return sourceErrorf(c.Range(), "%v", err)
	}

	site := &callSite{fn: fn}
	u.calls[c.ID()] = site
	u.types[c.ID()] = fn.ReturnType

	if !fn.Inline {
		return nil
	}

	if u.expanding[fn] {
		return sourceErrorf(c.Range(), "inline function %s cannot call itself", fn.QualifiedName())
	}

	// The expansion sees what the declaration sees, then its parameters.
	site.ret = u.names.anonymous()
	outer := scope.inlineChild(site.ret, fn)
	for vname, v := range fn.Scope.visibleAt(fn.Decl.Range().Start) {
		outer.bind(vname, v)
	}
	blk := outer.Child()
	for i, pname := range fn.ParamNames {
		v, _ := blk.Declare(pname, fn.ParamTypes[i])
		site.params = append(site.params, v)
	}

	site.body = cloneBlock(fn.Decl.Body)
	u.expanding[fn] = true
	err = u.initStmts(site.body.Stmts, blk)
	delete(u.expanding, fn)
	return err
}
