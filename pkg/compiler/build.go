package compiler

// build generates code for the top-level program and for every out-of-line
// function. Each function body goes into the function's own Builder.
func (u *unit) build() error {
	if err := u.buildStmts(u.main, u.program); err != nil {
		return err
	}
	u.main.SetComment("end of program")
	u.main.Halt()

	for _, fn := range u.funcs.all {
		if fn.Inline {
			continue
		}
		b := fn.Builder
		body := fn.body
		if body == nil {
			body = fn.Decl.Body
		}
		b.Mark(fn.Label)
		if err := u.buildStmts(b, body.Stmts); err != nil {
			return err
		}
		b.Return()
	}
	return nil
}

func (u *unit) buildStmts(b *Builder, stmts []Stmt) error {
	for _, s := range stmts {
		if err := u.buildStmt(b, s); err != nil {
			return err
		}
	}
	return nil
}

func (u *unit) buildStmt(b *Builder, s Stmt) error {
	switch n := s.(type) {
	case *BlockStmt:
		return u.buildStmts(b, n.Stmts)

	case *VarDecl:
		v := u.vars[n.ID()]
		if n.Init == nil {
			b.SetComment("var %s", n.Name)
			zeroFill(b, v.Pointer, v.Type.Size())
			return nil
		}
		b.SetComment("var %s = %s", n.Name, n.Init)
		return u.setValue(b, v.Pointer, v.Type, n.Init)

	case *AssignStmt:
		p, err := u.addressOf(n.Target)
		if err != nil {
			return err
		}
		b.SetComment("%s = %s", n.Target, n.Value)
		return u.setValue(b, p, u.typeOf(n.Target), n.Value)

	case *IfStmt:
		then, els := b.CreateLabel(), b.CreateLabel()
		if err := u.buildBranch(b, n.Cond, then, els); err != nil {
			return err
		}
		b.Mark(then)
		if err := u.buildStmt(b, n.Then); err != nil {
			return err
		}
		if n.Else == nil {
			b.Mark(els)
			return nil
		}
		end := b.CreateLabel()
		b.Jump(end)
		b.Mark(els)
		if err := u.buildStmt(b, n.Else); err != nil {
			return err
		}
		b.Mark(end)
		return nil

	case *WhileStmt:
		top, body, exit := b.CreateLabel(), b.CreateLabel(), b.CreateLabel()
		b.Mark(top)
		if err := u.buildBranch(b, n.Cond, body, exit); err != nil {
			return err
		}
		b.Mark(body)
		if err := u.buildStmt(b, n.Body); err != nil {
			return err
		}
		b.Jump(top)
		b.Mark(exit)
		return nil

	case *ReturnStmt:
		if n.Value != nil {
			if err := u.buildExpr(b, n.Value); err != nil {
				return err
			}
		}
		target := u.returns[n.ID()]
		switch {
		case target == nil:
			b.Halt()
		case target.inlineReturn != nil:
			b.Jump(target.inlineReturn)
		default:
			b.Return()
		}
		return nil

	case *ExprStmt:
		return u.buildExpr(b, n.X)

	case *NamespaceDecl:
		return u.buildStmts(b, n.Body)

	case *FunctionDecl, *StructDecl:
		return nil
	}
	return internalf("cannot build statement %T", s)
}

// addressOf returns where the variable or field named by e is stored.
func (u *unit) addressOf(e Expr) (Pointer, error) {
	switch n := e.(type) {
	case *Identifier:
		v, ok := u.vars[n.ID()]
		if !ok {
			return Pointer{}, internalf("identifier %s was not resolved", n.Name)
		}
		return v.Pointer, nil
	case *MemberExpr:
		p, err := u.addressOf(n.Object)
		if err != nil {
			return Pointer{}, err
		}
		t := u.typeOf(n.Object)
		f, _ := t.Struct.Field(n.Name)
		return p.Add(f.Offset), nil
	}
	return Pointer{}, sourceErrorf(e.Range(), "%s is not addressable", e)
}

// setValue stores the value of e, of type t, at p.
func (u *unit) setValue(b *Builder, p Pointer, t LanguageType, e Expr) error {
	if t.IsScalar() {
		if err := u.buildExpr(b, e); err != nil {
			return err
		}
		b.StoreA(p)
		return nil
	}

	switch n := e.(type) {
	case *InitStructExpr:
		return u.initStructInto(b, p, t.Struct, n)
	case *Identifier, *MemberExpr:
		src, err := u.addressOf(n)
		if err != nil {
			return err
		}
		copyWords(b, src, p, t.Size())
		return nil
	}
	return internalf("cannot store %s into a %s", e, t)
}

func (u *unit) initStructInto(b *Builder, p Pointer, def *StructDef, n *InitStructExpr) error {
	values := make(map[string]Expr, len(n.Fields))
	for i, fi := range n.Fields {
		name := fi.Name
		if name == "" {
			name = def.Fields[i].Name
		}
		values[name] = fi.Value
	}
	for _, f := range def.Fields {
		dst := p.Add(f.Offset)
		v, ok := values[f.Name]
		if !ok {
			zeroFill(b, dst, f.Type.Size())
			continue
		}
		if err := u.setValue(b, dst, f.Type, v); err != nil {
			return err
		}
	}
	return nil
}

func zeroFill(b *Builder, p Pointer, size int) {
	if size == 0 {
		return
	}
	b.SetA(0)
	for i := 0; i < size; i++ {
		b.StoreA(p.Add(i))
	}
}

func copyWords(b *Builder, src, dst Pointer, size int) {
	for i := 0; i < size; i++ {
		b.LoadA(src.Add(i))
		b.StoreA(dst.Add(i))
	}
}

// buildExpr leaves the value of e in A. B may be overwritten.
func (u *unit) buildExpr(b *Builder, e Expr) error {
	switch n := e.(type) {
	case *IntegerLiteral:
		b.SetA(n.Value)
		return nil

	case *BoolLiteral:
		if n.Value {
			b.SetA(1)
		} else {
			b.SetA(0)
		}
		return nil

	case *Identifier, *MemberExpr:
		if t := u.typeOf(e); !t.IsScalar() {
			return sourceErrorf(e.Range(), "cannot use %s of type %s as a value", e, t)
		}
		p, err := u.addressOf(e)
		if err != nil {
			return err
		}
		b.LoadA(p)
		return nil

	case *BinaryExpr:
		if fn, ok := u.overloads[n.ID()]; ok {
			return u.callOutOfLine(b, fn, []Expr{n.Left, n.Right}, n.Range())
		}
		if err := u.checkBuiltin(n); err != nil {
			return err
		}
		if n.Op.isComparison() {
			return u.buildComparisonValue(b, n)
		}
		return u.buildArithmetic(b, n)

	case *UnaryExpr:
		if err := u.buildExpr(b, n.Operand); err != nil {
			return err
		}
		switch n.Op {
		case OpNot:
			b.XorImmediate(1)
		case OpNegate:
			b.SwapAB()
			b.SetA(0)
			b.Sub()
		}
		return nil

	case *CallExpr:
		site, ok := u.calls[n.ID()]
		if !ok {
			return internalf("call %s was not resolved", n)
		}
		if site.fn.Inline {
			return u.buildInline(b, n, site)
		}
		return u.callOutOfLine(b, site.fn, n.Args, n.Range())

	case *InitStructExpr:
		return sourceErrorf(n.Range(), "cannot use struct initializer as an expression")
	}
	return internalf("cannot build expression %T", e)
}

// checkBuiltin re-checks the operand types of a builtin operator. Builtins
// never coerce, so a mismatch here means initialization let a bad tree
// through.
func (u *unit) checkBuiltin(n *BinaryExpr) error {
	lt, rt := u.typeOf(n.Left), u.typeOf(n.Right)
	if _, ok := builtinResult(n.Op, lt, rt); !ok {
		return internalf("operator %s reached code generation with %s and %s", n.Op, lt, rt)
	}
	return nil
}
