package compiler

// containsCall reports whether evaluating e may run another function.
func (u *unit) containsCall(e Expr) bool {
	switch n := e.(type) {
	case *CallExpr:
		return true
	case *BinaryExpr:
		if _, overloaded := u.overloads[n.ID()]; overloaded {
			return true
		}
		return u.containsCall(n.Left) || u.containsCall(n.Right)
	case *UnaryExpr:
		return u.containsCall(n.Operand)
	case *MemberExpr:
		return u.containsCall(n.Object)
	case *InitStructExpr:
		for _, f := range n.Fields {
			if u.containsCall(f.Value) {
				return true
			}
		}
	}
	return false
}

// callOutOfLine stores args into fn's parameter slots and calls it. The
// result, if any, is left in A.
//
// An argument is written straight into its slot unless a later argument
// contains a call, which could reach fn and overwrite the slot. Such
// arguments are staged in temporaries and copied over just before the CALL.
func (u *unit) callOutOfLine(b *Builder, fn *Function, args []Expr, rng SourceRange) error {
	staged := make([]*Variable, len(args))
	defer func() {
		for _, tmp := range staged {
			if tmp != nil {
				b.ReleaseTemp(tmp)
			}
		}
	}()

	for i, arg := range args {
		param := fn.Params[i]
		dst := param.Pointer
		for _, later := range args[i+1:] {
			if u.containsCall(later) {
				staged[i] = b.AcquireTemp(param.Type)
				dst = staged[i].Pointer
				break
			}
		}
		b.SetComment("%s.%s = %s", fn.QualifiedName(), param.Name, arg)
		if err := u.setValue(b, dst, param.Type, arg); err != nil {
			return err
		}
	}

	for i, tmp := range staged {
		if tmp != nil {
			copyWords(b, tmp.Pointer, fn.Params[i].Pointer, fn.Params[i].Type.Size())
		}
	}

	b.SetComment("%s", fn.signature())
	b.Call(fn, rng)
	return nil
}

// buildInline expands an inline call in place. Parameters are locals of the
// caller; a return inside the body jumps to the label marked after it.
func (u *unit) buildInline(b *Builder, c *CallExpr, site *callSite) error {
	for i, arg := range c.Args {
		param := site.params[i]
		b.SetComment("inline %s.%s = %s", site.fn.QualifiedName(), param.Name, arg)
		if err := u.setValue(b, param.Pointer, param.Type, arg); err != nil {
			return err
		}
	}

	body := c.body
	if body == nil {
		body = site.body
	}
	if err := u.buildStmts(b, body.Stmts); err != nil {
		return err
	}
	b.Mark(site.ret)
	return nil
}
