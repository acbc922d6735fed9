package compiler

// buildBranch jumps to t when the boolean e is true and to f otherwise.
// Exactly one of the two labels is reached on every path.
func (u *unit) buildBranch(b *Builder, e Expr, t, f *Label) error {
	switch n := e.(type) {
	case *BoolLiteral:
		if n.Value {
			b.Jump(t)
		} else {
			b.Jump(f)
		}
		return nil

	case *UnaryExpr:
		if n.Op == OpNot {
			return u.buildBranch(b, n.Operand, f, t)
		}

	case *BinaryExpr:
		if _, overloaded := u.overloads[n.ID()]; overloaded {
			break
		}
		if err := u.checkBuiltin(n); err != nil {
			return err
		}
		switch {
		case n.Op == OpAndAlso:
			mid := b.CreateLabel()
			if err := u.buildBranch(b, n.Left, mid, f); err != nil {
				return err
			}
			b.Mark(mid)
			return u.buildBranch(b, n.Right, t, f)

		case n.Op == OpOrElse:
			mid := b.CreateLabel()
			if err := u.buildBranch(b, n.Left, t, mid); err != nil {
				return err
			}
			b.Mark(mid)
			return u.buildBranch(b, n.Right, t, f)

		case n.Op.isRelational(), n.Op.isEquality():
			return u.createComparison(b, n, t, f)
		}
	}

	if err := u.buildExpr(b, e); err != nil {
		return err
	}
	b.SetB(0)
	b.Sub()
	b.JumpIfZero(f)
	b.Jump(t)
	return nil
}

// createComparison compares left with right and jumps. After SUB the zero
// flag means equal and the carry flag means left >= right, unsigned.
func (u *unit) createComparison(b *Builder, n *BinaryExpr, t, f *Label) error {
	if err := u.setRegisters(b, n.Left, n.Right); err != nil {
		return err
	}
	b.SetComment("%s", n)
	b.Sub()

	switch n.Op {
	case OpGreaterThan:
		b.JumpIfZero(f)
		b.JumpIfCarry(t)
		b.Jump(f)
	case OpGreaterThanOrEqual:
		b.JumpIfZero(t)
		b.JumpIfCarry(t)
		b.Jump(f)
	case OpLessThan:
		b.JumpIfZero(f)
		b.JumpIfCarry(f)
		b.Jump(t)
	case OpLessThanOrEqual:
		b.JumpIfZero(t)
		b.JumpIfCarry(f)
		b.Jump(t)
	case OpEqual:
		b.JumpIfZero(t)
		b.Jump(f)
	case OpNotEqual:
		b.JumpIfZero(f)
		b.Jump(t)
	default:
		return internalf("operator %s is not a comparison", n.Op)
	}
	return nil
}

// buildComparisonValue materializes a comparison or logical expression as 1
// or 0 in A.
func (u *unit) buildComparisonValue(b *Builder, n *BinaryExpr) error {
	t, f, end := b.CreateLabel(), b.CreateLabel(), b.CreateLabel()
	if err := u.buildBranch(b, n, t, f); err != nil {
		return err
	}
	b.Mark(t)
	b.SetA(1)
	b.Jump(end)
	b.Mark(f)
	b.SetA(0)
	b.Mark(end)
	return nil
}
