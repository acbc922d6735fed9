package compiler

// canBuildToB reports whether e can be loaded straight into B without
// disturbing A. It depends only on the node kind; builtin operands are
// already known to be scalar.
func canBuildToB(e Expr) bool {
	switch e.(type) {
	case *IntegerLiteral, *BoolLiteral, *Identifier, *MemberExpr:
		return true
	}
	return false
}

func (u *unit) buildToB(b *Builder, e Expr) error {
	switch n := e.(type) {
	case *IntegerLiteral:
		b.SetB(n.Value)
		return nil
	case *BoolLiteral:
		if n.Value {
			b.SetB(1)
		} else {
			b.SetB(0)
		}
		return nil
	}
	p, err := u.addressOf(e)
	if err != nil {
		return err
	}
	b.LoadB(p)
	return nil
}

// overwritesB reports whether building e may change B. Like canBuildToB it
// never looks past the node kind, so a unary operator counts as clobbering
// whatever its operand does.
func overwritesB(e Expr) bool {
	switch e.(type) {
	case *IntegerLiteral, *BoolLiteral, *Identifier, *MemberExpr, *InitStructExpr:
		return false
	}
	return true
}

// setRegisters evaluates left then right and leaves left in A and right in
// B, using as few instructions and temporaries as it can.
func (u *unit) setRegisters(b *Builder, left, right Expr) error {
	if err := u.buildExpr(b, left); err != nil {
		return err
	}

	switch {
	case canBuildToB(right):
		return u.buildToB(b, right)

	case !overwritesB(right):
		b.SwapAB()
		if err := u.buildExpr(b, right); err != nil {
			return err
		}
		b.SwapAB()
		return nil
	}

	tmp := b.AcquireTemp(Int)
	defer b.ReleaseTemp(tmp)
	b.StoreA(tmp.Pointer)
	if err := u.buildExpr(b, right); err != nil {
		return err
	}
	b.LoadB(tmp.Pointer)
	b.SwapAB()
	return nil
}

// buildArithmetic emits an operator that reduces to ALU instructions.
func (u *unit) buildArithmetic(b *Builder, n *BinaryExpr) error {
	if err := u.setRegisters(b, n.Left, n.Right); err != nil {
		return err
	}

	b.SetComment("%s", n)
	switch n.Op {
	case OpAdd:
		b.Add()
	case OpSubtract:
		b.Sub()
	case OpMultiply:
		b.Mult()
	case OpDivide:
		b.Div()
	case OpAnd:
		b.And()
	case OpOr:
		b.Or()
	case OpLeftShift:
		b.BitShiftLeft()
	case OpRightShift:
		b.BitShiftRight()

	case OpModulo:
		// a % b = a - (a / b) * b
		left := b.AcquireTemp(Int)
		b.StoreA(left.Pointer)
		b.Div()
		b.Mult()
		b.LoadB(left.Pointer)
		b.SwapAB()
		b.Sub()
		b.ReleaseTemp(left)

	case OpXor:
		// a ^ b = (a | b) - (a & b)
		left := b.AcquireTemp(Int)
		both := b.AcquireTemp(Int)
		b.StoreA(left.Pointer)
		b.And()
		b.StoreA(both.Pointer)
		b.LoadA(left.Pointer)
		b.Or()
		b.LoadB(both.Pointer)
		b.Sub()
		b.ReleaseTemp(both)
		b.ReleaseTemp(left)

	default:
		return internalf("operator %s is not arithmetic", n.Op)
	}
	return nil
}
