package compiler

// optimize folds constant expressions and removes branches whose condition is
// known at compile time. The parsed statements are never mutated: rewritten
// nodes are shallow copies that keep the original's ID, so everything the
// initialization pass recorded about them stays valid. Folded literals get a
// fresh ID and carry their own type.
//
// Folding evaluates with the machine's 16-bit word semantics, so a folded
// expression always equals what the unfolded code would compute at runtime.
func (u *unit) optimize() {
	u.program = u.optimizeStmts(u.program)
	for _, fn := range u.funcs.all {
		if !fn.Inline {
			fn.body = u.optimizeBlock(fn.Decl.Body)
		}
	}
}

func (u *unit) optimizeStmts(stmts []Stmt) []Stmt {
	out := make([]Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = u.optimizeStmt(s)
	}
	return out
}

func (u *unit) optimizeBlock(b *BlockStmt) *BlockStmt {
	c := *b
	c.Stmts = u.optimizeStmts(b.Stmts)
	return &c
}

// emptyBlock replaces a statement that can never run.
func emptyBlock(rng SourceRange) *BlockStmt {
	return NewBlockStmt(rng, nil)
}

func (u *unit) optimizeStmt(s Stmt) Stmt {
	switch n := s.(type) {
	case *BlockStmt:
		return u.optimizeBlock(n)

	case *VarDecl:
		if n.Init == nil {
			return n
		}
		c := *n
		c.Init = u.optimizeExpr(n.Init)
		return &c

	case *AssignStmt:
		c := *n
		c.Value = u.optimizeExpr(n.Value)
		return &c

	case *IfStmt:
		cond := u.optimizeExpr(n.Cond)
		if lit, ok := cond.(*BoolLiteral); ok {
			switch {
			case lit.Value:
				return u.optimizeStmt(n.Then)
			case n.Else != nil:
				return u.optimizeStmt(n.Else)
			default:
				return emptyBlock(n.Range())
			}
		}
		c := *n
		c.Cond = cond
		c.Then = u.optimizeStmt(n.Then)
		if n.Else != nil {
			c.Else = u.optimizeStmt(n.Else)
		}
		return &c

	case *WhileStmt:
		cond := u.optimizeExpr(n.Cond)
		if lit, ok := cond.(*BoolLiteral); ok && !lit.Value {
			return emptyBlock(n.Range())
		}
		c := *n
		c.Cond = cond
		c.Body = u.optimizeStmt(n.Body)
		return &c

	case *ReturnStmt:
		if n.Value == nil {
			return n
		}
		c := *n
		c.Value = u.optimizeExpr(n.Value)
		return &c

	case *ExprStmt:
		c := *n
		c.X = u.optimizeExpr(n.X)
		return &c

	case *NamespaceDecl:
		c := *n
		c.Body = u.optimizeStmts(n.Body)
		return &c
	}
	// Function bodies are optimized separately; struct declarations have
	// nothing to fold.
	return s
}

func (u *unit) optimizeExpr(e Expr) Expr {
	switch n := e.(type) {
	case *BinaryExpr:
		c := *n
		c.Left = u.optimizeExpr(n.Left)
		c.Right = u.optimizeExpr(n.Right)
		if _, overloaded := u.overloads[n.ID()]; overloaded {
			return &c
		}
		if folded, ok := foldBinary(&c); ok {
			return folded
		}
		return &c

	case *UnaryExpr:
		c := *n
		c.Operand = u.optimizeExpr(n.Operand)
		if folded, ok := foldUnary(&c); ok {
			return folded
		}
		return &c

	case *CallExpr:
		c := *n
		c.Args = make([]Expr, len(n.Args))
		for i, a := range n.Args {
			c.Args[i] = u.optimizeExpr(a)
		}
		if site := u.calls[n.ID()]; site != nil && site.fn.Inline {
			c.body = u.optimizeBlock(site.body)
		}
		return &c

	case *InitStructExpr:
		c := *n
		c.Fields = make([]FieldInit, len(n.Fields))
		for i, f := range n.Fields {
			c.Fields[i] = FieldInit{Name: f.Name, Value: u.optimizeExpr(f.Value)}
		}
		return &c
	}
	return e
}

// constWord returns the machine word a literal evaluates to.
func constWord(e Expr) (uint16, bool) {
	switch n := e.(type) {
	case *IntegerLiteral:
		return uint16(n.Value), true
	case *BoolLiteral:
		if n.Value {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// fromWord converts a machine word back to the literal value the parser
// would produce for it.
func fromWord(w uint16) int {
	return int(int16(w))
}

// evalWord computes an arithmetic operator the way the generated code does.
func evalWord(op BinaryOperator, a, b uint16) uint16 {
	switch op {
	case OpAdd:
		return a + b
	case OpSubtract:
		return a - b
	case OpMultiply:
		return a * b
	case OpDivide:
		if b == 0 {
			return 0
		}
		return a / b
	case OpModulo:
		return a - evalWord(OpDivide, a, b)*b
	case OpAnd:
		return a & b
	case OpOr:
		return a | b
	case OpXor:
		return a ^ b
	case OpLeftShift:
		return a << b
	case OpRightShift:
		return a >> b
	}
	panic("evalWord: not an arithmetic operator: " + op.String())
}

// compareWords evaluates a relational or equality operator on unsigned words.
func compareWords(op BinaryOperator, a, b uint16) bool {
	switch op {
	case OpGreaterThan:
		return a > b
	case OpGreaterThanOrEqual:
		return a >= b
	case OpLessThan:
		return a < b
	case OpLessThanOrEqual:
		return a <= b
	case OpEqual:
		return a == b
	case OpNotEqual:
		return a != b
	}
	panic("compareWords: not a comparison: " + op.String())
}

func foldBinary(n *BinaryExpr) (Expr, bool) {
	if n.Op.isLogical() {
		// Only a constant left side decides the result without evaluating
		// the right side.
		lit, ok := n.Left.(*BoolLiteral)
		if !ok {
			return nil, false
		}
		if lit.Value == (n.Op == OpOrElse) {
			return NewBoolLiteral(n.Range(), lit.Value), true
		}
		return n.Right, true
	}

	a, lok := constWord(n.Left)
	b, rok := constWord(n.Right)
	if !lok || !rok {
		return nil, false
	}
	_, lbool := n.Left.(*BoolLiteral)
	_, rbool := n.Right.(*BoolLiteral)
	if lbool != rbool {
		return nil, false
	}

	switch {
	case n.Op.isArithmetic():
		return NewIntegerLiteral(n.Range(), fromWord(evalWord(n.Op, a, b))), true
	case n.Op.isRelational(), n.Op.isEquality():
		return NewBoolLiteral(n.Range(), compareWords(n.Op, a, b)), true
	}
	return nil, false
}

func foldUnary(n *UnaryExpr) (Expr, bool) {
	switch v := n.Operand.(type) {
	case *BoolLiteral:
		if n.Op == OpNot {
			return NewBoolLiteral(n.Range(), !v.Value), true
		}
	case *IntegerLiteral:
		if n.Op == OpNegate {
			return NewIntegerLiteral(n.Range(), fromWord(-uint16(v.Value))), true
		}
	}
	return nil, false
}
