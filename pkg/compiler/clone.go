package compiler

// cloneBlock deep-copies a block. Every node of the copy gets a fresh ID, so
// the copy can be initialized independently of the original.
func cloneBlock(b *BlockStmt) *BlockStmt {
	if b == nil {
		return nil
	}
	stmts := make([]Stmt, len(b.Stmts))
	for i, s := range b.Stmts {
		stmts[i] = cloneStmt(s)
	}
	return NewBlockStmt(b.Range(), stmts)
}

func cloneStmt(s Stmt) Stmt {
	switch n := s.(type) {
	case nil:
		return nil
	case *BlockStmt:
		return cloneBlock(n)
	case *VarDecl:
		return NewVarDecl(n.Range(), n.Name, n.TypeName, cloneExpr(n.Init))
	case *AssignStmt:
		return NewAssignStmt(n.Range(), cloneExpr(n.Target), cloneExpr(n.Value))
	case *IfStmt:
		return NewIfStmt(n.Range(), cloneExpr(n.Cond), cloneStmt(n.Then), cloneStmt(n.Else))
	case *WhileStmt:
		return NewWhileStmt(n.Range(), cloneExpr(n.Cond), cloneStmt(n.Body))
	case *ReturnStmt:
		return NewReturnStmt(n.Range(), cloneExpr(n.Value))
	case *ExprStmt:
		return NewExprStmt(n.Range(), cloneExpr(n.X))
	}
	// Declarations never appear inside function bodies.
	return s
}

func cloneExpr(e Expr) Expr {
	switch n := e.(type) {
	case nil:
		return nil
	case *IntegerLiteral:
		return NewIntegerLiteral(n.Range(), n.Value)
	case *BoolLiteral:
		return NewBoolLiteral(n.Range(), n.Value)
	case *Identifier:
		return NewIdentifier(n.Range(), n.Name)
	case *MemberExpr:
		return NewMemberExpr(n.Range(), cloneExpr(n.Object), n.Name)
	case *BinaryExpr:
		return NewBinaryExpr(n.Range(), n.Op, cloneExpr(n.Left), cloneExpr(n.Right))
	case *UnaryExpr:
		return NewUnaryExpr(n.Range(), n.Op, cloneExpr(n.Operand))
	case *CallExpr:
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = cloneExpr(a)
		}
		return NewCallExpr(n.Range(), cloneExpr(n.Callee), args)
	case *InitStructExpr:
		fields := make([]FieldInit, len(n.Fields))
		for i, f := range n.Fields {
			fields[i] = FieldInit{Name: f.Name, Value: cloneExpr(f.Value)}
		}
		return NewInitStructExpr(n.Range(), n.TypeName, fields)
	}
	return e
}
