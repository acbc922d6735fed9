package compiler

import (
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
)

// Position is a 1-based line and column in the source text.
type Position struct {
	Line int
	Col  int
}

// Before reports whether p comes earlier in the source than o.
func (p Position) Before(o Position) bool {
	return p.Line < o.Line || (p.Line == o.Line && p.Col < o.Col)
}

// SourceRange locates a node in the source text. It is used only for
// diagnostics.
type SourceRange struct {
	Start Position
	End   Position
}

func (r SourceRange) String() string {
	return fmt.Sprintf("%d:%d", r.Start.Line, r.Start.Col)
}

// NodeID identifies a node for the lifetime of a compilation. Clones receive
// fresh IDs; an optimized replacement of a node keeps the original's ID.
type NodeID ulid.ULID

func newNodeID() NodeID {
	return NodeID(ulid.Make())
}

func (id NodeID) String() string {
	return ulid.ULID(id).String()
}

// Node is implemented by every expression and statement.
type Node interface {
	ID() NodeID
	Range() SourceRange
	String() string
}

type base struct {
	id  NodeID
	rng SourceRange
}

func newBase(rng SourceRange) base {
	return base{id: newNodeID(), rng: rng}
}

func (b base) ID() NodeID         { return b.id }
func (b base) Range() SourceRange { return b.rng }

//  Expression nodes

// Expr is implemented by every node that produces a value.
// Building an expression leaves its value in A.
type Expr interface {
	Node
	exprNode()
}

// IntegerLiteral is a compile-time integer constant.
//
//	var x = 10
//	        ^^  IntegerLiteral{Value: 10}
type IntegerLiteral struct {
	base
	Value int
}

func NewIntegerLiteral(rng SourceRange, v int) *IntegerLiteral {
	return &IntegerLiteral{base: newBase(rng), Value: v}
}

func (*IntegerLiteral) exprNode()        {}
func (l *IntegerLiteral) String() string { return fmt.Sprintf("%d", l.Value) }

// BoolLiteral is true or false.
type BoolLiteral struct {
	base
	Value bool
}

func NewBoolLiteral(rng SourceRange, v bool) *BoolLiteral {
	return &BoolLiteral{base: newBase(rng), Value: v}
}

func (*BoolLiteral) exprNode()        {}
func (l *BoolLiteral) String() string { return fmt.Sprintf("%t", l.Value) }

// Identifier is a read of a named variable, or the name part of a callee.
type Identifier struct {
	base
	Name string
}

func NewIdentifier(rng SourceRange, name string) *Identifier {
	return &Identifier{base: newBase(rng), Name: name}
}

func (*Identifier) exprNode()        {}
func (i *Identifier) String() string { return i.Name }

// MemberExpr is a struct field access, or a namespace qualifier when it
// appears as a callee.
//
//	p.x
//	^ ^
//	| Name
//	Object
type MemberExpr struct {
	base
	Object Expr
	Name   string
}

func NewMemberExpr(rng SourceRange, object Expr, name string) *MemberExpr {
	return &MemberExpr{base: newBase(rng), Object: object, Name: name}
}

func (*MemberExpr) exprNode()        {}
func (m *MemberExpr) String() string { return fmt.Sprintf("%s.%s", m.Object, m.Name) }

// BinaryExpr represents Left Op Right.
//
//	x + 1
//	^ ^ ^
//	| | |
//	| | Right
//	| Op
//	Left
type BinaryExpr struct {
	base
	Op    BinaryOperator
	Left  Expr
	Right Expr
}

func NewBinaryExpr(rng SourceRange, op BinaryOperator, left, right Expr) *BinaryExpr {
	return &BinaryExpr{base: newBase(rng), Op: op, Left: left, Right: right}
}

func (*BinaryExpr) exprNode() {}
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

// UnaryExpr represents !x or -x.
type UnaryExpr struct {
	base
	Op      UnaryOperator
	Operand Expr
}

func NewUnaryExpr(rng SourceRange, op UnaryOperator, operand Expr) *UnaryExpr {
	return &UnaryExpr{base: newBase(rng), Op: op, Operand: operand}
}

func (*UnaryExpr) exprNode()        {}
func (u *UnaryExpr) String() string { return fmt.Sprintf("(%s%s)", u.Op, u.Operand) }

// CallExpr represents callee(args). Callee is an Identifier or a MemberExpr
// chain naming a namespace.
type CallExpr struct {
	base
	Callee Expr
	Args   []Expr

	// body is the optimized inline expansion, set only on the replacement
	// produced by optimization.
	body *BlockStmt
}

func NewCallExpr(rng SourceRange, callee Expr, args []Expr) *CallExpr {
	return &CallExpr{base: newBase(rng), Callee: callee, Args: args}
}

func (*CallExpr) exprNode() {}
func (c *CallExpr) String() string {
	return fmt.Sprintf("Call(%s, args=%v)", c.Callee, c.Args)
}

// FieldInit is one entry of a struct initializer. Name is empty for
// positional entries.
type FieldInit struct {
	Name  string
	Value Expr
}

// InitStructExpr is a struct initializer. It can only be stored into a
// variable; it never produces a value in a register.
//
//	var p: Point = { x: 1, y: 2 }
//	               ^^^^^^^^^^^^^^
type InitStructExpr struct {
	base
	TypeName string
	Fields   []FieldInit
}

func NewInitStructExpr(rng SourceRange, typeName string, fields []FieldInit) *InitStructExpr {
	return &InitStructExpr{base: newBase(rng), TypeName: typeName, Fields: fields}
}

func (*InitStructExpr) exprNode() {}
func (s *InitStructExpr) String() string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		if f.Name == "" {
			parts[i] = f.Value.String()
		} else {
			parts[i] = fmt.Sprintf("%s: %s", f.Name, f.Value)
		}
	}
	return fmt.Sprintf("%s{%s}", s.TypeName, strings.Join(parts, ", "))
}

//  Statement nodes

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmtNode()
}

// BlockStmt is { stmts... } and opens a new scope.
type BlockStmt struct {
	base
	Stmts []Stmt
}

func NewBlockStmt(rng SourceRange, stmts []Stmt) *BlockStmt {
	return &BlockStmt{base: newBase(rng), Stmts: stmts}
}

func (*BlockStmt) stmtNode() {}
func (b *BlockStmt) String() string {
	return fmt.Sprintf("Block(%d stmts)", len(b.Stmts))
}

// VarDecl declares a variable. TypeName is empty when the type is inferred
// from Init.
//
//	var x: int = 5
type VarDecl struct {
	base
	Name     string
	TypeName string
	Init     Expr
}

func NewVarDecl(rng SourceRange, name, typeName string, init Expr) *VarDecl {
	return &VarDecl{base: newBase(rng), Name: name, TypeName: typeName, Init: init}
}

func (*VarDecl) stmtNode() {}
func (v *VarDecl) String() string {
	return fmt.Sprintf("Var(%s: %s = %v)", v.Name, v.TypeName, v.Init)
}

// AssignStmt stores Value into Target, an Identifier or MemberExpr.
type AssignStmt struct {
	base
	Target Expr
	Value  Expr
}

func NewAssignStmt(rng SourceRange, target, value Expr) *AssignStmt {
	return &AssignStmt{base: newBase(rng), Target: target, Value: value}
}

func (*AssignStmt) stmtNode() {}
func (a *AssignStmt) String() string {
	return fmt.Sprintf("Assign(%s = %s)", a.Target, a.Value)
}

type IfStmt struct {
	base
	Cond Expr
	Then Stmt
	Else Stmt // nil when absent
}

func NewIfStmt(rng SourceRange, cond Expr, then, els Stmt) *IfStmt {
	return &IfStmt{base: newBase(rng), Cond: cond, Then: then, Else: els}
}

func (*IfStmt) stmtNode() {}
func (s *IfStmt) String() string {
	return fmt.Sprintf("If(%s)", s.Cond)
}

type WhileStmt struct {
	base
	Cond Expr
	Body Stmt
}

func NewWhileStmt(rng SourceRange, cond Expr, body Stmt) *WhileStmt {
	return &WhileStmt{base: newBase(rng), Cond: cond, Body: body}
}

func (*WhileStmt) stmtNode() {}
func (s *WhileStmt) String() string {
	return fmt.Sprintf("While(%s)", s.Cond)
}

// ReturnStmt leaves the enclosing function. Value is nil for a bare return.
type ReturnStmt struct {
	base
	Value Expr
}

func NewReturnStmt(rng SourceRange, value Expr) *ReturnStmt {
	return &ReturnStmt{base: newBase(rng), Value: value}
}

func (*ReturnStmt) stmtNode() {}
func (r *ReturnStmt) String() string {
	return fmt.Sprintf("Return(%v)", r.Value)
}

// ExprStmt evaluates X for its effects; the value is left in A.
type ExprStmt struct {
	base
	X Expr
}

func NewExprStmt(rng SourceRange, x Expr) *ExprStmt {
	return &ExprStmt{base: newBase(rng), X: x}
}

func (*ExprStmt) stmtNode()        {}
func (e *ExprStmt) String() string { return fmt.Sprintf("Expr(%s)", e.X) }

// Param is a named, typed function parameter or struct field.
type Param struct {
	Name     string
	TypeName string
}

// FunctionDecl declares a function or, when IsOperator is set, an operator
// overload.
//
//	inline fn add(a: int, b: int) -> int { return a + b }
//	operator + (a: Vec, b: Vec) -> int { return a.x + b.x }
type FunctionDecl struct {
	base
	Name       string
	Inline     bool
	IsOperator bool
	Operator   BinaryOperator
	Params     []Param
	ReturnType string // empty for void
	Body       *BlockStmt
}

func NewFunctionDecl(rng SourceRange, name string, params []Param, returnType string, body *BlockStmt) *FunctionDecl {
	return &FunctionDecl{base: newBase(rng), Name: name, Params: params, ReturnType: returnType, Body: body}
}

func (*FunctionDecl) stmtNode() {}
func (f *FunctionDecl) String() string {
	kind := "Function"
	if f.IsOperator {
		kind = "Operator"
	}
	if f.Inline {
		kind = "Inline" + kind
	}
	return fmt.Sprintf("%s(%s, params=%v, ret=%q)", kind, f.Name, f.Params, f.ReturnType)
}

type StructDecl struct {
	base
	Name   string
	Fields []Param
}

func NewStructDecl(rng SourceRange, name string, fields []Param) *StructDecl {
	return &StructDecl{base: newBase(rng), Name: name, Fields: fields}
}

func (*StructDecl) stmtNode() {}
func (s *StructDecl) String() string {
	return fmt.Sprintf("Struct(%s, fields=%v)", s.Name, s.Fields)
}

// NamespaceDecl groups declarations under a dotted path.
//
//	namespace math.ints { fn add(a: int, b: int) -> int { return a + b } }
type NamespaceDecl struct {
	base
	Path []string
	Body []Stmt
}

func NewNamespaceDecl(rng SourceRange, path []string, body []Stmt) *NamespaceDecl {
	return &NamespaceDecl{base: newBase(rng), Path: path, Body: body}
}

func (*NamespaceDecl) stmtNode() {}
func (n *NamespaceDecl) String() string {
	return fmt.Sprintf("Namespace(%s, %d stmts)", strings.Join(n.Path, "."), len(n.Body))
}
