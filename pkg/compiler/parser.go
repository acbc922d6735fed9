package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser consumes the flat token slice produced by the Lexer and builds an AST.
//
// Grammar (semicolons after simple statements are optional):
//
//	program     = topLevel* EOF
//	topLevel    = fnDecl | operatorDecl | structDecl | namespace | statement
//	fnDecl      = "inline"? "fn" IDENTIFIER "(" params ")" ("->" type)? block
//	operatorDecl= "operator" binop "(" params ")" ("->" type)? block
//	structDecl  = "struct" IDENTIFIER "{" (IDENTIFIER ":" type ("," | ";")?)* "}"
//	namespace   = "namespace" IDENTIFIER ("." IDENTIFIER)* "{" topLevel* "}"
//	statement   = varDecl | if | while | return | block | expression ("=" expression)?
//	varDecl     = "var" IDENTIFIER (":" type)? ("=" expression)?
//	if          = "if" "(" expression ")" statement ("else" statement)?
//	while       = "while" "(" expression ")" statement
//	return      = "return" expression?
//	expression  = binary expression by precedence, loosest first:
//	              || , && , | , ^ , & , == != , < <= > >= , << >> , + - , * / %
//	unary       = ("!" | "-") unary | postfix
//	postfix     = primary ("(" args ")" | "." IDENTIFIER)*
//	primary     = INTEGER | "true" | "false" | IDENTIFIER | IDENTIFIER? structInit | "(" expression ")"
//	structInit  = "{" ((IDENTIFIER ":")? expression ("," ...)*)? "}"
type Parser struct {
	tokens      []Token
	pos         int
	sourceLines []string
}

func NewParser(tokens []Token, rawSource string) *Parser {
	return &Parser{tokens: tokens, sourceLines: strings.Split(rawSource, "\n")}
}

// fmtError builds a SourceError carrying the source line where the token appears.
func (p *Parser) fmtError(tok Token, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	lineIdx := tok.Line - 1 // Lines are 1-based

	snippet := "<source unavailable>"
	if lineIdx >= 0 && lineIdx < len(p.sourceLines) {
		snippet = strings.TrimSpace(p.sourceLines[lineIdx])
	}

	return &SourceError{
		Range: SourceRange{Start: tok.Pos(), End: tok.Pos()},
		Msg:   fmt.Sprintf("%s\n  |> %s", msg, snippet),
	}
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos]
}

// peekAt returns the token at the given offset from the current position.
func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos+offset]
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// previous returns the last consumed token.
func (p *Parser) previous() Token {
	if p.pos == 0 {
		return p.peek()
	}
	return p.tokens[p.pos-1]
}

// expect consumes the current token if it matches tt, otherwise returns an error.
func (p *Parser) expect(tt TokenType) (Token, error) {
	tok := p.advance()
	if tok.Type != tt {
		return tok, p.fmtError(tok, "expected %s, got %s (%q)", tt, tok.Type, tok.Lexeme)
	}
	return tok, nil
}

// sameLine reports whether the current token starts on the line the previous
// token ended on.
func (p *Parser) sameLine() bool {
	return p.peek().Line == p.previous().Line
}

// rangeFrom spans from start to the end of the last consumed token.
func (p *Parser) rangeFrom(start Token) SourceRange {
	last := p.previous()
	return SourceRange{
		Start: start.Pos(),
		End:   Position{Line: last.Line, Col: last.Col + len([]rune(last.Lexeme))},
	}
}

func (p *Parser) skipSemicolon() {
	if p.peek().Type == SEMICOLON {
		p.advance()
	}
}

// precedence lists infix operator tokens from loosest to tightest binding.
var precedence = [][]TokenType{
	{OR_LOGICAL},
	{AND_LOGICAL},
	{PIPE},
	{CARET},
	{AND},
	{EQUALS, NOT_EQ},
	{LESS, LESS_EQ, GREATER, GREATER_EQ},
	{SHL_OP, SHR_OP},
	{PLUS, MINUS},
	{STAR, SLASH, PERCENT},
}

// parseExpression is the entry point for expression parsing.
func (p *Parser) parseExpression() (Expr, error) {
	return p.parseBinary(0)
}

// parseBinary parses a left-associative chain at the given precedence level.
func (p *Parser) parseBinary(level int) (Expr, error) {
	if level == len(precedence) {
		return p.parseUnary()
	}
	start := p.peek()
	expr, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for containsToken(precedence[level], p.peek().Type) {
		op := tokenOperators[p.advance().Type]
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		expr = NewBinaryExpr(p.rangeFrom(start), op, expr, right)
	}
	return expr, nil
}

func containsToken(set []TokenType, tt TokenType) bool {
	for _, t := range set {
		if t == tt {
			return true
		}
	}
	return false
}

func (p *Parser) parseUnary() (Expr, error) {
	tok := p.peek()
	var op UnaryOperator
	switch tok.Type {
	case NOT:
		op = OpNot
	case MINUS:
		op = OpNegate
	default:
		return p.parsePostfix()
	}
	p.advance()
	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return NewUnaryExpr(p.rangeFrom(tok), op, operand), nil
}

func (p *Parser) parsePostfix() (Expr, error) {
	start := p.peek()
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		switch {
		case p.peek().Type == LPAREN && p.sameLine():
			p.advance()
			args, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			expr = NewCallExpr(p.rangeFrom(start), expr, args)
		case p.peek().Type == DOT:
			p.advance()
			name, err := p.expect(IDENTIFIER)
			if err != nil {
				return nil, err
			}
			expr = NewMemberExpr(p.rangeFrom(start), expr, name.Lexeme)
		default:
			return expr, nil
		}
	}
}

// parseCallArgs parses arguments after the opening parenthesis.
func (p *Parser) parseCallArgs() ([]Expr, error) {
	var args []Expr
	if p.peek().Type == RPAREN {
		p.advance()
		return args, nil
	}
	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.peek().Type == COMMA {
			p.advance()
			continue
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return args, nil
	}
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case INTEGER:
		p.advance()
		val, err := strconv.ParseInt(tok.Lexeme, 0, 64)
		if err != nil || val > 0xFFFF {
			return nil, p.fmtError(tok, "integer literal %s out of range", tok.Lexeme)
		}
		return NewIntegerLiteral(p.rangeFrom(tok), int(val)), nil

	case TRUE, FALSE:
		p.advance()
		return NewBoolLiteral(p.rangeFrom(tok), tok.Type == TRUE), nil

	case IDENTIFIER:
		p.advance()
		if p.peek().Type == LBRACE && p.sameLine() {
			return p.parseStructInit(tok, tok.Lexeme)
		}
		return NewIdentifier(p.rangeFrom(tok), tok.Lexeme), nil

	case LBRACE:
		return p.parseStructInit(tok, "")

	case LPAREN:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return nil, p.fmtError(tok, "unexpected token %s (%q) in expression", tok.Type, tok.Lexeme)
}

// parseStructInit parses { a: 1, b: 2 } or { 1, 2 }; the type name, if any,
// has already been consumed.
func (p *Parser) parseStructInit(start Token, typeName string) (Expr, error) {
	if _, err := p.expect(LBRACE); err != nil {
		return nil, err
	}
	var fields []FieldInit
	for p.peek().Type != RBRACE {
		var name string
		if p.peek().Type == IDENTIFIER && p.peekAt(1).Type == COLON {
			name = p.advance().Lexeme
			p.advance()
		}
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		fields = append(fields, FieldInit{Name: name, Value: val})
		if p.peek().Type != COMMA {
			break
		}
		p.advance()
	}
	if _, err := p.expect(RBRACE); err != nil {
		return nil, err
	}
	return NewInitStructExpr(p.rangeFrom(start), typeName, fields), nil
}

// parseType accepts a type name: int, bool, void, or a struct name.
func (p *Parser) parseType() (string, error) {
	tok, err := p.expect(IDENTIFIER)
	if err != nil {
		return "", err
	}
	return tok.Lexeme, nil
}

// parseParams parses "(name: type, ...)".
func (p *Parser) parseParams() ([]Param, error) {
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	var params []Param
	for p.peek().Type != RPAREN {
		name, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(COLON); err != nil {
			return nil, err
		}
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		params = append(params, Param{Name: name.Lexeme, TypeName: typ})
		if p.peek().Type != COMMA {
			break
		}
		p.advance()
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) parseVarDecl() (Stmt, error) {
	start := p.advance() // var
	name, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	var typeName string
	if p.peek().Type == COLON {
		p.advance()
		if typeName, err = p.parseType(); err != nil {
			return nil, err
		}
	}
	var init Expr
	if p.peek().Type == ASSIGN {
		p.advance()
		if init, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	if typeName == "" && init == nil {
		return nil, p.fmtError(start, "variable %q needs a type or an initializer", name.Lexeme)
	}
	p.skipSemicolon()
	return NewVarDecl(p.rangeFrom(start), name.Lexeme, typeName, init), nil
}

func (p *Parser) parseStructDecl() (Stmt, error) {
	start := p.advance() // struct
	name, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(LBRACE); err != nil {
		return nil, err
	}
	var fields []Param
	for p.peek().Type != RBRACE {
		field, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(COLON); err != nil {
			return nil, err
		}
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		fields = append(fields, Param{Name: field.Lexeme, TypeName: typ})
		if t := p.peek().Type; t == COMMA || t == SEMICOLON {
			p.advance()
		}
	}
	p.advance() // }
	p.skipSemicolon()
	return NewStructDecl(p.rangeFrom(start), name.Lexeme, fields), nil
}

func (p *Parser) parseReturn() (Stmt, error) {
	start := p.advance() // return
	var value Expr
	if t := p.peek().Type; t != RBRACE && t != SEMICOLON && t != EOF && p.sameLine() {
		var err error
		if value, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	p.skipSemicolon()
	return NewReturnStmt(p.rangeFrom(start), value), nil
}

func (p *Parser) parseBlock() (*BlockStmt, error) {
	start, err := p.expect(LBRACE)
	if err != nil {
		return nil, err
	}
	var stmts []Stmt
	for p.peek().Type != RBRACE {
		if p.peek().Type == EOF {
			return nil, p.fmtError(p.peek(), "unexpected end of input, missing '}'")
		}
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	p.advance() // }
	return NewBlockStmt(p.rangeFrom(start), stmts), nil
}

// parseCondition parses "(" expression ")".
func (p *Parser) parseCondition() (Expr, error) {
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return cond, nil
}

func (p *Parser) parseIf() (Stmt, error) {
	start := p.advance() // if
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	var els Stmt
	if p.peek().Type == ELSE {
		p.advance()
		if els, err = p.parseStatement(); err != nil {
			return nil, err
		}
	}
	return NewIfStmt(p.rangeFrom(start), cond, then, els), nil
}

func (p *Parser) parseWhile() (Stmt, error) {
	start := p.advance() // while
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return NewWhileStmt(p.rangeFrom(start), cond, body), nil
}

func (p *Parser) parseStatement() (Stmt, error) {
	tok := p.peek()
	switch tok.Type {
	case VAR:
		return p.parseVarDecl()
	case IF:
		return p.parseIf()
	case WHILE:
		return p.parseWhile()
	case RETURN:
		return p.parseReturn()
	case LBRACE:
		return p.parseBlock()
	case SEMICOLON:
		p.advance()
		return NewBlockStmt(p.rangeFrom(tok), nil), nil
	case FN, INLINE, OPERATOR, STRUCT, NAMESPACE:
		return nil, p.fmtError(tok, "%s declarations are only allowed at the top level", strings.ToLower(tok.Type.String()))
	}

	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.peek().Type == ASSIGN {
		p.advance()
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		switch expr.(type) {
		case *Identifier, *MemberExpr:
		default:
			return nil, p.fmtError(tok, "cannot assign to %s", expr)
		}
		p.skipSemicolon()
		return NewAssignStmt(p.rangeFrom(tok), expr, value), nil
	}
	p.skipSemicolon()
	return NewExprStmt(p.rangeFrom(tok), expr), nil
}

func (p *Parser) parseFunctionDecl() (Stmt, error) {
	start := p.peek()
	inline := false
	if start.Type == INLINE {
		inline = true
		p.advance()
	}

	var name string
	isOperator := false
	var op BinaryOperator
	switch tok := p.advance(); tok.Type {
	case FN:
		nameTok, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		name = nameTok.Lexeme
	case OPERATOR:
		opTok := p.advance()
		o, ok := tokenOperators[opTok.Type]
		if !ok {
			return nil, p.fmtError(opTok, "%q is not an overloadable operator", opTok.Lexeme)
		}
		isOperator, op, name = true, o, "operator"+opTok.Lexeme
	default:
		return nil, p.fmtError(tok, "expected fn or operator, got %s", tok.Type)
	}

	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	var ret string
	if p.peek().Type == ARROW {
		p.advance()
		if ret, err = p.parseType(); err != nil {
			return nil, err
		}
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	decl := NewFunctionDecl(p.rangeFrom(start), name, params, ret, body)
	decl.Inline = inline
	decl.IsOperator = isOperator
	decl.Operator = op
	return decl, nil
}

func (p *Parser) parseNamespace() (Stmt, error) {
	start := p.advance() // namespace
	var path []string
	for {
		part, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		path = append(path, part.Lexeme)
		if p.peek().Type != DOT {
			break
		}
		p.advance()
	}
	if _, err := p.expect(LBRACE); err != nil {
		return nil, err
	}
	var body []Stmt
	for p.peek().Type != RBRACE {
		if p.peek().Type == EOF {
			return nil, p.fmtError(p.peek(), "unexpected end of input, missing '}'")
		}
		s, err := p.parseTopLevel()
		if err != nil {
			return nil, err
		}
		body = append(body, s)
	}
	p.advance() // }
	return NewNamespaceDecl(p.rangeFrom(start), path, body), nil
}

func (p *Parser) parseTopLevel() (Stmt, error) {
	switch p.peek().Type {
	case FN, INLINE, OPERATOR:
		return p.parseFunctionDecl()
	case STRUCT:
		return p.parseStructDecl()
	case NAMESPACE:
		return p.parseNamespace()
	}
	return p.parseStatement()
}

// Parse builds the statement list of a whole program.
func Parse(tokens []Token, rawSource string) ([]Stmt, error) {
	p := NewParser(tokens, rawSource)
	var stmts []Stmt
	for p.peek().Type != EOF {
		s, err := p.parseTopLevel()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}
