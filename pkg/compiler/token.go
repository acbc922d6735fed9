package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	// Literals
	IDENTIFIER // variable / function name
	INTEGER    // decimal or hex integer literal

	// Keywords
	FN        // "fn"
	INLINE    // "inline"
	OPERATOR  // "operator"
	VAR       // "var"
	IF        // "if"
	ELSE      // "else"
	WHILE     // "while"
	RETURN    // "return"
	STRUCT    // "struct"
	NAMESPACE // "namespace"
	TRUE      // "true"
	FALSE     // "false"

	// Paired delimiters
	LBRACE // {
	RBRACE // }
	LPAREN // (
	RPAREN // )

	// Punctuation
	DOT       // .
	SEMICOLON // ;
	COMMA     // ,
	COLON     // :
	ARROW     // ->

	// Arithmetic operators
	PLUS        // +
	MINUS       // -
	STAR        // *
	SLASH       // /
	PERCENT     // %
	AND         // &
	PIPE        // |
	CARET       // ^
	SHL_OP      // <<
	SHR_OP      // >>
	AND_LOGICAL // &&
	OR_LOGICAL  // ||
	NOT         // !

	ASSIGN // =

	EQUALS     // ==
	NOT_EQ     // !=
	LESS       // <
	LESS_EQ    // <=
	GREATER    // >
	GREATER_EQ // >=

	tokenTypeCount
)

var tokenNames = [...]string{
	EOF:         "EOF",
	IDENTIFIER:  "IDENTIFIER",
	INTEGER:     "INTEGER",
	FN:          "FN",
	INLINE:      "INLINE",
	OPERATOR:    "OPERATOR",
	VAR:         "VAR",
	IF:          "IF",
	ELSE:        "ELSE",
	WHILE:       "WHILE",
	RETURN:      "RETURN",
	STRUCT:      "STRUCT",
	NAMESPACE:   "NAMESPACE",
	TRUE:        "TRUE",
	FALSE:       "FALSE",
	LBRACE:      "LBRACE",
	RBRACE:      "RBRACE",
	LPAREN:      "LPAREN",
	RPAREN:      "RPAREN",
	DOT:         "DOT",
	SEMICOLON:   "SEMICOLON",
	COMMA:       "COMMA",
	COLON:       "COLON",
	ARROW:       "ARROW",
	PLUS:        "PLUS",
	MINUS:       "MINUS",
	STAR:        "STAR",
	SLASH:       "SLASH",
	PERCENT:     "PERCENT",
	AND:         "AND",
	PIPE:        "PIPE",
	CARET:       "CARET",
	SHL_OP:      "SHL_OP",
	SHR_OP:      "SHR_OP",
	AND_LOGICAL: "AND_LOGICAL",
	OR_LOGICAL:  "OR_LOGICAL",
	NOT:         "NOT",
	ASSIGN:      "ASSIGN",
	EQUALS:      "EQUALS",
	NOT_EQ:      "NOT_EQ",
	LESS:        "LESS",
	LESS_EQ:     "LESS_EQ",
	GREATER:     "GREATER",
	GREATER_EQ:  "GREATER_EQ",
}

// Fails to compile if a TokenType is added without a name.
var _ = [1]struct{}{}[len(tokenNames)-int(tokenTypeCount)]

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // the exact source text that was matched
	Line   int    // 1-based source line
	Col    int    // 1-based column of the first rune
}

func (t Token) String() string {
	return fmt.Sprintf("%-10s %-14q  line %d:%d", t.Type, t.Lexeme, t.Line, t.Col)
}

// Pos returns the position of the token's first rune.
func (t Token) Pos() Position {
	return Position{Line: t.Line, Col: t.Col}
}
