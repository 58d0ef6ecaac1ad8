// Package ast defines the expression and statement node types produced by
// the parser.
package ast

import (
	"github.com/thomasrohde/rlux/pkg/token"
	"github.com/thomasrohde/rlux/pkg/value"
)

// Node is the interface implemented by all AST nodes.
type Node interface {
	Kind() string
	// Line is the source line the node is reported at.
	Line() int
}

// --- Expr is the interface for all expression nodes ---

type Expr interface {
	Node
	exprNode() // sealed marker
}

// --- Stmt is the interface for all statement nodes ---

type Stmt interface {
	Node
	stmtNode() // sealed marker
}

// --- Expressions ---

// Literal is a constant value. LineNo is zero for literals synthesized by
// desugaring.
type Literal struct {
	Value  value.Value
	LineNo int
}

func (n *Literal) Kind() string { return "Literal" }
func (n *Literal) Line() int    { return n.LineNo }
func (n *Literal) exprNode()    {}

type Variable struct {
	Name token.Token
}

func (n *Variable) Kind() string { return "Variable" }
func (n *Variable) Line() int    { return n.Name.Line }
func (n *Variable) exprNode()    {}

type Assign struct {
	Name  token.Token
	Value Expr
}

func (n *Assign) Kind() string { return "Assign" }
func (n *Assign) Line() int    { return n.Name.Line }
func (n *Assign) exprNode()    {}

// Binary covers arithmetic, comparison and equality operators. Both operands
// are always evaluated.
type Binary struct {
	Left  Expr
	Op    token.Token
	Right Expr
}

func (n *Binary) Kind() string { return "Binary" }
func (n *Binary) Line() int    { return n.Op.Line }
func (n *Binary) exprNode()    {}

// Logical is an `and` / `or` expression. The right operand is evaluated only
// when the left one does not decide the result.
type Logical struct {
	Left  Expr
	Op    token.Token
	Right Expr
}

func (n *Logical) Kind() string { return "Logical" }
func (n *Logical) Line() int    { return n.Op.Line }
func (n *Logical) exprNode()    {}

type Unary struct {
	Op    token.Token
	Right Expr
}

func (n *Unary) Kind() string { return "Unary" }
func (n *Unary) Line() int    { return n.Op.Line }
func (n *Unary) exprNode()    {}

type Grouping struct {
	Inner Expr
}

func (n *Grouping) Kind() string { return "Grouping" }
func (n *Grouping) Line() int    { return n.Inner.Line() }
func (n *Grouping) exprNode()    {}

// --- Statements ---

type ExprStmt struct {
	Expr Expr
}

func (n *ExprStmt) Kind() string { return "ExprStmt" }
func (n *ExprStmt) Line() int    { return n.Expr.Line() }
func (n *ExprStmt) stmtNode()    {}

type Print struct {
	Keyword token.Token
	Expr    Expr
}

func (n *Print) Kind() string { return "Print" }
func (n *Print) Line() int    { return n.Keyword.Line }
func (n *Print) stmtNode()    {}

// VarDecl binds Name in the innermost scope. Initializer is nil when the
// declaration has none.
type VarDecl struct {
	Name        string
	NameTok     token.Token
	Initializer Expr
}

func (n *VarDecl) Kind() string { return "VarDecl" }
func (n *VarDecl) Line() int    { return n.NameTok.Line }
func (n *VarDecl) stmtNode()    {}

type Block struct {
	LineNo int
	Stmts  []Stmt
}

func (n *Block) Kind() string { return "Block" }
func (n *Block) Line() int    { return n.LineNo }
func (n *Block) stmtNode()    {}

type If struct {
	Keyword token.Token
	Cond    Expr
	Then    Stmt
	Else    Stmt // optional
}

func (n *If) Kind() string { return "If" }
func (n *If) Line() int    { return n.Keyword.Line }
func (n *If) stmtNode()    {}

type While struct {
	Keyword token.Token
	Cond    Expr
	Body    Stmt
}

func (n *While) Kind() string { return "While" }
func (n *While) Line() int    { return n.Keyword.Line }
func (n *While) stmtNode()    {}

// --- Program ---

type Program struct {
	Statements []Stmt
}

func (n *Program) Kind() string { return "Program" }

// Line returns the line of the first statement, or 1 for an empty program.
func (n *Program) Line() int {
	if len(n.Statements) == 0 {
		return 1
	}
	return n.Statements[0].Line()
}
