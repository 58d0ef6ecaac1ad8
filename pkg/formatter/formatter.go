// Package formatter prints an AST back to canonical source code.
package formatter

import (
	"math"
	"strings"

	"github.com/thomasrohde/rlux/pkg/ast"
	"github.com/thomasrohde/rlux/pkg/token"
	"github.com/thomasrohde/rlux/pkg/value"
)

const indent = "  "

// Precedence table for binary and logical operators (higher = tighter binding)
var precedence = map[token.Kind]int{
	token.Or:         1,
	token.And:        2,
	token.EqualEqual: 3, token.BangEqual: 3,
	token.Greater: 4, token.GreaterEqual: 4, token.Less: 4, token.LessEqual: 4,
	token.Plus: 5, token.Minus: 5,
	token.Star: 6, token.Slash: 6,
}

// exprPrec returns the binding strength of e as an operand. Assignment
// binds loosest; atoms and unary expressions bind tightest.
func exprPrec(e ast.Expr) int {
	switch n := e.(type) {
	case *ast.Assign:
		return 0
	case *ast.Binary:
		return precedence[n.Op.Kind]
	case *ast.Logical:
		return precedence[n.Op.Kind]
	}
	return 7
}

func needsParens(child ast.Expr, parentOp token.Kind, isRight bool) bool {
	childPrec := exprPrec(child)
	parentPrec := precedence[parentOp]
	if childPrec < parentPrec {
		return true
	}
	// Left-associativity: for same-precedence on right side, add parens
	if childPrec == parentPrec && isRight {
		return true
	}
	return false
}

// Format pretty-prints a program back to source code. Parenthesized
// expressions keep their parentheses. A for loop comes out in the
// block-and-while form the parser desugared it to.
func Format(program *ast.Program) string {
	if len(program.Statements) == 0 {
		return ""
	}
	lines := make([]string, len(program.Statements))
	for i, s := range program.Statements {
		lines[i] = formatStmt(s, 0)
	}
	return strings.Join(lines, "\n") + "\n"
}

// HasComments checks if a source string contains // comments outside of
// string literals.
func HasComments(source string) bool {
	for _, line := range strings.Split(source, "\n") {
		inString := false
		for i := 0; i < len(line); i++ {
			if line[i] == '"' {
				inString = !inString
			}
			if !inString && strings.HasPrefix(line[i:], "//") {
				return true
			}
		}
	}
	return false
}

func formatStmt(s ast.Stmt, depth int) string {
	return strings.Repeat(indent, depth) + formatStmtBody(s, depth)
}

// formatStmtBody formats s without leading indentation, for statements that
// continue a line such as if and while bodies.
func formatStmtBody(s ast.Stmt, depth int) string {
	switch stmt := s.(type) {
	case *ast.ExprStmt:
		return formatExpr(stmt.Expr) + ";"
	case *ast.Print:
		return "print " + formatExpr(stmt.Expr) + ";"
	case *ast.VarDecl:
		if stmt.Initializer == nil {
			return "var " + stmt.Name + ";"
		}
		return "var " + stmt.Name + " = " + formatExpr(stmt.Initializer) + ";"
	case *ast.Block:
		return formatBlock(stmt, depth)
	case *ast.If:
		out := "if (" + formatExpr(stmt.Cond) + ")" + formatBranch(stmt.Then, depth)
		if stmt.Else == nil {
			return out
		}
		if _, isBlock := stmt.Then.(*ast.Block); isBlock {
			out += " else"
		} else {
			out += "\n" + strings.Repeat(indent, depth) + "else"
		}
		if elseIf, ok := stmt.Else.(*ast.If); ok {
			return out + " " + formatStmtBody(elseIf, depth)
		}
		return out + formatBranch(stmt.Else, depth)
	case *ast.While:
		return "while (" + formatExpr(stmt.Cond) + ")" + formatBranch(stmt.Body, depth)
	}
	return ""
}

// formatBranch keeps a block body on the same line and puts any other
// statement on its own indented line.
func formatBranch(s ast.Stmt, depth int) string {
	if b, ok := s.(*ast.Block); ok {
		return " " + formatBlock(b, depth)
	}
	return "\n" + formatStmt(s, depth+1)
}

func formatBlock(b *ast.Block, depth int) string {
	if len(b.Stmts) == 0 {
		return "{}"
	}
	lines := make([]string, len(b.Stmts))
	for i, s := range b.Stmts {
		lines[i] = formatStmt(s, depth+1)
	}
	return "{\n" + strings.Join(lines, "\n") + "\n" + strings.Repeat(indent, depth) + "}"
}

func formatExpr(e ast.Expr) string {
	switch expr := e.(type) {
	case *ast.Literal:
		return formatLiteral(expr.Value)
	case *ast.Variable:
		return expr.Name.Lexeme
	case *ast.Assign:
		return expr.Name.Lexeme + " = " + formatExpr(expr.Value)
	case *ast.Grouping:
		return "(" + formatExpr(expr.Inner) + ")"
	case *ast.Binary:
		return formatInfix(expr.Left, expr.Op, expr.Right)
	case *ast.Logical:
		return formatInfix(expr.Left, expr.Op, expr.Right)
	case *ast.Unary:
		operandStr := formatExpr(expr.Right)
		if exprPrec(expr.Right) < 7 {
			operandStr = "(" + operandStr + ")"
		}
		return expr.Op.Lexeme + operandStr
	}
	return ""
}

func formatInfix(left ast.Expr, op token.Token, right ast.Expr) string {
	leftStr := formatExpr(left)
	rightStr := formatExpr(right)
	if needsParens(left, op.Kind, false) {
		leftStr = "(" + leftStr + ")"
	}
	if needsParens(right, op.Kind, true) {
		rightStr = "(" + rightStr + ")"
	}
	return leftStr + " " + op.Lexeme + " " + rightStr
}

// formatLiteral renders a value as source. Non-finite numbers have no
// literal form and are written as the division that produces them.
func formatLiteral(v value.Value) string {
	if n, ok := v.(value.Number); ok {
		switch {
		case math.IsNaN(n.Value):
			return "(0 / 0)"
		case math.IsInf(n.Value, 1):
			return "(1 / 0)"
		case math.IsInf(n.Value, -1):
			return "(-1 / 0)"
		}
	}
	return v.String()
}
