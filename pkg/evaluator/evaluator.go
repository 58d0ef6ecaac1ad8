// Package evaluator implements the tree-walking interpreter.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/thomasrohde/rlux/pkg/ast"
	"github.com/thomasrohde/rlux/pkg/diagnostics"
	"github.com/thomasrohde/rlux/pkg/token"
	"github.com/thomasrohde/rlux/pkg/value"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart       TraceEventType = "run_start"
	TraceRunEnd         TraceEventType = "run_end"
	TraceStmtStart      TraceEventType = "stmt_start"
	TraceStmtEnd        TraceEventType = "stmt_end"
	TraceScopePush      TraceEventType = "scope_push"
	TraceScopePop       TraceEventType = "scope_pop"
	TracePrint          TraceEventType = "print"
	TraceRuntimeError   TraceEventType = "runtime_error"
	TraceBudgetExceeded TraceEventType = "budget_exceeded"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string         `json:"ts"`
	RunID     string         `json:"runId"`
	Event     TraceEventType `json:"event"`
	Line      int            `json:"line,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// ExecOptions configures program execution.
type ExecOptions struct {
	// Stdout receives the output of print statements. Nil discards it.
	Stdout io.Writer
	// Report is called once for every runtime error, as it happens.
	Report func(d diagnostics.Diagnostic)
	Logger *slog.Logger
	Budget Budget
	Trace  func(event TraceEvent)
	RunID  string
}

// ExecResult holds the result of a program execution.
type ExecResult struct {
	// Diagnostics lists the runtime errors raised, in order.
	Diagnostics []diagnostics.Diagnostic
	// Executed counts the top-level statements that completed.
	Executed int
}

// RuntimeError represents an evaluation failure located at a token.
type RuntimeError struct {
	Code    string
	Message string
	Token   token.Token
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Diagnostic converts the error into its reportable form.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	if e.Token.Kind == token.EOF {
		return diagnostics.MakeEndDiag(e.Code, e.Message, e.Token.Line)
	}
	return diagnostics.MakeDiag(e.Code, e.Message, e.Token.Line, e.Token.Lexeme)
}

// Interpreter owns the global scope. Successive Execute calls share it, so
// declarations made by one run are visible to the next. An Interpreter is
// not safe for concurrent use.
type Interpreter struct {
	opts    ExecOptions
	logger  *slog.Logger
	globals *Env
}

// New creates an interpreter with an empty global scope.
func New(opts ExecOptions) *Interpreter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	return &Interpreter{
		opts:    opts,
		logger:  logger,
		globals: NewEnv(nil),
	}
}

// Globals returns the global scope.
func (in *Interpreter) Globals() *Env {
	return in.globals
}

// Execute runs a program in a fresh evaluator over a single interpreter.
func Execute(ctx context.Context, program *ast.Program, opts ExecOptions) (*ExecResult, error) {
	return New(opts).Execute(ctx, program)
}

type evaluator struct {
	ctx     context.Context
	opts    ExecOptions
	logger  *slog.Logger
	env     *Env
	depth   int
	budget  Budget
	tracker BudgetTracker
}

func (in *Interpreter) newEvaluator(ctx context.Context) *evaluator {
	return &evaluator{
		ctx:     ctx,
		opts:    in.opts,
		logger:  in.logger,
		env:     in.globals,
		budget:  in.opts.Budget,
		tracker: BudgetTracker{Start: time.Now()},
	}
}

// Execute runs the top-level statements of program in order. A runtime
// error aborts only the statement that raised it: the error is reported and
// execution resumes with the next statement. Exceeding the budget stops the
// run and is returned as a *RuntimeError with code E_BUDGET; cancellation of
// ctx is returned as is.
func (in *Interpreter) Execute(ctx context.Context, program *ast.Program) (*ExecResult, error) {
	if in.opts.Budget.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, in.opts.Budget.Timeout)
		defer cancel()
	}
	ev := in.newEvaluator(ctx)
	res := &ExecResult{}

	ev.emit(TraceRunStart, program.Line(), map[string]any{"statements": len(program.Statements)})
	ev.logger.Debug("run start", "runId", ev.opts.RunID, "statements", len(program.Statements))
	defer func() {
		ev.emit(TraceRunEnd, 0, map[string]any{
			"executed":  res.Executed,
			"errors":    len(res.Diagnostics),
			"elapsedMs": time.Since(ev.tracker.Start).Milliseconds(),
		})
		ev.logger.Debug("run end", "runId", ev.opts.RunID, "executed", res.Executed, "errors", len(res.Diagnostics))
	}()

	for _, stmt := range program.Statements {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("run interrupted before line %d: %w", stmt.Line(), err)
		}

		err := ev.execStmt(stmt)
		if err == nil {
			res.Executed++
			continue
		}

		var rte *RuntimeError
		if !errors.As(err, &rte) {
			return res, err
		}
		d := rte.Diagnostic()
		res.Diagnostics = append(res.Diagnostics, d)
		if ev.opts.Report != nil {
			ev.opts.Report(d)
		}
		if rte.Code == diagnostics.EBudget {
			ev.emit(TraceBudgetExceeded, d.Line, map[string]any{"message": d.Message})
			return res, rte
		}
		ev.emit(TraceRuntimeError, d.Line, map[string]any{"code": d.Code, "message": d.Message})
		ev.logger.Debug("statement failed", "line", d.Line, "code", d.Code, "message", d.Message)
	}

	return res, nil
}

// Evaluate evaluates a single expression against the global scope.
func (in *Interpreter) Evaluate(ctx context.Context, expr ast.Expr) (value.Value, error) {
	return in.newEvaluator(ctx).evalExpr(expr)
}

func (ev *evaluator) emit(event TraceEventType, line int, data map[string]any) {
	if ev.opts.Trace != nil {
		ev.opts.Trace(TraceEvent{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			RunID:     ev.opts.RunID,
			Event:     event,
			Line:      line,
			Data:      data,
		})
	}
}

// --- Statements ---

func (ev *evaluator) execStmt(stmt ast.Stmt) error {
	line := stmt.Line()
	ev.emit(TraceStmtStart, line, map[string]any{"kind": stmt.Kind()})

	var err error
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		_, err = ev.evalExpr(s.Expr)

	case *ast.Print:
		err = ev.execPrint(s)

	case *ast.VarDecl:
		var val value.Value = value.NewNil()
		if s.Initializer != nil {
			val, err = ev.evalExpr(s.Initializer)
		}
		if err == nil {
			ev.env.Define(s.Name, val)
		}

	case *ast.Block:
		err = ev.execBlock(s)

	case *ast.If:
		err = ev.execIf(s)

	case *ast.While:
		err = ev.execWhile(s)

	default:
		err = &RuntimeError{
			Code:    diagnostics.EType,
			Message: fmt.Sprintf("unsupported statement type: %T", stmt),
			Token:   token.New(token.EOF, "", line),
		}
	}

	if err != nil {
		return err
	}
	ev.emit(TraceStmtEnd, line, nil)
	return nil
}

func (ev *evaluator) execPrint(s *ast.Print) error {
	val, err := ev.evalExpr(s.Expr)
	if err != nil {
		return err
	}
	text := val.String()
	if _, err := fmt.Fprintln(ev.opts.Stdout, text); err != nil {
		return &RuntimeError{
			Code:    diagnostics.EIO,
			Message: fmt.Sprintf("write failed: %v", err),
			Token:   s.Keyword,
		}
	}
	ev.emit(TracePrint, s.Keyword.Line, map[string]any{"value": value.ToRaw(val)})
	return nil
}

// execBlock runs stmts in a new scope. The previous scope is restored on
// every exit path, including errors.
func (ev *evaluator) execBlock(b *ast.Block) error {
	prev := ev.env
	ev.env = prev.Child()
	ev.depth++
	ev.emit(TraceScopePush, b.LineNo, map[string]any{"depth": ev.depth})
	ev.logger.Debug("scope push", "depth", ev.depth, "line", b.LineNo)
	defer func() {
		ev.logger.Debug("scope pop", "depth", ev.depth, "line", b.LineNo)
		ev.emit(TraceScopePop, b.LineNo, map[string]any{"depth": ev.depth})
		ev.depth--
		ev.env = prev
	}()

	for _, stmt := range b.Stmts {
		if err := ev.execStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (ev *evaluator) execIf(s *ast.If) error {
	cond, err := ev.evalExpr(s.Cond)
	if err != nil {
		return err
	}
	if value.Truthy(cond) {
		return ev.execStmt(s.Then)
	}
	if s.Else != nil {
		return ev.execStmt(s.Else)
	}
	return nil
}

func (ev *evaluator) execWhile(s *ast.While) error {
	for {
		if err := ev.checkDeadline(s.Keyword); err != nil {
			return err
		}
		cond, err := ev.evalExpr(s.Cond)
		if err != nil {
			return err
		}
		if !value.Truthy(cond) {
			return nil
		}
		if err := ev.checkIterationBudget(s.Keyword); err != nil {
			return err
		}
		ev.tracker.Iterations++
		if err := ev.execStmt(s.Body); err != nil {
			return err
		}
	}
}

// --- Expressions ---

func (ev *evaluator) evalExpr(expr ast.Expr) (value.Value, error) {
	switch e := expr.(type) {
	case *ast.Literal:
		return e.Value, nil

	case *ast.Grouping:
		return ev.evalExpr(e.Inner)

	case *ast.Variable:
		return ev.env.Get(e.Name)

	case *ast.Assign:
		val, err := ev.evalExpr(e.Value)
		if err != nil {
			return nil, err
		}
		if err := ev.env.Assign(e.Name, val); err != nil {
			return nil, err
		}
		return val, nil

	case *ast.Unary:
		return ev.evalUnary(e)

	case *ast.Logical:
		return ev.evalLogical(e)

	case *ast.Binary:
		return ev.evalBinary(e)

	default:
		return nil, &RuntimeError{
			Code:    diagnostics.EType,
			Message: fmt.Sprintf("unsupported expression type: %T", expr),
			Token:   token.New(token.EOF, "", expr.Line()),
		}
	}
}

func (ev *evaluator) evalUnary(e *ast.Unary) (value.Value, error) {
	right, err := ev.evalExpr(e.Right)
	if err != nil {
		return nil, err
	}
	switch e.Op.Kind {
	case token.Bang:
		return value.Not(right), nil
	case token.Minus:
		v, err := value.Negate(right)
		return v, operandError(err, e.Op)
	}
	return nil, unknownOperator(e.Op)
}

// evalLogical returns the deciding operand itself, not a Bool.
func (ev *evaluator) evalLogical(e *ast.Logical) (value.Value, error) {
	left, err := ev.evalExpr(e.Left)
	if err != nil {
		return nil, err
	}
	switch e.Op.Kind {
	case token.Or:
		if value.Truthy(left) {
			return left, nil
		}
	case token.And:
		if !value.Truthy(left) {
			return left, nil
		}
	default:
		return nil, unknownOperator(e.Op)
	}
	return ev.evalExpr(e.Right)
}

func (ev *evaluator) evalBinary(e *ast.Binary) (value.Value, error) {
	left, err := ev.evalExpr(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := ev.evalExpr(e.Right)
	if err != nil {
		return nil, err
	}

	var op func(a, b value.Value) (value.Value, error)
	switch e.Op.Kind {
	case token.Plus:
		op = value.Add
	case token.Minus:
		op = value.Sub
	case token.Star:
		op = value.Mul
	case token.Slash:
		op = value.Div
	case token.Greater:
		op = value.Greater
	case token.GreaterEqual:
		op = value.GreaterEqual
	case token.Less:
		op = value.Less
	case token.LessEqual:
		op = value.LessEqual
	case token.EqualEqual:
		return value.NewBool(value.Equal(left, right)), nil
	case token.BangEqual:
		return value.NewBool(!value.Equal(left, right)), nil
	default:
		return nil, unknownOperator(e.Op)
	}

	v, err := op(left, right)
	return v, operandError(err, e.Op)
}

// operandError attaches op to a value operator failure. It returns nil for
// a nil err.
func operandError(err error, op token.Token) error {
	if err == nil {
		return nil
	}
	return &RuntimeError{Code: diagnostics.EType, Message: err.Error(), Token: op}
}

func unknownOperator(op token.Token) *RuntimeError {
	return &RuntimeError{
		Code:    diagnostics.EType,
		Message: fmt.Sprintf("unknown operator %q", op.Lexeme),
		Token:   op,
	}
}
