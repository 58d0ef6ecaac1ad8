// Package runtime provides the top-level orchestrator that wires the lexer,
// parser and evaluator to output and diagnostic sinks.
package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/thomasrohde/rlux/pkg/config"
	"github.com/thomasrohde/rlux/pkg/diagnostics"
	"github.com/thomasrohde/rlux/pkg/evaluator"
	"github.com/thomasrohde/rlux/pkg/formatter"
	"github.com/thomasrohde/rlux/pkg/lexer"
	"github.com/thomasrohde/rlux/pkg/parser"
	"github.com/thomasrohde/rlux/pkg/token"
)

// Process exit codes, following the sysexits convention.
const (
	ExitOK       = 0
	ExitUsage    = 64
	ExitSyntax   = 65
	ExitRuntime  = 70
	ExitIOFailed = 74
)

// Result holds the outcome of one Run.
type Result struct {
	// Diagnostics lists every problem reported, in reporting order.
	Diagnostics []diagnostics.Diagnostic
	// SyntaxErrors counts lex and parse diagnostics.
	SyntaxErrors int
	// RuntimeErrors counts evaluation diagnostics.
	RuntimeErrors int
	// Executed counts the top-level statements that completed.
	Executed int
}

// ExitCode maps the result to a process exit status. Syntax errors take
// precedence over runtime errors.
func (r *Result) ExitCode() int {
	switch {
	case r == nil:
		return ExitOK
	case r.SyntaxErrors > 0:
		return ExitSyntax
	case r.RuntimeErrors > 0:
		return ExitRuntime
	}
	return ExitOK
}

// Runtime wires together all components for program execution. Globals
// persist across Run calls on the same Runtime.
type Runtime struct {
	stdout          io.Writer
	stderr          io.Writer
	logger          *slog.Logger
	format          diagnostics.Format
	budget          evaluator.Budget
	runOnParseError bool
	runID           string
	trace           func(event evaluator.TraceEvent)
	interp          *evaluator.Interpreter
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithStdout sets the sink for print statements.
func WithStdout(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.stdout = w
	}
}

// WithStderr sets the sink for diagnostics.
func WithStderr(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.stderr = w
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = l
	}
}

// WithDiagnosticFormat selects text or JSON diagnostics.
func WithDiagnosticFormat(f diagnostics.Format) Option {
	return func(rt *Runtime) {
		rt.format = f
	}
}

// WithBudget sets the execution limits.
func WithBudget(b evaluator.Budget) Option {
	return func(rt *Runtime) {
		rt.budget = b
	}
}

// WithRunOnParseError controls whether statements that parsed cleanly are
// executed when other declarations in the same source failed.
func WithRunOnParseError(on bool) Option {
	return func(rt *Runtime) {
		rt.runOnParseError = on
	}
}

// WithConfig applies file-based settings.
func WithConfig(cfg *config.Config) Option {
	return func(rt *Runtime) {
		rt.format = cfg.DiagnosticFormat()
		rt.budget = cfg.ExecBudget()
		rt.runOnParseError = cfg.RunOnParseError
	}
}

// WithRunID sets the run ID for trace events.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event evaluator.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// New creates a new Runtime with the given options.
// By default output and diagnostics are discarded, diagnostics render as
// text, and parsed statements run even when others failed to parse.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		stdout:          io.Discard,
		stderr:          io.Discard,
		format:          diagnostics.FormatText,
		runOnParseError: true,
		runID:           "cli",
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.logger == nil {
		rt.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	rt.interp = evaluator.New(evaluator.ExecOptions{
		Stdout: rt.stdout,
		Report: rt.report,
		Logger: rt.logger,
		Budget: rt.budget,
		Trace:  rt.trace,
		RunID:  rt.runID,
	})
	return rt
}

func (rt *Runtime) report(d diagnostics.Diagnostic) {
	fmt.Fprintln(rt.stderr, diagnostics.FormatDiagnostic(d, rt.format))
}

// Run scans, parses and executes source. Lex and parse diagnostics are
// reported first, then runtime diagnostics as they occur. The returned
// error is non-nil only when the run was cut short by the budget or by ctx;
// ordinary runtime errors are recorded in the Result.
func (rt *Runtime) Run(ctx context.Context, source, filename string) (*Result, error) {
	tokens, lexDiags := lexer.Scan(source)
	program, parseDiags := parser.Parse(tokens)
	syntax := append(lexDiags, parseDiags...)

	res := &Result{SyntaxErrors: len(syntax)}
	for _, d := range syntax {
		rt.report(d)
	}
	res.Diagnostics = append(res.Diagnostics, syntax...)

	rt.logger.Debug("parsed",
		"file", filename,
		"tokens", len(tokens),
		"statements", len(program.Statements),
		"diagnostics", len(syntax),
	)

	if len(syntax) > 0 && !rt.runOnParseError {
		return res, nil
	}

	execRes, err := rt.interp.Execute(ctx, program)
	if execRes != nil {
		res.Diagnostics = append(res.Diagnostics, execRes.Diagnostics...)
		res.RuntimeErrors = len(execRes.Diagnostics)
		res.Executed = execRes.Executed
	}
	if err != nil {
		rt.logger.Debug("run stopped", "file", filename, "error", err)
		return res, err
	}
	return res, nil
}

// Check scans and parses source without executing it.
func (rt *Runtime) Check(source string) []diagnostics.Diagnostic {
	_, diags := parser.ParseSource(source)
	return diags
}

// Tokens scans source.
func (rt *Runtime) Tokens(source string) ([]token.Token, []diagnostics.Diagnostic) {
	return lexer.Scan(source)
}

// Format parses and formats a program.
func (rt *Runtime) Format(source string) (string, error) {
	program, diags := parser.ParseSource(source)
	if len(diags) > 0 {
		return "", &DiagnosticError{Diagnostics: diags}
	}
	if formatter.HasComments(source) {
		rt.logger.Warn("comments are not preserved by the formatter")
	}
	return formatter.Format(program), nil
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.String())
	}
	return strings.Join(msgs, "; ")
}
