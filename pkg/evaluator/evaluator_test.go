package evaluator_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/thomasrohde/rlux/pkg/ast"
	"github.com/thomasrohde/rlux/pkg/diagnostics"
	"github.com/thomasrohde/rlux/pkg/evaluator"
	"github.com/thomasrohde/rlux/pkg/parser"
	"github.com/thomasrohde/rlux/pkg/token"
	"github.com/thomasrohde/rlux/pkg/value"
)

// --- helpers ---

// mustParse parses source, failing the test on lex or parse errors.
func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, diags := parser.ParseSource(src)
	if len(diags) > 0 {
		t.Fatalf("parse errors:\n%s", diagnostics.FormatDiagnostics(diags, diagnostics.FormatText))
	}
	return prog
}

// runWith parses and executes source with custom ExecOptions, returning
// everything printed.
func runWith(t *testing.T, src string, opts evaluator.ExecOptions) (string, *evaluator.ExecResult, error) {
	t.Helper()
	var out bytes.Buffer
	opts.Stdout = &out
	res, err := evaluator.Execute(context.Background(), mustParse(t, src), opts)
	return out.String(), res, err
}

// run parses and executes source with default options.
func run(t *testing.T, src string) (string, *evaluator.ExecResult) {
	t.Helper()
	out, res, err := runWith(t, src, evaluator.ExecOptions{})
	if err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}
	return out, res
}

// mustRun is like run but also fails on runtime errors.
func mustRun(t *testing.T, src string) string {
	t.Helper()
	out, res := run(t, src)
	if len(res.Diagnostics) > 0 {
		t.Fatalf("unexpected runtime errors:\n%s", diagnostics.FormatDiagnostics(res.Diagnostics, diagnostics.FormatText))
	}
	return out
}

// expectOutput asserts the printed lines.
func expectOutput(t *testing.T, got string, lines ...string) {
	t.Helper()
	want := ""
	if len(lines) > 0 {
		want = strings.Join(lines, "\n") + "\n"
	}
	if got != want {
		t.Errorf("got output %q, want %q", got, want)
	}
}

// expectErrors asserts the rendered runtime diagnostics.
func expectErrors(t *testing.T, res *evaluator.ExecResult, rendered ...string) {
	t.Helper()
	if len(res.Diagnostics) != len(rendered) {
		t.Fatalf("got %d runtime errors %v, want %d", len(res.Diagnostics), res.Diagnostics, len(rendered))
	}
	for i, d := range res.Diagnostics {
		if got := d.String(); got != rendered[i] {
			t.Errorf("error %d: got %q, want %q", i, got, rendered[i])
		}
	}
}

// eval evaluates a single expression statement against a fresh interpreter.
func eval(t *testing.T, src string) (value.Value, error) {
	t.Helper()
	prog := mustParse(t, src+";")
	es, ok := prog.Statements[0].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("expected ExprStmt, got %T", prog.Statements[0])
	}
	return evaluator.New(evaluator.ExecOptions{}).Evaluate(context.Background(), es.Expr)
}

func mustEval(t *testing.T, src string) value.Value {
	t.Helper()
	v, err := eval(t, src)
	if err != nil {
		t.Fatalf("unexpected error evaluating %q: %v", src, err)
	}
	return v
}

// --- Literals and printing ---

func TestPrint_CanonicalText(t *testing.T) {
	out := mustRun(t, `print 1; print 2.5; print "s"; print true; print false; print nil; print 10 / 4;`)
	expectOutput(t, out, "1", "2.5", `"s"`, "true", "false", "nil", "2.5")
}

func TestPrint_DivideByZero(t *testing.T) {
	out := mustRun(t, `print 1 / 0; print -1 / 0; print 0 / 0;`)
	expectOutput(t, out, "inf", "-inf", "NaN")
}

// --- Arithmetic and + dispatch ---

func TestArithmetic(t *testing.T) {
	tests := []struct {
		src  string
		want value.Value
	}{
		{"1 + 2", value.NewNumber(3)},
		{"7 - 10", value.NewNumber(-3)},
		{"3 * 4", value.NewNumber(12)},
		{"9 / 2", value.NewNumber(4.5)},
		{"1 + 2 * 3", value.NewNumber(7)},
		{"(1 + 2) * 3", value.NewNumber(9)},
		{"-(2 + 3)", value.NewNumber(-5)},
		{`"a" + "b"`, value.NewString("ab")},
		{`"" + ""`, value.NewString("")},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := mustEval(t, tt.src); !value.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGroupingIsIdempotent(t *testing.T) {
	grouped := mustEval(t, "(((1+2)))")
	plain := mustEval(t, "1+2")
	if !value.Equal(grouped, plain) {
		t.Errorf("(((1+2))) = %v, 1+2 = %v", grouped, plain)
	}
}

func TestOperandErrors(t *testing.T) {
	tests := []struct {
		src     string
		message string
		lexeme  string
	}{
		{`1 + "a"`, "operands must be both numbers or strings", "+"},
		{`nil + nil`, "operands must be both numbers or strings", "+"},
		{`"a" - 1`, "operands must be numbers", "-"},
		{`true * 2`, "operands must be numbers", "*"},
		{`1 / nil`, "operands must be numbers", "/"},
		{`"a" < "b"`, "operands must be numbers", "<"},
		{`1 >= false`, "operands must be numbers", ">="},
		{`-"x"`, "operand must be a number", "-"},
		{`-nil`, "operand must be a number", "-"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := eval(t, tt.src)
			var rte *evaluator.RuntimeError
			if !errors.As(err, &rte) {
				t.Fatalf("expected RuntimeError, got %v", err)
			}
			if rte.Code != diagnostics.EType {
				t.Errorf("got code %s, want E_TYPE", rte.Code)
			}
			if rte.Message != tt.message {
				t.Errorf("got message %q, want %q", rte.Message, tt.message)
			}
			if rte.Token.Lexeme != tt.lexeme {
				t.Errorf("got token %q, want %q", rte.Token.Lexeme, tt.lexeme)
			}
		})
	}
}

// --- Comparison and equality ---

func TestComparison(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"1 < 2", true},
		{"2 < 1", false},
		{"2 <= 2", true},
		{"3 > 2", true},
		{"2 >= 3", false},
		{"1 == 1", true},
		{"1 != 1", false},
		{`"a" == "a"`, true},
		{`"a" == "b"`, false},
		{"nil == nil", true},
		{"nil == false", false},
		{`1 == "1"`, false},
		{"0 == false", false},
		{"true != nil", true},
		{"0 / 0 == 0 / 0", false},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got := mustEval(t, tt.src)
			if !value.Equal(got, value.NewBool(tt.want)) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

// --- Truthiness and logic ---

func TestTruthiness(t *testing.T) {
	out := mustRun(t, `print !0; print !nil; print !""; print !false; print !true; print !!"x";`)
	expectOutput(t, out, "false", "true", "false", "true", "false", "true")
}

func TestTruthiness_InConditionals(t *testing.T) {
	out := mustRun(t, `
if (0) print "zero"; else print "no";
if ("") print "empty"; else print "no";
if (nil) print "nil"; else print "no";
if (false) print "false"; else print "no";
`)
	expectOutput(t, out, `"zero"`, `"empty"`, `"no"`, `"no"`)
}

func TestLogical_ShortCircuit(t *testing.T) {
	tests := []struct {
		src  string
		want value.Value
	}{
		{"false and (1/0 > 0)", value.NewBool(false)},
		{"true or (1/0 > 0)", value.NewBool(true)},
		{"false and undefinedName", value.NewBool(false)},
		{"true or undefinedName", value.NewBool(true)},
		{"nil and -\"x\"", value.NewNil()},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got := mustEval(t, tt.src)
			if !value.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogical_ReturnsOperand(t *testing.T) {
	out := mustRun(t, `print nil or "x"; print 1 and 2; print 0 or 3; print false or nil; print "a" and nil;`)
	expectOutput(t, out, `"x"`, "2", "0", "nil", "nil")
}

func TestLogical_RightSideErrorsWhenEvaluated(t *testing.T) {
	_, err := eval(t, "true and undefinedName")
	var rte *evaluator.RuntimeError
	if !errors.As(err, &rte) || rte.Code != diagnostics.EUndefined {
		t.Errorf("expected E_UNDEFINED, got %v", err)
	}
}

func TestBinary_EvaluatesBothSides(t *testing.T) {
	_, res := run(t, `var a = 0; false == (a = 1); print a;`)
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected errors %v", res.Diagnostics)
	}
	out := mustRun(t, `var a = 0; print (a = 1) + (a = a + 10); print a;`)
	expectOutput(t, out, "12", "11")
}

// --- Variables and scope ---

func TestVar_DefaultsToNil(t *testing.T) {
	expectOutput(t, mustRun(t, "var a; print a;"), "nil")
}

func TestVar_RedeclareOverwrites(t *testing.T) {
	expectOutput(t, mustRun(t, "var a = 1; var a = 2; print a;"), "2")
}

func TestVar_InitializerSeesOuterBinding(t *testing.T) {
	expectOutput(t, mustRun(t, "var a = 1; { var a = a + 1; print a; } print a;"), "2", "1")
}

func TestScope_Shadowing(t *testing.T) {
	out := mustRun(t, "var x = 1; { var x = 2; print x; } print x;")
	expectOutput(t, out, "2", "1")
}

func TestScope_AssignmentReachesOuter(t *testing.T) {
	out := mustRun(t, "var x = 1; { x = 2; } print x;")
	expectOutput(t, out, "2")
}

func TestScope_Nested(t *testing.T) {
	out := mustRun(t, `
var a = "global a";
var b = "global b";
{
  var a = "outer a";
  {
    var a = "inner a";
    print a;
    print b;
  }
  print a;
}
print a;
`)
	expectOutput(t, out, `"inner a"`, `"global b"`, `"outer a"`, `"global a"`)
}

func TestScope_BlockLocalsDoNotLeak(t *testing.T) {
	out, res := run(t, "{ var inner = 1; } print inner;")
	expectOutput(t, out)
	expectErrors(t, res, "[line 1] at 'inner': undefined variable")
}

func TestAssign_ReturnsValue(t *testing.T) {
	expectOutput(t, mustRun(t, "var a; var b; a = b = 3; print a; print b; print a = 4;"), "3", "3", "4")
}

func TestAssign_UndefinedDoesNotCreate(t *testing.T) {
	out, res := run(t, "x = 1;\nprint x;")
	expectOutput(t, out)
	expectErrors(t, res,
		"[line 1] at 'x': undefined variable",
		"[line 2] at 'x': undefined variable",
	)
}

// --- Runtime error recovery ---

func TestUndefinedVariable_SingleError(t *testing.T) {
	out, res := run(t, "print y;")
	expectOutput(t, out)
	expectErrors(t, res, "[line 1] at 'y': undefined variable")
	if res.Diagnostics[0].Code != diagnostics.EUndefined {
		t.Errorf("got code %s, want E_UNDEFINED", res.Diagnostics[0].Code)
	}
	if res.Executed != 0 {
		t.Errorf("got %d executed statements, want 0", res.Executed)
	}
}

func TestRuntimeError_ContinuesWithNextStatement(t *testing.T) {
	out, res := run(t, "print 1;\nprint 1 + \"a\";\nprint 3;")
	expectOutput(t, out, "1", "3")
	expectErrors(t, res, "[line 2] at '+': operands must be both numbers or strings")
	if res.Executed != 2 {
		t.Errorf("got %d executed statements, want 2", res.Executed)
	}
}

func TestRuntimeError_AbortsRestOfStatement(t *testing.T) {
	out, res := run(t, "{ print 1; print -nil; print 2; }\nprint 3;")
	expectOutput(t, out, "1", "3")
	expectErrors(t, res, "[line 1] at '-': operand must be a number")
}

func TestRuntimeError_RestoresScope(t *testing.T) {
	out, res := run(t, "var a = \"outer\";\n{ var a = \"inner\"; { var a = 1; missing; } }\nprint a;")
	expectOutput(t, out, `"outer"`)
	expectErrors(t, res, "[line 2] at 'missing': undefined variable")
}

func TestRuntimeError_Report(t *testing.T) {
	var reported []diagnostics.Diagnostic
	_, res, err := runWith(t, "print a; print b;", evaluator.ExecOptions{
		Report: func(d diagnostics.Diagnostic) { reported = append(reported, d) },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reported) != 2 || len(res.Diagnostics) != 2 {
		t.Fatalf("got %d reported, %d collected, want 2 each", len(reported), len(res.Diagnostics))
	}
	if reported[1].Lexeme != "b" {
		t.Errorf("got lexeme %q, want b", reported[1].Lexeme)
	}
}

// --- Control flow ---

func TestIf(t *testing.T) {
	out := mustRun(t, `
if (1 < 2) print "then"; else print "else";
if (1 > 2) print "then"; else print "else";
if (false) print "skipped";
if (true) { print "block"; }
`)
	expectOutput(t, out, `"then"`, `"else"`, `"block"`)
}

func TestWhile(t *testing.T) {
	out := mustRun(t, "var i = 0; while (i < 3) { print i; i = i + 1; } print i;")
	expectOutput(t, out, "0", "1", "2", "3")
}

func TestWhile_FalseNeverRuns(t *testing.T) {
	expectOutput(t, mustRun(t, "while (nil) print 1;"))
}

func TestFor(t *testing.T) {
	out, res := run(t, "for (var i = 0; i < 3; i = i + 1) print i;\nprint i;")
	expectOutput(t, out, "0", "1", "2")
	expectErrors(t, res, "[line 2] at 'i': undefined variable")
}

func TestFor_ExistingVariable(t *testing.T) {
	out := mustRun(t, "var i = 10; for (i = 0; i < 2; i = i + 1) {} print i;")
	expectOutput(t, out, "2")
}

func TestFor_Fibonacci(t *testing.T) {
	out := mustRun(t, `
var a = 0;
var temp;
for (var b = 1; a < 50; b = temp + b) {
  print a;
  temp = a;
  a = b;
}
`)
	expectOutput(t, out, "0", "1", "1", "2", "3", "5", "8", "13", "21", "34")
}

// --- Budgets ---

func TestBudget_MaxIterations(t *testing.T) {
	out, res, err := runWith(t, "print 1;\nwhile (true) {}\nprint 2;", evaluator.ExecOptions{
		Budget: evaluator.Budget{MaxIterations: 10},
	})
	var rte *evaluator.RuntimeError
	if !errors.As(err, &rte) {
		t.Fatalf("expected RuntimeError, got %v", err)
	}
	if rte.Code != diagnostics.EBudget {
		t.Errorf("got code %s, want E_BUDGET", rte.Code)
	}
	if rte.Token.Kind != token.While || rte.Token.Line != 2 {
		t.Errorf("expected error at 'while' on line 2, got %v line %d", rte.Token, rte.Token.Line)
	}
	expectOutput(t, out, "1")
	if !diagnostics.HasCode(res.Diagnostics, diagnostics.EBudget) {
		t.Error("expected E_BUDGET in diagnostics")
	}
}

func TestBudget_IterationsAreCountedAcrossLoops(t *testing.T) {
	out, _, err := runWith(t, "var i = 0; while (i < 3) i = i + 1; print i; while (i < 10) i = i + 1; print i;",
		evaluator.ExecOptions{Budget: evaluator.Budget{MaxIterations: 5}})
	if err == nil {
		t.Fatal("expected budget error")
	}
	expectOutput(t, out, "3")
}

func TestBudget_WithinLimit(t *testing.T) {
	out, _, err := runWith(t, "var i = 0; while (i < 3) i = i + 1; print i;", evaluator.ExecOptions{
		Budget: evaluator.Budget{MaxIterations: 3},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectOutput(t, out, "3")
}

func TestBudget_Timeout(t *testing.T) {
	_, _, err := runWith(t, "while (true) {}", evaluator.ExecOptions{
		Budget: evaluator.Budget{Timeout: 20 * time.Millisecond},
	})
	var rte *evaluator.RuntimeError
	if !errors.As(err, &rte) {
		t.Fatalf("expected RuntimeError, got %v", err)
	}
	if rte.Code != diagnostics.EBudget {
		t.Errorf("got code %s, want E_BUDGET", rte.Code)
	}
	if !strings.Contains(rte.Message, "time budget exceeded") {
		t.Errorf("unexpected message %q", rte.Message)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := evaluator.Execute(ctx, mustParse(t, "print 1;"), evaluator.ExecOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res.Executed != 0 {
		t.Errorf("expected nothing executed, got %d", res.Executed)
	}
}

// --- Interpreter state ---

func TestInterpreter_GlobalsPersistAcrossRuns(t *testing.T) {
	var out bytes.Buffer
	in := evaluator.New(evaluator.ExecOptions{Stdout: &out})
	ctx := context.Background()

	for _, src := range []string{"var a = 1;", "a = a + 1;", "print a;"} {
		res, err := in.Execute(ctx, mustParse(t, src))
		if err != nil || len(res.Diagnostics) > 0 {
			t.Fatalf("%q: err=%v diags=%v", src, err, res.Diagnostics)
		}
	}
	expectOutput(t, out.String(), "2")

	if _, ok := in.Globals().Lookup("a"); !ok {
		t.Error("expected a in globals")
	}
}

func TestInterpreter_SeparateInstancesShareNothing(t *testing.T) {
	a := evaluator.New(evaluator.ExecOptions{})
	b := evaluator.New(evaluator.ExecOptions{})
	if _, err := a.Execute(context.Background(), mustParse(t, "var x = 1;")); err != nil {
		t.Fatal(err)
	}
	if _, ok := b.Globals().Lookup("x"); ok {
		t.Error("x leaked into a separate interpreter")
	}
}

// --- Output sink ---

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }

func TestPrint_WriteFailure(t *testing.T) {
	res, err := evaluator.Execute(context.Background(), mustParse(t, "print 1;"), evaluator.ExecOptions{
		Stdout: failingWriter{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !diagnostics.HasCode(res.Diagnostics, diagnostics.EIO) {
		t.Errorf("expected E_IO, got %v", res.Diagnostics)
	}
}

// --- Trace and logging ---

func TestTrace_Events(t *testing.T) {
	var events []evaluator.TraceEvent
	_, _, err := runWith(t, "print 1; { var a = 2; } print b;", evaluator.ExecOptions{
		RunID: "run-1",
		Trace: func(ev evaluator.TraceEvent) { events = append(events, ev) },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("expected trace events")
	}
	if events[0].Event != evaluator.TraceRunStart {
		t.Errorf("first event = %s, want run_start", events[0].Event)
	}
	if events[len(events)-1].Event != evaluator.TraceRunEnd {
		t.Errorf("last event = %s, want run_end", events[len(events)-1].Event)
	}

	counts := map[evaluator.TraceEventType]int{}
	for _, ev := range events {
		counts[ev.Event]++
		if ev.RunID != "run-1" {
			t.Errorf("event %s has runId %q", ev.Event, ev.RunID)
		}
	}
	if counts[evaluator.TraceScopePush] != 1 || counts[evaluator.TraceScopePop] != 1 {
		t.Errorf("unbalanced scopes: %v", counts)
	}
	if counts[evaluator.TracePrint] != 1 {
		t.Errorf("got %d print events, want 1", counts[evaluator.TracePrint])
	}
	if counts[evaluator.TraceRuntimeError] != 1 {
		t.Errorf("got %d runtime_error events, want 1", counts[evaluator.TraceRuntimeError])
	}
}

func TestTrace_BudgetExceeded(t *testing.T) {
	var sawBudget bool
	runWith(t, "while (true) {}", evaluator.ExecOptions{
		Budget: evaluator.Budget{MaxIterations: 1},
		Trace: func(ev evaluator.TraceEvent) {
			if ev.Event == evaluator.TraceBudgetExceeded {
				sawBudget = true
			}
		},
	})
	if !sawBudget {
		t.Error("expected a budget_exceeded event")
	}
}

func TestLogger_ScopeDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	mustParseAndRun := func() {
		_, _, err := runWith(t, "{ { print 1; } }", evaluator.ExecOptions{Logger: logger})
		if err != nil {
			t.Fatal(err)
		}
	}
	mustParseAndRun()

	logs := buf.String()
	if strings.Count(logs, "scope push") != 2 || strings.Count(logs, "scope pop") != 2 {
		t.Errorf("expected two scope push/pop pairs, got:\n%s", logs)
	}
	if !strings.Contains(logs, "depth=2") {
		t.Errorf("expected nested depth in logs, got:\n%s", logs)
	}
}
