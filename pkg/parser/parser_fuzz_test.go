package parser_test

import (
	"testing"

	"github.com/thomasrohde/rlux/pkg/parser"
)

// FuzzParse feeds random inputs to the parser to catch panics.
// The parser must never panic and must always return a program, reporting
// bad input as diagnostics.
func FuzzParse(f *testing.F) {
	seeds := []string{
		// Minimal valid programs
		`print 1;`,
		`var x = 1; print x;`,
		`var x;`,
		// Blocks and scopes
		`var a = 1; { var a = 2; print a; } print a;`,
		// Control flow
		`if (true) print 1; else print 2;`,
		`var i = 0; while (i < 3) i = i + 1;`,
		`for (var i = 0; i < 3; i = i + 1) print i;`,
		`for (;;) {}`,
		// Logic
		`print nil or "x" and false;`,
		`print !(1 == 2) != true;`,
		// Errors
		`print 1`,
		`var = 2;`,
		`1 = 2;`,
		`{ print 1;`,
		`((((`,
		`))))`,
		`}}}`,
		`for (`,
		`if (a`,
		`print "unterminated`,
		`@ # $`,
		`class fun return super this`,
		``,
		`;;;;`,
	}

	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("ParseSource panicked on input %q: %v", input, r)
				}
			}()
			prog, _ := parser.ParseSource(input)
			if prog == nil {
				t.Fatalf("ParseSource returned a nil program for %q", input)
			}
		}()
	})
}
