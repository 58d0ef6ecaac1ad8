package diagnostics_test

import (
	"strings"
	"testing"

	"github.com/thomasrohde/rlux/pkg/diagnostics"
)

func TestMakeDiag(t *testing.T) {
	d := diagnostics.MakeDiag(diagnostics.EParse, "expected ';'", 3, "print")

	if d.Code != diagnostics.EParse {
		t.Errorf("got Code = %q, want %q", d.Code, diagnostics.EParse)
	}
	if d.Message != "expected ';'" {
		t.Errorf("got Message = %q, want %q", d.Message, "expected ';'")
	}
	if d.AtEnd {
		t.Error("expected AtEnd to be false")
	}
}

func TestFormatDiagnosticText(t *testing.T) {
	d := diagnostics.MakeDiag(diagnostics.EUndefined, "undefined variable", 7, "y")
	got := diagnostics.FormatDiagnostic(d, diagnostics.FormatText)
	want := "[line 7] at 'y': undefined variable"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatDiagnosticAtEnd(t *testing.T) {
	d := diagnostics.MakeEndDiag(diagnostics.EParse, "expected ';'", 2)
	got := diagnostics.FormatDiagnostic(d, diagnostics.FormatText)
	want := "[line 2] at end: expected ';'"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatDiagnosticJSON(t *testing.T) {
	d := diagnostics.MakeDiag(diagnostics.ELex, "unexpected character", 1, "@")
	out := diagnostics.FormatDiagnostic(d, diagnostics.FormatJSON)
	if !strings.Contains(out, `"code":"E_LEX"`) {
		t.Errorf("expected JSON code in output, got: %s", out)
	}
	if !strings.Contains(out, `"lexeme":"@"`) {
		t.Errorf("expected JSON lexeme in output, got: %s", out)
	}
}

func TestFormatDiagnostics(t *testing.T) {
	diags := []diagnostics.Diagnostic{
		diagnostics.MakeDiag(diagnostics.EParse, "a", 1, "x"),
		diagnostics.MakeEndDiag(diagnostics.EParse, "b", 2),
	}
	got := diagnostics.FormatDiagnostics(diags, diagnostics.FormatText)
	want := "[line 1] at 'x': a\n[line 2] at end: b"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if !diagnostics.HasCode(diags, diagnostics.EParse) {
		t.Error("expected HasCode to find E_PARSE")
	}
	if diagnostics.HasCode(diags, diagnostics.ELex) {
		t.Error("did not expect E_LEX")
	}
}

func TestParseFormat(t *testing.T) {
	for _, in := range []string{"", "text", "json"} {
		if _, err := diagnostics.ParseFormat(in); err != nil {
			t.Errorf("ParseFormat(%q) returned %v", in, err)
		}
	}
	if _, err := diagnostics.ParseFormat("pretty"); err == nil {
		t.Error("expected error for unknown format")
	}
}
