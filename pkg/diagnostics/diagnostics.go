// Package diagnostics defines the lex, parse, and runtime diagnostics
// reported by the interpreter.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Diagnostic code constants.
const (
	ELex       = "E_LEX"
	EParse     = "E_PARSE"
	EUndefined = "E_UNDEFINED"
	EType      = "E_TYPE"
	EBudget    = "E_BUDGET"
	EIO        = "E_IO"
	EConfig    = "E_CONFIG"
)

// Format selects how diagnostics are rendered.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatJSON:
		return Format(s), nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown diagnostics format %q (want text or json)", s)
}

// Diagnostic represents a lex, parse, or runtime diagnostic.
type Diagnostic struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line"`
	Lexeme  string `json:"lexeme,omitempty"`
	// AtEnd is set when the offending token is the end of input.
	AtEnd bool `json:"atEnd,omitempty"`
}

// MakeDiag creates a new Diagnostic located at lexeme on line.
func MakeDiag(code, message string, line int, lexeme string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Line:    line,
		Lexeme:  lexeme,
	}
}

// MakeEndDiag creates a Diagnostic located at the end of input.
func MakeEndDiag(code, message string, line int) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Line:    line,
		AtEnd:   true,
	}
}

// Location renders the "at ..." part of the text form.
func (d Diagnostic) Location() string {
	if d.AtEnd {
		return "at end"
	}
	return fmt.Sprintf("at '%s'", d.Lexeme)
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[line %d] %s: %s", d.Line, d.Location(), d.Message)
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, format Format) string {
	if format == FormatJSON {
		b, _ := json.Marshal(d)
		return string(b)
	}
	return d.String()
}

// FormatDiagnostics formats a slice of diagnostics, one per line.
func FormatDiagnostics(diags []Diagnostic, format Format) string {
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, format)
	}
	return strings.Join(parts, "\n")
}

// HasCode reports whether any diagnostic in diags carries code.
func HasCode(diags []Diagnostic, code string) bool {
	for _, d := range diags {
		if d.Code == code {
			return true
		}
	}
	return false
}
