// Package lexer implements the tokenizer.
package lexer

import (
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/thomasrohde/rlux/pkg/diagnostics"
	"github.com/thomasrohde/rlux/pkg/token"
	"github.com/thomasrohde/rlux/pkg/value"
)

const (
	msgUnexpectedChar     = "unexpected character"
	msgUnterminatedString = "unterminated string"
)

type scanner struct {
	source string
	start  int // byte offset of the current lexeme
	pos    int // byte offset of the next rune
	line   int
	tokens []token.Token
	diags  []diagnostics.Diagnostic
}

func newScanner(source string) *scanner {
	return &scanner{
		source: source,
		line:   1,
	}
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *scanner) peek() rune {
	if s.atEnd() {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(s.source[s.pos:])
	return r
}

func (s *scanner) peekNext() rune {
	if s.atEnd() {
		return 0
	}
	_, size := utf8.DecodeRuneInString(s.source[s.pos:])
	if s.pos+size >= len(s.source) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(s.source[s.pos+size:])
	return r
}

func (s *scanner) advance() rune {
	r, size := utf8.DecodeRuneInString(s.source[s.pos:])
	s.pos += size
	return r
}

// match consumes the next rune when it equals want.
func (s *scanner) match(want rune) bool {
	if s.atEnd() || s.peek() != want {
		return false
	}
	s.advance()
	return true
}

func (s *scanner) lexeme() string {
	return s.source[s.start:s.pos]
}

func (s *scanner) addToken(kind token.Kind) {
	s.addLiteral(kind, nil)
}

func (s *scanner) addLiteral(kind token.Kind, lit value.Value) {
	s.tokens = append(s.tokens, token.Token{
		Kind:    kind,
		Lexeme:  s.lexeme(),
		Literal: lit,
		Line:    s.line,
	})
}

func (s *scanner) lexError(line int, lexeme, msg string) {
	s.diags = append(s.diags, diagnostics.MakeDiag(diagnostics.ELex, msg, line, lexeme))
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsNumber(r)
}

// choose consumes a trailing '=' and returns two when present, one otherwise.
func (s *scanner) choose(two, one token.Kind) token.Kind {
	if s.match('=') {
		return two
	}
	return one
}

func (s *scanner) scanToken() {
	r := s.advance()
	switch r {
	case '(':
		s.addToken(token.LeftParen)
	case ')':
		s.addToken(token.RightParen)
	case '{':
		s.addToken(token.LeftBrace)
	case '}':
		s.addToken(token.RightBrace)
	case ',':
		s.addToken(token.Comma)
	case '.':
		s.addToken(token.Dot)
	case '-':
		s.addToken(token.Minus)
	case '+':
		s.addToken(token.Plus)
	case ';':
		s.addToken(token.Semicolon)
	case '*':
		s.addToken(token.Star)
	case '!':
		s.addToken(s.choose(token.BangEqual, token.Bang))
	case '=':
		s.addToken(s.choose(token.EqualEqual, token.Equal))
	case '<':
		s.addToken(s.choose(token.LessEqual, token.Less))
	case '>':
		s.addToken(s.choose(token.GreaterEqual, token.Greater))
	case '/':
		if s.match('/') {
			// Line comment; the newline is left for the main loop to count.
			for !s.atEnd() && s.peek() != '\n' {
				s.advance()
			}
			return
		}
		s.addToken(token.Slash)
	case ' ', '\r', '\t':
	case '\n':
		s.line++
	case '"':
		s.scanString()
	default:
		switch {
		case isDigit(r):
			s.scanNumber()
		case isIdentStart(r):
			s.scanIdentOrKeyword()
		default:
			s.lexError(s.line, s.lexeme(), msgUnexpectedChar)
		}
	}
}

func (s *scanner) scanString() {
	startLine := s.line
	for !s.atEnd() {
		switch s.peek() {
		case '"':
			s.advance() // closing quote
			lex := s.lexeme()
			s.addLiteral(token.String, value.NewString(lex[1:len(lex)-1]))
			return
		case '\n':
			lex := s.lexeme()
			s.advance()
			s.line++
			s.lexError(startLine, lex, msgUnterminatedString)
			return
		default:
			s.advance()
		}
	}
	s.lexError(startLine, s.lexeme(), msgUnterminatedString)
}

func (s *scanner) scanNumber() {
	for isDigit(s.peek()) {
		s.advance()
	}
	// A trailing '.' without a digit after it is not part of the number.
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.advance()
		for isDigit(s.peek()) {
			s.advance()
		}
	}
	// The lexeme is digits with an optional fraction, so the only possible
	// error is ErrRange, for which ParseFloat already returns ±Inf.
	n, _ := strconv.ParseFloat(s.lexeme(), 64)
	s.addLiteral(token.Number, value.NewNumber(n))
}

func (s *scanner) scanIdentOrKeyword() {
	for !s.atEnd() && isIdentPart(s.peek()) {
		s.advance()
	}
	kind := token.Lookup(s.lexeme())
	switch kind {
	case token.True:
		s.addLiteral(kind, value.NewBool(true))
	case token.False:
		s.addLiteral(kind, value.NewBool(false))
	case token.Nil:
		s.addLiteral(kind, value.NewNil())
	default:
		s.addToken(kind)
	}
}

// Scan breaks source into tokens. Scanning never stops early: unexpected
// characters and unterminated strings are reported as diagnostics and
// skipped. The returned slice always ends with exactly one EOF token.
func Scan(source string) ([]token.Token, []diagnostics.Diagnostic) {
	s := newScanner(source)
	for !s.atEnd() {
		s.start = s.pos
		s.scanToken()
	}
	s.tokens = append(s.tokens, token.New(token.EOF, "", s.line))
	return s.tokens, s.diags
}
