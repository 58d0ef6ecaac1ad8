// Package help holds the text shown by the rlux help command.
package help

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thomasrohde/rlux/pkg/token"
)

// Version is the language version shown in the quick reference.
const Version = "v0.1"

// QUICKREF is printed by `rlux help` with no topic.
var QUICKREF = `rlux ` + Version + ` - a small Lox interpreter

USAGE
  rlux                      start the REPL
  rlux <file>               run a script
  rlux run <file>           run a script
  rlux check <file>         report lex and parse errors without running
  rlux fmt [--write] <file> print the canonical form of a script
  rlux tokens [--json] <file>
  rlux trace <trace.ndjson> summarize a trace written by --trace
  rlux config               print the effective settings
  rlux help [topic]         show this text or a topic

LANGUAGE AT A GLANCE
  var x = 1;                declaration
  x = x + 1;                assignment
  print x;                  output
  { var x = 2; }            block with its own scope
  if (c) a; else b;         conditional
  while (c) body;           loop
  for (init; cond; incr) s; loop, rewritten to while

TOPICS
  syntax       grammar and tokens
  types        values, truthiness, operators
  scopes       blocks, shadowing, assignment
  flow         if, while, for
  diagnostics  error format and codes
  config       .rlux.yaml settings
  budget       iteration and time limits
  examples     small programs

Run 'rlux help <topic>' for details. Topic names may be abbreviated.
`

// Topics maps a topic name to its help text.
var Topics = map[string]string{
	"syntax": `SYNTAX

program    → declaration* EOF
declaration→ varDecl | statement
varDecl    → "var" IDENTIFIER ( "=" expression )? ";"
statement  → exprStmt | printStmt | block | ifStmt | whileStmt | forStmt
expression → assignment
assignment → IDENTIFIER "=" assignment | logic_or
logic_or   → logic_and ( "or" logic_and )*
logic_and  → equality ( "and" equality )*
equality   → comparison ( ( "!=" | "==" ) comparison )*
comparison → term ( ( ">" | ">=" | "<" | "<=" ) term )*
term       → factor ( ( "-" | "+" ) factor )*
factor     → unary ( ( "/" | "*" ) unary )*
unary      → ( "!" | "-" ) unary | primary
primary    → NUMBER | STRING | "true" | "false" | "nil"
           | "(" expression ")" | IDENTIFIER

Comments run from // to the end of the line.
Strings are delimited by double quotes and may not span lines.
Numbers are decimal: 12, 3.5. A trailing dot is not part of a number.
`,
	"types": `TYPES

nil      the absence of a value
boolean  true, false
number   64-bit float, printed without a trailing .0
string   text, printed with its quotes

Only nil and false are falsy. 0 and "" are truthy.

+   adds two numbers or concatenates two strings
- * /  need two numbers; division by zero gives inf, -inf or NaN
< <= > >=  need two numbers
== !=  never fail; values of different types are unequal
and or  return the operand that decided the result
`,
	"scopes": `SCOPES

Every block opens a new scope. A declaration binds in the innermost scope
and may shadow an outer name. Redeclaring a name in the same scope replaces
its value.

Assignment walks outward to the nearest scope that declares the name and
never creates a binding. Reading or assigning an undeclared name is the
runtime error "undefined variable".

  var x = 1;
  { var x = 2; print x; }   // 2
  { x = 3; }
  print x;                  // 3
`,
	"flow": `CONTROL FLOW

if (cond) then-stmt else else-stmt
  else binds to the nearest if.

while (cond) body
  cond is checked before every iteration.

for (init; cond; incr) body
  is rewritten to
  { init; while (cond) { body; incr; } }
  Every clause is optional; a missing cond loops forever.
  A variable declared in init is not visible after the loop.
`,
	"diagnostics": `DIAGNOSTICS

Every error is printed as
  [line N] at 'lexeme': message
or, when the problem is at the end of input,
  [line N] at end: message

Codes (shown with --json):
  E_LEX        unexpected character, unterminated string
  E_PARSE      grammar error; parsing resumes at the next statement
  E_UNDEFINED  undefined variable
  E_TYPE       operand must be a number, operands mismatch
  E_BUDGET     iteration or time budget exceeded
  E_IO         output could not be written
  E_CONFIG     invalid settings file

Exit codes: 0 ok, 64 usage, 65 lex or parse error, 70 runtime error,
74 I/O error.
`,
	"config": `CONFIG

Settings are read from the first file found:
  ./.rlux.yaml
  ~/.rlux/config.yaml
or from the file given with --config.

  diagnostics: text          # text | json
  prompt: "> "               # REPL prompt
  log_level: warn            # debug | info | warn | error
  run_on_parse_error: true   # run the declarations that parsed
  budget:
    max_iterations: 0        # 0 = unbounded
    timeout_ms: 0            # 0 = unbounded

Unknown keys are rejected.
`,
	"budget": `BUDGET

Loops can be limited so that a runaway script stops with E_BUDGET.

  max_iterations  total while iterations across the whole run
  timeout_ms      wall-clock limit for the run

The error is reported at the 'while' keyword of the loop that ran out.
`,
	"examples": `EXAMPLES

Fibonacci:
  var a = 0;
  var b = 1;
  for (var i = 0; i < 10; i = i + 1) {
    print a;
    var t = a + b;
    a = b;
    b = t;
  }

Short-circuit:
  print nil or "default";   // "default"
  print false and y;        // false, y is never read

Shadowing:
  var x = "outer";
  { var x = "inner"; print x; }
  print x;
`,
}

// TopicList is the display order of Topics.
var TopicList = []string{"syntax", "types", "scopes", "flow", "diagnostics", "config", "budget", "examples"}

// MatchTopic resolves name to a topic, accepting a unique prefix.
func MatchTopic(name string) (string, string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if content, ok := Topics[name]; ok {
		return name, content, nil
	}
	if name == "" {
		return "", "", fmt.Errorf("empty topic name")
	}

	var matches []string
	for _, topic := range TopicList {
		if strings.HasPrefix(topic, name) {
			matches = append(matches, topic)
		}
	}
	switch len(matches) {
	case 0:
		return "", "", fmt.Errorf("unknown help topic %q", name)
	case 1:
		return matches[0], Topics[matches[0]], nil
	}
	return "", "", fmt.Errorf("ambiguous help topic %q: matches %s", name, strings.Join(matches, ", "))
}

// keywordRoles classifies keywords for KeywordIndex. Words missing here are
// reserved for future use.
var keywordRoles = map[string]string{
	"and":   "operator",
	"or":    "operator",
	"true":  "literal",
	"false": "literal",
	"nil":   "literal",
	"var":   "declaration",
	"print": "statement",
	"if":    "statement",
	"else":  "statement",
	"while": "statement",
	"for":   "statement",
}

// KeywordIndex lists every reserved word grouped by role.
func KeywordIndex() string {
	groups := make(map[string][]string)
	words := token.Keywords()
	for _, w := range words {
		role, ok := keywordRoles[w]
		if !ok {
			role = "reserved"
		}
		groups[role] = append(groups[role], w)
	}

	roles := make([]string, 0, len(groups))
	for r := range groups {
		roles = append(roles, r)
	}
	sort.Strings(roles)

	var b strings.Builder
	for _, r := range roles {
		fmt.Fprintf(&b, "%-12s %s\n", r, strings.Join(groups[r], ", "))
	}
	fmt.Fprintf(&b, "\nTotal: %d keywords\n", len(words))
	return b.String()
}
