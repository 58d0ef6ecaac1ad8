// Command rlux is the CLI entry point for the rlux interpreter.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/thomasrohde/rlux/pkg/config"
	"github.com/thomasrohde/rlux/pkg/diagnostics"
	"github.com/thomasrohde/rlux/pkg/evaluator"
	"github.com/thomasrohde/rlux/pkg/help"
	"github.com/thomasrohde/rlux/pkg/runtime"
	"github.com/thomasrohde/rlux/pkg/value"
)

const usage = `usage: rlux [--config <file>] [--json] [--trace <file>] [command | script]
commands: run, repl, check, fmt, tokens, trace, config, help`

func main() {
	c := &cli{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	os.Exit(c.main(os.Args[1:]))
}

// cli carries the process streams so commands can be driven from tests.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
	jsonDiags  bool
	tracePath  string

	cfg    *config.Config
	logger *slog.Logger
}

func (c *cli) main(args []string) int {
	rest, ok := c.parseGlobalFlags(args)
	if !ok {
		fmt.Fprintln(c.stderr, usage)
		return runtime.ExitUsage
	}

	if err := c.loadConfig(); err != nil {
		fmt.Fprintf(c.stderr, "error: %s\n", err)
		return runtime.ExitUsage
	}

	if len(rest) == 0 {
		return c.cmdRepl(nil)
	}

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "run":
		return c.cmdRun(cmdArgs)
	case "repl":
		return c.cmdRepl(cmdArgs)
	case "check":
		return c.cmdCheck(cmdArgs)
	case "fmt":
		return c.cmdFmt(cmdArgs)
	case "tokens":
		return c.cmdTokens(cmdArgs)
	case "trace":
		return c.cmdTrace(cmdArgs)
	case "config":
		return c.cmdConfig(cmdArgs)
	case "help", "--help", "-h":
		return c.cmdHelp(cmdArgs)
	}

	if strings.HasPrefix(cmd, "-") && cmd != "-" {
		fmt.Fprintf(c.stderr, "unknown flag: %s\n%s\n", cmd, usage)
		return runtime.ExitUsage
	}
	// rlux <script>
	if len(rest) > 1 {
		fmt.Fprintln(c.stderr, "usage: rlux [script]")
		return runtime.ExitUsage
	}
	return c.cmdRun(rest)
}

// parseGlobalFlags strips --config, --json and --trace from args wherever
// they appear and returns the remaining arguments.
func (c *cli) parseGlobalFlags(args []string) ([]string, bool) {
	var rest []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			if i+1 >= len(args) {
				return nil, false
			}
			i++
			c.configPath = args[i]
		case "--json":
			c.jsonDiags = true
		case "--trace":
			if i+1 >= len(args) {
				return nil, false
			}
			i++
			c.tracePath = args[i]
		default:
			rest = append(rest, args[i])
		}
	}
	return rest, true
}

func (c *cli) loadConfig() error {
	var err error
	if c.configPath != "" {
		c.cfg, err = config.LoadFile(c.configPath)
	} else {
		cwd, _ := os.Getwd()
		c.cfg, err = config.Load(cwd)
	}
	if err != nil {
		return err
	}
	if c.jsonDiags {
		c.cfg.Diagnostics = string(diagnostics.FormatJSON)
	}
	c.logger = slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: c.cfg.Level()}))
	if c.cfg.Path != "" {
		c.logger.Debug("config loaded", "path", c.cfg.Path)
	}
	return nil
}

func (c *cli) newRuntime(runID string, extra ...runtime.Option) *runtime.Runtime {
	opts := []runtime.Option{
		runtime.WithConfig(c.cfg),
		runtime.WithStdout(c.stdout),
		runtime.WithStderr(c.stderr),
		runtime.WithLogger(c.logger),
		runtime.WithRunID(runID),
	}
	return runtime.New(append(opts, extra...)...)
}

func (c *cli) format() diagnostics.Format {
	return c.cfg.DiagnosticFormat()
}

func (c *cli) cmdRun(args []string) int {
	file := firstPositional(args)
	if file == "" {
		fmt.Fprintln(c.stderr, "usage: rlux run <file|->")
		return runtime.ExitUsage
	}

	source, filename, code := c.readSource(file)
	if code != runtime.ExitOK {
		return code
	}

	var extra []runtime.Option
	if c.tracePath != "" {
		f, err := os.Create(c.tracePath)
		if err != nil {
			fmt.Fprintf(c.stderr, "error: cannot create trace file: %s\n", err)
			return runtime.ExitIOFailed
		}
		defer f.Close()
		enc := json.NewEncoder(f)
		extra = append(extra, runtime.WithTrace(func(ev evaluator.TraceEvent) {
			if err := enc.Encode(ev); err != nil {
				c.logger.Warn("trace write failed", "error", err)
			}
		}))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runID := fmt.Sprintf("run-%d", time.Now().UnixNano())
	rt := c.newRuntime(runID, extra...)
	res, err := rt.Run(ctx, source, filename)
	if err != nil {
		var rte *evaluator.RuntimeError
		if !errors.As(err, &rte) {
			// Reported diagnostics already cover budget errors.
			fmt.Fprintf(c.stderr, "error: %s\n", err)
			return runtime.ExitRuntime
		}
	}
	if diagnostics.HasCode(res.Diagnostics, diagnostics.EIO) {
		return runtime.ExitIOFailed
	}
	return res.ExitCode()
}

func (c *cli) cmdRepl(args []string) int {
	if len(args) > 0 {
		fmt.Fprintln(c.stderr, "usage: rlux repl")
		return runtime.ExitUsage
	}

	rt := c.newRuntime("repl")
	ctx := context.Background()
	scanner := bufio.NewScanner(c.stdin)
	for {
		fmt.Fprint(c.stdout, c.cfg.Prompt)
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		// Errors have been reported; the session continues.
		if _, err := rt.Run(ctx, line, "<repl>"); err != nil {
			var rte *evaluator.RuntimeError
			if !errors.As(err, &rte) {
				fmt.Fprintf(c.stderr, "error: %s\n", err)
			}
		}
	}
	fmt.Fprintln(c.stdout)

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(c.stderr, "error reading input: %s\n", err)
		return runtime.ExitIOFailed
	}
	return runtime.ExitOK
}

func (c *cli) cmdCheck(args []string) int {
	file := firstPositional(args)
	if file == "" {
		fmt.Fprintln(c.stderr, "usage: rlux check <file>")
		return runtime.ExitUsage
	}

	source, _, code := c.readSource(file)
	if code != runtime.ExitOK {
		return code
	}

	diags := c.newRuntime("check").Check(source)
	if len(diags) > 0 {
		fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostics(diags, c.format()))
		return runtime.ExitSyntax
	}

	if c.format() == diagnostics.FormatJSON {
		fmt.Fprintln(c.stdout, "[]")
	} else {
		fmt.Fprintln(c.stdout, "No errors found.")
	}
	return runtime.ExitOK
}

func (c *cli) cmdFmt(args []string) int {
	var file string
	write := false

	for _, arg := range args {
		switch arg {
		case "--write":
			write = true
		default:
			if !strings.HasPrefix(arg, "-") {
				file = arg
			}
		}
	}

	if file == "" {
		fmt.Fprintln(c.stderr, "usage: rlux fmt <file> [--write]")
		return runtime.ExitUsage
	}

	source, _, code := c.readSource(file)
	if code != runtime.ExitOK {
		return code
	}

	formatted, err := c.newRuntime("fmt").Format(source)
	if err != nil {
		var derr *runtime.DiagnosticError
		if errors.As(err, &derr) {
			fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostics(derr.Diagnostics, c.format()))
		} else {
			fmt.Fprintln(c.stderr, err.Error())
		}
		return runtime.ExitSyntax
	}

	if write {
		if err := os.WriteFile(file, []byte(formatted), 0644); err != nil {
			fmt.Fprintf(c.stderr, "error writing file: %s\n", err)
			return runtime.ExitIOFailed
		}
		return runtime.ExitOK
	}
	fmt.Fprint(c.stdout, formatted)
	return runtime.ExitOK
}

type tokenJSON struct {
	Kind    string `json:"kind"`
	Lexeme  string `json:"lexeme"`
	Line    int    `json:"line"`
	Literal any    `json:"literal,omitempty"`
}

func (c *cli) cmdTokens(args []string) int {
	var file string
	jsonOutput := false
	for _, arg := range args {
		switch arg {
		case "--json":
			jsonOutput = true
		default:
			if !strings.HasPrefix(arg, "-") {
				file = arg
			}
		}
	}
	if file == "" {
		fmt.Fprintln(c.stderr, "usage: rlux tokens <file> [--json]")
		return runtime.ExitUsage
	}

	source, _, code := c.readSource(file)
	if code != runtime.ExitOK {
		return code
	}

	toks, diags := c.newRuntime("tokens").Tokens(source)
	if jsonOutput || c.jsonDiags {
		out := make([]tokenJSON, len(toks))
		for i, tok := range toks {
			out[i] = tokenJSON{Kind: tok.Kind.String(), Lexeme: tok.Lexeme, Line: tok.Line}
			if tok.Literal != nil {
				out[i].Literal = value.ToRaw(tok.Literal)
			}
		}
		b, _ := json.Marshal(out)
		fmt.Fprintln(c.stdout, string(b))
	} else {
		for _, tok := range toks {
			fmt.Fprintf(c.stdout, "%4d  %s\n", tok.Line, tok)
		}
	}

	if len(diags) > 0 {
		fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostics(diags, c.format()))
		return runtime.ExitSyntax
	}
	return runtime.ExitOK
}

func (c *cli) cmdConfig(args []string) int {
	if len(args) > 0 {
		fmt.Fprintln(c.stderr, "usage: rlux config")
		return runtime.ExitUsage
	}
	data, err := c.cfg.Marshal()
	if err != nil {
		fmt.Fprintf(c.stderr, "error: %s\n", err)
		return runtime.ExitIOFailed
	}
	if c.cfg.Path != "" {
		fmt.Fprintf(c.stdout, "# %s\n", c.cfg.Path)
	} else {
		fmt.Fprintln(c.stdout, "# defaults")
	}
	c.stdout.Write(data)
	return runtime.ExitOK
}

func (c *cli) cmdHelp(args []string) int {
	showIndex := false
	topic := ""
	for _, arg := range args {
		if arg == "--index" {
			showIndex = true
		} else if !strings.HasPrefix(arg, "-") {
			topic = arg
		}
	}

	if showIndex {
		if topic != "" && topic != "syntax" {
			fmt.Fprintln(c.stderr, "error: --index is only supported for the syntax topic")
			return runtime.ExitUsage
		}
		fmt.Fprint(c.stdout, help.KeywordIndex())
		return runtime.ExitOK
	}

	if topic == "" {
		fmt.Fprint(c.stdout, help.QUICKREF)
		return runtime.ExitOK
	}

	_, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintf(c.stderr, "%s\nAvailable topics: %s\n", err, strings.Join(help.TopicList, ", "))
		return runtime.ExitUsage
	}
	fmt.Fprint(c.stdout, content)
	return runtime.ExitOK
}

// readSource reads file, or stdin for "-". On failure it reports the error
// and returns a non-zero exit code.
func (c *cli) readSource(file string) (string, string, int) {
	if file == "-" {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			fmt.Fprintf(c.stderr, "error reading stdin: %s\n", err)
			return "", "", runtime.ExitIOFailed
		}
		return string(data), "<stdin>", runtime.ExitOK
	}

	source, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(c.stderr, "error: cannot read file: %s\n", file)
		return "", "", runtime.ExitIOFailed
	}
	return string(source), file, runtime.ExitOK
}

func firstPositional(args []string) string {
	for _, arg := range args {
		if arg == "-" || !strings.HasPrefix(arg, "-") {
			return arg
		}
	}
	return ""
}
