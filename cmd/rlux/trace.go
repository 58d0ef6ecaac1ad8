package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/thomasrohde/rlux/pkg/evaluator"
	"github.com/thomasrohde/rlux/pkg/runtime"
)

// TraceSummary aggregates an NDJSON trace written by `rlux run --trace`.
type TraceSummary struct {
	RunID          string         `json:"runId"`
	TotalEvents    int            `json:"totalEvents"`
	Statements     int            `json:"statements"`
	Prints         int            `json:"prints"`
	MaxDepth       int            `json:"maxDepth"`
	RuntimeErrors  int            `json:"runtimeErrors"`
	ErrorsByCode   map[string]int `json:"errorsByCode"`
	BudgetExceeded int            `json:"budgetExceeded"`
	StartTime      string         `json:"startTime,omitempty"`
	EndTime        string         `json:"endTime,omitempty"`
	DurationMs     float64        `json:"durationMs"`
}

func (c *cli) cmdTrace(args []string) int {
	var file string
	jsonOutput := c.jsonDiags
	textOutput := false

	for _, arg := range args {
		switch arg {
		case "--json":
			jsonOutput = true
		case "--text":
			textOutput = true
		default:
			if !strings.HasPrefix(arg, "-") {
				file = arg
			}
		}
	}

	if file == "" {
		fmt.Fprintln(c.stderr, "usage: rlux trace <file.ndjson> [--json|--text]")
		return runtime.ExitUsage
	}

	f, err := os.Open(file)
	if err != nil {
		fmt.Fprintf(c.stderr, "error: cannot read file: %s\n", file)
		return runtime.ExitIOFailed
	}
	defer f.Close()

	summary, err := computeTraceSummary(f)
	if err != nil {
		fmt.Fprintf(c.stderr, "error reading trace: %s\n", err)
		return runtime.ExitIOFailed
	}

	if textOutput && !jsonOutput {
		printTraceSummaryText(c.stdout, summary)
	} else {
		b, _ := json.Marshal(summary)
		fmt.Fprintln(c.stdout, string(b))
	}
	return runtime.ExitOK
}

func computeTraceSummary(r io.Reader) (*TraceSummary, error) {
	summary := &TraceSummary{
		ErrorsByCode: make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event evaluator.TraceEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip invalid lines
		}

		summary.TotalEvents++
		if summary.RunID == "" {
			summary.RunID = event.RunID
		}

		switch event.Event {
		case evaluator.TraceRunStart:
			if summary.StartTime == "" {
				summary.StartTime = event.Timestamp
			}
		case evaluator.TraceRunEnd:
			summary.EndTime = event.Timestamp
		case evaluator.TraceStmtStart:
			summary.Statements++
		case evaluator.TracePrint:
			summary.Prints++
		case evaluator.TraceScopePush:
			// Numbers decode as float64.
			if d, ok := event.Data["depth"].(float64); ok && int(d) > summary.MaxDepth {
				summary.MaxDepth = int(d)
			}
		case evaluator.TraceRuntimeError:
			summary.RuntimeErrors++
			if code, ok := event.Data["code"].(string); ok {
				summary.ErrorsByCode[code]++
			}
		case evaluator.TraceBudgetExceeded:
			summary.BudgetExceeded++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if summary.StartTime != "" && summary.EndTime != "" {
		start, err1 := parseTime(summary.StartTime)
		end, err2 := parseTime(summary.EndTime)
		if err1 == nil && err2 == nil {
			summary.DurationMs = float64(end.Sub(start).Microseconds()) / 1000
		}
	}

	return summary, nil
}

func printTraceSummaryText(w io.Writer, s *TraceSummary) {
	fmt.Fprintf(w, "Run: %s\n", s.RunID)
	fmt.Fprintf(w, "Events: %d\n", s.TotalEvents)
	fmt.Fprintf(w, "Statements: %d\n", s.Statements)
	fmt.Fprintf(w, "Prints: %d\n", s.Prints)
	fmt.Fprintf(w, "Max scope depth: %d\n", s.MaxDepth)
	fmt.Fprintf(w, "Runtime errors: %d\n", s.RuntimeErrors)
	codes := make([]string, 0, len(s.ErrorsByCode))
	for code := range s.ErrorsByCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %s: %d\n", code, s.ErrorsByCode[code])
	}
	if s.BudgetExceeded > 0 {
		fmt.Fprintf(w, "Budget exceeded: %d\n", s.BudgetExceeded)
	}
	if s.DurationMs > 0 {
		fmt.Fprintf(w, "Duration: %.3fms\n", s.DurationMs)
	}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot parse time: %s", s)
}
