package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/chazu/lox"
	"github.com/chazu/lox/compiler"
	"github.com/chazu/lox/history"
)

const (
	continuationPrompt = "... "
	historySeed        = 500
)

// lineReader is the part of liner.State the REPL uses.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

type repl struct {
	runner *lox.Runner
	store  *history.Store // nil when history is disabled
	in     lineReader
	out    io.Writer
	errOut io.Writer
	prompt string
}

func newREPL(in lineReader, store *history.Store, opts options, out, errOut io.Writer) *repl {
	prompt := opts.prompt
	if prompt == "" {
		prompt = "> "
	}
	return &repl{
		runner: lox.NewRunner(
			lox.WithStdout(out),
			lox.WithStderr(errOut),
			lox.WithInterpreterOptions(interpreterOptions(opts)...),
		),
		store:  store,
		in:     in,
		out:    out,
		errOut: errOut,
		prompt: prompt,
	}
}

func runREPL(opts options, stdout, stderr io.Writer) int {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	var store *history.Store
	if opts.history != "" {
		var err error
		store, err = history.Open(opts.history)
		if err != nil {
			fmt.Fprintf(stderr, "Warning: history disabled: %v\n", err)
		} else {
			defer store.Close()
		}
	}

	r := newREPL(line, store, opts, stdout, stderr)
	line.SetCompleter(r.complete)
	r.seedHistory(context.Background())

	fmt.Fprintln(stdout, "Lox REPL (type ':help' for commands, ':quit' or Ctrl-D to exit)")
	r.loop()
	return lox.ExitOK
}

// seedHistory loads recent submissions into the line editor.
func (r *repl) seedHistory(ctx context.Context) {
	if r.store == nil {
		return
	}
	entries, err := r.store.Recent(ctx, "", historySeed)
	if err != nil {
		log.Warningf("loading history: %s", err)
		return
	}
	for _, e := range entries {
		r.in.AppendHistory(e.Source)
	}
}

func (r *repl) loop() {
	var buf strings.Builder
	for {
		prompt := r.prompt
		if buf.Len() > 0 {
			prompt = continuationPrompt
		}

		line, err := r.in.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			buf.Reset()
			continue
		}
		if err != nil {
			fmt.Fprintln(r.out)
			return
		}

		if buf.Len() == 0 {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			// Handle REPL commands (start with ':')
			if strings.HasPrefix(trimmed, ":") {
				r.in.AppendHistory(trimmed)
				if !r.command(trimmed) {
					return
				}
				continue
			}
		} else {
			buf.WriteString("\n")
		}
		buf.WriteString(line)

		source := buf.String()
		if incomplete(source) {
			continue
		}
		buf.Reset()
		r.in.AppendHistory(source)
		r.eval(source)
	}
}

// incomplete reports whether source has unclosed braces or parentheses, or
// an unterminated string, so the REPL should keep reading.
func incomplete(source string) bool {
	diags := compiler.NewDiagnostics(nil)
	depth := 0
	for _, tok := range compiler.Scan(source, diags) {
		switch tok.Type {
		case compiler.TokenLeftBrace, compiler.TokenLeftParen:
			depth++
		case compiler.TokenRightBrace, compiler.TokenRightParen:
			depth--
		}
	}
	if depth > 0 {
		return true
	}
	for _, d := range diags.Entries() {
		if d.Message == "Unterminated string." {
			return true
		}
	}
	return false
}

// bareExpression returns source trimmed if it is a single expression with
// no trailing semicolon, which the REPL prints instead of discarding.
func bareExpression(source string) (string, bool) {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" || strings.HasSuffix(trimmed, ";") || strings.HasSuffix(trimmed, "}") {
		return "", false
	}
	diags := compiler.NewDiagnostics(nil)
	expr := compiler.NewParser(compiler.Scan(trimmed, diags), diags).ParseExpression()
	if expr == nil || diags.HadError() {
		return "", false
	}
	return trimmed, true
}

func (r *repl) eval(source string) lox.Result {
	run := source
	if expr, ok := bareExpression(source); ok {
		run = "print " + expr + ";"
	}
	res := r.runner.Run(run)
	r.record(source, res.OK())
	return res
}

func (r *repl) record(source string, ok bool) {
	if r.store == nil {
		return
	}
	if err := r.store.Record(context.Background(), "", source, ok); err != nil {
		log.Warningf("recording history: %s", err)
	}
}

// command handles REPL meta-commands. It returns false when the REPL should
// exit.
func (r *repl) command(input string) bool {
	cmd, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprintln(r.out, "REPL Commands:")
		fmt.Fprintln(r.out, "  :help, :h, :?     Show this help")
		fmt.Fprintln(r.out, "  :globals          List global names")
		fmt.Fprintln(r.out, "  :history [n]      Show the last n submissions (default 20)")
		fmt.Fprintln(r.out, "  :ast <source>     Print the syntax tree of source")
		fmt.Fprintln(r.out, "  :tokens <source>  Print the tokens of source")
		fmt.Fprintln(r.out, "  :check <source>   Report static errors in source")
		fmt.Fprintln(r.out, "  :reset            Forget all globals")
		fmt.Fprintln(r.out, "  :quit, :q         Exit REPL")
	case ":quit", ":q":
		return false
	case ":reset":
		r.runner.Reset()
		fmt.Fprintln(r.out, "Environment reset.")
	case ":globals":
		fmt.Fprintln(r.out, strings.Join(r.runner.Globals(), " "))
	case ":history":
		r.showHistory(arg)
	case ":ast":
		dumpAST(arg, r.out, r.errOut)
	case ":tokens":
		dumpTokens(arg, r.out, r.errOut)
	case ":check":
		diags := lox.Check(arg)
		for _, d := range diags {
			fmt.Fprintln(r.errOut, d)
		}
		if len(diags) == 0 {
			fmt.Fprintln(r.out, "ok")
		}
	default:
		fmt.Fprintf(r.errOut, "Unknown command %q (try :help)\n", cmd)
	}
	return true
}

func (r *repl) showHistory(arg string) {
	if r.store == nil {
		fmt.Fprintln(r.errOut, "History is disabled (set [repl] history in lox.toml or pass -history).")
		return
	}
	limit := 20
	if arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			fmt.Fprintf(r.errOut, "Invalid count %q\n", arg)
			return
		}
		limit = n
	}
	entries, err := r.store.Recent(context.Background(), "", limit)
	if err != nil {
		fmt.Fprintf(r.errOut, "Error: %v\n", err)
		return
	}
	for _, e := range entries {
		mark := " "
		if !e.OK {
			mark = "!"
		}
		fmt.Fprintf(r.out, "%s %s\n", mark, strings.ReplaceAll(e.Source, "\n", "\n  "))
	}
}

var replCommands = []string{":ast", ":check", ":globals", ":help", ":history", ":quit", ":reset", ":tokens"}

// complete offers commands, keywords and globals for the identifier before
// the cursor. liner replaces the whole line with each candidate.
func (r *repl) complete(line string) []string {
	if strings.HasPrefix(line, ":") && !strings.Contains(line, " ") {
		var out []string
		for _, c := range replCommands {
			if strings.HasPrefix(c, line) {
				out = append(out, c)
			}
		}
		return out
	}

	start := len(line)
	for start > 0 && isIdentChar(line[start-1]) {
		start--
	}
	prefix := line[start:]
	if prefix == "" {
		return nil
	}

	seen := make(map[string]bool)
	var names []string
	for _, name := range append(compiler.Keywords(), r.runner.Globals()...) {
		if strings.HasPrefix(name, prefix) && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := make([]string, len(names))
	for i, name := range names {
		out[i] = line[:start] + name
	}
	return out
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
