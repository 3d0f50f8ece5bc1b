// Lox CLI - runs Lox scripts, starts a REPL, or serves Lox over the network
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/lox"
	"github.com/chazu/lox/compiler"
	"github.com/chazu/lox/history"
	"github.com/chazu/lox/interpreter"
	"github.com/chazu/lox/manifest"
	"github.com/chazu/lox/server"
)

var log = commonlog.GetLogger("lox.cli")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// options holds the effective configuration: manifest values overridden by
// flags the user set explicitly.
type options struct {
	showTokens bool
	showAST    bool
	checkOnly  bool
	serve      bool
	lsp        bool

	addr      string
	grpcAddr  string
	verbosity int
	logFile   string
	history   string
	maxDepth  int
	prompt    string
	timeout   time.Duration
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("lox", flag.ContinueOnError)
	fs.SetOutput(stderr)

	showTokens := fs.Bool("tokens", false, "Print the scanned tokens instead of running")
	showAST := fs.Bool("ast", false, "Print the parsed syntax tree instead of running")
	checkOnly := fs.Bool("check", false, "Report static errors without running")
	serveMode := fs.Bool("serve", false, "Start the evaluation server (Connect + gRPC)")
	lspMode := fs.Bool("lsp", false, "Start the language server on stdio")
	addr := fs.String("addr", "", "Connect listen address (used with -serve)")
	grpcAddr := fs.String("grpc-addr", "", "gRPC listen address (used with -serve)")
	verbosity := fs.Int("v", 0, "Log verbosity: -4 silent .. 2 debug")
	logFile := fs.String("log", "", "Write logs to this file instead of stderr")
	historyPath := fs.String("history", "", "History database path (\":memory:\" to keep it in memory)")
	maxDepth := fs.Int("max-depth", 0, "Maximum call depth before \"Stack overflow.\"")
	timeout := fs.Duration("timeout", 10*time.Second, "Interrupt server evaluations running longer than this (0 disables)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: lox [options] [script]\n\n")
		fmt.Fprintf(stderr, "Runs a Lox script, or starts a REPL when no script is given.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  lox                     # Start REPL\n")
		fmt.Fprintf(stderr, "  lox hello.lox           # Run a script\n")
		fmt.Fprintf(stderr, "  lox -ast hello.lox      # Print the syntax tree\n")
		fmt.Fprintf(stderr, "  lox -serve              # Serve on the addresses from lox.toml\n")
		fmt.Fprintf(stderr, "  lox -lsp                # Language server for editors\n")
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return lox.ExitOK
		}
		return lox.ExitUsage
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return lox.ExitUsage
	}
	script := fs.Arg(0)

	m, err := loadManifest(script)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return lox.ExitUsage
	}

	opts := options{
		showTokens: *showTokens,
		showAST:    *showAST,
		checkOnly:  *checkOnly,
		serve:      *serveMode,
		lsp:        *lspMode,
		addr:       m.Server.Addr,
		grpcAddr:   m.Server.GRPCAddr,
		verbosity:  m.Log.Verbosity,
		logFile:    m.Log.File,
		history:    m.HistoryPath(),
		maxDepth:   m.Interpreter.MaxCallDepth,
		prompt:     m.REPL.Prompt,
		timeout:    *timeout,
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			opts.addr = *addr
		case "grpc-addr":
			opts.grpcAddr = *grpcAddr
		case "v":
			opts.verbosity = *verbosity
		case "log":
			opts.logFile = *logFile
		case "history":
			opts.history = *historyPath
		case "max-depth":
			opts.maxDepth = *maxDepth
		}
	})
	if script == "" {
		script = m.EntryPath()
	}

	configureLogging(opts)
	if m.Dir != "" {
		log.Debugf("using manifest in %s", m.Dir)
	}

	switch {
	case opts.lsp:
		if err := server.NewLSP().Run(); err != nil {
			fmt.Fprintf(stderr, "LSP error: %v\n", err)
			return lox.ExitSoftware
		}
		return lox.ExitOK
	case opts.serve:
		return serve(opts, stderr)
	case script != "":
		return runFile(script, opts, stdout, stderr)
	case opts.showTokens || opts.showAST || opts.checkOnly:
		fmt.Fprintf(stderr, "Error: -tokens, -ast and -check need a script\n")
		return lox.ExitUsage
	}
	return runREPL(opts, stdout, stderr)
}

// loadManifest finds lox.toml starting from the script's directory, or the
// working directory without a script. No manifest means defaults.
func loadManifest(script string) (*manifest.Manifest, error) {
	dir := "."
	if script != "" {
		dir = filepath.Dir(script)
	}
	m, err := manifest.FindAndLoad(dir)
	if errors.Is(err, manifest.ErrNotFound) {
		return manifest.Defaults(), nil
	}
	return m, err
}

func configureLogging(opts options) {
	if opts.logFile != "" {
		path := opts.logFile
		commonlog.Configure(opts.verbosity, &path)
		return
	}
	commonlog.Configure(opts.verbosity, nil)
}

func interpreterOptions(opts options) []interpreter.Option {
	if opts.maxDepth > 0 {
		return []interpreter.Option{interpreter.WithMaxDepth(opts.maxDepth)}
	}
	return nil
}

// runFile runs, checks or dumps a script and returns the exit code.
func runFile(path string, opts options, stdout, stderr io.Writer) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: cannot read %s: %v\n", path, err)
		return lox.ExitNoInput
	}
	source := string(data)

	switch {
	case opts.showTokens:
		return dumpTokens(source, stdout, stderr)
	case opts.showAST:
		return dumpAST(source, stdout, stderr)
	}

	runner := lox.NewRunner(
		lox.WithStdout(stdout),
		lox.WithStderr(stderr),
		lox.WithInterpreterOptions(interpreterOptions(opts)...),
	)
	var res lox.Result
	if opts.checkOnly {
		res = runner.Check(source)
	} else {
		res = runner.Run(source)
	}
	log.Infof("%s: %d statements in %s, exit %d", path, res.Statements, res.Elapsed, res.ExitCode())
	return res.ExitCode()
}

func dumpTokens(source string, stdout, stderr io.Writer) int {
	diags := compiler.NewDiagnostics(stderr)
	for _, tok := range compiler.Scan(source, diags) {
		fmt.Fprintln(stdout, tok)
	}
	if diags.HadError() {
		return lox.ExitDataErr
	}
	return lox.ExitOK
}

func dumpAST(source string, stdout, stderr io.Writer) int {
	diags := compiler.NewDiagnostics(stderr)
	stmts := compiler.Parse(source, diags)
	if out := compiler.PrintStmts(stmts); out != "" {
		fmt.Fprintln(stdout, out)
	}
	if diags.HadError() {
		return lox.ExitDataErr
	}
	return lox.ExitOK
}

// serve runs the Connect and gRPC servers until interrupted.
func serve(opts options, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	serverOpts := []server.ServerOption{
		server.WithInterpreterOptions(interpreterOptions(opts)...),
		server.WithEvalTimeout(opts.timeout),
	}
	if opts.history != "" {
		store, err := history.Open(opts.history)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return lox.ExitSoftware
		}
		defer store.Close()
		serverOpts = append(serverOpts, server.WithHistory(store))
	}

	srv := server.New(serverOpts...)
	defer srv.Stop()

	errs := make(chan error, 2)
	if opts.grpcAddr != "" {
		lis, err := net.Listen("tcp", opts.grpcAddr)
		if err != nil {
			fmt.Fprintf(stderr, "Server error: %v\n", err)
			return lox.ExitSoftware
		}
		go func() { errs <- srv.ServeGRPC(lis) }()
	}
	go func() { errs <- srv.ListenAndServe(opts.addr) }()

	select {
	case <-ctx.Done():
		log.Info("interrupted, shutting down")
		return lox.ExitOK
	case err := <-errs:
		if err != nil {
			fmt.Fprintf(stderr, "Server error: %v\n", err)
			return lox.ExitSoftware
		}
		return lox.ExitOK
	}
}
