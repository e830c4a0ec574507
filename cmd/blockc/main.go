package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lhaig/blockc/internal/compiler"
	"github.com/lhaig/blockc/internal/diagnostic"
	"github.com/lhaig/blockc/internal/formatter"
	"github.com/lhaig/blockc/internal/linter"
	"github.com/lhaig/blockc/internal/logger"
	"github.com/lhaig/blockc/internal/verify"
)

const usage = `blockc - block graph to C++ compiler

Usage:
  blockc build [options] <file.yaml>    Generate main.cpp, devices.h and runtime headers
  blockc check <file.yaml>              Load and generate without writing output
  blockc lint <file.yaml>               Run lint checks for style/best practices
  blockc fmt [-w] <file.yaml>           Print (or rewrite) the canonical document
  blockc inspect <file.yaml>            Open an interactive shell on the graph

Options:
  -o <path>              Output directory (or binary with --native); defaults to the file's base name
  --native               Compile the generated program with the system c++
  --prove                Elide guards the range analyzer proves redundant
  --max-iterations <n>   Solver round limit for --prove (default 64)
  --report               Print the guard verification report
  -w                     fmt: write the result back to the file
  --log-level <level>    debug, info, warn or error (default warn)
  --log-format <format>  text or json (default text)
  --log-file <path>      Append log records to a file instead of stderr

Examples:
  blockc build counter.yaml                 Write counter/main.cpp
  blockc build --prove --report counter.yaml
  blockc build --native -o counter counter.yaml
  blockc fmt -w counter.yaml
`

// cliOptions holds every flag the commands understand
type cliOptions struct {
	file          string
	out           string
	native        bool
	prove         bool
	maxIterations int
	report        bool
	write         bool
	logLevel      string
	logFormat     string
	logFile       string
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	command := os.Args[1]
	if command == "help" || command == "--help" || command == "-h" {
		fmt.Print(usage)
		return
	}

	opts, err := parseArgs(os.Args[2:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	if err := initLogger(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	switch command {
	case "build":
		handleBuild(opts)
	case "check":
		handleCheck(opts)
	case "lint":
		handleLint(opts)
	case "fmt":
		handleFmt(opts)
	case "inspect":
		code := runInspect(opts)
		logger.Reset()
		os.Exit(code)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	logger.Reset()
}

// parseArgs reads flags and the single input file
func parseArgs(args []string) (cliOptions, error) {
	opts := cliOptions{logLevel: "warn", logFormat: "text"}

	value := func(i *int, flag string) (string, error) {
		if *i+1 >= len(args) {
			return "", fmt.Errorf("%s requires a value", flag)
		}
		*i++
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		var err error
		switch arg {
		case "--native":
			opts.native = true
		case "--prove":
			opts.prove = true
		case "--report":
			opts.report = true
		case "-w":
			opts.write = true
		case "-o":
			opts.out, err = value(&i, arg)
		case "--log-level":
			opts.logLevel, err = value(&i, arg)
		case "--log-format":
			opts.logFormat, err = value(&i, arg)
		case "--log-file":
			opts.logFile, err = value(&i, arg)
		case "--max-iterations":
			var s string
			if s, err = value(&i, arg); err == nil {
				opts.maxIterations, err = strconv.Atoi(s)
				if err != nil || opts.maxIterations < 1 {
					err = fmt.Errorf("--max-iterations must be a positive integer, got %q", s)
				}
			}
		default:
			if strings.HasPrefix(arg, "-") {
				return opts, fmt.Errorf("unknown option: %s", arg)
			}
			if opts.file != "" {
				return opts, fmt.Errorf("more than one input file: %s and %s", opts.file, arg)
			}
			opts.file = arg
		}
		if err != nil {
			return opts, err
		}
	}

	if opts.file == "" {
		return opts, fmt.Errorf("no input file specified")
	}
	return opts, nil
}

func initLogger(opts cliOptions) error {
	level, err := logger.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	cfg := logger.DefaultConfig()
	cfg.Level = level
	cfg.Format = opts.logFormat
	cfg.LogFile = opts.logFile
	return logger.Init(cfg)
}

func compileOptions(opts cliOptions) compiler.Options {
	co := compiler.DefaultOptions()
	co.Prove = opts.prove
	if opts.maxIterations > 0 {
		co.MaxIterations = opts.maxIterations
	}
	return co
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func handleBuild(opts cliOptions) {
	res, err := compiler.CompileFile(opts.file, compileOptions(opts))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %s\n", err)
		os.Exit(1)
	}
	if res.Failed() {
		fmt.Fprintf(os.Stderr, "%s\n", res.Diagnostics.Format(opts.file))
		os.Exit(1)
	}
	printWarnings(opts.file, res.Diagnostics)

	if opts.report {
		fmt.Print(verify.FormatReport(res.Guards))
	}

	outPath := opts.out
	if outPath == "" {
		outPath = baseName(opts.file)
	}

	if opts.native {
		fmt.Printf("Compiling %s...\n", opts.file)
		if err := compiler.Build(res, outPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
		fmt.Printf("Built %s\n", outPath)
		return
	}

	written, err := compiler.EmitDir(res, outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	for _, path := range written {
		fmt.Printf("Wrote %s\n", path)
	}
}

func handleCheck(opts cliOptions) {
	res, err := compiler.CompileFile(opts.file, compileOptions(opts))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %s\n", err)
		os.Exit(1)
	}
	if res.Failed() {
		fmt.Fprintf(os.Stderr, "%s\n", res.Diagnostics.Format(opts.file))
		os.Exit(1)
	}
	printWarnings(opts.file, res.Diagnostics)
	if opts.report {
		fmt.Print(verify.FormatReport(res.Guards))
	}

	fmt.Println("No errors found.")
}

func printWarnings(file string, diag *diagnostic.Diagnostics) {
	for _, d := range diag.All() {
		if d.Severity == diagnostic.Warning {
			fmt.Printf("%s:%d:%d: warning: %s\n", file, d.Line, d.Column, d.Message)
			if d.Hint != "" {
				fmt.Printf("  hint: %s\n", d.Hint)
			}
		}
	}
}

func handleLint(opts cliOptions) {
	g, err := compiler.LoadFile(opts.file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	diag := linter.Lint(g)

	if diag.Count() == 0 {
		fmt.Println("No lint warnings.")
		return
	}

	fmt.Print(diag.Format(opts.file))
	fmt.Println()
	fmt.Printf("%d warning(s) found.\n", diag.Count())
}

func handleFmt(opts cliOptions) {
	g, err := compiler.LoadFile(opts.file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	out := formatter.Format(g)
	if !opts.write {
		fmt.Print(out)
		return
	}
	if err := os.WriteFile(opts.file, []byte(out), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %s\n", err)
		os.Exit(1)
	}
	fmt.Printf("Formatted %s\n", opts.file)
}
