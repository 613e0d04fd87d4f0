package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"

	"github.com/davecgh/go-spew/spew"
	"github.com/funvibe/structype/internal/config"
	"github.com/funvibe/structype/internal/logging"
	"github.com/funvibe/structype/internal/store"
	"github.com/funvibe/structype/internal/typedoc"
	"github.com/funvibe/structype/pkg/typeval"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
)

const (
	colorRed   = "\033[31m"
	colorReset = "\033[0m"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  typeval check [-config file] [-db file] [-dump] [-v] doc.yaml|dir...")
	fmt.Fprintln(w, "  typeval version")
}

// run executes a command line and returns the process exit code: 0 when
// every query succeeded, 1 when a query failed, 2 on usage or setup errors.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	switch args[0] {
	case "version", "-version", "--version":
		fmt.Fprintf(stdout, "typeval %s\n", config.Version)
		return 0
	case "check":
		return check(ctx, args[1:], stdout, stderr)
	case "help", "-help", "--help", "-h":
		usage(stdout)
		return 0
	}
	fmt.Fprintf(stderr, "unknown command %q\n", args[0])
	usage(stderr)
	return 2
}

func check(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "configuration file (default: nearest "+config.ConfigFileName+")")
	dbPath := fs.String("db", "", "SQLite result store (overrides store.path)")
	dump := fs.Bool("dump", false, "dump evaluated type trees to stderr")
	verbose := fs.Bool("v", false, "log resolution steps")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "check: no documents given")
		usage(stderr)
		return 2
	}

	paths, err := documentPaths(fs.Args())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if len(paths) == 0 {
		fmt.Fprintln(stderr, "check: no documents found")
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer closer.Close()
	defer logger.Sync()

	runID := uuid.NewString()
	logger.Debug("starting check",
		zap.String("run", runID),
		zap.Int("documents", len(paths)),
		zap.Bool("cache", cfg.CacheEnabled()),
		zap.Bool("store", cfg.Store.Path != ""))
	opts := []typeval.Option{typeval.WithRunID(runID)}
	if cfg.Store.Path != "" {
		s, err := store.Open(ctx, cfg.Store.Path)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		defer s.Close()
		opts = append(opts, typeval.WithStore(s))
	}

	ev, err := typeval.New(cfg, logger, opts...)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	color := isTerminal(stdout)
	failed := false
	for i, path := range paths {
		doc, err := typedoc.Load(path)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			failed = true
			continue
		}
		results, err := ev.Run(ctx, doc)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		if len(paths) > 1 {
			if i > 0 {
				fmt.Fprintln(stdout)
			}
			fmt.Fprintf(stdout, "== %s\n", path)
		}
		printResults(stdout, results, color)
		if *dump {
			for _, r := range results {
				if r.Type != nil {
					fmt.Fprintf(stderr, "%s: %s", r.Name, spew.Sdump(r.Type))
				}
			}
		}
		if typeval.Failed(results) {
			failed = true
		}
		logger.Info("checked document", zap.String("path", path), zap.Int("queries", len(results)))
	}
	if failed {
		return 1
	}
	return 0
}

// documentPaths expands directory arguments into the type documents they
// contain. Other arguments are taken as given.
func documentPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("reading directory %s: %w", arg, err)
		}
		for _, e := range entries {
			if !e.IsDir() && isDocument(e.Name()) {
				paths = append(paths, filepath.Join(arg, e.Name()))
			}
		}
	}
	return paths, nil
}

func isDocument(name string) bool {
	ext := filepath.Ext(name)
	if !slices.Contains(config.DocumentFileExtensions, ext) {
		return false
	}
	// a configuration file next to the documents is not one of them
	return name != config.ConfigFileName && name != config.ConfigBaseName+ext
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		found, err := config.FindConfig(".")
		if err != nil || found == "" {
			return config.Default(), err
		}
		path = found
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return config.Config{}, err
	}
	return *cfg, nil
}

func printResults(w io.Writer, results []typeval.Result, color bool) {
	if !color {
		fmt.Fprint(w, typeval.Format(results))
		return
	}
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "%s: %serror: %v%s\n", r.Name, colorRed, r.Err, colorReset)
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", r.Name, r.Output)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
