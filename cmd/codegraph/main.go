package main

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/codegraph/internal/config"
	"github.com/standardbeagle/codegraph/internal/cst"
	"github.com/standardbeagle/codegraph/internal/engine"
	cgerrors "github.com/standardbeagle/codegraph/internal/errors"
	"github.com/standardbeagle/codegraph/internal/types"
	"github.com/standardbeagle/codegraph/internal/version"
)

// report is the JSON document the analyze command emits.
type report struct {
	Files  []*types.ParseResult     `json:"files"`
	Cycles []*types.DependencyCycle `json:"cycles,omitempty"`
	Errors []fileError              `json:"errors,omitempty"`
}

type fileError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

func main() {
	app := &cli.App{
		Name:    "codegraph",
		Usage:   "Extract entities, relationships, and dependency cycles from source trees",
		Version: version.Info(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path",
				Value:   ".codegraph.toml",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Verbose logging and a wider traversal budget",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "analyze",
				Usage:     "Analyze files or directories and print a JSON report",
				ArgsUsage: "PATH [PATH...]",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent file analyzers (0 = NumCPU)",
					},
					&cli.BoolFlag{
						Name:  "cycles",
						Usage: "Run dependency cycle detection across the analyzed files",
						Value: true,
					},
				},
				Action: runAnalyze,
			},
			{
				Name:   "languages",
				Usage:  "List supported languages",
				Action: runLanguages,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}
	return log
}

func runAnalyze(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("analyze needs at least one file or directory", 1)
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	cfg.Verbose = cfg.Verbose || c.Bool("verbose")

	log := newLogger(cfg.Verbose)
	eng := engine.New(cfg, log)
	defer eng.Close()

	files, err := collectFiles(c.Args().Slice())
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return cli.Exit("no supported source files found", 1)
	}

	workers := c.Int("workers")
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var (
		mu  sync.Mutex
		rep report
	)

	g, ctx := errgroup.WithContext(c.Context)
	g.SetLimit(workers)
	for _, file := range files {
		file := file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			content, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading %s: %w", file, err)
			}
			result, err := eng.AnalyzeFile(file, content)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// A per-file parse failure is reported, not fatal.
				rep.Errors = append(rep.Errors, fileError{File: file, Error: err.Error()})
				log.WithField("file", file).Warn(err)
				return nil
			}
			rep.Files = append(rep.Files, result)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sort.Slice(rep.Files, func(i, j int) bool {
		return rep.Files[i].FilePath < rep.Files[j].FilePath
	})

	if c.Bool("cycles") {
		rep.Cycles = detectAll(eng, rep.Files)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(&rep)
}

// detectAll feeds files into the dependency graph in order; only the final
// file's detection pass can see the whole graph, so cycles are collected
// across all passes and deduplicated by member set.
func detectAll(eng *engine.Engine, files []*types.ParseResult) []*types.DependencyCycle {
	seen := make(map[string]struct{})
	var cycles []*types.DependencyCycle
	for _, file := range files {
		for _, cycle := range eng.DetectCycles(file) {
			key := cycleKey(cycle)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			cycles = append(cycles, cycle)
		}
	}
	return cycles
}

func cycleKey(c *types.DependencyCycle) string {
	members := append([]string(nil), c.Cycle...)
	sort.Strings(members)
	key := members[0]
	for _, m := range members[1:] {
		key += "\x00" + m
	}
	return key
}

func runLanguages(c *cli.Context) error {
	for _, ext := range []string{".go", ".py", ".js"} {
		fmt.Printf("%-14s %s\n", cst.LanguageForExtension(ext), ext)
	}
	return nil
}

// collectFiles expands directories into the supported source files beneath
// them. Unsupported extensions are skipped silently; naming an unsupported
// file explicitly is an error.
func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if cst.LanguageForExtension(filepath.Ext(path)) == "" {
				return nil, cgerrors.NewUnsupportedLanguageError(path, filepath.Ext(path))
			}
			files = append(files, path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p == path {
					return nil
				}
				name := d.Name()
				if name == "node_modules" || name == "vendor" || name[0] == '.' {
					return filepath.SkipDir
				}
				return nil
			}
			if cst.LanguageForExtension(filepath.Ext(p)) != "" {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}
