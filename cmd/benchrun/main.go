package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/cadepowers99/Skip-List/config"
	"github.com/cadepowers99/Skip-List/skiplist/analyTool"
	"github.com/cadepowers99/Skip-List/xlog"
)

func main() {
	var cfgPath string
	var file string
	var dir string
	var impls string
	var runs int
	var workers int
	var seed uint64
	var levels bool

	flag.StringVar(&cfgPath, "config", "", "YAML config file, flags override its bench section")
	flag.StringVar(&file, "file", "", "existing bench file (LVLBENCH format)")
	flag.StringVar(&dir, "dir", "", "directory containing bench files to test (will test all .bin files)")
	flag.StringVar(&impls, "impl", "all", "implementations to run: all or comma list (leveled,basic)")
	flag.IntVar(&runs, "runs", 5, "how many times to repeat each benchmark")
	flag.IntVar(&workers, "workers", 1, "files benchmarked in parallel")
	flag.Uint64Var(&seed, "seed", 0, "seed for structures, run i uses seed+i")
	flag.BoolVar(&levels, "levels", false, "print the per-level node count of each structure")
	flag.Parse()

	cfg := config.GetDefault()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		cfg = *loaded
	}

	logger, err := xlog.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var implErr error
	flag.Visit(func(f *flag.Flag) {
		b := &cfg.Bench
		switch f.Name {
		case "dir":
			b.Dir = dir
		case "impl":
			b.Impls, implErr = parseImpls(impls)
		case "workers":
			b.Workers = workers
		case "seed":
			b.Seed = seed
		}
	})
	if implErr != nil {
		logger.Fatal("parse -impl", zap.Error(implErr))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid bench config", zap.Error(err))
	}
	if runs < 1 {
		logger.Fatal("invalid -runs", zap.Int("runs", runs))
	}

	// -file 優先，否則掃描目錄
	var benchPaths []string
	if file != "" {
		benchPaths = []string{file}
	} else {
		benchPaths, err = collectBenchFiles(cfg.Bench.Dir)
		if err != nil {
			logger.Fatal("scan directory", zap.String("dir", cfg.Bench.Dir), zap.Error(err))
		}
		if len(benchPaths) == 0 {
			logger.Fatal("no .bin files found", zap.String("dir", cfg.Bench.Dir))
		}
	}
	logger.Info("bench start",
		zap.Int("files", len(benchPaths)),
		zap.Strings("impls", cfg.Bench.Impls),
		zap.Int("runs", runs),
		zap.Int("workers", cfg.Bench.Workers))

	r := &runner{
		logger:     logger,
		impls:      cfg.Bench.Impls,
		runs:       runs,
		seed:       cfg.Bench.Seed,
		listOpts:   cfg.ListOptions(),
		keepSample: levels,
	}
	results, err := r.runAll(benchPaths, cfg.Bench.Workers)
	if err != nil {
		logger.Fatal("run benchmarks", zap.Error(err))
	}

	out := os.Stdout
	for _, res := range results {
		if res.err != nil {
			logger.Error("benchmark failed", zap.String("file", res.path), zap.Error(res.err))
			continue
		}
		writeFileTable(out, res, r.impls, runs)
		if levels {
			for _, impl := range r.impls {
				fmt.Fprintf(out, "%s levels:\n", impl)
				analyTool.LevelTable(out, res.stats[impl].sample)
			}
		}
		fmt.Fprintln(out)
	}
	if len(results) > 1 {
		fmt.Fprintln(out, strings.Repeat("=", 80))
		writeAggregate(out, results, r.impls, runs)
	}
}
