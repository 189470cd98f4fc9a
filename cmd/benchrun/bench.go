package main

import (
	"fmt"
	"io"
	"io/fs"
	"math"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/facette/natsort"
	"github.com/olekukonko/tablewriter"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/cadepowers99/Skip-List/config"
	"github.com/cadepowers99/Skip-List/datastream"
	"github.com/cadepowers99/Skip-List/skiplist"
	"github.com/cadepowers99/Skip-List/skiplist/analyTool"
	"github.com/cadepowers99/Skip-List/skiplist/basic"
	"github.com/cadepowers99/Skip-List/skiplist/leveled"
)

var ErrUnknownImpl = errors.New("[benchrun] unknown implementation")

type benchStats struct {
	avgMs    float64
	minMs    float64
	maxMs    float64
	avgSteps float64 // 取第一次執行後的結構，無法分析時為 NaN
	failed   int     // 回傳 false 的操作數，每次執行應相同
	sample   skiplist.Analyable[int64]
}

type fileResult struct {
	path    string
	ops     int
	entropy float64
	stats   map[string]benchStats
	err     error
}

type runner struct {
	logger   *zap.Logger
	impls    []string
	runs     int
	seed     uint64
	listOpts []leveled.Option
	// keepSample 保留第一次執行後的結構，供 LevelTable 使用
	keepSample bool
}

func (r *runner) newImpl(impl string, run int) (skiplist.Analyable[int64], error) {
	seed := r.seed + uint64(run)
	switch impl {
	case "leveled":
		opts := append(slices.Clone(r.listOpts), leveled.WithSeed(seed), leveled.WithLogger(r.logger))
		return leveled.New[int64](opts...)
	case "basic":
		return basic.NewBasicSkipList[int64](seed), nil
	default:
		return nil, errors.Wrapf(ErrUnknownImpl, "%q", impl)
	}
}

func runOpsAndTime(sl skiplist.SkipList[int64], bf *datastream.BenchFile) (time.Duration, int) {
	failed := 0
	start := time.Now()
	for _, op := range bf.Ops {
		if !op.Apply(sl) {
			failed++
		}
	}
	return time.Since(start), failed
}

func (r *runner) benchmarkImpl(bf *datastream.BenchFile, impl string) (benchStats, error) {
	durations := make([]float64, 0, r.runs)
	stats := benchStats{avgSteps: math.NaN()}
	for i := 0; i < r.runs; i++ {
		sl, err := r.newImpl(impl, i)
		if err != nil {
			return stats, err
		}
		elapsed, failed := runOpsAndTime(sl, bf)
		durations = append(durations, float64(elapsed.Microseconds())/1000.0)

		if i == 0 {
			if err := analyTool.CheckStruct(sl); err != nil {
				return stats, errors.Wrapf(err, "%s after replay", impl)
			}
			stats.avgSteps, _ = analyTool.AnalyzeStep(sl, bf.Dist)
			stats.failed = failed
			if r.keepSample {
				stats.sample = sl
				continue
			}
		}
		if rel, ok := sl.(interface{ Release() }); ok {
			rel.Release()
		}
	}
	slices.Sort(durations)
	stats.avgMs = average(durations)
	stats.minMs = durations[0]
	stats.maxMs = durations[len(durations)-1]
	return stats, nil
}

func (r *runner) runFile(path string) fileResult {
	res := fileResult{path: path, stats: make(map[string]benchStats, len(r.impls))}
	bf, err := datastream.ReadBenchFile(path)
	if err != nil {
		res.err = err
		return res
	}
	res.ops = len(bf.Ops)
	res.entropy = datastream.EntropyFromDist(bf.Dist)

	for _, impl := range r.impls {
		stats, err := r.benchmarkImpl(bf, impl)
		if err != nil {
			res.err = err
			return res
		}
		res.stats[impl] = stats
		r.logger.Info("benchmark done",
			zap.String("file", filepath.Base(path)),
			zap.String("impl", impl),
			zap.Float64("avgMs", stats.avgMs),
			zap.Float64("avgSteps", stats.avgSteps))
	}
	return res
}

// runAll 以 ants pool 平行處理多個檔案，結果順序與 paths 相同
func (r *runner) runAll(paths []string, workers int) ([]fileResult, error) {
	if workers < 1 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, errors.Wrap(err, "create worker pool")
	}
	defer pool.Release()

	results := make([]fileResult, len(paths))
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			results[i] = r.runFile(path)
		})
		if err != nil {
			wg.Done()
			results[i] = fileResult{path: path, err: errors.Wrap(err, "submit")}
		}
	}
	wg.Wait()
	return results, nil
}

// collectBenchFiles 收集 dir 下所有 .bin 檔案，依自然順序排序
func collectBenchFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".bin" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	natsort.Sort(files)
	return files, nil
}

func parseImpls(s string) ([]string, error) {
	if s == "" || s == "all" {
		return slices.Clone(config.BENCH_IMPLS), nil
	}
	parts := lo.Map(strings.Split(s, ","), func(p string, _ int) string {
		return strings.TrimSpace(p)
	})
	parts = lo.Uniq(lo.Filter(parts, func(p string, _ int) bool { return p != "" }))
	for _, p := range parts {
		if !lo.Contains(config.BENCH_IMPLS, p) {
			return nil, errors.Wrapf(ErrUnknownImpl, "%q", p)
		}
	}
	if len(parts) == 0 {
		return nil, errors.Wrap(ErrUnknownImpl, "empty list")
	}
	return parts, nil
}

func formatSteps(steps float64) string {
	if math.IsNaN(steps) {
		return "N/A"
	}
	return fmt.Sprintf("%.6f", steps)
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoWrapText(false)
	return table
}

// writeFileTable 單一檔案的詳細結果
func writeFileTable(w io.Writer, res fileResult, impls []string, runs int) {
	fmt.Fprintf(w, "bench_file: %s\n", res.path)
	fmt.Fprintf(w, "ops: %d\n", res.ops)
	fmt.Fprintf(w, "entropy: %.6f\n", res.entropy)

	rows := make([][]string, 0, len(impls))
	for _, impl := range impls {
		stats, ok := res.stats[impl]
		if !ok {
			continue
		}
		thr := float64(res.ops) / (stats.avgMs / 1000.0)
		rows = append(rows, []string{
			impl,
			fmt.Sprintf("%d", runs),
			fmt.Sprintf("%.3f", stats.avgMs),
			fmt.Sprintf("%.3f", stats.minMs),
			fmt.Sprintf("%.3f", stats.maxMs),
			fmt.Sprintf("%.2f", thr),
			fmt.Sprintf("%d", stats.failed),
			formatSteps(stats.avgSteps),
		})
	}
	table := newTable(w, []string{"Impl", "Runs", "Avg(ms)", "Min(ms)", "Max(ms)", "Ops/s", "Failed", "AvgSteps"})
	table.AppendBulk(rows)
	table.Render()
}

// writeAggregate 匯總所有成功的檔案
func writeAggregate(w io.Writer, results []fileResult, impls []string, runs int) {
	ok := lo.Filter(results, func(res fileResult, _ int) bool { return res.err == nil })
	fmt.Fprintf(w, "AGGREGATE STATISTICS (%d of %d files)\n", len(ok), len(results))

	rows := make([][]string, 0, len(impls))
	for _, impl := range impls {
		var avgMs, minMs, maxMs, steps []float64
		totalOps, totalSec := 0, 0.0
		for _, res := range ok {
			stats := res.stats[impl]
			avgMs = append(avgMs, stats.avgMs)
			minMs = append(minMs, stats.minMs)
			maxMs = append(maxMs, stats.maxMs)
			if !math.IsNaN(stats.avgSteps) {
				steps = append(steps, stats.avgSteps)
			}
			totalOps += res.ops
			totalSec += stats.avgMs / 1000.0
		}
		if len(avgMs) == 0 {
			continue
		}
		avgSteps := math.NaN()
		if len(steps) > 0 {
			avgSteps = average(steps)
		}
		rows = append(rows, []string{
			impl,
			fmt.Sprintf("%d", runs*len(avgMs)),
			fmt.Sprintf("%.3f", average(avgMs)),
			fmt.Sprintf("%.3f", slices.Min(minMs)),
			fmt.Sprintf("%.3f", slices.Max(maxMs)),
			fmt.Sprintf("%.2f", float64(totalOps)/totalSec),
			formatSteps(avgSteps),
		})
	}
	table := newTable(w, []string{"Impl", "Total Runs", "Avg(ms)", "Min(ms)", "Max(ms)", "Avg Ops/s", "AvgSteps"})
	table.AppendBulk(rows)
	table.Render()
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return lo.Sum(values) / float64(len(values))
}
