package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/cadepowers99/Skip-List/config"
	"github.com/cadepowers99/Skip-List/datastream"
	"github.com/cadepowers99/Skip-List/xlog"
)

func main() {
	var cfgPath string
	var out string
	var nStr string
	var kStr string
	var s float64
	var v float64
	var seed uint64
	var phase1Ratio float64
	var deleteRatio float64
	var nums int
	var simple bool
	var distCSV bool

	flag.StringVar(&cfgPath, "config", "", "YAML config file, flags override its workload section")
	flag.StringVar(&nStr, "n", "1e3", "number of keys (支援科學記號，如 1e5)")
	flag.StringVar(&kStr, "k", "1e5", "number of operations to generate (支援科學記號，如 1e6)")
	flag.Float64Var(&s, "s", config.WORKLOAD_ZIPF_S, "Zipf exponent s (設為 0 時使用均勻分布)")
	flag.Float64Var(&v, "v", config.WORKLOAD_ZIPF_V, "Zipf offset v (當 s > 0 時有效)")
	flag.Uint64Var(&seed, "seed", 0, "seed for key distribution and operations")
	flag.Float64Var(&phase1Ratio, "phase1Ratio", config.WORKLOAD_PHASE1_RATIO, "ratio of phase1 operations")
	flag.Float64Var(&deleteRatio, "deleteRatio", config.WORKLOAD_DELETE_RATIO, "ratio of remove operations")
	flag.IntVar(&nums, "nums", 1, "number of files to generate")
	flag.StringVar(&out, "out", "", "output directory (輸出目錄路徑)")
	flag.BoolVar(&simple, "simple", false, "keys are 0..n-1 instead of random uint32")
	flag.BoolVar(&distCSV, "csv", false, "also write the key distribution as CSV next to each file")
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

	// 只有明確指定的 flag 會覆蓋設定檔
	var parseErr error
	flag.Visit(func(f *flag.Flag) {
		w := &cfg.Workload
		switch f.Name {
		case "n":
			w.Keys, parseErr = parseScientificNotation(nStr)
		case "k":
			w.Ops, parseErr = parseScientificNotation(kStr)
		case "s":
			w.ZipfS = s
		case "v":
			w.ZipfV = v
		case "seed":
			w.Seed = seed
		case "phase1Ratio":
			w.Phase1Ratio = phase1Ratio
		case "deleteRatio":
			w.DeleteRatio = deleteRatio
		case "simple":
			w.SimpleKey = simple
		case "out":
			w.Output = out
		}
	})
	if parseErr != nil {
		logger.Fatal("parse flags", zap.Error(parseErr))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid workload", zap.Error(err))
	}

	if err := generate(logger, &cfg, nums, distCSV); err != nil {
		logger.Fatal("generate bench files", zap.Error(err))
	}
	logger.Info("完成!")
}

func generate(logger *zap.Logger, cfg *config.Config, nums int, distCSV bool) error {
	w := cfg.Workload
	if err := os.MkdirAll(w.Output, 0755); err != nil {
		return err
	}
	prefix := benchFileName(w.Keys, w.Ops, w.ZipfS, w.ZipfV, w.Phase1Ratio, w.DeleteRatio)
	logger.Info("生成參數",
		zap.Int("keys", w.Keys),
		zap.Int("ops", w.Ops),
		zap.Float64("s", w.ZipfS),
		zap.Float64("v", w.ZipfV),
		zap.Float64("phase1Ratio", w.Phase1Ratio),
		zap.Float64("deleteRatio", w.DeleteRatio),
		zap.Uint64("seed", w.Seed),
		zap.Int("nums", nums),
		zap.String("dir", w.Output),
	)

	for i := 0; i < nums; i++ {
		filename := prefix + ".bin"
		if nums > 1 {
			filename = fmt.Sprintf("%s_%d.bin", prefix, i)
		}
		outfile := filepath.Join(w.Output, filename)

		params := cfg.GenParams()
		params.Seed += uint64(i)
		info, err := datastream.GenerateBenchFile(outfile, params)
		if err != nil {
			return err
		}
		logger.Info("bench file written",
			zap.String("file", outfile),
			zap.Float64("entropy", info.Entropy))

		if distCSV {
			if err := writeDistCSV(outfile+".csv", info); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeDistCSV(path string, info *datastream.DistInfo) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := info.DistributeToCSV(w); err != nil {
		return err
	}
	return f.Close()
}
