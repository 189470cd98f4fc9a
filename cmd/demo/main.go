package main

import (
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cadepowers99/Skip-List/config"
	"github.com/cadepowers99/Skip-List/skiplist/analyTool"
	"github.com/cadepowers99/Skip-List/skiplist/leveled"
	"github.com/cadepowers99/Skip-List/xlog"
)

func main() {
	var cfgPath string
	var randomKeys int
	var probe int64
	var seed uint64

	flag.StringVar(&cfgPath, "config", "", "YAML config file, flags override its demo section")
	flag.IntVar(&randomKeys, "n", config.DEMO_RANDOM_KEYS, "number of random keys to insert")
	flag.Int64Var(&probe, "probe", config.DEMO_PROBE_KEY, "key to search for and then remove")
	flag.Uint64Var(&seed, "seed", 0, "seed for the list and the random keys (0 = random)")
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

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "n":
			cfg.Demo.RandomKeys = randomKeys
		case "probe":
			cfg.Demo.ProbeKey = probe
		case "seed":
			cfg.List.Seed = seed
		}
	})
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	if err := run(os.Stdout, &cfg, logger); err != nil {
		logger.Fatal("demo", zap.Error(err))
	}
}

// run 插入隨機 key 與固定 key，印出 list，再查找並移除 probe key
func run(w io.Writer, cfg *config.Config, logger *zap.Logger) error {
	opts := append(cfg.ListOptions(), leveled.WithLogger(logger))
	l, err := leveled.New[int64](opts...)
	if err != nil {
		return err
	}
	defer l.Release()

	keySrc := rand.New(rand.NewPCG(cfg.List.Seed, 2))
	if cfg.List.Seed == 0 {
		keySrc = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	d := cfg.Demo
	for i := 0; i < d.RandomKeys; i++ {
		l.Insert(keySrc.Int64N(d.KeyRange))
	}
	for _, k := range d.FixedKeys {
		if !l.Insert(k) {
			logger.Warn("fixed key not inserted", zap.Int64("key", k))
		}
	}
	logger.Info("keys inserted",
		zap.Int("nodes", l.Len()),
		zap.Int("topLevel", l.TopLevel()))

	fmt.Fprint(w, l.Dump())

	node := l.Search(d.ProbeKey)
	if node == nil {
		fmt.Fprintf(w, "%d not found\n", d.ProbeKey)
	} else {
		fmt.Fprintf(w, "found %s", node.Render())
	}

	before := countKey(l, d.ProbeKey)
	if l.Remove(d.ProbeKey) {
		if after := countKey(l, d.ProbeKey); after != before-1 {
			return errors.Errorf("%d: %d copies before remove, %d after", d.ProbeKey, before, after)
		}
		fmt.Fprintf(w, "%d removed\n", d.ProbeKey)
	} else {
		fmt.Fprintf(w, "%d not removed\n", d.ProbeKey)
	}

	if err := analyTool.CheckStruct[int64](l); err != nil {
		return err
	}
	analyTool.LevelTable[int64](w, l)
	return nil
}

// countKey 計算 key 相等的節點數
func countKey(l *leveled.List[int64], key int64) int {
	count := 0
	l.Foreach(func(_ int, n *leveled.LeveledNode[int64]) bool {
		if n.GetKey() == key {
			count++
		}
		return n.GetKey() <= key
	})
	return count
}
