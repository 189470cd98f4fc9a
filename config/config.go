package config

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"

	"github.com/cadepowers99/Skip-List/datastream"
	"github.com/cadepowers99/Skip-List/skiplist/leveled"
)

// default values
const (
	LIST_ARENA_CHUNK = 256
	LIST_CEILING     = leveled.MaxHeight

	DEMO_RANDOM_KEYS = 50
	DEMO_KEY_RANGE   = 1000
	DEMO_PROBE_KEY   = 12

	WORKLOAD_KEYS         = 1000
	WORKLOAD_ZIPF_S       = 1.2
	WORKLOAD_ZIPF_V       = 1.0
	WORKLOAD_OPS          = 100000
	WORKLOAD_PHASE1_RATIO = 0.5
	WORKLOAD_DELETE_RATIO = 0.05
	WORKLOAD_OUTPUT       = "bench"

	BENCH_DIR = "bench"

	LOG_LEVEL   = "info"
	LOG_ENCODER = "console"
)

var (
	DEMO_FIXED_KEYS = []int64{12, 123}
	BENCH_IMPLS     = []string{"leveled", "basic"}
)

var ErrInvalidConfig = errors.New("[config] invalid config")

type ListConfig struct {
	// Seed 為 0 時由 crypto/rand 產生
	Seed       uint64 `yaml:"seed"`
	ArenaChunk int    `yaml:"arena_chunk"`
	MaxNodes   int    `yaml:"max_nodes"`
	Ceiling    int    `yaml:"ceiling"`
}

type DemoConfig struct {
	RandomKeys int     `yaml:"random_keys"`
	KeyRange   int64   `yaml:"key_range"`
	FixedKeys  []int64 `yaml:"fixed_keys"`
	ProbeKey   int64   `yaml:"probe_key"`
}

type WorkloadConfig struct {
	Keys        int     `yaml:"keys"`
	ZipfS       float64 `yaml:"zipf_s"`
	ZipfV       float64 `yaml:"zipf_v"`
	Ops         int     `yaml:"ops"`
	Phase1Ratio float64 `yaml:"phase1_ratio"`
	DeleteRatio float64 `yaml:"delete_ratio"`
	SimpleKey   bool    `yaml:"simple_key"`
	Seed        uint64  `yaml:"seed"`
	Output      string  `yaml:"output"`
}

type BenchConfig struct {
	Dir     string   `yaml:"dir"`
	Impls   []string `yaml:"impls"`
	Workers int      `yaml:"workers"`
	Seed    uint64   `yaml:"seed"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Encoder string `yaml:"encoder"`
}

type Config struct {
	List     ListConfig     `yaml:"list"`
	Demo     DemoConfig     `yaml:"demo"`
	Workload WorkloadConfig `yaml:"workload"`
	Bench    BenchConfig    `yaml:"bench"`
	Log      LogConfig      `yaml:"log"`
}

func GetDefault() Config {
	var config Config
	config.List.ArenaChunk = LIST_ARENA_CHUNK
	config.List.Ceiling = LIST_CEILING
	config.Demo.RandomKeys = DEMO_RANDOM_KEYS
	config.Demo.KeyRange = DEMO_KEY_RANGE
	config.Demo.FixedKeys = append([]int64(nil), DEMO_FIXED_KEYS...)
	config.Demo.ProbeKey = DEMO_PROBE_KEY
	config.Workload.Keys = WORKLOAD_KEYS
	config.Workload.ZipfS = WORKLOAD_ZIPF_S
	config.Workload.ZipfV = WORKLOAD_ZIPF_V
	config.Workload.Ops = WORKLOAD_OPS
	config.Workload.Phase1Ratio = WORKLOAD_PHASE1_RATIO
	config.Workload.DeleteRatio = WORKLOAD_DELETE_RATIO
	config.Workload.Output = WORKLOAD_OUTPUT
	config.Bench.Dir = BENCH_DIR
	config.Bench.Impls = append([]string(nil), BENCH_IMPLS...)
	config.Log.Level = LOG_LEVEL
	config.Log.Encoder = LOG_ENCODER
	return config
}

// Load 讀取 YAML 設定，未列出的欄位保留預設值。
// 檔案不存在時使用預設值，格式錯誤或驗證失敗時回傳錯誤。
func Load(filePath string) (*Config, error) {
	config := GetDefault()

	configData, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &config, nil
		}
		return nil, errors.Wrapf(err, "read config %s", filePath)
	}
	if err := yaml.UnmarshalStrict(configData, &config); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", filePath)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate 回傳所有不合法的欄位，而非只有第一個
func (cfg *Config) Validate() error {
	var merr error

	if _, err := leveled.New[int64](cfg.ListOptions()...); err != nil {
		merr = multierr.Append(merr, errors.Wrap(err, "list config"))
	}

	if cfg.Demo.RandomKeys < 0 {
		merr = multierr.Append(merr, errors.Wrapf(ErrInvalidConfig, "demo config: random keys must not be negative, but %d was given", cfg.Demo.RandomKeys))
	}
	if cfg.Demo.KeyRange <= 0 {
		merr = multierr.Append(merr, errors.Wrapf(ErrInvalidConfig, "demo config: key range must be a positive number, but %d was given", cfg.Demo.KeyRange))
	}

	params := cfg.GenParams()
	if _, err := datastream.NewGenerator(params); err != nil {
		merr = multierr.Append(merr, errors.Wrap(err, "workload config"))
	} else if err := params.Validate(params.N); err != nil {
		merr = multierr.Append(merr, errors.Wrap(err, "workload config"))
	}
	if cfg.Workload.Output == "" {
		merr = multierr.Append(merr, errors.Wrap(ErrInvalidConfig, "workload config: output cannot be an empty string"))
	}

	if len(cfg.Bench.Impls) == 0 {
		merr = multierr.Append(merr, errors.Wrap(ErrInvalidConfig, "bench config: at least one impl is required"))
	}
	for _, impl := range cfg.Bench.Impls {
		if impl != "leveled" && impl != "basic" {
			merr = multierr.Append(merr, errors.Wrapf(ErrInvalidConfig, "bench config: unknown impl %q", impl))
		}
	}
	if cfg.Bench.Workers < 0 {
		merr = multierr.Append(merr, errors.Wrapf(ErrInvalidConfig, "bench config: workers must not be negative, but %d was given", cfg.Bench.Workers))
	}

	if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
		merr = multierr.Append(merr, errors.Wrap(err, "log config"))
	}
	if cfg.Log.Encoder != "console" && cfg.Log.Encoder != "json" {
		merr = multierr.Append(merr, errors.Wrapf(ErrInvalidConfig, "log config: unknown encoder %q", cfg.Log.Encoder))
	}
	return merr
}

func (cfg Config) Dump(filePath string) error {
	configData, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	return errors.Wrapf(os.WriteFile(filePath, configData, 0644), "dump config %s", filePath)
}

// ListOptions 轉成 leveled.New 的選項
func (cfg *Config) ListOptions() []leveled.Option {
	opts := []leveled.Option{
		leveled.WithArenaChunk(cfg.List.ArenaChunk),
		leveled.WithMaxNodes(cfg.List.MaxNodes),
		leveled.WithCeiling(cfg.List.Ceiling),
	}
	if cfg.List.Seed != 0 {
		opts = append(opts, leveled.WithSeed(cfg.List.Seed))
	}
	return opts
}

// GenParams 轉成 datastream 的產生參數
func (cfg *Config) GenParams() datastream.GenParams {
	w := cfg.Workload
	return datastream.GenParams{
		N:         w.Keys,
		S:         w.ZipfS,
		V:         w.ZipfV,
		SimpleKey: w.SimpleKey,
		OpParams: datastream.OpParams{
			K:           w.Ops,
			Phase1Ratio: w.Phase1Ratio,
			DeleteRatio: w.DeleteRatio,
			Seed:        w.Seed,
		},
	}
}
