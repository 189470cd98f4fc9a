package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/cadepowers99/Skip-List/datastream"
	"github.com/cadepowers99/Skip-List/skiplist/leveled"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := GetDefault()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []int64{12, 123}, cfg.Demo.FixedKeys)
	assert.Equal(t, 50, cfg.Demo.RandomKeys)
	assert.Equal(t, int64(12), cfg.Demo.ProbeKey)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, GetDefault(), *cfg)
}

func TestLoadPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	data := []byte(`
list:
  seed: 7
  max_nodes: 8
  ceiling: 3
log:
  level: debug
  encoder: json
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), cfg.List.Seed)
	assert.Equal(t, 3, cfg.List.Ceiling)
	assert.Equal(t, LIST_ARENA_CHUNK, cfg.List.ArenaChunk)
	assert.Equal(t, "json", cfg.Log.Encoder)
	assert.Equal(t, WORKLOAD_OPS, cfg.Workload.Ops)

	l, err := leveled.New[int](cfg.ListOptions()...)
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		require.True(t, l.Insert(i))
	}
	assert.False(t, l.Insert(8))
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("list:\n  height: 3\n"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := GetDefault()
	cfg.List.Ceiling = 3
	cfg.Demo.KeyRange = 0
	cfg.Workload.Ops = 10
	cfg.Bench.Impls = []string{"leveled", "splay"}
	cfg.Log.Level = "loud"
	cfg.Log.Encoder = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	errs := multierr.Errors(err)
	assert.Len(t, errs, 6)
	assert.True(t, errors.Is(err, leveled.ErrStructuralOverflow))
	assert.True(t, errors.Is(err, datastream.ErrInvalidParams))
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestDumpAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.yaml")
	cfg := GetDefault()
	cfg.Bench.Workers = 4
	cfg.Workload.ZipfS = 0
	require.NoError(t, cfg.Dump(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, *loaded)
}

func TestGenParams(t *testing.T) {
	cfg := GetDefault()
	cfg.Workload.Keys = 10
	cfg.Workload.Ops = 40
	p := cfg.GenParams()
	assert.Equal(t, 10, p.N)
	assert.Equal(t, 40, p.K)
	assert.Equal(t, WORKLOAD_ZIPF_S, p.S)
	require.NoError(t, p.Validate(p.N))
}
