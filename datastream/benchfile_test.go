package datastream

import (
	"bytes"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkOpRules(t *testing.T, ops []Operation) {
	t.Helper()
	present := map[int64]bool{}
	for i, op := range ops {
		switch op.Type {
		case OpInsert:
			require.False(t, present[op.Key], "op[%d] insert of present key %d", i, op.Key)
			present[op.Key] = true
		case OpRemove:
			require.True(t, present[op.Key], "op[%d] remove of absent key %d", i, op.Key)
			present[op.Key] = false
		case OpSearch:
			require.True(t, present[op.Key], "op[%d] search of absent key %d", i, op.Key)
		default:
			t.Fatalf("op[%d] unknown type %v", i, op.Type)
		}
	}
}

func TestWriteAndReadBenchFile(t *testing.T) {
	testcases := []struct {
		name string
		p    GenParams
	}{
		{
			name: "zipf simple keys",
			p: GenParams{N: 8, S: 1.2, V: 1.0, SimpleKey: true,
				OpParams: OpParams{K: 200, Phase1Ratio: 0.5, DeleteRatio: 0.1, Seed: 42}},
		},
		{
			name: "zipf random keys",
			p: GenParams{N: 64, S: 0.8, V: 2.0,
				OpParams: OpParams{K: 1000, Phase1Ratio: 0.3, DeleteRatio: 0.2, Seed: 7}},
		},
		{
			name: "uniform",
			p: GenParams{N: 16, S: 0, SimpleKey: true,
				OpParams: OpParams{K: 64, Phase1Ratio: 1.0, DeleteRatio: 0.5, Seed: 3}},
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			file := filepath.Join(tt.TempDir(), "bench.bin")
			info, err := GenerateBenchFile(file, tc.p)
			require.NoError(tt, err)
			require.Len(tt, info.Dist, tc.p.N)

			bf, err := ReadBenchFile(file)
			require.NoError(tt, err)
			assert.Equal(tt, info.Dist, bf.Dist)
			assert.InDelta(tt, info.Entropy, EntropyFromDist(bf.Dist), 1e-12)
			require.Len(tt, bf.Ops, tc.p.K)
			checkOpRules(tt, bf.Ops)

			// 每個分布中的 key 至少出現一次
			seen := map[int64]struct{}{}
			for _, op := range bf.Ops {
				seen[op.Key] = struct{}{}
			}
			for k := range bf.Dist {
				assert.Contains(tt, seen, k)
			}

			var sum float64
			for _, w := range bf.Dist {
				sum += w
			}
			assert.InDelta(tt, 1.0, sum, 1e-9)
		})
	}
}

func TestGenerateBenchFileDeterministic(t *testing.T) {
	dir := t.TempDir()
	p := GenParams{N: 32, S: 1.1, V: 1.0, OpParams: OpParams{K: 500, Phase1Ratio: 0.5, DeleteRatio: 0.1, Seed: 9}}

	a, b := filepath.Join(dir, "a.bin"), filepath.Join(dir, "b.bin")
	_, err := GenerateBenchFile(a, p)
	require.NoError(t, err)
	_, err = GenerateBenchFile(b, p)
	require.NoError(t, err)

	ab, err := os.ReadFile(a)
	require.NoError(t, err)
	bb, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, ab, bb)
}

func TestGenerateBenchFileInvalidParams(t *testing.T) {
	testcases := []struct {
		name string
		p    GenParams
	}{
		{name: "zero n", p: GenParams{N: 0, OpParams: OpParams{K: 10, Phase1Ratio: 1}}},
		{name: "k below n", p: GenParams{N: 10, S: 1.2, V: 1, OpParams: OpParams{K: 5, Phase1Ratio: 1}}},
		{name: "phase1 too small", p: GenParams{N: 10, S: 1.2, V: 1, OpParams: OpParams{K: 100, Phase1Ratio: 0.05}}},
		{name: "phase1 too large", p: GenParams{N: 10, S: 1.2, V: 1, OpParams: OpParams{K: 100, Phase1Ratio: 1.5}}},
		{name: "bad delete ratio", p: GenParams{N: 10, S: 1.2, V: 1, OpParams: OpParams{K: 100, Phase1Ratio: 0.5, DeleteRatio: 2}}},
		{name: "bad zipf v", p: GenParams{N: 10, S: 1.2, V: 0, OpParams: OpParams{K: 100, Phase1Ratio: 0.5}}},
		{name: "negative s", p: GenParams{N: 10, S: -1, V: 1, OpParams: OpParams{K: 100, Phase1Ratio: 0.5}}},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			file := filepath.Join(tt.TempDir(), "bench.bin")
			_, err := GenerateBenchFile(file, tc.p)
			assert.True(tt, errors.Is(err, ErrInvalidParams), "got %v", err)
			assert.NoFileExists(tt, file)
		})
	}
}

func encodeSample(t *testing.T) []byte {
	t.Helper()
	bf := &BenchFile{
		Dist: map[int64]float64{3: 0.25, 1: 0.75},
		Ops: []Operation{
			{Type: OpInsert, Key: 1},
			{Type: OpInsert, Key: 3},
			{Type: OpSearch, Key: 1},
			{Type: OpRemove, Key: 3},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, bf.Encode(&buf))
	return buf.Bytes()
}

func TestBenchFileLayout(t *testing.T) {
	raw := encodeSample(t)
	// header 12 + count 4 + 2*16 + count 8 + 4*9 + checksum 8
	require.Len(t, raw, 12+4+32+8+36+8)
	assert.Equal(t, "LVLBENCH", string(raw[:8]))

	bf, err := DecodeBenchFile(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, map[int64]float64{1: 0.75, 3: 0.25}, bf.Dist)
	assert.Equal(t, OpRemove, bf.Ops[3].Type)
	assert.Equal(t, int64(3), bf.Ops[3].Key)
}

func TestDecodeBenchFileErrors(t *testing.T) {
	raw := encodeSample(t)

	mutate := func(f func(b []byte) []byte) []byte {
		cp := append([]byte(nil), raw...)
		return f(cp)
	}
	testcases := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{name: "bad magic", data: mutate(func(b []byte) []byte { b[0] = 'X'; return b }), wantErr: ErrInvalidMagic},
		{name: "bad version", data: mutate(func(b []byte) []byte { b[8] = 1; return b }), wantErr: ErrUnsupportedVersion},
		{name: "flipped weight", data: mutate(func(b []byte) []byte { b[30] ^= 0xff; return b }), wantErr: ErrChecksumMismatch},
		{name: "flipped op key", data: mutate(func(b []byte) []byte { b[len(b)-12] ^= 0x01; return b }), wantErr: ErrChecksumMismatch},
		{name: "truncated", data: raw[:len(raw)-3], wantErr: nil},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			_, err := DecodeBenchFile(bytes.NewReader(tc.data))
			require.Error(tt, err)
			if tc.wantErr != nil {
				assert.True(tt, errors.Is(err, tc.wantErr), "got %v", err)
			}
		})
	}
}

func TestSequenceModel(t *testing.T) {
	ops := []Operation{{OpInsert, 1}, {OpInsert, 2}, {OpSearch, 1}, {OpRemove, 2}, {OpSearch, 1}}
	bf := &BenchFile{Ops: ops}
	m := bf.ToSequenceModel()
	assert.Equal(t, 5, m.Len())

	op, ok := m.Next()
	require.True(t, ok)
	assert.Equal(t, ops[0], op)

	assert.Equal(t, ops[1:3], m.NextN(2))
	assert.Equal(t, ops[3:], m.NextN(10))
	assert.Nil(t, m.NextN(1))
	_, ok = m.Next()
	assert.False(t, ok)

	m.Reset()
	op, ok = m.Next()
	require.True(t, ok)
	assert.Equal(t, ops[0], op)

	// 外部修改不影響模型
	ops[0].Key = 99
	m.Reset()
	op, _ = m.Next()
	assert.Equal(t, int64(1), op.Key)

	assert.Equal(t, 0, (*BenchFile)(nil).ToSequenceModel().Len())
}

func TestDistInfoToCSV(t *testing.T) {
	info := &DistInfo{Dist: map[int64]float64{2: 0.5, 1: 0.5}}
	var buf strings.Builder
	w := csv.NewWriter(&buf)
	require.NoError(t, info.DistributeToCSV(w))
	assert.Equal(t, "key,1,2\nprob,0.500000,0.500000\n", buf.String())
}

func TestEntropyFromDist(t *testing.T) {
	assert.InDelta(t, 2.0, EntropyFromDist(map[int64]float64{1: .25, 2: .25, 3: .25, 4: .25}), 1e-12)
	assert.InDelta(t, 0.0, EntropyFromDist(map[int64]float64{1: 1, 2: 0}), 1e-12)
	assert.False(t, math.IsNaN(EntropyFromDist(nil)))
}
