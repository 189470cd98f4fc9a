package leveled

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestList(t *testing.T, seed uint64, opts ...Option) *List[int] {
	t.Helper()
	l, err := New[int](append([]Option{WithSeed(seed)}, opts...)...)
	require.NoError(t, err)
	return l
}

func listKeys[K int | string](l *List[K]) []K {
	keys := make([]K, 0, l.Len())
	l.Foreach(func(_ int, n *LeveledNode[K]) bool {
		keys = append(keys, n.GetKey())
		return true
	})
	return keys
}

// checkLinks 每一層都必須是有序的，且節點只出現在高度涵蓋的層
func checkLinks(t *testing.T, l *List[int]) {
	t.Helper()
	for level := 0; level < MaxHeight; level++ {
		prev := l.heads[level]
		if level > l.topLevel {
			assert.Nil(t, prev, "level %d above top level should be empty", level)
			continue
		}
		for prev != nil {
			require.Greater(t, prev.Height(), level)
			next := prev.mustNext(level)
			if next != nil {
				assert.LessOrEqual(t, prev.GetKey(), next.GetKey(), "level %d out of order", level)
			}
			prev = next
		}
	}
}

func TestList_Scenarios(t *testing.T) {
	t.Run("insert then search", func(tt *testing.T) {
		l := newTestList(tt, 1)
		require.True(tt, l.Insert(12))
		require.True(tt, l.Insert(123))

		n := l.Search(12)
		require.NotNil(tt, n)
		assert.Equal(tt, 12, n.GetKey())
	})

	t.Run("remove then search", func(tt *testing.T) {
		l := newTestList(tt, 1)
		require.True(tt, l.Insert(12))
		require.True(tt, l.Insert(123))

		assert.True(tt, l.Remove(12))
		assert.Nil(tt, l.Search(12))
		n := l.Search(123)
		require.NotNil(tt, n)
		assert.Equal(tt, 123, n.GetKey())
	})

	t.Run("empty list", func(tt *testing.T) {
		l := newTestList(tt, 1)
		assert.Nil(tt, l.Search(999))
		assert.False(tt, l.Remove(999))
		assert.Equal(tt, 0, l.Len())
		assert.Equal(tt, endMarker, l.Dump())
	})

	t.Run("duplicates", func(tt *testing.T) {
		l := newTestList(tt, 1)
		for _, k := range []int{5, 3, 8, 1, 1} {
			require.True(tt, l.Insert(k))
		}
		assert.Equal(tt, []int{1, 1, 3, 5, 8}, listKeys(l))
		assert.Equal(tt, 5, l.Len())
		checkLinks(tt, l)
	})

	t.Run("remove all", func(tt *testing.T) {
		l := newTestList(tt, 7)
		const n = 500
		r := rand.New(rand.NewPCG(7, 0))
		keys := r.Perm(n)
		for _, k := range keys {
			require.True(tt, l.Insert(k))
		}
		r.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
		for _, k := range keys {
			require.True(tt, l.Remove(k), "remove %d", k)
		}
		assert.Equal(tt, 0, l.Len())
		for level := 0; level < MaxHeight; level++ {
			assert.Nil(tt, l.heads[level], "head %d", level)
		}
		assert.Equal(tt, endMarker, l.Dump())
	})
}

func TestList_Properties(t *testing.T) {
	for _, seed := range []uint64{1, 2, 3, 42, 2024} {
		r := rand.New(rand.NewPCG(seed, 1))
		l := newTestList(t, seed)
		var want []int

		for i := 0; i < 2000; i++ {
			key := r.IntN(300)
			if r.IntN(3) == 0 {
				idx := slices.Index(want, key)
				removed := l.Remove(key)
				assert.Equal(t, idx >= 0, removed, "seed %d remove %d", seed, key)
				if idx >= 0 {
					want = slices.Delete(want, idx, idx+1)
				}
				continue
			}
			require.True(t, l.Insert(key))
			n := l.Search(key)
			require.NotNil(t, n, "seed %d search %d after insert", seed, key)
			assert.Equal(t, key, n.GetKey())
			want = append(want, key)
		}

		slices.Sort(want)
		assert.Equal(t, want, listKeys(l), "seed %d", seed)
		assert.Equal(t, len(want), l.Len())
		checkLinks(t, l)

		for _, k := range want {
			assert.True(t, l.Contains(k))
		}
	}
}

func TestList_HeightBound(t *testing.T) {
	l := newTestList(t, 99)
	for i := 0; i < 4096; i++ {
		before := l.Len()
		require.True(t, l.Insert(i))
		n := l.Search(i)
		require.NotNil(t, n)
		assert.GreaterOrEqual(t, n.Height(), 1)
		assert.LessOrEqual(t, n.Height(), heightCap(before), "insert #%d", i)
		assert.LessOrEqual(t, l.TopLevel(), heightCap(before)-1)
	}
	// 第一、二個節點只能是高度 1
	first := l.Search(0)
	second := l.Search(1)
	assert.Equal(t, 1, first.Height())
	assert.Equal(t, 1, second.Height())
}

func TestList_HeightCap(t *testing.T) {
	testcases := []struct {
		n, want int
	}{
		{0, 1}, {1, 1}, {2, 2}, {3, 2}, {4, 3}, {7, 3}, {8, 4}, {1 << 20, 21},
	}
	for _, tc := range testcases {
		assert.Equal(t, tc.want, heightCap(tc.n), "n = %d", tc.n)
	}
}

func TestList_Deterministic(t *testing.T) {
	build := func() string {
		l := newTestList(t, 2024)
		for i := 0; i < 200; i++ {
			l.Insert((i * 37) % 101)
		}
		return l.Dump()
	}
	assert.Equal(t, build(), build())
}

func TestList_Dump(t *testing.T) {
	l := newTestList(t, 5)
	require.True(t, l.Insert(12))
	require.True(t, l.Insert(123))

	// 前兩個節點的高度必為 1
	assert.Equal(t, "12 (123) \n123 (------) \n-> #\n", l.Dump())
	assert.Equal(t, l.Dump(), l.String())
}

func TestList_Strings(t *testing.T) {
	l, err := New[string](WithSeed(3))
	require.NoError(t, err)
	for _, k := range []string{"pear", "apple", "fig", "apple"} {
		require.True(t, l.Insert(k))
	}
	assert.Equal(t, []string{"apple", "apple", "fig", "pear"}, listKeys(l))
	assert.True(t, l.Remove("apple"))
	assert.Equal(t, []string{"apple", "fig", "pear"}, listKeys(l))
	assert.False(t, l.Remove("kiwi"))
}

func TestList_DuplicateRemoveOrder(t *testing.T) {
	l := newTestList(t, 11)
	for i := 0; i < 64; i++ {
		require.True(t, l.Insert(i%4))
	}
	for i := 0; i < 16; i++ {
		require.True(t, l.Remove(2))
		checkLinks(t, l)
	}
	assert.False(t, l.Remove(2))
	assert.Equal(t, 48, l.Len())
	assert.Nil(t, l.Search(2))
}

func TestList_Foreach(t *testing.T) {
	l := newTestList(t, 1)
	for i := 10; i > 0; i-- {
		l.Insert(i)
	}
	var seen []int
	l.Foreach(func(i int, n *LeveledNode[int]) bool {
		assert.Equal(t, len(seen), i)
		seen = append(seen, n.GetKey())
		return i < 4
	})
	assert.Equal(t, []int{1, 2, 3, 4, 5}, seen)
}

func TestList_Release(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := newTestList(t, 8, WithLogger(zap.New(core)), WithArenaChunk(16))
	for i := 0; i < 100; i++ {
		l.Insert(i)
	}
	l.Release()

	assert.Equal(t, 0, l.Len())
	assert.Equal(t, 0, l.TopLevel())
	assert.Equal(t, endMarker, l.Dump())
	for level := 0; level < MaxHeight; level++ {
		assert.Nil(t, l.heads[level])
	}
	released := logs.FilterMessage("list released").All()
	require.Len(t, released, 1)
	assert.Equal(t, int64(100), released[0].ContextMap()["nodes"])

	// 回收後可以繼續使用
	require.True(t, l.Insert(3))
	assert.True(t, l.Contains(3))
}

func TestList_AllocationFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	l := newTestList(t, 1, WithMaxNodes(2), WithLogger(zap.New(core)))
	require.True(t, l.Insert(1))
	require.True(t, l.Insert(2))
	before := l.Dump()

	assert.False(t, l.Insert(3))
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, before, l.Dump())
	assert.Nil(t, l.Search(3))
	assert.Equal(t, 1, logs.FilterMessage("node allocation refused").Len())

	require.True(t, l.Remove(1))
	assert.True(t, l.Insert(3))
}

func TestList_TopLevelLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := newTestList(t, 3, WithLogger(zap.New(core)))
	for i := 0; i < 1000; i++ {
		l.Insert(i)
	}
	require.Greater(t, l.TopLevel(), 0)
	entries := logs.FilterMessage("top level raised").All()
	require.NotEmpty(t, entries)
	assert.Equal(t, int64(l.TopLevel()), entries[len(entries)-1].ContextMap()["to"])
}

func TestList_Options(t *testing.T) {
	testcases := []struct {
		name    string
		opts    []Option
		wantErr error
	}{
		{name: "default", opts: nil},
		{name: "zero ceiling", opts: []Option{WithCeiling(0)}, wantErr: ErrStructuralOverflow},
		{name: "ceiling above max", opts: []Option{WithCeiling(MaxHeight + 1)}, wantErr: ErrStructuralOverflow},
		{name: "low ceiling unlimited", opts: []Option{WithCeiling(3)}, wantErr: ErrStructuralOverflow},
		{name: "low ceiling fits", opts: []Option{WithCeiling(3), WithMaxNodes(8)}},
		{name: "low ceiling too many nodes", opts: []Option{WithCeiling(3), WithMaxNodes(9)}, wantErr: ErrStructuralOverflow},
		{name: "bad chunk", opts: []Option{WithArenaChunk(0)}, wantErr: ErrInvalidOption},
		{name: "negative max nodes", opts: []Option{WithMaxNodes(-1)}, wantErr: ErrInvalidOption},
		{name: "nil rand", opts: []Option{WithRand(nil)}, wantErr: ErrInvalidOption},
		{name: "nil logger", opts: []Option{WithLogger(nil)}, wantErr: ErrInvalidOption},
		{name: "injected rand", opts: []Option{WithRand(rand.New(rand.NewPCG(1, 2)))}},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			l, err := New[int](tc.opts...)
			if tc.wantErr != nil {
				assert.True(tt, errors.Is(err, tc.wantErr), "got %v", err)
				assert.Nil(tt, l)
				return
			}
			require.NoError(tt, err)
			require.True(tt, l.Insert(1))
		})
	}
}

func TestList_CeilingFilled(t *testing.T) {
	l := newTestList(t, 17, WithCeiling(3), WithMaxNodes(8))
	for i := 0; i < 8; i++ {
		require.True(t, l.Insert(i))
	}
	assert.False(t, l.Insert(8))
	assert.LessOrEqual(t, l.TopLevel(), 2)
}

func TestList_OverflowPanics(t *testing.T) {
	l := newTestList(t, 1)
	// 跳過 New 的檢查，直接壓低 ceiling
	l.ceiling = 1
	assert.Panics(t, func() {
		for i := 0; i < 256; i++ {
			l.Insert(i)
		}
	})
}

func TestList_AnalysisHooks(t *testing.T) {
	l := newTestList(t, 4)
	assert.Nil(t, l.GetHeadAt(0))
	assert.Nil(t, l.GetHeadAt(-1))
	assert.Nil(t, l.GetHeadAt(MaxHeight))

	for i := 0; i < 50; i++ {
		l.Insert(i)
	}
	nodes, top := l.GetMaxStats()
	assert.Equal(t, 50, nodes)
	assert.Equal(t, l.TopLevel(), top)

	head := l.GetHeadAt(0)
	require.NotNil(t, head)
	assert.Equal(t, 0, head.GetKey())
	assert.Nil(t, l.GetHeadAt(int32(top+1)))
}
