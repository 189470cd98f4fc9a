package leveled

import (
	"github.com/pkg/errors"

	"github.com/cadepowers99/Skip-List/skiplist"
)

// arena 以固定大小的 chunk 配置節點，chunk 不會搬移，所以節點指標在回收前都有效。
// 被移除的節點放進 recycled，下次配置優先重用。
type arena[K skiplist.Ordered] struct {
	chunks   [][]LeveledNode[K]
	recycled []*LeveledNode[K]
	chunkCap int
	offset   int // 最後一個 chunk 已使用的位置
	limit    int // 同時存活的節點上限，0 表示不限制
	live     int
}

func newArena[K skiplist.Ordered](chunkCap, limit int) *arena[K] {
	return &arena[K]{
		chunkCap: chunkCap,
		limit:    limit,
		chunks:   make([][]LeveledNode[K], 0, 8),
	}
}

// allocate 取得一個高度為 height 的節點，超過 limit 時回傳 false
func (a *arena[K]) allocate(key K, height int) (*LeveledNode[K], bool) {
	if height < 1 {
		panic(errors.Wrapf(ErrLevelOutOfRange, "node height %d must be at least 1", height))
	}
	if a.full() {
		return nil, false
	}

	var n *LeveledNode[K]
	if l := len(a.recycled); l > 0 {
		n = a.recycled[l-1]
		a.recycled[l-1] = nil
		a.recycled = a.recycled[:l-1]
	} else {
		if len(a.chunks) == 0 || a.offset >= a.chunkCap {
			a.chunks = append(a.chunks, make([]LeveledNode[K], a.chunkCap))
			a.offset = 0
		}
		n = &a.chunks[len(a.chunks)-1][a.offset]
		a.offset++
	}
	n.init(key, height)
	a.live++
	return n, true
}

func (a *arena[K]) full() bool {
	return a.limit > 0 && a.live >= a.limit
}

// free 每個節點只能回收一次
func (a *arena[K]) free(n *LeveledNode[K]) {
	if n.Height() == 0 {
		panic(errDoubleFree)
	}
	n.reset()
	a.recycled = append(a.recycled, n)
	a.live--
}

func (a *arena[K]) reset() {
	clear(a.chunks)
	a.chunks = a.chunks[:0]
	a.recycled = nil
	a.offset = 0
	a.live = 0
}

func (a *arena[K]) chunkLen() int {
	return len(a.chunks)
}

func (a *arena[K]) recLen() int {
	return len(a.recycled)
}
