package leveled

import (
	"cmp"
	"math/bits"
	"math/rand/v2"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cadepowers99/Skip-List/skiplist"
)

// MaxHeight 結構上的高度上限，heads 陣列的大小
const MaxHeight = 64

const endMarker = "-> #\n"

var _ skiplist.Analyable[int] = (*List[int])(nil)

// List 以 coin flip 決定節點高度的 skip list。
// 節點高度受目前節點數限制：插入前有 n 個節點時，高度最多 floor(log2(n))+1。
// 不支援併發存取。
type List[K skiplist.Ordered] struct {
	heads     [MaxHeight]*LeveledNode[K]
	nodeCount int
	topLevel  int
	ceiling   int
	rand      *rand.Rand
	arena     *arena[K]
	logger    *zap.Logger
}

// New 建立空的 List，設定不合法時回傳錯誤
func New[K skiplist.Ordered](opts ...Option) (*List[K], error) {
	o := &options{
		chunk:   defaultArenaChunk,
		ceiling: MaxHeight,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	if o.rand == nil {
		o.rand = rand.New(rand.NewPCG(cryptoSeed(), cryptoSeed()))
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return &List[K]{
		ceiling: o.ceiling,
		rand:    o.rand,
		arena:   newArena[K](o.chunk, o.maxNodes),
		logger:  o.logger,
	}, nil
}

// heightCap n 個節點時允許的最大高度
func heightCap(n int) int {
	if n <= 0 {
		return 1
	}
	return bits.Len(uint(n))
}

func (l *List[K]) flip() bool {
	return l.rand.Uint64()&1 == 1
}

func (l *List[K]) chooseHeight() int {
	limit := heightCap(l.nodeCount)
	h := 1
	for h < limit && l.flip() {
		h++
	}
	if h > l.ceiling {
		panic(errors.Wrapf(ErrStructuralOverflow, "height %d, ceiling %d", h, l.ceiling))
	}
	return h
}

// startAt 在 level 層從 prev 之後開始走，prev 為 nil 代表從 head 開始
func (l *List[K]) startAt(prev *LeveledNode[K], level int) *LeveledNode[K] {
	if prev == nil {
		return l.heads[level]
	}
	return prev.mustNext(level)
}

// Search 回傳第一個 key 相等的節點，找不到回傳 nil。
// 回傳的節點在下一次 Insert/Remove/Release 之前有效。
func (l *List[K]) Search(key K) *LeveledNode[K] {
	var prev *LeveledNode[K]
	for level := l.topLevel; level >= 0; level-- {
		cur := l.startAt(prev, level)
		for cur != nil && cmp.Less(cur.key, key) {
			prev = cur
			cur = cur.mustNext(level)
		}
		if cur != nil && cmp.Compare(cur.key, key) == 0 {
			return cur
		}
	}
	return nil
}

func (l *List[K]) Contains(key K) bool {
	return l.Search(key) != nil
}

// Insert 插入 key，相同的 key 會排在既有節點之後。
// 節點數達到上限時回傳 false，List 不變。
func (l *List[K]) Insert(key K) bool {
	var node *LeveledNode[K]
	ok := !l.arena.full()
	if ok {
		node, ok = l.arena.allocate(key, l.chooseHeight())
	}
	if !ok {
		l.logger.Warn("node allocation refused", zap.Int("nodes", l.nodeCount))
		return false
	}
	h := node.Height()
	if h-1 > l.topLevel {
		l.logger.Debug("top level raised",
			zap.Int("from", l.topLevel),
			zap.Int("to", h-1))
		l.topLevel = h - 1
	}

	var prev *LeveledNode[K]
	for level := l.topLevel; level >= 0; level-- {
		cur := l.startAt(prev, level)
		for cur != nil && cmp.Compare(cur.key, key) <= 0 {
			prev = cur
			cur = cur.mustNext(level)
		}
		if level >= h {
			continue
		}
		node.mustSetNext(level, cur)
		if prev == nil {
			l.heads[level] = node
		} else {
			prev.mustSetNext(level, node)
		}
	}
	l.nodeCount++
	return true
}

// Remove 移除第一個 key 相等的節點，不存在時回傳 false。
// topLevel 不會因此降低。
func (l *List[K]) Remove(key K) bool {
	var (
		preds [MaxHeight]*LeveledNode[K]
		prev  *LeveledNode[K]
		cur   *LeveledNode[K]
	)
	for level := l.topLevel; level >= 0; level-- {
		cur = l.startAt(prev, level)
		for cur != nil && cmp.Less(cur.key, key) {
			prev = cur
			cur = cur.mustNext(level)
		}
		preds[level] = prev
	}
	if cur == nil || cmp.Compare(cur.key, key) != 0 {
		return false
	}

	target := cur
	for level := target.Height() - 1; level >= 0; level-- {
		next := target.mustNext(level)
		if pred := preds[level]; pred == nil {
			l.heads[level] = next
		} else {
			pred.mustSetNext(level, next)
		}
	}
	l.arena.free(target)
	l.nodeCount--
	return true
}

// Dump 沿著第 0 層輸出每個節點，最後接上 "-> #"
func (l *List[K]) Dump() string {
	var sb strings.Builder
	for n := l.heads[0]; n != nil; n = n.mustNext(0) {
		n.render(&sb)
	}
	sb.WriteString(endMarker)
	return sb.String()
}

func (l *List[K]) String() string {
	return l.Dump()
}

// Foreach 依序走訪每個節點，action 回傳 false 時停止
func (l *List[K]) Foreach(action func(i int, n *LeveledNode[K]) bool) {
	i := 0
	for n := l.heads[0]; n != nil; n = n.mustNext(0) {
		if !action(i, n) {
			return
		}
		i++
	}
}

// Release 回收所有節點，之後 List 為空且可以繼續使用
func (l *List[K]) Release() {
	freed := 0
	for n := l.heads[0]; n != nil; {
		next := n.mustNext(0)
		l.arena.free(n)
		n = next
		freed++
	}
	clear(l.heads[:])
	l.nodeCount = 0
	l.topLevel = 0
	l.arena.reset()
	l.logger.Debug("list released", zap.Int("nodes", freed))
}

func (l *List[K]) Len() int {
	return l.nodeCount
}

// TopLevel 目前使用中的最高層 index
func (l *List[K]) TopLevel() int {
	return l.topLevel
}

// GetMaxStats 實現 Analyable 介面
func (l *List[K]) GetMaxStats() (int, int) {
	return l.nodeCount, l.topLevel
}

func (l *List[K]) GetHeadAt(level int32) skiplist.Nodelike[K] {
	if level < 0 || level >= MaxHeight || l.heads[level] == nil {
		return nil
	}
	return l.heads[level]
}
