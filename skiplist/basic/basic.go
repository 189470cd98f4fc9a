package basic

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/cadepowers99/Skip-List/skiplist"
)

const (
	maxLevel    = 32
	probability = 0.5
)

type basicNode[K skiplist.Ordered] struct {
	key  K
	next []*basicNode[K]
}

// BasicSkipList 傳統 skip list，高度不受節點數限制，只用來當 benchmark 的對照組
type BasicSkipList[K skiplist.Ordered] struct {
	head  *basicNode[K]
	level int32
	rand  *rand.Rand
	size  int
}

func NewBasicSkipList[K skiplist.Ordered](seed uint64) *BasicSkipList[K] {
	var zero K
	return &BasicSkipList[K]{
		head:  newNode(zero, maxLevel),
		level: 0,
		rand:  rand.New(rand.NewPCG(seed, 0)),
	}
}

func newNode[K skiplist.Ordered](key K, level int32) *basicNode[K] {
	return &basicNode[K]{
		key:  key,
		next: make([]*basicNode[K], level+1),
	}
}

func (sl *BasicSkipList[K]) find(key K) *basicNode[K] {
	cur := sl.head
	for h := sl.level; h >= 0; h-- {
		for cur.next[h] != nil && cmp.Less(cur.next[h].key, key) {
			cur = cur.next[h]
		}
		if cur.next[h] != nil && cmp.Compare(cur.next[h].key, key) == 0 {
			return cur.next[h]
		}
	}
	return nil
}

func (sl *BasicSkipList[K]) randomLevel() int32 {
	lvl := int32(0)
	for sl.rand.Float64() < probability && lvl < maxLevel {
		lvl++
	}
	return lvl
}

// Insert 插入 key，重複的 key 接在既有節點後面
func (sl *BasicSkipList[K]) Insert(key K) bool {
	lvl := sl.randomLevel()
	node := newNode(key, lvl)
	sl.level = max(sl.level, lvl)
	cur := sl.head
	for h := sl.level; h >= 0; h-- {
		for cur.next[h] != nil && cmp.Compare(cur.next[h].key, key) <= 0 {
			cur = cur.next[h]
		}
		if h <= lvl {
			node.next[h] = cur.next[h]
			cur.next[h] = node
		}
	}
	sl.size++
	return true
}

func (sl *BasicSkipList[K]) Contains(key K) bool {
	return sl.find(key) != nil
}

// Remove 刪除第一個相等的節點
func (sl *BasicSkipList[K]) Remove(key K) bool {
	var update [maxLevel + 1]*basicNode[K]
	cur := sl.head
	for h := sl.level; h >= 0; h-- {
		for cur.next[h] != nil && cmp.Less(cur.next[h].key, key) {
			cur = cur.next[h]
		}
		update[h] = cur
	}
	target := cur.next[0]
	if target == nil || cmp.Compare(target.key, key) != 0 {
		return false
	}
	for h := range target.next {
		update[h].next[h] = target.next[h]
	}
	sl.size--
	return true
}

func (sl *BasicSkipList[K]) Dump() string {
	var sb strings.Builder
	for n := sl.head.next[0]; n != nil; n = n.next[0] {
		fmt.Fprintf(&sb, "%v ", n.key)
		for _, next := range n.next {
			if next != nil {
				fmt.Fprintf(&sb, "(%v) ", next.key)
			} else {
				sb.WriteString("(------) ")
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("-> #\n")
	return sb.String()
}

func (sl *BasicSkipList[K]) Len() int {
	return sl.size
}

func (sl *BasicSkipList[K]) GetHeadAt(level int32) skiplist.Nodelike[K] {
	if level < 0 || level > maxLevel || sl.head.next[level] == nil {
		return nil
	}
	return sl.head.next[level]
}

func (sl *BasicSkipList[K]) GetMaxStats() (int, int) {
	return sl.size, int(sl.level)
}

func (nd *basicNode[K]) GetKey() K {
	return nd.key
}

func (nd *basicNode[K]) GetLevel() int32 {
	return int32(len(nd.next) - 1)
}

func (nd *basicNode[K]) GetNextAt(level int32) skiplist.Nodelike[K] {
	if level < 0 || level >= int32(len(nd.next)) {
		return nil
	}
	if nd.next[level] == nil {
		return nil
	}
	return nd.next[level]
}
