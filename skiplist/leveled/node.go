package leveled

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/cadepowers99/Skip-List/skiplist"
)

// noSuccessor 該層沒有下一個節點時的輸出
const noSuccessor = "------"

var _ skiplist.Nodelike[int] = (*LeveledNode[int])(nil)

// LeveledNode 存一個 key，以及每一層的 forward 指標。
// forward[0] 是最底層，長度等於節點高度，建立後不再改變。
type LeveledNode[K skiplist.Ordered] struct {
	key     K
	forward []*LeveledNode[K]
}

func (n *LeveledNode[K]) init(key K, height int) {
	n.key = key
	if cap(n.forward) >= height {
		n.forward = n.forward[:height]
		clear(n.forward)
		return
	}
	n.forward = make([]*LeveledNode[K], height)
}

// reset 回收前清掉 key 與指標，保留 forward 的容量給下次使用
func (n *LeveledNode[K]) reset() {
	var zero K
	n.key = zero
	clear(n.forward)
	n.forward = n.forward[:0]
}

func (n *LeveledNode[K]) GetKey() K {
	return n.key
}

func (n *LeveledNode[K]) SetKey(key K) {
	n.key = key
}

// Height 節點參與的層數
func (n *LeveledNode[K]) Height() int {
	return len(n.forward)
}

// GetNext 取得第 level 層的下一個節點，level 超出 [0, Height) 時回傳 ErrLevelOutOfRange
func (n *LeveledNode[K]) GetNext(level int) (*LeveledNode[K], error) {
	if level < 0 || level >= len(n.forward) {
		return nil, errors.Wrapf(ErrLevelOutOfRange, "get level %d of node with height %d", level, len(n.forward))
	}
	return n.forward[level], nil
}

// SetNext 設定第 level 層的下一個節點（非擁有關係）
func (n *LeveledNode[K]) SetNext(level int, next *LeveledNode[K]) error {
	if level < 0 || level >= len(n.forward) {
		return errors.Wrapf(ErrLevelOutOfRange, "set level %d of node with height %d", level, len(n.forward))
	}
	n.forward[level] = next
	return nil
}

func (n *LeveledNode[K]) mustNext(level int) *LeveledNode[K] {
	next, err := n.GetNext(level)
	if err != nil {
		panic(err)
	}
	return next
}

func (n *LeveledNode[K]) mustSetNext(level int, next *LeveledNode[K]) {
	if err := n.SetNext(level, next); err != nil {
		panic(err)
	}
}

// Render 輸出 "key (next) (------) ..."，每層一格
func (n *LeveledNode[K]) Render() string {
	var sb strings.Builder
	n.render(&sb)
	return sb.String()
}

func (n *LeveledNode[K]) render(sb *strings.Builder) {
	fmt.Fprintf(sb, "%v ", n.key)
	for _, next := range n.forward {
		if next != nil {
			fmt.Fprintf(sb, "(%v) ", next.key)
		} else {
			sb.WriteString("(" + noSuccessor + ") ")
		}
	}
	sb.WriteByte('\n')
}

// GetLevel 實現 Nodelike 介面，回傳最高層 index
func (n *LeveledNode[K]) GetLevel() int32 {
	return int32(len(n.forward) - 1)
}

func (n *LeveledNode[K]) GetNextAt(level int32) skiplist.Nodelike[K] {
	if level < 0 || level >= int32(len(n.forward)) || n.forward[level] == nil {
		return nil
	}
	return n.forward[level]
}
