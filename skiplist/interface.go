package skiplist

import "cmp"

// Ordered 可比較大小的 key 型別
type Ordered = cmp.Ordered

// SkipList 只存 key 的有序容器，重複 key 視為新的節點
type SkipList[K Ordered] interface {
	Insert(key K) bool
	Contains(key K) bool
	Remove(key K) bool
	Dump() string
	Len() int
}

// Analyable 提供分析功能的介面
type Analyable[K Ordered] interface {
	SkipList[K]
	// GetMaxStats 獲取節點數和目前最高層 index
	GetMaxStats() (nodes int, topLevel int)
	// GetHeadAt 取得第 level 層的第一個節點
	GetHeadAt(level int32) Nodelike[K]
}

type Nodelike[K Ordered] interface {
	GetKey() K
	GetLevel() int32
	GetNextAt(level int32) Nodelike[K]
}
