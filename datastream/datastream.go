package datastream

import (
	"github.com/cadepowers99/Skip-List/skiplist"
)

// DataStream 依機率分布產生 key 的資料流
type DataStream interface {
	Close() error
	// Next 依分布抽一個 key
	Next() int64
	// NextRank 依分布抽一個 rank，rank 0 機率最高
	NextRank() int
	// KeyAt 回傳 rank 對應的 key
	KeyAt(rank int) int64
	Len() int
	GetKeyMap() map[int64]float64
	GetCDF() []float64
	GetPDF() []float64
	Entropy() float64
}

// OperationType 表示操作種類
type OperationType uint8

const (
	OpSearch OperationType = iota
	OpInsert
	OpRemove
)

func (t OperationType) String() string {
	switch t {
	case OpSearch:
		return "Search"
	case OpInsert:
		return "Insert"
	case OpRemove:
		return "Remove"
	default:
		return "Unknown"
	}
}

func (t OperationType) valid() bool {
	return t <= OpRemove
}

// Operation 表示一筆操作
type Operation struct {
	Type OperationType
	Key  int64
}

// Apply 對 list 執行操作。Search 回傳是否找到，Insert/Remove 回傳是否成功
func (op Operation) Apply(sl skiplist.SkipList[int64]) bool {
	switch op.Type {
	case OpInsert:
		return sl.Insert(op.Key)
	case OpRemove:
		return sl.Remove(op.Key)
	default:
		return sl.Contains(op.Key)
	}
}

// SequenceModel 以既有的 Operation 序列提供順序重播
type SequenceModel struct {
	ops []Operation
	pos int
}

// NewSequenceModelFromOps 由外部供給的操作序列建立模型
func NewSequenceModelFromOps(ops []Operation) *SequenceModel {
	cp := make([]Operation, len(ops))
	copy(cp, ops)
	return &SequenceModel{ops: cp}
}

// Next 回傳下一筆操作，若結束則回傳零值與 false
func (m *SequenceModel) Next() (Operation, bool) {
	if m.pos >= len(m.ops) {
		return Operation{}, false
	}
	op := m.ops[m.pos]
	m.pos++
	return op, true
}

// NextN 回傳接下來 n 筆（或直到結束）的操作
func (m *SequenceModel) NextN(n int) []Operation {
	if n <= 0 || m.pos >= len(m.ops) {
		return nil
	}
	end := min(m.pos+n, len(m.ops))
	out := make([]Operation, end-m.pos)
	copy(out, m.ops[m.pos:end])
	m.pos = end
	return out
}

func (m *SequenceModel) Len() int { return len(m.ops) }

// Reset 游標重置到起點
func (m *SequenceModel) Reset() { m.pos = 0 }
