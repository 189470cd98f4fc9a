package datastream

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// distribution 以 rank 為索引的離散分布，Zipf 與均勻分布共用
type distribution struct {
	keys    []int64   // rank -> key
	weights []float64 // rank -> 機率，已正規化
	cdf     []float64
	rng     *rand.Rand
}

func newDistribution(weights []float64, seed uint64) *distribution {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	cdf := make([]float64, len(weights))
	acc := 0.0
	for i := range weights {
		weights[i] /= sum
		acc += weights[i]
		cdf[i] = acc
	}
	keys := make([]int64, len(weights))
	for i := range keys {
		keys[i] = int64(i)
	}
	d := &distribution{
		keys:    keys,
		weights: weights,
		cdf:     cdf,
		rng:     rand.New(rand.NewPCG(seed, 0)),
	}
	// rank 與 key 的對應打亂，熱門 key 不會集中在前段
	d.rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
	return d
}

// RandomizeKeys 把 key 換成不重複的隨機 uint32
func (d *distribution) RandomizeKeys() {
	check := make(map[int64]struct{}, len(d.keys))
	for i := range d.keys {
		genKey := int64(d.rng.Uint32())
		for _, ok := check[genKey]; ok; _, ok = check[genKey] {
			genKey = int64(d.rng.Uint32())
		}
		d.keys[i] = genKey
		check[genKey] = struct{}{}
	}
}

// NextRank 二分搜尋 cdf
func (d *distribution) NextRank() int {
	r := d.rng.Float64()
	left, right := 0, len(d.cdf)-1
	for left < right {
		mid := (left + right) / 2
		if r > d.cdf[mid] {
			left = mid + 1
		} else {
			right = mid
		}
	}
	return left
}

func (d *distribution) Next() int64 {
	return d.keys[d.NextRank()]
}

func (d *distribution) KeyAt(rank int) int64 {
	return d.keys[rank]
}

func (d *distribution) Len() int {
	return len(d.keys)
}

// GenerateSequence 產生指定長度的 key 序列
func (d *distribution) GenerateSequence(seqLen int) []int64 {
	seq := make([]int64, seqLen)
	for i := range seq {
		seq[i] = d.Next()
	}
	return seq
}

func (d *distribution) GetKeyMap() map[int64]float64 {
	result := make(map[int64]float64, len(d.keys))
	for rank, k := range d.keys {
		result[k] = d.weights[rank]
	}
	return result
}

// GetCDF 回傳新的 slice，避免汙染內部狀態
func (d *distribution) GetCDF() []float64 {
	return slices.Clone(d.cdf)
}

func (d *distribution) GetPDF() []float64 {
	return slices.Clone(d.weights)
}

func (d *distribution) Entropy() float64 {
	h := 0.0
	for _, p := range d.weights {
		if p > 0 {
			h -= p * math.Log2(p)
		}
	}
	return h
}

func (d *distribution) DistributeToCSV(writer *csv.Writer) error {
	return distToCSV(d.GetKeyMap(), writer)
}

func (d *distribution) Close() error {
	return nil
}

// EntropyFromDist 計算分布的熵（單位：bit），忽略 <= 0 的值
func EntropyFromDist(dist map[int64]float64) float64 {
	h := 0.0
	for _, p := range dist {
		if p > 0 {
			h -= p * math.Log2(p)
		}
	}
	return h
}

// distToCSV 第一列是升冪排序的 key，第二列是機率
func distToCSV(dist map[int64]float64, writer *csv.Writer) error {
	sortedKeys := lo.Keys(dist)
	slices.Sort(sortedKeys)

	keys := make([]string, 0, len(dist)+1)
	probs := make([]string, 0, len(dist)+1)
	keys = append(keys, "key")
	probs = append(probs, "prob")
	for _, k := range sortedKeys {
		keys = append(keys, fmt.Sprintf("%d", k))
		probs = append(probs, fmt.Sprintf("%f", dist[k]))
	}
	if err := writer.WriteAll([][]string{keys, probs}); err != nil {
		return errors.Wrap(err, "write distribution csv")
	}
	return nil
}
