package datastream

import (
	"math"
)

var _ DataStream = (*ZipfDataGenerator)(nil)

// ZipfDataGenerator 產生符合 Zipf 分布的 key，rank i 的權重為 1/(i+v)^s
type ZipfDataGenerator struct {
	*distribution
	n    int
	s, v float64
}

func NewZipfDataGenerator(n int, s, v float64, seed uint64) *ZipfDataGenerator {
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1.0 / math.Pow(float64(i)+v, s)
	}
	return &ZipfDataGenerator{
		distribution: newDistribution(weights, seed),
		n:            n,
		s:            s,
		v:            v,
	}
}
