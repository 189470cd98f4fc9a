package datastream

var _ DataStream = (*UniformDataGenerator)(nil)

// UniformDataGenerator 產生符合平均分布的 key，每個 key 出現機率皆相同
type UniformDataGenerator struct {
	*distribution
	n int
}

func NewUniformDataGenerator(n int, seed uint64) *UniformDataGenerator {
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1.0
	}
	return &UniformDataGenerator{
		distribution: newDistribution(weights, seed),
		n:            n,
	}
}
