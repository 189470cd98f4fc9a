package leveled

import (
	saferand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const defaultArenaChunk = 256

type options struct {
	rand     *rand.Rand
	logger   *zap.Logger
	chunk    int
	maxNodes int
	ceiling  int
}

type Option func(*options) error

// WithRand 指定亂數來源，測試時用來重現結果
func WithRand(r *rand.Rand) Option {
	return func(o *options) error {
		if r == nil {
			return errors.Wrap(ErrInvalidOption, "nil rand source")
		}
		o.rand = r
		return nil
	}
}

// WithSeed 以 seed 建立 PCG 亂數來源
func WithSeed(seed uint64) Option {
	return func(o *options) error {
		o.rand = rand.New(rand.NewPCG(seed, 0))
		return nil
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.Wrap(ErrInvalidOption, "nil logger")
		}
		o.logger = logger
		return nil
	}
}

// WithArenaChunk 每個 arena chunk 的節點數
func WithArenaChunk(n int) Option {
	return func(o *options) error {
		if n < 1 {
			return errors.Wrapf(ErrInvalidOption, "arena chunk %d", n)
		}
		o.chunk = n
		return nil
	}
}

// WithMaxNodes 同時存活的節點上限，達到上限後 Insert 回傳 false
func WithMaxNodes(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return errors.Wrapf(ErrInvalidOption, "max nodes %d", n)
		}
		o.maxNodes = n
		return nil
	}
}

// WithCeiling 節點高度上限，必須在 [1, MaxHeight]
func WithCeiling(h int) Option {
	return func(o *options) error {
		o.ceiling = h
		return nil
	}
}

func (o *options) validate() error {
	if o.ceiling < 1 || o.ceiling > MaxHeight {
		return errors.Wrapf(ErrStructuralOverflow, "ceiling %d not in [1, %d]", o.ceiling, MaxHeight)
	}
	if o.ceiling == MaxHeight {
		return nil
	}
	// 高度上限由插入前的節點數決定，最多 maxNodes-1
	if o.maxNodes == 0 {
		return errors.Wrapf(ErrStructuralOverflow, "ceiling %d needs a node limit", o.ceiling)
	}
	if need := heightCap(o.maxNodes - 1); need > o.ceiling {
		return errors.Wrapf(ErrStructuralOverflow, "%d nodes may reach height %d, ceiling %d", o.maxNodes, need, o.ceiling)
	}
	return nil
}

func cryptoSeed() uint64 {
	var b [8]byte
	if _, err := saferand.Read(b[:]); err != nil {
		panic(err)
	}
	return binary.LittleEndian.Uint64(b[:])
}
