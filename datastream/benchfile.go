package datastream

import (
	"bufio"
	"encoding/binary"
	"encoding/csv"
	"io"
	"math/rand/v2"
	"os"
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// 檔案格式（LittleEndian）：
// [8]byte  Magic: "LVLBENCH"
// uint16   Version: 2
// uint16   Reserved: 0
// uint32   DistCount
// 重複 DistCount 次：
//   int64   Key
//   float64 Weight
// uint64   OpCount
// 重複 OpCount 次：
//   uint8   OperationType (0=Search,1=Insert,2=Remove)
//   int64   Key
// uint64   xxhash64，涵蓋前面所有 byte

var (
	benchMagic   = [8]byte{'L', 'V', 'L', 'B', 'E', 'N', 'C', 'H'}
	benchVersion = uint16(2)
)

// maxEntries 讀檔時 DistCount 與 OpCount 的上限，避免壞檔造成巨大配置
const maxEntries = 1 << 28

var (
	ErrInvalidMagic       = errors.New("[datastream] invalid bench file magic")
	ErrUnsupportedVersion = errors.New("[datastream] unsupported bench file version")
	ErrChecksumMismatch   = errors.New("[datastream] bench file checksum mismatch")
	ErrCorrupted          = errors.New("[datastream] corrupted bench file")
	ErrInvalidParams      = errors.New("[datastream] invalid generation params")
)

type benchHeader struct {
	Magic    [8]byte
	Version  uint16
	Reserved uint16
}

type distEntry struct {
	Key    int64
	Weight float64
}

type opEntry struct {
	Type uint8
	Key  int64
}

type BenchFile struct {
	Dist map[int64]float64
	Ops  []Operation
}

// DistInfo 產生檔案時回傳的分布資訊
type DistInfo struct {
	Dist    map[int64]float64
	Entropy float64
}

// OpParams 操作序列的參數
//   - K: 操作數量，需 >= key 數量
//   - Phase1Ratio: 第一階段佔 K 的比例，第一階段保證每個 key 至少出現一次
//   - DeleteRatio: key 已存在時產生 Remove 的機率，其餘為 Search
type OpParams struct {
	K           int
	Phase1Ratio float64
	DeleteRatio float64
	Seed        uint64
}

// GenParams 產生 bench 檔的完整參數，S = 0 時使用均勻分布
type GenParams struct {
	N         int
	S, V      float64
	SimpleKey bool
	OpParams
}

// Validate 檢查操作參數是否能涵蓋 n 個 key
func (p OpParams) Validate(n int) error {
	phase1Size := int(float64(p.K) * p.Phase1Ratio)
	if p.K < n {
		return errors.Wrapf(ErrInvalidParams, "k (%d) must be >= n (%d) to ensure each key appears at least once", p.K, n)
	}
	if phase1Size < n || phase1Size > p.K {
		return errors.Wrapf(ErrInvalidParams, "phase1Size (%d) must satisfy n <= phase1Size <= k", phase1Size)
	}
	if p.DeleteRatio < 0.0 || p.DeleteRatio > 1.0 {
		return errors.Wrapf(ErrInvalidParams, "deleteRatio (%v) must be between 0.0 and 1.0", p.DeleteRatio)
	}
	return nil
}

// GenerateOps 依 gen 的分布產生操作序列。
// 規則：
//   - key 不在表中時一律 Insert
//   - key 在表中時以 DeleteRatio 的機率 Remove，否則 Search
//   - 第一階段先覆蓋所有 key 再打亂，第二階段完全依分布抽樣
func GenerateOps(gen DataStream, p OpParams) ([]Operation, error) {
	n := gen.Len()
	if n <= 0 {
		return nil, errors.Wrapf(ErrInvalidParams, "invalid n: %d", n)
	}
	if err := p.Validate(n); err != nil {
		return nil, err
	}
	r := rand.New(rand.NewPCG(p.Seed, 1))
	phase1Size := int(float64(p.K) * p.Phase1Ratio)

	phase1Keys := make([]int64, phase1Size)
	for i := 0; i < n; i++ {
		phase1Keys[i] = gen.KeyAt(i)
	}
	for i := n; i < phase1Size; i++ {
		phase1Keys[i] = gen.Next()
	}
	r.Shuffle(len(phase1Keys), func(i, j int) { phase1Keys[i], phase1Keys[j] = phase1Keys[j], phase1Keys[i] })

	// 狀態：是否在表中
	present := make(map[int64]bool, n)
	assign := func(key int64) Operation {
		if !present[key] {
			present[key] = true
			return Operation{Type: OpInsert, Key: key}
		}
		if r.Float64() < p.DeleteRatio {
			present[key] = false
			return Operation{Type: OpRemove, Key: key}
		}
		return Operation{Type: OpSearch, Key: key}
	}

	ops := make([]Operation, 0, p.K)
	for _, key := range phase1Keys {
		ops = append(ops, assign(key))
	}
	for i := phase1Size; i < p.K; i++ {
		ops = append(ops, assign(gen.Next()))
	}
	return ops, nil
}

// NewBenchFile 由資料流與操作參數組出 BenchFile
func NewBenchFile(gen DataStream, p OpParams) (*BenchFile, error) {
	ops, err := GenerateOps(gen, p)
	if err != nil {
		return nil, err
	}
	return &BenchFile{Dist: gen.GetKeyMap(), Ops: ops}, nil
}

// NewGenerator 依參數建立 Zipf 或均勻分布的資料流
func NewGenerator(p GenParams) (DataStream, error) {
	if p.N <= 0 {
		return nil, errors.Wrapf(ErrInvalidParams, "invalid n: %d", p.N)
	}
	if p.S == 0.0 {
		gen := NewUniformDataGenerator(p.N, p.Seed)
		if !p.SimpleKey {
			gen.RandomizeKeys()
		}
		return gen, nil
	}
	if p.S < 0.0 || p.V <= 0.0 {
		return nil, errors.Wrapf(ErrInvalidParams, "invalid zipf params: s=%v must > 0, v=%v must > 0", p.S, p.V)
	}
	gen := NewZipfDataGenerator(p.N, p.S, p.V, p.Seed)
	if !p.SimpleKey {
		gen.RandomizeKeys()
	}
	return gen, nil
}

// GenerateBenchFile 產生分布與操作序列並寫入 filename
func GenerateBenchFile(filename string, p GenParams) (*DistInfo, error) {
	gen, err := NewGenerator(p)
	if err != nil {
		return nil, err
	}
	defer gen.Close()

	bf, err := NewBenchFile(gen, p.OpParams)
	if err != nil {
		return nil, err
	}
	if err := WriteBenchFile(filename, bf); err != nil {
		return nil, err
	}
	return bf.Info(), nil
}

// Encode 寫出檔頭、分布（key 升冪）、操作序列與 checksum
func (bf *BenchFile) Encode(w io.Writer) error {
	digest := xxhash.New()
	bw := bufio.NewWriter(w)
	mw := io.MultiWriter(bw, digest)

	if err := binary.Write(mw, binary.LittleEndian, benchHeader{Magic: benchMagic, Version: benchVersion}); err != nil {
		return errors.Wrap(err, "write header")
	}

	keys := lo.Keys(bf.Dist)
	slices.Sort(keys)
	dist := lo.Map(keys, func(k int64, _ int) distEntry {
		return distEntry{Key: k, Weight: bf.Dist[k]}
	})
	if err := binary.Write(mw, binary.LittleEndian, uint32(len(dist))); err != nil {
		return errors.Wrap(err, "write dist count")
	}
	if err := binary.Write(mw, binary.LittleEndian, dist); err != nil {
		return errors.Wrap(err, "write dist")
	}

	ops := lo.Map(bf.Ops, func(op Operation, _ int) opEntry {
		return opEntry{Type: uint8(op.Type), Key: op.Key}
	})
	if err := binary.Write(mw, binary.LittleEndian, uint64(len(ops))); err != nil {
		return errors.Wrap(err, "write op count")
	}
	if err := binary.Write(mw, binary.LittleEndian, ops); err != nil {
		return errors.Wrap(err, "write ops")
	}

	if err := binary.Write(bw, binary.LittleEndian, digest.Sum64()); err != nil {
		return errors.Wrap(err, "write checksum")
	}
	return errors.Wrap(bw.Flush(), "flush bench file")
}

// DecodeBenchFile 讀取 Encode 的輸出並驗證 checksum
func DecodeBenchFile(r io.Reader) (*BenchFile, error) {
	digest := xxhash.New()
	br := bufio.NewReader(r)
	tr := io.TeeReader(br, digest)

	var hdr benchHeader
	if err := binary.Read(tr, binary.LittleEndian, &hdr); err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	if hdr.Magic != benchMagic {
		return nil, errors.Wrapf(ErrInvalidMagic, "%q", hdr.Magic[:])
	}
	if hdr.Version != benchVersion {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "version %d", hdr.Version)
	}

	var distCount uint32
	if err := binary.Read(tr, binary.LittleEndian, &distCount); err != nil {
		return nil, errors.Wrap(err, "read dist count")
	}
	if distCount > maxEntries {
		return nil, errors.Wrapf(ErrCorrupted, "dist count %d", distCount)
	}
	dist := make([]distEntry, distCount)
	if err := binary.Read(tr, binary.LittleEndian, dist); err != nil {
		return nil, errors.Wrap(err, "read dist")
	}

	var opCount uint64
	if err := binary.Read(tr, binary.LittleEndian, &opCount); err != nil {
		return nil, errors.Wrap(err, "read op count")
	}
	if opCount > maxEntries {
		return nil, errors.Wrapf(ErrCorrupted, "op count %d", opCount)
	}
	entries := make([]opEntry, opCount)
	if err := binary.Read(tr, binary.LittleEndian, entries); err != nil {
		return nil, errors.Wrap(err, "read ops")
	}

	var sum uint64
	if err := binary.Read(br, binary.LittleEndian, &sum); err != nil {
		return nil, errors.Wrap(err, "read checksum")
	}
	if want := digest.Sum64(); sum != want {
		return nil, errors.Wrapf(ErrChecksumMismatch, "got %#x, want %#x", sum, want)
	}

	bf := &BenchFile{
		Dist: make(map[int64]float64, len(dist)),
		Ops:  make([]Operation, len(entries)),
	}
	for _, e := range dist {
		bf.Dist[e.Key] = e.Weight
	}
	for i, e := range entries {
		op := Operation{Type: OperationType(e.Type), Key: e.Key}
		if !op.Type.valid() {
			return nil, errors.Wrapf(ErrCorrupted, "op[%d] type %d", i, e.Type)
		}
		bf.Ops[i] = op
	}
	return bf, nil
}

func WriteBenchFile(filename string, bf *BenchFile) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "create bench file")
	}
	if err := bf.Encode(file); err != nil {
		file.Close()
		return err
	}
	return errors.Wrap(file.Close(), "close bench file")
}

// ReadBenchFile 讀取 bin 檔案，回傳分布與操作序列
func ReadBenchFile(filename string) (*BenchFile, error) {
	fd, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "open bench file")
	}
	defer fd.Close()
	bf, err := DecodeBenchFile(fd)
	if err != nil {
		return nil, errors.Wrap(err, filename)
	}
	return bf, nil
}

// ToSequenceModel 將 BenchFile 轉為可重播的 SequenceModel
func (bf *BenchFile) ToSequenceModel() *SequenceModel {
	if bf == nil {
		return NewSequenceModelFromOps(nil)
	}
	return NewSequenceModelFromOps(bf.Ops)
}

func (bf *BenchFile) Info() *DistInfo {
	return &DistInfo{Dist: bf.Dist, Entropy: EntropyFromDist(bf.Dist)}
}

func (info *DistInfo) DistributeToCSV(writer *csv.Writer) error {
	return distToCSV(info.Dist, writer)
}
