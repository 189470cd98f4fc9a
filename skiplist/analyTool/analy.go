package analyTool

import (
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"slices"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/cadepowers99/Skip-List/skiplist"
)

var ErrBrokenStructure = errors.New("[analyTool] broken skip list structure")

type StepMap[K skiplist.Ordered] map[K]int

// nextFrom 從 prev 的第 level 層往後走，prev 為 nil 代表從 head 開始
func nextFrom[K skiplist.Ordered](sl skiplist.Analyable[K], prev skiplist.Nodelike[K], level int32) skiplist.Nodelike[K] {
	if prev == nil {
		return sl.GetHeadAt(level)
	}
	return prev.GetNextAt(level)
}

// FindStep 計算找到指定 key 的總步數和各層步數
func FindStep[K skiplist.Ordered](sl skiplist.Analyable[K], key K) (step int, level []int) {
	nodes, maxLevel := sl.GetMaxStats()
	if nodes == 0 {
		return 0, []int{}
	}
	stepsPerLevel := make([]int, maxLevel+1)
	totalSteps := 0

	var prev skiplist.Nodelike[K]
	for h := maxLevel; h >= 0; h-- {
		cur := nextFrom(sl, prev, int32(h))
		for cur != nil && cmp.Less(cur.GetKey(), key) {
			prev = cur
			cur = cur.GetNextAt(int32(h))
			stepsPerLevel[h]++
		}
		if cur != nil && cmp.Compare(cur.GetKey(), key) == 0 {
			stepsPerLevel[h]++ // 加上最後一步
			totalSteps += stepsPerLevel[h]
			return totalSteps, stepsPerLevel
		}
		totalSteps += stepsPerLevel[h] + 1 // 加上向下移動
	}
	return totalSteps, stepsPerLevel
}

// AnalyzeStep 根據 key 出現機率計算平均搜尋步數，只計算 list 中存在的 key
func AnalyzeStep[K skiplist.Ordered](sl skiplist.Analyable[K], keys map[K]float64) (float64, StepMap[K]) {
	if len(keys) == 0 {
		return 0.0, nil
	}
	step := StepMap[K]{}

	var totalExpectedSteps, totalProbability float64
	for node := sl.GetHeadAt(0); node != nil; node = node.GetNextAt(0) {
		key := node.GetKey()
		if _, seen := step[key]; seen {
			continue
		}
		p, ok := keys[key]
		if !ok {
			continue
		}
		steps, _ := FindStep(sl, key)
		step[key] = steps
		totalExpectedSteps += float64(steps) * p
		totalProbability += p
	}

	if totalProbability > 0 {
		return totalExpectedSteps / totalProbability, step
	}
	return 0.0, step
}

// PrintSkipList 打印 skip list 的結構，最多 maxLevel 層、maxNodes 個節點
func PrintSkipList[K skiplist.Ordered](w io.Writer, sl skiplist.Analyable[K], maxLevel, maxNodes int) {
	nodes, actualMaxLevel := sl.GetMaxStats()
	if nodes == 0 {
		fmt.Fprintln(w, "Skip list 為空")
		return
	}
	maxLevel = min(maxLevel, actualMaxLevel)
	output := make([]string, maxLevel+1)
	for i := maxLevel; i >= 0; i-- {
		output[i] = fmt.Sprintf("level %d : ", i)
	}

	count := 0
	for node := sl.GetHeadAt(0); node != nil && count < maxNodes; node = node.GetNextAt(0) {
		lv := int(node.GetLevel())
		for i := range output {
			if i <= lv {
				output[i] += fmt.Sprintf("%3v ->", node.GetKey())
			} else {
				output[i] += "    ->"
			}
		}
		count++
	}

	for i := maxLevel; i >= 0; i-- {
		fmt.Fprintln(w, output[i])
	}
}

// PrintSkipListToCSV 將 skip list 的結構輸出到 CSV，每層一列
func PrintSkipListToCSV[K skiplist.Ordered](sl skiplist.Analyable[K], maxLevel, maxNodes int, writer *csv.Writer) error {
	_, actualMaxLevel := sl.GetMaxStats()
	maxLevel = min(maxLevel, actualMaxLevel)

	for i := maxLevel; i >= 0; i-- {
		row := []string{fmt.Sprintf("level %d", i)}
		count := 0
		for node := sl.GetHeadAt(0); node != nil && count < maxNodes; node = node.GetNextAt(0) {
			if int(node.GetLevel()) >= i {
				row = append(row, fmt.Sprint(node.GetKey()))
			} else {
				row = append(row, "")
			}
			count++
		}
		if err := writer.Write(row); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}
	writer.Flush()
	return writer.Error()
}

// CheckStruct 檢查 skip list 的結構是否正確：
// 每層有序、節點只出現在自己高度以下的每一層、節點數與 GetMaxStats 一致
func CheckStruct[K skiplist.Ordered](sl skiplist.Analyable[K]) error {
	nodes, maxLevel := sl.GetMaxStats()
	last := make([]skiplist.Nodelike[K], maxLevel+1)

	count := 0
	for node := sl.GetHeadAt(0); node != nil; node = node.GetNextAt(0) {
		nodelv := int(node.GetLevel())
		if nodelv > maxLevel {
			return errors.Wrapf(ErrBrokenStructure, "node %v level %d above top level %d", node.GetKey(), nodelv, maxLevel)
		}
		if last[0] != nil && cmp.Less(node.GetKey(), last[0].GetKey()) {
			return errors.Wrapf(ErrBrokenStructure, "node %v after %v", node.GetKey(), last[0].GetKey())
		}
		for i := 1; i <= nodelv; i++ {
			if expect := nextFrom(sl, last[i], int32(i)); expect != node {
				return errors.Wrapf(ErrBrokenStructure, "level %d skips node %v", i, node.GetKey())
			}
			last[i] = node
		}
		last[0] = node
		count++
	}

	for i := 1; i <= maxLevel; i++ {
		if rest := nextFrom(sl, last[i], int32(i)); rest != nil {
			return errors.Wrapf(ErrBrokenStructure, "level %d links node %v missing from level 0", i, rest.GetKey())
		}
	}
	if count != nodes {
		return errors.Wrapf(ErrBrokenStructure, "walked %d nodes, list reports %d", count, nodes)
	}
	return nil
}

// CountLevel 回傳每層的節點數量，index 為 level
func CountLevel[K skiplist.Ordered](sl skiplist.Analyable[K]) []int {
	_, maxLevel := sl.GetMaxStats()
	levelCounts := make([]int, maxLevel+1)

	for current := sl.GetHeadAt(0); current != nil; current = current.GetNextAt(0) {
		// 該節點存在於 level 0 到 nodeLevel 的所有層
		for i := 0; i <= int(current.GetLevel()) && i < len(levelCounts); i++ {
			levelCounts[i]++
		}
	}
	return levelCounts
}

func (mp StepMap[K]) sortedKeys() []K {
	keys := lo.Keys(mp)
	slices.SortFunc(keys, cmp.Compare[K])
	return keys
}

// Print 第一列是 key，第二列是步數
func (mp StepMap[K]) Print(w io.Writer) {
	keys := mp.sortedKeys()
	for _, k := range keys {
		fmt.Fprintf(w, "%2v  ", k)
	}
	fmt.Fprintln(w)
	for _, k := range keys {
		fmt.Fprintf(w, "%2d  ", mp[k])
	}
	fmt.Fprintln(w)
}

func (mp StepMap[K]) PrintToCSV(writer *csv.Writer) error {
	keys := mp.sortedKeys()
	steps := lo.Map(keys, func(k K, _ int) string {
		return fmt.Sprint(mp[k])
	})
	if err := writer.Write(append([]string{"steps"}, steps...)); err != nil {
		return errors.Wrap(err, "write csv row")
	}
	writer.Flush()
	return writer.Error()
}
