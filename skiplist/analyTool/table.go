package analyTool

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/cadepowers99/Skip-List/skiplist"
)

// LevelTable 以表格輸出每層節點數，以及與下一層的比例
func LevelTable[K skiplist.Ordered](w io.Writer, sl skiplist.Analyable[K]) {
	nodes, maxLevel := sl.GetMaxStats()
	counts := CountLevel(sl)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Level", "Nodes", "Ratio"})
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoWrapText(false)
	table.SetCaption(true, fmt.Sprintf("nodes %d, top level %d", nodes, maxLevel))

	rows := make([][]string, 0, len(counts))
	for i := len(counts) - 1; i >= 0; i-- {
		ratio := "-"
		if i > 0 && counts[i-1] > 0 {
			ratio = fmt.Sprintf("%.3f", float64(counts[i])/float64(counts[i-1]))
		}
		rows = append(rows, []string{strconv.Itoa(i), strconv.Itoa(counts[i]), ratio})
	}
	table.AppendBulk(rows)
	table.Render()
}
