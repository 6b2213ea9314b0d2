package output

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/stone-age-io/dockerctl/internal/containers"
	"github.com/stone-age-io/dockerctl/internal/utils"
)

// Containers renders the container listing
func Containers(w io.Writer, list []containers.Container) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No containers found")
		return
	}

	t := NewTable(w)
	t.AppendHeader(table.Row{"Container ID", "Name", "Image", "State", "Status", "Created"})
	for _, c := range list {
		t.AppendRow(table.Row{
			c.ID,
			Sanitize(c.Name),
			Sanitize(c.Image),
			State(c.State),
			Sanitize(c.Status),
			c.Created.Format(time.DateTime),
		})
	}
	t.Render()
}

// Stats renders resource usage samples the way docker stats lays them out
func Stats(w io.Writer, stats []containers.Stats) {
	if len(stats) == 0 {
		fmt.Fprintln(w, "No running containers")
		return
	}

	t := NewTable(w)
	t.AppendHeader(table.Row{"Container ID", "Name", "CPU %", "Mem Usage / Limit", "Mem %", "Net I/O", "Block I/O", "PIDs"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})
	for _, s := range stats {
		t.AppendRow(table.Row{
			s.ID,
			Sanitize(s.Name),
			percent(s.CPUPercent),
			utils.HumanBytes(s.MemoryUsage) + " / " + utils.HumanBytes(s.MemoryLimit),
			percent(s.MemoryPercent),
			utils.HumanBytes(s.NetRx) + " / " + utils.HumanBytes(s.NetTx),
			utils.HumanBytes(s.BlockRead) + " / " + utils.HumanBytes(s.BlockWrite),
			strconv.FormatUint(s.PIDs, 10),
		})
	}
	t.Render()
}

// Prune reports the result of a container prune
func Prune(w io.Writer, res *containers.PruneResult) {
	if len(res.Deleted) == 0 {
		fmt.Fprintln(w, "No stopped containers to remove")
		return
	}

	fmt.Fprintln(w, "Deleted containers:")
	for _, id := range res.Deleted {
		fmt.Fprintln(w, "  "+id)
	}
	fmt.Fprintf(w, "\nTotal reclaimed space: %s\n", utils.HumanBytes(res.SpaceReclaimed))
}

func percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}
