package cli

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/mgpai22/stitch/internal/video"
)

var clipColumns = []struct {
	title string
	align text.Align
}{
	{"File", text.AlignLeft},
	{"Duration", text.AlignRight},
	{"Resolution", text.AlignRight},
	{"FPS", text.AlignRight},
	{"Video", text.AlignLeft},
	{"Audio", text.AlignLeft},
	{"Size", text.AlignRight},
}

// clipTable lays out one row per clip plus a footer with the summed
// duration and the canvas a render of these clips would use.
func clipTable(infos []*video.Info, canvas video.Canvas) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, 0, len(clipColumns))
	configs := make([]table.ColumnConfig, 0, len(clipColumns))
	for i, col := range clipColumns {
		header = append(header, col.title)
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       col.align,
			AlignHeader: text.AlignLeft,
			AlignFooter: col.align,
		})
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	var total time.Duration
	for i, row := range probeRows(infos) {
		total += infos[i].Duration
		r := make(table.Row, len(row))
		for j, cell := range row {
			r[j] = cell
		}
		tw.AppendRow(r)
	}

	tw.AppendFooter(table.Row{"canvas", formatDuration(total), canvas.Size(), canvas.Rate(), "", "", ""})
	return tw.Render()
}
