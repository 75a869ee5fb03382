package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"clippy/internal/ipc"
)

// column describes one table column; numeric columns render right-aligned.
type column struct {
	title   string
	numeric bool
}

var (
	jobColumns  = []column{{title: "Job"}, {title: "Video"}, {title: "Status"}, {title: "Progress", numeric: true}, {title: "Created"}}
	taskColumns = []column{{title: "Task"}, {title: "Type"}, {title: "Status"}, {title: "Progress", numeric: true}, {title: "Backend Job"}, {title: "Error"}}
	statColumns = []column{{title: "Status"}, {title: "Count", numeric: true}}
)

// renderTable lays rows out under the given columns. Short rows pad with
// empty cells so task detail rows can omit trailing columns.
func renderTable(cols []column, rows [][]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(cols))
	configs := make([]table.ColumnConfig, 0, len(cols))
	for i, col := range cols {
		header[i] = col.title
		align := text.AlignLeft
		if col.numeric {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(cols))
		for i := range cols {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}
	return tw.Render()
}

var statusTitler = cases.Title(language.English)

func statusLabel(status string) string {
	return statusTitler.String(strings.ReplaceAll(status, "-", " "))
}

func taskLabel(taskType string) string {
	return statusTitler.String(strings.ReplaceAll(taskType, "-", " "))
}

func formatProgress(percent int) string {
	return fmt.Sprintf("%d%%", percent)
}

func formatCreated(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}

func displayVideo(job ipc.JobView) string {
	if path := strings.TrimSpace(job.VideoPath); path != "" {
		return filepath.Base(path)
	}
	if job.VideoID != "" {
		return job.VideoID
	}
	return "-"
}

// buildJobRows renders one row per job, plus indented task rows for jobs
// marked expanded (or all jobs when expandAll is set).
func buildJobRows(views []ipc.JobView, expandAll bool) [][]string {
	rows := make([][]string, 0, len(views))
	for _, job := range views {
		rows = append(rows, []string{
			job.ID,
			displayVideo(job),
			statusLabel(job.Status),
			formatProgress(job.Progress),
			formatCreated(job.CreatedAt),
		})
		if !expandAll && !job.Expanded {
			continue
		}
		for _, task := range job.Tasks {
			detail := ""
			if task.Error != "" {
				detail = task.Error
			}
			rows = append(rows, []string{
				"  " + task.ID,
				"  " + taskLabel(task.Type),
				statusLabel(task.Status),
				formatProgress(task.Progress),
				detail,
			})
		}
	}
	return rows
}

func buildTaskRows(job ipc.JobView) [][]string {
	rows := make([][]string, 0, len(job.Tasks))
	for _, task := range job.Tasks {
		backendID := task.BackendJobID
		if backendID == "" {
			backendID = "-"
		}
		rows = append(rows, []string{
			task.ID,
			taskLabel(task.Type),
			statusLabel(task.Status),
			formatProgress(task.Progress),
			backendID,
			task.Error,
		})
	}
	return rows
}

func buildStatsRows(stats map[string]int) [][]string {
	order := []string{"pending", "processing", "completed", "failed"}
	rows := make([][]string, 0, len(order))
	for _, status := range order {
		count, ok := stats[status]
		if !ok || count == 0 {
			continue
		}
		rows = append(rows, []string{statusLabel(status), fmt.Sprintf("%d", count)})
	}
	return rows
}
