package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/stimkit/stimkit/internal/engine"
	"github.com/stimkit/stimkit/internal/recorder"
	v1 "github.com/stimkit/stimkit/pkg/stimkit/v1"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	failedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

func statusStyle(status string) lipgloss.Style {
	switch status {
	case engine.StatusCompleted:
		return okStyle
	case engine.StatusStopped:
		return warnStyle
	default:
		return failedStyle
	}
}

// summaryHeader names the columns of the session summary.
var summaryHeader = []string{"SEQUENCE", "STATUS", "STIMULI", "DURATION", "SCHEDULED", "SUSPENDED", "LATE", "INTERRUPTED"}

// printSummary writes one line per sequence report. Columns are padded on
// their visible width, so styled cells stay aligned on colour terminals.
func printSummary(w io.Writer, reports []*v1.RunReport) {
	if len(reports) == 0 {
		fmt.Fprintln(w, warnStyle.Render("No sequence was run."))
		return
	}
	fmt.Fprintln(w, titleStyle.Render("Session summary"))

	rows := [][]string{summaryHeader}
	for _, r := range reports {
		rows = append(rows, []string{
			r.Sequence,
			r.Status,
			fmt.Sprint(r.Presentations),
			r.Duration.Truncate(time.Millisecond).String(),
			r.ScheduledTotal.Truncate(time.Millisecond).String(),
			r.SuspendedTotal.Truncate(time.Millisecond).String(),
			fmt.Sprint(r.LateWakeups),
			fmt.Sprint(r.Interruptions),
		})
	}
	widths := make([]int, len(summaryHeader))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	for n, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			style := lipgloss.NewStyle()
			if i == 1 && n > 0 {
				style = statusStyle(cell)
			}
			if i < len(row)-1 {
				style = style.Width(widths[i])
			}
			cells[i] = style.Render(cell)
		}
		fmt.Fprintln(w, strings.Join(cells, "  "))
	}
}

// printOnsetPlot draws the onset error of every recorded stimulus.
func printOnsetPlot(w io.Writer, rec *recorder.Recorder) {
	data := rec.OnsetErrors("")
	if len(data) < 2 {
		fmt.Fprintln(w, warnStyle.Render("Not enough presentations to plot onset errors."))
		return
	}
	graph := asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("onset error (ms) per stimulus"),
	)
	fmt.Fprintln(w, strings.TrimRight(graph, "\n"))
}
