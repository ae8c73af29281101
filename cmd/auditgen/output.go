package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/pramodksahoo/audit-reporter/pkg/catalog"
	"github.com/pramodksahoo/audit-reporter/pkg/report"
)

// maxListedSkips bounds the skipped images printed in a summary
const maxListedSkips = 10

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Width(16)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB86C"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

func printSummary(w io.Writer, out *report.Output, path string) {
	rec := out.Record
	lines := []string{
		titleStyle.Render("Report generated"),
		row("File", okStyle.Render(path)),
		row("Generator", string(rec.Generator)),
		row("Duration", rec.Duration.Round(time.Millisecond).String()),
	}
	if rec.ImagesFound > 0 || rec.ImagesSkipped > 0 {
		lines = append(lines,
			row("Images found", strconv.Itoa(rec.ImagesFound)),
			row("Images placed", strconv.Itoa(rec.ImagesPlaced)),
			row("Images skipped", strconv.Itoa(rec.ImagesSkipped)),
		)
	}
	for i, skip := range out.Skipped {
		if i == maxListedSkips {
			lines = append(lines, warnStyle.Render(fmt.Sprintf("  ... %d more", len(out.Skipped)-maxListedSkips)))
			break
		}
		lines = append(lines, warnStyle.Render(fmt.Sprintf("  skipped %s: %s", skip.Image.Filename, skip.Reason)))
	}
	for _, warning := range out.Warnings {
		lines = append(lines, warnStyle.Render("  "+warning))
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
}

func printModules(w io.Writer, modules []*catalog.Module) {
	lines := []string{titleStyle.Render("Questionnaire modules")}
	for _, m := range modules {
		lines = append(lines, row(m.ID, fmt.Sprintf("%s (%d questions) -> %s", m.Title, len(m.Questions), m.Filename)))
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}
