package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/user/clone-service/internal/entity"
)

var (
	timestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	logStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	doneStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	summaryStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(10)
)

// formatEvent renders one progress event as a single terminal line.
func formatEvent(ev entity.Event, at time.Time) string {
	ts := timestampStyle.Render(at.Format("15:04:05"))
	switch {
	case ev.Log != "":
		return fmt.Sprintf("%s %s", ts, logStyle.Render(ev.Log))
	case ev.Status == entity.StatusDone:
		return fmt.Sprintf("%s %s", ts, doneStyle.Render("done"))
	case ev.Status == entity.StatusError:
		return fmt.Sprintf("%s %s %s", ts, errorStyle.Render("error"), ev.Message)
	default:
		line := fmt.Sprintf("%s %s", ts, statusStyle.Render(string(ev.Status)))
		if ev.Message != "" {
			line += " " + ev.Message
		}
		return line
	}
}

func formatSummary(cloneID, outDir, previewURL string, files int) string {
	rows := []string{
		labelStyle.Render("clone") + cloneID,
		labelStyle.Render("files") + fmt.Sprintf("%d", files),
	}
	if outDir != "" {
		rows = append(rows, labelStyle.Render("output")+outDir)
	}
	if previewURL != "" {
		rows = append(rows, labelStyle.Render("preview")+previewURL)
	}
	return summaryStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
