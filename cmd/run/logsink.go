package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/wasm-loader/loader"
)

var severityStyles = map[loader.Severity]lipgloss.Style{
	loader.SeverityLog:   lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")),
	loader.SeverityInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")),
	loader.SeverityWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")),
	loader.SeverityError: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
}

// consoleSink prints guest log messages, colored when w is a terminal.
type consoleSink struct {
	w      io.Writer
	styled bool
}

func newConsoleSink(f *os.File) *consoleSink {
	return &consoleSink{w: f, styled: term.IsTerminal(int(f.Fd()))}
}

func (s *consoleSink) Log(sev loader.Severity, msg string) {
	fmt.Fprintf(s.w, "%s %s\n", renderSeverity(sev, s.styled), msg)
}

func renderSeverity(sev loader.Severity, styled bool) string {
	label := fmt.Sprintf("[%s]", sev)
	if !styled {
		return label
	}
	style, ok := severityStyles[sev]
	if !ok {
		style = severityStyles[loader.SeverityLog]
	}
	return style.Render(label)
}
