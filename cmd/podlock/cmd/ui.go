package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true)
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
	styleAdded   = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
	styleRemoved = lipgloss.NewStyle().Foreground(lipgloss.Color("167"))
	styleChanged = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	styleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

const (
	markAdded   = "+"
	markRemoved = "-"
	markChanged = "!"
)

// section is a titled list of findings printed by verify and update.
type section struct {
	title string
	mark  string
	style lipgloss.Style
	items []string
}

func (s section) empty() bool { return len(s.items) == 0 }

func printSections(w io.Writer, sections ...section) {
	for _, s := range sections {
		if s.empty() {
			continue
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, styleTitle.Render(s.title))
		for _, item := range s.items {
			fmt.Fprintf(w, "  %s %s\n", s.style.Render(s.mark), item)
		}
	}
}
