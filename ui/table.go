// Package ui renders optimizer output for the terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	runewidth "github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"skylift/internal/optimizer"
)

var (
	// Standard ANSI colors so the table respects the user's terminal theme.
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.ANSIColor(14)).
			Bold(true)

	chosenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.ANSIColor(10)).
			Bold(true)

	infeasibleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.ANSIColor(8))

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.ANSIColor(8)).
			Italic(true)
)

// TerminalWidth returns the width of the attached terminal, or a sane
// default when stdout is not a terminal.
func TerminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 100
}

// pad right-pads s to width display cells, accounting for wide runes.
func pad(s string, width int) string {
	gap := width - runewidth.StringWidth(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}

func costCell(c optimizer.Candidate) string {
	if c.Offer.HourlyCost == 0 {
		return "free"
	}
	return fmt.Sprintf("$%.3f", c.Offer.HourlyCost)
}

func acceleratorCell(c optimizer.Candidate) string {
	if c.Offer.Accelerator == nil {
		return "-"
	}
	return fmt.Sprintf("%s:%d", c.Offer.Accelerator.Name, c.Offer.Accelerator.Count)
}

// RenderPlan writes the candidate table to w: the ranked feasible rows in
// optimizer order (cheapest first, chosen marked), then the infeasible rows
// from the considered set dimmed underneath so the user can see what was
// rejected.
func RenderPlan(w io.Writer, plan *optimizer.Plan, considered []optimizer.Candidate) {
	headers := []string{"", "CLOUD", "INSTANCE", "vCPUs", "MEM(GB)", "ACCELERATOR", "REGION", "$/HR"}

	display := make([]optimizer.Candidate, 0, len(considered))
	display = append(display, plan.Ranked...)
	for _, c := range considered {
		if !c.Satisfies {
			display = append(display, c)
		}
	}

	rows := make([][]string, 0, len(display))
	for _, c := range display {
		marker := " "
		if c.Chosen {
			marker = "*"
		}
		rows = append(rows, []string{
			marker,
			c.Offer.Provider,
			c.Offer.InstanceType,
			fmt.Sprintf("%g", c.Offer.VCPUs),
			fmt.Sprintf("%g", c.Offer.MemoryGB),
			acceleratorCell(c),
			c.Offer.Region,
			costCell(c),
		})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if cw := runewidth.StringWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	var header strings.Builder
	for i, h := range headers {
		header.WriteString(pad(h, widths[i]))
		header.WriteString("  ")
	}
	fmt.Fprintln(w, headerStyle.Render(strings.TrimRight(header.String(), " ")))

	for ri, row := range rows {
		var line strings.Builder
		for i, cell := range row {
			line.WriteString(pad(cell, widths[i]))
			line.WriteString("  ")
		}
		text := strings.TrimRight(line.String(), " ")

		c := display[ri]
		switch {
		case c.Chosen:
			text = chosenStyle.Render(text)
		case !c.Satisfies:
			text = infeasibleStyle.Render(text)
		}
		fmt.Fprintln(w, text)
	}

	if len(display) > 0 {
		fmt.Fprintln(w, noteStyle.Render("* = chosen; dimmed rows do not satisfy the request"))
	}
}
