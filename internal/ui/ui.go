package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	Green     = lipgloss.Color("#22C55E")
	Amber     = lipgloss.Color("#F59E0B")
	Blue      = lipgloss.Color("#3B82F6")
	Red       = lipgloss.Color("#EF4444")
	LightGray = lipgloss.Color("#9CA3AF")
	White     = lipgloss.Color("#F9FAFB")
)

// Out is where operator-facing messages are written.
var Out io.Writer = os.Stdout

var (
	infoStyle    = lipgloss.NewStyle().Foreground(Blue)
	successStyle = lipgloss.NewStyle().Foreground(Green).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(Amber).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(Red).Bold(true)
	stepStyle    = lipgloss.NewStyle().Foreground(White).Bold(true)
	sectionStyle = lipgloss.NewStyle().Foreground(White).Bold(true).Underline(true)
)

func Info(format string, a ...any) {
	printStyled(infoStyle, "•", format, a...)
}

func Success(format string, a ...any) {
	printStyled(successStyle, "✔", format, a...)
}

func Warn(format string, a ...any) {
	printStyled(warnStyle, "!", format, a...)
}

func Error(format string, a ...any) {
	printStyled(errorStyle, "✘", format, a...)
}

// Step prints a phase header such as "[3/10] backup".
func Step(index, total int, name string) {
	fmt.Fprintln(Out, stepStyle.Render(fmt.Sprintf("[%d/%d] %s", index, total, name)))
}

func Section(title string, textLines []string) {
	fmt.Fprintln(Out, sectionStyle.Render(title))
	for _, line := range textLines {
		fmt.Fprintf(Out, "  %s\n", line)
	}
}

// Table renders rows under the given headers with a rounded border.
func Table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(LightGray)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...).
		Rows(rows...)
	return t.String()
}

// Colorize renders value with the color associated with a deployment outcome.
func Colorize(outcome string) string {
	switch strings.ReplaceAll(strings.ToLower(outcome), "-", "_") {
	case "success", "ok":
		return lipgloss.NewStyle().Foreground(Green).Render(outcome)
	case "rolled_back", "dry_run":
		return lipgloss.NewStyle().Foreground(Amber).Render(outcome)
	case "failed", "migration_failed", "manual_intervention":
		return lipgloss.NewStyle().Foreground(Red).Render(outcome)
	default:
		return lipgloss.NewStyle().Foreground(LightGray).Italic(true).Render(outcome)
	}
}

func printStyled(style lipgloss.Style, symbol, format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	fmt.Fprintf(Out, "%s %s\n", style.Render(symbol), msg)
}
