package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)

	stateColors = map[string]lipgloss.Color{
		"new":         "#5B8DEF",
		"in_progress": "#E5C07B",
		"won":         "#98C379",
		"lost":        "#E06C75",
		"idle":        "#888888",
		"sending":     "#E5C07B",
		"sent":        "#98C379",
		"failed":      "#E06C75",
	}
)

func colorize(state string) string {
	c, ok := stateColors[state]
	if !ok {
		return state
	}
	return lipgloss.NewStyle().Foreground(c).Render(state)
}

func printError(cmd *cobra.Command, err error) {
	cmd.PrintErrln(errorStyle.Render("Error: " + err.Error()))

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.MayHaveDelivered {
		cmd.PrintErrln(errorStyle.Render("The email may already have been delivered; check before retrying."))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func field(label, value string) string {
	return fmt.Sprintf("%s %s", dimStyle.Render(fmt.Sprintf("%-12s", label+":")), value)
}
