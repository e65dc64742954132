package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/xavierca1/followwise/internal/usecase"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Show pipeline and outreach metrics",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		rangeName, _ := cmd.Flags().GetString("range")
		period, _ := cmd.Flags().GetString("period")

		report, err := newClient().Analytics(rangeName, period)
		if err != nil {
			printError(cmd, err)
			return
		}
		printReport(cmd, report)
	},
}

func printReport(cmd *cobra.Command, r *usecase.AnalyticsReport) {
	summary := []string{
		headerStyle.Render(fmt.Sprintf("%s → %s", r.Window.From.Format("2006-01-02"), r.Window.To.Format("2006-01-02"))),
		field("Leads", fmt.Sprint(r.TotalLeads)),
		field("Emails", fmt.Sprint(r.TotalEmails)),
		field("Contacted", fmt.Sprintf("%d (%.1f%%)", r.ContactedLeads, r.ContactRate)),
		field("Conversion", fmt.Sprintf("%.1f%%", r.ConversionRate)),
	}
	for _, s := range r.StatusBreakdown {
		summary = append(summary, field(string(s.Status), fmt.Sprintf("%d (%.1f%%)", s.Count, s.Percentage)))
	}
	cmd.Println(boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, summary...)))

	if len(r.Periods) == 0 {
		return
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(string(r.Window.Period))+"\tLEADS\tEMAILS")
	for _, b := range r.Periods {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", b.Label, b.Leads, b.Emails)
	}
	tw.Flush()
}

func init() {
	analyticsCmd.Flags().String("range", "30d", "7d, 30d, 90d or 1y")
	analyticsCmd.Flags().String("period", "month", "bucket size: day, week or month")

	rootCmd.AddCommand(analyticsCmd)
}
