package cmd

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/xavierca1/followwise/internal/entity"
)

var followupsCmd = &cobra.Command{
	Use:     "followups",
	Aliases: []string{"fu"},
	Short:   "Generate, review and send AI follow-up emails",
}

var followupsGenerateCmd = &cobra.Command{
	Use:   "generate [lead_id]",
	Short: "Generate a fresh set of follow-up suggestions for a lead",
	Long: `Ask the AI for follow-up variants in the given tone. The new set replaces the
lead's current suggestions, including their send states.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		tone, _ := cmd.Flags().GetString("tone")
		extra, _ := cmd.Flags().GetString("context")

		out, err := newClient().GenerateFollowups(args[0], tone, extra)
		if err != nil {
			printError(cmd, err)
			return
		}

		cmd.Printf("Generated %d %s suggestion(s) for lead %s.\n\n", len(out.Suggestions), out.Tone, shortID(out.LeadID))
		for _, s := range out.Suggestions {
			printSuggestion(cmd, s, "")
		}
	},
}

var followupsListCmd = &cobra.Command{
	Use:   "list [lead_id]",
	Short: "Show the current suggestions of a lead and their send states",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		views, err := newClient().ListFollowups(args[0])
		if err != nil {
			printError(cmd, err)
			return
		}
		if len(views) == 0 {
			cmd.Println("No suggestions. Run 'followctl followups generate' first.")
			return
		}
		for _, v := range views {
			printSuggestion(cmd, v.FollowupSuggestion, v.SendState)
		}
	},
}

var followupsSendCmd = &cobra.Command{
	Use:   "send [lead_id] [variant_index]",
	Short: "Send one suggestion to the lead",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		idx, err := strconv.Atoi(args[1])
		if err != nil || idx < 0 {
			printError(cmd, fmt.Errorf("variant index must be a non-negative integer, got %q", args[1]))
			return
		}

		out, err := newClient().SendFollowup(args[0], idx)
		if err != nil {
			printError(cmd, err)
			return
		}

		e := out.SentEmail
		cmd.Println(boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			headerStyle.Render("Follow-up sent"),
			field("To", e.ToEmail),
			field("Subject", e.Subject),
			field("Provider", e.Provider),
			field("Sent at", formatTime(e.SentAt)),
			field("Record", e.ID),
		)))
	},
}

func printSuggestion(cmd *cobra.Command, s entity.FollowupSuggestion, state entity.SendState) {
	title := fmt.Sprintf("#%d  %s", s.VariantIndex, s.Subject)
	lines := []string{headerStyle.Render(title)}
	if state != "" {
		lines = append(lines, field("State", colorize(string(state))))
	}
	lines = append(lines, "", s.Body)
	cmd.Println(boxStyle.Width(72).Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
}

func init() {
	followupsGenerateCmd.Flags().String("tone", "polite", "polite, assertive or friendly")
	followupsGenerateCmd.Flags().String("context", "", "extra context for this generation only")

	followupsCmd.AddCommand(followupsGenerateCmd, followupsListCmd, followupsSendCmd)
	rootCmd.AddCommand(followupsCmd)
}
