package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/xavierca1/followwise/internal/usecase"
)

var sentCmd = &cobra.Command{
	Use:   "sent",
	Short: "List sent follow-ups, newest first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		leadID, _ := cmd.Flags().GetString("lead")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		emails, err := newClient().ListSentEmails(leadID, limit, offset)
		if err != nil {
			printError(cmd, err)
			return
		}
		if len(emails) == 0 {
			cmd.Println("No emails sent yet.")
			return
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
		fmt.Fprintln(tw, "SENT AT\tTO\tSUBJECT\tPROVIDER")
		for _, e := range emails {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", formatTime(e.SentAt), e.ToEmail, truncate(e.Subject, 50), e.Provider)
		}
		tw.Flush()
	},
}

var sentLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Record an email you sent by hand",
	Long: `Record an email sent outside followctl, for example an edited suggestion
sent from your own mail client. Nothing is delivered. With --lead the email is
linked to the lead and stamped as its last contact.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		var in usecase.LogSentEmailInput
		in.ToEmail, _ = cmd.Flags().GetString("to")
		in.Subject, _ = cmd.Flags().GetString("subject")
		in.Body, _ = cmd.Flags().GetString("body")
		in.Provider, _ = cmd.Flags().GetString("provider")
		leadID, _ := cmd.Flags().GetString("lead")

		if path, _ := cmd.Flags().GetString("body-file"); path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				printError(cmd, err)
				return
			}
			in.Body = string(data)
		}

		e, err := newClient().LogSentEmail(leadID, in)
		if err != nil {
			printError(cmd, err)
			return
		}

		lines := []string{
			headerStyle.Render("Logged: " + e.Subject),
			field("ID", e.ID),
			field("To", e.ToEmail),
			field("Provider", e.Provider),
			field("Sent", formatTime(e.SentAt)),
		}
		if e.SourceLeadID != nil {
			lines = append(lines, field("Lead", *e.SourceLeadID))
		}
		cmd.Println(boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	},
}

func init() {
	sentCmd.Flags().String("lead", "", "only emails sent to this lead")
	sentCmd.Flags().Int("limit", 0, "maximum number of emails (server default 100)")
	sentCmd.Flags().Int("offset", 0, "number of emails to skip")

	sentLogCmd.Flags().String("to", "", "recipient address")
	sentLogCmd.Flags().String("subject", "", "subject line")
	sentLogCmd.Flags().String("body", "", "email body")
	sentLogCmd.Flags().String("body-file", "", "read the body from a file")
	sentLogCmd.Flags().String("lead", "", "lead the email was sent to")
	sentLogCmd.Flags().String("provider", "", "how it was sent (default manual)")
	sentLogCmd.MarkFlagRequired("to")
	sentLogCmd.MarkFlagRequired("subject")
	sentLogCmd.MarkFlagsOneRequired("body", "body-file")
	sentLogCmd.MarkFlagsMutuallyExclusive("body", "body-file")

	sentCmd.AddCommand(sentLogCmd)
	rootCmd.AddCommand(sentCmd)
}
