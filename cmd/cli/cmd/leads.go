package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xavierca1/followwise/internal/entity"
	"github.com/xavierca1/followwise/internal/usecase"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "List, create, import and delete leads",
}

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leads, newest first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		q := LeadQuery{}
		q.Status, _ = cmd.Flags().GetString("status")
		q.Search, _ = cmd.Flags().GetString("search")
		q.Limit, _ = cmd.Flags().GetInt("limit")
		q.Offset, _ = cmd.Flags().GetInt("offset")

		leads, err := newClient().ListLeads(q)
		if err != nil {
			printError(cmd, err)
			return
		}
		if len(leads) == 0 {
			cmd.Println("No leads found.")
			return
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
		// status goes last: escape codes would throw off the column widths
		fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tCOMPANY\tSTATUS")
		for _, l := range leads {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", l.ID, l.ContactName, l.ContactEmail, l.Company, colorize(string(l.Status)))
		}
		tw.Flush()
	},
}

var leadsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a lead",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		var in usecase.CreateLeadInput
		in.ContactName, _ = cmd.Flags().GetString("name")
		in.ContactEmail, _ = cmd.Flags().GetString("email")
		in.Company, _ = cmd.Flags().GetString("company")
		in.Phone, _ = cmd.Flags().GetString("phone")
		in.Notes, _ = cmd.Flags().GetString("notes")
		in.Status, _ = cmd.Flags().GetString("status")
		in.Source, _ = cmd.Flags().GetString("source")
		in.LeadScore, _ = cmd.Flags().GetInt("score")

		lead, err := newClient().CreateLead(in)
		if err != nil {
			printError(cmd, err)
			return
		}
		printLead(cmd, lead)
	},
}

var leadsImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import leads from a YAML or JSON file",
	Long: `Import a batch of leads. The file holds a list of leads, or an object with a
"leads" list, using the API field names (contact_name, contact_email, company,
phone, notes, status, source). Leads whose email already exists are skipped; if
any other lead fails, none are stored.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			printError(cmd, err)
			return
		}
		inputs, err := parseImportFile(data)
		if err != nil {
			printError(cmd, err)
			return
		}

		out, err := newClient().ImportLeads(inputs)
		if err != nil {
			printError(cmd, err)
			return
		}
		cmd.Printf("Imported %d lead(s), skipped %d.\n", len(out.Created), len(out.Skipped))
		for _, email := range out.Skipped {
			cmd.Println(dimStyle.Render("  skipped " + email))
		}
	},
}

var leadsStatusCmd = &cobra.Command{
	Use:   "status [lead_id] [new|in_progress|won|lost]",
	Short: "Change the pipeline status of a lead",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		status := args[1]
		lead, err := newClient().UpdateLead(args[0], usecase.UpdateLeadInput{Status: &status})
		if err != nil {
			printError(cmd, err)
			return
		}
		printLead(cmd, lead)
	},
}

var leadsDeleteCmd = &cobra.Command{
	Use:   "delete [lead_id]",
	Short: "Delete a lead and its suggestions",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := newClient().DeleteLead(args[0]); err != nil {
			printError(cmd, err)
			return
		}
		cmd.Printf("Lead %s deleted.\n", args[0])
	},
}

type importRecord struct {
	ContactName      string `yaml:"contact_name"`
	ContactEmail     string `yaml:"contact_email"`
	Company          string `yaml:"company"`
	Phone            string `yaml:"phone"`
	Notes            string `yaml:"notes"`
	Source           string `yaml:"source"`
	Status           string `yaml:"status"`
	LastEmailSnippet string `yaml:"last_email_snippet"`
	LeadScore        int    `yaml:"lead_score"`
	NextFollowupAt   string `yaml:"next_followup_at"`
}

// parseImportFile reads YAML; JSON parses as YAML too.
func parseImportFile(data []byte) ([]usecase.CreateLeadInput, error) {
	var records []importRecord
	if err := yaml.Unmarshal(data, &records); err != nil {
		var wrapped struct {
			Leads []importRecord `yaml:"leads"`
		}
		if err2 := yaml.Unmarshal(data, &wrapped); err2 != nil {
			return nil, fmt.Errorf("parse import file: %w", err)
		}
		records = wrapped.Leads
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("import file contains no leads")
	}

	inputs := make([]usecase.CreateLeadInput, len(records))
	for i, r := range records {
		var next *time.Time
		if r.NextFollowupAt != "" {
			t, err := time.Parse(time.RFC3339, r.NextFollowupAt)
			if err != nil {
				return nil, fmt.Errorf("lead %d: next_followup_at: %w", i+1, err)
			}
			next = &t
		}
		inputs[i] = usecase.CreateLeadInput{
			ContactName:      r.ContactName,
			ContactEmail:     r.ContactEmail,
			Company:          r.Company,
			Phone:            r.Phone,
			Notes:            r.Notes,
			Source:           r.Source,
			Status:           r.Status,
			LastEmailSnippet: r.LastEmailSnippet,
			LeadScore:        r.LeadScore,
			NextFollowupAt:   next,
		}
	}
	return inputs, nil
}

func printLead(cmd *cobra.Command, l *entity.Lead) {
	lines := []string{
		headerStyle.Render(l.ContactName),
		field("ID", l.ID),
		field("Email", l.ContactEmail),
		field("Company", l.Company),
		field("Status", colorize(string(l.Status))),
		field("Source", string(l.Source)),
		field("Score", strconv.Itoa(l.LeadScore)),
		field("Created", formatTime(l.CreatedAt)),
	}
	if l.NextFollowupAt != nil {
		lines = append(lines, field("Follow up", formatTime(*l.NextFollowupAt)))
	}
	if l.LastEmailSnippet != "" {
		lines = append(lines, field("Last email", truncate(l.LastEmailSnippet, 60)))
	}
	cmd.Println(boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
}

func init() {
	leadsListCmd.Flags().String("status", "", "filter by status (new, in_progress, won, lost)")
	leadsListCmd.Flags().String("search", "", "match name, email, company or notes")
	leadsListCmd.Flags().Int("limit", 0, "maximum number of leads (server default 100)")
	leadsListCmd.Flags().Int("offset", 0, "number of leads to skip")

	leadsCreateCmd.Flags().String("name", "", "contact name")
	leadsCreateCmd.Flags().String("email", "", "contact email")
	leadsCreateCmd.Flags().String("company", "", "company")
	leadsCreateCmd.Flags().String("phone", "", "phone number")
	leadsCreateCmd.Flags().String("notes", "", "free-form notes used as generation context")
	leadsCreateCmd.Flags().String("status", "", "initial status (default new)")
	leadsCreateCmd.Flags().String("source", "", "where the lead came from (default manual)")
	leadsCreateCmd.Flags().Int("score", 0, "lead score from 0 to 100")
	leadsCreateCmd.MarkFlagRequired("name")
	leadsCreateCmd.MarkFlagRequired("email")

	leadsCmd.AddCommand(leadsListCmd, leadsCreateCmd, leadsImportCmd, leadsStatusCmd, leadsDeleteCmd)
	rootCmd.AddCommand(leadsCmd)
}
