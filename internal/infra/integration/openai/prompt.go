package openai

import (
	"fmt"
	"strings"

	"github.com/xavierca1/followwise/internal/entity"
)

var toneGuides = map[entity.Tone]string{
	entity.TonePolite:    "courteous and considerate, never pushy",
	entity.ToneAssertive: "direct and confident, with a clear call to action and a concrete next step",
	entity.ToneFriendly:  "warm and casual, first-name basis, short sentences",
}

func systemPrompt(variants int) string {
	return fmt.Sprintf(`You write sales follow-up emails.
Return only JSON of the form {"variants":[{"subject":"...","body":"..."}]} with exactly %d variants.
Each variant must differ in angle, not just wording. Bodies are plain text, paragraphs separated by a blank line, signed "The FollowWise Team".`, variants)
}

func userPrompt(lead entity.LeadContext, tone entity.Tone) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tone: %s (%s)\n", tone, toneGuides[tone])
	fmt.Fprintf(&b, "Lead name: %s\n", lead.ContactName)
	writeOptional(&b, "Company", lead.Company)
	writeOptional(&b, "Last email from us", lead.LastEmailSnippet)
	writeOptional(&b, "Notes", lead.Notes)
	writeOptional(&b, "Additional context", lead.Extra)
	return b.String()
}

func writeOptional(b *strings.Builder, label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}
