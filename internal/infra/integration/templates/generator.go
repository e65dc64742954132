// Package templates generates follow-ups offline from fixed per-tone
// templates. It backs development setups without an AI key.
package templates

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/xavierca1/followwise/internal/entity"
)

type variantTemplate struct {
	subject string
	body    string
}

var catalog = map[entity.Tone][]variantTemplate{
	entity.TonePolite: {
		{
			subject: "Following up on our recent conversation",
			body:    "Dear {{.Name}},\n\nI hope this message finds you well. I'm following up on our recent conversation about {{.Topic}}. Please let me know if you have any questions or if there is anything else I can help with.\n\nBest regards,\n{{.Signature}}",
		},
		{
			subject: "Just checking in",
			body:    "Hello {{.Name}},\n\nI wanted to follow up regarding {{.Topic}}. Have you had a chance to review the information I sent? I'm happy to provide any additional details.\n\nBest regards,\n{{.Signature}}",
		},
		{
			subject: "Reconnecting regarding your interest",
			body:    "Hi {{.Name}},\n\nI hope you're doing well. I'm reaching out to see whether you've had any thoughts about {{.Topic}} since we last spoke.\n\nKind regards,\n{{.Signature}}",
		},
	},
	entity.ToneAssertive: {
		{
			subject: "Action required: next steps on {{.ShortTopic}}",
			body:    "{{.Name}},\n\nI'm following up on our discussion about {{.Topic}}. To move forward I'll need your response by {{.Deadline}}.\n\nRegards,\n{{.Signature}}",
		},
		{
			subject: "Time-sensitive: need your input",
			body:    "{{.Name}},\n\nThis is a follow-up regarding {{.Topic}}. I need to hear back from you by {{.Deadline}} to proceed.\n\nBest,\n{{.Signature}}",
		},
		{
			subject: "Following up: next steps",
			body:    "{{.Name}},\n\nI'm reaching out again about {{.Topic}}. Your input is needed to take the next step. Please respond by {{.Deadline}}.\n\nThanks,\n{{.Signature}}",
		},
	},
	entity.ToneFriendly: {
		{
			subject: "Hey {{.FirstName}}! Just checking in",
			body:    "Hey {{.FirstName}}!\n\nI was just thinking about our chat on {{.Topic}} and wanted to check in. How's it going?\n\nCheers,\n{{.Signature}}",
		},
		{
			subject: "Quick follow-up on {{.ShortTopic}}",
			body:    "Hi {{.FirstName}}!\n\nHope you're having a great week! Any updates on {{.Topic}} on your end?\n\nBest,\n{{.Signature}}",
		},
		{
			subject: "Quick update on our conversation",
			body:    "{{.FirstName}}!\n\nQuick note to follow up about {{.Topic}}. Let me know what you think when you get a chance!\n\nTalk soon,\n{{.Signature}}",
		},
	},
}

type fields struct {
	Name       string
	FirstName  string
	Topic      string
	ShortTopic string
	Deadline   string
	Signature  string
}

type Generator struct {
	Signature string
	now       func() time.Time
}

func NewGenerator(signature string) *Generator {
	if signature == "" {
		signature = "The FollowWise Team"
	}
	return &Generator{Signature: signature, now: time.Now}
}

func (g *Generator) GenerateFollowups(ctx context.Context, lead entity.LeadContext, tone entity.Tone) ([]entity.FollowupDraft, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tmpls, ok := catalog[tone]
	if !ok {
		return nil, fmt.Errorf("no templates for tone %q", tone)
	}

	f := g.fields(lead)
	drafts := make([]entity.FollowupDraft, 0, len(tmpls))
	for i, t := range tmpls {
		subject, err := render(fmt.Sprintf("%s-%d-subject", tone, i), t.subject, f)
		if err != nil {
			return nil, err
		}
		body, err := render(fmt.Sprintf("%s-%d-body", tone, i), t.body, f)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, entity.FollowupDraft{Subject: subject, Body: body})
	}
	return drafts, nil
}

func (g *Generator) fields(lead entity.LeadContext) fields {
	name := strings.TrimSpace(lead.ContactName)
	if name == "" {
		name = "there"
	}
	first := strings.Fields(name)[0]

	topic := firstNonEmpty(lead.Extra, lead.Notes, lead.LastEmailSnippet)
	if topic == "" {
		if lead.Company != "" {
			topic = "how we can help " + lead.Company
		} else {
			topic = "our previous conversation"
		}
	}
	topic = strings.TrimRight(strings.TrimSpace(topic), ".")

	return fields{
		Name:       name,
		FirstName:  first,
		Topic:      topic,
		ShortTopic: entity.Snippet(topic, 50),
		Deadline:   g.now().AddDate(0, 0, 3).Format("Monday, January 2"),
		Signature:  g.Signature,
	}
}

func render(name, text string, data fields) (string, error) {
	t, err := template.New(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
