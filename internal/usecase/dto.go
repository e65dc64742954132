package usecase

import (
	"time"

	"github.com/xavierca1/followwise/internal/entity"
)

type CreateLeadInput struct {
	ContactName      string     `json:"contact_name"`
	ContactEmail     string     `json:"contact_email"`
	Company          string     `json:"company"`
	Phone            string     `json:"phone"`
	Notes            string     `json:"notes"`
	Source           string     `json:"source"`
	Status           string     `json:"status"`
	LastEmailSnippet string     `json:"last_email_snippet"`
	LeadScore        int        `json:"lead_score"`
	NextFollowupAt   *time.Time `json:"next_followup_at,omitempty"`
}

// UpdateLeadInput carries only the fields the caller wants to change.
type UpdateLeadInput struct {
	ContactName      *string    `json:"contact_name,omitempty"`
	ContactEmail     *string    `json:"contact_email,omitempty"`
	Company          *string    `json:"company,omitempty"`
	Phone            *string    `json:"phone,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
	Source           *string    `json:"source,omitempty"`
	Status           *string    `json:"status,omitempty"`
	LastEmailSnippet *string    `json:"last_email_snippet,omitempty"`
	LeadScore        *int       `json:"lead_score,omitempty"`
	NextFollowupAt   *time.Time `json:"next_followup_at,omitempty"`

	// ClearNextFollowup drops the reminder and wins over NextFollowupAt.
	ClearNextFollowup bool `json:"clear_next_followup_at,omitempty"`
}

type ImportLeadsOutput struct {
	Created []*entity.Lead `json:"created"`
	Skipped []string       `json:"skipped"`
}

// LogSentEmailInput records an email the operator sent by hand, usually an
// edited copy of a suggestion.
type LogSentEmailInput struct {
	ToEmail      string  `json:"to_email"`
	Subject      string  `json:"subject"`
	Body         string  `json:"body"`
	Provider     string  `json:"provider,omitempty"`
	SourceLeadID *string `json:"source_lead_id,omitempty"`
}

type GenerateFollowupsInput struct {
	LeadID  string `json:"lead_id"`
	Tone    string `json:"tone"`
	Context string `json:"context,omitempty"`
}

// FollowupView is a suggestion together with the send state of its variant.
type FollowupView struct {
	entity.FollowupSuggestion
	SendState entity.SendState `json:"send_state"`
	StartedAt *time.Time       `json:"send_started_at,omitempty"`
}

type SendFollowupOutput struct {
	SentEmail *entity.SentEmail `json:"sent_email"`
	State     entity.SendState  `json:"state"`
}
