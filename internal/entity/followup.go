package entity

import "time"

type Tone string

const (
	TonePolite    Tone = "polite"
	ToneAssertive Tone = "assertive"
	ToneFriendly  Tone = "friendly"
)

var Tones = []Tone{TonePolite, ToneAssertive, ToneFriendly}

func (t Tone) Valid() bool {
	for _, v := range Tones {
		if t == v {
			return true
		}
	}
	return false
}

// FollowupDraft is what the generation capability hands back, before the
// coordinator numbers it.
type FollowupDraft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type FollowupSuggestion struct {
	LeadID       string    `json:"lead_id"`
	VariantIndex int       `json:"variant_index"`
	Tone         Tone      `json:"tone"`
	Subject      string    `json:"subject"`
	Body         string    `json:"body"`
	CreatedAt    time.Time `json:"created_at"`
}

type SendState string

const (
	SendStateIdle    SendState = "idle"
	SendStateSending SendState = "sending"
	SendStateSent    SendState = "sent"
	SendStateFailed  SendState = "failed"
)

type SendAttempt struct {
	LeadID       string    `json:"lead_id"`
	VariantIndex int       `json:"variant_index"`
	State        SendState `json:"state"`
	StartedAt    time.Time `json:"started_at,omitempty"`
}

// LeadContext is the slice of a lead the generation capability sees.
type LeadContext struct {
	LeadID           string
	ContactName      string
	ContactEmail     string
	Company          string
	Notes            string
	LastEmailSnippet string
	Extra            string
}

func NewLeadContext(l *Lead, extra string) LeadContext {
	return LeadContext{
		LeadID:           l.ID,
		ContactName:      l.ContactName,
		ContactEmail:     l.ContactEmail,
		Company:          l.Company,
		Notes:            l.Notes,
		LastEmailSnippet: l.LastEmailSnippet,
		Extra:            extra,
	}
}
