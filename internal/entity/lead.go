package entity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrLeadNotFound       = errors.New("lead not found")
	ErrEmailAlreadyExists = errors.New("a lead with this email already exists")
)

type LeadStatus string

const (
	LeadStatusNew        LeadStatus = "new"
	LeadStatusInProgress LeadStatus = "in_progress"
	LeadStatusWon        LeadStatus = "won"
	LeadStatusLost       LeadStatus = "lost"
)

// LeadStatuses is the fixed display order used by listings and analytics.
var LeadStatuses = []LeadStatus{LeadStatusNew, LeadStatusInProgress, LeadStatusWon, LeadStatusLost}

func (s LeadStatus) Valid() bool {
	for _, st := range LeadStatuses {
		if s == st {
			return true
		}
	}
	return false
}

type LeadSource string

const (
	LeadSourceEmail  LeadSource = "email"
	LeadSourceManual LeadSource = "manual"
	LeadSourceImport LeadSource = "import"
	LeadSourceOther  LeadSource = "other"
)

func (s LeadSource) Valid() bool {
	switch s {
	case LeadSourceEmail, LeadSourceManual, LeadSourceImport, LeadSourceOther:
		return true
	}
	return false
}

type Lead struct {
	ID               string     `json:"id"`
	ContactName      string     `json:"contact_name"`
	ContactEmail     string     `json:"contact_email"`
	Company          string     `json:"company,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	Source           LeadSource `json:"source"`
	Status           LeadStatus `json:"status"`
	LastEmailSnippet string     `json:"last_email_snippet,omitempty"`
	LeadScore        int        `json:"lead_score"`
	NextFollowupAt   *time.Time `json:"next_followup_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NewLead builds a lead with defaults applied. Field validation lives in the
// use case layer so callers get every problem at once.
func NewLead(name, email, company, phone, notes string, source LeadSource, status LeadStatus) *Lead {
	if source == "" {
		source = LeadSourceManual
	}
	if status == "" {
		status = LeadStatusNew
	}
	now := time.Now().UTC()
	return &Lead{
		ID:           uuid.New().String(),
		ContactName:  strings.TrimSpace(name),
		ContactEmail: strings.ToLower(strings.TrimSpace(email)),
		Company:      company,
		Phone:        phone,
		Notes:        notes,
		Source:       source,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// SnippetLength is how much of the last email a lead keeps.
const SnippetLength = 200

// MaxLeadScore bounds LeadScore; scores run from 0 to MaxLeadScore.
const MaxLeadScore = 100

// RecordContact stores the snippet of the last email sent to the lead, clears
// the follow-up reminder and moves a fresh lead into the pipeline.
func (l *Lead) RecordContact(body string, at time.Time) {
	l.LastEmailSnippet = Snippet(body, SnippetLength)
	l.NextFollowupAt = nil
	if l.Status == LeadStatusNew {
		l.Status = LeadStatusInProgress
	}
	l.UpdatedAt = at
}

// Snippet cuts s to at most n runes.
func Snippet(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

type LeadFilter struct {
	Status LeadStatus
	Search string
	Limit  int
	Offset int
}

type LeadRepository interface {
	List(ctx context.Context, filter LeadFilter) ([]*Lead, error)
	FindByID(ctx context.Context, id string) (*Lead, error)
	FindByEmail(ctx context.Context, email string) (*Lead, error)
	Create(ctx context.Context, lead *Lead) error
	Update(ctx context.Context, lead *Lead) error
	// RecordContact stores the snippet of the last email sent, clears the
	// follow-up reminder and moves a new lead to in_progress, leaving every
	// other field alone.
	RecordContact(ctx context.Context, id, snippet string, at time.Time) error
	Delete(ctx context.Context, id string) error
}
