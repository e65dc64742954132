package entity

import (
	"context"
	"time"
)

type SentEmail struct {
	ID           string    `json:"id"`
	ToEmail      string    `json:"to_email"`
	Subject      string    `json:"subject"`
	Body         string    `json:"body"`
	Provider     string    `json:"provider"`
	SentAt       time.Time `json:"sent_at"`
	SourceLeadID *string   `json:"source_lead_id,omitempty"`
}

type SentEmailFilter struct {
	LeadID string
	Since  time.Time
	Until  time.Time
	Limit  int
	Offset int
}

// SentEmailRepository is append-only: Append assigns ID and SentAt.
type SentEmailRepository interface {
	Append(ctx context.Context, email *SentEmail) error
	List(ctx context.Context, filter SentEmailFilter) ([]*SentEmail, error)
}
