package usecase

import (
	"context"

	"github.com/xavierca1/followwise/internal/entity"
	"github.com/xavierca1/followwise/internal/infra/queue"
)

// FollowupGenerator is the AI capability producing candidate emails. The
// returned order is significant.
type FollowupGenerator interface {
	GenerateFollowups(ctx context.Context, lead entity.LeadContext, tone entity.Tone) ([]entity.FollowupDraft, error)
}

// EmailDelivery is the outbound mail capability. Not idempotent.
type EmailDelivery interface {
	SendEmail(ctx context.Context, to, subject, body string) error
	Provider() string
}

type EventPublisher interface {
	PublishFollowupSent(ctx context.Context, payload queue.FollowupSentPayload) error
}

// ActivityChecker reports whether a lead has generation or send work in
// flight.
type ActivityChecker interface {
	InFlight(leadID string) bool
}
