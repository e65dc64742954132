package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/xavierca1/followwise/internal/entity"
	"github.com/xavierca1/followwise/internal/infra/queue"
)

type ListSentEmailsUseCase struct {
	Ledger   entity.SentEmailRepository
	LeadRepo entity.LeadRepository
}

func NewListSentEmailsUseCase(ledger entity.SentEmailRepository, leadRepo entity.LeadRepository) *ListSentEmailsUseCase {
	return &ListSentEmailsUseCase{Ledger: ledger, LeadRepo: leadRepo}
}

// Execute lists the ledger newest first. Filtering by lead requires the lead
// to exist; the unfiltered ledger also shows emails of deleted leads.
func (uc *ListSentEmailsUseCase) Execute(ctx context.Context, filter entity.SentEmailFilter) ([]*entity.SentEmail, error) {
	if filter.LeadID != "" && uc.LeadRepo != nil {
		if _, err := uc.LeadRepo.FindByID(ctx, filter.LeadID); err != nil {
			if errors.Is(err, entity.ErrLeadNotFound) {
				return nil, notFound(filter.LeadID)
			}
			return nil, storageError("load lead", err)
		}
	}

	filter.Limit = clampLimit(filter.Limit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	emails, err := uc.Ledger.List(ctx, filter)
	if err != nil {
		return nil, storageError("list sent emails", err)
	}
	if emails == nil {
		emails = []*entity.SentEmail{}
	}
	return emails, nil
}

// ManualProvider tags ledger rows the operator logged by hand.
const ManualProvider = "manual"

// LogSentEmailUseCase appends an email sent outside the send flow to the
// ledger. It never delivers anything.
type LogSentEmailUseCase struct {
	Ledger   entity.SentEmailRepository
	LeadRepo entity.LeadRepository
	Contacts *RecordLeadContactUseCase
	Logger   *slog.Logger
}

func NewLogSentEmailUseCase(ledger entity.SentEmailRepository, leadRepo entity.LeadRepository, contacts *RecordLeadContactUseCase, logger *slog.Logger) *LogSentEmailUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSentEmailUseCase{Ledger: ledger, LeadRepo: leadRepo, Contacts: contacts, Logger: logger}
}

func (uc *LogSentEmailUseCase) Execute(ctx context.Context, input LogSentEmailInput) (*entity.SentEmail, error) {
	if input.SourceLeadID != nil && strings.TrimSpace(*input.SourceLeadID) == "" {
		input.SourceLeadID = nil
	}
	if errs := ValidateLogSentEmailInput(input); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	if input.SourceLeadID != nil {
		if _, err := uc.LeadRepo.FindByID(ctx, *input.SourceLeadID); err != nil {
			if errors.Is(err, entity.ErrLeadNotFound) {
				return nil, notFound(*input.SourceLeadID)
			}
			return nil, storageError("load lead", err)
		}
	}

	provider := strings.TrimSpace(input.Provider)
	if provider == "" {
		provider = ManualProvider
	}
	record := &entity.SentEmail{
		ToEmail:      strings.TrimSpace(input.ToEmail),
		Subject:      input.Subject,
		Body:         input.Body,
		Provider:     provider,
		SourceLeadID: input.SourceLeadID,
	}
	if err := uc.Ledger.Append(ctx, record); err != nil {
		if errors.Is(err, entity.ErrLeadNotFound) && input.SourceLeadID != nil {
			return nil, notFound(*input.SourceLeadID)
		}
		return nil, storageError("append sent email", err)
	}

	uc.Logger.Info("sent email logged", "sent_email_id", record.ID, "provider", provider)

	if record.SourceLeadID != nil && uc.Contacts != nil {
		payload := queue.FollowupSentPayload{
			SentEmailID: record.ID,
			LeadID:      *record.SourceLeadID,
			ToEmail:     record.ToEmail,
			Subject:     record.Subject,
			Body:        record.Body,
			SentAt:      record.SentAt,
		}
		// the ledger row is the result; a failed stamp only costs the snippet
		if err := uc.Contacts.RecordContact(ctx, payload); err != nil {
			uc.Logger.Warn("recording lead contact failed", "lead_id", payload.LeadID, "error", err)
		}
	}
	return record, nil
}
