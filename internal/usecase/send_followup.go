package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xavierca1/followwise/internal/entity"
	"github.com/xavierca1/followwise/internal/infra/queue"
)

// SendFollowupUseCase dispatches one variant of a lead's current suggestion
// set. The per-variant state in the SuggestionCache is the only guard against
// duplicate delivery; nothing here retries.
type SendFollowupUseCase struct {
	LeadRepo  entity.LeadRepository
	Ledger    entity.SentEmailRepository
	Delivery  EmailDelivery
	Cache     *SuggestionCache
	Publisher EventPublisher
	Contacts  *RecordLeadContactUseCase
	Logger    *slog.Logger
}

func NewSendFollowupUseCase(
	leadRepo entity.LeadRepository,
	ledger entity.SentEmailRepository,
	delivery EmailDelivery,
	cache *SuggestionCache,
	publisher EventPublisher,
	contacts *RecordLeadContactUseCase,
	logger *slog.Logger,
) *SendFollowupUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &SendFollowupUseCase{
		LeadRepo:  leadRepo,
		Ledger:    ledger,
		Delivery:  delivery,
		Cache:     cache,
		Publisher: publisher,
		Contacts:  contacts,
		Logger:    logger,
	}
}

func (uc *SendFollowupUseCase) Execute(ctx context.Context, leadID string, variantIndex int) (*SendFollowupOutput, error) {
	ticket, err := uc.Cache.BeginSend(leadID, variantIndex)
	if err != nil {
		return nil, err
	}

	log := uc.Logger.With("lead_id", leadID, "variant", variantIndex)

	lead, err := uc.LeadRepo.FindByID(ctx, leadID)
	if err != nil {
		uc.Cache.AbortSend(ticket)
		if errors.Is(err, entity.ErrLeadNotFound) {
			return nil, notFound(leadID)
		}
		return nil, storageError("load lead", err)
	}

	sg := ticket.Suggestion
	done := make(chan error, 1)
	go func() {
		done <- uc.Delivery.SendEmail(ctx, lead.ContactEmail, sg.Subject, sg.Body)
	}()

	select {
	case <-ctx.Done():
		// A late result from the transport is dropped with the channel.
		uc.Cache.AbortSend(ticket)
		log.Warn("send cancelled")
		return nil, sendCancelled(leadID, variantIndex, ctx.Err())
	case err = <-done:
	}

	if err != nil {
		if ctx.Err() != nil {
			uc.Cache.AbortSend(ticket)
			return nil, sendCancelled(leadID, variantIndex, ctx.Err())
		}
		if !uc.Cache.FailSend(ticket) {
			return nil, staleSuggestion(leadID, variantIndex, false)
		}
		log.Error("delivery failed", "error", err)
		return nil, sendFailed(leadID, variantIndex, err, false)
	}

	record := &entity.SentEmail{
		ToEmail:      lead.ContactEmail,
		Subject:      sg.Subject,
		Body:         sg.Body,
		Provider:     uc.Delivery.Provider(),
		SourceLeadID: &lead.ID,
	}

	// The email is out; the caller going away must not lose the record.
	appendCtx := context.WithoutCancel(ctx)
	err = uc.Cache.CommitSend(ticket, func() error {
		return uc.Ledger.Append(appendCtx, record)
	})
	if errors.Is(err, errStaleTicket) {
		log.Warn("suggestions replaced while sending; result discarded")
		return nil, staleSuggestion(leadID, variantIndex, true)
	}
	if err != nil {
		log.Error("ledger append failed after delivery", "error", err)
		return nil, sendFailed(leadID, variantIndex, err, true)
	}

	log.Info("follow-up sent", "sent_email_id", record.ID, "to", record.ToEmail)
	uc.afterSend(appendCtx, record)

	return &SendFollowupOutput{SentEmail: record, State: entity.SendStateSent}, nil
}

// afterSend never fails the send: the email and its record already exist.
func (uc *SendFollowupUseCase) afterSend(ctx context.Context, record *entity.SentEmail) {
	payload := queue.FollowupSentPayload{
		SentEmailID: record.ID,
		LeadID:      *record.SourceLeadID,
		ToEmail:     record.ToEmail,
		Subject:     record.Subject,
		Body:        record.Body,
		SentAt:      record.SentAt,
	}

	if uc.Publisher != nil {
		err := uc.Publisher.PublishFollowupSent(ctx, payload)
		if err == nil {
			return
		}
		uc.Logger.Warn("publishing followup.sent failed; recording contact inline",
			"lead_id", payload.LeadID, "error", err)
	}

	if uc.Contacts != nil {
		if err := uc.Contacts.RecordContact(ctx, payload); err != nil {
			uc.Logger.Warn("recording lead contact failed", "lead_id", payload.LeadID, "error", err)
		}
	}
}

func sendFailed(leadID string, variantIndex int, err error, delivered bool) error {
	msg := fmt.Sprintf("sending variant %d of lead %s failed: %v", variantIndex, leadID, err)
	if delivered {
		msg = fmt.Sprintf("variant %d of lead %s was handed to the mail server but could not be recorded (%v); the email may already have been delivered", variantIndex, leadID, err)
	}
	return &DomainError{
		Code:             CodeSendFailed,
		Message:          msg,
		LeadID:           leadID,
		VariantIndex:     variantRef(variantIndex),
		MayHaveDelivered: delivered,
		Err:              err,
	}
}

func sendCancelled(leadID string, variantIndex int, err error) error {
	de := cancelled(leadID, err).(*DomainError)
	de.VariantIndex = variantRef(variantIndex)
	return de
}

// RecordLeadContactUseCase stamps a lead with the last email sent to it. It
// runs inline or from the queue worker.
type RecordLeadContactUseCase struct {
	LeadRepo entity.LeadRepository
}

func NewRecordLeadContactUseCase(leadRepo entity.LeadRepository) *RecordLeadContactUseCase {
	return &RecordLeadContactUseCase{LeadRepo: leadRepo}
}

func (uc *RecordLeadContactUseCase) RecordContact(ctx context.Context, payload queue.FollowupSentPayload) error {
	err := uc.LeadRepo.RecordContact(ctx, payload.LeadID, entity.Snippet(payload.Body, entity.SnippetLength), payload.SentAt)
	if errors.Is(err, entity.ErrLeadNotFound) {
		// deleted since; nothing to stamp
		return nil
	}
	if err != nil {
		return fmt.Errorf("record contact on lead %s: %w", payload.LeadID, err)
	}
	return nil
}
