package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xavierca1/followwise/internal/entity"
)

// GenerateFollowupsUseCase allows at most one generation per lead at a time.
// Overlapping calls are rejected rather than queued, so an older generation
// can never overwrite the set written by a newer one.
type GenerateFollowupsUseCase struct {
	LeadRepo  entity.LeadRepository
	Generator FollowupGenerator
	Cache     *SuggestionCache
	Logger    *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
}

type generationResult struct {
	drafts []entity.FollowupDraft
	err    error
}

func NewGenerateFollowupsUseCase(
	leadRepo entity.LeadRepository,
	generator FollowupGenerator,
	cache *SuggestionCache,
	logger *slog.Logger,
) *GenerateFollowupsUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerateFollowupsUseCase{
		LeadRepo:  leadRepo,
		Generator: generator,
		Cache:     cache,
		Logger:    logger,
		pending:   make(map[string]struct{}),
	}
}

func (uc *GenerateFollowupsUseCase) Execute(ctx context.Context, input GenerateFollowupsInput) ([]entity.FollowupSuggestion, error) {
	tone := entity.Tone(input.Tone)
	if !tone.Valid() {
		return nil, &DomainError{
			Code:    CodeInvalidArgument,
			Message: fmt.Sprintf("unknown tone %q; expected one of polite, assertive, friendly", input.Tone),
			LeadID:  input.LeadID,
			Tone:    input.Tone,
			Fields:  []ValidationError{{"tone", "is invalid"}},
		}
	}

	if !uc.acquire(input.LeadID) {
		return nil, &DomainError{
			Code:    CodeAlreadyInProgress,
			Message: fmt.Sprintf("a generation for lead %s is already in progress", input.LeadID),
			LeadID:  input.LeadID,
			Tone:    input.Tone,
		}
	}
	defer uc.release(input.LeadID)

	lead, err := uc.LeadRepo.FindByID(ctx, input.LeadID)
	if err != nil {
		if errors.Is(err, entity.ErrLeadNotFound) {
			return nil, notFound(input.LeadID)
		}
		return nil, storageError("load lead", err)
	}

	log := uc.Logger.With("lead_id", lead.ID, "tone", string(tone))
	log.Info("generating follow-up suggestions")

	done := make(chan generationResult, 1)
	go func() {
		drafts, err := uc.Generator.GenerateFollowups(ctx, entity.NewLeadContext(lead, input.Context), tone)
		done <- generationResult{drafts: drafts, err: err}
	}()

	var res generationResult
	select {
	case <-ctx.Done():
		log.Warn("generation cancelled")
		return nil, generationCancelled(input, ctx.Err())
	case res = <-done:
	}

	if res.err != nil {
		if ctx.Err() != nil {
			return nil, generationCancelled(input, ctx.Err())
		}
		log.Error("generation failed", "error", res.err)
		return nil, generationFailed(input, res.err)
	}
	if len(res.drafts) == 0 {
		log.Error("generation returned no variants")
		return nil, generationFailed(input, errors.New("generator returned no variants"))
	}

	now := time.Now().UTC()
	suggestions := make([]entity.FollowupSuggestion, len(res.drafts))
	for i, d := range res.drafts {
		suggestions[i] = entity.FollowupSuggestion{
			LeadID:       lead.ID,
			VariantIndex: i,
			Tone:         tone,
			Subject:      d.Subject,
			Body:         d.Body,
			CreatedAt:    now,
		}
	}
	uc.Cache.Replace(lead.ID, suggestions)

	log.Info("follow-up suggestions replaced", "variants", len(suggestions))
	return suggestions, nil
}

// InFlight reports whether a generation for the lead is pending.
func (uc *GenerateFollowupsUseCase) InFlight(leadID string) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	_, ok := uc.pending[leadID]
	return ok
}

func (uc *GenerateFollowupsUseCase) acquire(leadID string) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if _, ok := uc.pending[leadID]; ok {
		return false
	}
	uc.pending[leadID] = struct{}{}
	return true
}

func (uc *GenerateFollowupsUseCase) release(leadID string) {
	uc.mu.Lock()
	delete(uc.pending, leadID)
	uc.mu.Unlock()
}

func generationFailed(input GenerateFollowupsInput, err error) error {
	return &DomainError{
		Code:    CodeGenerationFailed,
		Message: fmt.Sprintf("generating %s follow-ups for lead %s failed: %v", input.Tone, input.LeadID, err),
		LeadID:  input.LeadID,
		Tone:    input.Tone,
		Err:     err,
	}
}

func generationCancelled(input GenerateFollowupsInput, err error) error {
	de := cancelled(input.LeadID, err).(*DomainError)
	de.Tone = input.Tone
	return de
}

// GetFollowupsUseCase returns the current set of a known lead.
type GetFollowupsUseCase struct {
	LeadRepo entity.LeadRepository
	Cache    *SuggestionCache
}

func NewGetFollowupsUseCase(leadRepo entity.LeadRepository, cache *SuggestionCache) *GetFollowupsUseCase {
	return &GetFollowupsUseCase{LeadRepo: leadRepo, Cache: cache}
}

func (uc *GetFollowupsUseCase) Execute(ctx context.Context, leadID string) ([]FollowupView, error) {
	if _, err := uc.LeadRepo.FindByID(ctx, leadID); err != nil {
		if errors.Is(err, entity.ErrLeadNotFound) {
			return nil, notFound(leadID)
		}
		return nil, storageError("load lead", err)
	}
	return uc.Cache.Snapshot(leadID), nil
}
