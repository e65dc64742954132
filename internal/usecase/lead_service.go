package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xavierca1/followwise/internal/entity"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

type LeadService struct {
	Repo     entity.LeadRepository
	Cache    *SuggestionCache
	Activity []ActivityChecker
	Logger   *slog.Logger
}

func NewLeadService(repo entity.LeadRepository, cache *SuggestionCache, logger *slog.Logger, activity ...ActivityChecker) *LeadService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LeadService{
		Repo:     repo,
		Cache:    cache,
		Activity: activity,
		Logger:   logger,
	}
}

func (s *LeadService) List(ctx context.Context, filter entity.LeadFilter) ([]*entity.Lead, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, validationFailed([]ValidationError{{"status", "must be one of new, in_progress, won, lost"}})
	}
	filter.Limit = clampLimit(filter.Limit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	filter.Search = strings.TrimSpace(filter.Search)

	leads, err := s.Repo.List(ctx, filter)
	if err != nil {
		return nil, storageError("list leads", err)
	}
	if leads == nil {
		leads = []*entity.Lead{}
	}
	return leads, nil
}

func (s *LeadService) Get(ctx context.Context, id string) (*entity.Lead, error) {
	lead, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, entity.ErrLeadNotFound) {
			return nil, notFound(id)
		}
		return nil, storageError("load lead", err)
	}
	return lead, nil
}

func (s *LeadService) Create(ctx context.Context, input CreateLeadInput) (*entity.Lead, error) {
	if errs := ValidateCreateLeadInput(input); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	lead := entity.NewLead(
		input.ContactName, input.ContactEmail, input.Company, input.Phone, input.Notes,
		entity.LeadSource(input.Source), entity.LeadStatus(input.Status),
	)
	lead.LastEmailSnippet = input.LastEmailSnippet
	lead.LeadScore = input.LeadScore
	lead.NextFollowupAt = utcTime(input.NextFollowupAt)

	if err := s.Repo.Create(ctx, lead); err != nil {
		return nil, createError(lead.ContactEmail, err)
	}

	s.Logger.Info("lead created", "lead_id", lead.ID)
	return lead, nil
}

func (s *LeadService) Update(ctx context.Context, id string, input UpdateLeadInput) (*entity.Lead, error) {
	if errs := ValidateUpdateLeadInput(input); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	lead, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.ContactName != nil {
		lead.ContactName = strings.TrimSpace(*input.ContactName)
	}
	if input.ContactEmail != nil {
		lead.ContactEmail = strings.ToLower(strings.TrimSpace(*input.ContactEmail))
	}
	if input.Company != nil {
		lead.Company = *input.Company
	}
	if input.Phone != nil {
		lead.Phone = *input.Phone
	}
	if input.Notes != nil {
		lead.Notes = *input.Notes
	}
	if input.Source != nil {
		lead.Source = entity.LeadSource(*input.Source)
	}
	if input.Status != nil {
		lead.Status = entity.LeadStatus(*input.Status)
	}
	if input.LastEmailSnippet != nil {
		lead.LastEmailSnippet = *input.LastEmailSnippet
	}
	if input.LeadScore != nil {
		lead.LeadScore = *input.LeadScore
	}
	switch {
	case input.ClearNextFollowup:
		lead.NextFollowupAt = nil
	case input.NextFollowupAt != nil:
		lead.NextFollowupAt = utcTime(input.NextFollowupAt)
	}
	lead.UpdatedAt = time.Now().UTC()

	if err := s.Repo.Update(ctx, lead); err != nil {
		switch {
		case errors.Is(err, entity.ErrLeadNotFound):
			return nil, notFound(id)
		case errors.Is(err, entity.ErrEmailAlreadyExists):
			return nil, emailTaken(lead.ContactEmail)
		}
		return nil, storageError("update lead", err)
	}
	return lead, nil
}

// Delete refuses while a generation or send is pending for the lead. The
// check is advisory: work started after it fails later with NOT_FOUND.
func (s *LeadService) Delete(ctx context.Context, id string) error {
	for _, a := range s.Activity {
		if a.InFlight(id) {
			return &DomainError{
				Code:    CodeConflict,
				Message: fmt.Sprintf("lead %s has a generation or send in progress", id),
				LeadID:  id,
			}
		}
	}

	if err := s.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, entity.ErrLeadNotFound) {
			return notFound(id)
		}
		return storageError("delete lead", err)
	}
	if s.Cache != nil {
		s.Cache.Clear(id)
	}

	s.Logger.Info("lead deleted", "lead_id", id)
	return nil
}

// Import stores every new lead of the batch or none of them. Addresses that
// already exist, in the store or earlier in the batch, are skipped.
func (s *LeadService) Import(ctx context.Context, inputs []CreateLeadInput) (*ImportLeadsOutput, error) {
	var errs []ValidationError
	for i, in := range inputs {
		for _, e := range ValidateCreateLeadInput(in) {
			errs = append(errs, ValidationError{fmt.Sprintf("leads[%d].%s", i, e.Field), e.Message})
		}
	}
	if len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	out := &ImportLeadsOutput{Created: []*entity.Lead{}, Skipped: []string{}}
	seen := make(map[string]bool)
	txn := NewTransaction(s.Logger)

	for _, in := range inputs {
		source := in.Source
		if source == "" {
			source = string(entity.LeadSourceImport)
		}
		lead := entity.NewLead(in.ContactName, in.ContactEmail, in.Company, in.Phone, in.Notes,
			entity.LeadSource(source), entity.LeadStatus(in.Status))
		lead.LastEmailSnippet = in.LastEmailSnippet
		lead.LeadScore = in.LeadScore
		lead.NextFollowupAt = utcTime(in.NextFollowupAt)

		if seen[lead.ContactEmail] {
			out.Skipped = append(out.Skipped, lead.ContactEmail)
			continue
		}
		seen[lead.ContactEmail] = true

		_, err := s.Repo.FindByEmail(ctx, lead.ContactEmail)
		if err == nil {
			out.Skipped = append(out.Skipped, lead.ContactEmail)
			continue
		}
		if !errors.Is(err, entity.ErrLeadNotFound) {
			return nil, storageError("lookup lead", err)
		}

		txn.Step("create_lead:"+lead.ContactEmail,
			func(ctx context.Context) error { return s.Repo.Create(ctx, lead) },
			func(ctx context.Context) error { return s.Repo.Delete(ctx, lead.ID) },
		)
		out.Created = append(out.Created, lead)
	}

	if err := txn.Execute(ctx); err != nil {
		if errors.Is(err, entity.ErrEmailAlreadyExists) {
			return nil, &DomainError{
				Code:    CodeConflict,
				Message: "a lead in the batch was created concurrently: " + err.Error(),
				Err:     err,
			}
		}
		return nil, storageError("import leads", err)
	}

	s.Logger.Info("leads imported", "created", len(out.Created), "skipped", len(out.Skipped))
	return out, nil
}

func createError(email string, err error) error {
	if errors.Is(err, entity.ErrEmailAlreadyExists) {
		return emailTaken(email)
	}
	return storageError("create lead", err)
}

func emailTaken(email string) error {
	return &DomainError{
		Code:    CodeConflict,
		Message: fmt.Sprintf("a lead with email %s already exists", email),
		Err:     entity.ErrEmailAlreadyExists,
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func utcTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
