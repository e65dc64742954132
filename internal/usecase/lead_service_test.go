package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/followwise/internal/entity"
	"github.com/xavierca1/followwise/internal/infra/memory"
)

type fakeActivity map[string]bool

func (f fakeActivity) InFlight(leadID string) bool { return f[leadID] }

func newMemoryLeadService(activity ...ActivityChecker) (*LeadService, *SuggestionCache) {
	cache := NewSuggestionCache()
	return NewLeadService(memory.NewLeadRepository(), cache, discardLogger(), activity...), cache
}

func TestLeadService_CreateDefaultsAndNormalizes(t *testing.T) {
	svc, _ := newMemoryLeadService()

	lead, err := svc.Create(context.Background(), CreateLeadInput{
		ContactName:  "  Ana Souza ",
		ContactEmail: " Ana@Example.com ",
		Company:      "Acme",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, "Ana Souza", lead.ContactName)
	assert.Equal(t, "ana@example.com", lead.ContactEmail)
	assert.Equal(t, entity.LeadStatusNew, lead.Status)
	assert.Equal(t, entity.LeadSourceManual, lead.Source)

	got, err := svc.Get(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, lead.ContactEmail, got.ContactEmail)
}

func TestLeadService_CreateValidation(t *testing.T) {
	svc, _ := newMemoryLeadService()

	_, err := svc.Create(context.Background(), CreateLeadInput{ContactEmail: "not-an-email", Status: "archived"})

	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, CodeValidation, de.Code)
	fields := map[string]bool{}
	for _, f := range de.Fields {
		fields[f.Field] = true
	}
	assert.True(t, fields["contact_name"])
	assert.True(t, fields["contact_email"])
	assert.True(t, fields["status"])
}

func TestLeadService_CreateDuplicateEmail(t *testing.T) {
	svc, _ := newMemoryLeadService()
	_, err := svc.Create(context.Background(), CreateLeadInput{ContactName: "Ana", ContactEmail: "ana@example.com"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateLeadInput{ContactName: "Other Ana", ContactEmail: "ANA@example.com"})
	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, entity.ErrEmailAlreadyExists)
}

func TestLeadService_UpdatePartial(t *testing.T) {
	svc, _ := newMemoryLeadService()
	lead, err := svc.Create(context.Background(), CreateLeadInput{ContactName: "Ana", ContactEmail: "ana@example.com", Company: "Acme"})
	require.NoError(t, err)

	won := "won"
	updated, err := svc.Update(context.Background(), lead.ID, UpdateLeadInput{Status: &won})
	require.NoError(t, err)
	assert.Equal(t, entity.LeadStatusWon, updated.Status)
	assert.Equal(t, "Acme", updated.Company)

	bad := "maybe"
	_, err = svc.Update(context.Background(), lead.ID, UpdateLeadInput{Status: &bad})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Update(context.Background(), "ghost", UpdateLeadInput{Status: &won})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLeadService_ScoreAndReminder(t *testing.T) {
	svc, _ := newMemoryLeadService()
	remind := time.Date(2026, 3, 8, 9, 0, 0, 0, time.FixedZone("BRT", -3*3600))

	lead, err := svc.Create(context.Background(), CreateLeadInput{
		ContactName: "Ana", ContactEmail: "ana@example.com", LeadScore: 40, NextFollowupAt: &remind,
	})
	require.NoError(t, err)
	assert.Equal(t, 40, lead.LeadScore)
	require.NotNil(t, lead.NextFollowupAt)
	assert.Equal(t, time.UTC, lead.NextFollowupAt.Location())
	assert.True(t, remind.Equal(*lead.NextFollowupAt))

	score := 85
	updated, err := svc.Update(context.Background(), lead.ID, UpdateLeadInput{LeadScore: &score})
	require.NoError(t, err)
	assert.Equal(t, 85, updated.LeadScore)
	assert.NotNil(t, updated.NextFollowupAt, "untouched fields stay")

	later := remind.Add(48 * time.Hour)
	updated, err = svc.Update(context.Background(), lead.ID, UpdateLeadInput{NextFollowupAt: &later, ClearNextFollowup: true})
	require.NoError(t, err)
	assert.Nil(t, updated.NextFollowupAt)
}

func TestLeadService_List(t *testing.T) {
	svc, _ := newMemoryLeadService()
	for _, in := range []CreateLeadInput{
		{ContactName: "Ana", ContactEmail: "ana@example.com", Company: "Acme"},
		{ContactName: "Bruno", ContactEmail: "bruno@example.com", Company: "Globex", Status: "won"},
	} {
		_, err := svc.Create(context.Background(), in)
		require.NoError(t, err)
	}

	all, err := svc.List(context.Background(), entity.LeadFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	won, err := svc.List(context.Background(), entity.LeadFilter{Status: entity.LeadStatusWon})
	require.NoError(t, err)
	require.Len(t, won, 1)
	assert.Equal(t, "Bruno", won[0].ContactName)

	found, err := svc.List(context.Background(), entity.LeadFilter{Search: " acme "})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Ana", found[0].ContactName)

	_, err = svc.List(context.Background(), entity.LeadFilter{Status: "archived"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLeadService_ListClampsLimit(t *testing.T) {
	repo := new(MockLeadRepository)
	svc := NewLeadService(repo, nil, discardLogger())

	repo.On("List", mock.Anything, entity.LeadFilter{Limit: defaultListLimit}).Return(nil, nil).Once()
	repo.On("List", mock.Anything, entity.LeadFilter{Limit: maxListLimit}).Return([]*entity.Lead{}, nil).Once()

	leads, err := svc.List(context.Background(), entity.LeadFilter{Offset: -3})
	require.NoError(t, err)
	assert.NotNil(t, leads)

	_, err = svc.List(context.Background(), entity.LeadFilter{Limit: 10_000})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestLeadService_DeleteClearsSuggestions(t *testing.T) {
	svc, cache := newMemoryLeadService()
	lead, err := svc.Create(context.Background(), CreateLeadInput{ContactName: "Ana", ContactEmail: "ana@example.com"})
	require.NoError(t, err)
	cache.Replace(lead.ID, testSuggestions(lead.ID, 3))

	require.NoError(t, svc.Delete(context.Background(), lead.ID))
	assert.Empty(t, cache.Get(lead.ID))

	_, err = svc.Get(context.Background(), lead.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(context.Background(), lead.ID), ErrNotFound)
}

func TestLeadService_DeleteRefusedWhileWorkInFlight(t *testing.T) {
	activity := fakeActivity{}
	svc, cache := newMemoryLeadService(activity)
	lead, err := svc.Create(context.Background(), CreateLeadInput{ContactName: "Ana", ContactEmail: "ana@example.com"})
	require.NoError(t, err)

	activity[lead.ID] = true
	assert.ErrorIs(t, svc.Delete(context.Background(), lead.ID), ErrConflict)

	activity[lead.ID] = false
	cache.Replace(lead.ID, testSuggestions(lead.ID, 1))
	_, err = cache.BeginSend(lead.ID, 0)
	require.NoError(t, err)
	svc.Activity = append(svc.Activity, cache)
	assert.ErrorIs(t, svc.Delete(context.Background(), lead.ID), ErrConflict)

	_, err = svc.Get(context.Background(), lead.ID)
	assert.NoError(t, err)
}

func TestLeadService_ImportSkipsExistingAndRepeated(t *testing.T) {
	svc, _ := newMemoryLeadService()
	_, err := svc.Create(context.Background(), CreateLeadInput{ContactName: "Ana", ContactEmail: "ana@example.com"})
	require.NoError(t, err)

	out, err := svc.Import(context.Background(), []CreateLeadInput{
		{ContactName: "Ana again", ContactEmail: "ana@example.com"},
		{ContactName: "Bruno", ContactEmail: "bruno@example.com"},
		{ContactName: "Bruno twice", ContactEmail: "BRUNO@example.com"},
		{ContactName: "Carla", ContactEmail: "carla@example.com", Source: "email"},
	})
	require.NoError(t, err)
	require.Len(t, out.Created, 2)
	assert.Equal(t, entity.LeadSourceImport, out.Created[0].Source)
	assert.Equal(t, entity.LeadSourceEmail, out.Created[1].Source)
	assert.Equal(t, []string{"ana@example.com", "bruno@example.com"}, out.Skipped)

	all, err := svc.List(context.Background(), entity.LeadFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLeadService_ImportValidatesWholeBatch(t *testing.T) {
	svc, _ := newMemoryLeadService()

	_, err := svc.Import(context.Background(), []CreateLeadInput{
		{ContactName: "Ana", ContactEmail: "ana@example.com"},
		{ContactName: "", ContactEmail: "bruno@example.com"},
	})
	var de *DomainError
	require.ErrorAs(t, err, &de)
	require.Len(t, de.Fields, 1)
	assert.Equal(t, "leads[1].contact_name", de.Fields[0].Field)

	all, _ := svc.List(context.Background(), entity.LeadFilter{})
	assert.Empty(t, all)
}

func TestLeadService_ImportRollsBackOnFailure(t *testing.T) {
	repo := new(MockLeadRepository)
	svc := NewLeadService(repo, nil, discardLogger())

	repo.On("FindByEmail", mock.Anything, mock.Anything).Return(nil, entity.ErrLeadNotFound)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(l *entity.Lead) bool {
		return l.ContactEmail == "ana@example.com"
	})).Return(nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(l *entity.Lead) bool {
		return l.ContactEmail == "bruno@example.com"
	})).Return(errors.New("connection lost"))
	repo.On("Delete", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := svc.Import(context.Background(), []CreateLeadInput{
		{ContactName: "Ana", ContactEmail: "ana@example.com"},
		{ContactName: "Bruno", ContactEmail: "bruno@example.com"},
		{ContactName: "Carla", ContactEmail: "carla@example.com"},
	})

	require.Error(t, err)
	assert.True(t, IsTechnicalError(err))
	repo.AssertNumberOfCalls(t, "Create", 2)
	repo.AssertNumberOfCalls(t, "Delete", 1)
}

func TestLeadService_ImportConcurrentDuplicateIsConflict(t *testing.T) {
	repo := new(MockLeadRepository)
	svc := NewLeadService(repo, nil, discardLogger())

	repo.On("FindByEmail", mock.Anything, mock.Anything).Return(nil, entity.ErrLeadNotFound)
	repo.On("Create", mock.Anything, mock.Anything).Return(entity.ErrEmailAlreadyExists)

	_, err := svc.Import(context.Background(), []CreateLeadInput{{ContactName: "Ana", ContactEmail: "ana@example.com"}})
	assert.ErrorIs(t, err, ErrConflict)
}
