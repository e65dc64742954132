package usecase

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/followwise/internal/entity"
	"github.com/xavierca1/followwise/internal/infra/queue"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockLeadRepository
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) List(ctx context.Context, filter entity.LeadFilter) ([]*entity.Lead, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) FindByEmail(ctx context.Context, email string) (*entity.Lead, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	return m.Called(ctx, lead).Error(0)
}

func (m *MockLeadRepository) Update(ctx context.Context, lead *entity.Lead) error {
	return m.Called(ctx, lead).Error(0)
}

func (m *MockLeadRepository) RecordContact(ctx context.Context, id, snippet string, at time.Time) error {
	return m.Called(ctx, id, snippet, at).Error(0)
}

func (m *MockLeadRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// MockLedger
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Append(ctx context.Context, e *entity.SentEmail) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockLedger) List(ctx context.Context, filter entity.SentEmailFilter) ([]*entity.SentEmail, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.SentEmail), args.Error(1)
}

// MockDelivery
type MockDelivery struct {
	mock.Mock
}

func (m *MockDelivery) SendEmail(ctx context.Context, to, subject, body string) error {
	return m.Called(ctx, to, subject, body).Error(0)
}

func (m *MockDelivery) Provider() string {
	return "mock"
}

// MockPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishFollowupSent(ctx context.Context, payload queue.FollowupSentPayload) error {
	return m.Called(ctx, payload).Error(0)
}

// MockGenerator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) GenerateFollowups(ctx context.Context, lead entity.LeadContext, tone entity.Tone) ([]entity.FollowupDraft, error) {
	args := m.Called(ctx, lead, tone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.FollowupDraft), args.Error(1)
}

// blockingGenerator parks every call until release is closed or ctx ends.
type blockingGenerator struct {
	started chan struct{}
	release chan struct{}
	drafts  []entity.FollowupDraft
}

func newBlockingGenerator(drafts ...entity.FollowupDraft) *blockingGenerator {
	return &blockingGenerator{
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
		drafts:  drafts,
	}
}

func (g *blockingGenerator) GenerateFollowups(ctx context.Context, _ entity.LeadContext, _ entity.Tone) ([]entity.FollowupDraft, error) {
	g.started <- struct{}{}
	select {
	case <-g.release:
		return g.drafts, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// blockingDelivery parks SendEmail the same way. With ignoreCancel it behaves
// like a transport that finishes the send after the caller gave up.
type blockingDelivery struct {
	started      chan struct{}
	release      chan error
	ignoreCancel bool
}

func newBlockingDelivery() *blockingDelivery {
	return &blockingDelivery{started: make(chan struct{}, 8), release: make(chan error, 1)}
}

func (d *blockingDelivery) SendEmail(ctx context.Context, _, _, _ string) error {
	d.started <- struct{}{}
	if d.ignoreCancel {
		return <-d.release
	}
	select {
	case err := <-d.release:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *blockingDelivery) Provider() string {
	return "blocking"
}

func testLead(id string) *entity.Lead {
	l := entity.NewLead("Ana Souza", "ana@example.com", "Acme", "", "asked about pricing", entity.LeadSourceManual, entity.LeadStatusNew)
	l.ID = id
	return l
}

func testSuggestions(leadID string, n int) []entity.FollowupSuggestion {
	out := make([]entity.FollowupSuggestion, n)
	for i := range out {
		out[i] = entity.FollowupSuggestion{
			LeadID:       leadID,
			VariantIndex: i,
			Tone:         entity.TonePolite,
			Subject:      "Subject " + string(rune('A'+i)),
			Body:         "Body " + string(rune('A'+i)),
		}
	}
	return out
}
