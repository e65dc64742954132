package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xavierca1/followwise/internal/entity"
)

type SentEmailRepository struct {
	mu     sync.RWMutex
	emails []entity.SentEmail
	now    func() time.Time
}

func NewSentEmailRepository() *SentEmailRepository {
	return &SentEmailRepository{
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *SentEmailRepository) Append(_ context.Context, e *entity.SentEmail) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e.ID = uuid.New().String()
	e.SentAt = r.now()

	stored := *e
	if e.SourceLeadID != nil {
		id := *e.SourceLeadID
		stored.SourceLeadID = &id
	}
	r.emails = append(r.emails, stored)
	return nil
}

func (r *SentEmailRepository) List(_ context.Context, filter entity.SentEmailFilter) ([]*entity.SentEmail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*entity.SentEmail{}
	for i := len(r.emails) - 1; i >= 0; i-- {
		e := r.emails[i]
		if filter.LeadID != "" && (e.SourceLeadID == nil || *e.SourceLeadID != filter.LeadID) {
			continue
		}
		if !filter.Since.IsZero() && e.SentAt.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && !e.SentAt.Before(filter.Until) {
			continue
		}
		out = append(out, &e)
	}

	// appended in time order already; stable keeps ties newest first
	sort.SliceStable(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []*entity.SentEmail{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
