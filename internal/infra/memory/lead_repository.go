// Package memory holds process-local repositories used when no database is
// configured and in tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xavierca1/followwise/internal/entity"
)

type LeadRepository struct {
	mu      sync.RWMutex
	leads   map[string]entity.Lead
	byEmail map[string]string
}

func NewLeadRepository() *LeadRepository {
	return &LeadRepository{
		leads:   make(map[string]entity.Lead),
		byEmail: make(map[string]string),
	}
}

func (r *LeadRepository) List(_ context.Context, filter entity.LeadFilter) ([]*entity.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	out := []*entity.Lead{}
	for _, l := range r.leads {
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		if search != "" && !matches(l, search) {
			continue
		}
		lead := l
		out = append(out, &lead)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []*entity.Lead{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func matches(l entity.Lead, search string) bool {
	for _, f := range []string{l.ContactName, l.ContactEmail, l.Company, l.Notes} {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

func (r *LeadRepository) FindByID(_ context.Context, id string) (*entity.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.leads[id]
	if !ok {
		return nil, entity.ErrLeadNotFound
	}
	return &l, nil
}

func (r *LeadRepository) FindByEmail(_ context.Context, email string) (*entity.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, entity.ErrLeadNotFound
	}
	l := r.leads[id]
	return &l, nil
}

func (r *LeadRepository) Create(_ context.Context, lead *entity.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(lead.ContactEmail)
	if _, taken := r.byEmail[email]; taken {
		return entity.ErrEmailAlreadyExists
	}
	r.leads[lead.ID] = *lead
	r.byEmail[email] = lead.ID
	return nil
}

func (r *LeadRepository) Update(_ context.Context, lead *entity.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.leads[lead.ID]
	if !ok {
		return entity.ErrLeadNotFound
	}
	oldEmail := strings.ToLower(old.ContactEmail)
	newEmail := strings.ToLower(lead.ContactEmail)
	if newEmail != oldEmail {
		if _, taken := r.byEmail[newEmail]; taken {
			return entity.ErrEmailAlreadyExists
		}
		delete(r.byEmail, oldEmail)
		r.byEmail[newEmail] = lead.ID
	}
	r.leads[lead.ID] = *lead
	return nil
}

func (r *LeadRepository) RecordContact(_ context.Context, id, snippet string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.leads[id]
	if !ok {
		return entity.ErrLeadNotFound
	}
	l.RecordContact(snippet, at)
	r.leads[id] = l
	return nil
}

func (r *LeadRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.leads[id]
	if !ok {
		return entity.ErrLeadNotFound
	}
	delete(r.byEmail, strings.ToLower(l.ContactEmail))
	delete(r.leads, id)
	return nil
}
