package usecase

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xavierca1/followwise/internal/entity"
)

var errStaleTicket = errors.New("suggestion set was replaced")

// SuggestionCache owns the current suggestion set of every lead together with
// the send state of each variant. A set is only ever swapped whole; swapping
// bumps the lead's epoch, which invalidates every outstanding SendTicket.
type SuggestionCache struct {
	mu    sync.Mutex
	slots map[string]*suggestionSlot
	now   func() time.Time
}

type suggestionSlot struct {
	mu          sync.Mutex
	epoch       uint64
	removed     bool
	suggestions []entity.FollowupSuggestion
	attempts    map[int]*entity.SendAttempt
	replacedAt  time.Time
}

// SendTicket is handed out by BeginSend and must be settled with exactly one
// of AbortSend, FailSend or CommitSend.
type SendTicket struct {
	LeadID       string
	VariantIndex int
	Suggestion   entity.FollowupSuggestion
	StartedAt    time.Time

	slot  *suggestionSlot
	epoch uint64
}

func NewSuggestionCache() *SuggestionCache {
	return &SuggestionCache{
		slots: make(map[string]*suggestionSlot),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// lockSlot returns the lead's slot locked. With create=false it returns nil
// when the lead has no set.
func (c *SuggestionCache) lockSlot(leadID string, create bool) *suggestionSlot {
	for {
		c.mu.Lock()
		s, ok := c.slots[leadID]
		if !ok {
			if !create {
				c.mu.Unlock()
				return nil
			}
			s = &suggestionSlot{}
			c.slots[leadID] = s
		}
		c.mu.Unlock()

		s.mu.Lock()
		if !s.removed {
			return s
		}
		// retired between lookup and lock
		s.mu.Unlock()
	}
}

// retire drops the slot from the map. Caller holds s.mu.
func (c *SuggestionCache) retire(leadID string, s *suggestionSlot) {
	c.mu.Lock()
	if c.slots[leadID] == s {
		delete(c.slots, leadID)
	}
	c.mu.Unlock()

	s.removed = true
	s.epoch++
	s.suggestions = nil
	s.attempts = nil
}

func (c *SuggestionCache) Get(leadID string) []entity.FollowupSuggestion {
	s := c.lockSlot(leadID, false)
	if s == nil {
		return []entity.FollowupSuggestion{}
	}
	defer s.mu.Unlock()

	out := make([]entity.FollowupSuggestion, len(s.suggestions))
	copy(out, s.suggestions)
	return out
}

// Snapshot returns the current set with the send state of every variant.
func (c *SuggestionCache) Snapshot(leadID string) []FollowupView {
	s := c.lockSlot(leadID, false)
	if s == nil {
		return []FollowupView{}
	}
	defer s.mu.Unlock()

	out := make([]FollowupView, 0, len(s.suggestions))
	for _, sg := range s.suggestions {
		v := FollowupView{FollowupSuggestion: sg, SendState: entity.SendStateIdle}
		if a, ok := s.attempts[sg.VariantIndex]; ok {
			v.SendState = a.State
			started := a.StartedAt
			v.StartedAt = &started
		}
		out = append(out, v)
	}
	return out
}

func (c *SuggestionCache) Replace(leadID string, suggestions []entity.FollowupSuggestion) {
	s := c.lockSlot(leadID, true)
	defer s.mu.Unlock()

	s.epoch++
	s.suggestions = make([]entity.FollowupSuggestion, len(suggestions))
	copy(s.suggestions, suggestions)
	s.attempts = make(map[int]*entity.SendAttempt)
	s.replacedAt = c.now()
}

func (c *SuggestionCache) Clear(leadID string) {
	s := c.lockSlot(leadID, false)
	if s == nil {
		return
	}
	defer s.mu.Unlock()
	c.retire(leadID, s)
}

// InFlight reports whether any variant of the lead is being sent.
func (c *SuggestionCache) InFlight(leadID string) bool {
	s := c.lockSlot(leadID, false)
	if s == nil {
		return false
	}
	defer s.mu.Unlock()
	return s.sending()
}

func (s *suggestionSlot) sending() bool {
	for _, a := range s.attempts {
		if a.State == entity.SendStateSending {
			return true
		}
	}
	return false
}

// EvictOlderThan retires every set replaced before cutoff, skipping leads
// with a send in flight. It returns the evicted lead ids.
func (c *SuggestionCache) EvictOlderThan(cutoff time.Time) []string {
	c.mu.Lock()
	ids := make([]string, 0, len(c.slots))
	for id := range c.slots {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	var evicted []string
	for _, id := range ids {
		s := c.lockSlot(id, false)
		if s == nil {
			continue
		}
		if s.replacedAt.Before(cutoff) && !s.sending() {
			c.retire(id, s)
			evicted = append(evicted, id)
		}
		s.mu.Unlock()
	}
	return evicted
}

// BeginSend moves the variant to sending. idle and failed are the only
// accepted starting states.
func (c *SuggestionCache) BeginSend(leadID string, variantIndex int) (*SendTicket, error) {
	s := c.lockSlot(leadID, false)
	if s == nil {
		return nil, staleSuggestion(leadID, variantIndex, false)
	}
	defer s.mu.Unlock()

	if variantIndex < 0 || variantIndex >= len(s.suggestions) {
		return nil, staleSuggestion(leadID, variantIndex, false)
	}

	a, ok := s.attempts[variantIndex]
	if ok {
		switch a.State {
		case entity.SendStateSending:
			return nil, &DomainError{
				Code:         CodeAlreadyInProgress,
				Message:      fmt.Sprintf("variant %d of lead %s is already being sent", variantIndex, leadID),
				LeadID:       leadID,
				VariantIndex: variantRef(variantIndex),
			}
		case entity.SendStateSent:
			return nil, &DomainError{
				Code:         CodeAlreadySent,
				Message:      fmt.Sprintf("variant %d of lead %s was already sent", variantIndex, leadID),
				LeadID:       leadID,
				VariantIndex: variantRef(variantIndex),
			}
		}
	} else {
		a = &entity.SendAttempt{LeadID: leadID, VariantIndex: variantIndex}
		s.attempts[variantIndex] = a
	}

	a.State = entity.SendStateSending
	a.StartedAt = c.now()

	return &SendTicket{
		LeadID:       leadID,
		VariantIndex: variantIndex,
		Suggestion:   s.suggestions[variantIndex],
		StartedAt:    a.StartedAt,
		slot:         s,
		epoch:        s.epoch,
	}, nil
}

// settle applies fn to the ticket's attempt if the ticket is still current.
func (c *SuggestionCache) settle(t *SendTicket, fn func(s *suggestionSlot, a *entity.SendAttempt)) bool {
	s := t.slot
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != t.epoch {
		return false
	}
	a, ok := s.attempts[t.VariantIndex]
	if !ok || a.State != entity.SendStateSending {
		return false
	}
	fn(s, a)
	return true
}

// AbortSend reverts the attempt to idle, as if it never happened.
func (c *SuggestionCache) AbortSend(t *SendTicket) bool {
	return c.settle(t, func(s *suggestionSlot, _ *entity.SendAttempt) {
		delete(s.attempts, t.VariantIndex)
	})
}

func (c *SuggestionCache) FailSend(t *SendTicket) bool {
	return c.settle(t, func(_ *suggestionSlot, a *entity.SendAttempt) {
		a.State = entity.SendStateFailed
	})
}

// CommitSend runs record under the lead's lock and marks the attempt sent
// when it succeeds, failed otherwise. A replaced set yields errStaleTicket
// without calling record.
func (c *SuggestionCache) CommitSend(t *SendTicket, record func() error) error {
	var recErr error
	ok := c.settle(t, func(_ *suggestionSlot, a *entity.SendAttempt) {
		if recErr = record(); recErr != nil {
			a.State = entity.SendStateFailed
			return
		}
		a.State = entity.SendStateSent
	})
	if !ok {
		return errStaleTicket
	}
	return recErr
}

func staleSuggestion(leadID string, variantIndex int, delivered bool) error {
	msg := fmt.Sprintf("variant %d is not part of the current suggestions of lead %s", variantIndex, leadID)
	if delivered {
		msg += "; the email may already have been delivered"
	}
	return &DomainError{
		Code:             CodeStaleSuggestion,
		Message:          msg,
		LeadID:           leadID,
		VariantIndex:     variantRef(variantIndex),
		MayHaveDelivered: delivered,
	}
}
