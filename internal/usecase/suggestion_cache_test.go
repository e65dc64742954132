package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/followwise/internal/entity"
)

func TestSuggestionCache_GetUnknownLead(t *testing.T) {
	c := NewSuggestionCache()

	assert.Empty(t, c.Get("missing"))
	assert.NotNil(t, c.Get("missing"))
	assert.Empty(t, c.Snapshot("missing"))
	assert.False(t, c.InFlight("missing"))
}

func TestSuggestionCache_ReplaceCopiesInput(t *testing.T) {
	c := NewSuggestionCache()
	in := testSuggestions("lead-1", 3)
	c.Replace("lead-1", in)

	in[0].Subject = "mutated"
	got := c.Get("lead-1")
	require.Len(t, got, 3)
	assert.Equal(t, "Subject A", got[0].Subject)

	got[1].Subject = "mutated too"
	assert.Equal(t, "Subject B", c.Get("lead-1")[1].Subject)
}

func TestSuggestionCache_SendLifecycle(t *testing.T) {
	c := NewSuggestionCache()
	c.Replace("lead-1", testSuggestions("lead-1", 3))

	ticket, err := c.BeginSend("lead-1", 1)
	require.NoError(t, err)
	assert.Equal(t, "Subject B", ticket.Suggestion.Subject)
	assert.True(t, c.InFlight("lead-1"))

	views := c.Snapshot("lead-1")
	assert.Equal(t, entity.SendStateIdle, views[0].SendState)
	assert.Equal(t, entity.SendStateSending, views[1].SendState)
	assert.NotNil(t, views[1].StartedAt)

	_, err = c.BeginSend("lead-1", 1)
	assert.ErrorIs(t, err, ErrAlreadyInProgress)

	// another variant of the same lead is independent
	other, err := c.BeginSend("lead-1", 2)
	require.NoError(t, err)
	assert.True(t, c.AbortSend(other))

	called := false
	require.NoError(t, c.CommitSend(ticket, func() error { called = true; return nil }))
	assert.True(t, called)
	assert.False(t, c.InFlight("lead-1"))

	views = c.Snapshot("lead-1")
	assert.Equal(t, entity.SendStateSent, views[1].SendState)
	assert.Equal(t, entity.SendStateIdle, views[2].SendState)

	_, err = c.BeginSend("lead-1", 1)
	assert.ErrorIs(t, err, ErrAlreadySent)
}

func TestSuggestionCache_FailedVariantCanBeRetried(t *testing.T) {
	c := NewSuggestionCache()
	c.Replace("lead-1", testSuggestions("lead-1", 1))

	ticket, err := c.BeginSend("lead-1", 0)
	require.NoError(t, err)
	assert.True(t, c.FailSend(ticket))
	assert.Equal(t, entity.SendStateFailed, c.Snapshot("lead-1")[0].SendState)

	// a settled ticket cannot be settled again
	assert.False(t, c.AbortSend(ticket))

	retry, err := c.BeginSend("lead-1", 0)
	require.NoError(t, err)
	assert.Equal(t, entity.SendStateSending, c.Snapshot("lead-1")[0].SendState)
	assert.True(t, c.AbortSend(retry))
	assert.Equal(t, entity.SendStateIdle, c.Snapshot("lead-1")[0].SendState)
}

func TestSuggestionCache_CommitRecordFailureMarksFailed(t *testing.T) {
	c := NewSuggestionCache()
	c.Replace("lead-1", testSuggestions("lead-1", 1))

	ticket, err := c.BeginSend("lead-1", 0)
	require.NoError(t, err)

	boom := errors.New("disk full")
	err = c.CommitSend(ticket, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, entity.SendStateFailed, c.Snapshot("lead-1")[0].SendState)
}

func TestSuggestionCache_BeginSendRejectsUnknownVariant(t *testing.T) {
	c := NewSuggestionCache()

	_, err := c.BeginSend("lead-1", 0)
	assert.ErrorIs(t, err, ErrStaleSuggestion)

	c.Replace("lead-1", testSuggestions("lead-1", 2))
	for _, idx := range []int{-1, 2, 7} {
		_, err := c.BeginSend("lead-1", idx)
		assert.ErrorIs(t, err, ErrStaleSuggestion, "index %d", idx)
	}
}

func TestSuggestionCache_ReplaceInvalidatesOutstandingTickets(t *testing.T) {
	c := NewSuggestionCache()
	c.Replace("lead-1", testSuggestions("lead-1", 2))

	ticket, err := c.BeginSend("lead-1", 0)
	require.NoError(t, err)

	c.Replace("lead-1", testSuggestions("lead-1", 2))
	assert.Equal(t, entity.SendStateIdle, c.Snapshot("lead-1")[0].SendState)

	called := false
	err = c.CommitSend(ticket, func() error { called = true; return nil })
	assert.ErrorIs(t, err, errStaleTicket)
	assert.False(t, called)
	assert.False(t, c.FailSend(ticket))
	assert.Equal(t, entity.SendStateIdle, c.Snapshot("lead-1")[0].SendState)
}

func TestSuggestionCache_ClearInvalidatesTickets(t *testing.T) {
	c := NewSuggestionCache()
	c.Replace("lead-1", testSuggestions("lead-1", 1))

	ticket, err := c.BeginSend("lead-1", 0)
	require.NoError(t, err)

	c.Clear("lead-1")
	assert.Empty(t, c.Get("lead-1"))
	assert.ErrorIs(t, c.CommitSend(ticket, func() error { return nil }), errStaleTicket)

	// a new set after Clear starts from scratch
	c.Replace("lead-1", testSuggestions("lead-1", 1))
	_, err = c.BeginSend("lead-1", 0)
	assert.NoError(t, err)
}

func TestSuggestionCache_EvictOlderThan(t *testing.T) {
	c := NewSuggestionCache()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Replace("old", testSuggestions("old", 1))
	c.Replace("busy", testSuggestions("busy", 1))
	_, err := c.BeginSend("busy", 0)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	c.Replace("fresh", testSuggestions("fresh", 1))

	evicted := c.EvictOlderThan(now.Add(-time.Hour))
	assert.Equal(t, []string{"old"}, evicted)
	assert.Empty(t, c.Get("old"))
	assert.Len(t, c.Get("busy"), 1)
	assert.Len(t, c.Get("fresh"), 1)
}
