package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/followwise/internal/entity"
	"github.com/xavierca1/followwise/internal/infra/integration/templates"
	"github.com/xavierca1/followwise/internal/infra/memory"
	"github.com/xavierca1/followwise/internal/usecase"
)

type fakeDelivery struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (d *fakeDelivery) SendEmail(_ context.Context, to, subject, _ string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, to+"|"+subject)
	return nil
}

func (d *fakeDelivery) Provider() string { return "fake" }

type testServer struct {
	handler  http.Handler
	delivery *fakeDelivery
	cache    *usecase.SuggestionCache
}

func newTestServer(t *testing.T, generateLimit int) *testServer {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	leads := memory.NewLeadRepository()
	ledger := memory.NewSentEmailRepository()
	cache := usecase.NewSuggestionCache()
	delivery := &fakeDelivery{}

	generateUC := usecase.NewGenerateFollowupsUseCase(leads, templates.NewGenerator(""), cache, log)
	contacts := usecase.NewRecordLeadContactUseCase(leads)
	sendUC := usecase.NewSendFollowupUseCase(leads, ledger, delivery, cache, nil, contacts, log)
	leadService := usecase.NewLeadService(leads, cache, log, generateUC, cache)

	router := NewRouter(Routes{
		Leads:       NewLeadHandler(leadService, log),
		Followups:   NewFollowupHandler(generateUC, usecase.NewGetFollowupsUseCase(leads, cache), sendUC, NewRateLimiter(generateLimit, time.Minute), log),
		SentEmails:  NewSentEmailHandler(usecase.NewListSentEmailsUseCase(ledger, leads), usecase.NewLogSentEmailUseCase(ledger, leads, contacts, log), log),
		Analytics:   NewAnalyticsHandler(usecase.NewGetAnalyticsUseCase(leads, ledger), log),
		Health:      NewHealthHandler(nil, nil, "template", "fake"),
		CORSOrigins: []string{"*"},
	})
	return &testServer{handler: router, delivery: delivery, cache: cache}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) createLead(t *testing.T, name, email string) *entity.Lead {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/leads", map[string]string{"contact_name": name, "contact_email": email, "company": "Acme"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var lead entity.Lead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lead))
	return &lead
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestLeadEndpoints(t *testing.T) {
	s := newTestServer(t, 0)
	lead := s.createLead(t, "Ana Souza", "ana@example.com")

	rec := s.do(t, http.MethodPost, "/leads", map[string]string{"contact_name": "Ana", "contact_email": "ana@example.com"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", decodeError(t, rec).Error)

	rec = s.do(t, http.MethodGet, "/leads/"+lead.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = s.do(t, http.MethodPatch, "/leads/"+lead.ID, map[string]string{"status": "won"})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated entity.Lead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, entity.LeadStatusWon, updated.Status)
	assert.Equal(t, "Acme", updated.Company)

	rec = s.do(t, http.MethodGet, "/leads?status=WON", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var leads []entity.Lead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &leads))
	assert.Len(t, leads, 1)

	rec = s.do(t, http.MethodGet, "/leads?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "limit", decodeError(t, rec).Fields[0].Field)

	rec = s.do(t, http.MethodDelete, "/leads/"+lead.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/leads/"+lead.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	errResp := decodeError(t, rec)
	assert.Equal(t, "NOT_FOUND", errResp.Error)
	assert.Equal(t, lead.ID, errResp.LeadID)
}

func TestLeadScoreAndReminder(t *testing.T) {
	s := newTestServer(t, 0)
	lead := s.createLead(t, "Ana Souza", "ana@example.com")

	rec := s.do(t, http.MethodPatch, "/leads/"+lead.ID, map[string]any{
		"lead_score":       70,
		"next_followup_at": "2026-03-08T09:00:00Z",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated entity.Lead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, 70, updated.LeadScore)
	require.NotNil(t, updated.NextFollowupAt)

	rec = s.do(t, http.MethodPatch, "/leads/"+lead.ID, map[string]any{"lead_score": 101})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "lead_score", decodeError(t, rec).Fields[0].Field)

	// a logged contact clears the reminder
	rec = s.do(t, http.MethodPost, "/leads/"+lead.ID+"/sent-emails", map[string]string{
		"to_email": "ana@example.com", "subject": "Hi", "body": "Checking in",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/leads/"+lead.ID, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, 70, updated.LeadScore)
	assert.Nil(t, updated.NextFollowupAt)
}

func TestCreateLead_ValidationBody(t *testing.T) {
	s := newTestServer(t, 0)

	rec := s.do(t, http.MethodPost, "/leads", map[string]string{"contact_email": "nope"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error)
	assert.Len(t, resp.Fields, 2)

	rec = s.do(t, http.MethodPost, "/leads", "{broken")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid JSON body", decodeError(t, rec).Message)
}

func TestImportLeads(t *testing.T) {
	s := newTestServer(t, 0)
	s.createLead(t, "Ana", "ana@example.com")

	rec := s.do(t, http.MethodPost, "/leads/import", map[string]any{"leads": []map[string]string{
		{"contact_name": "Ana", "contact_email": "ana@example.com"},
		{"contact_name": "Bruno", "contact_email": "bruno@example.com"},
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out usecase.ImportLeadsOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out.Created, 1)
	assert.Equal(t, []string{"ana@example.com"}, out.Skipped)

	rec = s.do(t, http.MethodPost, "/leads/import", map[string]any{"leads": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFollowupFlow(t *testing.T) {
	s := newTestServer(t, 0)
	lead := s.createLead(t, "Ana Souza", "ana@example.com")
	base := "/leads/" + lead.ID + "/followups"

	rec := s.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = s.do(t, http.MethodPost, base+"/generate", map[string]string{"tone": "friendly", "context": "the Q3 rollout"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var gen GenerateFollowupsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gen))
	require.Len(t, gen.Suggestions, 3)
	assert.Equal(t, "friendly", gen.Tone)

	rec = s.do(t, http.MethodPost, base+"/1/send", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sent usecase.SendFollowupOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sent))
	assert.Equal(t, entity.SendStateSent, sent.State)
	assert.Equal(t, "fake", sent.SentEmail.Provider)
	assert.Equal(t, []string{"ana@example.com|" + gen.Suggestions[1].Subject}, s.delivery.sent)

	rec = s.do(t, http.MethodPost, base+"/1/send", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ALREADY_SENT", decodeError(t, rec).Error)

	rec = s.do(t, http.MethodGet, base, nil)
	var views []usecase.FollowupView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 3)
	assert.Equal(t, entity.SendStateSent, views[1].SendState)
	assert.Equal(t, entity.SendStateIdle, views[0].SendState)

	rec = s.do(t, http.MethodGet, "/leads/"+lead.ID+"/sent-emails", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var emails []entity.SentEmail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &emails))
	assert.Len(t, emails, 1)

	rec = s.do(t, http.MethodGet, "/leads/"+lead.ID, nil)
	var contacted entity.Lead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &contacted))
	assert.Equal(t, entity.LeadStatusInProgress, contacted.Status)
	assert.NotEmpty(t, contacted.LastEmailSnippet)
}

func TestFollowupErrors(t *testing.T) {
	s := newTestServer(t, 0)
	lead := s.createLead(t, "Ana Souza", "ana@example.com")
	base := "/leads/" + lead.ID + "/followups"

	rec := s.do(t, http.MethodPost, base+"/generate", map[string]string{"tone": "sarcastic"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "INVALID_ARGUMENT", resp.Error)
	assert.Equal(t, "sarcastic", resp.Tone)

	rec = s.do(t, http.MethodPost, "/leads/ghost/followups/generate", map[string]string{"tone": "polite"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/abc/send", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ARGUMENT", decodeError(t, rec).Error)

	rec = s.do(t, http.MethodPost, base+"/0/send", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	resp = decodeError(t, rec)
	assert.Equal(t, "STALE_SUGGESTION", resp.Error)
	require.NotNil(t, resp.VariantIndex)
	assert.Equal(t, 0, *resp.VariantIndex)

	rec = s.do(t, http.MethodPost, base+"/generate", map[string]string{"tone": "polite"})
	require.Equal(t, http.StatusOK, rec.Code)

	s.delivery.err = errors.New("smtp: 421")
	rec = s.do(t, http.MethodPost, base+"/2/send", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	resp = decodeError(t, rec)
	assert.Equal(t, "SEND_FAILED", resp.Error)
	assert.False(t, resp.MayHaveDelivered)
}

func TestGenerateRateLimit(t *testing.T) {
	s := newTestServer(t, 1)
	lead := s.createLead(t, "Ana Souza", "ana@example.com")
	path := "/leads/" + lead.ID + "/followups/generate"

	rec := s.do(t, http.MethodPost, path, map[string]string{"tone": "polite"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, path, map[string]string{"tone": "polite"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, rec).Error)
}

func TestDeleteRefusedWhileSending(t *testing.T) {
	s := newTestServer(t, 0)
	lead := s.createLead(t, "Ana Souza", "ana@example.com")
	rec := s.do(t, http.MethodPost, "/leads/"+lead.ID+"/followups/generate", map[string]string{"tone": "polite"})
	require.Equal(t, http.StatusOK, rec.Code)

	ticket, err := s.cache.BeginSend(lead.ID, 0)
	require.NoError(t, err)

	rec = s.do(t, http.MethodDelete, "/leads/"+lead.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	s.cache.AbortSend(ticket)
	rec = s.do(t, http.MethodDelete, "/leads/"+lead.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAnalyticsEndpoint(t *testing.T) {
	s := newTestServer(t, 0)
	s.createLead(t, "Ana Souza", "ana@example.com")

	rec := s.do(t, http.MethodGet, "/analytics?range=7d&period=day", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report usecase.AnalyticsReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 1, report.TotalLeads)
	assert.Equal(t, usecase.PeriodDay, report.Window.Period)

	rec = s.do(t, http.MethodGet, "/analytics?range=forever", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/analytics?period=day&from=0001-01-01&to=9999-12-31", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, usecase.CodeValidation, decodeError(t, rec).Error)
}

func TestSentEmailsEndpoint(t *testing.T) {
	s := newTestServer(t, 0)

	rec := s.do(t, http.MethodGet, "/sent-emails", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/sent-emails?lead_id=ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogSentEmailEndpoints(t *testing.T) {
	s := newTestServer(t, 0)
	lead := s.createLead(t, "Ana Souza", "ana@example.com")

	rec := s.do(t, http.MethodPost, "/sent-emails", map[string]string{
		"to_email": "someone@example.com",
		"subject":  "Intro",
		"body":     "Hello from the team",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var standalone entity.SentEmail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &standalone))
	assert.NotEmpty(t, standalone.ID)
	assert.Equal(t, usecase.ManualProvider, standalone.Provider)
	assert.Nil(t, standalone.SourceLeadID)

	// the path lead overrides the body
	rec = s.do(t, http.MethodPost, "/leads/"+lead.ID+"/sent-emails", map[string]string{
		"to_email":       "ana@example.com",
		"subject":        "Re: pricing",
		"body":           "Edited follow-up body",
		"provider":       "gmail",
		"source_lead_id": "ghost",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var linked entity.SentEmail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &linked))
	require.NotNil(t, linked.SourceLeadID)
	assert.Equal(t, lead.ID, *linked.SourceLeadID)
	assert.Equal(t, "gmail", linked.Provider)

	rec = s.do(t, http.MethodGet, "/leads/"+lead.ID+"/sent-emails", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var emails []entity.SentEmail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &emails))
	require.Len(t, emails, 1)
	assert.Equal(t, linked.ID, emails[0].ID)

	rec = s.do(t, http.MethodGet, "/leads/"+lead.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated entity.Lead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Edited follow-up body", updated.LastEmailSnippet)
	assert.Equal(t, entity.LeadStatusInProgress, updated.Status)

	rec = s.do(t, http.MethodGet, "/sent-emails", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &emails))
	assert.Len(t, emails, 2)
}

func TestLogSentEmailEndpoints_Errors(t *testing.T) {
	s := newTestServer(t, 0)

	rec := s.do(t, http.MethodPost, "/sent-emails", map[string]string{"to_email": "not-an-email", "subject": "s"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, usecase.CodeValidation, resp.Error)
	assert.Contains(t, resp.Fields, usecase.ValidationError{Field: "to_email", Message: "is invalid"})
	assert.Contains(t, resp.Fields, usecase.ValidationError{Field: "body", Message: "is required"})

	rec = s.do(t, http.MethodPost, "/leads/ghost/sent-emails", map[string]string{
		"to_email": "a@example.com", "subject": "s", "body": "b",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/sent-emails", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/sent-emails", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 0)

	rec := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "in-memory", resp.Dependencies["database"])
	assert.Equal(t, "not configured", resp.Dependencies["rabbitmq"])
	assert.Equal(t, "template", resp.Dependencies["ai"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{usecase.ErrValidation, http.StatusBadRequest},
		{usecase.ErrInvalidArgument, http.StatusBadRequest},
		{usecase.ErrNotFound, http.StatusNotFound},
		{usecase.ErrAlreadyInProgress, http.StatusConflict},
		{usecase.ErrStaleSuggestion, http.StatusConflict},
		{usecase.ErrGenerationFailed, http.StatusBadGateway},
		{usecase.ErrCancelled, StatusClientClosedRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, StatusFor(tt.err), "%v", tt.err)
	}
}

func TestWriteError_HidesTechnicalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/leads", nil)

	writeError(rec, req, slog.New(slog.NewTextHandler(io.Discard, nil)), &usecase.TechnicalError{Code: "DATABASE_ERROR", Message: "pq: password authentication failed"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"))

	now = now.Add(2 * time.Minute)
	assert.True(t, rl.Allow("1.2.3.4"))

	now = now.Add(5 * time.Minute)
	rl.Cleanup()
	assert.Empty(t, rl.visitors)

	assert.True(t, NewRateLimiter(0, time.Minute).Allow("any"))
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", getClientIP(r))

	r.Header.Set("X-Real-IP", "9.9.9.9")
	assert.Equal(t, "9.9.9.9", getClientIP(r))

	r.Header.Set("X-Forwarded-For", "1.1.1.1, 2.2.2.2")
	assert.Equal(t, "1.1.1.1", getClientIP(r))
}
