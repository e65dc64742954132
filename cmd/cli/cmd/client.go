package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/xavierca1/followwise/internal/entity"
	"github.com/xavierca1/followwise/internal/infra/http/handlers"
	"github.com/xavierca1/followwise/internal/usecase"
)

// FollowClient calls the FollowWise HTTP API.
type FollowClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewFollowClient(baseURL string) *FollowClient {
	return &FollowClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			// generation waits on the model
			Timeout: 90 * time.Second,
		},
	}
}

// APIError is a non-2xx answer. Code and Message come from the error body
// when the server sent one.
type APIError struct {
	StatusCode       int
	Code             string
	Message          string
	MayHaveDelivered bool
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

type LeadQuery struct {
	Status string
	Search string
	Limit  int
	Offset int
}

func (c *FollowClient) ListLeads(q LeadQuery) ([]entity.Lead, error) {
	v := url.Values{}
	setIf(v, "status", q.Status)
	setIf(v, "search", q.Search)
	setInt(v, "limit", q.Limit)
	setInt(v, "offset", q.Offset)

	var leads []entity.Lead
	err := c.do(http.MethodGet, "/leads", v, nil, &leads)
	return leads, err
}

func (c *FollowClient) CreateLead(input usecase.CreateLeadInput) (*entity.Lead, error) {
	var lead entity.Lead
	if err := c.do(http.MethodPost, "/leads", nil, input, &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

func (c *FollowClient) ImportLeads(inputs []usecase.CreateLeadInput) (*usecase.ImportLeadsOutput, error) {
	var out usecase.ImportLeadsOutput
	if err := c.do(http.MethodPost, "/leads/import", nil, handlers.ImportLeadsRequest{Leads: inputs}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *FollowClient) UpdateLead(id string, input usecase.UpdateLeadInput) (*entity.Lead, error) {
	var lead entity.Lead
	if err := c.do(http.MethodPatch, "/leads/"+url.PathEscape(id), nil, input, &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

func (c *FollowClient) DeleteLead(id string) error {
	return c.do(http.MethodDelete, "/leads/"+url.PathEscape(id), nil, nil, nil)
}

func (c *FollowClient) GenerateFollowups(leadID, tone, extra string) (*handlers.GenerateFollowupsResponse, error) {
	req := handlers.GenerateFollowupsRequest{Tone: tone, Context: extra}
	var out handlers.GenerateFollowupsResponse
	if err := c.do(http.MethodPost, "/leads/"+url.PathEscape(leadID)+"/followups/generate", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *FollowClient) ListFollowups(leadID string) ([]usecase.FollowupView, error) {
	var views []usecase.FollowupView
	err := c.do(http.MethodGet, "/leads/"+url.PathEscape(leadID)+"/followups", nil, nil, &views)
	return views, err
}

func (c *FollowClient) SendFollowup(leadID string, variantIndex int) (*usecase.SendFollowupOutput, error) {
	path := fmt.Sprintf("/leads/%s/followups/%d/send", url.PathEscape(leadID), variantIndex)
	var out usecase.SendFollowupOutput
	if err := c.do(http.MethodPost, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *FollowClient) ListSentEmails(leadID string, limit, offset int) ([]entity.SentEmail, error) {
	v := url.Values{}
	setIf(v, "lead_id", leadID)
	setInt(v, "limit", limit)
	setInt(v, "offset", offset)

	var emails []entity.SentEmail
	err := c.do(http.MethodGet, "/sent-emails", v, nil, &emails)
	return emails, err
}

// LogSentEmail records an email sent outside followctl. A non-empty leadID
// uses the lead-scoped route.
func (c *FollowClient) LogSentEmail(leadID string, input usecase.LogSentEmailInput) (*entity.SentEmail, error) {
	path := "/sent-emails"
	if leadID != "" {
		path = "/leads/" + url.PathEscape(leadID) + "/sent-emails"
	}
	var out entity.SentEmail
	if err := c.do(http.MethodPost, path, nil, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *FollowClient) Analytics(rangeName, period string) (*usecase.AnalyticsReport, error) {
	v := url.Values{}
	setIf(v, "range", rangeName)
	setIf(v, "period", period)

	var report usecase.AnalyticsReport
	if err := c.do(http.MethodGet, "/analytics", v, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *FollowClient) do(method, path string, query url.Values, body, out any) error {
	endpoint := c.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("Accept", "application/json")
	if body != nil {
		req.Header.Add("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, respBody)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, body []byte) error {
	var er handlers.ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != "" {
		return &APIError{
			StatusCode:       status,
			Code:             er.Error,
			Message:          er.Message,
			MayHaveDelivered: er.MayHaveDelivered,
		}
	}
	return &APIError{StatusCode: status, Message: string(bytes.TrimSpace(body))}
}

func setIf(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func setInt(v url.Values, key string, n int) {
	if n > 0 {
		v.Set(key, strconv.Itoa(n))
	}
}
