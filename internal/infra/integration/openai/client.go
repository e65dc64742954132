// Package openai generates follow-up variants with an OpenAI-compatible chat
// completions endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"

	"github.com/xavierca1/followwise/internal/entity"
)

const defaultVariants = 3

// Client is safe for concurrent use; the underlying API client is built
// once and shared by every call.
type Client struct {
	api      openai.Client
	model    string
	variants int
}

func NewClient(cfg Settings) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing; set OPENAI_API_KEY")
	}
	if cfg.Model == "" {
		return nil, errors.New("openai model is required")
	}
	if cfg.Variants <= 0 {
		cfg.Variants = defaultVariants
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{api: openai.NewClient(opts...), model: cfg.Model, variants: cfg.Variants}, nil
}

func (c *Client) GenerateFollowups(ctx context.Context, lead entity.LeadContext, tone entity.Tone) ([]entity.FollowupDraft, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt(c.variants)),
			openai.UserMessage(userPrompt(lead, tone)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: empty choices")
	}

	return parseVariants(resp.Choices[0].Message.Content)
}

// parseVariants accepts {"variants":[...]} or a bare array, optionally wrapped
// in a markdown code fence. Variants missing a subject or body are dropped;
// order is preserved.
func parseVariants(content string) ([]entity.FollowupDraft, error) {
	raw := extractJSON(content)
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("openai: response is not JSON: %.80q", content)
	}

	list := gjson.Parse(raw)
	if list.IsObject() {
		list = list.Get("variants")
	}
	if !list.IsArray() {
		return nil, errors.New("openai: response has no variants array")
	}

	var drafts []entity.FollowupDraft
	for _, v := range list.Array() {
		subject := strings.TrimSpace(v.Get("subject").String())
		body := strings.TrimSpace(v.Get("body").String())
		if subject == "" || body == "" {
			continue
		}
		drafts = append(drafts, entity.FollowupDraft{Subject: subject, Body: body})
	}
	if len(drafts) == 0 {
		return nil, errors.New("openai: no usable variants in response")
	}
	return drafts, nil
}

func extractJSON(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	return s
}
