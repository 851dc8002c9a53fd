package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/verdant-vision/internal/domain/detection"
	"github.com/bryanwahyu/verdant-vision/internal/domain/diagnosis"
	"github.com/bryanwahyu/verdant-vision/internal/infra/ai/prompt"
)

const (
	maxTokens    = 1024
	defaultModel = "gpt-4o-mini"
)

// Client detector backed by an OpenAI vision model
type Client struct {
	*openai.Client
	Model string
}

func NewClient(apiKey, model string) *Client {
	return &Client{Client: openai.NewClient(apiKey), Model: model}
}

// NewClientWithConfig lets callers point at a proxy or compatible endpoint
func NewClientWithConfig(cfg openai.ClientConfig, model string) *Client {
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model}
}

func (c *Client) Detect(ctx context.Context, in detection.Input) (*diagnosis.Result, error) {
	model := c.Model
	if model == "" {
		model = defaultModel
	}
	req := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt.GetUserPrompt(in.Description)},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
						URL:    in.PhotoDataURI,
						Detail: openai.ImageURLDetailAuto,
					}},
				},
			},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, normalizeError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}
	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return nil, fmt.Errorf("response blocked by %s filter (finish_reason=%s)", detection.MarkerSafety, choice.FinishReason)
	}
	return prompt.ParseResult(choice.Message.Content)
}

// normalizeError rewrites provider failures into the message markers the
// orchestrator classifies on.
func normalizeError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusServiceUnavailable:
			return fmt.Errorf("%s: %w", detection.MarkerServiceUnavailable, err)
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w", detection.ErrQuotaExceeded, err)
		case apiErr.Code == "content_policy_violation" || apiErr.Code == "content_filter":
			return fmt.Errorf("blocked by %s filter: %w", detection.MarkerSafety, err)
		case apiErr.Code == "invalid_image_format" || apiErr.Code == "image_parse_error" || apiErr.Code == "invalid_image_url":
			return fmt.Errorf("%s: %w", detection.MarkerInvalidMedia, err)
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusServiceUnavailable {
		return fmt.Errorf("%s: %w", detection.MarkerServiceUnavailable, err)
	}
	return fmt.Errorf("failed to create chat completion: %w", err)
}
