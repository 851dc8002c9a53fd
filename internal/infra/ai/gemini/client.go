package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/bryanwahyu/verdant-vision/internal/domain/detection"
	"github.com/bryanwahyu/verdant-vision/internal/domain/diagnosis"
	"github.com/bryanwahyu/verdant-vision/internal/infra/ai/prompt"
)

const defaultModel = "gemini-2.5-flash"

// Config selects the Gemini API (APIKey) or Vertex AI (Project + Location)
type Config struct {
	APIKey   string
	Project  string
	Location string
	Model    string
	// BaseURL overrides the endpoint, mostly for tests
	BaseURL string
}

// Client detector backed by a Gemini multimodal model
type Client struct {
	client *genai.Client
	model  string
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	cc := &genai.ClientConfig{}
	switch {
	case cfg.APIKey != "":
		cc.APIKey = cfg.APIKey
		cc.Backend = genai.BackendGeminiAPI
	case cfg.Project != "":
		cc.Project = cfg.Project
		cc.Location = cfg.Location
		cc.Backend = genai.BackendVertexAI
	default:
		return nil, fmt.Errorf("gemini: api key or project is required")
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Client{client: client, model: model}, nil
}

func (c *Client) Detect(ctx context.Context, in detection.Input) (*diagnosis.Result, error) {
	photo, err := diagnosis.ParsePhoto(in.PhotoDataURI)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", detection.MarkerInvalidMedia, err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt.GetUserPrompt(in.Description)),
			genai.NewPartFromBytes(photo.Data, photo.ContentType),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.GetSystemPrompt(), genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr[float32](0.2),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, normalizeError(err)
	}
	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}
	return prompt.ParseResult(text)
}

// responseText joins the text parts of the first candidate. Block reasons
// from the API (e.g. SAFETY) are kept verbatim in the error.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("empty response")
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return "", fmt.Errorf("prompt blocked: %s %s", fb.BlockReason, fb.BlockReasonMessage)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", fmt.Errorf("response has no candidates")
	}
	cand := resp.Candidates[0]
	if cand.FinishReason == genai.FinishReasonSafety || cand.FinishReason == genai.FinishReasonProhibitedContent {
		return "", fmt.Errorf("candidate blocked: finish reason %s (%s)", cand.FinishReason, detection.MarkerSafety)
	}
	if cand.Content == nil {
		return "", fmt.Errorf("candidate has no content (finish reason %s)", cand.FinishReason)
	}
	var b strings.Builder
	for _, p := range cand.Content.Parts {
		if p != nil && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	return b.String(), nil
}

// normalizeError maps genai API errors onto the detection message markers
func normalizeError(err error) error {
	code, msg, ok := apiError(err)
	if !ok {
		return fmt.Errorf("failed to generate content: %w", err)
	}
	switch {
	case code == http.StatusServiceUnavailable:
		return fmt.Errorf("%s: %w", detection.MarkerServiceUnavailable, err)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", detection.ErrQuotaExceeded, err)
	case code == http.StatusBadRequest && strings.Contains(strings.ToLower(msg), "image"):
		return fmt.Errorf("%s: %w", detection.MarkerInvalidMedia, err)
	default:
		return fmt.Errorf("failed to generate content: %w", err)
	}
}

func apiError(err error) (int, string, bool) {
	var v genai.APIError
	if errors.As(err, &v) {
		return v.Code, v.Message, true
	}
	var p *genai.APIError
	if errors.As(err, &p) && p != nil {
		return p.Code, p.Message, true
	}
	return 0, "", false
}
