package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/buckminster/backend/internal/models"
)

const stageTimeout = 45 * time.Second

const visionPrompt = "Describe the content of this image in detail. Transcribe any text, " +
	"questions, or data you see verbatim. Be precise and objective."

// answerSystemPrompt fixes the two-part output contract of the text stage: a
// single classifier tag drawn only from options actually present in the
// screen text, then the answer with the final value wrapped in <answer> tags.
const answerSystemPrompt = `You are Buckminster, a precise screen-content analytical AI.
You will receive text of what is visible on the user's screen.

Your output MUST be in this exact two-part style:
1) FIRST prepend ONE classifier tag.
2) THEN write the final response.

CLASSIFIER RULES (STRICTLY FOLLOW)
You MUST FIRST scan the screen text to identify EXACTLY which multiple-choice options are present.
ONLY use these classifiers if their corresponding options ACTUALLY appear in the screen text:
[OPTION:A] [OPTION:B] [OPTION:C] [OPTION:D] [OPTION:E]
CRITICAL: if the screen text shows options A, B, C, D you CANNOT use any tag for an option that does not appear.
[CODE] is used only when the final output is pure code with no explanation.

OUTPUT FORMAT (EXACTLY FOLLOW)
For [OPTION:*] responses: state which option is correct and wrap ONLY the final answer letter inside <answer> tags.
Example: "[OPTION:B]The correct answer is <answer>B</answer>."
For [CODE] responses: return clean runnable code ONLY inside <answer> tags, no explanations outside the tags.

VALIDATION STEP (MUST DO)
Before responding verify:
1. Which options actually exist in the screen text?
2. Your classifier tag MUST match one of the existing options.
3. NEVER invent options that do not appear in the screen text.`

// UpstreamError wraps any failure from an external completion endpoint. It is
// logged server-side and re-classified as ErrUpstream before crossing the API
// boundary.
type UpstreamError struct {
	Stage string
	Err   error
}

func (e *UpstreamError) Error() string { return fmt.Sprintf("%s stage: %v", e.Stage, e.Err) }
func (e *UpstreamError) Unwrap() error { return e.Err }

// LLMClient calls the two chained external completion endpoints. Both stages
// speak the OpenAI-style chat completion wire format.
type LLMClient struct {
	HTTPClient *http.Client
}

// NewLLMClient returns an LLMClient with the per-stage timeout applied.
func NewLLMClient() *LLMClient {
	return &LLMClient{HTTPClient: &http.Client{Timeout: stageTimeout}}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature *float64      `json:"temperature,omitempty"`
}

// Describe runs the vision stage: it sends the base64 screen capture and
// returns the model's verbatim description of it.
func (c *LLMClient) Describe(ctx context.Context, imageBase64 string, cfg models.ModelConfig) (string, error) {
	content := []map[string]any{
		{"type": "text", "text": visionPrompt},
		{"type": "image_url", "image_url": map[string]string{
			"url": "data:image/png;base64," + imageBase64,
		}},
	}
	req := chatRequest{
		Model:     cfg.ModelID,
		Messages:  []chatMessage{{Role: "user", Content: content}},
		MaxTokens: 1024,
	}
	out, err := c.complete(ctx, cfg, req)
	if err != nil {
		return "", &UpstreamError{Stage: "vision", Err: err}
	}
	return out, nil
}

// Answer runs the text stage: it feeds the description through the fixed
// system instruction and returns the model's tagged answer.
func (c *LLMClient) Answer(ctx context.Context, description string, cfg models.ModelConfig) (string, error) {
	temp := 0.2
	req := chatRequest{
		Model: cfg.ModelID,
		Messages: []chatMessage{
			{Role: "system", Content: answerSystemPrompt},
			{Role: "user", Content: description},
		},
		MaxTokens:   512,
		Temperature: &temp,
	}
	out, err := c.complete(ctx, cfg, req)
	if err != nil {
		return "", &UpstreamError{Stage: "text", Err: err}
	}
	return out, nil
}

func (c *LLMClient) complete(ctx context.Context, cfg models.ModelConfig, payload chatRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	content := gjson.GetBytes(raw, "choices.0.message.content")
	if !content.Exists() {
		return "", fmt.Errorf("malformed completion response")
	}
	return strings.TrimSpace(content.String()), nil
}
