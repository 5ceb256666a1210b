package openrouter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"companion/internal/logging"
)

// DefaultAPIURL is the OpenRouter chat completions endpoint.
const DefaultAPIURL = "https://openrouter.ai/api/v1/chat/completions"

// maxChatAttempts caps the truncate-and-retry loop.
const maxChatAttempts = 10

// ReasoningSettings controls reasoning tokens for models that support
// them. Effort and MaxTokens are mutually exclusive; effort wins when
// both are set.
type ReasoningSettings struct {
	Enabled   bool
	Effort    string
	MaxTokens int
	Exclude   bool
}

type reasoningPayload struct {
	Effort    string `json:"effort,omitempty"`
	MaxTokens int    `json:"max_tokens,omitempty"`
	Exclude   bool   `json:"exclude"`
}

func (r ReasoningSettings) payload() *reasoningPayload {
	if !r.Enabled {
		return nil
	}
	p := &reasoningPayload{Exclude: r.Exclude}
	if r.Effort != "" {
		p.Effort = r.Effort
	} else if r.MaxTokens > 0 {
		p.MaxTokens = r.MaxTokens
	}
	return p
}

// TruncateFunc shrinks the backing message store and returns a fresh,
// smaller transcript for a retry.
type TruncateFunc func() []Message

// Client talks to the OpenRouter API with automatic context recovery.
type Client struct {
	apiURL      string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	reasoning   ReasoningSettings
	client      *http.Client
}

// NewClient creates an OpenRouter client.
func NewClient(apiKey, model string, temperature float64, maxTokens int, reasoning ReasoningSettings) *Client {
	return &Client{
		apiURL:      DefaultAPIURL,
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		reasoning:   reasoning,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// SetAPIURL overrides the endpoint (used by tests).
func (c *Client) SetAPIURL(url string) {
	c.apiURL = url
}

type chatRequest struct {
	Model       string            `json:"model"`
	Messages    []Message         `json:"messages"`
	Temperature float64           `json:"temperature"`
	MaxTokens   int               `json:"max_tokens"`
	Reasoning   *reasoningPayload `json:"reasoning,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// request makes a single API call and classifies failures.
func (c *Client) request(messages []Message, maxTokens int) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   maxTokens,
		Reasoning:   c.reasoning.payload(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	logging.Debug("openrouter", "Sending request with %d messages (model %s)", len(messages), c.model)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openrouter request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusOK {
		var result chatResponse
		if err := json.Unmarshal(respBody, &result); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		if len(result.Choices) == 0 {
			return "", fmt.Errorf("no choices in response")
		}
		content := result.Choices[0].Message.Content
		logging.Debug("openrouter", "Token usage - prompt: %d, completion: %d, total: %d",
			result.Usage.PromptTokens, result.Usage.CompletionTokens, result.Usage.TotalTokens)
		return content, nil
	}

	if resp.StatusCode == http.StatusBadRequest && isContextLengthBody(string(respBody)) {
		logging.Warn("openrouter", "Context length error: %s", logging.Truncate(string(respBody), 200))
		return "", &ContextLengthError{Body: string(respBody)}
	}

	logging.Error("openrouter", "API error %d: %s", resp.StatusCode, logging.Truncate(string(respBody), 200))
	return "", &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
}

// Chat sends a transcript and returns the model's reply. On context
// length errors it calls truncate to obtain a reduced transcript and
// retries, until the transcript is down to the system message alone or
// the attempt cap is reached.
func (c *Client) Chat(messages []Message, truncate TruncateFunc) (string, error) {
	current := messages

	for attempt := 1; attempt <= maxChatAttempts; attempt++ {
		content, err := c.request(current, c.maxTokens)
		if err == nil {
			return content, nil
		}

		var ctxErr *ContextLengthError
		if !errors.As(err, &ctxErr) {
			return "", err
		}
		if truncate == nil {
			return "", err
		}
		// Only the system prompt left - can't truncate more
		if len(current) <= 1 {
			return "", fmt.Errorf("%w: context too long even with only the system prompt", ErrRecoveryExhausted)
		}

		current = truncate()
		logging.Info("openrouter", "Truncated context, retrying with %d messages (attempt %d/%d)",
			len(current), attempt, maxChatAttempts)
	}

	return "", fmt.Errorf("%w: failed after %d truncation attempts", ErrRecoveryExhausted, maxChatAttempts)
}

const emojiPickerPrompt = "You are an emoji picker. Given a message and available emojis, " +
	"pick ONE emoji that would be a good reaction. " +
	"Respond with ONLY the emoji, nothing else. " +
	"Pick something contextually appropriate and natural."

// PickEmoji asks the model to choose a reaction emoji for a message.
// Reactions are best-effort: every failure is swallowed and reported as
// ok=false.
func (c *Client) PickEmoji(content, author string, available []string, maxTokens int) (string, bool) {
	if len(available) > 100 {
		// Limit the list to avoid huge prompts
		available = available[:100]
	}

	messages := []Message{
		{Role: "system", Content: emojiPickerPrompt},
		{Role: "user", Content: fmt.Sprintf("Message from %s: \"%s\"\n\nAvailable emojis: %s",
			author, content, strings.Join(available, ", "))},
	}

	logging.Debug("openrouter", "Picking emoji for message from %s", author)

	reply, err := c.request(messages, maxTokens)
	if err != nil {
		logging.Warn("openrouter", "Failed to pick emoji: %v", err)
		return "", false
	}

	emoji := strings.TrimSpace(reply)
	if emoji == "" {
		return "", false
	}
	logging.Debug("openrouter", "Model picked emoji: %s", emoji)
	return emoji, true
}
