package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/duskveil/game-api/internal/config"
)

// Generator is the narrow surface the scenario and analytics components need
// from the generation service. It is constructed once in main and injected;
// callers must tolerate any error by substituting local fallback content.
type Generator interface {
	// GenerateJSON sends a system/user prompt and decodes the reply as a JSON
	// object, tolerating markdown code fences around the payload.
	GenerateJSON(ctx context.Context, system, user string) (map[string]any, error)

	// GenerateText sends a system/user prompt and returns the plain reply.
	GenerateText(ctx context.Context, system, user string) (string, error)
}

// ErrNoAPIKey is returned by every call on a client constructed without a key.
var ErrNoAPIKey = errors.New("genai: no API key configured")

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient builds a Client from config. A missing API key is not an error at
// construction time: calls will fail and callers fall back locally, which
// keeps the service usable without upstream credentials.
func NewClient(cfg config.Config) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.GenAIBaseURL, "/"),
		apiKey:     strings.TrimSpace(cfg.GenAIKey),
		model:      cfg.GenAIModel,
		httpClient: &http.Client{Timeout: cfg.GenAITimeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("genai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("genai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	// Single attempt, no retry: callers have a local fallback.
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("genai: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("genai: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("genai: upstream status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("genai: decode response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("genai: upstream error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("genai: empty completion")
	}
	return out.Choices[0].Message.Content, nil
}

// GenerateText implements Generator.
func (c *Client) GenerateText(ctx context.Context, system, user string) (string, error) {
	text, err := c.complete(ctx, system, user, 0.7)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// GenerateJSON implements Generator.
func (c *Client) GenerateJSON(ctx context.Context, system, user string) (map[string]any, error) {
	text, err := c.complete(ctx, system, user, 0.8)
	if err != nil {
		return nil, err
	}
	return ExtractJSON(text)
}

// ExtractJSON decodes a JSON object out of a model reply, stripping an
// optional ```json fence and any prose around the outermost braces.
func ExtractJSON(text string) (map[string]any, error) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, errors.New("genai: no JSON object in reply")
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(s[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("genai: malformed JSON in reply: %w", err)
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
