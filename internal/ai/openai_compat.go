package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAICompatProvider binds any chat-completions style API (Groq, Grok).
// It walks Models in order under a per-model timeout, stopping at the first
// model that returns usable text.
type OpenAICompatProvider struct {
	Name         string
	BaseURL      string
	APIKey       string
	Models       []string
	Temperature  float64
	ModelTimeout time.Duration
	Client       *http.Client
}

type oaMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaChatReq struct {
	Model       string  `json:"model"`
	Messages    []oaMsg `json:"messages"`
	Temperature float64 `json:"temperature,omitempty"`
}

type oaChatResp struct {
	Choices []struct {
		Message oaMsg `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewGroqProvider(apiKey string) *OpenAICompatProvider {
	return &OpenAICompatProvider{
		Name:         "groq",
		BaseURL:      "https://api.groq.com/openai/v1",
		APIKey:       apiKey,
		Models:       []string{"llama-3.3-70b-versatile", "llama-3.1-8b-instant"},
		Temperature:  0.4,
		ModelTimeout: 8 * time.Second,
		Client:       &http.Client{Timeout: 20 * time.Second},
	}
}

func NewGrokProvider(apiKey string) *OpenAICompatProvider {
	return &OpenAICompatProvider{
		Name:         "grok",
		BaseURL:      "https://api.x.ai/v1",
		APIKey:       apiKey,
		Models:       []string{"grok-2"},
		Temperature:  0.4,
		ModelTimeout: 8 * time.Second,
		Client:       &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *OpenAICompatProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if p.Client == nil {
		return "", fmt.Errorf("%s: http client is nil", p.Name)
	}
	if strings.TrimSpace(p.APIKey) == "" {
		return "", fmt.Errorf("%s: api key is required", p.Name)
	}
	if len(p.Models) == 0 {
		return "", fmt.Errorf("%s: no models configured", p.Name)
	}

	var lastErr error
	for _, model := range p.Models {
		text, err := p.chatModel(ctx, model, messages)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("%s: %w", p.Name, lastErr)
}

func (p *OpenAICompatProvider) chatModel(ctx context.Context, model string, messages []Message) (string, error) {
	timeout := p.ModelTimeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	mctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reqBody := oaChatReq{
		Model:       model,
		Temperature: p.Temperature,
		Messages: func() []oaMsg {
			out := make([]oaMsg, 0, len(messages))
			for _, m := range messages {
				out = append(out, oaMsg{Role: m.Role, Content: m.Content})
			}
			return out
		}(),
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/chat/completions", strings.TrimRight(p.BaseURL, "/"))
	req, err := http.NewRequestWithContext(mctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", errors.New(msg)
	}

	var decoded oaChatResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return "", errors.New(decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return "", ErrEmptyReply
	}
	text := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}
