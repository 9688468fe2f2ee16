// Package parser translates free-text scouting questions into a
// query.StructuredQuery, behind a four-layer defence against the language
// model inventing a metric, position, or player that does not exist.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/scouting/core/coreerr"
)

// Message is one turn in an OpenAI-compatible chat completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is an OpenAI-compatible chat completion request, constrained
// to the non-streaming, low-temperature shape the Query Parser needs.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// LLMClient is a minimal OpenAI-compatible chat completion client, tuned for
// the Query Parser's near-deterministic structured-output calls rather than
// long-form streaming analysis.
type LLMClient struct {
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
}

// NewLLMClient constructs a client against an OpenAI-compatible endpoint.
func NewLLMClient(endpoint, apiKey, model string, temperature float64, timeout time.Duration) *LLMClient {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &LLMClient{
		endpoint:    endpoint,
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		client:      &http.Client{Transport: transport, Timeout: timeout},
	}
}

// Complete sends a single-shot chat completion request and returns the
// assistant's raw text content. Callers are expected to parse that content
// as JSON against the StructuredQuery schema; Complete itself does no
// interpretation.
func (c *LLMClient) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	body := chatRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userText},
		},
		Temperature: c.temperature,
		MaxTokens:   800,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", coreerr.NewLLMUnavailableError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", coreerr.NewLLMUnavailableError(fmt.Errorf("status %d: %s", resp.StatusCode, string(b)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", coreerr.NewLLMUnavailableError(fmt.Errorf("decode response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return "", coreerr.NewLLMUnavailableError(fmt.Errorf("no choices returned"))
	}
	return parsed.Choices[0].Message.Content, nil
}
