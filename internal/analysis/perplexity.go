package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const perplexityBaseURL = "https://api.perplexity.ai"

// PerplexityClient calls the Perplexity chat-completions endpoint.
type PerplexityClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewPerplexityClient(apiKey, model string) *PerplexityClient {
	if model == "" {
		model = "sonar"
	}
	return &PerplexityClient{
		apiKey:  apiKey,
		baseURL: perplexityBaseURL,
		model:   model,
		client:  &http.Client{},
	}
}

// Complete performs a single chat completion and returns the trimmed
// message content.
func (c *PerplexityClient) Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	body := chatRequest{
		Model:       c.model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Messages:    buildMessages(opts.SystemPrompt, prompt),
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &ExternalAPIError{Provider: "perplexity", Message: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &ExternalAPIError{Provider: "perplexity", Status: resp.StatusCode, Message: string(msg)}
	}

	var res chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", &ExternalAPIError{Provider: "perplexity", Message: fmt.Sprintf("decode response: %v", err)}
	}
	if len(res.Choices) == 0 || res.Choices[0].Message.Content == "" {
		return "", &ExternalAPIError{Provider: "perplexity", Message: "response carried no content"}
	}
	return strings.TrimSpace(res.Choices[0].Message.Content), nil
}
