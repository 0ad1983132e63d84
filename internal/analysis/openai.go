package analysis

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const openAIBaseURL = "https://api.openai.com/v1"

// CompletionOptions parametrize one provider call. Deadlines are the
// caller's business, via ctx.
type CompletionOptions struct {
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

// OpenAIClient calls the OpenAI chat-completions and responses endpoints
// over plain HTTP. One call per invocation; retries belong to the caller.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: openAIBaseURL,
		model:   model,
		client:  &http.Client{},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Complete performs a single chat completion and returns the trimmed
// message content.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	body := chatRequest{
		Model:       c.model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Messages:    buildMessages(opts.SystemPrompt, prompt),
	}
	var res chatResponse
	if err := c.post(ctx, "/chat/completions", body, &res); err != nil {
		return "", err
	}
	if len(res.Choices) == 0 || res.Choices[0].Message.Content == "" {
		return "", &ExternalAPIError{Provider: "openai", Message: "response carried no content"}
	}
	return strings.TrimSpace(res.Choices[0].Message.Content), nil
}

// CompleteStream performs a streaming chat completion, invoking onDelta for
// each content piece, and returns the concatenated output.
func (c *OpenAIClient) CompleteStream(ctx context.Context, prompt string, opts CompletionOptions, onDelta func(piece string)) (string, error) {
	body := chatRequest{
		Model:       c.model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Messages:    buildMessages(opts.SystemPrompt, prompt),
		Stream:      true,
	}
	resp, err := c.send(ctx, "/chat/completions", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var total strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}
		var chunk chatResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return "", &ExternalAPIError{Provider: "openai", Message: fmt.Sprintf("malformed stream chunk: %v", err)}
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if piece := chunk.Choices[0].Delta.Content; piece != "" {
			total.WriteString(piece)
			if onDelta != nil {
				onDelta(piece)
			}
		} else if chunk.Choices[0].FinishReason != "" {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", &ExternalAPIError{Provider: "openai", Message: fmt.Sprintf("stream read: %v", err)}
	}
	return total.String(), nil
}

type responsesRequest struct {
	Model           string         `json:"model"`
	Tools           []responseTool `json:"tools"`
	Temperature     float64        `json:"temperature"`
	MaxOutputTokens int            `json:"max_output_tokens"`
	Input           string         `json:"input"`
}

type responseTool struct {
	Type string `json:"type"`
}

// responsesResponse covers both shapes the responses API returns: a flat
// output_text convenience field, or an output array of typed items.
type responsesResponse struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

func (r responsesResponse) text() string {
	if r.OutputText != "" {
		return r.OutputText
	}
	var b strings.Builder
	for _, item := range r.Output {
		if item.Type != "" && item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type == "output_text" {
				b.WriteString(part.Text)
			}
		}
	}
	return b.String()
}

// Search performs a web-search-backed completion via the responses API.
func (c *OpenAIClient) Search(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	input := prompt
	if opts.SystemPrompt != "" {
		input = opts.SystemPrompt + "\n\n" + prompt
	}
	body := responsesRequest{
		Model:           c.model,
		Tools:           []responseTool{{Type: "web_search_preview"}},
		Temperature:     opts.Temperature,
		MaxOutputTokens: opts.MaxTokens,
		Input:           input,
	}
	var res responsesResponse
	if err := c.post(ctx, "/responses", body, &res); err != nil {
		return "", err
	}
	text := strings.TrimSpace(res.text())
	if text == "" {
		return "", &ExternalAPIError{Provider: "openai", Message: "response carried no content"}
	}
	return text, nil
}

func (c *OpenAIClient) post(ctx context.Context, path string, body any, out any) error {
	resp, err := c.send(ctx, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ExternalAPIError{Provider: "openai", Message: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}

func (c *OpenAIClient) send(ctx context.Context, path string, body any) (*http.Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &ExternalAPIError{Provider: "openai", Message: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, &ExternalAPIError{Provider: "openai", Status: resp.StatusCode, Message: string(msg)}
	}
	return resp, nil
}

func buildMessages(system, user string) []chatMessage {
	msgs := make([]chatMessage, 0, 2)
	if system != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: system})
	}
	return append(msgs, chatMessage{Role: "user", Content: user})
}
