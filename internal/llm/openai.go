package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// chatCompletionsClient talks to an OpenAI-compatible chat completions endpoint.
// Mistral and OpenAI both speak this protocol.
type chatCompletionsClient struct {
	httpClient  *http.Client
	provider    string
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

func newChatCompletionsClient(cfg Config) (*chatCompletionsClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", cfg.Provider)
	}

	return &chatCompletionsClient{
		provider:    cfg.Provider,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient:  newHTTPClient(cfg.Timeout),
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// chatResponse is the subset of the chat completions response we read.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
		Index        int         `json:"index"`
	} `json:"choices"`
}

// Complete sends one chat completion request.
func (c *chatCompletionsClient) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	request := chatRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	if systemPrompt != "" {
		request.Messages = append(request.Messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	request.Messages = append(request.Messages, chatMessage{Role: "user", Content: prompt})

	var response chatResponse
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if err := postJSON(ctx, c.httpClient, c.provider, c.baseURL+"/chat/completions", headers, request, &response); err != nil {
		return "", err
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}

	return response.Choices[0].Message.Content, nil
}
