package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const defaultMaxTokens = 1024

// OpenAIClient calls an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	client  *openai.Client
	timeout time.Duration
}

// NewOpenAIClient creates a client for the given key. An empty key yields a
// client that reports not ready, so the executor can short-circuit to its
// no-credentials response. baseURL overrides the API endpoint for
// OpenAI-compatible providers.
func NewOpenAIClient(apiKey, baseURL string, timeout time.Duration) *OpenAIClient {
	if apiKey == "" {
		return &OpenAIClient{timeout: timeout}
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(cfg),
		timeout: timeout,
	}
}

// Ready reports whether an API key was configured.
func (c *OpenAIClient) Ready() bool {
	return c.client != nil
}

// Complete issues one chat completion call and classifies the result.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) Outcome {
	if c.client == nil {
		return Outcome{Kind: OutcomeFatal, Err: errors.New("no API key configured")}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    buildMessages(req),
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return Outcome{Kind: OutcomeTransient, Err: errors.New("upstream returned no choices")}
	}

	return Outcome{Kind: OutcomeSuccess, Text: resp.Choices[0].Message.Content}
}

// buildMessages assembles the legal-research prompt for one question.
func buildMessages(req CompletionRequest) []openai.ChatCompletionMessage {
	system := "You are a legal research assistant. Answer questions about law " +
		"precisely, cite the relevant sources from the provided context, and say " +
		"so explicitly when the context does not cover the question."
	if req.Language != "" {
		system += fmt.Sprintf(" Respond in %s.", req.Language)
	}

	var user strings.Builder
	if req.Context != "" {
		user.WriteString("Context:\n")
		user.WriteString(req.Context)
		user.WriteString("\n\n")
	}
	user.WriteString("Question: ")
	user.WriteString(req.Question)

	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: user.String()},
	}
}
