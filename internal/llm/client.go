// Package llm wraps the hosted language model behind a single Complete call.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/scopewise/estimation-backend/internal/metrics"
)

// Request is one prompt. System is optional; Model falls back to the client default.
type Request struct {
	System      string
	Prompt      string
	JSONMode    bool
	Model       string
	Temperature float32
}

// Completer is the contract the estimation service depends on.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type Options struct {
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
}

func New(opt Options) *Client {
	cfg := openai.DefaultConfig(opt.APIKey)
	if opt.BaseURL != "" {
		cfg.BaseURL = opt.BaseURL
	}
	if opt.HTTPClient != nil {
		cfg.HTTPClient = opt.HTTPClient
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opt.RequestsPerSecond > 0 {
		burst := int(opt.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opt.RequestsPerSecond), burst)
	}

	model := opt.Model
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}

	return &Client{
		api:     openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: opt.Timeout,
		limiter: limiter,
	}
}

// Complete sends the prompt and returns the first choice's text.
// A zero timeout leaves the call bounded only by ctx.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("llm rate limit: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	cr := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if req.JSONMode {
		cr.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, cr)
	if err == nil && len(resp.Choices) == 0 {
		err = errors.New("no choices returned")
	}
	metrics.RecordUpstreamCall(metrics.LLM, time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	return resp.Choices[0].Message.Content, nil
}
