package openai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

var (
	ErrLLMUnavailable = errors.New("llm unavailable")
	errNotConfigured  = errors.New("OPENAI_API_KEY not configured")
)

const jsonInstruction = "\n\nYour response must be a single valid JSON object and nothing else."

// Completer is the minimal interface the rest of the backend depends on.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Turn is one prior question/answer pair; callers fold a window of them into the prompt.
type Turn struct {
	Question string
	Answer   string
}

type Request struct {
	System string
	User   string
	// JSON asks for a JSON object response.
	JSON bool
}

type Config struct {
	APIKey        string
	BaseURL       string
	PrimaryModel  string
	FallbackModel string
	Temperature   float32
	MaxTokens     int
	Timeout       time.Duration
}

// Client talks to the chat-completions API with one fallback attempt.
type Client struct {
	api *openai.Client
	cfg Config
}

func NewClient(cfg Config) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if cfg.PrimaryModel == "" {
		cfg.PrimaryModel = "gpt-4-turbo-preview"
	}
	if cfg.FallbackModel == "" {
		cfg.FallbackModel = "gpt-4"
	}
	return &Client{api: openai.NewClientWithConfig(oc), cfg: cfg}
}

// Complete tries the primary model and, on any error or blank answer, the fallback
// model once. Nothing is cached.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("%w: %w", ErrLLMUnavailable, errNotConfigured)
	}

	start := time.Now()
	primary := c.chatRequest(c.cfg.PrimaryModel, c.cfg.Temperature, req.System, req)
	if req.JSON {
		primary.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	out, err1 := c.attempt(ctx, primary)
	if err1 == nil {
		log.Printf("[llm][ok] model=%s elapsed_ms=%d", primary.Model, time.Since(start).Milliseconds())
		return out, nil
	}
	if ctx.Err() != nil {
		return "", fmt.Errorf("%w: %w", ErrLLMUnavailable, err1)
	}
	log.Printf("[llm][fallback] primary=%s err=%v", primary.Model, err1)

	system := req.System
	if req.JSON {
		system += jsonInstruction
	}
	fallback := c.chatRequest(c.cfg.FallbackModel, 0.2, system, req)
	out, err2 := c.attempt(ctx, fallback)
	if err2 != nil {
		log.Printf("[llm][fail] fallback=%s err=%v", fallback.Model, err2)
		return "", fmt.Errorf("%w: primary: %w; fallback: %w", ErrLLMUnavailable, err1, err2)
	}
	log.Printf("[llm][ok] model=%s fallback=true elapsed_ms=%d", fallback.Model, time.Since(start).Milliseconds())
	return out, nil
}

func (c *Client) chatRequest(model string, temp float32, system string, req Request) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.User})
	return openai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: temp,
		MaxTokens:   c.cfg.MaxTokens,
	}
}

func (c *Client) attempt(parent context.Context, r openai.ChatCompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(parent, c.cfg.Timeout)
	defer cancel()
	resp, err := c.api.CreateChatCompletion(ctx, r)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned")
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", errors.New("empty completion")
	}
	return content, nil
}

// Window keeps the last n turns; n <= 0 keeps everything.
func Window(turns []Turn, n int) []Turn {
	if n <= 0 || len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}
