package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// Defaults for the OpenAI client.
const (
	DefaultModel         = "gpt-4.1"
	DefaultMaxRetries    = 5
	DefaultInitialDelay  = 2 * time.Second
	DefaultBackoffFactor = 2.0
)

// Config holds configuration for the OpenAI client.
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	Timeout       time.Duration
	MaxRetries    int
	InitialDelay  time.Duration
	BackoffFactor float64
	MaxTokens     int
	CacheDir      string
}

// OpenAIClient implements TextGenerator and StructuredGenerator against the
// OpenAI chat completions API. Every call is stateless, so concurrent
// invocation is safe.
type OpenAIClient struct {
	client        *openai.Client
	model         string
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
	maxTokens     int
}

// NewOpenAI creates a client from configuration, applying defaults for any
// zero fields. When cfg.CacheDir is set, responses are cached on disk via a
// CachingTransport.
func NewOpenAI(cfg Config) *OpenAIClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)

	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	httpClient := &http.Client{}
	if cfg.Timeout > 0 {
		httpClient.Timeout = cfg.Timeout
	}
	if cfg.CacheDir != "" {
		httpClient.Transport = NewCachingTransport(cfg.CacheDir, nil)
	}
	clientConfig.HTTPClient = httpClient

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = DefaultMaxRetries
	}

	initialDelay := cfg.InitialDelay
	if initialDelay == 0 {
		initialDelay = DefaultInitialDelay
	}

	backoffFactor := cfg.BackoffFactor
	if backoffFactor == 0 {
		backoffFactor = DefaultBackoffFactor
	}

	return &OpenAIClient{
		client:        openai.NewClientWithConfig(clientConfig),
		model:         model,
		maxRetries:    maxRetries,
		initialDelay:  initialDelay,
		backoffFactor: backoffFactor,
		maxTokens:     cfg.MaxTokens,
	}
}

// ChatCompletion generates a chat completion, retrying transient transport
// failures with exponential backoff.
func (c *OpenAIClient) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (ChatCompletionResponse, error) {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages()))
	for i, m := range req.Messages() {
		messages[i] = openai.ChatCompletionMessage{
			Role:    m.Role(),
			Content: m.Content(),
		}
	}

	openaiReq := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	}

	if req.MaxTokens() > 0 {
		openaiReq.MaxTokens = req.MaxTokens()
	}
	if req.Temperature() > 0 {
		openaiReq.Temperature = float32(req.Temperature())
	}
	if name, schema, ok := req.ResponseShape(); ok {
		openaiReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   name,
				Schema: &schema,
				Strict: true,
			},
		}
	}

	var resp openai.ChatCompletionResponse
	err := c.withRetry(ctx, func() error {
		var callErr error
		resp, callErr = c.client.CreateChatCompletion(ctx, openaiReq)
		return callErr
	})
	if err != nil {
		return ChatCompletionResponse{}, c.wrapError("chat_completion", err)
	}

	if len(resp.Choices) == 0 {
		return ChatCompletionResponse{}, fmt.Errorf("%w: no choices in response", ErrModelRefused)
	}

	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return ChatCompletionResponse{}, fmt.Errorf("%w: %s", ErrModelRefused, choice.Message.Refusal)
	}
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return ChatCompletionResponse{}, fmt.Errorf("%w: content filtered", ErrModelRefused)
	}

	usage := NewUsage(
		resp.Usage.PromptTokens,
		resp.Usage.CompletionTokens,
		resp.Usage.TotalTokens,
	)

	return NewChatCompletionResponse(choice.Message.Content, string(choice.FinishReason), usage), nil
}

// Complete sends both texts to the backend with the given response shape and
// unmarshals the validated payload into out. Schema validation happens after
// the transport succeeds; a payload that fails validation is a contract
// violation and is never retried.
func (c *OpenAIClient) Complete(ctx context.Context, systemText, userText string, shape jsonschema.Definition, out any) error {
	req := NewChatCompletionRequest([]Message{
		SystemMessage(systemText),
		UserMessage(userText),
	}).WithResponseShape("response", shape).WithMaxTokens(c.maxTokens)

	resp, err := c.ChatCompletion(ctx, req)
	if err != nil {
		return err
	}

	if err := jsonschema.VerifySchemaAndUnmarshal(shape, []byte(resp.Content()), out); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	return nil
}

// withRetry executes the function with exponential backoff retry.
func (c *OpenAIClient) withRetry(ctx context.Context, fn func() error) error {
	delay := c.initialDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !isRetryable(lastErr) {
			return lastErr
		}

		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * c.backoffFactor)
			}
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// isRetryable determines if an error should be retried. Only transport-level
// failures qualify; contract mismatches never do.
func isRetryable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		// Network-level request errors are retryable.
		return true
	}

	return false
}

// wrapError classifies a backend error. Exhausted retries and transport
// failures surface as ErrModelUnavailable; anything else keeps its API
// context via ProviderError.
func (c *OpenAIClient) wrapError(operation string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	if isRetryable(err) {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return NewProviderError(operation, apiErr.HTTPStatusCode, apiErr.Message, err)
	}

	return NewProviderError(operation, 0, err.Error(), err)
}

// Ensure OpenAIClient implements the generator interfaces.
var (
	_ TextGenerator       = (*OpenAIClient)(nil)
	_ StructuredGenerator = (*OpenAIClient)(nil)
)
