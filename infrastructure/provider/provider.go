// Package provider is the model-client boundary: the only component permitted
// to perform network I/O. Responses are schema-validated at this boundary and
// converted to strongly-typed records before they reach the rest of the
// pipeline.
package provider

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// Errors classifying model-backend failures.
var (
	// ErrModelUnavailable indicates a network or transport failure, surfaced
	// after the configured retries are exhausted. Transient; retryable.
	ErrModelUnavailable = errors.New("model backend unavailable")

	// ErrModelRefused indicates the backend declined to answer. Not retried.
	ErrModelRefused = errors.New("model refused to answer")

	// ErrSchemaViolation indicates the returned payload cannot be validated
	// against the requested response shape. A contract mismatch; never retried.
	ErrSchemaViolation = errors.New("model response violates schema")
)

// Message represents a chat message.
type Message struct {
	role    string
	content string
}

// NewMessage creates a new Message.
func NewMessage(role, content string) Message {
	return Message{role: role, content: content}
}

// Role returns the message role (e.g., "system", "user").
func (m Message) Role() string { return m.role }

// Content returns the message content.
func (m Message) Content() string { return m.content }

// SystemMessage creates a system message.
func SystemMessage(content string) Message {
	return NewMessage("system", content)
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return NewMessage("user", content)
}

// ChatCompletionRequest represents a request for text generation, optionally
// constrained to a JSON schema response shape.
type ChatCompletionRequest struct {
	messages    []Message
	maxTokens   int
	temperature float64
	schemaName  string
	schema      jsonschema.Definition
	hasSchema   bool
}

// NewChatCompletionRequest creates a new ChatCompletionRequest.
func NewChatCompletionRequest(messages []Message) ChatCompletionRequest {
	msgs := make([]Message, len(messages))
	copy(msgs, messages)
	return ChatCompletionRequest{messages: msgs}
}

// WithMaxTokens returns a new request with the specified max tokens.
func (r ChatCompletionRequest) WithMaxTokens(n int) ChatCompletionRequest {
	r.maxTokens = n
	return r
}

// WithTemperature returns a new request with the specified temperature.
func (r ChatCompletionRequest) WithTemperature(t float64) ChatCompletionRequest {
	r.temperature = t
	return r
}

// WithResponseShape returns a new request that asks the backend for a
// response conforming to the given JSON schema.
func (r ChatCompletionRequest) WithResponseShape(name string, schema jsonschema.Definition) ChatCompletionRequest {
	r.schemaName = name
	r.schema = schema
	r.hasSchema = true
	return r
}

// Messages returns the messages.
func (r ChatCompletionRequest) Messages() []Message {
	msgs := make([]Message, len(r.messages))
	copy(msgs, r.messages)
	return msgs
}

// MaxTokens returns the max tokens setting.
func (r ChatCompletionRequest) MaxTokens() int { return r.maxTokens }

// Temperature returns the temperature setting.
func (r ChatCompletionRequest) Temperature() float64 { return r.temperature }

// ResponseShape returns the schema name, the schema, and whether one was set.
func (r ChatCompletionRequest) ResponseShape() (string, jsonschema.Definition, bool) {
	return r.schemaName, r.schema, r.hasSchema
}

// ChatCompletionResponse represents a text generation response.
type ChatCompletionResponse struct {
	content      string
	finishReason string
	usage        Usage
}

// NewChatCompletionResponse creates a new ChatCompletionResponse.
func NewChatCompletionResponse(content, finishReason string, usage Usage) ChatCompletionResponse {
	return ChatCompletionResponse{content: content, finishReason: finishReason, usage: usage}
}

// Content returns the generated content.
func (r ChatCompletionResponse) Content() string { return r.content }

// FinishReason returns why generation stopped.
func (r ChatCompletionResponse) FinishReason() string { return r.finishReason }

// Usage returns token usage information.
func (r ChatCompletionResponse) Usage() Usage { return r.usage }

// Usage represents token usage information.
type Usage struct {
	promptTokens     int
	completionTokens int
	totalTokens      int
}

// NewUsage creates a new Usage.
func NewUsage(prompt, completion, total int) Usage {
	return Usage{promptTokens: prompt, completionTokens: completion, totalTokens: total}
}

// PromptTokens returns the number of prompt tokens.
func (u Usage) PromptTokens() int { return u.promptTokens }

// CompletionTokens returns the number of completion tokens.
func (u Usage) CompletionTokens() int { return u.completionTokens }

// TotalTokens returns the total number of tokens.
func (u Usage) TotalTokens() int { return u.totalTokens }

// TextGenerator generates text completions.
type TextGenerator interface {
	// ChatCompletion generates a text completion for the given messages.
	ChatCompletion(ctx context.Context, req ChatCompletionRequest) (ChatCompletionResponse, error)
}

// StructuredGenerator sends system and user text to the backend and fills out
// with a response validated against shape. On success the result satisfies
// the schema exactly; anything else fails with ErrSchemaViolation.
// Implementations must tolerate concurrent invocation and be substitutable by
// a deterministic stub for testing.
type StructuredGenerator interface {
	Complete(ctx context.Context, systemText, userText string, shape jsonschema.Definition, out any) error
}

// ProviderError wraps backend errors with additional context.
type ProviderError struct {
	operation  string
	statusCode int
	message    string
	cause      error
}

// NewProviderError creates a new ProviderError.
func NewProviderError(operation string, statusCode int, message string, cause error) *ProviderError {
	return &ProviderError{
		operation:  operation,
		statusCode: statusCode,
		message:    message,
		cause:      cause,
	}
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error { return e.cause }

// Operation returns the operation that failed.
func (e *ProviderError) Operation() string { return e.operation }

// StatusCode returns the HTTP status code if available.
func (e *ProviderError) StatusCode() int { return e.statusCode }

// Message returns the error message.
func (e *ProviderError) Message() string { return e.message }
